package memory

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/models"
	"visitor-management/repository"
)

// CheckLogStore keeps entries in insertion order, which breaks timestamp
// ties.
type CheckLogStore struct {
	mu      sync.Mutex
	entries []models.CheckLog
}

func NewCheckLogStore() *CheckLogStore {
	return &CheckLogStore{}
}

func (s *CheckLogStore) Append(_ context.Context, entry *models.CheckLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *CheckLogStore) MostRecentFor(_ context.Context, passID primitive.ObjectID) (*models.CheckLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.CheckLog
	for i := range s.entries {
		e := &s.entries[i]
		if e.PassID != passID {
			continue
		}
		if latest == nil || !e.CreatedAt.Before(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

// History returns every entry for a pass, oldest first.
func (s *CheckLogStore) History(_ context.Context, passID primitive.ObjectID) ([]models.CheckLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.CheckLog{}
	for _, e := range s.entries {
		if e.PassID == passID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// List returns matching entries, newest first.
func (s *CheckLogStore) List(_ context.Context, filter repository.CheckLogFilter) ([]models.CheckLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.CheckLog{}
	for i := len(s.entries) - 1; i >= 0; i-- {
		if filter.Matches(&s.entries[i]) {
			out = append(out, s.entries[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *CheckLogStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.CheckLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.ID == id {
			out := e
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *CheckLogStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}
