// Package memory provides in-process pass and check-log stores for tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/models"
	"visitor-management/repository"
)

type PassStore struct {
	mu       sync.Mutex
	passes   map[primitive.ObjectID]*models.Pass
	byNumber map[string]primitive.ObjectID
}

func NewPassStore() *PassStore {
	return &PassStore{
		passes:   make(map[primitive.ObjectID]*models.Pass),
		byNumber: make(map[string]primitive.ObjectID),
	}
}

func (s *PassStore) Create(_ context.Context, pass *models.Pass) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byNumber[pass.PassNumber]; taken {
		return repository.ErrDuplicateKey
	}
	if pass.ID.IsZero() {
		pass.ID = primitive.NewObjectID()
	}
	stored := *pass
	s.passes[pass.ID] = &stored
	s.byNumber[pass.PassNumber] = pass.ID
	return nil
}

func (s *PassStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Pass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.passes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (s *PassStore) FindByNumber(_ context.Context, number string) (*models.Pass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byNumber[number]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *s.passes[id]
	return &out, nil
}

func (s *PassStore) UpdateStatus(_ context.Context, id primitive.ObjectID, expectedVersion int64, status models.PassStatus, at time.Time) (*models.Pass, error) {
	return s.update(id, expectedVersion, at, func(p *models.Pass) {
		p.Status = status
	})
}

func (s *PassStore) ApplyScan(_ context.Context, id primitive.ObjectID, expectedVersion int64, mark repository.ScanMark, at time.Time) (*models.Pass, error) {
	return s.update(id, expectedVersion, at, func(p *models.Pass) {
		p.Status = mark.Status
		p.LastAction = mark.LastAction
		p.LastLogAt = nil
		if mark.LastLogAt != nil {
			t := *mark.LastLogAt
			p.LastLogAt = &t
		} else {
			p.LastAction = ""
		}
	})
}

func (s *PassStore) UpdateDetails(_ context.Context, id primitive.ObjectID, expectedVersion int64, changes repository.PassChanges, at time.Time) (*models.Pass, error) {
	return s.update(id, expectedVersion, at, func(p *models.Pass) {
		if changes.HostID != nil {
			host := *changes.HostID
			p.HostID = &host
		}
		if changes.ValidFrom != nil {
			p.ValidFrom = *changes.ValidFrom
		}
		if changes.ValidTo != nil {
			p.ValidTo = *changes.ValidTo
		}
		if changes.Status != "" {
			p.Status = changes.Status
		}
	})
}

func (s *PassStore) update(id primitive.ObjectID, expectedVersion int64, at time.Time, mutate func(*models.Pass)) (*models.Pass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.passes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Version != expectedVersion {
		return nil, repository.ErrVersionConflict
	}
	mutate(p)
	p.Version++
	p.UpdatedAt = at
	out := *p
	return &out, nil
}

func (s *PassStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.passes[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(s.byNumber, p.PassNumber)
	delete(s.passes, id)
	return nil
}

func (s *PassStore) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, p := range s.passes {
		if (p.Status == models.PassStatusActive || p.Status == models.PassStatusCheckedOut) && p.ValidTo.Before(now) {
			p.Status = models.PassStatusExpired
			p.Version++
			p.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// List returns matching passes, newest first.
func (s *PassStore) List(_ context.Context, filter repository.PassFilter) ([]models.Pass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Pass{}
	for _, p := range s.passes {
		if filter.Matches(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
