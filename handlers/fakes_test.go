package handlers

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/models"
	"visitor-management/repository"
	"visitor-management/repository/memory"
)

type fakeVisitors struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Visitor
}

func newFakeVisitors() *fakeVisitors {
	return &fakeVisitors{byID: map[primitive.ObjectID]*models.Visitor{}}
}

func (f *fakeVisitors) Create(_ context.Context, v *models.Visitor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v.Email = strings.ToLower(v.Email)
	for _, existing := range f.byID {
		if existing.Email == v.Email {
			return repository.ErrDuplicateKey
		}
	}
	v.ID = primitive.NewObjectID()
	v.CreatedAt = time.Now().UTC()
	v.UpdatedAt = v.CreatedAt
	stored := *v
	f.byID[v.ID] = &stored
	return nil
}

func (f *fakeVisitors) FindByID(_ context.Context, id primitive.ObjectID) (*models.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *v
	return &out, nil
}

func (f *fakeVisitors) List(_ context.Context, createdBy *primitive.ObjectID) ([]models.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Visitor{}
	for _, v := range f.byID {
		if createdBy == nil || v.CreatedBy == *createdBy {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeVisitors) Update(_ context.Context, id primitive.ObjectID, p *models.VisitorUpdatePayload) (*models.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Name != "" {
		v.Name = p.Name
	}
	if p.Company != "" {
		v.Company = p.Company
	}
	out := *v
	return &out, nil
}

func (f *fakeVisitors) SetPhoto(_ context.Context, id primitive.ObjectID, url string) (*models.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v.PhotoURL = url
	out := *v
	return &out, nil
}

func (f *fakeVisitors) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeAppointments struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Appointment
}

func newFakeAppointments() *fakeAppointments {
	return &fakeAppointments{byID: map[primitive.ObjectID]*models.Appointment{}}
}

func (f *fakeAppointments) Create(_ context.Context, a *models.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = primitive.NewObjectID()
	stored := *a
	f.byID[a.ID] = &stored
	return nil
}

func (f *fakeAppointments) FindByID(_ context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (f *fakeAppointments) FindWithDetails(ctx context.Context, id primitive.ObjectID) (*models.AppointmentWithDetails, error) {
	a, err := f.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.AppointmentWithDetails{ID: a.ID, Purpose: a.Purpose, DateTime: a.DateTime, Status: a.Status}, nil
}

func (f *fakeAppointments) List(_ context.Context, filter repository.AppointmentFilter) ([]models.AppointmentWithDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.AppointmentWithDetails{}
	for _, a := range f.byID {
		if filter.CreatedBy != nil && a.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, models.AppointmentWithDetails{ID: a.ID, Purpose: a.Purpose, DateTime: a.DateTime, Status: a.Status})
	}
	return out, nil
}

func (f *fakeAppointments) Update(_ context.Context, id primitive.ObjectID, p *models.AppointmentUpdatePayload) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Purpose != "" {
		a.Purpose = p.Purpose
	}
	out := *a
	return &out, nil
}

func (f *fakeAppointments) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to models.AppointmentStatus) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if a.Status != from {
		return nil, repository.ErrVersionConflict
	}
	a.Status = to
	out := *a
	return &out, nil
}

func (f *fakeAppointments) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

// passViews builds the populated pass views straight from the memory store.
type passViews struct {
	store *memory.PassStore
}

func toPassView(p models.Pass) models.PassWithDetails {
	return models.PassWithDetails{
		ID:         p.ID,
		PassNumber: p.PassNumber,
		QRData:     p.QRData,
		ValidFrom:  p.ValidFrom,
		ValidTo:    p.ValidTo,
		Status:     p.Status,
		CreatedBy:  p.CreatedBy,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func (v passViews) FindWithDetails(ctx context.Context, id primitive.ObjectID) (*models.PassWithDetails, error) {
	p, err := v.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := toPassView(*p)
	return &out, nil
}

func (v passViews) ListWithDetails(ctx context.Context, filter repository.PassFilter) ([]models.PassWithDetails, error) {
	passes, err := v.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]models.PassWithDetails, 0, len(passes))
	for _, p := range passes {
		out = append(out, toPassView(p))
	}
	return out, nil
}

type logViews struct {
	store *memory.CheckLogStore
}

func toLogView(e models.CheckLog) models.CheckLogWithDetails {
	return models.CheckLogWithDetails{ID: e.ID, Action: e.Action, Gate: e.Gate, CreatedAt: e.CreatedAt}
}

func (v logViews) FindWithDetails(ctx context.Context, id primitive.ObjectID) (*models.CheckLogWithDetails, error) {
	e, err := v.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := toLogView(*e)
	return &out, nil
}

func (v logViews) ListWithDetails(ctx context.Context, filter repository.CheckLogFilter) ([]models.CheckLogWithDetails, error) {
	entries, err := v.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]models.CheckLogWithDetails, 0, len(entries))
	for _, e := range entries {
		out = append(out, toLogView(e))
	}
	return out, nil
}
