package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/models"
	"visitor-management/repository"
)

func TestCheckLogStore_Ordering(t *testing.T) {
	ctx := context.Background()
	s := NewCheckLogStore()
	passID := primitive.NewObjectID()
	other := primitive.NewObjectID()
	t0 := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

	in := &models.CheckLog{PassID: passID, Action: models.CheckActionIn, Gate: "Main Gate", CreatedAt: t0}
	require.NoError(t, s.Append(ctx, in))
	require.NoError(t, s.Append(ctx, &models.CheckLog{PassID: other, Action: models.CheckActionIn, CreatedAt: t0.Add(time.Hour)}))
	// Same timestamp as the IN: insertion order decides.
	out := &models.CheckLog{PassID: passID, Action: models.CheckActionOut, Gate: "Main Gate", CreatedAt: t0}
	require.NoError(t, s.Append(ctx, out))

	latest, err := s.MostRecentFor(ctx, passID)
	require.NoError(t, err)
	assert.Equal(t, out.ID, latest.ID)

	history, err := s.History(ctx, passID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, in.ID, history[0].ID)
	assert.Equal(t, out.ID, history[1].ID)

	listed, err := s.List(ctx, repository.CheckLogFilter{PassID: &passID})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, out.ID, listed[0].ID)

	ins, err := s.List(ctx, repository.CheckLogFilter{Action: models.CheckActionIn})
	require.NoError(t, err)
	assert.Len(t, ins, 2)
}

func TestCheckLogStore_MostRecentFor_None(t *testing.T) {
	latest, err := NewCheckLogStore().MostRecentFor(context.Background(), primitive.NewObjectID())
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestCheckLogStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewCheckLogStore()
	e := &models.CheckLog{PassID: primitive.NewObjectID(), Action: models.CheckActionIn, CreatedAt: time.Now()}
	require.NoError(t, s.Append(ctx, e))

	require.NoError(t, s.Delete(ctx, e.ID))
	assert.ErrorIs(t, s.Delete(ctx, e.ID), repository.ErrNotFound)
	_, err := s.FindByID(ctx, e.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPassStore_VersionedUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewPassStore()
	now := time.Now()
	p := &models.Pass{PassNumber: "PASS-1-1", Status: models.PassStatusActive, ValidFrom: now, ValidTo: now.Add(time.Hour)}
	require.NoError(t, s.Create(ctx, p))

	assert.ErrorIs(t, s.Create(ctx, &models.Pass{PassNumber: "PASS-1-1"}), repository.ErrDuplicateKey)

	updated, err := s.UpdateStatus(ctx, p.ID, 0, models.PassStatusCheckedOut, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Version)

	_, err = s.UpdateStatus(ctx, p.ID, 0, models.PassStatusActive, now)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	_, err = s.UpdateStatus(ctx, primitive.NewObjectID(), 0, models.PassStatusActive, now)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPassStore_ExpireOverdue(t *testing.T) {
	ctx := context.Background()
	s := NewPassStore()
	now := time.Now()

	overdue := &models.Pass{PassNumber: "A", Status: models.PassStatusActive, ValidFrom: now.Add(-2 * time.Hour), ValidTo: now.Add(-time.Hour)}
	cancelled := &models.Pass{PassNumber: "B", Status: models.PassStatusCancelled, ValidFrom: now.Add(-2 * time.Hour), ValidTo: now.Add(-time.Hour)}
	current := &models.Pass{PassNumber: "C", Status: models.PassStatusCheckedOut, ValidFrom: now.Add(-time.Hour), ValidTo: now.Add(time.Hour)}
	for _, p := range []*models.Pass{overdue, cancelled, current} {
		require.NoError(t, s.Create(ctx, p))
	}

	n, err := s.ExpireOverdue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.FindByID(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PassStatusExpired, got.Status)

	got, err = s.FindByID(ctx, cancelled.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PassStatusCancelled, got.Status)
}
