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

func TestPassStore_ApplyScan(t *testing.T) {
	ctx := context.Background()
	s := NewPassStore()
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	pass := &models.Pass{
		PassNumber: "PASS-1-1",
		VisitorID:  primitive.NewObjectID(),
		ValidFrom:  now,
		ValidTo:    now.Add(time.Hour),
		Status:     models.PassStatusActive,
	}
	require.NoError(t, s.Create(ctx, pass))

	at := now.Add(time.Minute)
	mark := repository.ScanMark{Status: models.PassStatusCheckedOut, LastAction: models.CheckActionOut, LastLogAt: &at}
	updated, err := s.ApplyScan(ctx, pass.ID, 0, mark, at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Version)
	assert.Equal(t, models.PassStatusCheckedOut, updated.Status)
	assert.Equal(t, models.CheckActionOut, updated.LastAction)
	require.NotNil(t, updated.LastLogAt)
	assert.Equal(t, at, *updated.LastLogAt)

	// The stored mark does not alias the caller's time.
	at = at.Add(time.Hour)
	stored, err := s.FindByID(ctx, pass.ID)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), *stored.LastLogAt)

	_, err = s.ApplyScan(ctx, pass.ID, 0, mark, at)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	cleared, err := s.ApplyScan(ctx, pass.ID, 1, repository.ScanMark{Status: models.PassStatusActive}, at)
	require.NoError(t, err)
	assert.Empty(t, cleared.LastAction)
	assert.Nil(t, cleared.LastLogAt)

	_, err = s.ApplyScan(ctx, primitive.NewObjectID(), 0, mark, at)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
