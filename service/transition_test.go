package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"visitor-management/models"
)

func TestPositionAt(t *testing.T) {
	from := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	to := from.Add(8 * time.Hour)

	assert.Equal(t, WindowBefore, PositionAt(from, to, from.Add(-time.Millisecond)))
	assert.Equal(t, WindowOpen, PositionAt(from, to, from))
	assert.Equal(t, WindowOpen, PositionAt(from, to, to))
	assert.Equal(t, WindowAfter, PositionAt(from, to, to.Add(time.Millisecond)))
}

func TestNextScan(t *testing.T) {
	tests := []struct {
		name    string
		status  models.PassStatus
		pos     WindowPosition
		last    models.CheckAction
		want    models.PassStatus
		action  models.CheckAction
		persist bool
		err     error
	}{
		{"first scan checks in", models.PassStatusActive, WindowOpen, "", models.PassStatusActive, models.CheckActionIn, true, nil},
		{"after IN checks out", models.PassStatusActive, WindowOpen, models.CheckActionIn, models.PassStatusCheckedOut, models.CheckActionOut, true, nil},
		{"after OUT checks in again", models.PassStatusCheckedOut, WindowOpen, models.CheckActionOut, models.PassStatusActive, models.CheckActionIn, true, nil},
		{"before window", models.PassStatusActive, WindowBefore, "", models.PassStatusActive, "", false, ErrNotYetValid},
		{"after window expires", models.PassStatusCheckedOut, WindowAfter, models.CheckActionOut, models.PassStatusExpired, "", true, ErrExpired},
		{"already expired", models.PassStatusExpired, WindowOpen, models.CheckActionIn, models.PassStatusExpired, "", false, ErrExpired},
		{"cancelled inside window", models.PassStatusCancelled, WindowOpen, "", models.PassStatusCancelled, "", false, ErrPassCancelled},
		{"cancelled after window", models.PassStatusCancelled, WindowAfter, "", models.PassStatusCancelled, "", false, ErrPassCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NextScan(tt.status, tt.pos, tt.last)
			assert.Equal(t, tt.want, d.Status)
			assert.Equal(t, tt.action, d.Action)
			assert.Equal(t, tt.persist, d.Persist)
			if tt.err == nil {
				assert.NoError(t, d.Err)
			} else {
				assert.ErrorIs(t, d.Err, tt.err)
			}
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	in := models.CheckLog{Action: models.CheckActionIn}
	out := models.CheckLog{Action: models.CheckActionOut}

	assert.Equal(t, models.PassStatusActive, DeriveStatus(models.PassStatusCheckedOut, WindowOpen, nil))
	assert.Equal(t, models.PassStatusCheckedOut, DeriveStatus(models.PassStatusActive, WindowOpen, []models.CheckLog{in, out}))
	assert.Equal(t, models.PassStatusActive, DeriveStatus(models.PassStatusExpired, WindowOpen, []models.CheckLog{in, out, in}))
	assert.Equal(t, models.PassStatusExpired, DeriveStatus(models.PassStatusActive, WindowAfter, []models.CheckLog{in}))
	assert.Equal(t, models.PassStatusCancelled, DeriveStatus(models.PassStatusCancelled, WindowOpen, []models.CheckLog{in}))
}

func TestCancelStatus(t *testing.T) {
	for _, s := range []models.PassStatus{models.PassStatusActive, models.PassStatusCheckedOut, models.PassStatusExpired} {
		next, err := CancelStatus(s)
		assert.NoError(t, err)
		assert.Equal(t, models.PassStatusCancelled, next)
	}
	_, err := CancelStatus(models.PassStatusCancelled)
	assert.ErrorIs(t, err, ErrPassCancelled)
}

func TestNextAppointmentStatus(t *testing.T) {
	allowed := [][2]models.AppointmentStatus{
		{models.AppointmentPending, models.AppointmentApproved},
		{models.AppointmentPending, models.AppointmentRejected},
		{models.AppointmentPending, models.AppointmentCancelled},
		{models.AppointmentApproved, models.AppointmentCancelled},
	}
	for _, tr := range allowed {
		assert.NoError(t, NextAppointmentStatus(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	denied := [][2]models.AppointmentStatus{
		{models.AppointmentApproved, models.AppointmentPending},
		{models.AppointmentRejected, models.AppointmentApproved},
		{models.AppointmentCancelled, models.AppointmentApproved},
		{models.AppointmentPending, models.AppointmentPending},
	}
	for _, tr := range denied {
		assert.ErrorIs(t, NextAppointmentStatus(tr[0], tr[1]), ErrInvalidTransition, "%s -> %s", tr[0], tr[1])
	}
}
