package service

import (
	"fmt"
	"time"

	"visitor-management/models"
)

type WindowPosition int

const (
	WindowBefore WindowPosition = iota
	WindowOpen
	WindowAfter
)

// PositionAt places now relative to the inclusive window [from, to].
func PositionAt(from, to, now time.Time) WindowPosition {
	switch {
	case now.Before(from):
		return WindowBefore
	case now.After(to):
		return WindowAfter
	default:
		return WindowOpen
	}
}

// ScanDecision is the outcome of evaluating one gate scan. When Err is set
// the scan is rejected; Persist still asks for Status to be written.
type ScanDecision struct {
	Status  models.PassStatus
	Action  models.CheckAction
	Persist bool
	Err     error
}

// NextScan decides what a scan does given the pass status, where now falls
// in the validity window and the action of the latest check-log entry (empty
// when there is none).
func NextScan(status models.PassStatus, pos WindowPosition, last models.CheckAction) ScanDecision {
	switch status {
	case models.PassStatusCancelled:
		return ScanDecision{Status: status, Err: ErrPassCancelled}
	case models.PassStatusExpired:
		return ScanDecision{Status: status, Err: ErrExpired}
	}

	switch pos {
	case WindowBefore:
		return ScanDecision{Status: status, Err: ErrNotYetValid}
	case WindowAfter:
		return ScanDecision{Status: models.PassStatusExpired, Persist: true, Err: ErrExpired}
	}

	if last == models.CheckActionIn {
		return ScanDecision{Status: models.PassStatusCheckedOut, Action: models.CheckActionOut, Persist: true}
	}
	return ScanDecision{Status: models.PassStatusActive, Action: models.CheckActionIn, Persist: true}
}

// DeriveStatus recomputes a pass status from its history, oldest first.
// Cancellation is never undone; an elapsed window always means expired.
func DeriveStatus(current models.PassStatus, pos WindowPosition, history []models.CheckLog) models.PassStatus {
	if current == models.PassStatusCancelled {
		return current
	}
	if pos == WindowAfter {
		return models.PassStatusExpired
	}
	status := models.PassStatusActive
	for _, e := range history {
		switch e.Action {
		case models.CheckActionIn:
			status = models.PassStatusActive
		case models.CheckActionOut:
			status = models.PassStatusCheckedOut
		}
	}
	return status
}

func CancelStatus(current models.PassStatus) (models.PassStatus, error) {
	if current == models.PassStatusCancelled {
		return current, ErrPassCancelled
	}
	return models.PassStatusCancelled, nil
}

var appointmentTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.AppointmentPending:  {models.AppointmentApproved, models.AppointmentRejected, models.AppointmentCancelled},
	models.AppointmentApproved: {models.AppointmentCancelled},
}

// NextAppointmentStatus checks an appointment status change. Rejected and
// cancelled appointments are final.
func NextAppointmentStatus(from, to models.AppointmentStatus) error {
	for _, allowed := range appointmentTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
