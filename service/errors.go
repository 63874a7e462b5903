package service

import (
	"errors"
	"strings"

	"visitor-management/repository"
)

var (
	ErrNotFound          = repository.ErrNotFound
	ErrNotYetValid       = errors.New("pass is not yet valid")
	ErrExpired           = errors.New("pass has expired")
	ErrPassCancelled     = errors.New("pass has been cancelled")
	ErrConflict          = errors.New("concurrent update conflict, please retry")
	ErrQRGeneration      = errors.New("failed to generate qr code")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// MsgMissingFields is the message used when required inputs are blank.
const MsgMissingFields = "Please fill out all the fields!"

// ValidationError reports caller input that cannot be accepted. Fields names
// the offending inputs, if any.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + " (" + strings.Join(e.Fields, ", ") + ")"
}

func newValidationError(msg string, fields ...string) *ValidationError {
	return &ValidationError{Message: msg, Fields: fields}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
