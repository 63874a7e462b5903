package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/models"
	"visitor-management/repository"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks visitor-management/service QRGenerator,Notifier

// PassStore persists passes. Updates are conditional on the version the
// caller read and fail with repository.ErrVersionConflict otherwise.
type PassStore interface {
	Create(ctx context.Context, pass *models.Pass) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Pass, error)
	FindByNumber(ctx context.Context, number string) (*models.Pass, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, expectedVersion int64, status models.PassStatus, at time.Time) (*models.Pass, error)
	UpdateDetails(ctx context.Context, id primitive.ObjectID, expectedVersion int64, changes repository.PassChanges, at time.Time) (*models.Pass, error)
	ApplyScan(ctx context.Context, id primitive.ObjectID, expectedVersion int64, mark repository.ScanMark, at time.Time) (*models.Pass, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// CheckLogStore is the append-only gate event history. MostRecentFor returns
// nil, nil when the pass has no entries.
type CheckLogStore interface {
	Append(ctx context.Context, entry *models.CheckLog) error
	MostRecentFor(ctx context.Context, passID primitive.ObjectID) (*models.CheckLog, error)
	History(ctx context.Context, passID primitive.ObjectID) ([]models.CheckLog, error)
	List(ctx context.Context, filter repository.CheckLogFilter) ([]models.CheckLog, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.CheckLog, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type VisitorLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Visitor, error)
}

type AppointmentLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error)
}

type UserLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// QRGenerator renders QR content as an image data URL.
type QRGenerator interface {
	Generate(content string) (string, error)
}

// Notifier is told about events worth an email. Implementations must not
// block the caller or fail the operation.
type Notifier interface {
	PassCheckedIn(ctx context.Context, pass *models.Pass, entry *models.CheckLog)
	AppointmentApproved(ctx context.Context, appt *models.Appointment)
}
