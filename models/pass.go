package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PassStatus string

const (
	PassStatusActive     PassStatus = "active"
	PassStatusExpired    PassStatus = "expired"
	PassStatusCheckedOut PassStatus = "checkedOut"
	PassStatusCancelled  PassStatus = "cancelled"
)

func (s PassStatus) Valid() bool {
	switch s {
	case PassStatusActive, PassStatusExpired, PassStatusCheckedOut, PassStatusCancelled:
		return true
	}
	return false
}

// Pass is a time-bounded authorization for a visitor. Status is a cached value
// derived from the check-log history and the validity window. LastAction and
// LastLogAt mirror the newest check-log entry and are written together with
// Status; Version guards conditional writes.
type Pass struct {
	ID            primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	PassNumber    string              `json:"pass_number" bson:"pass_number"`
	QRData        string              `json:"qr_data" bson:"qr_data"`
	QRImage       string              `json:"qr_image,omitempty" bson:"qr_image,omitempty"`
	VisitorID     primitive.ObjectID  `json:"visitor_id" bson:"visitor_id"`
	HostID        *primitive.ObjectID `json:"host_id,omitempty" bson:"host_id,omitempty"`
	AppointmentID *primitive.ObjectID `json:"appointment_id,omitempty" bson:"appointment_id,omitempty"`
	ValidFrom     time.Time           `json:"valid_from" bson:"valid_from"`
	ValidTo       time.Time           `json:"valid_to" bson:"valid_to"`
	Status        PassStatus          `json:"status" bson:"status"`
	LastAction    CheckAction         `json:"last_action,omitempty" bson:"last_action,omitempty"`
	LastLogAt     *time.Time          `json:"last_log_at,omitempty" bson:"last_log_at,omitempty"`
	Version       int64               `json:"version" bson:"version"`
	CreatedBy     primitive.ObjectID  `json:"created_by" bson:"created_by"`
	CreatedAt     time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" bson:"updated_at"`
}

// PassWithDetails is a pass with its visitor, host and appointment joined in.
type PassWithDetails struct {
	ID          primitive.ObjectID  `json:"id" bson:"_id"`
	PassNumber  string              `json:"pass_number" bson:"pass_number"`
	QRData      string              `json:"qr_data" bson:"qr_data"`
	ValidFrom   time.Time           `json:"valid_from" bson:"valid_from"`
	ValidTo     time.Time           `json:"valid_to" bson:"valid_to"`
	Status      PassStatus          `json:"status" bson:"status"`
	CreatedBy   primitive.ObjectID  `json:"created_by" bson:"created_by"`
	CreatedAt   time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" bson:"updated_at"`
	Visitor     *VisitorSummary     `json:"visitor,omitempty" bson:"visitor,omitempty"`
	Host        *UserSummary        `json:"host,omitempty" bson:"host,omitempty"`
	Appointment *AppointmentSummary `json:"appointment,omitempty" bson:"appointment,omitempty"`
}

type PassCreatePayload struct {
	Visitor     string     `json:"visitor" validate:"omitempty,objectid"`
	Host        string     `json:"host" validate:"omitempty,objectid"`
	Appointment string     `json:"appointment" validate:"omitempty,objectid"`
	ValidFrom   *time.Time `json:"valid_from"`
	ValidTo     *time.Time `json:"valid_to"`
}

type PassUpdatePayload struct {
	Host      string     `json:"host,omitempty" validate:"omitempty,objectid"`
	ValidFrom *time.Time `json:"valid_from,omitempty"`
	ValidTo   *time.Time `json:"valid_to,omitempty"`
}

type PassQRResponse struct {
	PassNumber string `json:"pass_number" example:"PASS-1718000000000-42"`
	QRImage    string `json:"qr_image" example:"data:image/png;base64,iVBORw0..."`
}
