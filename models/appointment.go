package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentApproved  AppointmentStatus = "approved"
	AppointmentRejected  AppointmentStatus = "rejected"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

type Appointment struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	VisitorID      primitive.ObjectID `json:"visitor_id" bson:"visitor_id"`
	HostID         primitive.ObjectID `json:"host_id" bson:"host_id"`
	Purpose        string             `json:"purpose" bson:"purpose"`
	DateTime       time.Time          `json:"date_time" bson:"date_time"`
	Notes          string             `json:"notes,omitempty" bson:"notes,omitempty"`
	RecurrenceRule string             `json:"recurrence_rule,omitempty" bson:"recurrence_rule,omitempty"`
	Status         AppointmentStatus  `json:"status" bson:"status"`
	CreatedBy      primitive.ObjectID `json:"created_by" bson:"created_by"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}

type AppointmentSummary struct {
	ID       primitive.ObjectID `json:"id" bson:"_id"`
	Purpose  string             `json:"purpose" bson:"purpose"`
	DateTime time.Time          `json:"date_time" bson:"date_time"`
	Status   AppointmentStatus  `json:"status" bson:"status"`
}

type AppointmentWithDetails struct {
	ID             primitive.ObjectID `json:"id" bson:"_id"`
	Purpose        string             `json:"purpose" bson:"purpose"`
	DateTime       time.Time          `json:"date_time" bson:"date_time"`
	Notes          string             `json:"notes,omitempty" bson:"notes,omitempty"`
	RecurrenceRule string             `json:"recurrence_rule,omitempty" bson:"recurrence_rule,omitempty"`
	Status         AppointmentStatus  `json:"status" bson:"status"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
	Visitor        *VisitorSummary    `json:"visitor,omitempty" bson:"visitor,omitempty"`
	Host           *UserSummary       `json:"host,omitempty" bson:"host,omitempty"`
	CreatedBy      *UserSummary       `json:"created_by,omitempty" bson:"created_by_user,omitempty"`
}

type AppointmentCreatePayload struct {
	Visitor        string     `json:"visitor" validate:"omitempty,objectid"`
	Host           string     `json:"host" validate:"omitempty,objectid"`
	Purpose        string     `json:"purpose" validate:"omitempty,max=500"`
	DateTime       *time.Time `json:"date_time"`
	Notes          string     `json:"notes" validate:"omitempty,max=1000"`
	RecurrenceRule string     `json:"recurrence_rule" validate:"omitempty,rrule"`
}

type AppointmentUpdatePayload struct {
	Host           string     `json:"host,omitempty" validate:"omitempty,objectid"`
	Purpose        string     `json:"purpose,omitempty" validate:"omitempty,max=500"`
	DateTime       *time.Time `json:"date_time,omitempty"`
	Notes          string     `json:"notes,omitempty" validate:"omitempty,max=1000"`
	RecurrenceRule string     `json:"recurrence_rule,omitempty" validate:"omitempty,rrule"`
}

type AppointmentStatusPayload struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected cancelled"`
}
