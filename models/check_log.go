package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CheckAction string

const (
	CheckActionIn  CheckAction = "IN"
	CheckActionOut CheckAction = "OUT"
)

func (a CheckAction) Valid() bool {
	return a == CheckActionIn || a == CheckActionOut
}

// CheckLog is one immutable gate event. Entries are only ever appended or
// deleted by an admin.
type CheckLog struct {
	ID             primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	PassID         primitive.ObjectID  `json:"pass_id" bson:"pass_id"`
	Action         CheckAction         `json:"action" bson:"action"`
	SecurityUserID *primitive.ObjectID `json:"security_user_id,omitempty" bson:"security_user_id,omitempty"`
	Gate           string              `json:"gate" bson:"gate"`
	CreatedAt      time.Time           `json:"created_at" bson:"created_at"`
}

type CheckLogWithDetails struct {
	ID           primitive.ObjectID `json:"id" bson:"_id"`
	Action       CheckAction        `json:"action" bson:"action"`
	Gate         string             `json:"gate" bson:"gate"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	Pass         *PassWithDetails   `json:"pass,omitempty" bson:"pass,omitempty"`
	SecurityUser *UserSummary       `json:"security_user,omitempty" bson:"security_user,omitempty"`
}

type ScanPayload struct {
	PassID string `json:"pass_id" validate:"omitempty,objectid"`
	QRData string `json:"qr_data" validate:"omitempty,max=512"`
	Gate   string `json:"gate" validate:"omitempty,max=100"`
}

type ScanResponse struct {
	Message string      `json:"message" example:"Visitor checked in successfully"`
	Action  CheckAction `json:"action" example:"IN"`
	Pass    *Pass       `json:"pass"`
	Log     *CheckLog   `json:"log"`
}
