package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReportSummary struct {
	TotalPasses  int64 `json:"total_passes" example:"120"`
	ActivePasses int64 `json:"active_passes" example:"14"`
	CheckIns     int64 `json:"check_ins" example:"98"`
	CheckOuts    int64 `json:"check_outs" example:"91"`
}

type DailyVisit struct {
	Date  string `json:"date" bson:"_id" example:"2024-06-10"`
	Count int64  `json:"count" bson:"count" example:"17"`
}

type HostVisit struct {
	HostID     primitive.ObjectID `json:"host_id" bson:"_id"`
	HostName   string             `json:"host_name" bson:"host_name"`
	HostEmail  string             `json:"host_email" bson:"host_email"`
	Department string             `json:"department,omitempty" bson:"department,omitempty"`
	Visits     int64              `json:"visits" bson:"visits"`
}

// ReportRange bounds report queries on created_at. Nil ends are open.
type ReportRange struct {
	From *time.Time
	To   *time.Time
}
