package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/models"
)

// PassFilter narrows pass listings. CreatedBy scopes non-admin callers to
// their own passes.
type PassFilter struct {
	HostID    *primitive.ObjectID
	VisitorID *primitive.ObjectID
	Status    models.PassStatus
	CreatedBy *primitive.ObjectID
}

func (f PassFilter) bson() bson.M {
	m := bson.M{}
	if f.HostID != nil {
		m["host_id"] = *f.HostID
	}
	if f.VisitorID != nil {
		m["visitor_id"] = *f.VisitorID
	}
	if f.Status != "" {
		m["status"] = f.Status
	}
	if f.CreatedBy != nil {
		m["created_by"] = *f.CreatedBy
	}
	return m
}

func (f PassFilter) Matches(p *models.Pass) bool {
	if f.HostID != nil && (p.HostID == nil || *p.HostID != *f.HostID) {
		return false
	}
	if f.VisitorID != nil && p.VisitorID != *f.VisitorID {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.CreatedBy != nil && p.CreatedBy != *f.CreatedBy {
		return false
	}
	return true
}

type CheckLogFilter struct {
	PassID *primitive.ObjectID
	Action models.CheckAction
	From   *time.Time
	To     *time.Time
}

func (f CheckLogFilter) bson() bson.M {
	m := bson.M{}
	if f.PassID != nil {
		m["pass_id"] = *f.PassID
	}
	if f.Action != "" {
		m["action"] = f.Action
	}
	if r := timeRange(f.From, f.To); r != nil {
		m["created_at"] = r
	}
	return m
}

func (f CheckLogFilter) Matches(e *models.CheckLog) bool {
	if f.PassID != nil && e.PassID != *f.PassID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

type AppointmentFilter struct {
	Status    models.AppointmentStatus
	HostID    *primitive.ObjectID
	VisitorID *primitive.ObjectID
	CreatedBy *primitive.ObjectID
	From      *time.Time
	To        *time.Time
}

func (f AppointmentFilter) bson() bson.M {
	m := bson.M{}
	if f.Status != "" {
		m["status"] = f.Status
	}
	if f.HostID != nil {
		m["host_id"] = *f.HostID
	}
	if f.VisitorID != nil {
		m["visitor_id"] = *f.VisitorID
	}
	if f.CreatedBy != nil {
		m["created_by"] = *f.CreatedBy
	}
	if r := timeRange(f.From, f.To); r != nil {
		m["date_time"] = r
	}
	return m
}

// PassChanges carries the editable pass fields. Nil means unchanged.
type PassChanges struct {
	HostID    *primitive.ObjectID
	ValidFrom *time.Time
	ValidTo   *time.Time
	Status    models.PassStatus
}

// ScanMark is the pass status together with the newest gate event it was
// derived from. A nil LastLogAt clears the event.
type ScanMark struct {
	Status     models.PassStatus
	LastAction models.CheckAction
	LastLogAt  *time.Time
}

func timeRange(from, to *time.Time) bson.M {
	if from == nil && to == nil {
		return nil
	}
	r := bson.M{}
	if from != nil {
		r["$gte"] = *from
	}
	if to != nil {
		r["$lte"] = *to
	}
	return r
}
