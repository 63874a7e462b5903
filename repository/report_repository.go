package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"visitor-management/config"
	"visitor-management/models"
)

// ReportRepository runs read-only aggregations over passes and check logs.
type ReportRepository struct {
	passes    *mongo.Collection
	checkLogs *CheckLogRepository
}

func NewReportRepository(db *mongo.Database) *ReportRepository {
	return &ReportRepository{
		passes:    db.Collection(config.PassCollection),
		checkLogs: NewCheckLogRepository(db),
	}
}

func createdIn(rng models.ReportRange) bson.M {
	m := bson.M{}
	if r := timeRange(rng.From, rng.To); r != nil {
		m["created_at"] = r
	}
	return m
}

func with(base bson.M, key string, value interface{}) bson.M {
	out := bson.M{key: value}
	for k, v := range base {
		out[k] = v
	}
	return out
}

func (r *ReportRepository) Summary(ctx context.Context, rng models.ReportRange) (*models.ReportSummary, error) {
	base := createdIn(rng)
	var out models.ReportSummary
	var err error

	if out.TotalPasses, err = r.passes.CountDocuments(ctx, base); err != nil {
		return nil, fmt.Errorf("failed to count passes: %w", err)
	}
	if out.ActivePasses, err = r.passes.CountDocuments(ctx, with(base, "status", models.PassStatusActive)); err != nil {
		return nil, fmt.Errorf("failed to count active passes: %w", err)
	}
	if out.CheckIns, err = r.checkLogs.collection.CountDocuments(ctx, with(base, "action", models.CheckActionIn)); err != nil {
		return nil, fmt.Errorf("failed to count check-ins: %w", err)
	}
	if out.CheckOuts, err = r.checkLogs.collection.CountDocuments(ctx, with(base, "action", models.CheckActionOut)); err != nil {
		return nil, fmt.Errorf("failed to count check-outs: %w", err)
	}
	return &out, nil
}

// DailyVisits counts check-ins per calendar day in loc.
func (r *ReportRepository) DailyVisits(ctx context.Context, rng models.ReportRange, loc *time.Location) ([]models.DailyVisit, error) {
	if loc == nil {
		loc = time.UTC
	}
	p := mongo.Pipeline{
		{{Key: "$match", Value: with(createdIn(rng), "action", models.CheckActionIn)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m-%d"},
				{Key: "date", Value: "$created_at"},
				{Key: "timezone", Value: loc.String()},
			}}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := r.checkLogs.collection.Aggregate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily visits: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.DailyVisit{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode daily visits: %w", err)
	}
	return out, nil
}

// HostVisits counts passes per host, busiest host first. A non-nil hostID
// restricts the report to that host.
func (r *ReportRepository) HostVisits(ctx context.Context, rng models.ReportRange, hostID *primitive.ObjectID) ([]models.HostVisit, error) {
	var hostMatch interface{} = bson.M{"$exists": true, "$ne": nil}
	if hostID != nil {
		hostMatch = *hostID
	}
	p := mongo.Pipeline{
		{{Key: "$match", Value: with(createdIn(rng), "host_id", hostMatch)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$host_id"},
			{Key: "visits", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: config.UserCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "host"},
		}}},
		{{Key: "$unwind", Value: "$host"}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 1},
			{Key: "visits", Value: 1},
			{Key: "host_name", Value: "$host.name"},
			{Key: "host_email", Value: "$host.email"},
			{Key: "department", Value: "$host.department"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "visits", Value: -1}, {Key: "host_name", Value: 1}}}},
	}

	cursor, err := r.passes.Aggregate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate host visits: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.HostVisit{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode host visits: %w", err)
	}
	return out, nil
}

// VisitsExport returns every check-log entry in range with its details.
func (r *ReportRepository) VisitsExport(ctx context.Context, rng models.ReportRange) ([]models.CheckLogWithDetails, error) {
	return r.checkLogs.ListWithDetails(ctx, CheckLogFilter{From: rng.From, To: rng.To})
}
