package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"visitor-management/config"
	"visitor-management/models"
)

// PassRepository is the MongoDB pass store. Every update is conditional on
// the version field and increments it.
type PassRepository struct {
	collection *mongo.Collection
}

func NewPassRepository(db *mongo.Database) *PassRepository {
	return &PassRepository{
		collection: db.Collection(config.PassCollection),
	}
}

func (r *PassRepository) Create(ctx context.Context, pass *models.Pass) error {
	if pass.ID.IsZero() {
		pass.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, pass); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create pass: %w", err)
	}
	return nil
}

func (r *PassRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Pass, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *PassRepository) FindByNumber(ctx context.Context, number string) (*models.Pass, error) {
	return r.findOne(ctx, bson.M{"pass_number": number})
}

func (r *PassRepository) findOne(ctx context.Context, filter bson.M) (*models.Pass, error) {
	var pass models.Pass
	if err := r.collection.FindOne(ctx, filter).Decode(&pass); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find pass: %w", err)
	}
	return &pass, nil
}

func (r *PassRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, expectedVersion int64, status models.PassStatus, at time.Time) (*models.Pass, error) {
	return r.conditionalSet(ctx, id, expectedVersion, bson.M{"status": status, "updated_at": at})
}

func (r *PassRepository) UpdateDetails(ctx context.Context, id primitive.ObjectID, expectedVersion int64, changes PassChanges, at time.Time) (*models.Pass, error) {
	set := bson.M{"updated_at": at}
	if changes.HostID != nil {
		set["host_id"] = *changes.HostID
	}
	if changes.ValidFrom != nil {
		set["valid_from"] = *changes.ValidFrom
	}
	if changes.ValidTo != nil {
		set["valid_to"] = *changes.ValidTo
	}
	if changes.Status != "" {
		set["status"] = changes.Status
	}
	return r.conditionalSet(ctx, id, expectedVersion, set)
}

// ApplyScan writes the status and the last gate event in one conditional
// update.
func (r *PassRepository) ApplyScan(ctx context.Context, id primitive.ObjectID, expectedVersion int64, mark ScanMark, at time.Time) (*models.Pass, error) {
	set := bson.M{"status": mark.Status, "updated_at": at}
	update := bson.M{"$set": set}
	if mark.LastLogAt != nil {
		set["last_action"] = mark.LastAction
		set["last_log_at"] = *mark.LastLogAt
	} else {
		update["$unset"] = bson.M{"last_action": "", "last_log_at": ""}
	}
	return r.conditionalUpdate(ctx, id, expectedVersion, update)
}

func (r *PassRepository) conditionalSet(ctx context.Context, id primitive.ObjectID, expectedVersion int64, set bson.M) (*models.Pass, error) {
	return r.conditionalUpdate(ctx, id, expectedVersion, bson.M{"$set": set})
}

func (r *PassRepository) conditionalUpdate(ctx context.Context, id primitive.ObjectID, expectedVersion int64, update bson.M) (*models.Pass, error) {
	filter := bson.M{"_id": id, "version": expectedVersion}
	update["$inc"] = bson.M{"version": 1}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var pass models.Pass
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&pass)
	if err == nil {
		return &pass, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update pass: %w", err)
	}

	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to check pass existence: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return nil, ErrVersionConflict
}

func (r *PassRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete pass: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PassRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"status":   bson.M{"$in": []models.PassStatus{models.PassStatusActive, models.PassStatusCheckedOut}},
		"valid_to": bson.M{"$lt": now},
	}
	update := bson.M{
		"$set": bson.M{"status": models.PassStatusExpired, "updated_at": now},
		"$inc": bson.M{"version": 1},
	}
	res, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to expire overdue passes: %w", err)
	}
	return res.ModifiedCount, nil
}

func passDetailStages() []bson.D {
	var stages []bson.D
	stages = append(stages, lookupOne(config.VisitorCollection, "visitor_id", "visitor")...)
	stages = append(stages, lookupOne(config.UserCollection, "host_id", "host")...)
	stages = append(stages, lookupOne(config.AppointmentCollection, "appointment_id", "appointment")...)
	stages = append(stages, bson.D{{Key: "$project", Value: bson.M{
		"qr_image":      0,
		"host.password": 0,
	}}})
	return stages
}

func (r *PassRepository) FindWithDetails(ctx context.Context, id primitive.ObjectID) (*models.PassWithDetails, error) {
	p := pipeline(
		stage("$match", bson.M{"_id": id}),
		passDetailStages(),
	)
	cursor, err := r.collection.Aggregate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate pass: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.PassWithDetails
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode pass: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

// ListWithDetails returns matching passes, newest first.
func (r *PassRepository) ListWithDetails(ctx context.Context, filter PassFilter) ([]models.PassWithDetails, error) {
	p := pipeline(
		stage("$match", filter.bson()),
		stage("$sort", bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}),
		passDetailStages(),
	)
	cursor, err := r.collection.Aggregate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to list passes: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.PassWithDetails{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode passes: %w", err)
	}
	return out, nil
}
