package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"visitor-management/config"
	"visitor-management/models"
)

var (
	newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	oldestFirst = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}
)

// CheckLogRepository is the MongoDB ledger. Ties on created_at are broken by
// _id, which grows with insertion order.
type CheckLogRepository struct {
	collection *mongo.Collection
}

func NewCheckLogRepository(db *mongo.Database) *CheckLogRepository {
	return &CheckLogRepository{
		collection: db.Collection(config.CheckLogCollection),
	}
}

func (r *CheckLogRepository) Append(ctx context.Context, entry *models.CheckLog) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert check log: %w", err)
	}
	return nil
}

func (r *CheckLogRepository) MostRecentFor(ctx context.Context, passID primitive.ObjectID) (*models.CheckLog, error) {
	opts := options.FindOne().SetSort(newestFirst)

	var entry models.CheckLog
	if err := r.collection.FindOne(ctx, bson.M{"pass_id": passID}, opts).Decode(&entry); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find latest check log: %w", err)
	}
	return &entry, nil
}

func (r *CheckLogRepository) History(ctx context.Context, passID primitive.ObjectID) ([]models.CheckLog, error) {
	return r.find(ctx, bson.M{"pass_id": passID}, oldestFirst)
}

func (r *CheckLogRepository) List(ctx context.Context, filter CheckLogFilter) ([]models.CheckLog, error) {
	return r.find(ctx, filter.bson(), newestFirst)
}

func (r *CheckLogRepository) find(ctx context.Context, filter bson.M, sort bson.D) ([]models.CheckLog, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("failed to find check logs: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []models.CheckLog{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode check logs: %w", err)
	}
	return entries, nil
}

func (r *CheckLogRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.CheckLog, error) {
	var entry models.CheckLog
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&entry); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find check log: %w", err)
	}
	return &entry, nil
}

func (r *CheckLogRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete check log: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func checkLogDetailStages() []bson.D {
	var stages []bson.D
	stages = append(stages, lookupOne(config.PassCollection, "pass_id", "pass")...)
	stages = append(stages, lookupOne(config.VisitorCollection, "pass.visitor_id", "pass.visitor")...)
	stages = append(stages, lookupOne(config.UserCollection, "pass.host_id", "pass.host")...)
	stages = append(stages, lookupOne(config.UserCollection, "security_user_id", "security_user")...)
	stages = append(stages, bson.D{{Key: "$project", Value: bson.M{
		"pass.qr_image":          0,
		"pass.host.password":     0,
		"security_user.password": 0,
	}}})
	return stages
}

func (r *CheckLogRepository) FindWithDetails(ctx context.Context, id primitive.ObjectID) (*models.CheckLogWithDetails, error) {
	out, err := r.aggregateDetails(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

// ListWithDetails returns entries newest first with pass, visitor, host and
// guard joined in.
func (r *CheckLogRepository) ListWithDetails(ctx context.Context, filter CheckLogFilter) ([]models.CheckLogWithDetails, error) {
	return r.aggregateDetails(ctx, filter.bson())
}

func (r *CheckLogRepository) aggregateDetails(ctx context.Context, match bson.M) ([]models.CheckLogWithDetails, error) {
	p := pipeline(
		stage("$match", match),
		stage("$sort", newestFirst),
		checkLogDetailStages(),
	)
	cursor, err := r.collection.Aggregate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate check logs: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.CheckLogWithDetails{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode check logs: %w", err)
	}
	return out, nil
}
