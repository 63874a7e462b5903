package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"visitor-management/config"
	"visitor-management/models"
)

type VisitorRepository interface {
	Create(ctx context.Context, visitor *models.Visitor) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Visitor, error)
	List(ctx context.Context, createdBy *primitive.ObjectID) ([]models.Visitor, error)
	Update(ctx context.Context, id primitive.ObjectID, payload *models.VisitorUpdatePayload) (*models.Visitor, error)
	SetPhoto(ctx context.Context, id primitive.ObjectID, photoURL string) (*models.Visitor, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type visitorRepository struct {
	collection *mongo.Collection
}

func NewVisitorRepository(db *mongo.Database) VisitorRepository {
	return &visitorRepository{
		collection: db.Collection(config.VisitorCollection),
	}
}

func (r *visitorRepository) Create(ctx context.Context, visitor *models.Visitor) error {
	now := time.Now().UTC()
	visitor.ID = primitive.NewObjectID()
	visitor.Email = strings.ToLower(strings.TrimSpace(visitor.Email))
	visitor.CreatedAt = now
	visitor.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, visitor); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create visitor: %w", err)
	}
	return nil
}

func (r *visitorRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Visitor, error) {
	var visitor models.Visitor
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&visitor); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find visitor: %w", err)
	}
	return &visitor, nil
}

func (r *visitorRepository) List(ctx context.Context, createdBy *primitive.ObjectID) ([]models.Visitor, error) {
	filter := bson.M{}
	if createdBy != nil {
		filter["created_by"] = *createdBy
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list visitors: %w", err)
	}
	defer cursor.Close(ctx)

	visitors := []models.Visitor{}
	if err := cursor.All(ctx, &visitors); err != nil {
		return nil, fmt.Errorf("failed to decode visitors: %w", err)
	}
	return visitors, nil
}

func (r *visitorRepository) Update(ctx context.Context, id primitive.ObjectID, payload *models.VisitorUpdatePayload) (*models.Visitor, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if payload.Name != "" {
		set["name"] = payload.Name
	}
	if payload.Email != "" {
		set["email"] = strings.ToLower(strings.TrimSpace(payload.Email))
	}
	if payload.Phone != "" {
		set["phone"] = payload.Phone
	}
	if payload.Company != "" {
		set["company"] = payload.Company
	}
	if payload.IDType != "" {
		set["id_type"] = payload.IDType
	}
	if payload.IDNumber != "" {
		set["id_number"] = payload.IDNumber
	}
	return r.findAndSet(ctx, id, set)
}

func (r *visitorRepository) SetPhoto(ctx context.Context, id primitive.ObjectID, photoURL string) (*models.Visitor, error) {
	return r.findAndSet(ctx, id, bson.M{"photo_url": photoURL, "updated_at": time.Now().UTC()})
}

func (r *visitorRepository) findAndSet(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Visitor, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var visitor models.Visitor
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&visitor)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("failed to update visitor: %w", err)
	}
	return &visitor, nil
}

func (r *visitorRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete visitor: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
