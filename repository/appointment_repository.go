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

type AppointmentRepository interface {
	Create(ctx context.Context, appt *models.Appointment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error)
	FindWithDetails(ctx context.Context, id primitive.ObjectID) (*models.AppointmentWithDetails, error)
	List(ctx context.Context, filter AppointmentFilter) ([]models.AppointmentWithDetails, error)
	Update(ctx context.Context, id primitive.ObjectID, payload *models.AppointmentUpdatePayload) (*models.Appointment, error)
	// UpdateStatus only applies when the stored status is still from.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.AppointmentStatus) (*models.Appointment, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type appointmentRepository struct {
	collection *mongo.Collection
}

func NewAppointmentRepository(db *mongo.Database) AppointmentRepository {
	return &appointmentRepository{
		collection: db.Collection(config.AppointmentCollection),
	}
}

func (r *appointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	now := time.Now().UTC()
	appt.ID = primitive.NewObjectID()
	if appt.Status == "" {
		appt.Status = models.AppointmentPending
	}
	appt.CreatedAt = now
	appt.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, appt); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	var appt models.Appointment
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&appt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}
	return &appt, nil
}

func appointmentDetailStages() []bson.D {
	var stages []bson.D
	stages = append(stages, lookupOne(config.VisitorCollection, "visitor_id", "visitor")...)
	stages = append(stages, lookupOne(config.UserCollection, "host_id", "host")...)
	stages = append(stages, lookupOne(config.UserCollection, "created_by", "created_by_user")...)
	stages = append(stages, bson.D{{Key: "$project", Value: bson.M{
		"host.password":            0,
		"created_by_user.password": 0,
	}}})
	return stages
}

func (r *appointmentRepository) FindWithDetails(ctx context.Context, id primitive.ObjectID) (*models.AppointmentWithDetails, error) {
	p := pipeline(
		stage("$match", bson.M{"_id": id}),
		appointmentDetailStages(),
	)
	cursor, err := r.collection.Aggregate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate appointment: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.AppointmentWithDetails
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode appointment: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (r *appointmentRepository) List(ctx context.Context, filter AppointmentFilter) ([]models.AppointmentWithDetails, error) {
	p := pipeline(
		stage("$match", filter.bson()),
		stage("$sort", bson.D{{Key: "date_time", Value: 1}, {Key: "_id", Value: 1}}),
		appointmentDetailStages(),
	)
	cursor, err := r.collection.Aggregate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.AppointmentWithDetails{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return out, nil
}

func (r *appointmentRepository) Update(ctx context.Context, id primitive.ObjectID, payload *models.AppointmentUpdatePayload) (*models.Appointment, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if payload.Host != "" {
		hostID, err := primitive.ObjectIDFromHex(payload.Host)
		if err != nil {
			return nil, fmt.Errorf("invalid host id: %w", err)
		}
		set["host_id"] = hostID
	}
	if payload.Purpose != "" {
		set["purpose"] = payload.Purpose
	}
	if payload.DateTime != nil {
		set["date_time"] = payload.DateTime.UTC()
	}
	if payload.Notes != "" {
		set["notes"] = payload.Notes
	}
	if payload.RecurrenceRule != "" {
		set["recurrence_rule"] = payload.RecurrenceRule
	}
	return r.findAndSet(ctx, bson.M{"_id": id}, set)
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.AppointmentStatus) (*models.Appointment, error) {
	appt, err := r.findAndSet(ctx, bson.M{"_id": id, "status": from}, bson.M{"status": to, "updated_at": time.Now().UTC()})
	if errors.Is(err, ErrNotFound) {
		if _, ferr := r.FindByID(ctx, id); ferr != nil {
			return nil, ferr
		}
		return nil, ErrVersionConflict
	}
	return appt, err
}

func (r *appointmentRepository) findAndSet(ctx context.Context, filter bson.M, set bson.M) (*models.Appointment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var appt models.Appointment
	if err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&appt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}
	return &appt, nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
