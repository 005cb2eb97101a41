package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"traflow/internal/model"
)

type EventRepository interface {
	Record(ctx context.Context, e *model.Event) error
	GetByAssessmentID(ctx context.Context, assessmentID string) ([]*model.Event, error)
}

type eventRepository struct {
	collection *mongo.Collection
}

func NewEventRepo(db *mongo.Database) EventRepository {
	return &eventRepository{collection: db.Collection("events")}
}

func (r *eventRepository) Record(ctx context.Context, e *model.Event) error {
	if e.ID == "" {
		e.ID = "evt_" + uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, e)
	return err
}

func (r *eventRepository) GetByAssessmentID(ctx context.Context, assessmentID string) ([]*model.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"assessmentId": assessmentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*model.Event
	if err = cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
