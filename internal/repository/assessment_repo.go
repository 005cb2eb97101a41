package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"traflow/internal/model"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

type AssessmentRepository interface {
	Create(ctx context.Context, a *model.Assessment) error
	GetByID(ctx context.Context, id string) (*model.Assessment, error)
	// Update applies a partial $set and returns the updated document, so a
	// write followed by a read within the same turn observes the write.
	Update(ctx context.Context, id string, fields map[string]interface{}) (*model.Assessment, error)
	List(ctx context.Context, filter AssessmentFilter) ([]*model.Assessment, error)
}

// AssessmentFilter narrows List results
type AssessmentFilter struct {
	SessionID string
	State     model.AssessmentState
}

type assessmentRepository struct {
	collection *mongo.Collection
}

func NewAssessmentRepo(db *mongo.Database) AssessmentRepository {
	return &assessmentRepository{collection: db.Collection("assessments")}
}

func (r *assessmentRepository) Create(ctx context.Context, a *model.Assessment) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.AnswersByRiskArea == nil {
		a.AnswersByRiskArea = make(map[string]model.AnswerSet)
	}
	_, err := r.collection.InsertOne(ctx, a)
	return err
}

func (r *assessmentRepository) GetByID(ctx context.Context, id string) (*model.Assessment, error) {
	var a model.Assessment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *assessmentRepository) Update(ctx context.Context, id string, fields map[string]interface{}) (*model.Assessment, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated model.Assessment
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (r *assessmentRepository) List(ctx context.Context, filter AssessmentFilter) ([]*model.Assessment, error) {
	query := bson.M{}
	if filter.SessionID != "" {
		query["sessionId"] = filter.SessionID
	}
	if filter.State != "" {
		query["currentState"] = filter.State
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var assessments []*model.Assessment
	if err = cursor.All(ctx, &assessments); err != nil {
		return nil, err
	}
	return assessments, nil
}
