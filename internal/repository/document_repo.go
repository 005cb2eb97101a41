package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"traflow/internal/model"
)

type DocumentRepository interface {
	Create(ctx context.Context, d *model.Document) error
	GetByID(ctx context.Context, id string) (*model.Document, error)
	GetByAssessmentID(ctx context.Context, assessmentID string) ([]*model.Document, error)
	UpdateStatus(ctx context.Context, id string, status model.DocumentStatus, extractedText string, suggestedAreas []string) error
}

type documentRepository struct {
	collection *mongo.Collection
}

func NewDocumentRepo(db *mongo.Database) DocumentRepository {
	return &documentRepository{collection: db.Collection("documents")}
}

func (r *documentRepository) Create(ctx context.Context, d *model.Document) error {
	_, err := r.collection.InsertOne(ctx, d)
	return err
}

func (r *documentRepository) GetByID(ctx context.Context, id string) (*model.Document, error) {
	var d model.Document
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *documentRepository) GetByAssessmentID(ctx context.Context, assessmentID string) ([]*model.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"assessmentId": assessmentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []*model.Document
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepository) UpdateStatus(ctx context.Context, id string, status model.DocumentStatus, extractedText string, suggestedAreas []string) error {
	set := bson.M{"status": status}
	if extractedText != "" {
		set["extractedText"] = extractedText
	}
	if suggestedAreas != nil {
		set["suggestedRiskAreas"] = suggestedAreas
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}
