// Package storage provides the opaque blob store used for uploaded
// documents. The core only needs put/get by key; the backing implementation
// keeps blobs in a Mongo collection.
package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no blob exists under a key
var ErrNotFound = errors.New("object not found")

// ObjectStore is an opaque key/value blob store
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type blobDoc struct {
	Key         string    `bson:"_id"`
	ContentType string    `bson:"contentType,omitempty"`
	Data        []byte    `bson:"data"`
	StoredAt    time.Time `bson:"storedAt"`
}

type mongoObjectStore struct {
	collection *mongo.Collection
}

// NewMongoObjectStore stores blobs in the "blobs" collection
func NewMongoObjectStore(db *mongo.Database) ObjectStore {
	return &mongoObjectStore{collection: db.Collection("blobs")}
}

func (s *mongoObjectStore) Put(ctx context.Context, key string, contentType string, data []byte) error {
	doc := blobDoc{
		Key:         key,
		ContentType: contentType,
		Data:        data,
		StoredAt:    time.Now().UTC(),
	}
	opts := options.Replace().SetUpsert(true)
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts)
	return err
}

func (s *mongoObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	var doc blobDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.Data, nil
}

func (s *mongoObjectStore) Delete(ctx context.Context, key string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": key})
	return err
}
