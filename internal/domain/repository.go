package domain

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	// ErrNoDocument is returned by a ProductCollection when no document matches a filter
	ErrNoDocument = errors.New("no document matches filter")
)

// DocumentCursor iterates over the result of ProductCollection.Find.
// *mongo.Cursor satisfies it.
type DocumentCursor interface {
	Next(ctx context.Context) bool
	Decode(val any) error
	Err() error
	Close(ctx context.Context) error
}

// ProductCollection defines the contract for the products collection.
// Filters and updates are field-to-value/operator mappings; single document
// operations always key on FieldID.
type ProductCollection interface {
	InsertOne(ctx context.Context, doc *ProductDocument) error
	FindOne(ctx context.Context, filter bson.M) (*ProductDocument, error)
	Find(ctx context.Context, filter bson.M) (DocumentCursor, error)
	// FindOneAndUpdate applies update atomically and returns the document
	// after the update. It never inserts.
	FindOneAndUpdate(ctx context.Context, filter bson.M, update bson.M) (*ProductDocument, error)
	DeleteOne(ctx context.Context, filter bson.M) (int64, error)
}
