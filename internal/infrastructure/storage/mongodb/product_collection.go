package mongodb

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mrops-br/product-store-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ProductCollection implements domain.ProductCollection over a MongoDB collection.
// Driver errors are returned as produced, except mongo.ErrNoDocuments which
// becomes domain.ErrNoDocument.
type ProductCollection struct {
	coll   *mongo.Collection
	tracer trace.Tracer
	logger *slog.Logger
}

// NewProductCollection creates a new MongoDB products collection
func NewProductCollection(coll *mongo.Collection, tracer trace.Tracer, logger *slog.Logger) *ProductCollection {
	return &ProductCollection{
		coll:   coll,
		tracer: tracer,
		logger: logger,
	}
}

func (c *ProductCollection) start(ctx context.Context, op string) (context.Context, trace.Span) {
	ctx, span := c.tracer.Start(ctx, "ProductCollection."+op,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("db.system", "mongodb"),
		attribute.String("db.operation", op),
		attribute.String("db.mongodb.collection", c.coll.Name()),
	)
	return ctx, span
}

func (c *ProductCollection) InsertOne(ctx context.Context, doc *domain.ProductDocument) error {
	ctx, span := c.start(ctx, "InsertOne")
	defer span.End()

	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		c.logger.ErrorContext(ctx, "MongoDB insert failed",
			slog.String("product_id", doc.ID),
			slog.String("error", err.Error()),
		)
		return err
	}

	span.SetStatus(codes.Ok, "Product inserted")
	return nil
}

func (c *ProductCollection) FindOne(ctx context.Context, filter bson.M) (*domain.ProductDocument, error) {
	ctx, span := c.start(ctx, "FindOne")
	defer span.End()

	var doc domain.ProductDocument
	if err := c.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, c.notFoundOr(ctx, span, err)
	}

	span.SetStatus(codes.Ok, "Product found")
	return &doc, nil
}

func (c *ProductCollection) Find(ctx context.Context, filter bson.M) (domain.DocumentCursor, error) {
	ctx, span := c.start(ctx, "Find")
	defer span.End()

	cursor, err := c.coll.Find(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Find failed")
		c.logger.ErrorContext(ctx, "MongoDB find failed", slog.String("error", err.Error()))
		return nil, err
	}

	span.SetStatus(codes.Ok, "Cursor opened")
	return cursor, nil
}

func (c *ProductCollection) FindOneAndUpdate(ctx context.Context, filter bson.M, update bson.M) (*domain.ProductDocument, error) {
	ctx, span := c.start(ctx, "FindOneAndUpdate")
	defer span.End()

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetUpsert(false)

	var doc domain.ProductDocument
	if err := c.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, c.notFoundOr(ctx, span, err)
	}

	span.SetStatus(codes.Ok, "Product updated")
	return &doc, nil
}

func (c *ProductCollection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	ctx, span := c.start(ctx, "DeleteOne")
	defer span.End()

	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		c.logger.ErrorContext(ctx, "MongoDB delete failed", slog.String("error", err.Error()))
		return 0, err
	}

	span.SetAttributes(attribute.Int64("db.deleted_count", res.DeletedCount))
	span.SetStatus(codes.Ok, "Delete acknowledged")
	return res.DeletedCount, nil
}

func (c *ProductCollection) notFoundOr(ctx context.Context, span trace.Span, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		span.SetStatus(codes.Error, "No document matches filter")
		return domain.ErrNoDocument
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "Query failed")
	c.logger.ErrorContext(ctx, "MongoDB query failed", slog.String("error", err.Error()))
	return err
}
