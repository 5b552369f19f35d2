package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mrops-br/product-store-api/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrDuplicateID       = errors.New("duplicate product id")
	ErrUnsupportedFilter = errors.New("unsupported filter")
	ErrUnsupportedUpdate = errors.New("unsupported update")
)

// ProductCollection is an in-memory implementation of domain.ProductCollection.
// Documents are returned in insertion order. Filters support equality on id and
// comparison operators on price; price operands must be Decimal128.
type ProductCollection struct {
	mu       sync.RWMutex
	order    []string
	products map[string]*domain.ProductDocument
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewProductCollection creates a new in-memory products collection
func NewProductCollection(tracer trace.Tracer, logger *slog.Logger) *ProductCollection {
	return &ProductCollection{
		products: make(map[string]*domain.ProductDocument),
		tracer:   tracer,
		logger:   logger,
	}
}

// InsertOne stores a new document. Ids are unique.
func (c *ProductCollection) InsertOne(ctx context.Context, doc *domain.ProductDocument) error {
	ctx, span := c.tracer.Start(ctx, "ProductCollection.InsertOne")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", doc.ID))

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.products[doc.ID]; exists {
		err := fmt.Errorf("%w: %s", ErrDuplicateID, doc.ID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Duplicate product id")
		return err
	}

	stored := *doc
	c.products[doc.ID] = &stored
	c.order = append(c.order, doc.ID)

	c.logger.DebugContext(ctx, "Product inserted in memory",
		slog.String("product_id", doc.ID),
	)

	span.SetStatus(codes.Ok, "Product inserted")
	return nil
}

// FindOne returns the first document matching filter
func (c *ProductCollection) FindOne(ctx context.Context, filter bson.M) (*domain.ProductDocument, error) {
	ctx, span := c.tracer.Start(ctx, "ProductCollection.FindOne")
	defer span.End()

	c.mu.RLock()
	defer c.mu.RUnlock()

	doc, err := c.first(filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Product not found")
		return nil, err
	}

	c.logger.DebugContext(ctx, "Product found in memory",
		slog.String("product_id", doc.ID),
	)

	span.SetStatus(codes.Ok, "Product found")
	found := *doc
	return &found, nil
}

// Find returns a cursor over a snapshot of the matching documents
func (c *ProductCollection) Find(ctx context.Context, filter bson.M) (domain.DocumentCursor, error) {
	ctx, span := c.tracer.Start(ctx, "ProductCollection.Find")
	defer span.End()

	c.mu.RLock()
	defer c.mu.RUnlock()

	docs := make([]domain.ProductDocument, 0, len(c.order))
	for _, id := range c.order {
		doc := c.products[id]
		ok, err := matches(doc, filter)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Invalid filter")
			return nil, err
		}
		if ok {
			docs = append(docs, *doc)
		}
	}

	span.SetAttributes(attribute.Int("product.count", len(docs)))
	c.logger.DebugContext(ctx, "Products matched in memory",
		slog.Int("count", len(docs)),
	)

	span.SetStatus(codes.Ok, "Products matched")
	return &cursor{docs: docs, pos: -1}, nil
}

// FindOneAndUpdate applies a $set update to the first matching document under
// the write lock and returns the document after the update.
func (c *ProductCollection) FindOneAndUpdate(ctx context.Context, filter bson.M, update bson.M) (*domain.ProductDocument, error) {
	ctx, span := c.tracer.Start(ctx, "ProductCollection.FindOneAndUpdate")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.first(filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Product not found")
		return nil, err
	}

	updated := *doc
	if err := applyUpdate(&updated, update); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid update")
		return nil, err
	}
	*doc = updated

	c.logger.DebugContext(ctx, "Product updated in memory",
		slog.String("product_id", doc.ID),
	)

	span.SetStatus(codes.Ok, "Product updated")
	return &updated, nil
}

// DeleteOne removes the first matching document and reports how many were removed
func (c *ProductCollection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	ctx, span := c.tracer.Start(ctx, "ProductCollection.DeleteOne")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.first(filter)
	if errors.Is(err, domain.ErrNoDocument) {
		span.SetStatus(codes.Ok, "Nothing to delete")
		return 0, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid filter")
		return 0, err
	}

	delete(c.products, doc.ID)
	for i, id := range c.order {
		if id == doc.ID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}

	c.logger.DebugContext(ctx, "Product deleted from memory",
		slog.String("product_id", doc.ID),
	)

	span.SetStatus(codes.Ok, "Product deleted")
	return 1, nil
}

// Len returns the number of stored documents
func (c *ProductCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

// Ping always succeeds
func (c *ProductCollection) Ping(context.Context) error {
	return nil
}

// first must be called with the lock held
func (c *ProductCollection) first(filter bson.M) (*domain.ProductDocument, error) {
	for _, id := range c.order {
		doc := c.products[id]
		ok, err := matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			return doc, nil
		}
	}
	return nil, domain.ErrNoDocument
}

func matches(doc *domain.ProductDocument, filter bson.M) (bool, error) {
	for field, cond := range filter {
		switch field {
		case domain.FieldID:
			id, ok := cond.(string)
			if !ok {
				return false, fmt.Errorf("%w: id must be compared to a string, got %T", ErrUnsupportedFilter, cond)
			}
			if doc.ID != id {
				return false, nil
			}
		case domain.FieldPrice:
			ok, err := matchPrice(doc.Price, cond)
			if err != nil || !ok {
				return false, err
			}
		default:
			return false, fmt.Errorf("%w: field %q", ErrUnsupportedFilter, field)
		}
	}
	return true, nil
}

func matchPrice(price primitive.Decimal128, cond any) (bool, error) {
	ops, ok := asMap(cond)
	if !ok {
		return compareDecimal(price, "$eq", cond)
	}
	for op, operand := range ops {
		ok, err := compareDecimal(price, op, operand)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// compareDecimal evaluates "price op operand". An operand that is not a
// Decimal128 never matches.
func compareDecimal(price primitive.Decimal128, op string, operand any) (bool, error) {
	bound, ok := operand.(primitive.Decimal128)
	if !ok {
		return false, nil
	}

	p, err := decimal.NewFromString(price.String())
	if err != nil {
		return false, nil
	}
	b, err := decimal.NewFromString(bound.String())
	if err != nil {
		return false, nil
	}

	cmp := p.Cmp(b)
	switch op {
	case "$eq":
		return cmp == 0, nil
	case "$gte":
		return cmp >= 0, nil
	case "$gt":
		return cmp > 0, nil
	case "$lte":
		return cmp <= 0, nil
	case "$lt":
		return cmp < 0, nil
	default:
		return false, fmt.Errorf("%w: operator %q", ErrUnsupportedFilter, op)
	}
}

func applyUpdate(doc *domain.ProductDocument, update bson.M) error {
	for op, body := range update {
		if op != "$set" {
			return fmt.Errorf("%w: operator %q", ErrUnsupportedUpdate, op)
		}
		set, ok := asMap(body)
		if !ok {
			return fmt.Errorf("%w: $set must be a document, got %T", ErrUnsupportedUpdate, body)
		}
		for field, value := range set {
			if err := setField(doc, field, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func setField(doc *domain.ProductDocument, field string, value any) error {
	wrongType := func() error {
		return fmt.Errorf("%w: %s cannot be set to %T", ErrUnsupportedUpdate, field, value)
	}

	switch field {
	case domain.FieldName:
		v, ok := value.(string)
		if !ok {
			return wrongType()
		}
		doc.Name = v
	case domain.FieldQuantity:
		switch v := value.(type) {
		case int:
			doc.Quantity = v
		case int32:
			doc.Quantity = int(v)
		case int64:
			doc.Quantity = int(v)
		default:
			return wrongType()
		}
	case domain.FieldPrice:
		v, ok := value.(primitive.Decimal128)
		if !ok {
			return wrongType()
		}
		doc.Price = v
	case domain.FieldStatus:
		v, ok := value.(bool)
		if !ok {
			return wrongType()
		}
		doc.Status = v
	case domain.FieldUpdatedAt:
		v, ok := value.(time.Time)
		if !ok {
			return wrongType()
		}
		doc.UpdatedAt = v
	default:
		return fmt.Errorf("%w: field %q cannot be set", ErrUnsupportedUpdate, field)
	}
	return nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]any:
		return m, true
	default:
		return nil, false
	}
}

// cursor iterates over a snapshot taken by Find
type cursor struct {
	docs   []domain.ProductDocument
	pos    int
	err    error
	closed bool
}

func (c *cursor) Next(ctx context.Context) bool {
	if c.closed || c.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if c.pos+1 >= len(c.docs) {
		c.pos = len(c.docs)
		return false
	}
	c.pos++
	return true
}

func (c *cursor) Decode(val any) error {
	if c.pos < 0 || c.pos >= len(c.docs) {
		return errors.New("cursor is not positioned on a document")
	}
	dst, ok := val.(*domain.ProductDocument)
	if !ok {
		return fmt.Errorf("cannot decode product into %T", val)
	}
	*dst = c.docs[c.pos]
	return nil
}

func (c *cursor) Err() error {
	return c.err
}

func (c *cursor) Close(context.Context) error {
	c.closed = true
	return nil
}
