package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mrops-br/product-store-api/internal/app/dto"
	"github.com/mrops-br/product-store-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ProductService implements the product use cases on top of a products collection.
// It holds no locks; concurrent writers rely on the collection's atomic
// single-document operations.
type ProductService struct {
	products              domain.ProductCollection
	tracer                trace.Tracer
	logger                *slog.Logger
	now                   func() time.Time
	newID                 func() uuid.UUID
	productCreatedCounter metric.Int64Counter
	productOperations     metric.Int64Counter
}

// Option configures a ProductService
type Option func(*ProductService)

// WithClock replaces the clock used to stamp created_at and updated_at
func WithClock(now func() time.Time) Option {
	return func(s *ProductService) { s.now = now }
}

// WithIDGenerator replaces the product id generator
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(s *ProductService) { s.newID = newID }
}

// NewProductService creates a new product service
func NewProductService(
	products domain.ProductCollection,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
	opts ...Option,
) *ProductService {
	// Initialize metrics
	productCreatedCounter, _ := meter.Int64Counter(
		"products.created.total",
		metric.WithDescription("Total number of products created"),
	)

	productOperations, _ := meter.Int64Counter(
		"products.operations",
		metric.WithDescription("Total number of product operations"),
	)

	s := &ProductService{
		products:              products,
		tracer:                tracer,
		logger:                logger,
		now:                   time.Now,
		newID:                 uuid.New,
		productCreatedCounter: productCreatedCounter,
		productOperations:     productOperations,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates in, stores it as a new product and returns it.
// The result is built from the record just written, not read back.
func (s *ProductService) Create(ctx context.Context, in *dto.ProductIn) (*dto.ProductOut, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Create")
	defer span.End()

	if err := dto.ValidateCreate(in); err != nil {
		return nil, s.fail(ctx, span, "create", "invalid", "Validation failed", err)
	}

	span.SetAttributes(attribute.String("product.name", in.Name))

	doc, err := dto.ToProductDocument(s.newID(), in, s.now())
	if err != nil {
		return nil, s.fail(ctx, span, "create", "invalid", "Validation failed", err)
	}

	span.SetAttributes(attribute.String("product.id", doc.ID))

	if err := s.products.InsertOne(ctx, doc); err != nil {
		return nil, s.fail(ctx, span, "create", "failure", "Failed to store product", err)
	}

	out, err := dto.ToProductOut(doc)
	if err != nil {
		return nil, s.fail(ctx, span, "create", "failure", "Failed to build product", err)
	}

	s.productCreatedCounter.Add(ctx, 1)
	s.record(ctx, "create", "success")

	s.logger.InfoContext(ctx, "Product created successfully",
		slog.String("product_id", doc.ID),
		slog.String("price", out.Price.String()),
	)

	span.SetStatus(codes.Ok, "Product created successfully")
	return out, nil
}

// Get returns the product with the given id.
func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*dto.ProductOut, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Get")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id.String()))

	doc, err := s.products.FindOne(ctx, byID(id.String()))
	if err != nil {
		if errors.Is(err, domain.ErrNoDocument) {
			return nil, s.fail(ctx, span, "read", "not_found", "Product not found",
				domain.NewNotFoundError("get", id.String()))
		}
		return nil, s.fail(ctx, span, "read", "failure", "Failed to find product", err)
	}

	out, err := dto.ToProductOut(doc)
	if err != nil {
		return nil, s.fail(ctx, span, "read", "failure", "Failed to build product", err)
	}

	s.record(ctx, "read", "success")
	s.logger.DebugContext(ctx, "Product retrieved successfully",
		slog.String("product_id", doc.ID),
	)

	span.SetStatus(codes.Ok, "Product retrieved successfully")
	return out, nil
}

// Query streams the products whose price falls inside f.
// The caller must Close the returned iterator.
func (s *ProductService) Query(ctx context.Context, f *dto.ProductFilter) (*ProductIterator, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Query")
	defer span.End()

	if err := dto.ValidateFilter(f); err != nil {
		return nil, s.fail(ctx, span, "query", "invalid", "Validation failed", err)
	}

	filter, err := PriceFilter(f)
	if err != nil {
		return nil, s.fail(ctx, span, "query", "invalid", "Validation failed", err)
	}

	if f != nil {
		if f.MinPrice != nil {
			span.SetAttributes(attribute.String("filter.min_price", f.MinPrice.String()))
		}
		if f.MaxPrice != nil {
			span.SetAttributes(attribute.String("filter.max_price", f.MaxPrice.String()))
		}
	}

	cursor, err := s.products.Find(ctx, filter)
	if err != nil {
		return nil, s.fail(ctx, span, "query", "failure", "Failed to query products", err)
	}

	s.record(ctx, "query", "success")
	s.logger.DebugContext(ctx, "Products query started")

	span.SetStatus(codes.Ok, "Products query started")
	return newProductIterator(cursor), nil
}

// Update applies the supplied fields of u to the product with the given id
// and returns the product as it is after the update. It never creates a product.
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, u *dto.ProductUpdate) (*dto.ProductOut, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Update")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id.String()))

	set, err := dto.ValidateUpdate(u, s.now())
	if err != nil {
		return nil, s.fail(ctx, span, "update", "invalid", "Validation failed", err)
	}

	span.SetAttributes(attribute.Int("update.fields", len(set)))

	doc, err := s.products.FindOneAndUpdate(ctx, byID(id.String()), bson.M{"$set": set})
	if err != nil {
		if errors.Is(err, domain.ErrNoDocument) {
			return nil, s.fail(ctx, span, "update", "not_found", "Product not found",
				domain.NewNotFoundError("update", id.String()))
		}
		return nil, s.fail(ctx, span, "update", "failure", "Failed to update product", err)
	}

	out, err := dto.ToProductOut(doc)
	if err != nil {
		return nil, s.fail(ctx, span, "update", "failure", "Failed to build product", err)
	}

	s.record(ctx, "update", "success")
	s.logger.InfoContext(ctx, "Product updated successfully",
		slog.String("product_id", doc.ID),
	)

	span.SetStatus(codes.Ok, "Product updated successfully")
	return out, nil
}

// Delete removes the product with the given id.
// It fails with a NotFoundError when the product does not exist, and reports
// false without an error if the product vanished between the check and the delete.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id.String()))

	if _, err := s.products.FindOne(ctx, byID(id.String())); err != nil {
		if errors.Is(err, domain.ErrNoDocument) {
			return false, s.fail(ctx, span, "delete", "not_found", "Product not found",
				domain.NewNotFoundError("delete", id.String()))
		}
		return false, s.fail(ctx, span, "delete", "failure", "Failed to find product", err)
	}

	deleted, err := s.products.DeleteOne(ctx, byID(id.String()))
	if err != nil {
		return false, s.fail(ctx, span, "delete", "failure", "Failed to delete product", err)
	}

	if deleted == 0 {
		s.record(ctx, "delete", "vanished")
		s.logger.WarnContext(ctx, "Product disappeared before delete",
			slog.String("product_id", id.String()),
		)
		span.SetStatus(codes.Ok, "Product already gone")
		return false, nil
	}

	s.record(ctx, "delete", "success")
	s.logger.InfoContext(ctx, "Product deleted successfully",
		slog.String("product_id", id.String()),
	)

	span.SetStatus(codes.Ok, "Product deleted successfully")
	return true, nil
}

func (s *ProductService) record(ctx context.Context, operation, result string) {
	s.productOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", result),
		),
	)
}

// fail records err on the span, logs it and counts the failed operation.
// It returns err unchanged.
func (s *ProductService) fail(ctx context.Context, span trace.Span, operation, result, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)

	level := slog.LevelError
	if result == "invalid" || result == "not_found" {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, msg,
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)

	s.record(ctx, operation, result)
	return err
}
