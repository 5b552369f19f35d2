package mongodb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mrops-br/product-store-api/internal/domain"
	"github.com/mrops-br/product-store-api/internal/infrastructure/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel/trace"
)

// Store owns the MongoDB client shared by the process
type Store struct {
	client   *mongo.Client
	products *ProductCollection
	logger   *slog.Logger
}

// Connect opens a client for cfg and pings the primary
func Connect(ctx context.Context, cfg *config.MongoConfig, tracer trace.Tracer, logger *slog.Logger) (*Store, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		opts.SetTimeout(cfg.Timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logger.InfoContext(ctx, "Connected to MongoDB",
		slog.String("database", cfg.Database),
		slog.String("collection", cfg.Collection),
	)

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	return &Store{
		client:   client,
		products: NewProductCollection(coll, tracer, logger),
		logger:   logger,
	}, nil
}

// Products returns the products collection gateway
func (s *Store) Products() *ProductCollection {
	return s.products
}

// EnsureIndexes creates the unique index on the product id
func (s *Store) EnsureIndexes(ctx context.Context) error {
	name, err := s.products.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: domain.FieldID, Value: 1}},
		Options: options.Index().SetUnique(true).SetName("product_id_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create product id index: %w", err)
	}

	s.logger.InfoContext(ctx, "Product indexes ensured", slog.String("index", name))
	return nil
}

// Ping checks that the primary is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Disconnect closes the client
func (s *Store) Disconnect(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
