package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrops-br/product-store-api/internal/app/service"
	"github.com/mrops-br/product-store-api/internal/domain"
	"github.com/mrops-br/product-store-api/internal/infrastructure/config"
	"github.com/mrops-br/product-store-api/internal/infrastructure/http"
	"github.com/mrops-br/product-store-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/product-store-api/internal/infrastructure/repository/memory"
	"github.com/mrops-br/product-store-api/internal/infrastructure/storage/mongodb"
	"github.com/mrops-br/product-store-api/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var telem *telemetry.Telemetry
	if cfg.OTLP.Enabled {
		telem, err = telemetry.NewTelemetry(ctx, cfg)
	} else {
		telem, err = telemetry.NewNoOpTelemetry(cfg)
	}
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := telem.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	tracer := telem.TracerProvider.Tracer("products-api")
	meter := telem.MeterProvider.Meter("products-api")
	logger := telem.Logger

	logger.Info("Starting Products API", slog.String("storage_driver", cfg.Storage.Driver))

	products, storage, closeStorage, err := openStorage(ctx, cfg, tracer, logger)
	if err != nil {
		logger.Error("Failed to open storage", slog.String("error", err.Error()))
		return
	}
	defer closeStorage()

	productService := service.NewProductService(products, tracer, meter, logger)
	productHandler := handler.NewProductHandler(productService, logger)
	server := http.NewServer(&cfg.Server, productHandler, storage, logger, telem)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down server...")
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("Server stopped")
}

// openStorage returns the products collection for the configured driver, the
// pinger backing /health and a function releasing the storage client
func openStorage(
	ctx context.Context,
	cfg *config.Config,
	tracer trace.Tracer,
	logger *slog.Logger,
) (domain.ProductCollection, http.Pinger, func(), error) {
	if cfg.Storage.Driver == config.DriverMemory {
		products := memory.NewProductCollection(tracer, logger)
		return products, products, func() {}, nil
	}

	connectCtx, connectCancel := context.WithTimeout(ctx, cfg.Mongo.Timeout)
	defer connectCancel()

	store, err := mongodb.Connect(connectCtx, &cfg.Mongo, tracer, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := store.EnsureIndexes(connectCtx); err != nil {
		_ = store.Disconnect(context.Background())
		return nil, nil, nil, err
	}

	closeStore := func() {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), cfg.Mongo.Timeout)
		defer disconnectCancel()
		if err := store.Disconnect(disconnectCtx); err != nil {
			logger.Error("Failed to disconnect from MongoDB", slog.String("error", err.Error()))
		}
	}

	return store.Products(), store, closeStore, nil
}
