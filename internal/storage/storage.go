package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pricescout/internal/config"
	"pricescout/internal/types"
)

// Store is the append-only order-record store. The extraction core only
// ever writes to it; the reads exist for the admin surface (broadcast
// recipient lists and order statistics).
type Store interface {
	// SaveOrder appends one record for the given owner.
	SaveOrder(ctx context.Context, userID string, info types.ProductInfo) error

	// DistinctUsers returns the distinct record owners.
	DistinctUsers(ctx context.Context) ([]string, error)

	// OrdersSince returns records created at or after the given time,
	// newest first.
	OrdersSince(ctx context.Context, since time.Time) ([]types.OrderRecord, error)

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New creates the backend selected by the configuration.
func New(cfg *config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "postgres":
		return NewPostgresStore(cfg.PostgresDSN, logger)
	case "mongodb":
		return NewMongoStore(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
	case "jsonl":
		return NewJSONLStore(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownStore, cfg.Type)
	}
}
