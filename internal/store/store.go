package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/bookshelf/internal/config"
	"github.com/lehigh-university-libraries/bookshelf/internal/identity"
	"github.com/lehigh-university-libraries/bookshelf/internal/models"
)

// ErrUnavailable is returned when the backing database cannot be reached.
var ErrUnavailable = errors.New("book store unavailable")

// BookStore persists book aggregates keyed by identity.
// Lookups return (nil, nil) when the book does not exist.
type BookStore interface {
	GetByIdentity(ctx context.Context, id string) (*models.BookAggregate, error)
	// GetByMetadata derives the identity of meta and looks it up.
	GetByMetadata(ctx context.Context, meta models.Metadata) (*models.BookAggregate, error)
	Exists(ctx context.Context, id string) (bool, error)
	// Upsert replaces the book metadata of id and merges scan by raw page token.
	Upsert(ctx context.Context, id string, meta models.Metadata, scan models.ScanRecord) error
	List(ctx context.Context) ([]*models.BookAggregate, error)
	IsConnected(ctx context.Context) bool
	Close() error
}

// Open returns the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig, hasher *identity.Hasher) (BookStore, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(hasher), nil
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath, hasher)
	case "mongo":
		return OpenMongo(ctx, cfg, hasher)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
