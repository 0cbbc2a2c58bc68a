// Package store persists the pipeline's documents (companies, matches,
// results, review queue, failure audit trail). Every backend replaces whole
// documents atomically so an interrupted run never leaves a half-written
// store behind.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/formd-cli/internal/config"
)

// Document keys.
const (
	KeyCompanies = "companies"
	KeyMatches   = "matches"
	KeyResults   = "results"
	KeyReview    = "review_queue"
	KeyFailures  = "failures"
)

// Backend stores opaque JSON documents by key.
type Backend interface {
	// Get returns the document stored under key, or nil when none exists.
	Get(ctx context.Context, key string) ([]byte, error)
	// PutMany replaces every given document. Either all documents are
	// written or, on error, the previous versions remain readable.
	PutMany(ctx context.Context, docs map[string][]byte) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates and migrates the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Driver {
	case "file", "":
		b, err = NewFileBackend(cfg.Dir)
	case "sqlite":
		b, err = NewSQLite(sqlitePath(cfg.Dir))
	case "postgres":
		b, err = NewPostgres(ctx, cfg.DatabaseURL, cfg.MaxConns)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := b.Migrate(ctx); err != nil {
		b.Close() //nolint:errcheck
		return nil, err
	}
	return b, nil
}
