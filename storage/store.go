// Package storage persists training batches, keyed by run and generation.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/pthm-cable/smarticles/config"
	"github.com/pthm-cable/smarticles/training"
)

// Store saves and loads batches. Lookups that find nothing return
// (nil, false, nil).
type Store interface {
	Save(ctx context.Context, runID string, b *training.Batch) error
	Load(ctx context.Context, runID string, generation uint64) (*training.Batch, bool, error)
	Latest(ctx context.Context, runID string) (*training.Batch, bool, error)
	Close() error
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Open creates the store selected by cfg.Storage.Driver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.Storage.Dir), nil
	case "sqlite":
		path := cfg.Storage.SQLitePath
		if !filepath.IsAbs(path) && cfg.Storage.Dir != "" {
			path = filepath.Join(cfg.Storage.Dir, path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
		s := NewSQLiteStore(path)
		if err := s.Init(ctx); err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Storage.Driver)
	}
}
