package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
	_ "modernc.org/sqlite"

	"github.com/pthm-cable/smarticles/training"
)

// SQLiteStore keeps batches as rows of a single table.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore creates a store backed by the database at path. Call Init
// before use.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Init opens the database and creates the schema.
func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// Save inserts or replaces the row for (runID, b.Generation).
func (s *SQLiteStore) Save(ctx context.Context, runID string, b *training.Batch) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := training.Encode(&buf, b); err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO batches (run_id, generation, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, runID, int64(b.Generation), training.CodecVersion, buf.Bytes())
	if err != nil {
		return fmt.Errorf("save batch %s/%d: %w", runID, b.Generation, err)
	}

	slog.Debug("saved batch", "run", runID, "generation", b.Generation, "size", humanize.Bytes(uint64(buf.Len())))
	return nil
}

// Load reads the batch of one generation.
func (s *SQLiteStore) Load(ctx context.Context, runID string, generation uint64) (*training.Batch, bool, error) {
	return s.queryBatch(ctx, `SELECT payload FROM batches WHERE run_id = ? AND generation = ?`,
		runID, int64(generation))
}

// Latest loads the highest generation saved for runID.
func (s *SQLiteStore) Latest(ctx context.Context, runID string) (*training.Batch, bool, error) {
	return s.queryBatch(ctx, `SELECT payload FROM batches WHERE run_id = ? ORDER BY generation DESC LIMIT 1`,
		runID)
}

func (s *SQLiteStore) queryBatch(ctx context.Context, query string, args ...any) (*training.Batch, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	b, err := training.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("decode batch: %w", err)
	}
	return b, true, nil
}

// Close closes the database. The store may be re-initialized.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS batches (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
	`)
	return err
}
