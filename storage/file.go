package storage

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/pthm-cable/smarticles/training"
)

const batchFilePrefix = "batch_gen_"

// FileStore keeps one gzip-compressed file per generation under
// <dir>/<runID>/batch_gen_<N>.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir. Directories are created on
// first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(runID string, generation uint64) string {
	return filepath.Join(s.dir, runID, batchFilePrefix+strconv.FormatUint(generation, 10))
}

// Save writes b atomically, replacing any previous file for the same generation.
func (s *FileStore) Save(_ context.Context, runID string, b *training.Batch) error {
	dir := filepath.Join(s.dir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".batch-*")
	if err != nil {
		return fmt.Errorf("creating batch file: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := gzip.NewWriter(tmp)
	if err := training.Encode(zw, b); err != nil {
		tmp.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("compressing batch: %w", err)
	}
	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		return fmt.Errorf("writing batch file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing batch file: %w", err)
	}

	dst := s.path(runID, b.Generation)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("renaming batch file: %w", err)
	}

	slog.Debug("saved batch", "path", dst, "size", humanize.Bytes(uint64(info.Size())))
	return nil
}

// Load reads the batch of one generation.
func (s *FileStore) Load(_ context.Context, runID string, generation uint64) (*training.Batch, bool, error) {
	f, err := os.Open(s.path(runID, generation))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("opening batch file: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, false, fmt.Errorf("decompressing batch %d: %w", generation, err)
	}
	defer zr.Close()

	b, err := training.Decode(zr)
	if err != nil {
		return nil, false, fmt.Errorf("decode batch %s/%d: %w", runID, generation, err)
	}
	return b, true, nil
}

// Latest loads the highest generation present for runID. Gaps between
// saved generations are fine.
func (s *FileStore) Latest(ctx context.Context, runID string) (*training.Batch, bool, error) {
	gens, err := s.Generations(runID)
	if err != nil {
		return nil, false, err
	}
	if len(gens) == 0 {
		return nil, false, nil
	}
	return s.Load(ctx, runID, gens[len(gens)-1])
}

// Generations lists the saved generations of runID in ascending order.
func (s *FileStore) Generations(runID string) ([]uint64, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, runID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing run directory: %w", err)
	}

	// ReadDir sorts by name, which is not numeric order
	var gens []uint64
	for _, e := range entries {
		rest, ok := strings.CutPrefix(e.Name(), batchFilePrefix)
		if !ok || e.IsDir() {
			continue
		}
		g, err := strconv.ParseUint(rest, 10, 64)
		if err != nil {
			continue
		}
		gens = append(gens, g)
	}
	slices.Sort(gens)
	return gens, nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }
