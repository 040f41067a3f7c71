package storage

import (
	"bytes"
	"context"
	"sync"

	"github.com/pthm-cable/smarticles/training"
)

// MemoryStore keeps encoded batches in memory. Stored batches are
// independent of the ones passed to Save.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]map[uint64][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]map[uint64][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, runID string, b *training.Batch) error {
	var buf bytes.Buffer
	if err := training.Encode(&buf, b); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		run = make(map[uint64][]byte)
		s.runs[runID] = run
	}
	run[b.Generation] = buf.Bytes()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, runID string, generation uint64) (*training.Batch, bool, error) {
	s.mu.RLock()
	payload, ok := s.runs[runID][generation]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	b, err := training.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *MemoryStore) Latest(ctx context.Context, runID string) (*training.Batch, bool, error) {
	s.mu.RLock()
	var (
		latest uint64
		found  bool
	)
	for g := range s.runs[runID] {
		if !found || g > latest {
			latest, found = g, true
		}
	}
	s.mu.RUnlock()

	if !found {
		return nil, false, nil
	}
	return s.Load(ctx, runID, latest)
}

func (s *MemoryStore) Close() error { return nil }
