package storage

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/smarticles/config"
	"github.com/pthm-cable/smarticles/neural"
	"github.com/pthm-cable/smarticles/training"
)

func testBatch(seed uint64, generation uint64) *training.Batch {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	b := training.NewBatch(rng, 3, neural.Topology{Sizes: []int{5, 4, 4}, Hidden: neural.Tanh, Output: neural.Relu})
	b.Generation = generation
	return b
}

func assertSameBatch(t *testing.T, got, want *training.Batch) {
	t.Helper()
	if got.Generation != want.Generation {
		t.Fatalf("generation = %d, want %d", got.Generation, want.Generation)
	}
	if got.Len() != want.Len() {
		t.Fatalf("networks = %d, want %d", got.Len(), want.Len())
	}
	for i := range want.Networks {
		if !got.Networks[i].Equal(want.Networks[i]) {
			t.Fatalf("network %d differs", i)
		}
	}
}

// exerciseStore checks the behaviour every Store implementation shares.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	run := NewRunID()

	if _, ok, err := s.Latest(ctx, run); err != nil || ok {
		t.Fatalf("Latest on empty run = (%v, %v), want not found", ok, err)
	}
	if _, ok, err := s.Load(ctx, run, 0); err != nil || ok {
		t.Fatalf("Load on empty run = (%v, %v), want not found", ok, err)
	}

	// Out of order with a gap: Latest must still find 12
	b3, b12, b7 := testBatch(1, 3), testBatch(2, 12), testBatch(3, 7)
	for _, b := range []*training.Batch{b3, b12, b7} {
		if err := s.Save(ctx, run, b); err != nil {
			t.Fatalf("Save generation %d: %v", b.Generation, err)
		}
	}

	got, ok, err := s.Load(ctx, run, 7)
	if err != nil || !ok {
		t.Fatalf("Load(7) = (%v, %v)", ok, err)
	}
	assertSameBatch(t, got, b7)

	latest, ok, err := s.Latest(ctx, run)
	if err != nil || !ok {
		t.Fatalf("Latest = (%v, %v)", ok, err)
	}
	assertSameBatch(t, latest, b12)

	// Saving the same generation again replaces it
	replacement := testBatch(9, 12)
	if err := s.Save(ctx, run, replacement); err != nil {
		t.Fatal(err)
	}
	latest, _, err = s.Latest(ctx, run)
	if err != nil {
		t.Fatal(err)
	}
	assertSameBatch(t, latest, replacement)

	// Runs are isolated
	if _, ok, _ := s.Latest(ctx, NewRunID()); ok {
		t.Error("other run should be empty")
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStoreCopiesOnSave(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	b := testBatch(1, 0)
	want := b.Clone()

	if err := s.Save(ctx, "run", b); err != nil {
		t.Fatal(err)
	}
	b.Networks[0].Layers[0].Weights[0] += 1

	got, _, err := s.Load(ctx, "run", 0)
	if err != nil {
		t.Fatal(err)
	}
	assertSameBatch(t, got, want)
}

func TestFileStore(t *testing.T) {
	s := NewFileStore(t.TempDir())
	defer s.Close()
	exerciseStore(t, s)
}

func TestFileStoreLayout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewFileStore(dir)

	for _, g := range []uint64{2, 10, 9} {
		if err := s.Save(ctx, "run", testBatch(g, g)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "run", "batch_gen_10")); err != nil {
		t.Errorf("expected batch_gen_10: %v", err)
	}
	// Unrelated files are ignored
	if err := os.WriteFile(filepath.Join(dir, "run", "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	gens, err := s.Generations("run")
	if err != nil {
		t.Fatal(err)
	}
	want := []uint64{2, 9, 10}
	if len(gens) != len(want) {
		t.Fatalf("generations = %v, want %v", gens, want)
	}
	for i := range want {
		if gens[i] != want[i] {
			t.Fatalf("generations = %v, want %v", gens, want)
		}
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "run"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "run", "batch_gen_1"), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := NewFileStore(dir).Load(ctx, "run", 1); err == nil {
		t.Error("expected error for corrupt file")
	}
}

func TestSQLiteStore(t *testing.T) {
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "batches.db"))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	exerciseStore(t, s)
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "batches.db"))
	if err := s.Save(context.Background(), "run", testBatch(1, 0)); err == nil {
		t.Error("expected error before Init")
	}
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		driver  string
		want    string
		wantErr bool
	}{
		{"memory", "*storage.MemoryStore", false},
		{"file", "*storage.FileStore", false},
		{"sqlite", "*storage.SQLiteStore", false},
		{"s3", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.Driver = tt.driver
			cfg.Storage.Dir = dir

			s, err := Open(context.Background(), cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open error: %v", err)
			}
			defer s.Close()

			if got := typeName(s); got != tt.want {
				t.Errorf("store type = %s, want %s", got, tt.want)
			}
		})
	}
}

func typeName(s Store) string {
	switch s.(type) {
	case *MemoryStore:
		return "*storage.MemoryStore"
	case *FileStore:
		return "*storage.FileStore"
	case *SQLiteStore:
		return "*storage.SQLiteStore"
	}
	return "unknown"
}
