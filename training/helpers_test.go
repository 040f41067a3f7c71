package training

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/smarticles/config"
	"github.com/pthm-cable/smarticles/neural"
)

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

// testConfig returns a small, fast configuration: 2 classes, 6 networks,
// 5 inference steps per episode.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("simulation:\n  classes: 2\n" +
		"training:\n  batch_size: 6\n  max_ticks: 100\n  inference_interval: 20\n  save_every: 1\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func testTopology(t *testing.T, cfg *config.Config) neural.Topology {
	t.Helper()
	topo, err := neural.TopologyFromConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return topo
}
