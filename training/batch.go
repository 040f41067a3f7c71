// Package training evolves populations of controller networks: it scores
// each network with a simulation episode, ranks the population and breeds
// the next generation from the ranking.
package training

import (
	"fmt"
	"math/rand/v2"

	"github.com/pthm-cable/smarticles/neural"
)

// Batch is a population of networks plus the number of evolve steps it has
// been through.
type Batch struct {
	Networks   []*neural.Network
	Generation uint64
}

// NewBatch creates a generation-0 batch of size random networks.
func NewBatch(rng *rand.Rand, size int, topo neural.Topology) *Batch {
	if size < 1 {
		panic(fmt.Sprintf("training: batch size must be positive, got %d", size))
	}
	b := &Batch{Networks: make([]*neural.Network, size)}
	for i := range b.Networks {
		b.Networks[i] = topo.New(rng)
	}
	return b
}

// Len returns the number of networks.
func (b *Batch) Len() int { return len(b.Networks) }

// Clone returns a deep copy.
func (b *Batch) Clone() *Batch {
	c := &Batch{Networks: make([]*neural.Network, len(b.Networks)), Generation: b.Generation}
	for i, n := range b.Networks {
		c.Networks[i] = n.Clone()
	}
	return c
}
