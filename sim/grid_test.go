package sim

import (
	"math/rand/v2"
	"testing"
)

func TestGridCellOfFloors(t *testing.T) {
	g := NewGrid(10, 30)

	tests := []struct {
		p    Vec2
		want Cell
	}{
		{Vec2{X: 0, Y: 0}, Cell{X: 0, Y: 0}},
		{Vec2{X: 9.99, Y: 10}, Cell{X: 0, Y: 1}},
		{Vec2{X: -0.5, Y: 15}, Cell{X: -1, Y: 1}},
		{Vec2{X: -10, Y: -10.01}, Cell{X: -1, Y: -2}},
	}
	for _, tt := range tests {
		if got := g.CellOf(tt.p); got != tt.want {
			t.Errorf("CellOf(%+v) = %+v, want %+v", tt.p, got, tt.want)
		}
	}
}

func TestGridRadiusCoversRange(t *testing.T) {
	tests := []struct {
		cellSize, rng float64
		want          int
	}{
		{32, 30, 1},
		{30, 30, 1},
		{10, 30, 3},
		{12, 30, 3},
		{100, 30, 1},
	}
	for _, tt := range tests {
		if got := NewGrid(tt.cellSize, tt.rng).Radius(); got != tt.want {
			t.Errorf("NewGrid(%v, %v).Radius() = %d, want %d", tt.cellSize, tt.rng, got, tt.want)
		}
	}
}

func randomEntries(rng *rand.Rand, n int) []Entry {
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{
			ID:  ParticleID{Class: int32(i % 3), Slot: int32(i)},
			Pos: Vec2{X: rng.Float64()*200 - 100, Y: rng.Float64()*200 - 100},
		}
	}
	return entries
}

func TestGridQueryMatchesBruteForce(t *testing.T) {
	const reach = 30.0

	for _, cellSize := range []float64{32, 10, 7} {
		rng := rand.New(rand.NewPCG(7, uint64(cellSize)))
		entries := randomEntries(rng, 400)

		g := NewGrid(cellSize, reach)
		for _, e := range entries {
			g.Insert(e.ID, e.Pos)
		}

		for _, self := range entries {
			got := make(map[ParticleID]bool)
			for _, e := range g.QueryRangeInto(nil, self.Pos, self.ID) {
				if got[e.ID] {
					t.Fatalf("cell size %v: %v returned twice", cellSize, e.ID)
				}
				got[e.ID] = true
			}

			want := 0
			for _, other := range entries {
				if other.ID == self.ID {
					continue
				}
				within := other.Pos.Sub(self.Pos).LenSq() < reach*reach
				if within {
					want++
				}
				if within != got[other.ID] {
					t.Fatalf("cell size %v: %v near %v: in range %v, returned %v",
						cellSize, other.ID, self.ID, within, got[other.ID])
				}
			}
			if len(got) != want {
				t.Fatalf("cell size %v: got %d neighbors, want %d", cellSize, len(got), want)
			}
		}
	}
}

func TestGridNeighborBlockContainsRange(t *testing.T) {
	const reach = 30.0
	rng := rand.New(rand.NewPCG(11, 12))
	entries := randomEntries(rng, 300)

	// Cell size a third of the range needs a three-cell search radius
	g := NewGrid(reach/3, reach)
	for _, e := range entries {
		g.Insert(e.ID, e.Pos)
	}

	for _, self := range entries {
		block := make(map[ParticleID]bool)
		for _, e := range g.NeighborsInto(nil, g.CellOf(self.Pos)) {
			block[e.ID] = true
		}
		for _, other := range entries {
			if other.Pos.Sub(self.Pos).LenSq() < reach*reach && !block[other.ID] {
				t.Fatalf("%v within range of %v missing from neighbor block", other.ID, self.ID)
			}
		}
	}
}

func TestGridPruneDropsEmptyCells(t *testing.T) {
	g := NewGrid(10, 30)
	a := ParticleID{Class: 0, Slot: 0}

	g.Insert(a, Vec2{X: 5, Y: 5})
	g.Clear()
	g.Insert(a, Vec2{X: 55, Y: 5})
	g.Prune()

	if g.Len() != 1 {
		t.Errorf("Len() = %d, want 1", g.Len())
	}
	if n := len(g.Cell(Cell{X: 0, Y: 0})); n != 0 {
		t.Errorf("stale cell still holds %d entries", n)
	}
	if n := len(g.Cell(Cell{X: 5, Y: 0})); n != 1 {
		t.Errorf("new cell holds %d entries, want 1", n)
	}
}
