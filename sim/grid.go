package sim

import (
	"fmt"
	"math"
)

// ParticleID identifies a particle by class and slot.
type ParticleID struct {
	Class int32
	Slot  int32
}

// Cell is an integer grid coordinate: floor(position / cellSize).
type Cell struct {
	X, Y int32
}

// Entry is an indexed particle with the position it was indexed at.
type Entry struct {
	ID  ParticleID
	Pos Vec2
}

// Grid is a sparse spatial hash mapping cells to the particles inside them.
// Only occupied cells are kept; Prune drops cells emptied by a rebuild.
type Grid struct {
	cellSize float64
	reach    float64 // interaction range
	rangeSq  float64
	radius   int32 // cells searched in each direction
	cells    map[Cell][]Entry
}

// NewGrid creates a grid whose neighborhood search is wide enough to cover
// interactionRange from any point of a cell: radius = ceil(range / cellSize).
func NewGrid(cellSize, interactionRange float64) *Grid {
	if cellSize <= 0 {
		panic(fmt.Sprintf("sim: cell size must be positive, got %v", cellSize))
	}
	radius := int32(math.Ceil(interactionRange / cellSize))
	if radius < 1 {
		radius = 1
	}
	return &Grid{
		cellSize: cellSize,
		reach:    interactionRange,
		rangeSq:  interactionRange * interactionRange,
		radius:   radius,
		cells:    make(map[Cell][]Entry),
	}
}

// CellSize returns the side length of a cell.
func (g *Grid) CellSize() float64 { return g.cellSize }

// Range returns the interaction range the grid was built for.
func (g *Grid) Range() float64 { return g.reach }

// Radius returns how many cells are searched in each direction.
func (g *Grid) Radius() int { return int(g.radius) }

// CellOf returns the cell containing p.
func (g *Grid) CellOf(p Vec2) Cell {
	return Cell{
		X: int32(math.Floor(p.X / g.cellSize)),
		Y: int32(math.Floor(p.Y / g.cellSize)),
	}
}

// Clear empties every cell, keeping their backing arrays for reuse.
func (g *Grid) Clear() {
	for c, list := range g.cells {
		g.cells[c] = list[:0]
	}
}

// Insert adds a particle at the given position.
func (g *Grid) Insert(id ParticleID, p Vec2) {
	c := g.CellOf(p)
	g.cells[c] = append(g.cells[c], Entry{ID: id, Pos: p})
}

// Prune removes cells that hold no particles.
func (g *Grid) Prune() {
	for c, list := range g.cells {
		if len(list) == 0 {
			delete(g.cells, c)
		}
	}
}

// Len returns the number of occupied cells.
func (g *Grid) Len() int { return len(g.cells) }

// Cell returns the particles indexed in c. The slice must not be modified.
func (g *Grid) Cell(c Cell) []Entry { return g.cells[c] }

// NeighborsInto appends every particle in the (2R+1)x(2R+1) block centered on
// c to dst, in row-major block order, and returns the extended slice.
func (g *Grid) NeighborsInto(dst []Entry, c Cell) []Entry {
	for dy := -g.radius; dy <= g.radius; dy++ {
		for dx := -g.radius; dx <= g.radius; dx++ {
			dst = append(dst, g.cells[Cell{X: c.X + dx, Y: c.Y + dy}]...)
		}
	}
	return dst
}

// QueryRangeInto appends the particles strictly closer than the interaction
// range to p, excluding the particle exclude, and returns the extended slice.
// Reuse dst across calls to avoid allocations.
func (g *Grid) QueryRangeInto(dst []Entry, p Vec2, exclude ParticleID) []Entry {
	center := g.CellOf(p)
	for dy := -g.radius; dy <= g.radius; dy++ {
		for dx := -g.radius; dx <= g.radius; dx++ {
			for _, e := range g.cells[Cell{X: center.X + dx, Y: center.Y + dy}] {
				if e.ID == exclude {
					continue
				}
				if e.Pos.Sub(p).LenSq() < g.rangeSq {
					dst = append(dst, e)
				}
			}
		}
	}
	return dst
}
