package sim

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Phase names reported to a PhaseRecorder during Tick.
const (
	PhaseForces = "forces"
	PhaseCommit = "commit"
	PhaseIndex  = "index"
)

// PhaseRecorder receives phase boundaries while a tick runs.
type PhaseRecorder interface {
	StartPhase(phase string)
}

// Simulation owns the particle state of one world. Particles live in dense
// class-major arrays indexed by class*MaxPerClass + slot; slots at or above a
// class's active count are inert. A Simulation must be driven by a single
// goroutine; Tick parallelizes internally.
type Simulation struct {
	params  Params
	counts  []int
	enabled []bool
	matrix  *Matrix

	pos  []Vec2
	prev []Vec2
	next []Vec2 // write buffer for the compute phase

	active []int32 // dense indices of particles that tick, ascending
	grid   *Grid
	dirty  bool

	rng   *rand.Rand
	ticks uint64
	perf  PhaseRecorder

	parallel *parallelState
}

// New creates an empty simulation: every class enabled, zero counts, zero matrix.
func New(params Params, rng *rand.Rand) *Simulation {
	if params.Classes < 1 {
		panic(fmt.Sprintf("sim: class count must be positive, got %d", params.Classes))
	}
	if params.MaxPerClass < 1 {
		panic(fmt.Sprintf("sim: max particles per class must be positive, got %d", params.MaxPerClass))
	}
	if params.DT <= 0 {
		panic(fmt.Sprintf("sim: dt must be positive, got %v", params.DT))
	}

	n := params.Classes * params.MaxPerClass
	enabled := make([]bool, params.Classes)
	for i := range enabled {
		enabled[i] = true
	}

	return &Simulation{
		params:   params,
		counts:   make([]int, params.Classes),
		enabled:  enabled,
		matrix:   NewMatrix(params.Classes),
		pos:      make([]Vec2, n),
		prev:     make([]Vec2, n),
		next:     make([]Vec2, n),
		grid:     NewGrid(params.cellSize(), params.Range()),
		rng:      rng,
		parallel: newParallelState(),
	}
}

// Params returns the construction parameters.
func (s *Simulation) Params() Params { return s.params }

// Classes returns the number of particle classes.
func (s *Simulation) Classes() int { return s.params.Classes }

// TickCount returns the number of ticks since creation or the last Reset.
func (s *Simulation) TickCount() uint64 { return s.ticks }

// SetPhaseRecorder installs a recorder for tick phase timings (nil disables).
func (s *Simulation) SetPhaseRecorder(r PhaseRecorder) { s.perf = r }

func (s *Simulation) phase(name string) {
	if s.perf != nil {
		s.perf.StartPhase(name)
	}
}

func (s *Simulation) checkClass(c int) {
	if c < 0 || c >= s.params.Classes {
		panic(fmt.Sprintf("sim: class %d out of range [0, %d)", c, s.params.Classes))
	}
}

func (s *Simulation) index(id ParticleID) int {
	c := int(id.Class)
	s.checkClass(c)
	if id.Slot < 0 || int(id.Slot) >= s.params.MaxPerClass {
		panic(fmt.Sprintf("sim: slot %d out of range [0, %d)", id.Slot, s.params.MaxPerClass))
	}
	return c*s.params.MaxPerClass + int(id.Slot)
}

// Counts returns a copy of the active particle count of every class.
func (s *Simulation) Counts() []int {
	out := make([]int, len(s.counts))
	copy(out, s.counts)
	return out
}

// Count returns the active particle count of class c.
func (s *Simulation) Count(c int) int {
	s.checkClass(c)
	return s.counts[c]
}

// Total returns the number of active particles across all classes.
func (s *Simulation) Total() int {
	total := 0
	for _, n := range s.counts {
		total += n
	}
	return total
}

// SetClassCounts sets the active count of every class. It panics if the
// slice length differs from the class count or a count is outside
// [0, MaxPerClass]. Newly activated slots keep their stored positions.
func (s *Simulation) SetClassCounts(counts []int) {
	if len(counts) != s.params.Classes {
		panic(fmt.Sprintf("sim: got %d class counts, want %d", len(counts), s.params.Classes))
	}
	for c, n := range counts {
		if n < 0 || n > s.params.MaxPerClass {
			panic(fmt.Sprintf("sim: class %d count %d outside [0, %d]", c, n, s.params.MaxPerClass))
		}
	}
	copy(s.counts, counts)
	s.Organize()
}

// Matrix returns the live interaction matrix. It may be mutated between ticks.
func (s *Simulation) Matrix() *Matrix { return s.matrix }

// SetMatrix replaces the interaction matrix with a copy of m.
// It panics if m does not match the class count.
func (s *Simulation) SetMatrix(m *Matrix) {
	if m.Size() != s.params.Classes {
		panic(fmt.Sprintf("sim: matrix size %d does not match %d classes", m.Size(), s.params.Classes))
	}
	s.matrix = m.Clone()
}

// EnableClass makes class c tick and interact again.
func (s *Simulation) EnableClass(c int) {
	s.checkClass(c)
	s.enabled[c] = true
	s.Organize()
}

// DisableClass freezes class c: it is not indexed, not moved, and exerts no force.
func (s *Simulation) DisableClass(c int) {
	s.checkClass(c)
	s.enabled[c] = false
	s.Organize()
}

// ClassEnabled reports whether class c takes part in ticks.
func (s *Simulation) ClassEnabled(c int) bool {
	s.checkClass(c)
	return s.enabled[c]
}

// Position returns the current position of a particle.
func (s *Simulation) Position(id ParticleID) Vec2 { return s.pos[s.index(id)] }

// PrevPosition returns the position of a particle before the last tick.
func (s *Simulation) PrevPosition(id ParticleID) Vec2 { return s.prev[s.index(id)] }

// SetPosition places a particle at rest at p.
func (s *Simulation) SetPosition(id ParticleID, p Vec2) {
	s.Place(id, p, p)
}

// Place sets both the current and previous position of a particle, which
// gives it an implicit velocity of pos - prev.
func (s *Simulation) Place(id ParticleID, pos, prev Vec2) {
	i := s.index(id)
	s.pos[i] = pos
	s.prev[i] = prev
	s.dirty = true
}

// AppendPositions appends the current positions of the active particles of
// class c to dst.
func (s *Simulation) AppendPositions(dst []Vec2, c int) []Vec2 {
	s.checkClass(c)
	base := c * s.params.MaxPerClass
	return append(dst, s.pos[base:base+s.counts[c]]...)
}

// Grid returns the neighbor index, rebuilt if positions changed since the last tick.
func (s *Simulation) Grid() *Grid {
	if s.dirty {
		s.Organize()
	}
	return s.grid
}

// Spawn scatters every active particle uniformly over a disc whose radius
// grows with the total particle count, at rest.
func (s *Simulation) Spawn() {
	radius := float64(s.Total()) * s.params.SpawnDensity
	for c, n := range s.counts {
		base := c * s.params.MaxPerClass
		for slot := 0; slot < n; slot++ {
			angle := 2 * math.Pi * s.rng.Float64()
			dist := math.Sqrt(s.rng.Float64()) * radius
			p := Angled(angle).Scale(dist)
			s.pos[base+slot] = p
			s.prev[base+slot] = p
		}
	}
	s.Organize()
}

// Reset moves every particle to the origin at rest and zeroes the tick counter.
func (s *Simulation) Reset() {
	clear(s.pos)
	clear(s.prev)
	s.ticks = 0
	s.Organize()
}

// Organize rebuilds the neighbor index from the current positions of the
// active particles of enabled classes.
func (s *Simulation) Organize() {
	s.grid.Clear()
	s.active = s.active[:0]
	for c := 0; c < s.params.Classes; c++ {
		if !s.enabled[c] {
			continue
		}
		base := c * s.params.MaxPerClass
		for slot := 0; slot < s.counts[c]; slot++ {
			i := base + slot
			s.active = append(s.active, int32(i))
			s.grid.Insert(ParticleID{Class: int32(c), Slot: int32(slot)}, s.pos[i])
		}
	}
	s.grid.Prune()
	s.dirty = false
}

// Tick advances the simulation by one step of Params.DT. Every new position
// is computed from the state at the start of the tick and committed only
// after all of them are known, so the result does not depend on scheduling.
func (s *Simulation) Tick() {
	if s.dirty {
		s.Organize()
	}

	n := len(s.active)
	if n > 0 {
		// Phase A: compute into the write buffer
		s.phase(PhaseForces)
		if n < s.params.ParallelThreshold || s.parallel.numWorkers < 2 {
			s.computeChunk(0, n, &s.parallel.scratches[0])
		} else {
			s.computeParallel(n)
		}

		// Phase B: commit (single-threaded)
		s.phase(PhaseCommit)
		for _, i := range s.active {
			s.prev[i] = s.pos[i]
			s.pos[i] = s.next[i]
		}

		s.phase(PhaseIndex)
		s.Organize()
	}

	s.ticks++
}

// Centroid returns the mean of the per-class centroids of the enabled,
// non-empty classes.
func (s *Simulation) Centroid() Vec2 {
	var sum Vec2
	classes := 0
	for c, n := range s.counts {
		if n == 0 || !s.enabled[c] {
			continue
		}
		base := c * s.params.MaxPerClass
		var cs Vec2
		for slot := 0; slot < n; slot++ {
			cs = cs.Add(s.pos[base+slot])
		}
		sum = sum.Add(cs.Scale(1 / float64(n)))
		classes++
	}
	if classes == 0 {
		return Vec2{}
	}
	return sum.Scale(1 / float64(classes))
}

// Close stops the tick worker goroutines. The simulation may still be
// ticked afterwards; workers restart on demand.
func (s *Simulation) Close() {
	s.parallel.stopWorkers()
}
