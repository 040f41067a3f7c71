package telemetry

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/smarticles/sim"
)

// Phase names for the simulation tick.
const (
	PhaseForces    = sim.PhaseForces
	PhaseCommit    = sim.PhaseCommit
	PhaseIndex     = sim.PhaseIndex
	PhaseInference = "inference"
)

const numPhases = 4

// phases lists every tracked phase in tick order. Slot i of a sample or of
// PerfStats.Phases belongs to phases[i].
var phases = [numPhases]string{PhaseForces, PhaseCommit, PhaseIndex, PhaseInference}

// noPhase marks time that is not charged to any tracked phase.
const noPhase = -1

func phaseSlot(name string) int {
	for i, p := range phases {
		if p == name {
			return i
		}
	}
	return noPhase
}

// tickSample is the timing of one tick.
type tickSample struct {
	total  time.Duration
	phases [numPhases]time.Duration
}

// PerfCollector times ticks and their phases over a ring of the most recent
// ticks. It satisfies sim.PhaseRecorder. Not safe for concurrent use; the
// simulation worker owns it.
type PerfCollector struct {
	ring   []tickSample
	next   int
	filled int

	cur        tickSample
	tickStart  time.Time
	phaseStart time.Time
	slot       int
}

// NewPerfCollector creates a collector averaging over the last window ticks.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{ring: make([]tickSample, window), slot: noPhase}
}

// StartTick begins timing a tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.cur = tickSample{}
	p.slot = noPhase
}

// StartPhase closes the running phase and opens the named one. Unknown names
// stop charging time to a phase until the next known one starts.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	p.closePhase(now)
	p.phaseStart = now
	p.slot = phaseSlot(phase)
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.slot != noPhase {
		p.cur.phases[p.slot] += now.Sub(p.phaseStart)
	}
}

// EndTick closes the tick, stores it in the ring and returns its duration.
func (p *PerfCollector) EndTick() time.Duration {
	now := time.Now()
	p.closePhase(now)
	p.slot = noPhase
	p.cur.total = now.Sub(p.tickStart)

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	p.filled = min(p.filled+1, len(p.ring))
	return p.cur.total
}

// PerfStats aggregates the ticks currently in the window.
type PerfStats struct {
	Ticks          int
	Avg, Min, Max  time.Duration
	TicksPerSecond float64
	// Phases holds the mean duration of each phase, in tick order.
	Phases [numPhases]time.Duration
}

// Stats summarizes the window. An empty collector returns zero stats.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{Ticks: p.filled}
	if p.filled == 0 {
		return s
	}

	var total time.Duration
	var phaseTotal [numPhases]time.Duration
	for i, t := range p.ring[:p.filled] {
		total += t.total
		if i == 0 || t.total < s.Min {
			s.Min = t.total
		}
		s.Max = max(s.Max, t.total)
		for j, d := range t.phases {
			phaseTotal[j] += d
		}
	}

	n := time.Duration(p.filled)
	s.Avg = total / n
	for j := range phaseTotal {
		s.Phases[j] = phaseTotal[j] / n
	}
	if s.Avg > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.Avg)
	}
	return s
}

// PhaseShare returns the percentage of the average tick spent in phase, or 0
// for an unknown phase or an empty window.
func (s PerfStats) PhaseShare(phase string) float64 {
	slot := phaseSlot(phase)
	if slot == noPhase || s.Avg <= 0 {
		return 0
	}
	return 100 * float64(s.Phases[slot]) / float64(s.Avg)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 4+numPhases)
	attrs = append(attrs,
		slog.Int64("avg_tick_us", s.Avg.Microseconds()),
		slog.Int64("min_tick_us", s.Min.Microseconds()),
		slog.Int64("max_tick_us", s.Max.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	)
	for _, phase := range phases {
		attrs = append(attrs, slog.Float64(phase+"_pct", s.PhaseShare(phase)))
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is the perf.csv row.
type PerfStatsCSV struct {
	Tick         uint64  `csv:"tick"`
	AvgTickUS    int64   `csv:"avg_tick_us"`
	MinTickUS    int64   `csv:"min_tick_us"`
	MaxTickUS    int64   `csv:"max_tick_us"`
	TicksPerSec  float64 `csv:"ticks_per_sec"`
	ForcesPct    float64 `csv:"forces_pct"`
	CommitPct    float64 `csv:"commit_pct"`
	IndexPct     float64 `csv:"index_pct"`
	InferencePct float64 `csv:"inference_pct"`
}

// ToCSV flattens s into a row stamped with tick.
func (s PerfStats) ToCSV(tick uint64) PerfStatsCSV {
	return PerfStatsCSV{
		Tick:         tick,
		AvgTickUS:    s.Avg.Microseconds(),
		MinTickUS:    s.Min.Microseconds(),
		MaxTickUS:    s.Max.Microseconds(),
		TicksPerSec:  s.TicksPerSecond,
		ForcesPct:    s.PhaseShare(PhaseForces),
		CommitPct:    s.PhaseShare(PhaseCommit),
		IndexPct:     s.PhaseShare(PhaseIndex),
		InferencePct: s.PhaseShare(PhaseInference),
	}
}
