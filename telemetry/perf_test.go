package telemetry

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/pthm-cable/smarticles/sim"
)

// tick records one tick that spends each duration in the matching phase.
func tick(pc *PerfCollector, spans map[string]time.Duration) time.Duration {
	pc.StartTick()
	for _, phase := range phases {
		d, ok := spans[phase]
		if !ok {
			continue
		}
		pc.StartPhase(phase)
		time.Sleep(d)
	}
	return pc.EndTick()
}

func TestPerfCollectorEmpty(t *testing.T) {
	stats := NewPerfCollector(10).Stats()
	if stats.Ticks != 0 || stats.Avg != 0 || stats.TicksPerSecond != 0 {
		t.Errorf("empty stats = %+v, want zero", stats)
	}
	if got := stats.PhaseShare(PhaseForces); got != 0 {
		t.Errorf("forces share = %v, want 0", got)
	}
}

func TestPerfCollectorPhases(t *testing.T) {
	pc := NewPerfCollector(10)
	for i := 0; i < 3; i++ {
		d := tick(pc, map[string]time.Duration{
			PhaseIndex:  100 * time.Microsecond,
			PhaseForces: 2 * time.Millisecond,
		})
		if d <= 0 {
			t.Fatalf("tick %d duration = %v, want positive", i, d)
		}
	}

	stats := pc.Stats()
	if stats.Ticks != 3 {
		t.Errorf("ticks = %d, want 3", stats.Ticks)
	}
	if stats.Min > stats.Avg || stats.Avg > stats.Max {
		t.Errorf("min %v, avg %v, max %v out of order", stats.Min, stats.Avg, stats.Max)
	}
	if stats.Phases[phaseSlot(PhaseForces)] < 2*time.Millisecond {
		t.Errorf("forces avg = %v, want at least 2ms", stats.Phases[phaseSlot(PhaseForces)])
	}
	if stats.PhaseShare(PhaseForces) <= stats.PhaseShare(PhaseIndex) {
		t.Errorf("forces share %v should exceed index share %v",
			stats.PhaseShare(PhaseForces), stats.PhaseShare(PhaseIndex))
	}
	if stats.PhaseShare(PhaseCommit) != 0 {
		t.Errorf("commit share = %v, want 0 for an unused phase", stats.PhaseShare(PhaseCommit))
	}

	var sum float64
	for _, phase := range phases {
		sum += stats.PhaseShare(phase)
	}
	if sum > 100+1e-9 {
		t.Errorf("phase shares sum to %v%%", sum)
	}
}

func TestPerfCollectorUnknownPhaseIgnored(t *testing.T) {
	pc := NewPerfCollector(4)
	pc.StartTick()
	pc.StartPhase("render")
	time.Sleep(time.Millisecond)
	pc.EndTick()

	stats := pc.Stats()
	for i, d := range stats.Phases {
		if d != 0 {
			t.Errorf("phase %s = %v, want 0", phases[i], d)
		}
	}
	if stats.PhaseShare("render") != 0 {
		t.Error("unknown phase should have no share")
	}
}

func TestPerfCollectorWindowKeepsRecent(t *testing.T) {
	pc := NewPerfCollector(2)
	tick(pc, map[string]time.Duration{PhaseForces: 5 * time.Millisecond})
	for i := 0; i < 2; i++ {
		tick(pc, map[string]time.Duration{PhaseIndex: 0})
	}

	stats := pc.Stats()
	if stats.Ticks != 2 {
		t.Errorf("ticks = %d, want window size 2", stats.Ticks)
	}
	// The slow tick has left the window
	if stats.Phases[phaseSlot(PhaseForces)] != 0 {
		t.Errorf("forces avg = %v, want 0 after eviction", stats.Phases[phaseSlot(PhaseForces)])
	}
	if stats.Max >= 5*time.Millisecond {
		t.Errorf("max = %v, slow tick should be evicted", stats.Max)
	}
}

func TestPerfStatsLogValue(t *testing.T) {
	stats := PerfStats{Ticks: 1, Avg: 100 * time.Microsecond, Max: 100 * time.Microsecond, TicksPerSecond: 10000}
	stats.Phases[phaseSlot(PhaseForces)] = 25 * time.Microsecond

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("perf", "stats", stats)

	var rec struct {
		Stats map[string]float64 `json:"stats"`
	}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decoding log line %q: %v", buf.String(), err)
	}
	if got := rec.Stats["forces_pct"]; math.Abs(got-25) > 1e-9 {
		t.Errorf("forces_pct = %v, want 25", got)
	}
	if got := rec.Stats["avg_tick_us"]; got != 100 {
		t.Errorf("avg_tick_us = %v, want 100", got)
	}
	if _, ok := rec.Stats["inference_pct"]; !ok {
		t.Error("inference_pct missing")
	}
}

func TestPerfCollectorSimulationPhases(t *testing.T) {
	params := sim.DefaultParams()
	params.Classes = 2
	params.MaxPerClass = 16

	s := sim.New(params, rand.New(rand.NewPCG(1, 2)))
	defer s.Close()
	s.SetClassCounts([]int{16, 16})
	s.Spawn()

	pc := NewPerfCollector(10)
	s.SetPhaseRecorder(pc)
	for i := 0; i < 3; i++ {
		pc.StartTick()
		s.Tick()
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.Phases[phaseSlot(PhaseForces)] <= 0 {
		t.Error("forces phase not recorded")
	}

	row := stats.ToCSV(s.TickCount())
	if row.Tick != 3 {
		t.Errorf("csv tick = %d, want 3", row.Tick)
	}
	if row.ForcesPct <= 0 || row.InferencePct != 0 {
		t.Errorf("csv shares forces=%v inference=%v", row.ForcesPct, row.InferencePct)
	}
}
