package worker

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/pthm-cable/smarticles/config"
	"github.com/pthm-cable/smarticles/neural"
	"github.com/pthm-cable/smarticles/sim"
	"github.com/pthm-cable/smarticles/telemetry"
	"github.com/pthm-cable/smarticles/training"
)

// SimulationWorker owns the live simulation.
type SimulationWorker struct {
	sim    *sim.Simulation
	params sim.Params

	updateInterval    time.Duration
	pausedInterval    time.Duration
	inferenceInterval uint64

	running     bool
	network     *neural.Network
	networkOn   bool
	targetAngle float64

	perf       *telemetry.PerfCollector
	perfWindow int
	output     *telemetry.OutputManager

	commands  chan Command
	snapshots chan SimSnapshot
}

// NewSimulationWorker creates a paused worker with the default population
// of cfg. output may be nil.
func NewSimulationWorker(cfg *config.Config, rng *rand.Rand, output *telemetry.OutputManager) *SimulationWorker {
	params := sim.ParamsFromConfig(cfg)
	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)

	s := sim.New(params, rng)
	s.SetPhaseRecorder(perf)

	return &SimulationWorker{
		sim:               s,
		params:            params,
		updateInterval:    cfg.Simulation.UpdateInterval,
		pausedInterval:    cfg.Simulation.PausedUpdateInterval,
		inferenceInterval: uint64(cfg.Training.InferenceInterval),
		perf:              perf,
		perfWindow:        cfg.Telemetry.PerfWindow,
		output:            output,
		commands:          make(chan Command, 64),
		snapshots:         make(chan SimSnapshot, 1),
	}
}

// Commands returns the channel the worker reads commands from.
func (w *SimulationWorker) Commands() chan<- Command { return w.commands }

// Snapshots returns the channel the worker publishes snapshots to.
func (w *SimulationWorker) Snapshots() <-chan SimSnapshot { return w.snapshots }

// Run drives the simulation until Exit is received or ctx is cancelled.
func (w *SimulationWorker) Run(ctx context.Context) error {
	defer w.sim.Close()

	for {
		if w.drain() {
			return nil
		}

		var wait time.Duration
		if w.running {
			start := time.Now()
			w.step()
			wait = w.updateInterval - time.Since(start)
		} else {
			w.publish(0)
			wait = w.pausedInterval
		}

		if wait <= 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// drain handles every pending command and reports whether Exit was seen.
func (w *SimulationWorker) drain() bool {
	for {
		select {
		case cmd := <-w.commands:
			if _, ok := cmd.(Exit); ok {
				return true
			}
			w.handle(cmd)
		default:
			return false
		}
	}
}

func (w *SimulationWorker) handle(cmd Command) {
	switch c := cmd.(type) {
	case Spawn:
		w.sim.Spawn()
	case Start:
		w.running = true
	case Pause:
		w.running = false
	case Reset:
		w.sim.Reset()
	case SetInteractionMatrix:
		if c.Matrix == nil || c.Matrix.Size() != w.params.Classes {
			slog.Warn("rejected interaction matrix", "want_size", w.params.Classes)
			return
		}
		w.sim.SetMatrix(c.Matrix)
	case SetClassCounts:
		if !w.validCounts(c.Counts) {
			slog.Warn("rejected class counts", "counts", c.Counts, "max", w.params.MaxPerClass)
			return
		}
		w.sim.SetClassCounts(c.Counts)
	case EnableClass:
		if w.validClass(c.Class) {
			w.sim.EnableClass(c.Class)
		}
	case DisableClass:
		if w.validClass(c.Class) {
			w.sim.DisableClass(c.Class)
		}
	case SetInferenceNetwork:
		n := w.params.Classes * w.params.Classes
		if c.Network != nil && (c.Network.InputSize() != 1+n || c.Network.OutputSize() != n) {
			slog.Warn("rejected inference network", "sizes", c.Network.Sizes(), "inputs", 1+n, "outputs", n)
			return
		}
		w.network = c.Network
	case StartNetwork:
		w.networkOn = true
	case StopNetwork:
		w.networkOn = false
	case SetTargetAngle:
		w.targetAngle = c.Angle
	default:
		slog.Debug("simulation worker ignored command", "command", cmd)
	}
}

func (w *SimulationWorker) validCounts(counts []int) bool {
	if len(counts) != w.params.Classes {
		return false
	}
	for _, n := range counts {
		if n < 0 || n > w.params.MaxPerClass {
			return false
		}
	}
	return true
}

func (w *SimulationWorker) validClass(c int) bool {
	if c < 0 || c >= w.params.Classes {
		slog.Warn("rejected class index", "class", c)
		return false
	}
	return true
}

// step ticks once, lets the network act on its cadence and publishes.
func (w *SimulationWorker) step() {
	w.perf.StartTick()
	w.sim.Tick()

	if w.networkOn && w.network != nil && w.sim.TickCount()%w.inferenceInterval == 0 {
		w.perf.StartPhase(telemetry.PhaseInference)
		ctrl := training.NetworkController{Network: w.network, MaxPower: w.params.MaxPower}
		if err := ctrl.Act(w.targetAngle, w.sim.Matrix()); err != nil {
			slog.Error("inference failed, stopping network", "error", err)
			w.networkOn = false
		}
	}
	d := w.perf.EndTick()

	if tick := w.sim.TickCount(); w.perfWindow > 0 && tick%uint64(w.perfWindow) == 0 {
		stats := w.perf.Stats()
		slog.Info("perf", "tick", tick, "stats", stats)
		if err := w.output.WritePerf(stats, tick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
	w.publish(d)
}

func (w *SimulationWorker) publish(tickDuration time.Duration) {
	classes := w.sim.Classes()
	snap := SimSnapshot{
		Tick:          w.sim.TickCount(),
		Positions:     make([][]sim.Vec2, classes),
		Matrix:        w.sim.Matrix().Clone(),
		Counts:        w.sim.Counts(),
		Enabled:       make([]bool, classes),
		Centroid:      w.sim.Centroid(),
		TickDuration:  tickDuration,
		Running:       w.running,
		NetworkActive: w.networkOn && w.network != nil,
		TargetAngle:   w.targetAngle,
	}
	for c := 0; c < classes; c++ {
		snap.Positions[c] = w.sim.AppendPositions(nil, c)
		snap.Enabled[c] = w.sim.ClassEnabled(c)
	}
	publish(w.snapshots, snap)
}
