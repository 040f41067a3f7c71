// Package worker runs the long-lived simulation and training loops. Each
// loop owns its state exclusively; other goroutines talk to it by sending
// commands and reading snapshots.
package worker

import (
	"time"

	"github.com/pthm-cable/smarticles/neural"
	"github.com/pthm-cable/smarticles/sim"
	"github.com/pthm-cable/smarticles/telemetry"
	"github.com/pthm-cable/smarticles/training"
)

// Command is a request sent to a worker. Workers ignore commands that are
// not addressed to them.
type Command interface {
	command()
}

type (
	// Spawn scatters the particles of the current class counts.
	Spawn struct{}
	// Start resumes ticking.
	Start struct{}
	// Pause stops ticking.
	Pause struct{}
	// Reset moves every particle to the origin.
	Reset struct{}
	// SetInteractionMatrix replaces the interaction matrix.
	SetInteractionMatrix struct{ Matrix *sim.Matrix }
	// SetClassCounts changes the active particle count of every class.
	SetClassCounts struct{ Counts []int }
	// EnableClass lets a class take part in the simulation again.
	EnableClass struct{ Class int }
	// DisableClass freezes a class.
	DisableClass struct{ Class int }
	// SetInferenceNetwork sets the network driving the live matrix.
	SetInferenceNetwork struct{ Network *neural.Network }
	// StartNetwork lets the inference network act.
	StartNetwork struct{}
	// StopNetwork stops the inference network from acting.
	StopNetwork struct{}
	// SetTargetAngle sets the direction the network is asked to move toward.
	SetTargetAngle struct{ Angle float64 }
	// StartTraining trains for the given number of generations.
	StartTraining struct{ Generations int }
	// StopTraining stops after the current generation.
	StopTraining struct{}
	// EvaluateOnce scores the current batch without evolving it.
	EvaluateOnce struct{}
	// Exit stops the worker.
	Exit struct{}
)

func (Spawn) command()                {}
func (Start) command()                {}
func (Pause) command()                {}
func (Reset) command()                {}
func (SetInteractionMatrix) command() {}
func (SetClassCounts) command()       {}
func (EnableClass) command()          {}
func (DisableClass) command()         {}
func (SetInferenceNetwork) command()  {}
func (StartNetwork) command()         {}
func (StopNetwork) command()          {}
func (SetTargetAngle) command()       {}
func (StartTraining) command()        {}
func (StopTraining) command()         {}
func (EvaluateOnce) command()         {}
func (Exit) command()                 {}

// SimSnapshot is the state of the live simulation after a tick.
type SimSnapshot struct {
	Tick         uint64
	Positions    [][]sim.Vec2 // per class
	Matrix       *sim.Matrix
	Counts       []int
	Enabled      []bool
	Centroid     sim.Vec2
	TickDuration time.Duration

	Running       bool
	NetworkActive bool
	TargetAngle   float64
}

// TrainingSnapshot is the state of the training loop after a generation or
// an evaluation.
type TrainingSnapshot struct {
	// Generation is the current batch generation.
	Generation uint64
	Training   bool
	Remaining  int
	// Ranked holds the scored networks, best first. Empty until the first
	// generation or evaluation completes.
	Ranked []training.ScoredNetwork
	Stats  telemetry.GenerationStats
}

// publish sends v without blocking. When the consumer has not taken the
// previous value yet, v replaces it.
func publish[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
