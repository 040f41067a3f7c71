package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pthm-cable/smarticles/training"
)

// TrainingWorker owns a trainer and its batch.
type TrainingWorker struct {
	trainer   *training.Trainer
	remaining int
	last      training.GenerationResult

	commands  chan Command
	snapshots chan TrainingSnapshot
}

// NewTrainingWorker creates an idle worker around trainer.
func NewTrainingWorker(trainer *training.Trainer) *TrainingWorker {
	return &TrainingWorker{
		trainer:   trainer,
		commands:  make(chan Command, 16),
		snapshots: make(chan TrainingSnapshot, 1),
	}
}

// Commands returns the channel the worker reads commands from.
func (w *TrainingWorker) Commands() chan<- Command { return w.commands }

// Snapshots returns the channel the worker publishes snapshots to.
func (w *TrainingWorker) Snapshots() <-chan TrainingSnapshot { return w.snapshots }

// Run serves commands until Exit is received or ctx is cancelled. While
// training, commands are checked between generations.
func (w *TrainingWorker) Run(ctx context.Context) error {
	for {
		if w.remaining > 0 {
			if exit := w.drain(); exit {
				return nil
			}
			if w.remaining == 0 {
				w.publish()
				continue
			}
			res, err := w.trainer.Step(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				slog.Error("training step failed", "error", err)
				w.remaining = 0
				w.publish()
				continue
			}
			w.last = res
			w.remaining--
			w.publish()
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-w.commands:
			if _, ok := cmd.(Exit); ok {
				return nil
			}
			if err := w.handle(ctx, cmd); err != nil {
				return err
			}
		}
	}
}

// drain handles every pending command without blocking and reports whether
// Exit was seen.
func (w *TrainingWorker) drain() bool {
	for {
		select {
		case cmd := <-w.commands:
			if _, ok := cmd.(Exit); ok {
				return true
			}
			switch c := cmd.(type) {
			case StopTraining:
				w.remaining = 0
			case StartTraining:
				w.remaining = max(c.Generations, 0)
			default:
				// Evaluation waits until training stops
				slog.Debug("training worker busy, ignored command", "command", cmd)
			}
		default:
			return false
		}
	}
}

func (w *TrainingWorker) handle(ctx context.Context, cmd Command) error {
	switch c := cmd.(type) {
	case StartTraining:
		w.remaining = max(c.Generations, 0)
		w.publish()
	case StopTraining:
		w.remaining = 0
	case EvaluateOnce:
		res, err := w.trainer.Evaluate(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			slog.Error("evaluation failed", "error", err)
			return nil
		}
		w.last = res
		slog.Info("evaluation", "stats", res.Stats)
		w.publish()
	default:
		slog.Debug("training worker ignored command", "command", cmd)
	}
	return nil
}

func (w *TrainingWorker) publish() {
	publish(w.snapshots, TrainingSnapshot{
		Generation: w.trainer.Batch().Generation,
		Training:   w.remaining > 0,
		Remaining:  w.remaining,
		Ranked:     w.last.Ranked,
		Stats:      w.last.Stats,
	})
}
