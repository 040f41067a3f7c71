package training

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/pthm-cable/smarticles/config"
	"github.com/pthm-cable/smarticles/telemetry"
)

// Saver persists batches. storage.Store satisfies it.
type Saver interface {
	Save(ctx context.Context, runID string, b *Batch) error
}

// GenerationResult is the outcome of evaluating one generation.
type GenerationResult struct {
	// Generation is the generation that was scored, before evolving.
	Generation uint64
	Ranking    []Ranked
	// Ranked holds copies of the scored networks, best first.
	Ranked []ScoredNetwork
	Data   []EvaluationData
	Stats  telemetry.GenerationStats
}

// Best returns the best scored network, or false for an empty result.
func (r GenerationResult) Best() (ScoredNetwork, bool) {
	if len(r.Ranked) == 0 {
		return ScoredNetwork{}, false
	}
	return r.Ranked[0], true
}

// Trainer runs the evaluate, rank, evolve loop over one batch.
type Trainer struct {
	batch     *Batch
	evaluator *Evaluator
	opts      EvolveOptions
	rng       *rand.Rand

	saver     Saver
	runID     string
	saveEvery int

	output   *telemetry.OutputManager
	logEvery int
}

// TrainerOptions configures the optional collaborators of a Trainer.
type TrainerOptions struct {
	Saver  Saver
	RunID  string
	Output *telemetry.OutputManager
}

// NewTrainer creates a trainer that owns batch.
func NewTrainer(cfg *config.Config, batch *Batch, rng *rand.Rand, opts TrainerOptions) *Trainer {
	return &Trainer{
		batch:     batch,
		evaluator: NewEvaluator(cfg),
		opts:      EvolveOptionsFromConfig(cfg),
		rng:       rng,
		saver:     opts.Saver,
		runID:     opts.RunID,
		saveEvery: cfg.Training.SaveEvery,
		output:    opts.Output,
		logEvery:  cfg.Telemetry.LogEvery,
	}
}

// Batch returns the batch being trained.
func (t *Trainer) Batch() *Batch { return t.batch }

// SetBatch replaces the batch being trained.
func (t *Trainer) SetBatch(b *Batch) { t.batch = b }

// Evaluator returns the episode evaluator.
func (t *Trainer) Evaluator() *Evaluator { return t.evaluator }

// Evaluate scores the current batch without evolving it.
func (t *Trainer) Evaluate(ctx context.Context) (GenerationResult, error) {
	start := time.Now()
	scores, data, err := t.evaluator.EvaluateAll(ctx, t.batch.Networks, t.rng.Uint64())
	if err != nil {
		return GenerationResult{}, err
	}

	ranking := Rank(scores)
	res := GenerationResult{
		Generation: t.batch.Generation,
		Ranking:    ranking,
		Ranked:     Capture(t.batch, ranking),
		Data:       data,
		Stats:      telemetry.ComputeGenerationStats(t.batch.Generation, scores),
	}
	res.Stats = res.Stats.WithDurations(time.Since(start), 0)
	return res, nil
}

// Step evaluates, ranks and evolves one generation. The ranked networks in
// the result are captured before evolving.
func (t *Trainer) Step(ctx context.Context) (GenerationResult, error) {
	res, err := t.Evaluate(ctx)
	if err != nil {
		return GenerationResult{}, err
	}

	start := time.Now()
	Evolve(t.rng, t.batch, res.Ranking, t.opts)
	res.Stats = res.Stats.WithDurations(res.Stats.EvalDuration, time.Since(start))

	if t.saver != nil && t.saveEvery > 0 && t.batch.Generation%uint64(t.saveEvery) == 0 {
		if err := t.saver.Save(ctx, t.runID, t.batch); err != nil {
			slog.Error("failed to save batch", "generation", t.batch.Generation, "error", err)
		}
	}

	if err := t.output.WriteGeneration(res.Stats); err != nil {
		slog.Error("failed to write generation stats", "error", err)
	}
	if t.logEvery > 0 && res.Generation%uint64(t.logEvery) == 0 && len(res.Ranking) > 0 {
		slog.Info("generation", "stats", res.Stats, "best", res.Data[res.Ranking[0].Index])
	}
	return res, nil
}

// Run trains for n generations, calling report after each one. It returns
// early with the context error when ctx is cancelled between generations.
func (t *Trainer) Run(ctx context.Context, n int, report func(GenerationResult)) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := t.Step(ctx)
		if err != nil {
			return fmt.Errorf("generation %d: %w", t.batch.Generation, err)
		}
		if report != nil {
			report(res)
		}
	}
	return nil
}
