package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/smarticles/config"
	"github.com/pthm-cable/smarticles/neural"
	"github.com/pthm-cable/smarticles/storage"
	"github.com/pthm-cable/smarticles/telemetry"
	"github.com/pthm-cable/smarticles/training"
	"github.com/pthm-cable/smarticles/ui"
	"github.com/pthm-cable/smarticles/worker"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Train without graphics")
	generations := flag.Int("generations", 100, "Generations to train in headless mode")
	resume := flag.String("resume", "", "Run ID to resume from its latest saved batch")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = time-based)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(rngSeed, rngSeed^0x5851f42d4c957f2d))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, rng, options{
		headless:    *headless,
		generations: *generations,
		resume:      *resume,
		outputDir:   *outputDir,
		seed:        rngSeed,
	}); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	headless    bool
	generations int
	resume      string
	outputDir   string
	seed        uint64
}

func run(ctx context.Context, cfg *config.Config, rng *rand.Rand, opts options) error {
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runID := opts.resume
	if runID == "" {
		runID = storage.NewRunID()
	}

	var outDir string
	if opts.outputDir != "" {
		outDir = filepath.Join(opts.outputDir, runID)
	}
	output, err := telemetry.NewOutputManager(outDir)
	if err != nil {
		return err
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		return err
	}

	batch, err := loadBatch(ctx, cfg, store, runID, opts.resume != "", rng)
	if err != nil {
		return err
	}

	slog.Info("starting",
		"run_id", runID,
		"seed", opts.seed,
		"headless", opts.headless,
		"store", cfg.Storage.Driver,
		"generation", batch.Generation,
		"networks", batch.Len(),
	)

	// Each goroutine gets its own source
	trainRNG := rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))
	trainer := training.NewTrainer(cfg, batch, trainRNG, training.TrainerOptions{
		Saver:  store,
		RunID:  runID,
		Output: output,
	})

	if opts.headless {
		return runHeadless(ctx, trainer, store, runID, opts.generations)
	}
	return runGraphical(ctx, cfg, trainer, output, rng)
}

// loadBatch resumes the latest batch of runID or creates a random one.
func loadBatch(ctx context.Context, cfg *config.Config, store storage.Store, runID string, resume bool, rng *rand.Rand) (*training.Batch, error) {
	topo, err := neural.TopologyFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	if resume {
		b, ok, err := store.Latest(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("loading run %s: %w", runID, err)
		}
		if !ok {
			return nil, fmt.Errorf("run %s has no saved batch", runID)
		}
		for i, n := range b.Networks {
			if !slices.Equal(n.Sizes(), topo.Sizes) {
				return nil, fmt.Errorf("network %d has layer sizes %v, config expects %v", i, n.Sizes(), topo.Sizes)
			}
		}
		slog.Info("resumed batch", "run_id", runID, "generation", b.Generation)
		return b, nil
	}

	return training.NewBatch(rng, cfg.Training.BatchSize, topo), nil
}

// runHeadless trains for n generations and saves the final batch.
func runHeadless(ctx context.Context, trainer *training.Trainer, store storage.Store, runID string, n int) error {
	start := time.Now()
	var best float64
	err := trainer.Run(ctx, n, func(res training.GenerationResult) {
		best = res.Stats.Best
	})

	// Save whatever was reached, even when interrupted
	saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if serr := store.Save(saveCtx, runID, trainer.Batch()); serr != nil {
		slog.Error("failed to save final batch", "error", serr)
	}

	slog.Info("training finished",
		"run_id", runID,
		"generation", humanize.Comma(int64(trainer.Batch().Generation)),
		"last_best", best,
		"elapsed", time.Since(start).Round(time.Second).String(),
	)
	return err
}

// runGraphical opens the viewer and runs both workers until the window closes.
func runGraphical(ctx context.Context, cfg *config.Config, trainer *training.Trainer, output *telemetry.OutputManager, rng *rand.Rand) error {
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Smarticles")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	simRNG := rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))
	simWorker := worker.NewSimulationWorker(cfg, simRNG, output)
	trainWorker := worker.NewTrainingWorker(trainer)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Go(func() { logWorkerExit("simulation", simWorker.Run(ctx)) })
	wg.Go(func() { logWorkerExit("training", trainWorker.Run(ctx)) })

	simWorker.Commands() <- worker.Spawn{}
	simWorker.Commands() <- worker.Start{}

	viewer := ui.NewViewer(cfg, ui.Channels{
		SimCommands:    simWorker.Commands(),
		SimSnapshots:   simWorker.Snapshots(),
		TrainCommands:  trainWorker.Commands(),
		TrainSnapshots: trainWorker.Snapshots(),
	}, rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())))
	viewer.Run(ctx)

	// The training worker finishes its current generation before exiting
	cancel()
	wg.Wait()
	return nil
}

func logWorkerExit(name string, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker stopped", "worker", name, "error", err)
	}
}
