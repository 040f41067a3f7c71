package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/smarticles/config"
	"github.com/pthm-cable/smarticles/sim"
	"github.com/pthm-cable/smarticles/training"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// defaultPopulation is the usual CMA-ES population size 4 + floor(3 ln n).
func defaultPopulation(dim int) int {
	if dim < 1 {
		return 4
	}
	return 4 + int(3*math.Log(float64(dim)))
}

// evalSeeds returns the fixed episode seeds every evaluation shares.
func evalSeeds(n int) []uint64 {
	seeds := make([]uint64, n)
	for i := range seeds {
		seeds[i] = uint64(i*1000 + 42)
	}
	return seeds
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxTicks := flag.Int("max-ticks", 0, "Ticks per episode (0 = training.max_ticks)")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if *seeds < 1 {
		log.Fatal("--seeds must be at least 1")
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Cfg()
	if *maxTicks > 0 {
		if *maxTicks < cfg.Training.InferenceInterval {
			log.Fatalf("-max-ticks %d is shorter than the inference interval %d", *maxTicks, cfg.Training.InferenceInterval)
		}
		cfg.Training.MaxTicks = *maxTicks
	}
	if err := cfg.WriteYAML(filepath.Join(*outputDir, "config.yaml")); err != nil {
		log.Fatalf("failed to write config: %v", err)
	}

	space := MatrixSpace{Classes: cfg.Simulation.Classes, MaxPower: int8(cfg.Physics.MaxPower)}
	evaluator := NewFitnessEvaluator(space, training.NewEvaluator(cfg), evalSeeds(*seeds))

	// Start from the zero matrix, the centre of the space
	dim := space.Dim()
	initX := space.Normalize(sim.NewMatrix(space.Classes))

	popSize := *population
	if popSize == 0 {
		popSize = defaultPopulation(dim)
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Seeds already run in parallel
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	logPath := filepath.Join(*outputDir, "optimize_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	logWriter := csv.NewWriter(logFile)
	defer logWriter.Flush()

	header := []string{"eval", "fitness", "projection", "max_distance", "mean_distance"}
	for k := 0; k < dim; k++ {
		header = append(header, space.Name(k))
	}
	logWriter.Write(header)

	evalCount := 0
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			fitness := evaluator.Evaluate(x)
			evalCount++

			data := evaluator.LastData()
			m := space.Denormalize(x)
			row := []string{
				strconv.Itoa(evalCount),
				fmt.Sprintf("%.6f", fitness),
				fmt.Sprintf("%.6f", data.MovementProjection),
				fmt.Sprintf("%.6f", data.MaxDistance),
				fmt.Sprintf("%.6f", data.MeanDistance),
			}
			for _, v := range m.Values() {
				row = append(row, strconv.Itoa(int(v)))
			}
			logWriter.Write(row)
			logWriter.Flush()

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(*maxEvals-evalCount) * avgPerEval
			_, best := evaluator.BestMatrix()

			fmt.Printf("Eval %d/%d: score=%.4g projection=%.3f (best=%.4g) | elapsed: %s, ETA: %s\n",
				evalCount, *maxEvals, -fitness, data.MovementProjection, -best,
				formatDuration(elapsed), formatDuration(remaining))

			return fitness
		},
	}

	fmt.Printf("Starting CMA-ES over %d matrix entries, population=%d, max_evals=%d\n",
		dim, popSize, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, ticks per episode: %s\n", *seeds, humanize.Comma(int64(cfg.Training.MaxTicks)))

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	// Use the best matrix found (may be from any evaluation, not just final)
	best, bestFitness := evaluator.BestMatrix()
	if best == nil && result != nil {
		best = space.Denormalize(result.X)
	}
	if best == nil {
		log.Fatal("no evaluation completed")
	}

	fmt.Printf("\nOptimization complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best score: %.6g\n", -bestFitness)

	fmt.Println("\nBest matrix:")
	for i := 0; i < space.Classes; i++ {
		for j := 0; j < space.Classes; j++ {
			fmt.Printf("%5d", best.Get(i, j))
		}
		fmt.Println()
	}

	seed := sim.ExportSeed(best)
	seedPath := filepath.Join(*outputDir, "best_seed.txt")
	if err := os.WriteFile(seedPath, []byte(seed+"\n"), 0644); err != nil {
		log.Printf("failed to write best seed: %v", err)
	} else {
		fmt.Printf("\nBest seed %s saved to: %s\n", seed, seedPath)
	}
}
