package training

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/pthm-cable/smarticles/config"
	"github.com/pthm-cable/smarticles/neural"
	"github.com/pthm-cable/smarticles/sim"
)

const (
	// targetScale and powerScale bring observation features near [-10, 10].
	targetScale = 10
	powerScale  = 10
	// actionScale maps a network output to a matrix delta.
	actionScale = 10

	// Cluster layout of the episode start.
	clusterSpread = 3
	clusterJitter = 0.5

	// Score mixing of the dispersion metrics.
	maxDistanceWeight  = 0.4
	meanDistanceWeight = 0.6
	backwardDamping    = 10
)

// Observation encodes the target angle and the interaction matrix as a
// network input: [10*angle/τ, m[0][0]/10, ..., m[C-1][C-1]/10].
func Observation(targetAngle float64, m *sim.Matrix) []float32 {
	values := m.Values()
	obs := make([]float32, 0, 1+len(values))
	obs = append(obs, float32(targetScale*targetAngle/(2*math.Pi)))
	for _, v := range values {
		obs = append(obs, float32(v)/powerScale)
	}
	return obs
}

// ApplyAction adds trunc(10*o) to each matrix entry, in row-major order,
// clamped to ±limit.
func ApplyAction(action []float32, m *sim.Matrix, limit int8) {
	n := m.Size()
	if len(action) != n*n {
		panic(fmt.Sprintf("training: action has %d values for a %dx%d matrix", len(action), n, n))
	}
	for k, o := range action {
		delta := math.Trunc(float64(o) * actionScale)
		// Saturate before converting so huge outputs cannot wrap around.
		delta = math.Max(math.Min(delta, math.MaxInt16), math.MinInt16)
		m.Add(k/n, k%n, int(delta), limit)
	}
}

// EvaluationData aggregates the behavioural metrics of one episode.
type EvaluationData struct {
	// MovementProjection is the mean projection of the centroid
	// displacement onto the target direction.
	MovementProjection float64
	MaxDistance        float64
	MeanDistance       float64
}

// LogValue implements slog.LogValuer.
func (d EvaluationData) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("projection", d.MovementProjection),
		slog.Float64("max_distance", d.MaxDistance),
		slog.Float64("mean_distance", d.MeanDistance),
	)
}

// Score reduces the metrics to one fitness value. Moving along the target
// while staying compact scores high; moving against it scores negative,
// scaled by how spread out the particles are.
func Score(d EvaluationData) float64 {
	coef := maxDistanceWeight*d.MaxDistance + meanDistanceWeight*d.MeanDistance
	if coef == 0 {
		return 0
	}
	p3 := d.MovementProjection * d.MovementProjection * d.MovementProjection
	if d.MovementProjection >= 0 {
		return p3 / coef
	}
	return p3 * coef / backwardDamping
}

// Controller adjusts the interaction matrix between inference steps.
type Controller interface {
	Act(targetAngle float64, m *sim.Matrix) error
}

// NetworkController drives the matrix with a network.
type NetworkController struct {
	Network  *neural.Network
	MaxPower int8
}

// Act implements Controller.
func (c NetworkController) Act(targetAngle float64, m *sim.Matrix) error {
	out, err := c.Network.Infer(Observation(targetAngle, m))
	if err != nil {
		return err
	}
	ApplyAction(out, m, c.MaxPower)
	return nil
}

// Evaluator runs fitness episodes.
type Evaluator struct {
	params            sim.Params
	particlesPerClass int
	inferenceInterval int
	steps             int
	targetDrift       float64
}

// NewEvaluator creates an evaluator from the physics and training config.
func NewEvaluator(cfg *config.Config) *Evaluator {
	params := sim.ParamsFromConfig(cfg)
	params.MaxPerClass = cfg.Training.ParticlesPerClass
	// Episodes run side by side already; keep each tick single-threaded.
	params.ParallelThreshold = math.MaxInt

	return &Evaluator{
		params:            params,
		particlesPerClass: cfg.Training.ParticlesPerClass,
		inferenceInterval: cfg.Training.InferenceInterval,
		steps:             cfg.Training.MaxTicks / cfg.Training.InferenceInterval,
		targetDrift:       cfg.Training.TargetDrift,
	}
}

// Params returns the simulation parameters of an episode.
func (e *Evaluator) Params() sim.Params { return e.params }

// Steps returns the number of inference steps per episode.
func (e *Evaluator) Steps() int { return e.steps }

// Evaluate runs one episode controlled by net.
func (e *Evaluator) Evaluate(net *neural.Network, rng *rand.Rand) (EvaluationData, error) {
	return e.Run(NetworkController{Network: net, MaxPower: e.params.MaxPower}, nil, rng)
}

// Run runs one episode. The matrix starts at m when non-nil, zero otherwise.
// A nil controller leaves the matrix untouched.
func (e *Evaluator) Run(ctrl Controller, m *sim.Matrix, rng *rand.Rand) (EvaluationData, error) {
	s := sim.New(e.params, rng)
	defer s.Close()
	e.setup(s, m, rng)

	var data EvaluationData
	steps := float64(e.steps)
	angle := math.Pi * (2*rng.Float64() - 1)
	prevCentroid := s.Centroid()

	var positions []sim.Vec2
	for step := 0; step < e.steps; step++ {
		for range e.inferenceInterval {
			s.Tick()
			angle = wrapAngle(angle + e.targetDrift*(2*rng.Float64()-1))
		}

		centroid := s.Centroid()
		data.MovementProjection += centroid.Sub(prevCentroid).Dot(sim.Angled(angle)) / steps
		prevCentroid = centroid

		positions = positions[:0]
		for c := 0; c < s.Classes(); c++ {
			positions = s.AppendPositions(positions, c)
		}
		maxDist, sum := pairwiseDistances(positions)
		data.MaxDistance = math.Max(data.MaxDistance, maxDist)
		if n := float64(len(positions)); n > 0 {
			data.MeanDistance += sum / (n * n * steps)
		}

		if ctrl != nil {
			if err := ctrl.Act(angle, s.Matrix()); err != nil {
				return data, fmt.Errorf("step %d: %w", step, err)
			}
		}
	}
	return data, nil
}

// setup places each class in its own cluster on a ring around the origin.
func (e *Evaluator) setup(s *sim.Simulation, m *sim.Matrix, rng *rand.Rand) {
	counts := make([]int, s.Classes())
	for i := range counts {
		counts[i] = e.particlesPerClass
	}
	s.SetClassCounts(counts)
	if m != nil {
		s.SetMatrix(m)
	}

	r := math.Sqrt(float64(s.Total())/math.Pi) * clusterSpread
	for c := range counts {
		center := sim.Angled(2 * math.Pi * float64(c) / float64(len(counts))).Scale(r)
		for slot := 0; slot < counts[c]; slot++ {
			jitter := sim.Angled(2 * math.Pi * rng.Float64()).Scale(math.Sqrt(rng.Float64()) * r * clusterJitter)
			s.SetPosition(sim.ParticleID{Class: int32(c), Slot: int32(slot)}, center.Add(jitter))
		}
	}
	s.Organize()
}

// EvaluateAll scores every network concurrently. Network i runs with a
// random source derived from (seed, i), so results do not depend on
// scheduling. Cancelling ctx stops launching new episodes; running ones
// finish.
func (e *Evaluator) EvaluateAll(ctx context.Context, nets []*neural.Network, seed uint64) ([]float64, []EvaluationData, error) {
	scores := make([]float64, len(nets))
	data := make([]EvaluationData, len(nets))
	errs := make([]error, len(nets))

	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup

	for i, net := range nets {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int, n *neural.Network) {
			defer wg.Done()
			defer func() { <-sem }()
			rng := rand.New(rand.NewPCG(seed, uint64(idx)))
			d, err := e.Evaluate(n, rng)
			data[idx] = d
			scores[idx] = Score(d)
			errs[idx] = err
		}(i, net)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	for i, err := range errs {
		if err != nil {
			return nil, nil, fmt.Errorf("evaluating network %d: %w", i, err)
		}
	}
	return scores, data, nil
}

func wrapAngle(a float64) float64 {
	if a > math.Pi {
		return a - 2*math.Pi
	}
	if a < -math.Pi {
		return a + 2*math.Pi
	}
	return a
}

// pairwiseDistances returns the maximum and the sum of the distances over
// all ordered pairs, self pairs included.
func pairwiseDistances(ps []sim.Vec2) (maxDist, sum float64) {
	for i := range ps {
		for j := range ps {
			d := ps[i].Sub(ps[j]).Len()
			maxDist = math.Max(maxDist, d)
			sum += d
		}
	}
	return maxDist, sum
}
