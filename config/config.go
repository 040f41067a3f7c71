// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Simulation SimulationConfig `yaml:"simulation"`
	Neural     NeuralConfig     `yaml:"neural"`
	Training   TrainingConfig   `yaml:"training"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Storage    StorageConfig    `yaml:"storage"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// PhysicsConfig holds the force model and integrator parameters.
type PhysicsConfig struct {
	FirstThreshold  float64 `yaml:"first_threshold"`  // Proximity zone radius (T1)
	SecondThreshold float64 `yaml:"second_threshold"` // Width of each power ramp (T2)
	ProximityPower  float64 `yaml:"proximity_power"`  // Repulsion magnitude at distance 0
	ForceScale      float64 `yaml:"force_scale"`
	Damping         float64 `yaml:"damping"`
	DT              float64 `yaml:"dt"`
	CellPadding     float64 `yaml:"cell_padding"` // Added to the interaction range to get the cell size
	CellSize        float64 `yaml:"cell_size"`    // Explicit cell size (0 = range + padding)
	SpawnDensity    float64 `yaml:"spawn_density"`
	MaxPower        int     `yaml:"max_power"`
}

// SimulationConfig holds population bounds and worker cadence.
type SimulationConfig struct {
	Classes              int           `yaml:"classes"`
	MaxParticlesPerClass int           `yaml:"max_particles_per_class"`
	RandomMinCount       int           `yaml:"random_min_count"`
	RandomMaxCount       int           `yaml:"random_max_count"`
	UpdateInterval       time.Duration `yaml:"update_interval"`
	PausedUpdateInterval time.Duration `yaml:"paused_update_interval"`
	ParallelThreshold    int           `yaml:"parallel_threshold"` // Below this many particles, tick single-threaded
}

// NeuralConfig holds controller network parameters.
type NeuralConfig struct {
	HiddenLayers     []int  `yaml:"hidden_layers"` // Sizes of hidden layers, e.g. [8]
	HiddenActivation string `yaml:"hidden_activation"`
	OutputActivation string `yaml:"output_activation"`
}

// TrainingConfig holds the evolutionary loop and episode parameters.
type TrainingConfig struct {
	BatchSize         int     `yaml:"batch_size"`
	ParticlesPerClass int     `yaml:"particles_per_class"`
	InferenceInterval int     `yaml:"inference_interval"` // Ticks between controller actions
	MaxTicks          int     `yaml:"max_ticks"`          // Ticks per episode
	TargetDrift       float64 `yaml:"target_drift"`       // Max target angle change per tick (radians)
	MutationRate      float64 `yaml:"mutation_rate"`
	GenerationDecay   bool    `yaml:"generation_decay"` // Shrink mutation as generations grow
	Recombination     string  `yaml:"recombination"`    // crossover or average
	SaveEvery         int     `yaml:"save_every"`       // Persist the batch every N generations (0 = never)
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow int `yaml:"perf_window"`
	LogEvery   int `yaml:"log_every"` // Log generation stats every N generations
}

// StorageConfig selects and configures the batch store.
type StorageConfig struct {
	Driver     string `yaml:"driver"` // file, sqlite or memory
	Dir        string `yaml:"dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	InteractionRange float64 // T1 + 2*T2
	CellSize         float64 // Effective neighbor index cell size
	NetworkInputs    int     // 1 + classes^2 (target angle + matrix)
	NetworkOutputs   int     // classes^2
	LayerSizes       []int   // inputs, hidden..., outputs
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only fields present in the file overwrite the defaults
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	cfg.computeDerived()

	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Physics.FirstThreshold <= 0 || c.Physics.SecondThreshold <= 0 {
		errs = append(errs, errors.New("physics thresholds must be positive"))
	}
	if c.Physics.DT <= 0 {
		errs = append(errs, errors.New("physics.dt must be positive"))
	}
	if c.Physics.CellSize < 0 {
		errs = append(errs, errors.New("physics.cell_size must not be negative"))
	}
	if c.Physics.MaxPower < 1 || c.Physics.MaxPower > math.MaxInt8 {
		errs = append(errs, fmt.Errorf("physics.max_power must be in [1, %d]", math.MaxInt8))
	}
	for i, n := range c.Neural.HiddenLayers {
		if n < 1 {
			errs = append(errs, fmt.Errorf("neural.hidden_layers[%d] must be at least 1", i))
		}
	}
	if c.Simulation.Classes < 1 {
		errs = append(errs, errors.New("simulation.classes must be at least 1"))
	}
	if c.Simulation.MaxParticlesPerClass < 1 {
		errs = append(errs, errors.New("simulation.max_particles_per_class must be at least 1"))
	}
	if c.Simulation.RandomMaxCount > c.Simulation.MaxParticlesPerClass {
		errs = append(errs, errors.New("simulation.random_max_count exceeds max_particles_per_class"))
	}
	if c.Training.BatchSize < 2 {
		errs = append(errs, errors.New("training.batch_size must be at least 2"))
	}
	if c.Training.InferenceInterval < 1 {
		errs = append(errs, errors.New("training.inference_interval must be at least 1"))
	} else if c.Training.MaxTicks < c.Training.InferenceInterval {
		errs = append(errs, errors.New("training.max_ticks must be at least training.inference_interval"))
	}
	if c.Training.ParticlesPerClass < 1 {
		errs = append(errs, errors.New("training.particles_per_class must be at least 1"))
	}
	if c.Training.MutationRate < 0 || c.Training.MutationRate > 1 {
		errs = append(errs, errors.New("training.mutation_rate must be in [0, 1]"))
	}
	switch c.Training.Recombination {
	case "crossover", "average":
	default:
		errs = append(errs, fmt.Errorf("training.recombination %q is not one of crossover, average", c.Training.Recombination))
	}
	switch c.Storage.Driver {
	case "file", "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of file, sqlite, memory", c.Storage.Driver))
	}
	return errors.Join(errs...)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.InteractionRange = c.Physics.FirstThreshold + 2*c.Physics.SecondThreshold

	c.Derived.CellSize = c.Physics.CellSize
	if c.Derived.CellSize == 0 {
		c.Derived.CellSize = c.Derived.InteractionRange + c.Physics.CellPadding
	}

	n := c.Simulation.Classes
	c.Derived.NetworkInputs = 1 + n*n
	c.Derived.NetworkOutputs = n * n

	sizes := make([]int, 0, len(c.Neural.HiddenLayers)+2)
	sizes = append(sizes, c.Derived.NetworkInputs)
	sizes = append(sizes, c.Neural.HiddenLayers...)
	sizes = append(sizes, c.Derived.NetworkOutputs)
	c.Derived.LayerSizes = sizes
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
