// Package sim implements the particle-life simulation engine: a cell-based
// neighbor index, the three-zone force model, Verlet integration and a
// parallel read-then-commit tick over dense class-major particle arrays.
package sim

import (
	"math"

	"github.com/pthm-cable/smarticles/config"
)

// Params holds the construction-time constants of a Simulation.
type Params struct {
	Classes     int
	MaxPerClass int

	FirstThreshold  float64 // T1: end of the proximity zone
	SecondThreshold float64 // T2: width of each power ramp
	ProximityPower  float64 // repulsion magnitude at distance 0
	ForceScale      float64
	Damping         float64
	DT              float64
	CellSize        float64 // 0 = interaction range + 2
	SpawnDensity    float64
	MaxPower        int8

	ParallelThreshold int
}

// DefaultParams returns the parameters of the embedded default config.
func DefaultParams() Params {
	return ParamsFromConfig(config.Default())
}

// ParamsFromConfig builds Params from a loaded config.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		Classes:           cfg.Simulation.Classes,
		MaxPerClass:       cfg.Simulation.MaxParticlesPerClass,
		FirstThreshold:    cfg.Physics.FirstThreshold,
		SecondThreshold:   cfg.Physics.SecondThreshold,
		ProximityPower:    cfg.Physics.ProximityPower,
		ForceScale:        cfg.Physics.ForceScale,
		Damping:           cfg.Physics.Damping,
		DT:                cfg.Physics.DT,
		CellSize:          cfg.Derived.CellSize,
		SpawnDensity:      cfg.Physics.SpawnDensity,
		MaxPower:          int8(cfg.Physics.MaxPower),
		ParallelThreshold: cfg.Simulation.ParallelThreshold,
	}
}

// Range is the distance beyond which particles never interact.
func (p Params) Range() float64 {
	return p.FirstThreshold + 2*p.SecondThreshold
}

// cellSize returns the configured cell size or the default derived from Range.
func (p Params) cellSize() float64 {
	if p.CellSize > 0 {
		return p.CellSize
	}
	return p.Range() + 2
}

func (p Params) maxPower() int8 {
	if p.MaxPower <= 0 {
		return math.MaxInt8
	}
	return p.MaxPower
}
