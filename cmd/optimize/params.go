// Package main searches for a static interaction matrix that scores well on
// the training objective, as a baseline for the evolved controllers.
package main

import (
	"fmt"
	"math"

	"github.com/pthm-cable/smarticles/sim"
)

// MatrixSpace maps interaction matrices to and from the [0,1] vectors the
// optimizer works in. Entry k of a vector is matrix entry (k/C, k%C).
type MatrixSpace struct {
	Classes  int
	MaxPower int8
}

// Dim returns the number of parameters.
func (s MatrixSpace) Dim() int {
	return s.Classes * s.Classes
}

// Name returns the column name of parameter k.
func (s MatrixSpace) Name(k int) string {
	return fmt.Sprintf("m_%d_%d", k/s.Classes, k%s.Classes)
}

// Normalize converts a matrix to a [0,1] vector.
func (s MatrixSpace) Normalize(m *sim.Matrix) []float64 {
	limit := float64(s.MaxPower)
	v := make([]float64, s.Dim())
	for k := range v {
		p := float64(m.Get(k/s.Classes, k%s.Classes))
		v[k] = (p + limit) / (2 * limit)
	}
	return v
}

// Denormalize converts a vector back to a matrix. Values outside [0,1] are
// clamped first, so the result is always within ±MaxPower.
func (s MatrixSpace) Denormalize(x []float64) *sim.Matrix {
	limit := float64(s.MaxPower)
	m := sim.NewMatrix(s.Classes)
	for k, v := range s.Clamp(x) {
		p := math.Round(-limit + v*2*limit)
		m.Set(k/s.Classes, k%s.Classes, int8(p))
	}
	return m
}

// Clamp ensures all values are within [0,1].
func (s MatrixSpace) Clamp(x []float64) []float64 {
	clamped := make([]float64, s.Dim())
	for i := range clamped {
		v := x[i]
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		clamped[i] = v
	}
	return clamped
}
