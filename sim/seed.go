package sim

import (
	"encoding/base64"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
)

// seedPowerCurve flattens seeded powers toward zero: pow = sign(u)*|u|^(1/curve).
const seedPowerCurve = 1.25

// customSeedPrefix marks a seed that is a base64 dump of the matrix.
const customSeedPrefix = "@"

// SeedOptions controls how a seed string expands into a starting configuration.
type SeedOptions struct {
	Classes  int
	MaxPower int8
	// Counts are drawn from [MinCount, MaxCount) when MaxCount > 0.
	MinCount, MaxCount int
}

// Seed is a reproducible starting configuration.
type Seed struct {
	Matrix *Matrix
	Counts []int // nil when the seed does not define counts
}

// Apply expands a seed string. A string starting with "@" followed by valid
// base64 is decoded as raw matrix bytes, clamped to MaxPower. Any other string is hashed into a
// random source that draws the counts and powers, so equal strings always
// give equal configurations.
func (o SeedOptions) Apply(seed string) Seed {
	if rest, ok := strings.CutPrefix(seed, customSeedPrefix); ok {
		if b, err := base64.StdEncoding.DecodeString(rest); err == nil {
			m := MatrixFromBytes(o.Classes, b)
			m.Clamp(o.MaxPower)
			return Seed{Matrix: m}
		}
	}

	h := fnv.New64a()
	h.Write([]byte(seed))
	sum := h.Sum64()
	rng := rand.New(rand.NewPCG(sum, sum^0x9e3779b97f4a7c15))

	uniform := func(lo, hi float64) float64 { return lo + (hi-lo)*rng.Float64() }

	maxPower := float64(o.MaxPower)
	m := NewMatrix(o.Classes)
	var counts []int
	if o.MaxCount > 0 {
		counts = make([]int, o.Classes)
	}
	for i := 0; i < o.Classes; i++ {
		if counts != nil {
			counts[i] = int(uniform(float64(o.MinCount), float64(o.MaxCount)))
		}
		for j := 0; j < o.Classes; j++ {
			u := uniform(-maxPower, maxPower)
			pow := math.Copysign(math.Pow(math.Abs(u), 1/seedPowerCurve), u)
			m.Set(i, j, int8(pow))
		}
	}

	return Seed{Matrix: m, Counts: counts}
}

// ExportSeed encodes a matrix as a custom seed string that Apply decodes back
// to the same matrix.
func ExportSeed(m *Matrix) string {
	return customSeedPrefix + base64.StdEncoding.EncodeToString(m.Bytes())
}

const seedAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomSeedString returns a short random seed string.
func RandomSeedString(rng *rand.Rand) string {
	var b strings.Builder
	for range 8 {
		b.WriteByte(seedAlphabet[rng.IntN(len(seedAlphabet))])
	}
	return b.String()
}
