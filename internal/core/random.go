package core

import (
	"math"
	"math/rand"
	"time"
)

// Rand provides the bounded random primitives used by the KPI generators
type Rand struct {
	rng *rand.Rand
}

// NewRand creates a new random source seeded from the wall clock
func NewRand() *Rand {
	return &Rand{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewRandWithSource creates a random source with an explicit seed (tests)
func NewRandWithSource(seed int64) *Rand {
	return &Rand{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// UniformInt returns a uniform random integer in [min, max] inclusive
func (r *Rand) UniformInt(min, max int) int {
	return min + r.rng.Intn(max-min+1)
}

// UniformDecimal returns a uniform random value in [min, max] rounded to
// the given number of fractional digits
func (r *Rand) UniformDecimal(min, max float64, decimals int) float64 {
	return RoundTo(min+r.rng.Float64()*(max-min), decimals)
}

// Normal returns a value drawn from a Gaussian distribution via the
// Box-Muller transform over two independent uniform(0,1) samples
func (r *Rand) Normal(mean, stdDev float64) float64 {
	u1 := r.rng.Float64()
	u2 := r.rng.Float64()
	// Guard against log(0)
	if u1 < 1e-12 {
		u1 = 1e-12
	}
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mean + z*stdDev
}

// Biased blends two independent uniform draws in [min, max] with a target
// value, weighted by bias in [0,1]. bias=1 always returns target.
func (r *Rand) Biased(min, max, target, bias float64) float64 {
	draw := (r.Uniform(min, max) + r.Uniform(min, max)) / 2
	return draw*(1-bias) + target*bias
}

// Uniform returns a uniform random value in [min, max]
func (r *Rand) Uniform(min, max float64) float64 {
	return min + r.rng.Float64()*(max-min)
}

// RoundTo rounds a value to the given number of fractional digits
func RoundTo(value float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(value*pow) / pow
}

// Round1 rounds to one fractional digit
func Round1(value float64) float64 {
	return RoundTo(value, 1)
}

// Round2 rounds to two fractional digits
func Round2(value float64) float64 {
	return RoundTo(value, 2)
}

// ClampPositive ensures a value is non-negative
func ClampPositive(value float64) float64 {
	if value < 0 {
		return 0
	}
	return value
}

// Clamp ensures a value is within bounds
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
