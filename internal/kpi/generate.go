package kpi

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/steelmill-kpi/internal/core"
)

// generatorFunc produces an (actual, benchmark) pair at hourly granularity
type generatorFunc func(r *core.Rand) (actual, benchmark float64)

// generators maps each metric type to its value generator. Adding a metric
// type is a data-only change: one table entry plus a format rule.
var generators = map[MetricType]generatorFunc{
	MetricCoils: func(r *core.Rand) (float64, float64) {
		return float64(r.UniformInt(10, 15)), float64(r.UniformInt(12, 20))
	},
	MetricTons: func(r *core.Rand) (float64, float64) {
		coilsPerHour := float64(r.UniformInt(10, 15))
		weightPerCoil := r.UniformDecimal(15, 30, 1)
		return core.Round1(coilsPerHour * weightPerCoil), float64(r.UniformInt(250, 500))
	},
	MetricShipped: func(r *core.Rand) (float64, float64) {
		return float64(r.UniformInt(8, 14)), float64(r.UniformInt(10, 18))
	},
	MetricYield: func(r *core.Rand) (float64, float64) {
		return r.UniformDecimal(85, 98, 1), float64(r.UniformInt(92, 96))
	},
	MetricEfficiency: func(r *core.Rand) (float64, float64) {
		return r.UniformDecimal(75, 95, 1), float64(r.UniformInt(85, 92))
	},
	MetricQuality: func(r *core.Rand) (float64, float64) {
		return r.UniformDecimal(90, 99.5, 1), r.UniformDecimal(95, 98, 1)
	},
	MetricEnergy: func(r *core.Rand) (float64, float64) {
		return r.UniformDecimal(0.4, 0.8, 2), r.UniformDecimal(0.5, 0.7, 2)
	},
	MetricCustom: func(r *core.Rand) (float64, float64) {
		return float64(r.UniformInt(50, 100)), float64(r.UniformInt(70, 90))
	},
}

// Generator produces simulated KPI snapshots per metric type
type Generator struct {
	rand *core.Rand
}

// NewGenerator creates a generator backed by a fresh random source
func NewGenerator() *Generator {
	return &Generator{rand: core.NewRand()}
}

// NewGeneratorWithRand creates a generator over an explicit random source
func NewGeneratorWithRand(r *core.Rand) *Generator {
	return &Generator{rand: r}
}

// Generate produces a fresh data point for the given metric type.
// Out-of-contract output (unknown type, negative or non-finite values) is
// replaced by the fallback point and logged; it never propagates.
func (g *Generator) Generate(t MetricType) DataPoint {
	gen, ok := generators[t]
	if !ok {
		log.Warn().Str("type", string(t)).Msg("Unknown metric type, using fallback data point")
		return FallbackPoint()
	}

	actual, benchmark := gen(g.rand)
	if !validPair(actual, benchmark) {
		log.Warn().
			Str("type", string(t)).
			Float64("actual", actual).
			Float64("benchmark", benchmark).
			Msg("Generator produced out-of-contract values, using fallback data point")
		return FallbackPoint()
	}

	pct := Percentage(actual, benchmark, t)
	if math.IsInf(pct, 0) || math.IsNaN(pct) {
		log.Warn().
			Str("type", string(t)).
			Float64("actual", actual).
			Float64("benchmark", benchmark).
			Msg("Achievement percentage not finite, using fallback data point")
		return FallbackPoint()
	}

	return DataPoint{Actual: actual, Benchmark: benchmark, Percentage: pct}
}

// Percentage derives the achievement ratio in percent, rounded to one
// decimal. For lower-is-better metrics the ratio is inverted.
func Percentage(actual, benchmark float64, t MetricType) float64 {
	if t.LowerIsBetter() {
		return core.Round1(benchmark / actual * 100)
	}
	return core.Round1(actual / benchmark * 100)
}

func validPair(actual, benchmark float64) bool {
	if math.IsNaN(actual) || math.IsInf(actual, 0) || actual < 0 {
		return false
	}
	if math.IsNaN(benchmark) || math.IsInf(benchmark, 0) || benchmark <= 0 {
		return false
	}
	return true
}
