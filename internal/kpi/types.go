package kpi

// MetricType identifies a production KPI and selects its generator and
// formatting rules
type MetricType string

const (
	MetricCoils      MetricType = "coils"
	MetricTons       MetricType = "tons"
	MetricShipped    MetricType = "shipped"
	MetricYield      MetricType = "yield"
	MetricEfficiency MetricType = "efficiency"
	MetricQuality    MetricType = "quality"
	MetricEnergy     MetricType = "energy"
	MetricCustom     MetricType = "custom"
)

// AllMetricTypes lists every supported metric type in display order
var AllMetricTypes = []MetricType{
	MetricCoils,
	MetricTons,
	MetricShipped,
	MetricYield,
	MetricEfficiency,
	MetricQuality,
	MetricEnergy,
	MetricCustom,
}

// IsValid reports whether t is one of the supported metric types
func (t MetricType) IsValid() bool {
	switch t {
	case MetricCoils, MetricTons, MetricShipped, MetricYield,
		MetricEfficiency, MetricQuality, MetricEnergy, MetricCustom:
		return true
	default:
		return false
	}
}

// LowerIsBetter reports whether a smaller actual beats the benchmark.
// Energy consumption is the only such metric.
func (t MetricType) LowerIsBetter() bool {
	return t == MetricEnergy
}

// DataPoint is one simulated KPI snapshot at hourly granularity.
// Percentage is always derived from Actual and Benchmark, never set directly.
type DataPoint struct {
	Actual     float64 `json:"actual"`
	Benchmark  float64 `json:"benchmark"`
	Percentage float64 `json:"percentage"`
}

// FallbackPoint is substituted whenever a generator produces an
// out-of-contract value. It renders as 0% achievement.
func FallbackPoint() DataPoint {
	return DataPoint{Actual: 0, Benchmark: 1, Percentage: 0}
}

// IsFallback reports whether p is the substitute point
func (p DataPoint) IsFallback() bool {
	return p.Actual == 0 && p.Benchmark == 1 && p.Percentage == 0
}

// Period selects the aggregation window for display
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// IsValid reports whether p is a supported period
func (p Period) IsValid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	default:
		return false
	}
}
