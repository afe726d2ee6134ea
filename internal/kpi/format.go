package kpi

import (
	"fmt"
	"math"
	"time"
)

// Band is a status/color pair derived from an achievement percentage.
// The two are always derived together.
type Band struct {
	Status string `json:"status"`
	Color  string `json:"color"`
}

var (
	bandExcellent = Band{Status: "excellent", Color: "#22c55e"}
	bandGood      = Band{Status: "good", Color: "#84cc16"}
	bandAverage   = Band{Status: "average", Color: "#eab308"}
	bandPoor      = Band{Status: "poor", Color: "#ef4444"}
)

// BandFor maps an achievement percentage to its status band
func BandFor(percentage float64) Band {
	switch {
	case percentage >= 100:
		return bandExcellent
	case percentage >= 80:
		return bandGood
	case percentage >= 60:
		return bandAverage
	default:
		return bandPoor
	}
}

// FormatValue renders an hourly value as a display string for the given
// metric type and period. Rate metrics are period-scaled; ratio metrics
// (yield, efficiency, quality) and energy intensity stay on the hourly basis.
func FormatValue(t MetricType, hourlyValue float64, p Period) string {
	switch t {
	case MetricTons:
		return fmt.Sprintf("%.1f tons", ToPeriod(hourlyValue, p))
	case MetricCoils, MetricShipped:
		return fmt.Sprintf("%d coils", int(math.Round(ToPeriod(hourlyValue, p))))
	case MetricYield, MetricEfficiency, MetricQuality:
		return fmt.Sprintf("%.1f%%", hourlyValue)
	case MetricEnergy:
		return fmt.Sprintf("%.2f MWh/ton", hourlyValue)
	default:
		return fmt.Sprintf("%d", int(math.Round(ToPeriod(hourlyValue, p))))
	}
}

// FormatPercentage renders an achievement percentage with one decimal
func FormatPercentage(percentage float64) string {
	return fmt.Sprintf("%.1f%%", percentage)
}

// AbbreviateNumber shortens large values with K/M/B suffixes
func AbbreviateNumber(value float64) string {
	abs := math.Abs(value)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.1fB", value/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.1fM", value/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.1fK", value/1e3)
	default:
		return fmt.Sprintf("%g", value)
	}
}

// FormatDuration renders a duration as "Hh Mm", "Mm Ss" or "Ss"
func FormatDuration(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
