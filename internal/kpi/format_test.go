package kpi

import (
	"testing"
	"time"
)

func TestBandForEdges(t *testing.T) {
	tests := []struct {
		name       string
		percentage float64
		expected   string
	}{
		{"ExcellentExact", 100, "excellent"},
		{"ExcellentAbove", 130.2, "excellent"},
		{"JustBelowExcellent", 99.9, "good"},
		{"GoodExact", 80, "good"},
		{"JustBelowGood", 79.9, "average"},
		{"AverageExact", 60, "average"},
		{"JustBelowAverage", 59.9, "poor"},
		{"Zero", 0, "poor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BandFor(tt.percentage).Status; got != tt.expected {
				t.Errorf("BandFor(%v).Status = %q, want %q", tt.percentage, got, tt.expected)
			}
		})
	}
}

func TestBandColorsDerivedWithStatus(t *testing.T) {
	// Status and color always come from the same band
	seen := make(map[string]string)
	for _, pct := range []float64{0, 59.9, 60, 79.9, 80, 99.9, 100, 150} {
		b := BandFor(pct)
		if prev, ok := seen[b.Status]; ok && prev != b.Color {
			t.Errorf("status %q mapped to two colors: %q and %q", b.Status, prev, b.Color)
		}
		seen[b.Status] = b.Color
		if b.Color == "" {
			t.Errorf("BandFor(%v) has empty color", pct)
		}
	}
	if len(seen) != 4 {
		t.Errorf("expected 4 distinct bands, got %d", len(seen))
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name     string
		metric   MetricType
		hourly   float64
		period   Period
		expected string
	}{
		{"TonsDaily", MetricTons, 300.5, PeriodDaily, "7212.0 tons"},
		{"CoilsDaily", MetricCoils, 12, PeriodDaily, "288 coils"},
		{"ShippedWeekly", MetricShipped, 10, PeriodWeekly, "1680 coils"},
		{"YieldHourlyBasis", MetricYield, 94.5, PeriodMonthly, "94.5%"},
		{"EfficiencyHourlyBasis", MetricEfficiency, 88.2, PeriodDaily, "88.2%"},
		{"QualityHourlyBasis", MetricQuality, 99.5, PeriodWeekly, "99.5%"},
		{"EnergyHourlyBasis", MetricEnergy, 0.55, PeriodMonthly, "0.55 MWh/ton"},
		{"CustomDaily", MetricCustom, 75, PeriodDaily, "1800"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.metric, tt.hourly, tt.period); got != tt.expected {
				t.Errorf("FormatValue(%s, %v, %s) = %q, want %q", tt.metric, tt.hourly, tt.period, got, tt.expected)
			}
		})
	}
}

func TestFormatPercentage(t *testing.T) {
	if got := FormatPercentage(66.7); got != "66.7%" {
		t.Errorf("FormatPercentage(66.7) = %q, want %q", got, "66.7%")
	}
	if got := FormatPercentage(100); got != "100.0%" {
		t.Errorf("FormatPercentage(100) = %q, want %q", got, "100.0%")
	}
}

func TestAbbreviateNumber(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected string
	}{
		{"Plain", 950, "950"},
		{"Thousands", 1500, "1.5K"},
		{"Millions", 2300000, "2.3M"},
		{"Billions", 7100000000, "7.1B"},
		{"Zero", 0, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AbbreviateNumber(tt.value); got != tt.expected {
				t.Errorf("AbbreviateNumber(%v) = %q, want %q", tt.value, got, tt.expected)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"HoursAndMinutes", 2*time.Hour + 5*time.Minute, "2h 5m"},
		{"MinutesAndSeconds", 3*time.Minute + 20*time.Second, "3m 20s"},
		{"SecondsOnly", 45 * time.Second, "45s"},
		{"Zero", 0, "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.duration); got != tt.expected {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.duration, got, tt.expected)
			}
		})
	}
}
