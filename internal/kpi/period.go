package kpi

import "github.com/sebastiankruger/steelmill-kpi/internal/core"

// Hour multipliers per period. Monthly assumes a 30-day month.
const (
	hoursPerDay   = 24
	hoursPerWeek  = 168
	hoursPerMonth = 720
)

// Multiplier returns the number of hours in the given period.
// Unknown periods scale like daily.
func (p Period) Multiplier() float64 {
	switch p {
	case PeriodWeekly:
		return hoursPerWeek
	case PeriodMonthly:
		return hoursPerMonth
	default:
		return hoursPerDay
	}
}

// Label returns the display suffix for the period
func (p Period) Label() string {
	switch p {
	case PeriodWeekly:
		return "per Week"
	case PeriodMonthly:
		return "per Month"
	default:
		return "per Day"
	}
}

// ToPeriod scales an hourly rate to the period aggregate, rounded to one
// decimal. Achievement percentages are period-invariant and must not be
// passed through this.
func ToPeriod(hourlyValue float64, p Period) float64 {
	return core.Round1(hourlyValue * p.Multiplier())
}
