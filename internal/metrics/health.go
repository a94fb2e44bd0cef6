package metrics

import "carteira/internal/core"

// Health is a qualitative reading of the income/expense ratio.
type Health string

const (
	HealthExcellent Health = "excellent"
	HealthGood      Health = "good"
	HealthStable    Health = "stable"
	HealthCritical  Health = "critical"
)

// Inclusive lower bounds of the income/expense ratio, in hundredths.
const (
	excellentRatio = 120
	goodRatio      = 105
	stableRatio    = 90

	// noExpenseRatio stands in for income/0.
	noExpenseRatio = 2.0
)

// HealthRatio returns income/expense, or 2 when there is no expense.
func HealthRatio(income, expense core.Money) float64 {
	if expense.Cents <= 0 {
		return noExpenseRatio
	}
	return float64(income.Cents) / float64(expense.Cents)
}

// ClassifyHealth maps the income/expense ratio to a tier. The comparison is
// done on cents so the cut points are exact.
func ClassifyHealth(income, expense core.Money) Health {
	if expense.Cents <= 0 {
		return HealthExcellent
	}
	scaled := income.Cents * 100
	switch {
	case scaled >= expense.Cents*excellentRatio:
		return HealthExcellent
	case scaled >= expense.Cents*goodRatio:
		return HealthGood
	case scaled >= expense.Cents*stableRatio:
		return HealthStable
	default:
		return HealthCritical
	}
}

// Variation is the percent change from previous to current, 0 when there is
// no previous baseline.
func Variation(current, previous core.Money) float64 {
	if previous.Cents == 0 {
		return 0
	}
	return float64(current.Cents-previous.Cents) / float64(previous.Cents) * 100
}

// SavingsRate is the share of income left after expenses, 0 without income.
func SavingsRate(income, expense core.Money) float64 {
	if income.Cents <= 0 {
		return 0
	}
	return float64(income.Cents-expense.Cents) / float64(income.Cents) * 100
}
