package metrics

import (
	"sort"
	"time"

	"carteira/internal/core"
)

const (
	// DashboardShortcuts is how many frequent expenses the dashboard shows.
	DashboardShortcuts = 3
	// ScreenShortcuts is the limit used by the shortcuts screen.
	ScreenShortcuts = 10
)

// DashboardMetrics is the projection rendered on the home screen.
type DashboardMetrics struct {
	Balance               core.Money        `json:"balance"`
	Income                core.Money        `json:"income"`
	Expense               core.Money        `json:"expense"`
	MonthVariationIncome  float64           `json:"monthVariationIncome"`
	MonthVariationExpense float64           `json:"monthVariationExpense"`
	ProjectedBalance      core.Money        `json:"projectedBalance"`
	FinancialHealth       Health            `json:"financialHealth"`
	YearlySavings         core.Money        `json:"yearlySavings"`
	LastTransaction       *core.Transaction `json:"lastTransaction"`
	TopExpenses           []ExpenseShortcut `json:"topExpenses"`
}

// MonthlyInsight summarises one month against the month before it.
type MonthlyInsight struct {
	Year             int               `json:"year"`
	Month            time.Month        `json:"month"`
	Income           core.Money        `json:"income"`
	Expense          core.Money        `json:"expense"`
	Savings          core.Money        `json:"savings"`
	SavingsRate      float64           `json:"savingsRate"`
	IncomeVariation  float64           `json:"incomeVariation"`
	ExpenseVariation float64           `json:"expenseVariation"`
	Health           Health            `json:"health"`
	BiggestExpense   *core.Transaction `json:"biggestExpense"`
	TopCategory      *TopCategory      `json:"topCategory"`
	Breakdown        []CategoryShare   `json:"breakdown"`
}

// StreakStats counts consecutive days with at least one transaction.
type StreakStats struct {
	Current int `json:"currentStreak"`
	Max     int `json:"maxStreak"`
}

// Dashboard composes the home-screen metrics for today.
func Dashboard(txs []core.Transaction, today core.Date) DashboardMetrics {
	agg := Aggregate(txs, today)
	return DashboardMetrics{
		Balance:               agg.Balance,
		Income:                agg.MonthIncome,
		Expense:               agg.MonthExpense,
		MonthVariationIncome:  Variation(agg.MonthIncome, agg.PrevMonthIncome),
		MonthVariationExpense: Variation(agg.MonthExpense, agg.PrevMonthExpense),
		ProjectedBalance: core.Money{
			Cents: agg.Balance.Cents + agg.ScheduledIncome.Cents - agg.ScheduledExpense.Cents,
		},
		FinancialHealth: ClassifyHealth(agg.MonthIncome, agg.MonthExpense),
		YearlySavings:   core.Money{Cents: agg.YearIncome.Cents - agg.YearExpense.Cents},
		LastTransaction: agg.LastTransaction,
		TopExpenses:     TopExpensesByFrequency(agg.Frequency, DashboardShortcuts),
	}
}

// Shortcuts returns the most frequent expense titles of today's year.
func Shortcuts(txs []core.Transaction, today core.Date, limit int) []ExpenseShortcut {
	return TopExpensesByFrequency(Aggregate(txs, today).Frequency, limit)
}

// Insight builds the monthly insight for (year, month). The month is
// aggregated as if it were the current one, using the last day of the month
// (or today, when that comes first) as the reference.
func Insight(txs []core.Transaction, categories []core.Category, year int, month time.Month, today core.Date) MonthlyInsight {
	ref := core.NewDate(year, month, core.DaysInMonth(year, month))
	if today.InMonth(year, month) {
		ref = today
	}
	agg := Aggregate(txs, ref)

	return MonthlyInsight{
		Year:             year,
		Month:            month,
		Income:           agg.MonthIncome,
		Expense:          agg.MonthExpense,
		Savings:          core.Money{Cents: agg.MonthIncome.Cents - agg.MonthExpense.Cents},
		SavingsRate:      SavingsRate(agg.MonthIncome, agg.MonthExpense),
		IncomeVariation:  Variation(agg.MonthIncome, agg.PrevMonthIncome),
		ExpenseVariation: Variation(agg.MonthExpense, agg.PrevMonthExpense),
		Health:           ClassifyHealth(agg.MonthIncome, agg.MonthExpense),
		BiggestExpense:   BiggestExpense(txs, year, month),
		TopCategory:      TopCategoryOf(agg.CategoryExpense, categories),
		Breakdown:        CategoryBreakdown(agg.CategoryExpense, categories),
	}
}

// Streak computes activity streaks over days with at least one transaction
// on or before today. The current streak counts back from today, or from
// yesterday when nothing was recorded yet today.
func Streak(txs []core.Transaction, today core.Date) StreakStats {
	days := make(map[int64]struct{})
	for _, tx := range txs {
		if tx.Date.IsZero() || !tx.Date.OnOrBefore(today) {
			continue
		}
		days[dayNumber(tx.Date)] = struct{}{}
	}
	if len(days) == 0 {
		return StreakStats{}
	}

	sorted := make([]int64, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var stats StreakStats
	run := 0
	for i, d := range sorted {
		if i > 0 && d == sorted[i-1]+1 {
			run++
		} else {
			run = 1
		}
		stats.Max = max(stats.Max, run)
	}

	start := dayNumber(today)
	if _, ok := days[start]; !ok {
		start--
	}
	for d := start; ; d-- {
		if _, ok := days[d]; !ok {
			break
		}
		stats.Current++
	}
	return stats
}

func dayNumber(d core.Date) int64 {
	return d.Unix() / int64(24*time.Hour/time.Second)
}
