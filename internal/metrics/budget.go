package metrics

import (
	"time"

	"carteira/internal/core"
)

// Pace compares budget consumption with the share of the month elapsed.
type Pace string

const (
	PaceOnTrack  Pace = "on-track"
	PaceFast     Pace = "fast"
	PaceSlow     Pace = "slow"
	PaceCritical Pace = "critical"
)

// paceTolerance is how far, in percentage points, consumption may drift from
// the calendar before the pace is no longer on-track.
const paceTolerance = 10.0

// CategoryBudget is a category of the report with its spend for the period.
type CategoryBudget struct {
	core.Category
	Spent       core.Money `json:"spent"`
	Remaining   core.Money `json:"remaining"`
	ConsumedPct float64    `json:"consumedPct"`
	Overspent   bool       `json:"overspent"`
}

// Overspend returns spent-budget, zero when within budget or unbudgeted.
func (c CategoryBudget) Overspend() core.Money {
	if c.Budget.Cents <= 0 || c.Spent.Cents <= c.Budget.Cents {
		return core.Money{}
	}
	return core.Money{Cents: c.Spent.Cents - c.Budget.Cents}
}

// GoalProgress decorates a goal with what is left to save.
type GoalProgress struct {
	core.FinancialGoal
	Progress      float64    `json:"progress"`
	Remaining     core.Money `json:"remaining"`
	MonthsLeft    int        `json:"monthsLeft"`
	MonthlyNeeded core.Money `json:"monthlyNeeded"`
}

// BudgetReport is the budget view of one (year, month).
type BudgetReport struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`

	TotalBudget core.Money `json:"totalBudget"`
	TotalSpent  core.Money `json:"totalSpent"`
	// Remaining never goes below zero; Exhausted replaces a negative remainder.
	Remaining core.Money `json:"remaining"`
	Exhausted bool       `json:"exhausted"`

	FixedCosts            core.Money         `json:"fixedCosts"`
	CommittedInstallments core.Money         `json:"committedInstallments"`
	VariableSpent         core.Money         `json:"variableSpent"`
	FixedItems            []core.Transaction `json:"fixedItems"`
	InstallmentItems      []core.Transaction `json:"installmentItems"`

	Pace Pace `json:"pace"`
	// Display percentages, clamped to [0, 100].
	DaysPassedPct     float64 `json:"daysPassedPct"`
	BudgetConsumedPct float64 `json:"budgetConsumedPct"`
	// ConsumedPct is the unclamped ratio used for Pace.
	ConsumedPct float64 `json:"consumedPct"`

	Categories    []CategoryBudget `json:"categories"`
	AlertCategory *CategoryBudget  `json:"alertCategory"`

	Goals       []GoalProgress `json:"goals"`
	GoalsTarget core.Money     `json:"goalsTarget"`
	GoalsSaved  core.Money     `json:"goalsSaved"`
}

// EmptyBudgetReport is the renderable shape used when data is unavailable.
func EmptyBudgetReport(year int, month time.Month) BudgetReport {
	return BudgetReport{
		Year:             year,
		Month:            month,
		Pace:             PaceOnTrack,
		FixedItems:       []core.Transaction{},
		InstallmentItems: []core.Transaction{},
		Categories:       []CategoryBudget{},
		Goals:            []GoalProgress{},
	}
}

// DaysPassedPct is the share of (year, month) elapsed at today: 100 for past
// months, 0 for future ones.
func DaysPassedPct(year int, month time.Month, today core.Date) float64 {
	ty, tm := today.Year(), today.Month()
	switch {
	case year < ty || (year == ty && month < tm):
		return 100
	case year > ty || (year == ty && month > tm):
		return 0
	default:
		return float64(today.Day()) / float64(core.DaysInMonth(year, month)) * 100
	}
}

// ClassifyPace compares the unclamped consumption percentage with the
// elapsed-days percentage.
func ClassifyPace(consumedPct, daysPassedPct float64) Pace {
	switch {
	case consumedPct > 100:
		return PaceCritical
	case consumedPct > daysPassedPct+paceTolerance:
		return PaceFast
	case consumedPct < daysPassedPct-paceTolerance:
		return PaceSlow
	default:
		return PaceOnTrack
	}
}

// Budget builds the budget report of (year, month) from a snapshot.
func Budget(txs []core.Transaction, categories []core.Category, goals []core.FinancialGoal, year int, month time.Month, today core.Date) BudgetReport {
	rep := EmptyBudgetReport(year, month)

	spentByCategory := make(map[string]int64)
	for _, tx := range txs {
		if tx.Type != core.Expense || !tx.Date.InMonth(year, month) {
			continue
		}
		cents := tx.Amount.Cents
		rep.TotalSpent.Cents += cents
		spentByCategory[tx.CategoryID] += cents

		switch {
		case tx.IsFixed:
			rep.FixedCosts.Cents += cents
			rep.FixedItems = append(rep.FixedItems, tx)
		case tx.IsInstallment():
			rep.CommittedInstallments.Cents += cents
			rep.InstallmentItems = append(rep.InstallmentItems, tx)
		default:
			rep.VariableSpent.Cents += cents
		}
	}

	for _, c := range categories {
		if !c.CountsForExpenses() {
			continue
		}
		if c.Budget.Cents < 0 {
			c.Budget = core.Money{}
		}
		cb := CategoryBudget{
			Category: c,
			Spent:    core.Money{Cents: spentByCategory[c.ID]},
		}
		if c.Budget.Cents > 0 {
			rep.TotalBudget.Cents += c.Budget.Cents
			cb.Remaining = core.Money{Cents: max(0, c.Budget.Cents-cb.Spent.Cents)}
			cb.ConsumedPct = clampPct(float64(cb.Spent.Cents) / float64(c.Budget.Cents) * 100)
			cb.Overspent = cb.Spent.Cents > c.Budget.Cents
		}
		rep.Categories = append(rep.Categories, cb)
	}

	rep.Remaining = core.Money{Cents: max(0, rep.TotalBudget.Cents-rep.TotalSpent.Cents)}
	rep.Exhausted = rep.TotalBudget.Cents > 0 && rep.TotalSpent.Cents >= rep.TotalBudget.Cents

	days := DaysPassedPct(year, month, today)
	rep.DaysPassedPct = clampPct(days)
	if rep.TotalBudget.Cents > 0 {
		rep.ConsumedPct = float64(rep.TotalSpent.Cents) / float64(rep.TotalBudget.Cents) * 100
		rep.BudgetConsumedPct = clampPct(rep.ConsumedPct)
		rep.Pace = ClassifyPace(rep.ConsumedPct, days)
	}

	for i := range rep.Categories {
		c := rep.Categories[i]
		if !c.Overspent {
			continue
		}
		if rep.AlertCategory == nil || c.Overspend().Cents > rep.AlertCategory.Overspend().Cents {
			alert := c
			rep.AlertCategory = &alert
		}
	}

	for _, g := range goals {
		gp := goalProgress(g, today)
		rep.GoalsTarget.Cents += g.TargetAmount.Cents
		rep.GoalsSaved.Cents += g.CurrentAmount.Cents
		rep.Goals = append(rep.Goals, gp)
	}

	return rep
}

func goalProgress(g core.FinancialGoal, today core.Date) GoalProgress {
	gp := GoalProgress{
		FinancialGoal: g,
		Progress:      g.Progress(),
		Remaining:     core.Money{Cents: max(0, g.TargetAmount.Cents-g.CurrentAmount.Cents)},
	}
	if g.Deadline == nil || g.Deadline.IsZero() {
		return gp
	}
	months := (g.Deadline.Year()-today.Year())*12 + int(g.Deadline.Month()-today.Month())
	if months < 0 {
		months = 0
	}
	gp.MonthsLeft = months
	if gp.Remaining.Cents > 0 {
		divisor := int64(max(months, 1))
		gp.MonthlyNeeded = core.Money{Cents: (gp.Remaining.Cents + divisor - 1) / divisor}
	}
	return gp
}

func clampPct(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
