package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carteira/internal/core"
)

func TestBudgetCategorySpend(t *testing.T) {
	cats := []core.Category{
		{ID: "food", Name: "Alimentação", Type: core.CategoryExpense, Budget: money(20000)},
		{ID: "salary", Name: "Salário", Type: core.CategoryIncome},
	}
	txs := []core.Transaction{
		tx("2024-04-02", core.Expense, 7000, "Feira", "food"),
		tx("2024-03-15", core.Expense, 10000, "Mercado", "food"),
		tx("2024-03-05", core.Expense, 5000, "Padaria", "food"),
		tx("2024-03-01", core.Income, 500000, "Salário", "salary"),
		tx("2024-02-28", core.Expense, 9000, "Mercado", "food"),
	}

	rep := Budget(txs, cats, nil, 2024, time.March, core.NewDate(2024, time.April, 10))

	require.Len(t, rep.Categories, 1, "income-only categories are not budgeted")
	food := rep.Categories[0]
	assert.Equal(t, int64(15000), food.Spent.Cents)
	assert.Equal(t, int64(5000), food.Remaining.Cents)
	assert.InDelta(t, 75.0, food.ConsumedPct, 1e-9)
	assert.False(t, food.Overspent)

	assert.Equal(t, int64(20000), rep.TotalBudget.Cents)
	assert.Equal(t, int64(15000), rep.TotalSpent.Cents)
	assert.Equal(t, 100.0, rep.DaysPassedPct, "past months are fully elapsed")
	assert.Equal(t, PaceSlow, rep.Pace)
	assert.Nil(t, rep.AlertCategory)
}

func TestBudgetRemainingNeverNegative(t *testing.T) {
	cats := []core.Category{{ID: "fun", Name: "Lazer", Type: core.CategoryExpense, Budget: money(10000)}}
	txs := []core.Transaction{tx("2024-03-03", core.Expense, 13000, "Show", "fun")}

	rep := Budget(txs, cats, nil, 2024, time.March, core.NewDate(2024, time.March, 31))

	assert.Zero(t, rep.Remaining.Cents)
	assert.True(t, rep.Exhausted)
	assert.Equal(t, 100.0, rep.BudgetConsumedPct)
	assert.InDelta(t, 130.0, rep.ConsumedPct, 1e-9)
	assert.Equal(t, PaceCritical, rep.Pace)

	require.Len(t, rep.Categories, 1)
	assert.Zero(t, rep.Categories[0].Remaining.Cents)
	assert.Equal(t, 100.0, rep.Categories[0].ConsumedPct)
	assert.True(t, rep.Categories[0].Overspent)
}

func TestBudgetPace(t *testing.T) {
	cats := []core.Category{{ID: "all", Name: "Tudo", Type: core.CategoryBoth, Budget: money(100000)}}
	// 15 of 30 days of April elapsed.
	today := core.NewDate(2024, time.April, 15)

	cases := []struct {
		name  string
		spent int64
		want  Pace
	}{
		{"critical", 101000, PaceCritical},
		{"exactly the budget", 100000, PaceFast},
		{"fast", 61000, PaceFast},
		{"upper tolerance", 60000, PaceOnTrack},
		{"on track", 50000, PaceOnTrack},
		{"lower tolerance", 40000, PaceOnTrack},
		{"slow", 39000, PaceSlow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			txs := []core.Transaction{tx("2024-04-01", core.Expense, tc.spent, "x", "all")}
			rep := Budget(txs, cats, nil, 2024, time.April, today)
			assert.InDelta(t, 50.0, rep.DaysPassedPct, 1e-9)
			assert.Equal(t, tc.want, rep.Pace)
		})
	}
}

func TestBudgetWithoutBudgetsIsOnTrack(t *testing.T) {
	txs := []core.Transaction{tx("2024-04-01", core.Expense, 50000, "x", "")}
	rep := Budget(txs, nil, nil, 2024, time.April, core.NewDate(2024, time.April, 2))

	assert.Equal(t, PaceOnTrack, rep.Pace)
	assert.Zero(t, rep.TotalBudget.Cents)
	assert.Zero(t, rep.Remaining.Cents)
	assert.False(t, rep.Exhausted)
	assert.Zero(t, rep.BudgetConsumedPct)
}

func TestBudgetBuckets(t *testing.T) {
	rent := tx("2024-05-05", core.Expense, 150000, "Aluguel", "")
	rent.IsFixed = true
	phone := tx("2024-05-10", core.Expense, 30000, "Celular 3/10", "")
	phone.InstallmentNumber, phone.InstallmentTotal = 3, 10
	single := tx("2024-05-11", core.Expense, 20000, "Cinema", "")
	single.InstallmentNumber, single.InstallmentTotal = 1, 1

	rep := Budget([]core.Transaction{rent, phone, single}, nil, nil, 2024, time.May, core.NewDate(2024, time.May, 20))

	assert.Equal(t, int64(150000), rep.FixedCosts.Cents)
	assert.Equal(t, int64(30000), rep.CommittedInstallments.Cents)
	assert.Equal(t, int64(20000), rep.VariableSpent.Cents)
	assert.Equal(t, rep.TotalSpent.Cents, rep.FixedCosts.Cents+rep.CommittedInstallments.Cents+rep.VariableSpent.Cents)
	require.Len(t, rep.FixedItems, 1)
	require.Len(t, rep.InstallmentItems, 1)
	assert.Equal(t, "Celular 3/10", rep.InstallmentItems[0].Title)
}

func TestBudgetAlertCategoryPicksLargestOverspend(t *testing.T) {
	cats := []core.Category{
		{ID: "a", Name: "A", Type: core.CategoryExpense, Budget: money(1000)},
		{ID: "b", Name: "B", Type: core.CategoryExpense, Budget: money(5000)},
		{ID: "c", Name: "C", Type: core.CategoryExpense, Budget: money(9000)},
	}
	txs := []core.Transaction{
		tx("2024-06-01", core.Expense, 3000, "x", "a"), // over by 2000
		tx("2024-06-02", core.Expense, 9000, "y", "b"), // over by 4000
		tx("2024-06-03", core.Expense, 1000, "z", "c"),
	}
	rep := Budget(txs, cats, nil, 2024, time.June, core.NewDate(2024, time.June, 5))

	require.NotNil(t, rep.AlertCategory)
	assert.Equal(t, "b", rep.AlertCategory.ID)
	assert.Equal(t, int64(4000), rep.AlertCategory.Overspend().Cents)
}

func TestBudgetGoals(t *testing.T) {
	deadline := core.NewDate(2024, time.December, 1)
	goals := []core.FinancialGoal{
		{ID: "trip", Name: "Viagem", TargetAmount: money(100000), CurrentAmount: money(40000), Deadline: &deadline},
		{ID: "done", Name: "Reserva", TargetAmount: money(5000), CurrentAmount: money(8000)},
	}
	rep := Budget(nil, nil, goals, 2024, time.June, core.NewDate(2024, time.June, 15))

	require.Len(t, rep.Goals, 2)
	trip := rep.Goals[0]
	assert.InDelta(t, 40.0, trip.Progress, 1e-9)
	assert.Equal(t, int64(60000), trip.Remaining.Cents)
	assert.Equal(t, 6, trip.MonthsLeft)
	assert.Equal(t, int64(10000), trip.MonthlyNeeded.Cents)

	done := rep.Goals[1]
	assert.Equal(t, 100.0, done.Progress)
	assert.Zero(t, done.Remaining.Cents)
	assert.Zero(t, done.MonthlyNeeded.Cents)

	assert.Equal(t, int64(105000), rep.GoalsTarget.Cents)
	assert.Equal(t, int64(48000), rep.GoalsSaved.Cents)
}

func TestDaysPassedPct(t *testing.T) {
	today := core.NewDate(2024, time.February, 29)
	assert.Equal(t, 100.0, DaysPassedPct(2024, time.January, today))
	assert.Equal(t, 100.0, DaysPassedPct(2024, time.February, today))
	assert.Equal(t, 0.0, DaysPassedPct(2024, time.March, today))
	assert.Equal(t, 100.0, DaysPassedPct(2023, time.December, today))
	assert.Equal(t, 0.0, DaysPassedPct(2025, time.January, today))
}

func TestEmptyBudgetReportIsRenderable(t *testing.T) {
	rep := EmptyBudgetReport(2024, time.March)
	assert.Equal(t, PaceOnTrack, rep.Pace)
	assert.NotNil(t, rep.Categories)
	assert.NotNil(t, rep.Goals)
	assert.NotNil(t, rep.FixedItems)
	assert.NotNil(t, rep.InstallmentItems)
	assert.Nil(t, rep.AlertCategory)
}
