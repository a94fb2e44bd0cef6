package metrics

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carteira/internal/core"
)

func tx(date string, typ core.TransactionType, cents int64, title, category string) core.Transaction {
	return core.Transaction{
		ID:         fmt.Sprintf("%s-%s-%d", date, title, cents),
		Date:       core.MustParseDate(date),
		Amount:     core.Money{Cents: cents},
		Type:       typ,
		Title:      title,
		CategoryID: category,
	}
}

func money(c int64) core.Money { return core.Money{Cents: c} }

func TestAggregateEmpty(t *testing.T) {
	res := Aggregate(nil, core.NewDate(2024, time.March, 15))
	assert.Zero(t, res.Balance.Cents)
	assert.Zero(t, res.MonthIncome.Cents)
	assert.Zero(t, res.YearExpense.Cents)
	assert.Empty(t, res.CategoryExpense)
	assert.Empty(t, res.Frequency)
	assert.Nil(t, res.LastTransaction)
}

func TestAggregateBuckets(t *testing.T) {
	today := core.NewDate(2024, time.March, 15)
	txs := []core.Transaction{
		tx("2024-03-28", core.Expense, 5000, "Aluguel", "home"), // future, current month
		tx("2024-03-10", core.Income, 300000, "Salário", ""),
		tx("2024-03-05", core.Expense, 10000, "Mercado", "food"),
		tx("2024-03-02", core.Expense, 2000, "Uber", ""),
		tx("2024-02-20", core.Expense, 8000, "Mercado", "food"),
		tx("2024-02-10", core.Income, 250000, "Salário", ""),
		tx("2023-12-30", core.Expense, 4000, "Presente", "gifts"),
	}

	res := Aggregate(txs, today)

	assert.Equal(t, int64(300000+250000-10000-2000-8000-4000), res.Balance.Cents)
	assert.Equal(t, int64(300000), res.MonthIncome.Cents)
	assert.Equal(t, int64(5000+10000+2000), res.MonthExpense.Cents)
	assert.Equal(t, int64(250000), res.PrevMonthIncome.Cents)
	assert.Equal(t, int64(8000), res.PrevMonthExpense.Cents)
	assert.Equal(t, int64(550000), res.YearIncome.Cents)
	assert.Equal(t, int64(25000), res.YearExpense.Cents)
	assert.Equal(t, int64(5000), res.ScheduledExpense.Cents)
	assert.Equal(t, map[string]core.Money{"home": money(5000), "food": money(10000), "": money(2000)}, res.CategoryExpense)

	require.NotNil(t, res.LastTransaction)
	assert.Equal(t, "Salário", res.LastTransaction.Title)

	require.Len(t, res.Frequency, 3, "income and last year's rows are not counted")
	assert.Equal(t, "aluguel", res.Frequency[0].Key)
	assert.Equal(t, "mercado", res.Frequency[1].Key)
	assert.Equal(t, 2, res.Frequency[1].Count)
	assert.Equal(t, int64(10000), res.Frequency[1].Amount.Cents, "first seen amount is kept")
}

func TestAggregatePreviousMonthAcrossYear(t *testing.T) {
	today := core.NewDate(2024, time.January, 10)
	txs := []core.Transaction{
		tx("2023-12-15", core.Expense, 700, "Café", ""),
		tx("2023-12-01", core.Income, 1000, "Pix", ""),
	}
	res := Aggregate(txs, today)
	assert.Equal(t, int64(700), res.PrevMonthExpense.Cents)
	assert.Equal(t, int64(1000), res.PrevMonthIncome.Cents)
	assert.Zero(t, res.YearExpense.Cents, "december belongs to the previous year")
}

func TestBalanceIgnoresFutureTransactions(t *testing.T) {
	today := core.NewDate(2024, time.June, 1)
	base := []core.Transaction{
		tx("2024-05-31", core.Income, 10000, "Freela", ""),
		tx("2024-06-01", core.Expense, 2500, "Farmácia", ""),
	}
	before := Aggregate(base, today).Balance

	withFuture := append([]core.Transaction{tx("2024-06-02", core.Expense, 99999, "Viagem", "")}, base...)
	after := Aggregate(withFuture, today).Balance

	assert.Equal(t, int64(7500), before.Cents)
	assert.Equal(t, before, after)
}

func TestFrequencyKeyNormalizes(t *testing.T) {
	today := core.NewDate(2024, time.May, 20)
	txs := []core.Transaction{
		tx("2024-05-10", core.Expense, 1500, "  UBER ", ""),
		tx("2024-05-09", core.Expense, 1700, "uber", ""),
		tx("2024-05-08", core.Expense, 1800, "Uber", ""),
	}
	res := Aggregate(txs, today)
	require.Len(t, res.Frequency, 1)
	assert.Equal(t, 3, res.Frequency[0].Count)
}

func TestClassifyHealthBoundaries(t *testing.T) {
	for _, e := range []int64{100, 1000, 12345 * 100, 7} {
		e := e * 100
		assert.Equal(t, HealthExcellent, ClassifyHealth(money(e*120/100), money(e)), "E=%d", e)
		assert.Equal(t, HealthGood, ClassifyHealth(money(e*105/100), money(e)), "E=%d", e)
		assert.Equal(t, HealthStable, ClassifyHealth(money(e*90/100), money(e)), "E=%d", e)
		assert.Equal(t, HealthCritical, ClassifyHealth(money(e*89/100), money(e)), "E=%d", e)
	}
	assert.Equal(t, HealthGood, ClassifyHealth(money(119), money(100)))
	assert.Equal(t, HealthStable, ClassifyHealth(money(104), money(100)))
}

func TestClassifyHealthWithoutExpense(t *testing.T) {
	assert.Equal(t, HealthExcellent, ClassifyHealth(money(0), money(0)))
	assert.Equal(t, HealthExcellent, ClassifyHealth(money(123), money(0)))
	assert.Equal(t, 2.0, HealthRatio(money(123), money(0)))
}

func TestVariation(t *testing.T) {
	assert.Equal(t, 0.0, Variation(money(100), money(0)))
	assert.Equal(t, 0.0, Variation(money(0), money(0)))
	assert.Equal(t, 50.0, Variation(money(150), money(100)))
	assert.Equal(t, -25.0, Variation(money(75), money(100)))

	v := Variation(money(100), money(0))
	assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
}

func TestSavingsRate(t *testing.T) {
	assert.Equal(t, 0.0, SavingsRate(money(0), money(100)))
	assert.Equal(t, 25.0, SavingsRate(money(400), money(300)))
}

func TestTopExpensesByFrequency(t *testing.T) {
	var txs []core.Transaction
	add := func(title string, n int) {
		for i := 0; i < n; i++ {
			txs = append(txs, tx("2024-04-01", core.Expense, 1000, title, "c-"+title))
		}
	}
	add("ifood", 3)
	add("uber", 5)
	add("netflix", 3)

	res := Aggregate(txs, core.NewDate(2024, time.April, 30))
	top := TopExpensesByFrequency(res.Frequency, 2)

	require.Len(t, top, 2)
	assert.Equal(t, ExpenseShortcut{Title: "Uber", Count: 5, CategoryID: "c-uber", Amount: money(1000)}, top[0])
	assert.Equal(t, "Ifood", top[1].Title, "ties keep first-seen order")
	assert.Equal(t, 3, top[1].Count)

	assert.Empty(t, TopExpensesByFrequency(res.Frequency, 0))
	assert.Len(t, TopExpensesByFrequency(res.Frequency, 10), 3)
}

func TestCapitalizeIsRuneAware(t *testing.T) {
	assert.Equal(t, "Água", capitalize("água"))
	assert.Equal(t, "", capitalize(""))
}

func TestBiggestExpenseFirstSeenWins(t *testing.T) {
	txs := []core.Transaction{
		tx("2024-03-20", core.Expense, 5000, "first", ""),
		tx("2024-03-10", core.Expense, 5000, "second", ""),
		tx("2024-03-05", core.Income, 90000, "salary", ""),
		tx("2024-02-05", core.Expense, 90000, "last month", ""),
	}
	got := BiggestExpense(txs, 2024, time.March)
	require.NotNil(t, got)
	assert.Equal(t, "first", got.Title)
	assert.Nil(t, BiggestExpense(txs, 2024, time.January))
}

func TestTopCategoryOf(t *testing.T) {
	cats := []core.Category{
		{ID: "food", Name: "Alimentação", Color: "#f00"},
		{ID: "fun", Name: "Lazer", Color: "#0f0"},
	}
	top := TopCategoryOf(map[string]core.Money{"food": money(300), "fun": money(200), "": money(50)}, cats)
	require.NotNil(t, top)
	assert.Equal(t, TopCategory{ID: "food", Name: "Alimentação", Total: money(300), Color: "#f00"}, *top)

	tie := TopCategoryOf(map[string]core.Money{"fun": money(300), "food": money(300)}, cats)
	require.NotNil(t, tie)
	assert.Equal(t, "food", tie.ID)

	unknown := TopCategoryOf(map[string]core.Money{"ghost": money(10)}, cats)
	require.NotNil(t, unknown)
	assert.Equal(t, UncategorizedName, unknown.Name)

	assert.Nil(t, TopCategoryOf(map[string]core.Money{}, cats))
}

func TestCategoryBreakdown(t *testing.T) {
	cats := []core.Category{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	rows := CategoryBreakdown(map[string]core.Money{"a": money(250), "b": money(750)}, cats)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].ID)
	assert.InDelta(t, 75.0, rows[0].Share, 1e-9)
	assert.InDelta(t, 25.0, rows[1].Share, 1e-9)
	assert.Empty(t, CategoryBreakdown(nil, cats))
}

func TestDashboard(t *testing.T) {
	today := core.NewDate(2024, time.March, 15)
	txs := []core.Transaction{
		tx("2024-03-30", core.Income, 50000, "Bônus", ""),
		tx("2024-03-25", core.Expense, 20000, "Cartão", ""),
		tx("2024-03-10", core.Income, 300000, "Salário", ""),
		tx("2024-03-05", core.Expense, 100000, "Aluguel", "home"),
		tx("2024-02-10", core.Income, 200000, "Salário", ""),
		tx("2024-02-05", core.Expense, 100000, "Aluguel", "home"),
	}

	d := Dashboard(txs, today)

	assert.Equal(t, int64(300000-100000+200000-100000), d.Balance.Cents)
	assert.Equal(t, int64(350000), d.Income.Cents)
	assert.Equal(t, int64(120000), d.Expense.Cents)
	assert.InDelta(t, 75.0, d.MonthVariationIncome, 1e-9)
	assert.InDelta(t, 20.0, d.MonthVariationExpense, 1e-9)
	assert.Equal(t, d.Balance.Cents+50000-20000, d.ProjectedBalance.Cents)
	assert.Equal(t, HealthExcellent, d.FinancialHealth)
	assert.Equal(t, int64(550000-220000), d.YearlySavings.Cents)
	require.NotNil(t, d.LastTransaction)
	assert.Equal(t, "Salário", d.LastTransaction.Title)
	require.Len(t, d.TopExpenses, 2)
	assert.Equal(t, "Aluguel", d.TopExpenses[0].Title)
}

func TestDashboardIsIdempotent(t *testing.T) {
	today := core.NewDate(2024, time.March, 15)
	txs := []core.Transaction{
		tx("2024-03-10", core.Income, 300000, "Salário", ""),
		tx("2024-03-05", core.Expense, 100000, "Aluguel", "home"),
		tx("2024-03-04", core.Expense, 1200, "uber", "transport"),
		tx("2024-03-03", core.Expense, 1300, "Uber", "transport"),
	}
	cats := []core.Category{{ID: "home", Name: "Casa", Type: core.CategoryExpense, Budget: money(150000)}}

	assert.Equal(t, Dashboard(txs, today), Dashboard(txs, today))
	assert.Equal(t, Insight(txs, cats, 2024, time.March, today), Insight(txs, cats, 2024, time.March, today))
	assert.Equal(t, Budget(txs, cats, nil, 2024, time.March, today), Budget(txs, cats, nil, 2024, time.March, today))
}

func TestInsightForPastMonth(t *testing.T) {
	today := core.NewDate(2024, time.May, 2)
	cats := []core.Category{{ID: "food", Name: "Alimentação", Color: "#fa0"}}
	txs := []core.Transaction{
		tx("2024-05-01", core.Expense, 999, "Padaria", "food"),
		tx("2024-03-20", core.Expense, 4000, "Feira", "food"),
		tx("2024-03-02", core.Income, 10000, "Salário", ""),
		tx("2024-02-10", core.Expense, 2000, "Feira", "food"),
		tx("2024-02-01", core.Income, 8000, "Salário", ""),
	}

	in := Insight(txs, cats, 2024, time.March, today)

	assert.Equal(t, int64(10000), in.Income.Cents)
	assert.Equal(t, int64(4000), in.Expense.Cents)
	assert.Equal(t, int64(6000), in.Savings.Cents)
	assert.InDelta(t, 60.0, in.SavingsRate, 1e-9)
	assert.InDelta(t, 25.0, in.IncomeVariation, 1e-9)
	assert.InDelta(t, 100.0, in.ExpenseVariation, 1e-9)
	require.NotNil(t, in.BiggestExpense)
	assert.Equal(t, "Feira", in.BiggestExpense.Title)
	require.NotNil(t, in.TopCategory)
	assert.Equal(t, "Alimentação", in.TopCategory.Name)
	assert.Equal(t, "#fa0", in.TopCategory.Color)
}

func TestStreak(t *testing.T) {
	today := core.NewDate(2024, time.March, 10)
	cases := []struct {
		name  string
		dates []string
		want  StreakStats
	}{
		{"no activity", nil, StreakStats{}},
		{"active today", []string{"2024-03-10", "2024-03-09", "2024-03-08"}, StreakStats{Current: 3, Max: 3}},
		{"last active yesterday", []string{"2024-03-09", "2024-03-08"}, StreakStats{Current: 2, Max: 2}},
		{"broken streak", []string{"2024-03-07", "2024-03-06"}, StreakStats{Current: 0, Max: 2}},
		{"longer history run", []string{"2024-03-10", "2024-02-01", "2024-02-02", "2024-02-03", "2024-02-04"}, StreakStats{Current: 1, Max: 4}},
		{"future ignored", []string{"2024-03-11", "2024-03-12"}, StreakStats{}},
		{"same day twice", []string{"2024-03-10", "2024-03-10"}, StreakStats{Current: 1, Max: 1}},
		{"across month end", []string{"2024-03-01", "2024-02-29", "2024-02-28"}, StreakStats{Current: 0, Max: 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var txs []core.Transaction
			for _, d := range tc.dates {
				txs = append(txs, tx(d, core.Expense, 100, "x", ""))
			}
			assert.Equal(t, tc.want, Streak(txs, today))
		})
	}
}

// A date-only row must stay in its month whatever the process timezone is.
func TestTimezoneNormalization(t *testing.T) {
	orig := time.Local
	t.Cleanup(func() { time.Local = orig })

	for _, offset := range []int{-12, -3, 0, 5, 9, 14} {
		loc := time.FixedZone(fmt.Sprintf("UTC%+d", offset), offset*3600)
		time.Local = loc

		row := core.Transaction{
			Date:   core.MustParseDate("2024-01-31"),
			Amount: money(1000),
			Type:   core.Expense,
			Title:  "fim de mês",
		}
		// Midday on Jan 31st in the user's zone.
		now := time.Date(2024, time.January, 31, 12, 0, 0, 0, loc)
		today := core.DateOf(now, loc)

		res := Aggregate([]core.Transaction{row}, today)
		assert.Equal(t, int64(1000), res.MonthExpense.Cents, "offset %d", offset)
		assert.Equal(t, int64(-1000), res.Balance.Cents, "offset %d", offset)

		rep := Budget([]core.Transaction{row}, nil, nil, 2024, time.January, today)
		assert.Equal(t, int64(1000), rep.TotalSpent.Cents, "offset %d", offset)
	}
}
