// Package metrics derives dashboard, insight and budget figures from a
// snapshot of a user's transactions.
//
// Every function here is pure: the same snapshot and reference date always
// produce the same result, and nothing is cached between calls. Callers
// recompute whenever the underlying collections change.
package metrics

import (
	"strings"

	"carteira/internal/core"
)

// FrequencyEntry counts how often an expense title occurred during the year.
// Amount and CategoryID come from the first occurrence seen.
type FrequencyEntry struct {
	Key        string     `json:"key"`
	Count      int        `json:"count"`
	Amount     core.Money `json:"amount"`
	CategoryID string     `json:"categoryId,omitempty"`
}

// AggregateResult holds the period buckets of a single pass over a snapshot.
type AggregateResult struct {
	Today core.Date

	// Balance covers every transaction dated on or before Today.
	Balance core.Money

	MonthIncome  core.Money
	MonthExpense core.Money

	PrevMonthIncome  core.Money
	PrevMonthExpense core.Money

	YearIncome  core.Money
	YearExpense core.Money

	// Current-month rows dated after Today.
	ScheduledIncome  core.Money
	ScheduledExpense core.Money

	// CategoryExpense is current-month expense per category id; "" collects
	// uncategorised rows.
	CategoryExpense map[string]core.Money

	// Frequency lists current-year expense titles in first-seen order.
	Frequency []FrequencyEntry

	LastTransaction *core.Transaction
}

// FrequencyKey normalises a title for recurring-expense detection.
func FrequencyKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Aggregate scans txs once. txs is expected newest first (date desc, ties in
// creation order) so the first row on or before today is the last transaction.
func Aggregate(txs []core.Transaction, today core.Date) AggregateResult {
	res := AggregateResult{
		Today:           today,
		CategoryExpense: make(map[string]core.Money),
		Frequency:       []FrequencyEntry{},
	}

	year, month := today.Year(), today.Month()
	prevYear, prevMonth := core.PreviousMonth(year, month)
	freqIndex := make(map[string]int)

	for i := range txs {
		tx := txs[i]
		cents := tx.Amount.Cents
		isIncome := tx.Type == core.Income
		isExpense := tx.Type == core.Expense
		if !isIncome && !isExpense {
			continue
		}

		pastOrToday := tx.Date.OnOrBefore(today)
		if pastOrToday {
			if isIncome {
				res.Balance.Cents += cents
			} else {
				res.Balance.Cents -= cents
			}
			if res.LastTransaction == nil {
				last := tx
				res.LastTransaction = &last
			}
		}

		switch {
		case tx.Date.InMonth(year, month):
			if isIncome {
				res.MonthIncome.Cents += cents
			} else {
				res.MonthExpense.Cents += cents
				spent := res.CategoryExpense[tx.CategoryID]
				spent.Cents += cents
				res.CategoryExpense[tx.CategoryID] = spent
			}
			if !pastOrToday {
				if isIncome {
					res.ScheduledIncome.Cents += cents
				} else {
					res.ScheduledExpense.Cents += cents
				}
			}
		case tx.Date.InMonth(prevYear, prevMonth):
			if isIncome {
				res.PrevMonthIncome.Cents += cents
			} else {
				res.PrevMonthExpense.Cents += cents
			}
		}

		if tx.Date.Year() == year {
			if isIncome {
				res.YearIncome.Cents += cents
				continue
			}
			res.YearExpense.Cents += cents

			key := FrequencyKey(tx.Title)
			if key == "" {
				continue
			}
			if idx, ok := freqIndex[key]; ok {
				res.Frequency[idx].Count++
				continue
			}
			freqIndex[key] = len(res.Frequency)
			res.Frequency = append(res.Frequency, FrequencyEntry{
				Key:        key,
				Count:      1,
				Amount:     tx.Amount,
				CategoryID: tx.CategoryID,
			})
		}
	}

	return res
}
