package metrics

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"carteira/internal/core"
)

// UncategorizedName labels spend whose category id is unknown or empty.
const UncategorizedName = "Sem categoria"

// ExpenseShortcut is a quick-add suggestion built from a frequent expense title.
type ExpenseShortcut struct {
	Title      string     `json:"title"`
	Count      int        `json:"count"`
	CategoryID string     `json:"categoryId,omitempty"`
	Amount     core.Money `json:"amount"`
}

// TopCategory is the category with the largest spend in a month.
type TopCategory struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Total core.Money `json:"total"`
	Color string     `json:"color,omitempty"`
}

// CategoryShare is one row of a month's spend breakdown.
type CategoryShare struct {
	TopCategory
	Share float64 `json:"share"`
}

// TopExpensesByFrequency ranks entries by count, keeping first-seen order
// among equal counts, and returns at most limit shortcuts.
func TopExpensesByFrequency(entries []FrequencyEntry, limit int) []ExpenseShortcut {
	if limit <= 0 || len(entries) == 0 {
		return []ExpenseShortcut{}
	}
	ranked := make([]FrequencyEntry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]ExpenseShortcut, 0, len(ranked))
	for _, e := range ranked {
		out = append(out, ExpenseShortcut{
			Title:      capitalize(e.Key),
			Count:      e.Count,
			CategoryID: e.CategoryID,
			Amount:     e.Amount,
		})
	}
	return out
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// BiggestExpense returns the largest expense dated in the given month. The
// first one seen wins a tie.
func BiggestExpense(txs []core.Transaction, year int, month time.Month) *core.Transaction {
	var biggest *core.Transaction
	for i := range txs {
		tx := txs[i]
		if tx.Type != core.Expense || !tx.Date.InMonth(year, month) {
			continue
		}
		if biggest == nil || tx.Amount.Cents > biggest.Amount.Cents {
			found := tx
			biggest = &found
		}
	}
	return biggest
}

// TopCategoryOf picks the category with the largest spend. Equal totals go to
// the smallest id so the answer does not depend on map order.
func TopCategoryOf(spend map[string]core.Money, categories []core.Category) *TopCategory {
	var (
		bestID string
		best   int64
		found  bool
	)
	for id, total := range spend {
		if total.Cents <= 0 {
			continue
		}
		if !found || total.Cents > best || (total.Cents == best && id < bestID) {
			bestID, best, found = id, total.Cents, true
		}
	}
	if !found {
		return nil
	}
	top := resolveCategory(bestID, categories)
	top.Total = core.Money{Cents: best}
	return &top
}

// CategoryBreakdown lists every category with spend, largest first, with its
// share of the month total.
func CategoryBreakdown(spend map[string]core.Money, categories []core.Category) []CategoryShare {
	var total int64
	for _, m := range spend {
		if m.Cents > 0 {
			total += m.Cents
		}
	}
	out := make([]CategoryShare, 0, len(spend))
	if total == 0 {
		return out
	}
	for id, m := range spend {
		if m.Cents <= 0 {
			continue
		}
		c := resolveCategory(id, categories)
		c.Total = m
		out = append(out, CategoryShare{
			TopCategory: c,
			Share:       float64(m.Cents) / float64(total) * 100,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func resolveCategory(id string, categories []core.Category) TopCategory {
	for _, c := range categories {
		if c.ID == id && id != "" {
			name := strings.TrimSpace(c.Name)
			if name == "" {
				name = UncategorizedName
			}
			return TopCategory{ID: id, Name: name, Color: c.Color}
		}
	}
	return TopCategory{ID: id, Name: UncategorizedName}
}
