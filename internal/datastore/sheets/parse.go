package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"carteira/internal/core"
)

// Header aliases, compared case-insensitively.
var (
	colID          = []string{"id"}
	colUser        = []string{"user", "usuario", "usuário"}
	colDate        = []string{"date", "data"}
	colTitle       = []string{"title", "description", "descrição", "descricao", "título", "titulo"}
	colAmount      = []string{"amount", "valor"}
	colType        = []string{"type", "tipo"}
	colCategory    = []string{"category", "categoria", "category_id"}
	colFixed       = []string{"fixed", "fixo", "is_fixed"}
	colInstallment = []string{"installment", "parcela"}
	colName        = []string{"name", "nome"}
	colBudget      = []string{"budget", "orçamento", "orcamento", "limite"}
	colColor       = []string{"color", "cor"}
	colTarget      = []string{"target", "meta", "target_amount"}
	colCurrent     = []string{"current", "atual", "saved", "current_amount"}
	colDeadline    = []string{"deadline", "prazo"}
)

type header map[string]int

func newHeader(row []any) header {
	h := make(header, len(row))
	for i, v := range row {
		key := strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
		if _, dup := h[key]; key != "" && !dup {
			h[key] = i
		}
	}
	return h
}

func (h header) index(aliases []string) int {
	for _, a := range aliases {
		if i, ok := h[a]; ok {
			return i
		}
	}
	return -1
}

func (h header) has(aliases []string) bool { return h.index(aliases) >= 0 }

func (h header) get(row []any, aliases []string) string {
	i := h.index(aliases)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

// ownedBy reports whether row belongs to userID; tabs without a user column
// belong to everyone.
func (h header) ownedBy(row []any, userID string) bool {
	if !h.has(colUser) {
		return true
	}
	return strings.EqualFold(h.get(row, colUser), userID)
}

func isBlank(row []any) bool {
	for _, v := range row {
		if strings.TrimSpace(fmt.Sprint(v)) != "" {
			return false
		}
	}
	return true
}

// ParseTransactions decodes the transactions tab. The first row is the
// header. Rows that cannot be decoded are returned as errors and left out.
func ParseTransactions(values [][]any, userID string) ([]core.Transaction, []error) {
	out := []core.Transaction{}
	if len(values) == 0 {
		return out, nil
	}
	h := newHeader(values[0])
	for _, required := range [][]string{colDate, colTitle, colAmount} {
		if !h.has(required) {
			return out, []error{fmt.Errorf("transactions: missing %q column", required[0])}
		}
	}

	var skipped []error
	for i := 1; i < len(values); i++ {
		row := values[i]
		if isBlank(row) || !h.ownedBy(row, userID) {
			continue
		}
		tx, err := parseTransactionRow(h, row, i)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("transactions row %d: %w", i+1, err))
			continue
		}
		out = append(out, tx)
	}
	return out, skipped
}

func parseTransactionRow(h header, row []any, index int) (core.Transaction, error) {
	date, err := parseSheetDate(h.get(row, colDate))
	if err != nil {
		return core.Transaction{}, err
	}
	cents, negative, err := parseSignedAmount(h.get(row, colAmount))
	if err != nil {
		return core.Transaction{}, err
	}

	typ := core.Expense
	if raw := h.get(row, colType); raw != "" {
		if typ, err = parseType(raw); err != nil {
			return core.Transaction{}, err
		}
	} else if !negative {
		typ = core.Income
	}

	tx := core.Transaction{
		ID:         h.get(row, colID),
		Date:       date,
		Amount:     core.Money{Cents: cents},
		Type:       typ,
		Title:      h.get(row, colTitle),
		CategoryID: h.get(row, colCategory),
		IsFixed:    parseBool(h.get(row, colFixed)),
		// Row order stands in for creation time.
		CreatedAt: time.Unix(int64(index), 0).UTC(),
	}
	if tx.ID == "" {
		tx.ID = fmt.Sprintf("row-%d", index+1)
	}
	if raw := h.get(row, colInstallment); raw != "" {
		n, total, err := parseInstallment(raw)
		if err != nil {
			return core.Transaction{}, err
		}
		tx.InstallmentNumber, tx.InstallmentTotal = n, total
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// ParseCategories decodes the categories tab.
func ParseCategories(values [][]any, userID string) ([]core.Category, []error) {
	out := []core.Category{}
	if len(values) == 0 {
		return out, nil
	}
	h := newHeader(values[0])
	if !h.has(colName) {
		return out, []error{fmt.Errorf("categories: missing %q column", colName[0])}
	}

	var skipped []error
	for i := 1; i < len(values); i++ {
		row := values[i]
		if isBlank(row) || !h.ownedBy(row, userID) {
			continue
		}
		c := core.Category{
			ID:    h.get(row, colID),
			Name:  h.get(row, colName),
			Type:  core.CategoryExpense,
			Color: h.get(row, colColor),
		}
		if c.ID == "" {
			c.ID = c.Name
		}
		if raw := strings.ToLower(h.get(row, colType)); raw != "" {
			c.Type = parseCategoryType(raw)
		}
		if raw := h.get(row, colBudget); raw != "" {
			cents, err := core.ParseAmount(raw)
			if err != nil {
				skipped = append(skipped, fmt.Errorf("categories row %d: %w", i+1, err))
				continue
			}
			c.Budget = core.Money{Cents: cents}
		}
		if err := c.Validate(); err != nil {
			skipped = append(skipped, fmt.Errorf("categories row %d: %w", i+1, err))
			continue
		}
		out = append(out, c)
	}
	return out, skipped
}

// ParseGoals decodes the goals tab.
func ParseGoals(values [][]any, userID string) ([]core.FinancialGoal, []error) {
	out := []core.FinancialGoal{}
	if len(values) == 0 {
		return out, nil
	}
	h := newHeader(values[0])
	if !h.has(colName) || !h.has(colTarget) {
		return out, []error{fmt.Errorf("goals: missing %q or %q column", colName[0], colTarget[0])}
	}

	var skipped []error
	for i := 1; i < len(values); i++ {
		row := values[i]
		if isBlank(row) || !h.ownedBy(row, userID) {
			continue
		}
		g, err := parseGoalRow(h, row)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("goals row %d: %w", i+1, err))
			continue
		}
		out = append(out, g)
	}
	return out, skipped
}

func parseGoalRow(h header, row []any) (core.FinancialGoal, error) {
	target, err := core.ParseAmount(h.get(row, colTarget))
	if err != nil {
		return core.FinancialGoal{}, err
	}
	g := core.FinancialGoal{
		ID:           h.get(row, colID),
		Name:         h.get(row, colName),
		TargetAmount: core.Money{Cents: target},
	}
	if g.ID == "" {
		g.ID = g.Name
	}
	if raw := h.get(row, colCurrent); raw != "" {
		cents, err := core.ParseAmount(raw)
		if err != nil {
			return core.FinancialGoal{}, err
		}
		g.CurrentAmount = core.Money{Cents: cents}
	}
	if raw := h.get(row, colDeadline); raw != "" {
		d, err := parseSheetDate(raw)
		if err != nil {
			return core.FinancialGoal{}, err
		}
		g.Deadline = &d
	}
	return g, g.Validate()
}

// parseSheetDate accepts ISO dates and the dd/mm/yyyy form spreadsheets
// display in pt-BR locales.
func parseSheetDate(s string) (core.Date, error) {
	if d, err := core.ParseDate(s); err == nil {
		return d, nil
	}
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
	}
	return core.NewDate(t.Year(), t.Month(), t.Day()), nil
}

func parseSignedAmount(s string) (int64, bool, error) {
	s = strings.TrimSpace(s)
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}
	cents, err := core.ParseAmount(s)
	if err != nil {
		return 0, false, err
	}
	return cents, negative, nil
}

func parseType(s string) (core.TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "receita", "entrada":
		return core.Income, nil
	case "expense", "despesa", "saída", "saida":
		return core.Expense, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrInvalidType, s)
}

func parseCategoryType(s string) core.CategoryType {
	switch s {
	case "income", "receita":
		return core.CategoryIncome
	case "both", "ambos":
		return core.CategoryBoth
	}
	return core.CategoryExpense
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "sim", "x", "1":
		return true
	}
	return false
}

// parseInstallment reads "3/10" as installment 3 of 10.
func parseInstallment(s string) (int, int, error) {
	num, total, ok := strings.Cut(s, "/")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", core.ErrInvalidInstall, s)
	}
	n, err1 := strconv.Atoi(strings.TrimSpace(num))
	t, err2 := strconv.Atoi(strings.TrimSpace(total))
	if err1 != nil || err2 != nil || n < 1 || n > t {
		return 0, 0, fmt.Errorf("%w: %q", core.ErrInvalidInstall, s)
	}
	return n, t, nil
}
