package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"carteira/internal/core"
	"carteira/internal/finance"
)

const (
	maxBodyBytes     = 1 << 20
	defaultShortcuts = 10
	maxShortcuts     = 50
)

var errBadRequest = errors.New("bad request")

// amountInput accepts integer cents or a formatted string such as "1.234,56".
type amountInput core.Money

func (a *amountInput) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		cents, err := core.ParseAmount(s)
		if err != nil {
			return err
		}
		a.Cents = cents
		return nil
	}
	var m core.Money
	if err := m.UnmarshalJSON(b); err != nil {
		return err
	}
	*a = amountInput(m)
	return nil
}

func (a amountInput) money() core.Money { return core.Money(a) }

type transactionRequest struct {
	Date       core.Date            `json:"date"`
	Amount     amountInput          `json:"amount"`
	Type       core.TransactionType `json:"type"`
	Title      string               `json:"title"`
	CategoryID string               `json:"categoryId"`
	IsFixed    bool                 `json:"isFixed"`
}

func (t transactionRequest) transaction() core.Transaction {
	return core.Transaction{
		Date:       t.Date,
		Amount:     t.Amount.money(),
		Type:       core.TransactionType(strings.ToLower(string(t.Type))),
		Title:      strings.TrimSpace(t.Title),
		CategoryID: t.CategoryID,
		IsFixed:    t.IsFixed,
	}
}

type purchaseRequest struct {
	Title        string      `json:"title"`
	CategoryID   string      `json:"categoryId"`
	Amount       amountInput `json:"amount"`
	Installments int         `json:"installments"`
	InterestRate float64     `json:"interestRate"`
	Date         core.Date   `json:"date"`
}

func (p purchaseRequest) purchase() finance.PurchaseRequest {
	return finance.PurchaseRequest{
		Title:        strings.TrimSpace(p.Title),
		CategoryID:   p.CategoryID,
		Amount:       p.Amount.money(),
		Installments: p.Installments,
		MonthlyRate:  p.InterestRate,
		FirstDate:    p.Date,
	}
}

type categoryRequest struct {
	Name   string            `json:"name"`
	Type   core.CategoryType `json:"type"`
	Budget amountInput       `json:"budget"`
	Color  string            `json:"color"`
}

func (c categoryRequest) category() core.Category {
	return core.Category{
		Name:   strings.TrimSpace(c.Name),
		Type:   core.CategoryType(strings.ToLower(string(c.Type))),
		Budget: c.Budget.money(),
		Color:  c.Color,
	}
}

type goalRequest struct {
	Name          string      `json:"name"`
	TargetAmount  amountInput `json:"targetAmount"`
	CurrentAmount amountInput `json:"currentAmount"`
	Deadline      *core.Date  `json:"deadline"`
}

func (g goalRequest) goal() core.FinancialGoal {
	goal := core.FinancialGoal{
		Name:          strings.TrimSpace(g.Name),
		TargetAmount:  g.TargetAmount.money(),
		CurrentAmount: g.CurrentAmount.money(),
	}
	if g.Deadline != nil && !g.Deadline.IsZero() {
		goal.Deadline = g.Deadline
	}
	return goal
}

// decodeJSON reads a single JSON object from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

// parseMonth reads year and month from the query, defaulting to the month
// containing today.
func parseMonth(r *http.Request, today core.Date) (int, time.Month, error) {
	year, month := today.Year(), today.Month()
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return 0, 0, fmt.Errorf("%w: invalid year %q", errBadRequest, v)
		}
		year = y
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, fmt.Errorf("%w: invalid month %q", errBadRequest, v)
		}
		month = time.Month(m)
	}
	return year, month, nil
}

func parseLimit(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return defaultShortcuts, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: invalid limit %q", errBadRequest, v)
	}
	return min(n, maxShortcuts), nil
}
