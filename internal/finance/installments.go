// Package finance splits purchases into monthly installments.
package finance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"carteira/internal/core"
)

// MaxInstallments bounds how many months one purchase can be spread over.
const MaxInstallments = 120

var (
	ErrInvalidCount = errors.New("installment count must be between 1 and 120")
	ErrInvalidRate  = errors.New("interest rate must be between 0 and 100")
)

// PurchaseRequest describes one purchase paid in monthly installments.
type PurchaseRequest struct {
	Title        string     `json:"title"`
	CategoryID   string     `json:"categoryId"`
	Amount       core.Money `json:"amount"` // principal
	Installments int        `json:"installments"`
	MonthlyRate  float64    `json:"interestRate"` // percent per month, 0 for interest-free
	FirstDate    core.Date  `json:"date"`
}

func (r PurchaseRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return core.ErrEmptyTitle
	}
	if err := r.FirstDate.Validate(); err != nil {
		return err
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if r.Installments < 1 || r.Installments > MaxInstallments {
		return ErrInvalidCount
	}
	if r.MonthlyRate < 0 || r.MonthlyRate > 100 {
		return ErrInvalidRate
	}
	return nil
}

// Installments expands req into one expense per month. Installment k is dated
// k-1 months after FirstDate. A single installment yields a plain expense.
//
// With a positive rate each installment is the Price (French) payment
// PMT = P*i / (1 - (1+i)^-n) rounded to cents, and every row carries the
// financing details; the total interest is whatever the rounded payments add
// on top of the principal. Without interest the principal is split evenly and
// the leftover cents go to the first installment.
func Installments(req PurchaseRequest) ([]core.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("purchase %q: %w", req.Title, err)
	}
	n := req.Installments

	amounts := evenSplit(req.Amount, n)
	var fin *core.FinancingDetails
	if req.MonthlyRate > 0 {
		pmt := Payment(req.Amount, req.MonthlyRate, n)
		amounts = make([]core.Money, n)
		for k := range amounts {
			amounts[k] = pmt
		}
		fin = &core.FinancingDetails{
			InterestRate:  req.MonthlyRate,
			LoanAmount:    req.Amount,
			TotalInterest: core.Money{Cents: pmt.Cents*int64(n) - req.Amount.Cents},
		}
	}

	groupID := ""
	if n > 1 {
		groupID = uuid.NewString()
	}

	out := make([]core.Transaction, n)
	for k := 0; k < n; k++ {
		tx := core.Transaction{
			Date:               req.FirstDate.AddMonths(k),
			Amount:             amounts[k],
			Type:               core.Expense,
			Title:              req.Title,
			CategoryID:         req.CategoryID,
			InstallmentGroupID: groupID,
		}
		if n > 1 {
			tx.InstallmentNumber = k + 1
			tx.InstallmentTotal = n
		}
		if fin != nil {
			f := *fin
			tx.Financing = &f
		}
		out[k] = tx
	}
	return out, nil
}

// Payment returns the fixed monthly payment of a loan of principal over n
// months at ratePct percent a month.
func Payment(principal core.Money, ratePct float64, n int) core.Money {
	if n < 1 {
		return principal
	}
	p := principal.Decimal()
	if ratePct <= 0 {
		return core.MoneyFromDecimal(p.Div(decimal.NewFromInt(int64(n))))
	}
	i := decimal.NewFromFloat(ratePct).Div(decimal.NewFromInt(100))
	growth := decimal.NewFromInt(1).Add(i).Pow(decimal.NewFromInt(int64(n)))
	discount := decimal.NewFromInt(1).Sub(decimal.NewFromInt(1).Div(growth))
	return core.MoneyFromDecimal(p.Mul(i).Div(discount))
}

func evenSplit(total core.Money, n int) []core.Money {
	base := total.Cents / int64(n)
	rem := total.Cents % int64(n)
	out := make([]core.Money, n)
	for k := range out {
		out[k] = core.Money{Cents: base}
	}
	out[0].Cents += rem
	return out
}
