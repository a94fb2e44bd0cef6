package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
	CategoryBoth    CategoryType = "both"
)

const dateLayout = "2006-01-02"

type (
	TransactionType string
	CategoryType    string

	// Date is a calendar date without time-of-day semantics. The wrapped
	// time is always midnight UTC of that civil date.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// FinancingDetails is present on installments created from an amortized loan.
	FinancingDetails struct {
		InterestRate  float64 `json:"interestRate"` // monthly rate, percent
		LoanAmount    Money   `json:"loanAmount"`
		TotalInterest Money   `json:"totalInterest"`
	}

	Transaction struct {
		ID                 string            `json:"id"`
		Date               Date              `json:"date"`
		Amount             Money             `json:"amount"`
		Type               TransactionType   `json:"type"`
		Title              string            `json:"title"`
		CategoryID         string            `json:"categoryId,omitempty"` // empty for transfers
		IsFixed            bool              `json:"isFixed"`
		InstallmentNumber  int               `json:"installmentNumber,omitempty"`
		InstallmentTotal   int               `json:"installmentTotal,omitempty"`
		InstallmentGroupID string            `json:"installmentGroupId,omitempty"`
		Financing          *FinancingDetails `json:"financingDetails,omitempty"`
		CreatedAt          time.Time         `json:"createdAt"`
	}

	Category struct {
		ID     string       `json:"id"`
		Name   string       `json:"name"`
		Type   CategoryType `json:"type"`
		Budget Money        `json:"budget"` // monthly limit, zero means unset
		Color  string       `json:"color,omitempty"`
	}

	FinancialGoal struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		TargetAmount  Money  `json:"targetAmount"`
		CurrentAmount Money  `json:"currentAmount"`
		Deadline      *Date  `json:"deadline,omitempty"`
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("invalid type")
	ErrEmptyTitle      = errors.New("empty title")
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidBudget   = errors.New("invalid budget")
	ErrInvalidInstall  = errors.New("invalid installment")
	ErrNotFound        = errors.New("not found")
	ErrTitleTooLong    = errors.New("title too long (max 200 characters)")
	ErrInvalidCategory = errors.New("invalid category type")
)

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the civil date of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return NewDate(y, m, d)
}

// ParseDate accepts YYYY-MM-DD and RFC3339 timestamps. For timestamps the
// date part is taken as written, ignoring the offset, so "2024-01-31" and
// "2024-01-31T23:30:00-03:00" both land on January 31st.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return NewDate(y, m, d), nil
	}
	if len(s) >= len(dateLayout) {
		if t, err := time.Parse(dateLayout, s[:len(dateLayout)]); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// OnOrBefore reports whether d is the same day as o or earlier.
func (d Date) OnOrBefore(o Date) bool {
	return !d.Time.After(o.Time)
}

// InMonth reports whether d falls in the given year and month.
func (d Date) InMonth(year int, month time.Month) bool {
	return d.Year() == year && d.Month() == month
}

// AddMonths shifts d by n months, clamping the day to the target month length.
func (d Date) AddMonths(n int) Date {
	first := time.Date(d.Year(), d.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	day := d.Day()
	if last := DaysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return NewDate(first.Year(), first.Month(), day)
}

// PreviousMonth returns the year and month before (year, month).
func PreviousMonth(year int, month time.Month) (int, time.Month) {
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Money is exchanged as integer cents on the wire.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.Cents, 10)), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		m.Cents = 0
		return nil
	}
	cents, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	m.Cents = cents
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t CategoryType) Valid() bool {
	return t == CategoryIncome || t == CategoryExpense || t == CategoryBoth
}

// IsInstallment reports whether the row is one part of a multi-part purchase.
func (t Transaction) IsInstallment() bool {
	return t.InstallmentTotal > 1
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if len(strings.TrimSpace(t.Title)) == 0 {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(t.Title) > 200 {
		return ErrTitleTooLong
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.InstallmentTotal < 0 || t.InstallmentNumber < 0 || t.InstallmentNumber > t.InstallmentTotal {
		return ErrInvalidInstall
	}
	return nil
}

// CountsForExpenses reports whether the category participates in budgets.
func (c Category) CountsForExpenses() bool {
	return c.Type == CategoryExpense || c.Type == CategoryBoth
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return ErrInvalidCategory
	}
	if c.Budget.Cents < 0 {
		return ErrInvalidBudget
	}
	return nil
}

func (g FinancialGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return err
	}
	if g.CurrentAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Progress returns the saved share of the target in [0, 100].
func (g FinancialGoal) Progress() float64 {
	if g.TargetAmount.Cents <= 0 {
		return 0
	}
	p := float64(g.CurrentAmount.Cents) / float64(g.TargetAmount.Cents) * 100
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}
