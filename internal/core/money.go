// Package core provides money parsing and handling utilities.
//
// Amounts travel through the system as integer cents. Strings only appear at
// the edges (forms, spreadsheets, CLI output) and always follow one locale
// contract: decimal comma and thousands dot, as in "R$ 1.234,56".
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const currencySymbol = "R$"

// ParseAmount converts a locale formatted amount to cents.
//
// The decimal separator is the comma and dots group thousands. A single dot
// followed by one or two digits is read as a decimal point so keyboard input
// such as "12.5" still works. Rounding is half-up on the third decimal place.
// Signs are rejected; zero is accepted and left to Money.Validate.
//
// Examples:
//
//	ParseAmount("1.234,56") -> 123456
//	ParseAmount("R$ 12,5")  -> 1250
//	ParseAmount("12.5")     -> 1250
//	ParseAmount("1.234")    -> 123400
//	ParseAmount("0,005")    -> 1
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, currencySymbol))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}

	var normalized string
	switch {
	case strings.Contains(s, ","):
		if strings.Count(s, ",") > 1 {
			return 0, ErrInvalidAmount
		}
		intPart, frac, _ := strings.Cut(s, ",")
		if strings.Contains(frac, ".") || !validGrouping(intPart) {
			return 0, ErrInvalidAmount
		}
		normalized = strings.ReplaceAll(intPart, ".", "") + "." + frac
	case strings.Count(s, ".") == 1:
		_, frac, _ := strings.Cut(s, ".")
		if len(frac) == 1 || len(frac) == 2 {
			normalized = s
		} else {
			if !validGrouping(s) {
				return 0, ErrInvalidAmount
			}
			normalized = strings.ReplaceAll(s, ".", "")
		}
	default:
		if !validGrouping(s) {
			return 0, ErrInvalidAmount
		}
		normalized = strings.ReplaceAll(s, ".", "")
	}

	normalized = strings.TrimSuffix(normalized, ".")
	if normalized == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range normalized {
		if r != '.' && !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(maxCents)) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

const maxCents = (1<<63 - 1) / 100

// validGrouping checks thousands groups: "1.234.567" is fine, "1.2.3" is not.
func validGrouping(intPart string) bool {
	if !strings.Contains(intPart, ".") {
		return true
	}
	groups := strings.Split(intPart, ".")
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

// FormatAmount renders cents as "R$ 1.234,56" ("-R$ 12,00" when negative).
func FormatAmount(m Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	fixed := decimal.New(cents, -2).StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := currencySymbol + " " + b.String() + "," + frac
	if neg {
		return "-" + out
	}
	return out
}

// Float returns the amount in currency units for display and ratios.
// Use cents for arithmetic.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) String() string {
	return FormatAmount(m)
}

// Decimal returns the amount as an exact decimal in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// MoneyFromDecimal rounds a currency-unit decimal half-up to cents.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}
