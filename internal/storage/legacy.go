package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"carteira/internal/core"
)

// financingToken separates the free-text note from packed financing fields in
// subtitles written before the financing columns existed:
//
//	"note||fin:<monthly rate %>;<loan amount>;<total interest>"
//
// Amounts are plain decimals in currency units, e.g. "1.99;1200.00;143.52".
const financingToken = "||fin:"

// DecodeLegacySubtitle splits a legacy subtitle into its note and financing
// details. Subtitles without the token come back unchanged with nil details.
func DecodeLegacySubtitle(subtitle string) (string, *core.FinancingDetails, error) {
	note, packed, found := strings.Cut(subtitle, financingToken)
	if !found {
		return subtitle, nil, nil
	}
	parts := strings.Split(packed, ";")
	if len(parts) != 3 {
		return note, nil, fmt.Errorf("legacy financing %q: want 3 fields, got %d", packed, len(parts))
	}

	rate, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return note, nil, fmt.Errorf("legacy financing rate %q: %w", parts[0], err)
	}
	loan, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return note, nil, fmt.Errorf("legacy financing loan %q: %w", parts[1], err)
	}
	interest, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
	if err != nil {
		return note, nil, fmt.Errorf("legacy financing interest %q: %w", parts[2], err)
	}

	return note, &core.FinancingDetails{
		InterestRate:  rate,
		LoanAmount:    core.MoneyFromDecimal(loan),
		TotalInterest: core.MoneyFromDecimal(interest),
	}, nil
}
