// Package core holds the ledger domain: entries, pockets, budgets, goals,
// and the pure folds that derive balances from the journal.
//
// Amounts are integer minor units of a single currency. Decimal text is
// only accepted at the edges (ParseAmount) and produced for display
// (Money.Format).
package core

import (
	"math"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "IDR"

// MaxAmount is the largest amount, in minor units, a single entry, budget
// cap or goal target may carry. Sums of many such amounts stay far from the
// int64 bounds.
const MaxAmount int64 = 1_000_000_000_000_000

var maxMinor = decimal.NewFromInt(MaxAmount)

// ParseAmount converts a decimal string in major units to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rounds half-up past the currency's fraction digits. Signs, exponents and
// zero are rejected.
//
// Examples (IDR, two fraction digits):
//
//	ParseAmount("50000", "IDR")   -> Money{Minor: 5000000}
//	ParseAmount("12,345", "IDR")  -> Money{Minor: 1235}
func ParseAmount(s, currency string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, NewValidationError("amount", "is required")
	}
	s = strings.ReplaceAll(s, ",", ".")
	dots := 0
	for _, r := range s {
		switch {
		case r == '.':
			dots++
		case r < '0' || r > '9':
			return Money{}, NewValidationError("amount", "must be a positive decimal number")
		}
	}
	if dots > 1 || s == "." {
		return Money{}, NewValidationError("amount", "must be a positive decimal number")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, NewValidationError("amount", "must be a positive decimal number")
	}
	minor := d.Shift(int32(fractionDigits(currency))).Round(0)
	if minor.GreaterThan(maxMinor) {
		return Money{}, NewValidationError("amount", "too large")
	}
	m := Money{Minor: minor.IntPart()}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// Major returns the amount in major units, exact.
func (m Money) Major(currency string) decimal.Decimal {
	return decimal.New(m.Minor, -int32(fractionDigits(currency)))
}

// Format renders the amount with the currency's symbol and separators.
func (m Money) Format(currency string) string {
	return gomoney.New(m.Minor, currencyCode(currency)).Display()
}

// Add returns m+o, or a ValidationError when the sum does not fit in int64.
func (m Money) Add(o Money) (Money, error) {
	if (o.Minor > 0 && m.Minor > math.MaxInt64-o.Minor) || (o.Minor < 0 && m.Minor < math.MinInt64-o.Minor) {
		return Money{}, NewValidationError("amount", "sum exceeds the supported range")
	}
	return Money{Minor: m.Minor + o.Minor}, nil
}

func (m Money) Sub(o Money) Money { return Money{Minor: m.Minor - o.Minor} }

// addClamped adds b to a, saturating at the int64 bounds.
func addClamped(a, b int64) int64 {
	switch {
	case b > 0 && a > math.MaxInt64-b:
		return math.MaxInt64
	case b < 0 && a < math.MinInt64-b:
		return math.MinInt64
	}
	return a + b
}

func fractionDigits(currency string) int {
	if c := gomoney.GetCurrency(currencyCode(currency)); c != nil {
		return c.Fraction
	}
	return 2
}

func currencyCode(currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		return DefaultCurrency
	}
	return code
}
