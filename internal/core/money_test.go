package core

import (
	"errors"
	"math"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"50000", 5000000, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.001", 0, false}, // rounds to zero
		{"1e3", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{".", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
		{"10000000000000", 1000000000000000, true},
		{"10000000000000.01", 0, false}, // above MaxAmount
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in, "IDR")
		if tc.ok {
			if err != nil || got.Minor != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Minor, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseAmountZeroFractionCurrency(t *testing.T) {
	got, err := ParseAmount("1500", "JPY")
	if err != nil || got.Minor != 1500 {
		t.Fatalf("expected 1500, got %d (err=%v)", got.Minor, err)
	}
}

func TestMoneyFormatAndMajor(t *testing.T) {
	m := Money{Minor: 1234}
	if got := m.Format("USD"); got != "$12.34" {
		t.Fatalf("unexpected format %q", got)
	}
	if got := m.Major("USD").String(); got != "12.34" {
		t.Fatalf("unexpected major %q", got)
	}
}

func TestMoneyValidateCeiling(t *testing.T) {
	if err := (Money{Minor: MaxAmount}).Validate(); err != nil {
		t.Fatalf("MaxAmount should be valid: %v", err)
	}
	if err := (Money{Minor: MaxAmount + 1}).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error above MaxAmount, got %v", err)
	}
	g := Goal{Owner: "u", Name: "Moon", Target: Money{Minor: math.MaxInt64}}
	if err := g.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected oversized target to be rejected, got %v", err)
	}
}

func TestMoneyAddOverflow(t *testing.T) {
	sum, err := Money{Minor: 40}.Add(Money{Minor: 2})
	if err != nil || sum.Minor != 42 {
		t.Fatalf("Add = %d, %v", sum.Minor, err)
	}
	if _, err := (Money{Minor: math.MaxInt64 - 1}).Add(Money{Minor: 2}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected overflow to be a validation error, got %v", err)
	}
	if _, err := (Money{Minor: math.MinInt64 + 1}).Add(Money{Minor: -2}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected underflow to be a validation error, got %v", err)
	}
}
