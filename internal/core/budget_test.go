package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEvaluateBudgetBoundaries(t *testing.T) {
	limit := Money{Minor: 1000000}
	cases := []struct {
		spent  int64
		pct    string
		status BudgetStatus
	}{
		{0, "0", BudgetOK},
		{500000, "50", BudgetOK},
		{750000, "75", BudgetOK},
		{750001, "75.0001", BudgetWarning},
		{999999, "99.9999", BudgetWarning},
		{1000000, "100", BudgetOver},
		{2500000, "100", BudgetOver},
	}
	for _, tc := range cases {
		line := EvaluateBudget(Budget{Amount: limit}, "Food", Money{Minor: tc.spent})
		if line.Status != tc.status {
			t.Fatalf("spent %d: status %s want %s", tc.spent, line.Status, tc.status)
		}
		if !line.Percentage.Equal(decimal.RequireFromString(tc.pct)) {
			t.Fatalf("spent %d: pct %s want %s", tc.spent, line.Percentage, tc.pct)
		}
	}
}

func TestBudgetPercentageNonPositiveLimit(t *testing.T) {
	if !BudgetPercentage(Money{}, Money{}).IsZero() {
		t.Fatalf("nothing spent on empty limit should be 0")
	}
	if !BudgetPercentage(Money{Minor: 1}, Money{}).Equal(decimal.NewFromInt(100)) {
		t.Fatalf("spend on empty limit should be 100")
	}
}

func TestClassifyBudget(t *testing.T) {
	cases := map[string]BudgetStatus{
		"0":     BudgetOK,
		"75":    BudgetOK,
		"75.01": BudgetWarning,
		"99.99": BudgetWarning,
		"100":   BudgetOver,
	}
	for in, want := range cases {
		if got := ClassifyBudget(decimal.RequireFromString(in)); got != want {
			t.Fatalf("%s: got %s want %s", in, got, want)
		}
	}
}
