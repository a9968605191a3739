package main

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"saku/internal/core"
)

func TestReportMarkdown(t *testing.T) {
	period := core.Period{Year: 2025, Month: 3}
	laptop := core.Goal{ID: 1, Name: "Laptop", Target: core.Money{Minor: 1500000000}, Current: core.Money{Minor: 500000000}}
	d := core.Dashboard{
		Period: period,
		Total:  core.Money{Minor: 0},
		Pockets: []core.PocketBalanceLine{
			{Pocket: core.Pocket{ID: 1, Name: "Food"}, Balance: core.Money{Minor: -5000000}},
			{Pocket: core.Pocket{ID: 2, Name: "Emergency"}, Balance: core.Money{Minor: 5000000}},
		},
		Budgets: []core.BudgetLine{{
			Budget:       core.Budget{CategoryID: 3, Amount: core.Money{Minor: 10000000}, Period: period},
			CategoryName: "Food | Drinks",
			Spent:        core.Money{Minor: 8000000},
			Percentage:   decimal.NewFromInt(80),
			Status:       core.BudgetWarning,
		}},
		Goals: []core.GoalProgress{core.EvaluateGoal(laptop)},
	}
	r := core.Report{
		Range:      period.Range(),
		Summary:    core.Summary{Expense: core.Money{Minor: 8000000}, Count: 1},
		ByCategory: []core.CategoryAmount{{CategoryID: 3, Name: "Food | Drinks", Amount: core.Money{Minor: 8000000}}},
	}

	md := reportMarkdown(d, r, "IDR")
	for _, want := range []string{
		"# Report 2025-03",
		"| Food |",
		"| Emergency |",
		"## Spend by category",
		`Food \| Drinks`,
		"80.0% | _warning_ |",
		"| Laptop |",
		"| 33% |",
		"| Entries | 1 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q:\n%s", want, md)
		}
	}
}

func TestReportMarkdownEmpty(t *testing.T) {
	md := reportMarkdown(core.Dashboard{Period: core.Period{Year: 2025, Month: 1}}, core.Report{}, "IDR")
	if !strings.Contains(md, "_No pockets._") {
		t.Errorf("empty report = %s", md)
	}
	for _, section := range []string{"## Budgets", "## Goals", "## Spend by category"} {
		if strings.Contains(md, section) {
			t.Errorf("empty report has section %q", section)
		}
	}
}

func TestPeriodFlag(t *testing.T) {
	p, err := periodFlag("2024-12")
	if err != nil || p != (core.Period{Year: 2024, Month: 12}) {
		t.Errorf("periodFlag = %v, %v", p, err)
	}
	if _, err := periodFlag("december"); err == nil {
		t.Error("periodFlag should reject a malformed month")
	}
	if p, err := periodFlag(""); err != nil || p.Validate() != nil {
		t.Errorf("periodFlag(\"\") = %v, %v", p, err)
	}
}
