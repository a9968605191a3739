package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"saku/internal/core"
)

// reportMarkdown lays out a month's dashboard and summary as markdown.
func reportMarkdown(d core.Dashboard, r core.Report, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Report %s\n\n", d.Period)

	b.WriteString("## Summary\n\n")
	b.WriteString("| | Amount |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Income | %s |\n", r.Summary.Income.Format(currency))
	fmt.Fprintf(&b, "| Expense | %s |\n", r.Summary.Expense.Format(currency))
	fmt.Fprintf(&b, "| Net | %s |\n", r.Summary.Net.Format(currency))
	fmt.Fprintf(&b, "| Entries | %d |\n\n", r.Summary.Count)

	b.WriteString("## Pockets\n\n")
	if len(d.Pockets) == 0 {
		b.WriteString("_No pockets._\n\n")
	} else {
		b.WriteString("| Pocket | Balance |\n|---|---:|\n")
		for _, p := range d.Pockets {
			fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(p.Pocket.Name), p.Balance.Format(currency))
		}
		fmt.Fprintf(&b, "| **Total** | **%s** |\n\n", d.Total.Format(currency))
	}

	if len(r.ByCategory) > 0 {
		b.WriteString("## Spend by category\n\n| Category | Spent |\n|---|---:|\n")
		for _, c := range r.ByCategory {
			fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(c.Name), c.Amount.Format(currency))
		}
		b.WriteString("\n")
	}

	if len(d.Budgets) > 0 {
		b.WriteString("## Budgets\n\n| Category | Spent | Cap | Used | Status |\n|---|---:|---:|---:|---|\n")
		for _, l := range d.Budgets {
			fmt.Fprintf(&b, "| %s | %s | %s | %s%% | %s |\n", escapeCell(l.CategoryName),
				l.Spent.Format(currency), l.Budget.Amount.Format(currency),
				l.Percentage.StringFixed(1), statusLabel(l.Status))
		}
		b.WriteString("\n")
	}

	if len(d.Goals) > 0 {
		b.WriteString("## Goals\n\n| Goal | Saved | Target | Progress |\n|---|---:|---:|---:|\n")
		for _, g := range d.Goals {
			fmt.Fprintf(&b, "| %s | %s | %s | %d%% |\n", escapeCell(g.Goal.Name),
				g.Goal.Current.Format(currency), g.Goal.Target.Format(currency), g.Whole())
		}
		b.WriteString("\n")
	}
	return b.String()
}

func statusLabel(s core.BudgetStatus) string {
	switch s {
	case core.BudgetOver:
		return "**over**"
	case core.BudgetWarning:
		return "_warning_"
	default:
		return string(s)
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func printMarkdown(md string) error {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	fmt.Print(out)
	return nil
}
