package core

import "github.com/shopspring/decimal"

const (
	BudgetOK      BudgetStatus = "ok"
	BudgetWarning BudgetStatus = "warning"
	BudgetOver    BudgetStatus = "over"
)

var (
	hundred          = decimal.NewFromInt(100)
	warningThreshold = decimal.NewFromInt(75)
)

// BudgetStatus classifies how much of a budget has been spent.
type BudgetStatus string

// BudgetLine is the evaluated state of one budget.
type BudgetLine struct {
	Budget       Budget
	CategoryName string
	Spent        Money
	Percentage   decimal.Decimal
	Status       BudgetStatus
}

// BudgetPercentage returns min(spent/limit, 1) * 100. A non-positive limit
// reads as fully used once anything is spent.
func BudgetPercentage(spent, limit Money) decimal.Decimal {
	if limit.Minor <= 0 {
		if spent.Minor > 0 {
			return hundred
		}
		return decimal.Zero
	}
	if spent.Minor <= 0 {
		return decimal.Zero
	}
	if spent.Minor >= limit.Minor {
		return hundred
	}
	return decimal.NewFromInt(spent.Minor).Mul(hundred).Div(decimal.NewFromInt(limit.Minor))
}

// ClassifyBudget maps a percentage to a status: ok up to and including 75,
// over from 100, warning in between.
func ClassifyBudget(pct decimal.Decimal) BudgetStatus {
	switch {
	case pct.GreaterThanOrEqual(hundred):
		return BudgetOver
	case pct.GreaterThan(warningThreshold):
		return BudgetWarning
	default:
		return BudgetOK
	}
}

// EvaluateBudget computes the budget line from the spend inside its period.
func EvaluateBudget(b Budget, categoryName string, spent Money) BudgetLine {
	pct := BudgetPercentage(spent, b.Amount)
	return BudgetLine{
		Budget:       b,
		CategoryName: categoryName,
		Spent:        spent,
		Percentage:   pct,
		Status:       classifyExact(spent, b.Amount, pct),
	}
}

// classifyExact avoids the rounding of the percentage division at the 75
// boundary by comparing spent*100 with limit*75.
func classifyExact(spent, limit Money, pct decimal.Decimal) BudgetStatus {
	if limit.Minor <= 0 || spent.Minor >= limit.Minor {
		return ClassifyBudget(pct)
	}
	s := decimal.NewFromInt(spent.Minor).Mul(hundred)
	l := decimal.NewFromInt(limit.Minor).Mul(warningThreshold)
	if s.LessThanOrEqual(l) {
		return BudgetOK
	}
	return BudgetWarning
}
