package core

import "github.com/shopspring/decimal"

// GoalProgress is a goal with its derived completion.
type GoalProgress struct {
	Goal      Goal
	Percent   decimal.Decimal
	Remaining Money
	Reached   bool
}

// Progress returns min(current/target, 1) * 100, or 0 when target is not
// positive. The goal's counter itself is never clamped.
func Progress(current, target Money) decimal.Decimal {
	if target.Minor <= 0 || current.Minor <= 0 {
		return decimal.Zero
	}
	if current.Minor >= target.Minor {
		return hundred
	}
	return decimal.NewFromInt(current.Minor).Mul(hundred).Div(decimal.NewFromInt(target.Minor))
}

// ProgressPercent is Progress rounded half-up to a whole percent.
func ProgressPercent(current, target Money) int {
	return int(Progress(current, target).Round(0).IntPart())
}

func EvaluateGoal(g Goal) GoalProgress {
	remaining := g.Target.Sub(g.Current)
	if remaining.Minor < 0 {
		remaining = Money{}
	}
	return GoalProgress{
		Goal:      g,
		Percent:   Progress(g.Current, g.Target),
		Remaining: remaining,
		Reached:   g.Target.Minor > 0 && g.Current.Minor >= g.Target.Minor,
	}
}

// Whole returns the percent rounded half-up.
func (p GoalProgress) Whole() int {
	return int(p.Percent.Round(0).IntPart())
}
