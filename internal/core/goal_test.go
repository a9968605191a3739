package core

import "testing"

func TestProgressPercent(t *testing.T) {
	cases := []struct {
		current, target int64
		want            int
	}{
		{5000000, 15000000, 33},
		{10000000, 15000000, 67},
		{0, 15000000, 0},
		{15000000, 15000000, 100},
		{20000000, 15000000, 100}, // clamped
		{100, 0, 0},               // no target
	}
	for _, tc := range cases {
		got := ProgressPercent(Money{Minor: tc.current}, Money{Minor: tc.target})
		if got != tc.want {
			t.Fatalf("%d/%d: got %d want %d", tc.current, tc.target, got, tc.want)
		}
	}
}

func TestEvaluateGoalKeepsCounterUnclamped(t *testing.T) {
	g := Goal{Name: "Laptop", Target: Money{Minor: 100}, Current: Money{Minor: 180}}
	p := EvaluateGoal(g)
	if p.Whole() != 100 || !p.Reached {
		t.Fatalf("expected reached at 100, got %d", p.Whole())
	}
	if p.Goal.Current.Minor != 180 {
		t.Fatalf("counter must not be clamped, got %d", p.Goal.Current.Minor)
	}
	if p.Remaining.Minor != 0 {
		t.Fatalf("remaining should floor at zero, got %d", p.Remaining.Minor)
	}
}
