package core

import "sort"

// TotalBalance sums the signed amounts of entries. The result does not
// depend on the order of entries. Sums saturate at the int64 bounds.
func TotalBalance(entries []Entry) Money {
	var sum int64
	for _, e := range entries {
		sum = addClamped(sum, e.Signed())
	}
	return Money{Minor: sum}
}

// PocketBalance sums the signed amounts of entries attached to pocketID.
// General entries and other pockets do not contribute.
func PocketBalance(entries []Entry, pocketID int64) Money {
	var sum int64
	for _, e := range entries {
		if pocketID != 0 && e.PocketID == pocketID {
			sum = addClamped(sum, e.Signed())
		}
	}
	return Money{Minor: sum}
}

// PocketBalances folds the journal into one balance per pocket.
func PocketBalances(entries []Entry) map[int64]Money {
	out := make(map[int64]Money)
	for _, e := range entries {
		if e.PocketID == 0 {
			continue
		}
		out[e.PocketID] = Money{Minor: addClamped(out[e.PocketID].Minor, e.Signed())}
	}
	return out
}

// CategorySpend sums outflows of categoryID inside r.
func CategorySpend(entries []Entry, categoryID int64, r Range) Money {
	var sum int64
	for _, e := range entries {
		if e.Kind != Outflow || e.CategoryID != categoryID || categoryID == 0 {
			continue
		}
		if r.Contains(e.CreatedAt) {
			sum = addClamped(sum, e.Amount.Minor)
		}
	}
	return Money{Minor: sum}
}

// SpendByCategory groups outflows by category. Uncategorized outflows are
// keyed by 0.
func SpendByCategory(entries []Entry) map[int64]Money {
	out := make(map[int64]Money)
	for _, e := range entries {
		if e.Kind != Outflow {
			continue
		}
		out[e.CategoryID] = Money{Minor: addClamped(out[e.CategoryID].Minor, e.Amount.Minor)}
	}
	return out
}

// Summarize totals income and expense of entries.
func Summarize(entries []Entry) Summary {
	var s Summary
	for _, e := range entries {
		switch e.Kind {
		case Inflow:
			s.Income.Minor = addClamped(s.Income.Minor, e.Amount.Minor)
		case Outflow:
			s.Expense.Minor = addClamped(s.Expense.Minor, e.Amount.Minor)
		}
	}
	s.Net = Money{Minor: addClamped(s.Income.Minor, -s.Expense.Minor)}
	s.Count = len(entries)
	return s
}

// SortEntries orders entries by created_at, breaking ties by id.
func SortEntries(entries []Entry, order Order) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if order == Descending {
			a, b = b, a
		}
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
