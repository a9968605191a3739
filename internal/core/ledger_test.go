package core

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

func sampleJournal() []Entry {
	t0 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	return []Entry{
		{ID: 1, Owner: "u1", Amount: Money{Minor: 1000000}, Kind: Inflow, PocketID: 1, CreatedAt: t0},
		{ID: 2, Owner: "u1", Amount: Money{Minor: 250000}, Kind: Outflow, PocketID: 1, CategoryID: 10, CreatedAt: t0.Add(time.Hour)},
		{ID: 3, Owner: "u1", Amount: Money{Minor: 400000}, Kind: Inflow, PocketID: 2, CreatedAt: t0.Add(2 * time.Hour)},
		{ID: 4, Owner: "u1", Amount: Money{Minor: 30000}, Kind: Outflow, CategoryID: 10, CreatedAt: t0.Add(3 * time.Hour)},
		{ID: 5, Owner: "u1", Amount: Money{Minor: 5000}, Kind: Outflow, CategoryID: 11, CreatedAt: t0.AddDate(0, 1, 0)},
	}
}

func TestTotalBalance(t *testing.T) {
	got := TotalBalance(sampleJournal())
	want := int64(1000000 - 250000 + 400000 - 30000 - 5000)
	if got.Minor != want {
		t.Fatalf("got %d want %d", got.Minor, want)
	}
	if TotalBalance(nil).Minor != 0 {
		t.Fatalf("empty journal must be zero")
	}
}

func TestTotalBalanceOrderIndependent(t *testing.T) {
	entries := sampleJournal()
	want := TotalBalance(entries)
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		r.Shuffle(len(entries), func(a, b int) { entries[a], entries[b] = entries[b], entries[a] })
		if got := TotalBalance(entries); got != want {
			t.Fatalf("permutation %d: got %d want %d", i, got.Minor, want.Minor)
		}
	}
}

func TestPocketBalanceIsolation(t *testing.T) {
	entries := sampleJournal()
	if got := PocketBalance(entries, 1); got.Minor != 750000 {
		t.Fatalf("pocket 1: got %d", got.Minor)
	}
	if got := PocketBalance(entries, 2); got.Minor != 400000 {
		t.Fatalf("pocket 2: got %d", got.Minor)
	}
	// general entries never belong to a pocket, even when asked for id 0
	if got := PocketBalance(entries, 0); got.Minor != 0 {
		t.Fatalf("pocket 0: got %d", got.Minor)
	}
	// an entry for another pocket does not move pocket 1
	extra := append(entries, Entry{Amount: Money{Minor: 999}, Kind: Outflow, PocketID: 2})
	if got := PocketBalance(extra, 1); got.Minor != 750000 {
		t.Fatalf("pocket 1 changed by foreign entry: %d", got.Minor)
	}

	all := PocketBalances(entries)
	if len(all) != 2 || all[1].Minor != 750000 || all[2].Minor != 400000 {
		t.Fatalf("unexpected pocket balances: %+v", all)
	}
}

func TestCategorySpend(t *testing.T) {
	entries := sampleJournal()
	may := Period{Year: 2025, Month: 5}.Range()
	if got := CategorySpend(entries, 10, may); got.Minor != 280000 {
		t.Fatalf("category 10 in May: got %d", got.Minor)
	}
	if got := CategorySpend(entries, 11, may); got.Minor != 0 {
		t.Fatalf("category 11 spend is in June: got %d", got.Minor)
	}
	if got := CategorySpend(entries, 11, Range{}); got.Minor != 5000 {
		t.Fatalf("open range: got %d", got.Minor)
	}
}

func TestSummarizeAndSpendByCategory(t *testing.T) {
	s := Summarize(sampleJournal())
	if s.Income.Minor != 1400000 || s.Expense.Minor != 285000 || s.Net.Minor != 1115000 || s.Count != 5 {
		t.Fatalf("unexpected summary %+v", s)
	}
	by := SpendByCategory(sampleJournal())
	if by[10].Minor != 280000 || by[11].Minor != 5000 {
		t.Fatalf("unexpected breakdown %+v", by)
	}
}

func TestSortEntries(t *testing.T) {
	entries := sampleJournal()
	SortEntries(entries, Descending)
	if entries[0].ID != 5 || entries[4].ID != 1 {
		t.Fatalf("unexpected desc order: %d..%d", entries[0].ID, entries[4].ID)
	}
	SortEntries(entries, Ascending)
	if entries[0].ID != 1 {
		t.Fatalf("unexpected asc order")
	}
}

func TestDayRangeIncludesLastDay(t *testing.T) {
	r := DayRange(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC))
	if !r.Contains(time.Date(2025, 5, 31, 23, 59, 0, 0, time.UTC)) {
		t.Fatalf("last day should be included")
	}
	if r.Contains(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("next day should be excluded")
	}
}

func TestPeriod(t *testing.T) {
	p := Period{Year: 2025, Month: 12}
	r := p.Range()
	if !r.To.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %v", r.To)
	}
	if err := (Period{Year: 2025, Month: 13}).Validate(); err == nil {
		t.Fatalf("expected month validation error")
	}
	if p.String() != "2025-12" {
		t.Fatalf("unexpected string %q", p.String())
	}
}

func TestBalanceFoldsSaturate(t *testing.T) {
	big := Money{Minor: math.MaxInt64 - 1}
	entries := []Entry{
		{ID: 1, Amount: big, Kind: Inflow, PocketID: 1},
		{ID: 2, Amount: big, Kind: Inflow, PocketID: 1},
	}
	if got := TotalBalance(entries); got.Minor != math.MaxInt64 {
		t.Fatalf("TotalBalance wrapped: %d", got.Minor)
	}
	if got := PocketBalance(entries, 1); got.Minor != math.MaxInt64 {
		t.Fatalf("PocketBalance wrapped: %d", got.Minor)
	}
	if got := PocketBalances(entries)[1]; got.Minor != math.MaxInt64 {
		t.Fatalf("PocketBalances wrapped: %d", got.Minor)
	}

	entries[0].Kind, entries[1].Kind = Outflow, Outflow
	if got := TotalBalance(entries); got.Minor != math.MinInt64 {
		t.Fatalf("TotalBalance wrapped: %d", got.Minor)
	}
	if s := Summarize(entries); s.Expense.Minor != math.MaxInt64 || s.Net.Minor != -math.MaxInt64 {
		t.Fatalf("Summarize wrapped: %+v", s)
	}
}
