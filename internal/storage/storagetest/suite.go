// Package storagetest holds behaviour checks every storage.Store must pass.
package storagetest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"saku/internal/core"
	"saku/internal/storage"
)

// Run exercises store. The store must start empty.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Run("PocketOwnership", func(t *testing.T) { testPocketOwnership(t, open(t)) })
	t.Run("EntryQuery", func(t *testing.T) { testEntryQuery(t, open(t)) })
	t.Run("DeleteEntry", func(t *testing.T) { testDeleteEntry(t, open(t)) })
	t.Run("PocketCascade", func(t *testing.T) { testPocketCascade(t, open(t)) })
	t.Run("CategoryDelete", func(t *testing.T) { testCategoryDelete(t, open(t)) })
	t.Run("BudgetUpsert", func(t *testing.T) { testBudgetUpsert(t, open(t)) })
	t.Run("GoalCounter", func(t *testing.T) { testGoalCounter(t, open(t)) })
	t.Run("GoalCounterOverflow", func(t *testing.T) { testGoalCounterOverflow(t, open(t)) })
	t.Run("Rules", func(t *testing.T) { testRules(t, open(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, open(t)) })
}

var base = time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

func mustUpdate(t *testing.T, s storage.Store, fn func(storage.Tx) error) {
	t.Helper()
	if err := s.Update(context.Background(), fn); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func mustView(t *testing.T, s storage.Store, fn func(storage.Tx) error) {
	t.Helper()
	if err := s.View(context.Background(), fn); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func seedPocket(t *testing.T, s storage.Store, owner, name string) core.Pocket {
	t.Helper()
	var p core.Pocket
	mustUpdate(t, s, func(tx storage.Tx) error {
		var err error
		p, err = tx.InsertPocket(context.Background(), core.Pocket{Owner: owner, Name: name, CreatedAt: base})
		return err
	})
	return p
}

func seedCategory(t *testing.T, s storage.Store, owner, name string) core.Category {
	t.Helper()
	var c core.Category
	mustUpdate(t, s, func(tx storage.Tx) error {
		var err error
		c, err = tx.InsertCategory(context.Background(), core.Category{Owner: owner, Name: name})
		return err
	})
	return c
}

func seedEntry(t *testing.T, s storage.Store, e core.Entry) core.Entry {
	t.Helper()
	mustUpdate(t, s, func(tx storage.Tx) error {
		var err error
		e, err = tx.InsertEntry(context.Background(), e)
		return err
	})
	return e
}

func testPocketOwnership(t *testing.T, s storage.Store) {
	ctx := context.Background()
	p := seedPocket(t, s, "alice", "Food")
	if p.ID == 0 {
		t.Fatalf("expected an id")
	}
	mustView(t, s, func(tx storage.Tx) error {
		got, err := tx.GetPocket(ctx, "alice", p.ID)
		if err != nil || got.Name != "Food" || !got.CreatedAt.Equal(base) {
			t.Fatalf("get own pocket: %+v %v", got, err)
		}
		if _, err := tx.GetPocket(ctx, "bob", p.ID); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("foreign pocket must be not found, got %v", err)
		}
		list, err := tx.ListPockets(ctx, "bob")
		if err != nil || len(list) != 0 {
			t.Fatalf("bob should see no pockets: %v %v", list, err)
		}
		return nil
	})
}

func testEntryQuery(t *testing.T, s storage.Store) {
	ctx := context.Background()
	p1 := seedPocket(t, s, "alice", "Food")
	p2 := seedPocket(t, s, "alice", "Emergency")
	cat := seedCategory(t, s, "alice", "Groceries")

	for i, e := range []core.Entry{
		{Amount: core.Money{Minor: 100}, Kind: core.Inflow, PocketID: p1.ID},
		{Amount: core.Money{Minor: 40}, Kind: core.Outflow, PocketID: p1.ID, CategoryID: cat.ID},
		{Amount: core.Money{Minor: 70}, Kind: core.Inflow, PocketID: p2.ID},
		{Amount: core.Money{Minor: 5}, Kind: core.Outflow},
	} {
		e.Owner = "alice"
		e.Description = "e"
		e.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		seedEntry(t, s, e)
	}
	seedEntry(t, s, core.Entry{Owner: "bob", Amount: core.Money{Minor: 999}, Kind: core.Inflow, CreatedAt: base})

	mustView(t, s, func(tx storage.Tx) error {
		all, err := tx.ListEntries(ctx, core.EntryFilter{Owner: "alice"})
		if err != nil || len(all) != 4 {
			t.Fatalf("alice entries: %d %v", len(all), err)
		}
		if core.TotalBalance(all).Minor != 125 {
			t.Fatalf("total: %d", core.TotalBalance(all).Minor)
		}

		pocket, _ := tx.ListEntries(ctx, core.EntryFilter{Owner: "alice", PocketID: p1.ID})
		if len(pocket) != 2 {
			t.Fatalf("pocket filter: %d", len(pocket))
		}

		byCat, _ := tx.ListEntries(ctx, core.EntryFilter{Owner: "alice", CategoryID: cat.ID})
		if len(byCat) != 1 || byCat[0].Amount.Minor != 40 {
			t.Fatalf("category filter: %+v", byCat)
		}

		ranged, _ := tx.ListEntries(ctx, core.EntryFilter{Owner: "alice", From: base.Add(time.Hour), To: base.Add(3 * time.Hour)})
		if len(ranged) != 2 {
			t.Fatalf("range should be [from, to): %d", len(ranged))
		}

		desc, _ := tx.ListEntries(ctx, core.EntryFilter{Owner: "alice", Order: core.Descending, Limit: 2})
		if len(desc) != 2 || desc[0].Amount.Minor != 5 || desc[1].Amount.Minor != 70 {
			t.Fatalf("desc with limit: %+v", desc)
		}

		outflows, _ := tx.ListEntries(ctx, core.EntryFilter{Owner: "alice", Kind: core.Outflow})
		if len(outflows) != 2 {
			t.Fatalf("kind filter: %d", len(outflows))
		}

		got, err := tx.GetEntries(ctx, "alice", []int64{all[0].ID, all[3].ID})
		if err != nil || len(got) != 2 {
			t.Fatalf("get entries: %d %v", len(got), err)
		}
		foreign, _ := tx.GetEntries(ctx, "bob", []int64{all[0].ID})
		if len(foreign) != 0 {
			t.Fatalf("bob must not read alice's entries")
		}
		return nil
	})
}

func testDeleteEntry(t *testing.T, s storage.Store) {
	ctx := context.Background()
	e := seedEntry(t, s, core.Entry{Owner: "alice", Amount: core.Money{Minor: 10}, Kind: core.Inflow, CreatedAt: base})

	err := s.Update(ctx, func(tx storage.Tx) error { return tx.DeleteEntry(ctx, "bob", e.ID) })
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete by other owner should be not found, got %v", err)
	}
	mustUpdate(t, s, func(tx storage.Tx) error { return tx.DeleteEntry(ctx, "alice", e.ID) })
	err = s.Update(ctx, func(tx storage.Tx) error { return tx.DeleteEntry(ctx, "alice", e.ID) })
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func testPocketCascade(t *testing.T, s storage.Store) {
	ctx := context.Background()
	food := seedPocket(t, s, "alice", "Food")
	fun := seedPocket(t, s, "alice", "Fun")
	seedEntry(t, s, core.Entry{Owner: "alice", Amount: core.Money{Minor: 300}, Kind: core.Inflow, PocketID: food.ID, CreatedAt: base})
	seedEntry(t, s, core.Entry{Owner: "alice", Amount: core.Money{Minor: 50}, Kind: core.Outflow, PocketID: food.ID, CreatedAt: base})
	seedEntry(t, s, core.Entry{Owner: "alice", Amount: core.Money{Minor: 20}, Kind: core.Inflow, PocketID: fun.ID, CreatedAt: base})
	seedEntry(t, s, core.Entry{Owner: "alice", Amount: core.Money{Minor: 7}, Kind: core.Inflow, CreatedAt: base})

	err := s.Update(ctx, func(tx storage.Tx) error {
		_, err := tx.DeletePocket(ctx, "bob", food.ID)
		return err
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign pocket delete should be not found, got %v", err)
	}

	var removed []int64
	mustUpdate(t, s, func(tx storage.Tx) error {
		var err error
		removed, err = tx.DeletePocket(ctx, "alice", food.ID)
		return err
	})
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed entries, got %v", removed)
	}

	mustView(t, s, func(tx storage.Tx) error {
		all, _ := tx.ListEntries(ctx, core.EntryFilter{Owner: "alice"})
		if len(all) != 2 || core.TotalBalance(all).Minor != 27 {
			t.Fatalf("after cascade: %d entries, total %d", len(all), core.TotalBalance(all).Minor)
		}
		if _, err := tx.GetPocket(ctx, "alice", food.ID); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("pocket should be gone, got %v", err)
		}
		return nil
	})
}

func testCategoryDelete(t *testing.T, s storage.Store) {
	ctx := context.Background()
	cat := seedCategory(t, s, "alice", "Food")
	e := seedEntry(t, s, core.Entry{Owner: "alice", Amount: core.Money{Minor: 10}, Kind: core.Outflow, CategoryID: cat.ID, CreatedAt: base})
	mustUpdate(t, s, func(tx storage.Tx) error {
		_, err := tx.UpsertBudget(ctx, core.Budget{Owner: "alice", CategoryID: cat.ID, Amount: core.Money{Minor: 100}, Period: core.PeriodOf(base)})
		return err
	})

	mustUpdate(t, s, func(tx storage.Tx) error { return tx.DeleteCategory(ctx, "alice", cat.ID) })

	mustView(t, s, func(tx storage.Tx) error {
		got, _ := tx.GetEntries(ctx, "alice", []int64{e.ID})
		if len(got) != 1 || got[0].CategoryID != 0 {
			t.Fatalf("entry should survive uncategorized: %+v", got)
		}
		budgets, _ := tx.ListBudgets(ctx, "alice", core.PeriodOf(base))
		if len(budgets) != 0 {
			t.Fatalf("budgets of a deleted category should go: %+v", budgets)
		}
		return nil
	})
}

func testBudgetUpsert(t *testing.T, s storage.Store) {
	ctx := context.Background()
	cat := seedCategory(t, s, "alice", "Food")
	period := core.Period{Year: 2025, Month: 4}

	var first, second core.Budget
	mustUpdate(t, s, func(tx storage.Tx) error {
		var err error
		first, err = tx.UpsertBudget(ctx, core.Budget{Owner: "alice", CategoryID: cat.ID, Amount: core.Money{Minor: 100}, Period: period})
		return err
	})
	mustUpdate(t, s, func(tx storage.Tx) error {
		var err error
		second, err = tx.UpsertBudget(ctx, core.Budget{Owner: "alice", CategoryID: cat.ID, Amount: core.Money{Minor: 250}, Period: period})
		return err
	})
	if first.ID != second.ID {
		t.Fatalf("upsert should keep the id: %d vs %d", first.ID, second.ID)
	}

	mustView(t, s, func(tx storage.Tx) error {
		list, _ := tx.ListBudgets(ctx, "alice", period)
		if len(list) != 1 || list[0].Amount.Minor != 250 {
			t.Fatalf("expected one updated budget, got %+v", list)
		}
		other, _ := tx.ListBudgets(ctx, "alice", core.Period{Year: 2025, Month: 5})
		if len(other) != 0 {
			t.Fatalf("other period should be empty")
		}
		return nil
	})

	err := s.Update(ctx, func(tx storage.Tx) error { return tx.DeleteBudget(ctx, "bob", first.ID) })
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign budget delete should be not found, got %v", err)
	}
	mustUpdate(t, s, func(tx storage.Tx) error { return tx.DeleteBudget(ctx, "alice", first.ID) })
}

func testGoalCounter(t *testing.T, s storage.Store) {
	ctx := context.Background()
	var g core.Goal
	mustUpdate(t, s, func(tx storage.Tx) error {
		var err error
		g, err = tx.InsertGoal(ctx, core.Goal{Owner: "alice", Name: "Laptop", Target: core.Money{Minor: 100}, CreatedAt: base})
		return err
	})
	mustUpdate(t, s, func(tx storage.Tx) error {
		if _, err := tx.AddToGoal(ctx, "alice", g.ID, core.Money{Minor: 80}); err != nil {
			return err
		}
		_, err := tx.AddToGoal(ctx, "alice", g.ID, core.Money{Minor: 80})
		return err
	})
	mustView(t, s, func(tx storage.Tx) error {
		got, err := tx.GetGoal(ctx, "alice", g.ID)
		if err != nil || got.Current.Minor != 160 {
			t.Fatalf("counter should not clamp: %+v %v", got, err)
		}
		return nil
	})

	err := s.Update(ctx, func(tx storage.Tx) error {
		_, err := tx.AddToGoal(ctx, "bob", g.ID, core.Money{Minor: 1})
		return err
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign goal should be not found, got %v", err)
	}
	mustUpdate(t, s, func(tx storage.Tx) error { return tx.DeleteGoal(ctx, "alice", g.ID) })
	mustView(t, s, func(tx storage.Tx) error {
		goals, _ := tx.ListGoals(ctx, "alice")
		if len(goals) != 0 {
			t.Fatalf("goal should be deleted")
		}
		return nil
	})
}

func testGoalCounterOverflow(t *testing.T, s storage.Store) {
	ctx := context.Background()
	var g core.Goal
	mustUpdate(t, s, func(tx storage.Tx) error {
		var err error
		g, err = tx.InsertGoal(ctx, core.Goal{Owner: "alice", Name: "Moon", Target: core.Money{Minor: 100}, CreatedAt: base})
		if err != nil {
			return err
		}
		_, err = tx.AddToGoal(ctx, "alice", g.ID, core.Money{Minor: math.MaxInt64 - 10})
		return err
	})

	err := s.Update(ctx, func(tx storage.Tx) error {
		_, err := tx.AddToGoal(ctx, "alice", g.ID, core.Money{Minor: 20})
		return err
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("overflowing add should be a validation error, got %v", err)
	}
	mustView(t, s, func(tx storage.Tx) error {
		got, err := tx.GetGoal(ctx, "alice", g.ID)
		if err != nil || got.Current.Minor != math.MaxInt64-10 {
			t.Fatalf("counter changed after overflow: %+v %v", got, err)
		}
		return nil
	})
}

func testRules(t *testing.T, s storage.Store) {
	ctx := context.Background()
	p := seedPocket(t, s, "alice", "Bills")
	var r core.RecurringRule
	mustUpdate(t, s, func(tx storage.Tx) error {
		var err error
		r, err = tx.InsertRule(ctx, core.RecurringRule{
			Owner: "alice", Description: "rent", Amount: core.Money{Minor: 500}, Kind: core.Outflow,
			PocketID: p.ID, DayOfMonth: 5, Active: true, CreatedAt: base,
		})
		return err
	})
	mustView(t, s, func(tx storage.Tx) error {
		rules, err := tx.ListRules(ctx, "alice")
		if err != nil || len(rules) != 1 || !rules[0].Active || rules[0].PocketID != p.ID {
			t.Fatalf("rules: %+v %v", rules, err)
		}
		return nil
	})
	mustUpdate(t, s, func(tx storage.Tx) error {
		_, err := tx.DeletePocket(ctx, "alice", p.ID)
		return err
	})
	mustView(t, s, func(tx storage.Tx) error {
		rules, _ := tx.ListRules(ctx, "alice")
		if len(rules) != 1 || rules[0].PocketID != 0 {
			t.Fatalf("rule should be detached from the deleted pocket: %+v", rules)
		}
		return nil
	})
	mustUpdate(t, s, func(tx storage.Tx) error { return tx.DeleteRule(ctx, "alice", r.ID) })
}

func testRollback(t *testing.T, s storage.Store) {
	ctx := context.Background()
	p := seedPocket(t, s, "alice", "Food")
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx storage.Tx) error {
		if _, err := tx.InsertEntry(ctx, core.Entry{Owner: "alice", Amount: core.Money{Minor: 10}, Kind: core.Outflow, PocketID: p.ID, CreatedAt: base}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, core.ErrStorage) || !errors.Is(err, boom) {
		t.Fatalf("expected storage error wrapping boom, got %v", err)
	}

	typed := core.NewValidationError("amount", "bad")
	err = s.Update(ctx, func(tx storage.Tx) error {
		if _, err := tx.InsertEntry(ctx, core.Entry{Owner: "alice", Amount: core.Money{Minor: 10}, Kind: core.Outflow, PocketID: p.ID, CreatedAt: base}); err != nil {
			return err
		}
		return typed
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("typed errors should pass through, got %v", err)
	}

	mustView(t, s, func(tx storage.Tx) error {
		all, _ := tx.ListEntries(ctx, core.EntryFilter{Owner: "alice"})
		if len(all) != 0 {
			t.Fatalf("rolled back writes are visible: %+v", all)
		}
		return nil
	})
}
