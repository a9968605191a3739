package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"saku/internal/core"
)

func TestTransferBetweenPockets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	food := f.pocket(t, "Food")
	emergency := f.pocket(t, "Emergency")

	tr, err := f.engine.Transfers.TransferBetweenPockets(ctx, testOwner, food.ID, emergency.ID, core.Money{Minor: 50000})
	if err != nil {
		t.Fatalf("TransferBetweenPockets() error = %v", err)
	}

	if got := f.pocketBalance(t, food.ID); got != -50000 {
		t.Errorf("Food balance = %d, want -50000", got)
	}
	if got := f.pocketBalance(t, emergency.ID); got != 50000 {
		t.Errorf("Emergency balance = %d, want 50000", got)
	}
	if got := f.total(t); got != 0 {
		t.Errorf("total = %d, want 0", got)
	}

	entries, err := f.engine.Ledger.QueryEntries(ctx, core.EntryFilter{Owner: testOwner})
	if err != nil {
		t.Fatalf("QueryEntries() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if e.CorrelationID != tr.CorrelationID || tr.CorrelationID == "" {
			t.Errorf("entry %d correlation = %q, want %q", e.ID, e.CorrelationID, tr.CorrelationID)
		}
		if !e.CreatedAt.Equal(testNow) {
			t.Errorf("entry %d created_at = %v, want %v", e.ID, e.CreatedAt, testNow)
		}
	}
	if tr.Outflow.Kind != core.Outflow || tr.Outflow.PocketID != food.ID {
		t.Errorf("outflow leg = %+v", tr.Outflow)
	}
	if tr.Inflow.Kind != core.Inflow || tr.Inflow.PocketID != emergency.ID {
		t.Errorf("inflow leg = %+v", tr.Inflow)
	}
	if tr.Outflow.Description != "Transfer to Emergency" || tr.Inflow.Description != "Transfer from Food" {
		t.Errorf("descriptions = %q / %q", tr.Outflow.Description, tr.Inflow.Description)
	}

	events := f.publisher.Events()
	last := events[len(events)-1]
	if last.Type != core.EventTransferCompleted || last.CorrelationID != tr.CorrelationID || len(last.EntryIDs) != 2 {
		t.Errorf("last event = %+v", last)
	}
}

func TestTransferAllowsOverdraft(t *testing.T) {
	f := newFixture(t)
	src := f.pocket(t, "Src")
	dst := f.pocket(t, "Dst")
	f.entry(t, core.Entry{Amount: core.Money{Minor: 100}, Kind: core.Inflow, PocketID: src.ID})

	if _, err := f.engine.Transfers.TransferBetweenPockets(context.Background(), testOwner, src.ID, dst.ID, core.Money{Minor: 1000}); err != nil {
		t.Fatalf("TransferBetweenPockets() error = %v", err)
	}
	if got := f.pocketBalance(t, src.ID); got != -900 {
		t.Errorf("source balance = %d, want -900", got)
	}
}

func TestTransferValidation(t *testing.T) {
	f := newFixture(t)
	a := f.pocket(t, "A")
	b := f.pocket(t, "B")
	ctx := context.Background()

	tests := []struct {
		name     string
		owner    string
		src, dst int64
		amount   int64
	}{
		{"zero amount", testOwner, a.ID, b.ID, 0},
		{"negative amount", testOwner, a.ID, b.ID, -5},
		{"same pocket", testOwner, a.ID, a.ID, 100},
		{"missing owner", "", a.ID, b.ID, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Transfers.TransferBetweenPockets(ctx, tt.owner, tt.src, tt.dst, core.Money{Minor: tt.amount})
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("error = %v, want validation error", err)
			}
		})
	}
	if n := f.entryCount(t); n != 0 {
		t.Errorf("rejected transfers wrote %d entries", n)
	}
}

func TestTransferForeignPocket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.pocket(t, "Mine")
	theirs, err := f.engine.Ledger.CreatePocket(ctx, "user-2", "Theirs")
	if err != nil {
		t.Fatalf("CreatePocket() error = %v", err)
	}

	_, err = f.engine.Transfers.TransferBetweenPockets(ctx, testOwner, mine.ID, theirs.ID, core.Money{Minor: 100})
	var nf *core.NotFoundError
	if !errors.As(err, &nf) || nf.Resource != "pocket" || nf.ID != theirs.ID {
		t.Fatalf("error = %v, want pocket %d not found", err, theirs.ID)
	}
	if n := f.entryCount(t); n != 0 {
		t.Errorf("failed transfer wrote %d entries", n)
	}
}

func TestTransferRollsBackWhenSecondLegFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.pocket(t, "A")
	b := f.pocket(t, "B")
	broken := newFixtureWithStore(t, secondInsertFailsStore{Store: f.store})

	_, err := broken.engine.Transfers.TransferBetweenPockets(ctx, testOwner, a.ID, b.ID, core.Money{Minor: 100})
	if !errors.Is(err, core.ErrStorage) {
		t.Fatalf("error = %v, want storage error", err)
	}
	if n := f.entryCount(t); n != 0 {
		t.Errorf("entries after rollback = %d, want 0", n)
	}
	if got := f.pocketBalance(t, a.ID); got != 0 {
		t.Errorf("source balance after rollback = %d, want 0", got)
	}
	if len(broken.publisher.Events()) != 0 {
		t.Error("rolled back transfer published an event")
	}
}

func TestTransferRetriesConflicts(t *testing.T) {
	t.Run("succeeds after transient conflicts", func(t *testing.T) {
		f := newFixture(t)
		a := f.pocket(t, "A")
		b := f.pocket(t, "B")
		cs := &conflictStore{Store: f.store, remaining: 2}
		f2 := newFixtureWithStore(t, cs)

		if _, err := f2.engine.Transfers.TransferBetweenPockets(context.Background(), testOwner, a.ID, b.ID, core.Money{Minor: 10}); err != nil {
			t.Fatalf("TransferBetweenPockets() error = %v", err)
		}
		if cs.calls != 3 {
			t.Errorf("Update calls = %d, want 3", cs.calls)
		}
		if got := f2.total(t); got != 0 {
			t.Errorf("total = %d, want 0", got)
		}
		if n := f2.entryCount(t); n != 2 {
			t.Errorf("entries = %d, want 2", n)
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		f := newFixture(t)
		a := f.pocket(t, "A")
		b := f.pocket(t, "B")
		cs := &conflictStore{Store: f.store, remaining: 10}
		f2 := newFixtureWithStore(t, cs)

		_, err := f2.engine.Transfers.TransferBetweenPockets(context.Background(), testOwner, a.ID, b.ID, core.Money{Minor: 10})
		var ce *core.ConflictError
		if !errors.As(err, &ce) {
			t.Fatalf("error = %v, want conflict error", err)
		}
		if ce.Attempts != 3 {
			t.Errorf("Attempts = %d, want 3", ce.Attempts)
		}
		if cs.calls != 3 {
			t.Errorf("Update calls = %d, want 3", cs.calls)
		}
		if n := f2.entryCount(t); n != 0 {
			t.Errorf("entries = %d, want 0", n)
		}
		if len(f2.publisher.Events()) != 0 {
			t.Error("failed transfer published an event")
		}
	})

	t.Run("canceled context stops retrying", func(t *testing.T) {
		f := newFixture(t)
		a := f.pocket(t, "A")
		b := f.pocket(t, "B")
		cs := &conflictStore{Store: f.store, remaining: 10}
		f2 := newFixtureWithStore(t, cs)
		f2.engine.Transfers.retry.BaseDelay = time.Hour
		f2.engine.Transfers.retry.MaxDelay = time.Hour

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := f2.engine.Transfers.TransferBetweenPockets(ctx, testOwner, a.ID, b.ID, core.Money{Minor: 10})
		if !errors.Is(err, core.ErrStorage) || !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want storage error wrapping context.Canceled", err)
		}
	})
}

func TestFundGoal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	savings := f.pocket(t, "Savings")
	f.entry(t, core.Entry{Amount: core.Money{Minor: 5_000_000}, Kind: core.Inflow, PocketID: savings.ID})

	laptop, err := f.engine.Goals.CreateGoal(ctx, testOwner, "Laptop", core.Money{Minor: 15_000_000})
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}

	funding, err := f.engine.Transfers.FundGoal(ctx, testOwner, laptop.Goal.ID, savings.ID, core.Money{Minor: 5_000_000})
	if err != nil {
		t.Fatalf("FundGoal() error = %v", err)
	}
	if funding.Goal.Current.Minor != 5_000_000 {
		t.Errorf("goal current = %d, want 5000000", funding.Goal.Current.Minor)
	}
	if funding.Entry.Kind != core.Outflow || funding.Entry.Description != "Saving for Laptop" {
		t.Errorf("funding entry = %+v", funding.Entry)
	}

	got, err := f.engine.Goals.GetGoal(ctx, testOwner, laptop.Goal.ID)
	if err != nil {
		t.Fatalf("GetGoal() error = %v", err)
	}
	if got.Whole() != 33 {
		t.Errorf("progress = %d, want 33", got.Whole())
	}
	if got.Reached {
		t.Error("goal should not be reached")
	}
	if bal := f.pocketBalance(t, savings.ID); bal != 0 {
		t.Errorf("Savings balance = %d, want 0", bal)
	}
	entries, err := f.engine.Ledger.QueryEntries(ctx, core.EntryFilter{Owner: testOwner, PocketID: savings.ID})
	if err != nil {
		t.Fatalf("QueryEntries() error = %v", err)
	}
	var funded int
	for _, e := range entries {
		if e.CorrelationID == funding.CorrelationID {
			funded++
		}
	}
	if funded != 1 {
		t.Errorf("funding wrote %d entries, want exactly 1", funded)
	}
}

func TestFundGoalPastTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pocket(t, "P")
	g, err := f.engine.Goals.CreateGoal(ctx, testOwner, "Trip", core.Money{Minor: 1000})
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := f.engine.Transfers.FundGoal(ctx, testOwner, g.Goal.ID, p.ID, core.Money{Minor: 600}); err != nil {
			t.Fatalf("FundGoal() error = %v", err)
		}
	}
	got, err := f.engine.Goals.GetGoal(ctx, testOwner, g.Goal.ID)
	if err != nil {
		t.Fatalf("GetGoal() error = %v", err)
	}
	if got.Goal.Current.Minor != 1800 {
		t.Errorf("current = %d, want 1800", got.Goal.Current.Minor)
	}
	if got.Whole() != 100 || !got.Reached {
		t.Errorf("progress = %d reached = %v, want 100 true", got.Whole(), got.Reached)
	}
}

func TestFundGoalFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing goal", func(t *testing.T) {
		f := newFixture(t)
		p := f.pocket(t, "P")
		_, err := f.engine.Transfers.FundGoal(ctx, testOwner, 999, p.ID, core.Money{Minor: 10})
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("error = %v, want not found", err)
		}
	})

	t.Run("zero amount", func(t *testing.T) {
		f := newFixture(t)
		p := f.pocket(t, "P")
		g, _ := f.engine.Goals.CreateGoal(ctx, testOwner, "G", core.Money{Minor: 10})
		_, err := f.engine.Transfers.FundGoal(ctx, testOwner, g.Goal.ID, p.ID, core.Money{})
		if !errors.Is(err, core.ErrValidation) {
			t.Errorf("error = %v, want validation error", err)
		}
	})

	t.Run("rollback when goal update fails", func(t *testing.T) {
		f := newFixture(t)
		p := f.pocket(t, "P")
		g, _ := f.engine.Goals.CreateGoal(ctx, testOwner, "G", core.Money{Minor: 10})
		broken := newFixtureWithStore(t, failingGoalStore{Store: f.store})

		_, err := broken.engine.Transfers.FundGoal(ctx, testOwner, g.Goal.ID, p.ID, core.Money{Minor: 5})
		if !errors.Is(err, core.ErrStorage) {
			t.Fatalf("error = %v, want storage error", err)
		}
		if n := f.entryCount(t); n != 0 {
			t.Errorf("entries after rollback = %d, want 0", n)
		}
		got, _ := f.engine.Goals.GetGoal(ctx, testOwner, g.Goal.ID)
		if got.Goal.Current.Minor != 0 {
			t.Errorf("goal current after rollback = %d, want 0", got.Goal.Current.Minor)
		}
	})
}
