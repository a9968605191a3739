package services

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"saku/internal/core"
	"saku/internal/log"
	"saku/internal/storage"
)

func TestConcurrentMoneyMovementSQLite(t *testing.T) {
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "saku.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	pub := &recordingPublisher{}
	engine := New(store, Options{
		Publisher: pub,
		Retry:     RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 20 * time.Millisecond},
		Logger:    log.New(log.Config{Output: io.Discard}),
	})
	t.Cleanup(func() { _ = engine.Close() })

	ctx := context.Background()
	a, err := engine.Ledger.CreatePocket(ctx, testOwner, "A")
	if err != nil {
		t.Fatalf("CreatePocket() error = %v", err)
	}
	b, err := engine.Ledger.CreatePocket(ctx, testOwner, "B")
	if err != nil {
		t.Fatalf("CreatePocket() error = %v", err)
	}
	goal, err := engine.Goals.CreateGoal(ctx, testOwner, "Bike", core.Money{Minor: 1000})
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}

	const transfers, fundings = 20, 20
	var wg sync.WaitGroup
	errs := make(chan error, transfers+fundings)
	for i := 0; i < transfers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Transfers.TransferBetweenPockets(ctx, testOwner, a.ID, b.ID, core.Money{Minor: 20})
			errs <- err
		}()
	}
	for i := 0; i < fundings; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Transfers.FundGoal(ctx, testOwner, goal.Goal.ID, b.ID, core.Money{Minor: 2})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent movement failed: %v", err)
		}
	}

	balances, err := engine.Reports.PocketBalances(ctx, testOwner)
	if err != nil {
		t.Fatalf("PocketBalances() error = %v", err)
	}
	got := map[int64]int64{}
	for _, l := range balances {
		got[l.Pocket.ID] = l.Balance.Minor
	}
	if got[a.ID] != -400 || got[b.ID] != 360 {
		t.Errorf("balances A=%d B=%d, want -400 360", got[a.ID], got[b.ID])
	}
	total, err := engine.Reports.TotalBalance(ctx, testOwner)
	if err != nil {
		t.Fatalf("TotalBalance() error = %v", err)
	}
	if total.Minor != -40 {
		t.Errorf("total = %d, want -40", total.Minor)
	}

	g, err := engine.Goals.GetGoal(ctx, testOwner, goal.Goal.ID)
	if err != nil {
		t.Fatalf("GetGoal() error = %v", err)
	}
	if g.Goal.Current.Minor != 40 {
		t.Errorf("goal current = %d, want 40", g.Goal.Current.Minor)
	}

	entries, err := engine.Ledger.QueryEntries(ctx, core.EntryFilter{Owner: testOwner})
	if err != nil {
		t.Fatalf("QueryEntries() error = %v", err)
	}
	if len(entries) != 2*transfers+fundings {
		t.Errorf("entries = %d, want %d", len(entries), 2*transfers+fundings)
	}
	byCorrelation := map[string]int{}
	for _, e := range entries {
		byCorrelation[e.CorrelationID]++
	}
	if len(byCorrelation) != transfers+fundings {
		t.Errorf("distinct correlation ids = %d, want %d", len(byCorrelation), transfers+fundings)
	}
}
