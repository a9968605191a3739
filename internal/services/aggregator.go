package services

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"saku/internal/core"
	"saku/internal/storage"
)

const dashboardRecentEntries = 5

// Aggregator derives balances and reports from the journal. Nothing is
// cached: every call folds the entries it reads.
type Aggregator struct {
	*deps
	budgets *BudgetTracker
	goals   *GoalLedger
	ledger  *LedgerService
}

func (a *Aggregator) TotalBalance(ctx context.Context, owner string) (core.Money, error) {
	if err := requireOwner(owner); err != nil {
		return core.Money{}, err
	}
	var entries []core.Entry
	err := a.store.View(ctx, func(tx storage.Tx) error {
		var err error
		entries, err = tx.ListEntries(ctx, core.EntryFilter{Owner: owner})
		return err
	})
	if err != nil {
		return core.Money{}, fmt.Errorf("total balance: %w", err)
	}
	return core.TotalBalance(entries), nil
}

func (a *Aggregator) PocketBalance(ctx context.Context, owner string, pocketID int64) (core.Money, error) {
	if err := requireOwner(owner); err != nil {
		return core.Money{}, err
	}
	var entries []core.Entry
	err := a.store.View(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetPocket(ctx, owner, pocketID); err != nil {
			return err
		}
		var err error
		entries, err = tx.ListEntries(ctx, core.EntryFilter{Owner: owner, PocketID: pocketID})
		return err
	})
	if err != nil {
		return core.Money{}, fmt.Errorf("pocket balance: %w", err)
	}
	return core.PocketBalance(entries, pocketID), nil
}

// PocketBalances lists every pocket of owner with its balance, including
// pockets that have no entries yet.
func (a *Aggregator) PocketBalances(ctx context.Context, owner string) ([]core.PocketBalanceLine, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	lines, _, err := a.balances(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("pocket balances: %w", err)
	}
	return lines, nil
}

// balances reads pockets and the journal in one snapshot.
func (a *Aggregator) balances(ctx context.Context, owner string) ([]core.PocketBalanceLine, core.Money, error) {
	var (
		pockets []core.Pocket
		entries []core.Entry
	)
	err := a.store.View(ctx, func(tx storage.Tx) error {
		var err error
		if pockets, err = tx.ListPockets(ctx, owner); err != nil {
			return err
		}
		entries, err = tx.ListEntries(ctx, core.EntryFilter{Owner: owner})
		return err
	})
	if err != nil {
		return nil, core.Money{}, err
	}
	byPocket := core.PocketBalances(entries)
	lines := make([]core.PocketBalanceLine, 0, len(pockets))
	for _, p := range pockets {
		lines = append(lines, core.PocketBalanceLine{Pocket: p, Balance: byPocket[p.ID]})
	}
	return lines, core.TotalBalance(entries), nil
}

// CategorySpend sums the category's outflows inside r.
func (a *Aggregator) CategorySpend(ctx context.Context, owner string, categoryID int64, r core.Range) (core.Money, error) {
	if err := requireOwner(owner); err != nil {
		return core.Money{}, err
	}
	if err := r.Validate(); err != nil {
		return core.Money{}, err
	}
	var entries []core.Entry
	err := a.store.View(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetCategory(ctx, owner, categoryID); err != nil {
			return err
		}
		var err error
		entries, err = tx.ListEntries(ctx, core.EntryFilter{
			Owner: owner, CategoryID: categoryID, Kind: core.Outflow, From: r.From, To: r.To,
		})
		return err
	})
	if err != nil {
		return core.Money{}, fmt.Errorf("category spend: %w", err)
	}
	return core.CategorySpend(entries, categoryID, r), nil
}

// Report summarizes income and expense inside r and breaks expense down by
// category, largest first.
func (a *Aggregator) Report(ctx context.Context, owner string, r core.Range) (core.Report, error) {
	if err := requireOwner(owner); err != nil {
		return core.Report{}, err
	}
	if err := r.Validate(); err != nil {
		return core.Report{}, err
	}
	var (
		entries    []core.Entry
		categories []core.Category
	)
	err := a.store.View(ctx, func(tx storage.Tx) error {
		var err error
		if entries, err = tx.ListEntries(ctx, core.EntryFilter{Owner: owner, From: r.From, To: r.To}); err != nil {
			return err
		}
		categories, err = tx.ListCategories(ctx, owner)
		return err
	})
	if err != nil {
		return core.Report{}, fmt.Errorf("report: %w", err)
	}

	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	var byCategory []core.CategoryAmount
	for id, amount := range core.SpendByCategory(entries) {
		name := names[id]
		if id == 0 {
			name = "Uncategorized"
		}
		byCategory = append(byCategory, core.CategoryAmount{CategoryID: id, Name: name, Amount: amount})
	}
	sort.Slice(byCategory, func(i, j int) bool {
		if byCategory[i].Amount.Minor == byCategory[j].Amount.Minor {
			return byCategory[i].CategoryID < byCategory[j].CategoryID
		}
		return byCategory[i].Amount.Minor > byCategory[j].Amount.Minor
	})

	return core.Report{Range: r, Summary: core.Summarize(entries), ByCategory: byCategory}, nil
}

// Dashboard loads the overview's independent parts concurrently. Each part
// reads its own consistent snapshot.
func (a *Aggregator) Dashboard(ctx context.Context, owner string, period core.Period) (core.Dashboard, error) {
	if err := requireOwner(owner); err != nil {
		return core.Dashboard{}, err
	}
	if err := period.Validate(); err != nil {
		return core.Dashboard{}, err
	}

	d := core.Dashboard{Period: period}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.Pockets, d.Total, err = a.balances(gctx, owner)
		return err
	})
	g.Go(func() error {
		var err error
		d.Budgets, err = a.budgets.BudgetStatus(gctx, owner, period)
		return err
	})
	g.Go(func() error {
		var err error
		d.Goals, err = a.goals.ListGoals(gctx, owner)
		return err
	})
	g.Go(func() error {
		var err error
		d.Recent, err = a.ledger.QueryEntries(gctx, core.EntryFilter{
			Owner: owner, Order: core.Descending, Limit: dashboardRecentEntries,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}
	return d, nil
}
