package services

import (
	"context"
	"fmt"

	"saku/internal/core"
	"saku/internal/log"
	"saku/internal/storage"
)

// BudgetTracker manages monthly category budgets and evaluates them
// against the journal.
type BudgetTracker struct {
	*deps
}

// SetBudget creates or replaces the budget of a category for a period.
func (b *BudgetTracker) SetBudget(ctx context.Context, owner string, categoryID int64, period core.Period, amount core.Money) (core.Budget, error) {
	budget := core.Budget{Owner: owner, CategoryID: categoryID, Amount: amount, Period: period}
	if err := budget.Validate(); err != nil {
		return core.Budget{}, err
	}
	err := b.store.Update(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetCategory(ctx, owner, categoryID); err != nil {
			return err
		}
		var err error
		budget, err = tx.UpsertBudget(ctx, budget)
		return err
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("set budget: %w", err)
	}

	b.logger.WithComponent(log.ComponentBudget).InfoContext(ctx, "Budget set",
		log.FieldOwnerID, owner,
		log.FieldCategoryID, categoryID,
		log.FieldYear, period.Year,
		log.FieldMonth, period.Month,
		log.FieldAmountMinor, amount.Minor)
	return budget, nil
}

func (b *BudgetTracker) DeleteBudget(ctx context.Context, owner string, id int64) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	err := b.store.Update(ctx, func(tx storage.Tx) error {
		return tx.DeleteBudget(ctx, owner, id)
	})
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

// BudgetStatus evaluates every budget of the period against the outflows
// recorded in that calendar month.
func (b *BudgetTracker) BudgetStatus(ctx context.Context, owner string, period core.Period) ([]core.BudgetLine, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}

	var (
		budgets    []core.Budget
		categories []core.Category
		entries    []core.Entry
	)
	r := period.Range()
	err := b.store.View(ctx, func(tx storage.Tx) error {
		var err error
		if budgets, err = tx.ListBudgets(ctx, owner, period); err != nil {
			return err
		}
		if len(budgets) == 0 {
			return nil
		}
		if categories, err = tx.ListCategories(ctx, owner); err != nil {
			return err
		}
		entries, err = tx.ListEntries(ctx, core.EntryFilter{Owner: owner, Kind: core.Outflow, From: r.From, To: r.To})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("budget status: %w", err)
	}

	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	lines := make([]core.BudgetLine, 0, len(budgets))
	for _, budget := range budgets {
		spent := core.CategorySpend(entries, budget.CategoryID, r)
		lines = append(lines, core.EvaluateBudget(budget, names[budget.CategoryID], spent))
	}
	return lines, nil
}
