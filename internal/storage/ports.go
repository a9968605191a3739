// Package storage persists the journal and its reference data.
//
// Every read and write goes through a Tx handed out by Store.Update or
// Store.View, so multi-record operations commit or roll back as a unit.
// Implementations return core typed errors: NotFoundError for missing or
// foreign-owned rows, ConflictError for serialization failures and
// StorageError for anything else.
package storage

import (
	"context"
	"errors"

	"saku/internal/core"
)

// Tx is the set of operations available inside one transaction. All lookups
// are scoped by owner.
type Tx interface {
	InsertEntry(ctx context.Context, e core.Entry) (core.Entry, error)
	DeleteEntry(ctx context.Context, owner string, id int64) error
	ListEntries(ctx context.Context, f core.EntryFilter) ([]core.Entry, error)
	GetEntries(ctx context.Context, owner string, ids []int64) ([]core.Entry, error)

	InsertPocket(ctx context.Context, p core.Pocket) (core.Pocket, error)
	GetPocket(ctx context.Context, owner string, id int64) (core.Pocket, error)
	ListPockets(ctx context.Context, owner string) ([]core.Pocket, error)
	// DeletePocket removes the pocket and every entry attached to it and
	// returns the ids of the removed entries.
	DeletePocket(ctx context.Context, owner string, id int64) ([]int64, error)

	InsertCategory(ctx context.Context, c core.Category) (core.Category, error)
	GetCategory(ctx context.Context, owner string, id int64) (core.Category, error)
	ListCategories(ctx context.Context, owner string) ([]core.Category, error)
	// DeleteCategory detaches the category from entries and rules and drops
	// its budgets.
	DeleteCategory(ctx context.Context, owner string, id int64) error

	UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	ListBudgets(ctx context.Context, owner string, p core.Period) ([]core.Budget, error)
	DeleteBudget(ctx context.Context, owner string, id int64) error

	InsertGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	GetGoal(ctx context.Context, owner string, id int64) (core.Goal, error)
	ListGoals(ctx context.Context, owner string) ([]core.Goal, error)
	// AddToGoal increments current_amount by amount without any clamp.
	AddToGoal(ctx context.Context, owner string, id int64, amount core.Money) (core.Goal, error)
	DeleteGoal(ctx context.Context, owner string, id int64) error

	InsertRule(ctx context.Context, r core.RecurringRule) (core.RecurringRule, error)
	ListRules(ctx context.Context, owner string) ([]core.RecurringRule, error)
	DeleteRule(ctx context.Context, owner string, id int64) error
}

// Store hands out transactions.
type Store interface {
	// Update runs fn in a read-write transaction. If fn returns an error
	// nothing it wrote is kept.
	Update(ctx context.Context, fn func(Tx) error) error
	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Classify turns err into one of the core typed errors. Errors that are
// already typed pass through unchanged.
func Classify(op string, err error, isConflict func(error) bool) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrValidation) || errors.Is(err, core.ErrNotFound) ||
		errors.Is(err, core.ErrConflict) || errors.Is(err, core.ErrStorage) {
		return err
	}
	if isConflict != nil && isConflict(err) {
		return &core.ConflictError{Op: op, Err: err}
	}
	return &core.StorageError{Op: op, Err: err}
}
