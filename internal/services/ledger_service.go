package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"saku/internal/core"
	"saku/internal/log"
	"saku/internal/storage"
)

// LedgerService appends to and prunes the journal and manages the pockets,
// categories and recurring rules entries refer to.
type LedgerService struct {
	*deps
}

// AppendEntry records a simple entry for owner. Pocket and category, when
// set, must belong to owner.
func (s *LedgerService) AppendEntry(ctx context.Context, owner string, e core.Entry) (core.Entry, error) {
	e.Owner = owner
	e.Description = strings.TrimSpace(e.Description)
	e.CorrelationID = ""
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.timestamp()
	} else {
		e.CreatedAt = e.CreatedAt.UTC().Truncate(time.Microsecond)
	}
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}

	var saved core.Entry
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		if err := checkReferences(ctx, tx, owner, e.PocketID, e.CategoryID); err != nil {
			return err
		}
		var err error
		saved, err = tx.InsertEntry(ctx, e)
		return err
	})
	if err != nil {
		return core.Entry{}, fmt.Errorf("append entry: %w", err)
	}

	s.logger.WithComponent(log.ComponentLedger).InfoContext(ctx, "Entry appended",
		log.NewFields().WithEntry(saved).WithOperation(log.OpAppend).ToSlice()...)

	s.publish(ctx, core.JournalEvent{
		Type:       core.EventEntryAppended,
		Owner:      owner,
		EntryIDs:   []int64{saved.ID},
		PocketID:   saved.PocketID,
		Amount:     saved.Amount,
		OccurredAt: saved.CreatedAt,
	})
	return saved, nil
}

// RemoveEntry deletes one simple entry. Legs of a transfer or a goal
// funding carry a correlation id and cannot be removed one by one.
func (s *LedgerService) RemoveEntry(ctx context.Context, owner string, id int64) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		found, err := tx.GetEntries(ctx, owner, []int64{id})
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return core.NewNotFoundError("entry", id)
		}
		if found[0].CorrelationID != "" {
			return core.NewValidationError("entry", "belongs to a transfer or goal funding and cannot be removed alone")
		}
		return tx.DeleteEntry(ctx, owner, id)
	})
	if err != nil {
		return fmt.Errorf("remove entry: %w", err)
	}

	s.logger.WithComponent(log.ComponentLedger).InfoContext(ctx, "Entry removed",
		log.FieldOwnerID, owner, log.FieldEntryID, id)
	s.publish(ctx, core.JournalEvent{Type: core.EventEntryRemoved, Owner: owner, EntryIDs: []int64{id}})
	return nil
}

// QueryEntries returns the owner's entries matching f.
func (s *LedgerService) QueryEntries(ctx context.Context, f core.EntryFilter) ([]core.Entry, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var out []core.Entry
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.ListEntries(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	return out, nil
}

func (s *LedgerService) CreatePocket(ctx context.Context, owner, name string) (core.Pocket, error) {
	p := core.Pocket{Owner: owner, Name: strings.TrimSpace(name), CreatedAt: s.timestamp()}
	if err := p.Validate(); err != nil {
		return core.Pocket{}, err
	}
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		p, err = tx.InsertPocket(ctx, p)
		return err
	})
	if err != nil {
		return core.Pocket{}, fmt.Errorf("create pocket: %w", err)
	}
	return p, nil
}

func (s *LedgerService) GetPocket(ctx context.Context, owner string, id int64) (core.Pocket, error) {
	if err := requireOwner(owner); err != nil {
		return core.Pocket{}, err
	}
	var p core.Pocket
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		p, err = tx.GetPocket(ctx, owner, id)
		return err
	})
	if err != nil {
		return core.Pocket{}, fmt.Errorf("get pocket: %w", err)
	}
	return p, nil
}

func (s *LedgerService) ListPockets(ctx context.Context, owner string) ([]core.Pocket, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	var out []core.Pocket
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.ListPockets(ctx, owner)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list pockets: %w", err)
	}
	return out, nil
}

// DeletePocket removes the pocket together with every entry recorded on
// it, so its balance disappears from the total as well.
func (s *LedgerService) DeletePocket(ctx context.Context, owner string, id int64) ([]int64, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	var removed []int64
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		removed, err = tx.DeletePocket(ctx, owner, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("delete pocket: %w", err)
	}

	s.logger.WithComponent(log.ComponentLedger).InfoContext(ctx, "Pocket deleted",
		log.FieldOwnerID, owner, log.FieldPocketID, id, "removed_entries", len(removed))
	s.publish(ctx, core.JournalEvent{Type: core.EventPocketDeleted, Owner: owner, PocketID: id, EntryIDs: removed})
	return removed, nil
}

func (s *LedgerService) CreateCategory(ctx context.Context, owner, name string) (core.Category, error) {
	c := core.Category{Owner: owner, Name: strings.TrimSpace(name)}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		c, err = tx.InsertCategory(ctx, c)
		return err
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *LedgerService) ListCategories(ctx context.Context, owner string) ([]core.Category, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	var out []core.Category
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.ListCategories(ctx, owner)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// DeleteCategory leaves entries in place without a category and drops the
// category's budgets.
func (s *LedgerService) DeleteCategory(ctx context.Context, owner string, id int64) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		return tx.DeleteCategory(ctx, owner, id)
	})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// CreateRule stores a recurring rule record. Rules are never executed.
func (s *LedgerService) CreateRule(ctx context.Context, owner string, r core.RecurringRule) (core.RecurringRule, error) {
	r.Owner = owner
	r.Description = strings.TrimSpace(r.Description)
	r.CreatedAt = s.timestamp()
	if err := r.Validate(); err != nil {
		return core.RecurringRule{}, err
	}
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		if err := checkReferences(ctx, tx, owner, r.PocketID, r.CategoryID); err != nil {
			return err
		}
		var err error
		r, err = tx.InsertRule(ctx, r)
		return err
	})
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("create rule: %w", err)
	}
	return r, nil
}

func (s *LedgerService) ListRules(ctx context.Context, owner string) ([]core.RecurringRule, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	var out []core.RecurringRule
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.ListRules(ctx, owner)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return out, nil
}

func (s *LedgerService) DeleteRule(ctx context.Context, owner string, id int64) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		return tx.DeleteRule(ctx, owner, id)
	})
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}

// checkReferences turns a missing or foreign pocket or category into a
// validation failure of the referencing record.
func checkReferences(ctx context.Context, tx storage.Tx, owner string, pocketID, categoryID int64) error {
	if pocketID != 0 {
		if _, err := tx.GetPocket(ctx, owner, pocketID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return core.NewValidationError("pocket_id", "does not reference a pocket of this owner")
			}
			return err
		}
	}
	if categoryID != 0 {
		if _, err := tx.GetCategory(ctx, owner, categoryID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return core.NewValidationError("category_id", "does not reference a category of this owner")
			}
			return err
		}
	}
	return nil
}
