// Package services implements the ledger operations on top of a
// storage.Store: journal writes, money movement, budgets, goals and the
// derived read models.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"saku/internal/core"
	"saku/internal/log"
	"saku/internal/storage"
)

// Publisher receives journal events after a successful commit.
type Publisher interface {
	Publish(ctx context.Context, ev core.JournalEvent) error
	Close() error
}

type Options struct {
	Publisher Publisher
	Retry     RetryPolicy
	Logger    *log.Logger
	// Clock and NewID are overridable for tests.
	Clock func() time.Time
	NewID func() string
}

// Engine bundles the services over one store.
type Engine struct {
	Ledger    *LedgerService
	Transfers *TransferEngine
	Budgets   *BudgetTracker
	Goals     *GoalLedger
	Reports   *Aggregator

	store     storage.Store
	publisher Publisher
}

func New(store storage.Store, opts Options) *Engine {
	d := newDeps(store, opts)
	budgets := &BudgetTracker{deps: d}
	goals := &GoalLedger{deps: d}
	ledger := &LedgerService{deps: d}
	return &Engine{
		Ledger:    ledger,
		Transfers: &TransferEngine{deps: d, retry: opts.Retry.normalized()},
		Budgets:   budgets,
		Goals:     goals,
		Reports:   &Aggregator{deps: d, budgets: budgets, goals: goals, ledger: ledger},
		store:     store,
		publisher: opts.Publisher,
	}
}

func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// Close closes both the store and the event publisher
func (e *Engine) Close() error {
	var errs []error

	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if e.publisher != nil {
		if err := e.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close engine: %v", errs)
	}
	return nil
}

type deps struct {
	store     storage.Store
	publisher Publisher
	logger    *log.Logger
	now       func() time.Time
	newID     func() string
}

func newDeps(store storage.Store, opts Options) *deps {
	d := &deps{
		store:     store,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		now:       opts.Clock,
		newID:     opts.NewID,
	}
	if d.logger == nil {
		d.logger = log.New(log.DefaultConfig())
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.newID == nil {
		d.newID = uuid.NewString
	}
	return d
}

// timestamp is the current time at the precision the SQL stores keep.
func (d *deps) timestamp() time.Time {
	return d.now().UTC().Truncate(time.Microsecond)
}

// publish sends ev without failing the caller: the write is already
// committed.
func (d *deps) publish(ctx context.Context, ev core.JournalEvent) {
	if d.publisher == nil {
		d.logger.DebugContext(ctx, "No event publisher configured, skipping journal event", "type", string(ev.Type))
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = d.timestamp()
	}
	if err := d.publisher.Publish(ctx, ev); err != nil {
		d.logger.WithComponent(log.ComponentAMQP).ErrorContext(ctx, "Failed to publish journal event",
			"type", string(ev.Type),
			log.FieldOwnerID, ev.Owner,
			log.FieldCorrelationID, ev.CorrelationID,
			log.FieldError, err)
	}
}

func requireOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return core.NewValidationError("owner", "is required")
	}
	return nil
}
