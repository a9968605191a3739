// Package worker mirrors committed journal changes into a spreadsheet.
package worker

import (
	"context"
	"fmt"

	"saku/internal/amqp"
	"saku/internal/core"
	"saku/internal/log"
	"saku/internal/sheets"
	"saku/internal/storage"
)

// MirrorWorker turns journal events into mirror rows. Events carry ids
// only, so the worker reads the entries back from storage.
type MirrorWorker struct {
	store  storage.Store
	mirror sheets.JournalMirror
	logger *log.Logger
}

func NewMirrorWorker(store storage.Store, mirror sheets.JournalMirror, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		store:  store,
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMessage processes one journal event delivered by AMQP.
func (w *MirrorWorker) HandleMessage(ctx context.Context, msg *amqp.JournalEventMessage) error {
	return w.HandleEvent(ctx, msg.Event())
}

// HandleEvent mirrors one journal event.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev core.JournalEvent) error {
	w.logger.InfoContext(ctx, "Processing journal event",
		"type", string(ev.Type),
		log.FieldOwnerID, ev.Owner,
		"entries", len(ev.EntryIDs))

	switch {
	case ev.Type.AddsEntries():
		return w.mirrorEntries(ctx, ev)
	case ev.Type.RemovesEntries():
		return w.voidEntries(ctx, ev)
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown journal event", "type", string(ev.Type))
		return nil
	}
}

func (w *MirrorWorker) mirrorEntries(ctx context.Context, ev core.JournalEvent) error {
	if len(ev.EntryIDs) == 0 {
		return nil
	}
	var rows []sheets.JournalRow
	err := w.store.View(ctx, func(tx storage.Tx) error {
		entries, err := tx.GetEntries(ctx, ev.Owner, ev.EntryIDs)
		if err != nil {
			return err
		}
		rows, err = buildRows(ctx, tx, ev.Owner, entries)
		return err
	})
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}
	if len(rows) < len(ev.EntryIDs) {
		// Removed before the event was processed; the removal event voids them.
		w.logger.WarnContext(ctx, "Some entries no longer exist",
			"type", string(ev.Type),
			"wanted", len(ev.EntryIDs),
			"found", len(rows))
	}
	if len(rows) == 0 {
		return nil
	}

	ref, err := w.mirror.AppendRows(ctx, rows)
	if err != nil {
		return fmt.Errorf("append rows: %w", err)
	}
	w.logger.InfoContext(ctx, "Mirrored journal entries",
		log.FieldOperation, log.OpMirror,
		log.FieldOwnerID, ev.Owner,
		log.FieldCorrelationID, ev.CorrelationID,
		"rows", len(rows),
		"ref", ref)
	return nil
}

func (w *MirrorWorker) voidEntries(ctx context.Context, ev core.JournalEvent) error {
	if len(ev.EntryIDs) == 0 {
		return nil
	}
	reason := "entry removed"
	if ev.Type == core.EventPocketDeleted {
		reason = fmt.Sprintf("pocket %d deleted", ev.PocketID)
	}
	voids := make([]sheets.VoidRow, 0, len(ev.EntryIDs))
	for _, id := range ev.EntryIDs {
		voids = append(voids, sheets.VoidRow{EntryID: id, Owner: ev.Owner, VoidedAt: ev.OccurredAt, Reason: reason})
	}
	ref, err := w.mirror.AppendVoids(ctx, voids)
	if err != nil {
		return fmt.Errorf("append voids: %w", err)
	}
	w.logger.InfoContext(ctx, "Voided mirrored entries",
		log.FieldOwnerID, ev.Owner,
		"rows", len(voids),
		"ref", ref)
	return nil
}

// Backfill mirrors every entry matching f, for seeding an empty sheet or
// recovering from lost messages. It returns the number of rows written.
func (w *MirrorWorker) Backfill(ctx context.Context, f core.EntryFilter) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	f.Order = core.Ascending
	var rows []sheets.JournalRow
	err := w.store.View(ctx, func(tx storage.Tx) error {
		entries, err := tx.ListEntries(ctx, f)
		if err != nil {
			return err
		}
		rows, err = buildRows(ctx, tx, f.Owner, entries)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("load entries: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if _, err := w.mirror.AppendRows(ctx, rows); err != nil {
		return 0, fmt.Errorf("append rows: %w", err)
	}
	w.logger.InfoContext(ctx, "Backfilled mirror", log.FieldOwnerID, f.Owner, "rows", len(rows))
	return len(rows), nil
}

func buildRows(ctx context.Context, tx storage.Tx, owner string, entries []core.Entry) ([]sheets.JournalRow, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	pockets, err := tx.ListPockets(ctx, owner)
	if err != nil {
		return nil, err
	}
	categories, err := tx.ListCategories(ctx, owner)
	if err != nil {
		return nil, err
	}
	pocketNames := make(map[int64]string, len(pockets))
	for _, p := range pockets {
		pocketNames[p.ID] = p.Name
	}
	categoryNames := make(map[int64]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	rows := make([]sheets.JournalRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, sheets.NewJournalRow(e, pocketNames[e.PocketID], categoryNames[e.CategoryID]))
	}
	return rows, nil
}
