// Package sheets mirrors the journal into a spreadsheet for people who
// prefer to read their ledger there. The mirror is append-only: removals
// are written as void rows that reference the removed entry.
package sheets

import (
	"context"
	"time"

	"saku/internal/core"
)

// JournalRow is one entry as it appears in the mirror.
type JournalRow struct {
	EntryID       int64
	Owner         string
	Date          time.Time
	Description   string
	Kind          core.Kind
	Amount        core.Money
	Pocket        string
	Category      string
	CorrelationID string
}

// VoidRow records that an entry no longer exists in the journal.
type VoidRow struct {
	EntryID  int64
	Owner    string
	VoidedAt time.Time
	Reason   string
}

// Ports for outbound adapters.
type (
	JournalWriter interface {
		AppendRows(ctx context.Context, rows []JournalRow) (rowRef string, err error)
	}

	VoidWriter interface {
		AppendVoids(ctx context.Context, voids []VoidRow) (rowRef string, err error)
	}

	JournalMirror interface {
		JournalWriter
		VoidWriter
	}
)

// NewJournalRow builds the mirror row of e using the display names of its
// pocket and category.
func NewJournalRow(e core.Entry, pocket, category string) JournalRow {
	return JournalRow{
		EntryID:       e.ID,
		Owner:         e.Owner,
		Date:          e.CreatedAt.UTC(),
		Description:   e.Description,
		Kind:          e.Kind,
		Amount:        e.Amount,
		Pocket:        pocket,
		Category:      category,
		CorrelationID: e.CorrelationID,
	}
}
