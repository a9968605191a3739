package google

import (
	"strconv"
	"time"

	"saku/internal/core"
	ports "saku/internal/sheets"
)

const (
	dateLayout = "2006-01-02"
	voidMarker = "VOID"
)

// encodeRow lays a journal row out as columns A..I:
// date, entry id, description, kind, signed amount, pocket, category,
// correlation id, owner.
func encodeRow(r ports.JournalRow, currency string) []any {
	amount := r.Amount.Major(currency)
	if r.Kind == core.Outflow {
		amount = amount.Neg()
	}
	return []any{
		r.Date.UTC().Format(dateLayout),
		strconv.FormatInt(r.EntryID, 10),
		r.Description,
		string(r.Kind),
		amount.String(),
		r.Pocket,
		r.Category,
		r.CorrelationID,
		r.Owner,
	}
}

// encodeVoid uses the same columns with the VOID marker in place of the
// kind and no amount.
func encodeVoid(v ports.VoidRow, at time.Time) []any {
	return []any{
		at.UTC().Format(dateLayout),
		strconv.FormatInt(v.EntryID, 10),
		v.Reason,
		voidMarker,
		"",
		"",
		"",
		"",
		v.Owner,
	}
}
