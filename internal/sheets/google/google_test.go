package google

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"saku/internal/core"
	"saku/internal/log"
	ports "saku/internal/sheets"
)

type appendCall struct {
	spreadsheetID string
	rng           string
	values        [][]any
}

type fakeValues struct {
	calls []appendCall
	err   error
}

func (f *fakeValues) Append(_ context.Context, spreadsheetID, rng string, values [][]any) (string, error) {
	f.calls = append(f.calls, appendCall{spreadsheetID, rng, values})
	if f.err != nil {
		return "", f.err
	}
	return rng, nil
}

func testClient(values valuesAPI) *Client {
	return newClient(values, Config{SpreadsheetID: " sheet-1 ", Currency: "IDR"}, log.New(log.Config{Output: io.Discard}))
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Journal", 2025, "2025 Journal"},
		{"  Journal  ", 2024, "2024 Journal"},
		{"2023 Journal", 2025, "2023 Journal"},
		{"", 2025, ""},
		{"1800 Old", 2025, "2025 1800 Old"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestAppendRowsGroupsByYear(t *testing.T) {
	fv := &fakeValues{}
	c := testClient(fv)

	rows := []ports.JournalRow{
		{EntryID: 1, Date: time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC), Description: "Rent", Kind: core.Outflow, Amount: core.Money{Minor: 1500000}, Pocket: "Bills"},
		{EntryID: 2, Date: time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC), Description: "Salary", Kind: core.Inflow, Amount: core.Money{Minor: 9000000}},
		{EntryID: 3, Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Kind: core.Inflow, Amount: core.Money{Minor: 1}},
	}
	if _, err := c.AppendRows(context.Background(), rows); err != nil {
		t.Fatalf("AppendRows() error = %v", err)
	}

	if len(fv.calls) != 2 {
		t.Fatalf("Append calls = %d, want 2", len(fv.calls))
	}
	if fv.calls[0].rng != "2024 Journal!A:I" || len(fv.calls[0].values) != 2 {
		t.Errorf("first call = %s with %d rows", fv.calls[0].rng, len(fv.calls[0].values))
	}
	if fv.calls[1].rng != "2025 Journal!A:I" || len(fv.calls[1].values) != 1 {
		t.Errorf("second call = %s with %d rows", fv.calls[1].rng, len(fv.calls[1].values))
	}
	if fv.calls[0].spreadsheetID != "sheet-1" {
		t.Errorf("spreadsheet id = %q, want trimmed", fv.calls[0].spreadsheetID)
	}

	first := fv.calls[0].values[0]
	if first[0] != "2024-12-31" || first[1] != "1" || first[3] != "outflow" || first[4] != "-15000" || first[5] != "Bills" {
		t.Errorf("encoded row = %v", first)
	}
}

func TestAppendVoids(t *testing.T) {
	fv := &fakeValues{}
	c := testClient(fv)
	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	if _, err := c.AppendVoids(context.Background(), []ports.VoidRow{{EntryID: 9, Owner: "u", VoidedAt: at, Reason: "pocket deleted"}}); err != nil {
		t.Fatalf("AppendVoids() error = %v", err)
	}
	row := fv.calls[0].values[0]
	if row[1] != "9" || row[2] != "pocket deleted" || row[3] != voidMarker || row[8] != "u" {
		t.Errorf("void row = %v", row)
	}
}

func TestAppendErrors(t *testing.T) {
	boom := errors.New("quota exceeded")
	c := testClient(&fakeValues{err: boom})

	_, err := c.AppendRows(context.Background(), []ports.JournalRow{{EntryID: 1, Date: time.Now(), Kind: core.Inflow}})
	if !errors.Is(err, boom) {
		t.Errorf("AppendRows() error = %v, want %v", err, boom)
	}
	if ref, err := c.AppendRows(context.Background(), nil); err != nil || ref != "" {
		t.Errorf("AppendRows(nil) = %q, %v", ref, err)
	}
}

func TestNewRequiresSpreadsheet(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Error("New() without spreadsheet id should fail")
	}
	_, err := New(context.Background(), Config{SpreadsheetID: "x", CredentialsFile: "/nonexistent/creds.json"}, nil)
	if err == nil {
		t.Error("New() with unreadable credentials should fail")
	}
}
