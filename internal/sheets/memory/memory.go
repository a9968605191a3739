// Package memory is an in-process journal mirror for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"saku/internal/sheets"
)

type Mirror struct {
	mu    sync.Mutex
	rows  []sheets.JournalRow
	voids []sheets.VoidRow
}

var _ sheets.JournalMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

// AppendRows stores the rows and returns a synthetic row reference.
func (m *Mirror) AppendRows(_ context.Context, rows []sheets.JournalRow) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	first := len(m.rows) + 1
	m.rows = append(m.rows, rows...)
	return fmt.Sprintf("mem:rows:%d-%d", first, len(m.rows)), nil
}

func (m *Mirror) AppendVoids(_ context.Context, voids []sheets.VoidRow) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	first := len(m.voids) + 1
	m.voids = append(m.voids, voids...)
	return fmt.Sprintf("mem:voids:%d-%d", first, len(m.voids)), nil
}

func (m *Mirror) Rows() []sheets.JournalRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sheets.JournalRow(nil), m.rows...)
}

func (m *Mirror) Voids() []sheets.VoidRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sheets.VoidRow(nil), m.voids...)
}

// Live returns the mirrored rows whose entries have not been voided.
func (m *Mirror) Live() []sheets.JournalRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	voided := make(map[int64]bool, len(m.voids))
	for _, v := range m.voids {
		voided[v.EntryID] = true
	}
	var out []sheets.JournalRow
	for _, r := range m.rows {
		if !voided[r.EntryID] {
			out = append(out, r)
		}
	}
	return out
}
