// Package memory is an in-process Store for development and tests.
//
// Update works on a private copy of the data and swaps it in only when the
// callback succeeds, so a failed transaction leaves no trace. Writers are
// serialized by a mutex, which makes every transaction serializable.
package memory

import (
	"context"
	"sort"
	"sync"

	"saku/internal/core"
	"saku/internal/storage"
)

type Store struct {
	mu     sync.RWMutex
	data   *state
	closed bool
}

var _ storage.Store = (*Store)(nil)

type state struct {
	seq        int64
	pockets    map[int64]core.Pocket
	categories map[int64]core.Category
	entries    map[int64]core.Entry
	budgets    map[int64]core.Budget
	goals      map[int64]core.Goal
	rules      map[int64]core.RecurringRule
}

func New() *Store {
	return &Store{data: &state{
		pockets:    map[int64]core.Pocket{},
		categories: map[int64]core.Category{},
		entries:    map[int64]core.Entry{},
		budgets:    map[int64]core.Budget{},
		goals:      map[int64]core.Goal{},
		rules:      map[int64]core.RecurringRule{},
	}}
}

func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return &core.StorageError{Op: "update", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &core.StorageError{Op: "update", Err: errClosed}
	}

	work := s.data.clone()
	if err := fn(&tx{st: work}); err != nil {
		return storage.Classify("update", err, nil)
	}
	if err := ctx.Err(); err != nil {
		return &core.StorageError{Op: "commit update", Err: err}
	}
	s.data = work
	return nil
}

func (s *Store) View(ctx context.Context, fn func(storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return &core.StorageError{Op: "view", Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return &core.StorageError{Op: "view", Err: errClosed}
	}
	return storage.Classify("view", fn(&tx{st: s.data, readOnly: true}), nil)
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return &core.StorageError{Op: "ping", Err: errClosed}
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (st *state) clone() *state {
	return &state{
		seq:        st.seq,
		pockets:    cloneMap(st.pockets),
		categories: cloneMap(st.categories),
		entries:    cloneMap(st.entries),
		budgets:    cloneMap(st.budgets),
		goals:      cloneMap(st.goals),
		rules:      cloneMap(st.rules),
	}
}

func cloneMap[V any](in map[int64]V) map[int64]V {
	out := make(map[int64]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedByID[V any](in map[int64]V, keep func(V) bool) []V {
	ids := make([]int64, 0, len(in))
	for id, v := range in {
		if keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]V, 0, len(ids))
	for _, id := range ids {
		out = append(out, in[id])
	}
	return out
}
