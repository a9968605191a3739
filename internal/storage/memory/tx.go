package memory

import (
	"context"
	"errors"
	"sort"
	"strings"

	"saku/internal/core"
)

var (
	errClosed   = errors.New("store closed")
	errReadOnly = errors.New("write in read-only transaction")
)

type tx struct {
	st       *state
	readOnly bool
}

func (t *tx) next() int64 {
	t.st.seq++
	return t.st.seq
}

func (t *tx) writable(op string) error {
	if t.readOnly {
		return &core.StorageError{Op: op, Err: errReadOnly}
	}
	return nil
}

func (t *tx) InsertEntry(_ context.Context, e core.Entry) (core.Entry, error) {
	if err := t.writable("insert entry"); err != nil {
		return core.Entry{}, err
	}
	if e.PocketID != 0 {
		if _, ok := t.st.pockets[e.PocketID]; !ok {
			return core.Entry{}, &core.StorageError{Op: "insert entry", Err: errors.New("pocket reference violated")}
		}
	}
	if e.CategoryID != 0 {
		if _, ok := t.st.categories[e.CategoryID]; !ok {
			return core.Entry{}, &core.StorageError{Op: "insert entry", Err: errors.New("category reference violated")}
		}
	}
	e.ID = t.next()
	e.CreatedAt = e.CreatedAt.UTC()
	t.st.entries[e.ID] = e
	return e, nil
}

func (t *tx) DeleteEntry(_ context.Context, owner string, id int64) error {
	if err := t.writable("delete entry"); err != nil {
		return err
	}
	if e, ok := t.st.entries[id]; !ok || e.Owner != owner {
		return core.NewNotFoundError("entry", id)
	}
	delete(t.st.entries, id)
	return nil
}

func (t *tx) ListEntries(_ context.Context, f core.EntryFilter) ([]core.Entry, error) {
	var out []core.Entry
	for _, e := range t.st.entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	core.SortEntries(out, f.Order)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *tx) GetEntries(_ context.Context, owner string, ids []int64) ([]core.Entry, error) {
	var out []core.Entry
	for _, id := range ids {
		if e, ok := t.st.entries[id]; ok && e.Owner == owner {
			out = append(out, e)
		}
	}
	core.SortEntries(out, core.Ascending)
	return out, nil
}

func (t *tx) InsertPocket(_ context.Context, p core.Pocket) (core.Pocket, error) {
	if err := t.writable("insert pocket"); err != nil {
		return core.Pocket{}, err
	}
	p.ID = t.next()
	p.CreatedAt = p.CreatedAt.UTC()
	t.st.pockets[p.ID] = p
	return p, nil
}

func (t *tx) GetPocket(_ context.Context, owner string, id int64) (core.Pocket, error) {
	p, ok := t.st.pockets[id]
	if !ok || p.Owner != owner {
		return core.Pocket{}, core.NewNotFoundError("pocket", id)
	}
	return p, nil
}

func (t *tx) ListPockets(_ context.Context, owner string) ([]core.Pocket, error) {
	out := sortedByID(t.st.pockets, func(p core.Pocket) bool { return p.Owner == owner })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *tx) DeletePocket(ctx context.Context, owner string, id int64) ([]int64, error) {
	if err := t.writable("delete pocket"); err != nil {
		return nil, err
	}
	if _, err := t.GetPocket(ctx, owner, id); err != nil {
		return nil, err
	}
	var removed []int64
	for entryID, e := range t.st.entries {
		if e.PocketID == id {
			removed = append(removed, entryID)
			delete(t.st.entries, entryID)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	for ruleID, r := range t.st.rules {
		if r.PocketID == id {
			r.PocketID = 0
			t.st.rules[ruleID] = r
		}
	}
	delete(t.st.pockets, id)
	return removed, nil
}

func (t *tx) InsertCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := t.writable("insert category"); err != nil {
		return core.Category{}, err
	}
	c.ID = t.next()
	t.st.categories[c.ID] = c
	return c, nil
}

func (t *tx) GetCategory(_ context.Context, owner string, id int64) (core.Category, error) {
	c, ok := t.st.categories[id]
	if !ok || c.Owner != owner {
		return core.Category{}, core.NewNotFoundError("category", id)
	}
	return c, nil
}

func (t *tx) ListCategories(_ context.Context, owner string) ([]core.Category, error) {
	out := sortedByID(t.st.categories, func(c core.Category) bool { return c.Owner == owner })
	sort.SliceStable(out, func(i, j int) bool { return strings.Compare(out[i].Name, out[j].Name) < 0 })
	return out, nil
}

func (t *tx) DeleteCategory(ctx context.Context, owner string, id int64) error {
	if err := t.writable("delete category"); err != nil {
		return err
	}
	if _, err := t.GetCategory(ctx, owner, id); err != nil {
		return err
	}
	for entryID, e := range t.st.entries {
		if e.CategoryID == id {
			e.CategoryID = 0
			t.st.entries[entryID] = e
		}
	}
	for ruleID, r := range t.st.rules {
		if r.CategoryID == id {
			r.CategoryID = 0
			t.st.rules[ruleID] = r
		}
	}
	for budgetID, b := range t.st.budgets {
		if b.CategoryID == id {
			delete(t.st.budgets, budgetID)
		}
	}
	delete(t.st.categories, id)
	return nil
}

func (t *tx) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := t.writable("upsert budget"); err != nil {
		return core.Budget{}, err
	}
	for id, existing := range t.st.budgets {
		if existing.Owner == b.Owner && existing.CategoryID == b.CategoryID && existing.Period == b.Period {
			existing.Amount = b.Amount
			t.st.budgets[id] = existing
			return existing, nil
		}
	}
	b.ID = t.next()
	t.st.budgets[b.ID] = b
	return b, nil
}

func (t *tx) ListBudgets(_ context.Context, owner string, p core.Period) ([]core.Budget, error) {
	return sortedByID(t.st.budgets, func(b core.Budget) bool { return b.Owner == owner && b.Period == p }), nil
}

func (t *tx) DeleteBudget(_ context.Context, owner string, id int64) error {
	if err := t.writable("delete budget"); err != nil {
		return err
	}
	if b, ok := t.st.budgets[id]; !ok || b.Owner != owner {
		return core.NewNotFoundError("budget", id)
	}
	delete(t.st.budgets, id)
	return nil
}

func (t *tx) InsertGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	if err := t.writable("insert goal"); err != nil {
		return core.Goal{}, err
	}
	g.ID = t.next()
	g.CreatedAt = g.CreatedAt.UTC()
	t.st.goals[g.ID] = g
	return g, nil
}

func (t *tx) GetGoal(_ context.Context, owner string, id int64) (core.Goal, error) {
	g, ok := t.st.goals[id]
	if !ok || g.Owner != owner {
		return core.Goal{}, core.NewNotFoundError("goal", id)
	}
	return g, nil
}

func (t *tx) ListGoals(_ context.Context, owner string) ([]core.Goal, error) {
	out := sortedByID(t.st.goals, func(g core.Goal) bool { return g.Owner == owner })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *tx) AddToGoal(ctx context.Context, owner string, id int64, amount core.Money) (core.Goal, error) {
	if err := t.writable("add to goal"); err != nil {
		return core.Goal{}, err
	}
	g, err := t.GetGoal(ctx, owner, id)
	if err != nil {
		return core.Goal{}, err
	}
	current, err := g.Current.Add(amount)
	if err != nil {
		return core.Goal{}, err
	}
	g.Current = current
	t.st.goals[id] = g
	return g, nil
}

func (t *tx) DeleteGoal(_ context.Context, owner string, id int64) error {
	if err := t.writable("delete goal"); err != nil {
		return err
	}
	if g, ok := t.st.goals[id]; !ok || g.Owner != owner {
		return core.NewNotFoundError("goal", id)
	}
	delete(t.st.goals, id)
	return nil
}

func (t *tx) InsertRule(_ context.Context, r core.RecurringRule) (core.RecurringRule, error) {
	if err := t.writable("insert rule"); err != nil {
		return core.RecurringRule{}, err
	}
	r.ID = t.next()
	r.CreatedAt = r.CreatedAt.UTC()
	t.st.rules[r.ID] = r
	return r, nil
}

func (t *tx) ListRules(_ context.Context, owner string) ([]core.RecurringRule, error) {
	out := sortedByID(t.st.rules, func(r core.RecurringRule) bool { return r.Owner == owner })
	sort.SliceStable(out, func(i, j int) bool { return out[i].DayOfMonth < out[j].DayOfMonth })
	return out, nil
}

func (t *tx) DeleteRule(_ context.Context, owner string, id int64) error {
	if err := t.writable("delete rule"); err != nil {
		return err
	}
	if r, ok := t.st.rules[id]; !ok || r.Owner != owner {
		return core.NewNotFoundError("recurring rule", id)
	}
	delete(t.st.rules, id)
	return nil
}
