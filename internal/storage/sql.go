package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"saku/internal/core"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// SQLStore is a Store over database/sql for SQLite or PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

var _ Store = (*SQLStore)(nil)

// OpenSQLite opens (creating if needed) the database file at dbPath and
// migrates it.
func OpenSQLite(dbPath string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(DialectSQLite, sqliteDSN(dbPath))
}

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(dsn string) (*SQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	return open(DialectPostgres, dsn)
}

func open(d Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("Ledger store ready", "dialect", string(d))
	return &SQLStore{db: db, dialect: d}, nil
}

func (s *SQLStore) Dialect() Dialect { return s.dialect }

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &core.StorageError{Op: "ping", Err: err}
	}
	return nil
}

func (s *SQLStore) Update(ctx context.Context, fn func(Tx) error) error {
	return s.run(ctx, "update", s.dialect.writeTxOptions(), fn)
}

func (s *SQLStore) View(ctx context.Context, fn func(Tx) error) error {
	return s.run(ctx, "view", s.dialect.readTxOptions(), fn)
}

func (s *SQLStore) run(ctx context.Context, op string, opts *sql.TxOptions, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return Classify("begin "+op, err, s.dialect.isConflict)
	}

	if err := fn(&sqlTx{tx: tx, d: s.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.WarnContext(ctx, "Rollback failed", "op", op, "error", rbErr)
		}
		return Classify(op, err, s.dialect.isConflict)
	}

	if err := tx.Commit(); err != nil {
		return Classify("commit "+op, err, s.dialect.isConflict)
	}
	return nil
}

type sqlTx struct {
	tx *sql.Tx
	d  Dialect
}

const entryColumns = "id, owner_id, description, amount, kind, pocket_id, category_id, correlation_id, created_at"

func (t *sqlTx) fail(op string, err error) error {
	return Classify(op, err, t.d.isConflict)
}

func (t *sqlTx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.d.rebind(query), args...)
}

func (t *sqlTx) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.d.rebind(query), args...)
}

func (t *sqlTx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.d.rebind(query), args...)
}

// deleteOwned deletes one row of table and reports NotFound if none matched.
func (t *sqlTx) deleteOwned(ctx context.Context, table, resource, owner string, id int64) error {
	res, err := t.exec(ctx, "DELETE FROM "+table+" WHERE owner_id = ? AND id = ?", owner, id)
	if err != nil {
		return t.fail("delete "+resource, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return t.fail("delete "+resource, err)
	}
	if n == 0 {
		return core.NewNotFoundError(resource, id)
	}
	return nil
}

// Entries

func (t *sqlTx) InsertEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	err := t.queryRow(ctx,
		`INSERT INTO entries (owner_id, description, amount, kind, pocket_id, category_id, correlation_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		e.Owner, e.Description, e.Amount.Minor, string(e.Kind), nullID(e.PocketID), nullID(e.CategoryID),
		e.CorrelationID, toMicros(e.CreatedAt),
	).Scan(&e.ID)
	if err != nil {
		return core.Entry{}, t.fail("insert entry", err)
	}
	e.CreatedAt = fromMicros(toMicros(e.CreatedAt))
	return e, nil
}

func (t *sqlTx) DeleteEntry(ctx context.Context, owner string, id int64) error {
	return t.deleteOwned(ctx, "entries", "entry", owner, id)
}

func (t *sqlTx) ListEntries(ctx context.Context, f core.EntryFilter) ([]core.Entry, error) {
	var (
		where = []string{"owner_id = ?"}
		args  = []any{f.Owner}
	)
	if f.PocketID != 0 {
		where = append(where, "pocket_id = ?")
		args = append(args, f.PocketID)
	}
	if f.CategoryID != 0 {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if !f.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, toMicros(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, toMicros(f.To))
	}

	dir := "ASC"
	if f.Order == core.Descending {
		dir = "DESC"
	}
	q := "SELECT " + entryColumns + " FROM entries WHERE " + strings.Join(where, " AND ") +
		" ORDER BY created_at " + dir + ", id " + dir
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := t.query(ctx, q, args...)
	if err != nil {
		return nil, t.fail("list entries", err)
	}
	return scanEntries(rows)
}

func (t *sqlTx) GetEntries(ctx context.Context, owner string, ids []int64) ([]core.Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	marks := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, owner)
	for i, id := range ids {
		marks[i] = "?"
		args = append(args, id)
	}
	rows, err := t.query(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE owner_id = ? AND id IN ("+strings.Join(marks, ", ")+") ORDER BY created_at, id",
		args...)
	if err != nil {
		return nil, t.fail("get entries", err)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]core.Entry, error) {
	defer rows.Close()
	var out []core.Entry
	for rows.Next() {
		var (
			e                    core.Entry
			kind                 string
			pocketID, categoryID sql.NullInt64
			created              int64
		)
		if err := rows.Scan(&e.ID, &e.Owner, &e.Description, &e.Amount.Minor, &kind,
			&pocketID, &categoryID, &e.CorrelationID, &created); err != nil {
			return nil, &core.StorageError{Op: "scan entry", Err: err}
		}
		e.Kind = core.Kind(kind)
		e.PocketID = pocketID.Int64
		e.CategoryID = categoryID.Int64
		e.CreatedAt = fromMicros(created)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "scan entries", Err: err}
	}
	return out, nil
}

// Pockets

func (t *sqlTx) InsertPocket(ctx context.Context, p core.Pocket) (core.Pocket, error) {
	err := t.queryRow(ctx,
		"INSERT INTO pockets (owner_id, name, created_at) VALUES (?, ?, ?) RETURNING id",
		p.Owner, p.Name, toMicros(p.CreatedAt),
	).Scan(&p.ID)
	if err != nil {
		return core.Pocket{}, t.fail("insert pocket", err)
	}
	p.CreatedAt = fromMicros(toMicros(p.CreatedAt))
	return p, nil
}

func (t *sqlTx) GetPocket(ctx context.Context, owner string, id int64) (core.Pocket, error) {
	var (
		p       core.Pocket
		created int64
	)
	err := t.queryRow(ctx,
		"SELECT id, owner_id, name, created_at FROM pockets WHERE owner_id = ? AND id = ?", owner, id,
	).Scan(&p.ID, &p.Owner, &p.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Pocket{}, core.NewNotFoundError("pocket", id)
	}
	if err != nil {
		return core.Pocket{}, t.fail("get pocket", err)
	}
	p.CreatedAt = fromMicros(created)
	return p, nil
}

func (t *sqlTx) ListPockets(ctx context.Context, owner string) ([]core.Pocket, error) {
	rows, err := t.query(ctx,
		"SELECT id, owner_id, name, created_at FROM pockets WHERE owner_id = ? ORDER BY created_at, id", owner)
	if err != nil {
		return nil, t.fail("list pockets", err)
	}
	defer rows.Close()

	var out []core.Pocket
	for rows.Next() {
		var (
			p       core.Pocket
			created int64
		)
		if err := rows.Scan(&p.ID, &p.Owner, &p.Name, &created); err != nil {
			return nil, t.fail("scan pocket", err)
		}
		p.CreatedAt = fromMicros(created)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, t.fail("list pockets", err)
	}
	return out, nil
}

func (t *sqlTx) DeletePocket(ctx context.Context, owner string, id int64) ([]int64, error) {
	if _, err := t.GetPocket(ctx, owner, id); err != nil {
		return nil, err
	}

	rows, err := t.query(ctx, "SELECT id FROM entries WHERE owner_id = ? AND pocket_id = ? ORDER BY id", owner, id)
	if err != nil {
		return nil, t.fail("list pocket entries", err)
	}
	var removed []int64
	for rows.Next() {
		var entryID int64
		if err := rows.Scan(&entryID); err != nil {
			rows.Close()
			return nil, t.fail("scan pocket entry", err)
		}
		removed = append(removed, entryID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, t.fail("list pocket entries", err)
	}

	if _, err := t.exec(ctx, "DELETE FROM entries WHERE owner_id = ? AND pocket_id = ?", owner, id); err != nil {
		return nil, t.fail("delete pocket entries", err)
	}
	if _, err := t.exec(ctx, "UPDATE recurring_rules SET pocket_id = NULL WHERE owner_id = ? AND pocket_id = ?", owner, id); err != nil {
		return nil, t.fail("detach pocket rules", err)
	}
	if err := t.deleteOwned(ctx, "pockets", "pocket", owner, id); err != nil {
		return nil, err
	}
	return removed, nil
}

// Categories

func (t *sqlTx) InsertCategory(ctx context.Context, c core.Category) (core.Category, error) {
	err := t.queryRow(ctx,
		"INSERT INTO categories (owner_id, name) VALUES (?, ?) RETURNING id", c.Owner, c.Name,
	).Scan(&c.ID)
	if err != nil {
		return core.Category{}, t.fail("insert category", err)
	}
	return c, nil
}

func (t *sqlTx) GetCategory(ctx context.Context, owner string, id int64) (core.Category, error) {
	var c core.Category
	err := t.queryRow(ctx,
		"SELECT id, owner_id, name FROM categories WHERE owner_id = ? AND id = ?", owner, id,
	).Scan(&c.ID, &c.Owner, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NewNotFoundError("category", id)
	}
	if err != nil {
		return core.Category{}, t.fail("get category", err)
	}
	return c, nil
}

func (t *sqlTx) ListCategories(ctx context.Context, owner string) ([]core.Category, error) {
	rows, err := t.query(ctx, "SELECT id, owner_id, name FROM categories WHERE owner_id = ? ORDER BY name, id", owner)
	if err != nil {
		return nil, t.fail("list categories", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Owner, &c.Name); err != nil {
			return nil, t.fail("scan category", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, t.fail("list categories", err)
	}
	return out, nil
}

func (t *sqlTx) DeleteCategory(ctx context.Context, owner string, id int64) error {
	if _, err := t.GetCategory(ctx, owner, id); err != nil {
		return err
	}
	stmts := []struct{ op, q string }{
		{"detach category entries", "UPDATE entries SET category_id = NULL WHERE owner_id = ? AND category_id = ?"},
		{"detach category rules", "UPDATE recurring_rules SET category_id = NULL WHERE owner_id = ? AND category_id = ?"},
		{"delete category budgets", "DELETE FROM budgets WHERE owner_id = ? AND category_id = ?"},
	}
	for _, s := range stmts {
		if _, err := t.exec(ctx, s.q, owner, id); err != nil {
			return t.fail(s.op, err)
		}
	}
	return t.deleteOwned(ctx, "categories", "category", owner, id)
}

// Budgets

func (t *sqlTx) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	err := t.queryRow(ctx,
		`INSERT INTO budgets (owner_id, category_id, amount, month, year) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, category_id, month, year) DO UPDATE SET amount = excluded.amount
		RETURNING id`,
		b.Owner, b.CategoryID, b.Amount.Minor, b.Period.Month, b.Period.Year,
	).Scan(&b.ID)
	if err != nil {
		return core.Budget{}, t.fail("upsert budget", err)
	}
	return b, nil
}

func (t *sqlTx) ListBudgets(ctx context.Context, owner string, p core.Period) ([]core.Budget, error) {
	rows, err := t.query(ctx,
		`SELECT id, owner_id, category_id, amount, month, year FROM budgets
		WHERE owner_id = ? AND year = ? AND month = ? ORDER BY id`, owner, p.Year, p.Month)
	if err != nil {
		return nil, t.fail("list budgets", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.Owner, &b.CategoryID, &b.Amount.Minor, &b.Period.Month, &b.Period.Year); err != nil {
			return nil, t.fail("scan budget", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, t.fail("list budgets", err)
	}
	return out, nil
}

func (t *sqlTx) DeleteBudget(ctx context.Context, owner string, id int64) error {
	return t.deleteOwned(ctx, "budgets", "budget", owner, id)
}

// Goals

const goalColumns = "id, owner_id, name, target_amount, current_amount, created_at"

func scanGoal(row interface{ Scan(...any) error }) (core.Goal, error) {
	var (
		g       core.Goal
		created int64
	)
	if err := row.Scan(&g.ID, &g.Owner, &g.Name, &g.Target.Minor, &g.Current.Minor, &created); err != nil {
		return core.Goal{}, err
	}
	g.CreatedAt = fromMicros(created)
	return g, nil
}

func (t *sqlTx) InsertGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	err := t.queryRow(ctx,
		"INSERT INTO goals (owner_id, name, target_amount, current_amount, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id",
		g.Owner, g.Name, g.Target.Minor, g.Current.Minor, toMicros(g.CreatedAt),
	).Scan(&g.ID)
	if err != nil {
		return core.Goal{}, t.fail("insert goal", err)
	}
	g.CreatedAt = fromMicros(toMicros(g.CreatedAt))
	return g, nil
}

func (t *sqlTx) GetGoal(ctx context.Context, owner string, id int64) (core.Goal, error) {
	g, err := scanGoal(t.queryRow(ctx, "SELECT "+goalColumns+" FROM goals WHERE owner_id = ? AND id = ?", owner, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, core.NewNotFoundError("goal", id)
	}
	if err != nil {
		return core.Goal{}, t.fail("get goal", err)
	}
	return g, nil
}

func (t *sqlTx) ListGoals(ctx context.Context, owner string) ([]core.Goal, error) {
	rows, err := t.query(ctx, "SELECT "+goalColumns+" FROM goals WHERE owner_id = ? ORDER BY created_at, id", owner)
	if err != nil {
		return nil, t.fail("list goals", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, t.fail("scan goal", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, t.fail("list goals", err)
	}
	return out, nil
}

func (t *sqlTx) AddToGoal(ctx context.Context, owner string, id int64, amount core.Money) (core.Goal, error) {
	g, err := scanGoal(t.queryRow(ctx,
		"UPDATE goals SET current_amount = current_amount + ? WHERE owner_id = ? AND id = ? AND current_amount <= ? RETURNING "+goalColumns,
		amount.Minor, owner, id, int64(math.MaxInt64)-amount.Minor))
	if errors.Is(err, sql.ErrNoRows) {
		// Either the goal is missing or the counter would overflow.
		cur, gerr := t.GetGoal(ctx, owner, id)
		if gerr != nil {
			return core.Goal{}, gerr
		}
		if _, aerr := cur.Current.Add(amount); aerr != nil {
			return core.Goal{}, aerr
		}
		return core.Goal{}, core.NewNotFoundError("goal", id)
	}
	if err != nil {
		return core.Goal{}, t.fail("add to goal", err)
	}
	return g, nil
}

func (t *sqlTx) DeleteGoal(ctx context.Context, owner string, id int64) error {
	return t.deleteOwned(ctx, "goals", "goal", owner, id)
}

// Recurring rules

func (t *sqlTx) InsertRule(ctx context.Context, r core.RecurringRule) (core.RecurringRule, error) {
	err := t.queryRow(ctx,
		`INSERT INTO recurring_rules (owner_id, description, amount, kind, pocket_id, category_id, day_of_month, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		r.Owner, r.Description, r.Amount.Minor, string(r.Kind), nullID(r.PocketID), nullID(r.CategoryID),
		r.DayOfMonth, r.Active, toMicros(r.CreatedAt),
	).Scan(&r.ID)
	if err != nil {
		return core.RecurringRule{}, t.fail("insert rule", err)
	}
	r.CreatedAt = fromMicros(toMicros(r.CreatedAt))
	return r, nil
}

func (t *sqlTx) ListRules(ctx context.Context, owner string) ([]core.RecurringRule, error) {
	rows, err := t.query(ctx,
		`SELECT id, owner_id, description, amount, kind, pocket_id, category_id, day_of_month, active, created_at
		FROM recurring_rules WHERE owner_id = ? ORDER BY day_of_month, id`, owner)
	if err != nil {
		return nil, t.fail("list rules", err)
	}
	defer rows.Close()

	var out []core.RecurringRule
	for rows.Next() {
		var (
			r                    core.RecurringRule
			kind                 string
			pocketID, categoryID sql.NullInt64
			created              int64
		)
		if err := rows.Scan(&r.ID, &r.Owner, &r.Description, &r.Amount.Minor, &kind,
			&pocketID, &categoryID, &r.DayOfMonth, &r.Active, &created); err != nil {
			return nil, t.fail("scan rule", err)
		}
		r.Kind = core.Kind(kind)
		r.PocketID = pocketID.Int64
		r.CategoryID = categoryID.Int64
		r.CreatedAt = fromMicros(created)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, t.fail("list rules", err)
	}
	return out, nil
}

func (t *sqlTx) DeleteRule(ctx context.Context, owner string, id int64) error {
	return t.deleteOwned(ctx, "recurring_rules", "recurring rule", owner, id)
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func toMicros(t time.Time) int64 { return t.UnixMicro() }

func fromMicros(us int64) time.Time { return time.UnixMicro(us).UTC() }
