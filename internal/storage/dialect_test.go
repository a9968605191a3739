package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"saku/internal/core"
)

func TestRebind(t *testing.T) {
	q := "SELECT id FROM entries WHERE owner_id = ? AND id IN (?, ?)"
	if got := DialectSQLite.rebind(q); got != q {
		t.Fatalf("sqlite should keep placeholders: %q", got)
	}
	want := "SELECT id FROM entries WHERE owner_id = $1 AND id IN ($2, $3)"
	if got := DialectPostgres.rebind(q); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestPostgresConflictDetection(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&pgconn.PgError{Code: "40001"}, true},
		{fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40P01"}), true},
		{&pgconn.PgError{Code: "23505"}, false},
		{errors.New("connection reset"), false},
	}
	for i, tc := range cases {
		if got := DialectPostgres.isConflict(tc.err); got != tc.want {
			t.Fatalf("case %d: got %v want %v", i, got, tc.want)
		}
	}
}

func TestClassify(t *testing.T) {
	conflict := &pgconn.PgError{Code: "40001"}
	if err := Classify("commit", conflict, DialectPostgres.isConflict); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := Classify("insert", errors.New("disk full"), DialectPostgres.isConflict); !errors.Is(err, core.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	nf := core.NewNotFoundError("pocket", 1)
	if err := Classify("get", nf, nil); err != nf {
		t.Fatalf("typed errors should pass through unchanged")
	}
	if Classify("noop", nil, nil) != nil {
		t.Fatalf("nil stays nil")
	}
}
