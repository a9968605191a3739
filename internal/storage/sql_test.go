package storage_test

import (
	"path/filepath"
	"testing"

	"saku/internal/storage"
	"saku/internal/storage/storagetest"
)

func TestSQLiteConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "saku.db"))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "saku.db")
	s, err := storage.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s.Close()

	// migrations must be idempotent on an existing file
	s, err = storage.OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen sqlite: %v", err)
	}
	s.Close()
}

func TestMigrateSQLiteBeforeOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh", "saku.db")
	if err := storage.MigrateSQLite(path); err != nil {
		t.Fatalf("MigrateSQLite() error = %v", err)
	}
	if err := storage.MigrateSQLite(path); err != nil {
		t.Fatalf("second MigrateSQLite() error = %v", err)
	}
	s, err := storage.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open migrated sqlite: %v", err)
	}
	s.Close()
}
