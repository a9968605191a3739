package backend

import (
	"context"
	"errors"
	"fmt"

	"saku/internal/amqp"
	"saku/internal/services"
	"saku/internal/sheets"
	"saku/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds everything a process needs to run the ledger. Only
// Store is always set.
type BackendResult struct {
	Store storage.Store
	// Publisher receives journal events; nil when nothing consumes them.
	Publisher services.Publisher
	// Mirror is the spreadsheet journal mirror, if configured.
	Mirror sheets.JournalMirror
	// AMQP is the broker client, if configured.
	AMQP *amqp.Client

	cleanups []CleanupFunc
}

// Close releases every resource in reverse order of creation.
func (r *BackendResult) Close() error {
	var errs []error
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		if err := r.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close backend: %w", errors.Join(errs...))
	}
	return nil
}

func (r *BackendResult) onClose(fn CleanupFunc) {
	r.cleanups = append(r.cleanups, fn)
}

// Role selects which side of the event flow a process is.
type Role int

const (
	// RoleAPI publishes journal events.
	RoleAPI Role = iota
	// RoleWorker consumes them and writes the mirror.
	RoleWorker
	// RoleAdmin only needs the store, plus the mirror for backfills.
	RoleAdmin
)

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config, role Role) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	Currency string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
