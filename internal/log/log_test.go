package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"saku/internal/core"
)

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{core.NewValidationError("amount", "must be positive"), ErrorTypeValidation},
		{fmt.Errorf("load: %w", core.NewNotFoundError("pocket", 1)), ErrorTypeNotFound},
		{&core.ConflictError{Op: "transfer", Attempts: 3}, ErrorTypeConflict},
		{&core.StorageError{Op: "query", Err: errors.New("io")}, ErrorTypeDatabase},
		{errors.New("boom"), ErrorTypeInternal},
	}
	for _, tt := range tests {
		if got := ErrorType(tt.err); got != tt.want {
			t.Errorf("ErrorType(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestWithEntryOmitsUnsetReferences(t *testing.T) {
	f := NewFields().WithEntry(core.Entry{ID: 4, Owner: "u", Kind: core.Inflow, Amount: core.Money{Minor: 10}})
	if f[FieldEntryID] != int64(4) || f[FieldKind] != "inflow" {
		t.Errorf("fields = %v", f)
	}
	for _, k := range []string{FieldPocketID, FieldCategoryID, FieldCorrelationID} {
		if _, ok := f[k]; ok {
			t.Errorf("unexpected field %s", k)
		}
	}
}

func TestFromContextFallback(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("fallback logger should be tagged unknown")
	}
	l := New(Config{Output: &bytes.Buffer{}, Component: ComponentHTTP})
	if got := FromContext(WithLogger(context.Background(), l)); got != l {
		t.Error("FromContext did not return the stored logger")
	}
}

func TestLogHTTPEndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, Format: "json"})

	r := httptest.NewRequest("POST", "/v1/transfers?x=1", nil)
	NewStructuredLogger(l).LogHTTPEnd(context.Background(), r, 503, 12, "10.0.0.1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if rec["level"] != "ERROR" || rec[FieldStatusCode] != float64(503) || rec[FieldSuccess] != false || rec[FieldClientIP] != "10.0.0.1" {
		t.Errorf("log record = %v", rec)
	}
}
