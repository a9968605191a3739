// Package http exposes the ledger as a JSON API.
//
// This file holds the request decoding helpers: JSON bodies, amounts in
// major units, dates and the query parameters shared by list endpoints.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"saku/internal/core"
)

const (
	maxBodyBytes = 1 << 20
	dateLayout   = "2006-01-02"
)

// requestError is a malformed request, answered with 400.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// amountField accepts a decimal amount in major units as either a JSON
// string ("500.25") or a JSON number (500.25).
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or a number")
	}
	*a = amountField(n.String())
	return nil
}

// Money converts the field using the currency's fraction digits.
func (a amountField) Money(currency string) (core.Money, error) {
	return core.ParseAmount(string(a), currency)
}

// decodeJSON reads one JSON object into dst, rejecting unknown fields and
// trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		case errors.As(err, &maxErr):
			return badRequest("request body exceeds %d bytes", maxErr.Limit)
		case errors.As(err, &syntaxErr):
			return badRequest("malformed JSON at offset %d", syntaxErr.Offset)
		case errors.As(err, &typeErr):
			return badRequest("field %q has the wrong type", typeErr.Field)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return badRequest("unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		default:
			return badRequest("invalid request body: %v", err)
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

// parseID reads a positive integer path value.
func parseID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("%s must be a positive integer", name)
	}
	return id, nil
}

// parseTime accepts a date (2006-01-02, midnight UTC) or an RFC 3339
// timestamp. dateOnly reports which form was given.
func parseTime(field, v string) (t time.Time, dateOnly bool, err error) {
	v = strings.TrimSpace(v)
	if d, err := time.Parse(dateLayout, v); err == nil {
		return d.UTC(), true, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return ts.UTC(), false, nil
	}
	return time.Time{}, false, core.NewValidationError(field, "must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
}

// ParseRange reads from/to query parameters. A date-only "to" includes
// that whole day; a timestamp "to" is exclusive.
func ParseRange(query url.Values) (core.Range, error) {
	var rng core.Range
	if v := query.Get("from"); v != "" {
		t, _, err := parseTime("from", v)
		if err != nil {
			return core.Range{}, err
		}
		rng.From = t
	}
	if v := query.Get("to"); v != "" {
		t, dateOnly, err := parseTime("to", v)
		if err != nil {
			return core.Range{}, err
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1)
		}
		rng.To = t
	}
	if err := rng.Validate(); err != nil {
		return core.Range{}, err
	}
	return rng, nil
}

// ParsePeriod extracts year and month from query parameters, using the
// month of now for missing values.
func ParsePeriod(query url.Values, now time.Time) (core.Period, error) {
	p := core.PeriodOf(now)
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, core.NewValidationError("year", "must be an integer")
		}
		p.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, core.NewValidationError("month", "must be an integer")
		}
		p.Month = m
	}
	if err := p.Validate(); err != nil {
		return core.Period{}, err
	}
	return p, nil
}

// ParseEntryFilter builds the entry query of owner from the URL.
// Results are newest first unless order=asc.
func ParseEntryFilter(owner string, query url.Values) (core.EntryFilter, error) {
	f := core.EntryFilter{Owner: owner, Order: core.Descending}

	ints := []struct {
		name string
		dst  *int64
	}{
		{"pocket", &f.PocketID},
		{"category", &f.CategoryID},
	}
	for _, p := range ints {
		if v := strings.TrimSpace(query.Get(p.name)); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil || id <= 0 {
				return core.EntryFilter{}, core.NewValidationError(p.name, "must be a positive integer")
			}
			*p.dst = id
		}
	}
	if v := strings.TrimSpace(query.Get("kind")); v != "" {
		f.Kind = core.Kind(strings.ToLower(v))
	}
	if v := strings.TrimSpace(query.Get("order")); v != "" {
		f.Order = core.Order(strings.ToLower(v))
	}
	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return core.EntryFilter{}, core.NewValidationError("limit", "must be an integer")
		}
		f.Limit = n
	}

	rng, err := ParseRange(query)
	if err != nil {
		return core.EntryFilter{}, err
	}
	f.From, f.To = rng.From, rng.To

	if err := f.Validate(); err != nil {
		return core.EntryFilter{}, err
	}
	return f, nil
}
