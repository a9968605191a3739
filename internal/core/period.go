package core

import (
	"fmt"
	"strings"
	"time"
)

// Period is a calendar month. Budgets are scoped to one.
type Period struct {
	Year  int
	Month int // 1-12
}

// Range is a half-open time interval [From, To).
type Range struct {
	From time.Time
	To   time.Time
}

func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{Year: t.Year(), Month: int(t.Month())}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return NewValidationError("month", "must be between 1 and 12")
	}
	if p.Year < 1 || p.Year > 9999 {
		return NewValidationError("year", "out of range")
	}
	return nil
}

// Start is midnight UTC on the first day of the month.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// Range covers the whole month, ending at the start of the next one.
func (p Period) Range() Range {
	start := p.Start()
	return Range{From: start, To: start.AddDate(0, 1, 0)}
}

// ParsePeriod reads a "YYYY-MM" month.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Period{}, NewValidationError("period", "must be YYYY-MM")
	}
	return PeriodOf(t), nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// DayRange covers whole days from the first through the last date, so an
// end date of the 31st includes everything recorded on the 31st.
func DayRange(first, last time.Time) Range {
	from := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return Range{From: from, To: to}
}

// Contains reports whether t falls inside the range. Zero bounds are open.
func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

func (r Range) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return NewValidationError("to", "must not be before from")
	}
	return nil
}
