package core

import (
	"strings"
	"time"
)

const (
	Inflow  Kind = "inflow"
	Outflow Kind = "outflow"
)

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

const maxNameLength = 200

type (
	// Kind is the direction of a journal entry.
	Kind string

	// Order controls the created_at ordering of a query.
	Order string

	Money struct {
		Minor int64
	}

	Pocket struct {
		ID        int64
		Owner     string
		Name      string
		CreatedAt time.Time
	}

	Category struct {
		ID    int64
		Owner string
		Name  string
	}

	// Entry is one immutable journal record. PocketID and CategoryID are 0
	// when the entry is not attached to a pocket or category.
	Entry struct {
		ID            int64
		Owner         string
		Description   string
		Amount        Money
		Kind          Kind
		PocketID      int64
		CategoryID    int64
		CorrelationID string
		CreatedAt     time.Time
	}

	Budget struct {
		ID         int64
		Owner      string
		CategoryID int64
		Amount     Money
		Period     Period
	}

	Goal struct {
		ID        int64
		Owner     string
		Name      string
		Target    Money
		Current   Money
		CreatedAt time.Time
	}

	// RecurringRule is a stored template for a periodic entry. Rules are
	// records only; nothing materializes them into entries.
	RecurringRule struct {
		ID          int64
		Owner       string
		Description string
		Amount      Money
		Kind        Kind
		PocketID    int64
		CategoryID  int64
		DayOfMonth  int
		Active      bool
		CreatedAt   time.Time
	}

	// EntryFilter selects journal entries for one owner. From is inclusive,
	// To is exclusive; zero values leave that side open.
	EntryFilter struct {
		Owner      string
		PocketID   int64
		CategoryID int64
		Kind       Kind
		From       time.Time
		To         time.Time
		Order      Order
		Limit      int
	}

	// Transfer is the result of moving value between two pockets.
	Transfer struct {
		CorrelationID string
		Amount        Money
		Outflow       Entry
		Inflow        Entry
	}

	// Funding is the result of moving value from a pocket into a goal.
	Funding struct {
		CorrelationID string
		Entry         Entry
		Goal          Goal
	}
)

func (k Kind) IsValid() bool {
	return k == Inflow || k == Outflow
}

func (o Order) IsValid() bool {
	return o == "" || o == Ascending || o == Descending
}

func (m Money) Validate() error {
	if m.Minor <= 0 {
		return NewValidationError("amount", "must be greater than zero")
	}
	if m.Minor > MaxAmount {
		return NewValidationError("amount", "too large")
	}
	return nil
}

// Signed returns the effect of the entry on a balance.
func (e Entry) Signed() int64 {
	if e.Kind == Outflow {
		return -e.Amount.Minor
	}
	return e.Amount.Minor
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.Owner) == "" {
		return NewValidationError("owner", "is required")
	}
	if len(e.Description) > maxNameLength {
		return NewValidationError("description", "too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Kind.IsValid() {
		return NewValidationError("kind", "must be inflow or outflow")
	}
	if e.PocketID < 0 {
		return NewValidationError("pocket_id", "invalid reference")
	}
	if e.CategoryID < 0 {
		return NewValidationError("category_id", "invalid reference")
	}
	return nil
}

func (p Pocket) Validate() error {
	if strings.TrimSpace(p.Owner) == "" {
		return NewValidationError("owner", "is required")
	}
	return validateName(p.Name)
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Owner) == "" {
		return NewValidationError("owner", "is required")
	}
	return validateName(c.Name)
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Owner) == "" {
		return NewValidationError("owner", "is required")
	}
	if b.CategoryID <= 0 {
		return NewValidationError("category_id", "is required")
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	return b.Period.Validate()
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Owner) == "" {
		return NewValidationError("owner", "is required")
	}
	if err := validateName(g.Name); err != nil {
		return err
	}
	if g.Target.Minor <= 0 {
		return NewValidationError("target_amount", "must be greater than zero")
	}
	if g.Target.Minor > MaxAmount {
		return NewValidationError("target_amount", "too large")
	}
	if g.Current.Minor < 0 {
		return NewValidationError("current_amount", "cannot be negative")
	}
	return nil
}

func (r RecurringRule) Validate() error {
	if strings.TrimSpace(r.Owner) == "" {
		return NewValidationError("owner", "is required")
	}
	if strings.TrimSpace(r.Description) == "" {
		return NewValidationError("description", "is required")
	}
	if len(r.Description) > maxNameLength {
		return NewValidationError("description", "too long (max 200 characters)")
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if !r.Kind.IsValid() {
		return NewValidationError("kind", "must be inflow or outflow")
	}
	if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
		return NewValidationError("day_of_month", "must be between 1 and 31")
	}
	return nil
}

func (f EntryFilter) Validate() error {
	if strings.TrimSpace(f.Owner) == "" {
		return NewValidationError("owner", "is required")
	}
	if f.Kind != "" && !f.Kind.IsValid() {
		return NewValidationError("kind", "must be inflow or outflow")
	}
	if !f.Order.IsValid() {
		return NewValidationError("order", "must be asc or desc")
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return NewValidationError("to", "must not be before from")
	}
	if f.Limit < 0 {
		return NewValidationError("limit", "cannot be negative")
	}
	return nil
}

// Match reports whether e passes every criterion of the filter.
func (f EntryFilter) Match(e Entry) bool {
	if e.Owner != f.Owner {
		return false
	}
	if f.PocketID != 0 && e.PocketID != f.PocketID {
		return false
	}
	if f.CategoryID != 0 && e.CategoryID != f.CategoryID {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.CreatedAt.Before(f.To) {
		return false
	}
	return true
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError("name", "is required")
	}
	if len(name) > maxNameLength {
		return NewValidationError("name", "too long (max 200 characters)")
	}
	return nil
}
