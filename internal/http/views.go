package http

import (
	"time"

	"saku/internal/core"
)

// Response bodies. Amounts are reported three ways: integer minor units,
// an exact decimal in major units, and a display string.

type moneyView struct {
	Minor   int64  `json:"minor"`
	Amount  string `json:"amount"`
	Display string `json:"display"`
}

type entryView struct {
	ID            int64     `json:"id"`
	Description   string    `json:"description"`
	Kind          core.Kind `json:"kind"`
	Amount        moneyView `json:"amount"`
	PocketID      int64     `json:"pocket_id,omitempty"`
	CategoryID    int64     `json:"category_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type pocketView struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	Balance   *moneyView `json:"balance,omitempty"`
}

type categoryView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type budgetView struct {
	ID         int64     `json:"id"`
	CategoryID int64     `json:"category_id"`
	Year       int       `json:"year"`
	Month      int       `json:"month"`
	Amount     moneyView `json:"amount"`
}

type budgetLineView struct {
	budgetView
	CategoryName string            `json:"category_name"`
	Spent        moneyView         `json:"spent"`
	Percentage   string            `json:"percentage"`
	Status       core.BudgetStatus `json:"status"`
}

type goalView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Target    moneyView `json:"target"`
	Current   moneyView `json:"current"`
	Remaining moneyView `json:"remaining"`
	Progress  int       `json:"progress"`
	Percent   string    `json:"percent"`
	Reached   bool      `json:"reached"`
	CreatedAt time.Time `json:"created_at"`
}

type transferView struct {
	CorrelationID string    `json:"correlation_id"`
	Amount        moneyView `json:"amount"`
	Outflow       entryView `json:"outflow"`
	Inflow        entryView `json:"inflow"`
}

type fundingView struct {
	CorrelationID string    `json:"correlation_id"`
	Entry         entryView `json:"entry"`
	Goal          goalView  `json:"goal"`
}

type ruleView struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	Kind        core.Kind `json:"kind"`
	Amount      moneyView `json:"amount"`
	PocketID    int64     `json:"pocket_id,omitempty"`
	CategoryID  int64     `json:"category_id,omitempty"`
	DayOfMonth  int       `json:"day_of_month"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type summaryView struct {
	Income  moneyView `json:"income"`
	Expense moneyView `json:"expense"`
	Net     moneyView `json:"net"`
	Count   int       `json:"count"`
}

type categoryAmountView struct {
	CategoryID int64     `json:"category_id,omitempty"`
	Name       string    `json:"name"`
	Amount     moneyView `json:"amount"`
}

type reportView struct {
	From       *time.Time           `json:"from,omitempty"`
	To         *time.Time           `json:"to,omitempty"`
	Summary    summaryView          `json:"summary"`
	ByCategory []categoryAmountView `json:"by_category"`
}

type dashboardView struct {
	Period  string           `json:"period"`
	Total   moneyView        `json:"total"`
	Pockets []pocketView     `json:"pockets"`
	Budgets []budgetLineView `json:"budgets"`
	Goals   []goalView       `json:"goals"`
	Recent  []entryView      `json:"recent"`
}

type listView[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// presenter renders core values in one currency.
type presenter struct {
	currency string
}

func (p presenter) money(m core.Money) moneyView {
	return moneyView{Minor: m.Minor, Amount: m.Major(p.currency).String(), Display: m.Format(p.currency)}
}

func (p presenter) entry(e core.Entry) entryView {
	return entryView{
		ID:            e.ID,
		Description:   e.Description,
		Kind:          e.Kind,
		Amount:        p.money(e.Amount),
		PocketID:      e.PocketID,
		CategoryID:    e.CategoryID,
		CorrelationID: e.CorrelationID,
		CreatedAt:     e.CreatedAt,
	}
}

func (p presenter) entries(es []core.Entry) []entryView {
	out := make([]entryView, 0, len(es))
	for _, e := range es {
		out = append(out, p.entry(e))
	}
	return out
}

func (p presenter) pocket(pk core.Pocket, balance *core.Money) pocketView {
	v := pocketView{ID: pk.ID, Name: pk.Name, CreatedAt: pk.CreatedAt}
	if balance != nil {
		m := p.money(*balance)
		v.Balance = &m
	}
	return v
}

func (p presenter) pocketLines(lines []core.PocketBalanceLine) []pocketView {
	out := make([]pocketView, 0, len(lines))
	for _, l := range lines {
		bal := l.Balance
		out = append(out, p.pocket(l.Pocket, &bal))
	}
	return out
}

func (p presenter) budget(b core.Budget) budgetView {
	return budgetView{
		ID:         b.ID,
		CategoryID: b.CategoryID,
		Year:       b.Period.Year,
		Month:      b.Period.Month,
		Amount:     p.money(b.Amount),
	}
}

func (p presenter) budgetLines(lines []core.BudgetLine) []budgetLineView {
	out := make([]budgetLineView, 0, len(lines))
	for _, l := range lines {
		out = append(out, budgetLineView{
			budgetView:   p.budget(l.Budget),
			CategoryName: l.CategoryName,
			Spent:        p.money(l.Spent),
			Percentage:   l.Percentage.StringFixed(2),
			Status:       l.Status,
		})
	}
	return out
}

func (p presenter) goal(g core.GoalProgress) goalView {
	return goalView{
		ID:        g.Goal.ID,
		Name:      g.Goal.Name,
		Target:    p.money(g.Goal.Target),
		Current:   p.money(g.Goal.Current),
		Remaining: p.money(g.Remaining),
		Progress:  g.Whole(),
		Percent:   g.Percent.StringFixed(2),
		Reached:   g.Reached,
		CreatedAt: g.Goal.CreatedAt,
	}
}

func (p presenter) goals(gs []core.GoalProgress) []goalView {
	out := make([]goalView, 0, len(gs))
	for _, g := range gs {
		out = append(out, p.goal(g))
	}
	return out
}

func (p presenter) rule(r core.RecurringRule) ruleView {
	return ruleView{
		ID:          r.ID,
		Description: r.Description,
		Kind:        r.Kind,
		Amount:      p.money(r.Amount),
		PocketID:    r.PocketID,
		CategoryID:  r.CategoryID,
		DayOfMonth:  r.DayOfMonth,
		Active:      r.Active,
		CreatedAt:   r.CreatedAt,
	}
}

func (p presenter) report(r core.Report) reportView {
	v := reportView{
		Summary: summaryView{
			Income:  p.money(r.Summary.Income),
			Expense: p.money(r.Summary.Expense),
			Net:     p.money(r.Summary.Net),
			Count:   r.Summary.Count,
		},
		ByCategory: make([]categoryAmountView, 0, len(r.ByCategory)),
	}
	if !r.Range.From.IsZero() {
		from := r.Range.From
		v.From = &from
	}
	if !r.Range.To.IsZero() {
		to := r.Range.To
		v.To = &to
	}
	for _, c := range r.ByCategory {
		v.ByCategory = append(v.ByCategory, categoryAmountView{CategoryID: c.CategoryID, Name: c.Name, Amount: p.money(c.Amount)})
	}
	return v
}

func (p presenter) dashboard(d core.Dashboard) dashboardView {
	return dashboardView{
		Period:  d.Period.String(),
		Total:   p.money(d.Total),
		Pockets: p.pocketLines(d.Pockets),
		Budgets: p.budgetLines(d.Budgets),
		Goals:   p.goals(d.Goals),
		Recent:  p.entries(d.Recent),
	}
}

func newList[T any](items []T) listView[T] {
	if items == nil {
		items = []T{}
	}
	return listView[T]{Items: items, Count: len(items)}
}
