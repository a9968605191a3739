package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"saku/internal/log"
	"saku/internal/services"
	"saku/internal/storage/memory"
)

const testOwner = "user-1"

var testNow = time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := log.New(log.Config{Output: io.Discard})
	clock := func() time.Time { return testNow }
	engine := services.New(memory.New(), services.Options{Logger: logger, Clock: clock})
	s := NewServer(":0", engine, Options{Logger: logger, Currency: "IDR", Clock: clock, RateLimitPerMinute: 1000})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

type call struct {
	method, path, body string
	owner              string
	headers            map[string]string
}

func do(t *testing.T, s *Server, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if c.body != "" {
		body = strings.NewReader(c.body)
	}
	r := httptest.NewRequest(c.method, c.path, body)
	if c.body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if c.owner != "" {
		r.Header.Set(HeaderOwnerID, c.owner)
	}
	for k, v := range c.headers {
		r.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, r)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func mustStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func createPocket(t *testing.T, s *Server, name string) int64 {
	t.Helper()
	rr := do(t, s, call{method: http.MethodPost, path: "/v1/pockets", owner: testOwner, body: `{"name":"` + name + `"}`})
	mustStatus(t, rr, http.StatusCreated)
	return decode[pocketView](t, rr).ID
}

func id(n int64) string { return strconv.FormatInt(n, 10) }

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, call{method: http.MethodGet, path: "/healthz"})
	mustStatus(t, rr, http.StatusOK)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}

	mustStatus(t, do(t, s, call{method: http.MethodGet, path: "/readyz"}), http.StatusOK)

	_ = s.engine.Close()
	mustStatus(t, do(t, s, call{method: http.MethodGet, path: "/readyz"}), http.StatusServiceUnavailable)
}

func TestOwnerRequired(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, call{method: http.MethodGet, path: "/v1/pockets"})
	mustStatus(t, rr, http.StatusUnauthorized)
	if got := decode[errorBody](t, rr).Error.Code; got != codeUnauthorized {
		t.Errorf("code = %q", got)
	}
}

func TestTransferBetweenPocketsAPI(t *testing.T) {
	s := newTestServer(t)
	food := createPocket(t, s, "Food")
	emergency := createPocket(t, s, "Emergency")

	rr := do(t, s, call{
		method: http.MethodPost, path: "/v1/transfers", owner: testOwner,
		body: `{"from_pocket_id":` + id(food) + `,"to_pocket_id":` + id(emergency) + `,"amount":"50000"}`,
	})
	mustStatus(t, rr, http.StatusCreated)
	tr := decode[transferView](t, rr)
	if tr.CorrelationID == "" || tr.Outflow.CorrelationID != tr.CorrelationID || tr.Inflow.CorrelationID != tr.CorrelationID {
		t.Errorf("correlation ids = %q %q %q", tr.CorrelationID, tr.Outflow.CorrelationID, tr.Inflow.CorrelationID)
	}
	if tr.Outflow.Description != "Transfer to Emergency" || tr.Inflow.Description != "Transfer from Food" {
		t.Errorf("descriptions = %q, %q", tr.Outflow.Description, tr.Inflow.Description)
	}

	rr = do(t, s, call{method: http.MethodGet, path: "/v1/pockets/" + id(food), owner: testOwner})
	mustStatus(t, rr, http.StatusOK)
	if got := decode[pocketView](t, rr).Balance; got == nil || got.Amount != "-50000" {
		t.Errorf("Food balance = %+v, want -50000", got)
	}
	rr = do(t, s, call{method: http.MethodGet, path: "/v1/pockets/" + id(emergency), owner: testOwner})
	if got := decode[pocketView](t, rr).Balance; got == nil || got.Amount != "50000" {
		t.Errorf("Emergency balance = %+v, want 50000", got)
	}

	rr = do(t, s, call{method: http.MethodGet, path: "/v1/balance", owner: testOwner})
	mustStatus(t, rr, http.StatusOK)
	if got := decode[map[string]moneyView](t, rr)["total"]; got.Minor != 0 {
		t.Errorf("total = %+v, want 0", got)
	}

	rr = do(t, s, call{method: http.MethodDelete, path: "/v1/entries/" + id(tr.Outflow.ID), owner: testOwner})
	mustStatus(t, rr, http.StatusUnprocessableEntity)
}

func TestTransferErrors(t *testing.T) {
	s := newTestServer(t)
	food := createPocket(t, s, "Food")

	tests := []struct {
		name       string
		body       string
		owner      string
		wantStatus int
	}{
		{"same pocket", `{"from_pocket_id":` + id(food) + `,"to_pocket_id":` + id(food) + `,"amount":"1"}`, testOwner, http.StatusUnprocessableEntity},
		{"missing destination", `{"from_pocket_id":` + id(food) + `,"to_pocket_id":999,"amount":"1"}`, testOwner, http.StatusNotFound},
		{"other owner", `{"from_pocket_id":` + id(food) + `,"to_pocket_id":999,"amount":"1"}`, "intruder", http.StatusNotFound},
		{"zero amount", `{"from_pocket_id":1,"to_pocket_id":2,"amount":"0"}`, testOwner, http.StatusUnprocessableEntity},
		{"malformed", `{"from_pocket_id":`, testOwner, http.StatusBadRequest},
		{"unknown field", `{"source":1}`, testOwner, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s, call{method: http.MethodPost, path: "/v1/transfers", owner: tt.owner, body: tt.body})
			mustStatus(t, rr, tt.wantStatus)
		})
	}
}

func TestFundGoalAPI(t *testing.T) {
	s := newTestServer(t)
	savings := createPocket(t, s, "Savings")

	rr := do(t, s, call{method: http.MethodPost, path: "/v1/goals", owner: testOwner, body: `{"name":"Laptop","target":"15000000"}`})
	mustStatus(t, rr, http.StatusCreated)
	goal := decode[goalView](t, rr)
	if goal.Progress != 0 || goal.Current.Minor != 0 {
		t.Errorf("new goal = %+v", goal)
	}

	rr = do(t, s, call{
		method: http.MethodPost, path: "/v1/goals/" + id(goal.ID) + "/fund", owner: testOwner,
		body: `{"pocket_id":` + id(savings) + `,"amount":"5000000"}`,
	})
	mustStatus(t, rr, http.StatusCreated)
	f := decode[fundingView](t, rr)
	if f.Goal.Progress != 33 || f.Goal.Current.Amount != "5000000" || f.Goal.Reached {
		t.Errorf("funded goal = %+v", f.Goal)
	}
	if f.Entry.Kind != "outflow" || f.Entry.Description != "Saving for Laptop" {
		t.Errorf("funding entry = %+v", f.Entry)
	}

	rr = do(t, s, call{method: http.MethodGet, path: "/v1/goals/" + id(goal.ID), owner: testOwner})
	mustStatus(t, rr, http.StatusOK)
	if got := decode[goalView](t, rr); got.Progress != 33 || got.Remaining.Amount != "10000000" {
		t.Errorf("goal = %+v", got)
	}

	rr = do(t, s, call{method: http.MethodGet, path: "/v1/goals/" + id(goal.ID), owner: "intruder"})
	mustStatus(t, rr, http.StatusNotFound)

	rr = do(t, s, call{method: http.MethodPost, path: "/v1/goals", owner: testOwner, body: `{"name":"Nothing","target":"0"}`})
	mustStatus(t, rr, http.StatusUnprocessableEntity)

	mustStatus(t, do(t, s, call{method: http.MethodDelete, path: "/v1/goals/" + id(goal.ID), owner: testOwner}), http.StatusNoContent)
	rr = do(t, s, call{method: http.MethodGet, path: "/v1/pockets/" + id(savings), owner: testOwner})
	if got := decode[pocketView](t, rr).Balance; got == nil || got.Amount != "-5000000" {
		t.Errorf("Savings balance after goal delete = %+v, want -5000000", got)
	}
}

func TestEntriesQueryAndValidation(t *testing.T) {
	s := newTestServer(t)
	cash := createPocket(t, s, "Cash")

	rr := do(t, s, call{method: http.MethodPost, path: "/v1/categories", owner: testOwner, body: `{"name":"Groceries"}`})
	mustStatus(t, rr, http.StatusCreated)
	cat := decode[categoryView](t, rr)

	bodies := []string{
		`{"description":"Salary","kind":"inflow","amount":"1000000","pocket_id":` + id(cash) + `,"date":"2025-03-01"}`,
		`{"description":"Market","kind":"outflow","amount":200000,"pocket_id":` + id(cash) + `,"category_id":` + id(cat.ID) + `,"date":"2025-03-10"}`,
		`{"description":"Old","kind":"outflow","amount":"5000","pocket_id":` + id(cash) + `,"date":"2025-02-10"}`,
	}
	for _, b := range bodies {
		mustStatus(t, do(t, s, call{method: http.MethodPost, path: "/v1/entries", owner: testOwner, body: b}), http.StatusCreated)
	}

	rr = do(t, s, call{method: http.MethodGet, path: "/v1/entries?from=2025-03-01&to=2025-03-31", owner: testOwner})
	mustStatus(t, rr, http.StatusOK)
	list := decode[listView[entryView]](t, rr)
	if list.Count != 2 || list.Items[0].Description != "Market" {
		t.Errorf("march entries = %+v", list)
	}

	rr = do(t, s, call{method: http.MethodGet, path: "/v1/entries?order=asc", owner: testOwner})
	list = decode[listView[entryView]](t, rr)
	if list.Count != 3 || list.Items[0].Description != "Old" {
		t.Errorf("ascending entries = %+v", list)
	}

	rr = do(t, s, call{method: http.MethodGet, path: "/v1/entries?category=" + id(cat.ID), owner: testOwner})
	if list = decode[listView[entryView]](t, rr); list.Count != 1 {
		t.Errorf("category entries = %+v", list)
	}

	rr = do(t, s, call{method: http.MethodGet, path: "/v1/entries", owner: "intruder"})
	if list = decode[listView[entryView]](t, rr); list.Count != 0 {
		t.Errorf("other owner sees %d entries", list.Count)
	}

	rr = do(t, s, call{method: http.MethodGet, path: "/v1/categories/" + id(cat.ID) + "/spend?from=2025-03-01&to=2025-03-31", owner: testOwner})
	mustStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `"minor":20000000`) {
		t.Errorf("category spend = %s", rr.Body.String())
	}

	invalid := []struct {
		body string
		want string
	}{
		{`{"description":"x","kind":"sideways","amount":"1","pocket_id":` + id(cash) + `}`, "kind"},
		{`{"description":"x","kind":"inflow","amount":"-1","pocket_id":` + id(cash) + `}`, "amount"},
		{`{"description":"x","kind":"inflow","amount":"1","pocket_id":` + id(cash) + `,"date":"yesterday"}`, "date"},
	}
	for _, tt := range invalid {
		rr := do(t, s, call{method: http.MethodPost, path: "/v1/entries", owner: testOwner, body: tt.body})
		mustStatus(t, rr, http.StatusUnprocessableEntity)
		if got := decode[errorBody](t, rr).Error.Field; got != tt.want {
			t.Errorf("field = %q, want %q", got, tt.want)
		}
	}

	mustStatus(t, do(t, s, call{method: http.MethodGet, path: "/v1/entries?order=sideways", owner: testOwner}), http.StatusUnprocessableEntity)
	mustStatus(t, do(t, s, call{method: http.MethodDelete, path: "/v1/entries/abc", owner: testOwner}), http.StatusBadRequest)
	mustStatus(t, do(t, s, call{method: http.MethodDelete, path: "/v1/entries/999", owner: testOwner}), http.StatusNotFound)
}

func TestDeletePocketCascades(t *testing.T) {
	s := newTestServer(t)
	cash := createPocket(t, s, "Cash")
	other := createPocket(t, s, "Other")

	for _, p := range []int64{cash, cash, other} {
		body := `{"description":"in","kind":"inflow","amount":"100","pocket_id":` + id(p) + `}`
		mustStatus(t, do(t, s, call{method: http.MethodPost, path: "/v1/entries", owner: testOwner, body: body}), http.StatusCreated)
	}

	rr := do(t, s, call{method: http.MethodDelete, path: "/v1/pockets/" + id(cash), owner: testOwner})
	mustStatus(t, rr, http.StatusOK)
	if got := decode[map[string]int64](t, rr)["removed_entries"]; got != 2 {
		t.Errorf("removed_entries = %d, want 2", got)
	}

	rr = do(t, s, call{method: http.MethodGet, path: "/v1/entries", owner: testOwner})
	if list := decode[listView[entryView]](t, rr); list.Count != 1 || list.Items[0].PocketID != other {
		t.Errorf("remaining entries = %+v", list)
	}
	mustStatus(t, do(t, s, call{method: http.MethodGet, path: "/v1/pockets/" + id(cash), owner: testOwner}), http.StatusNotFound)
}

func TestBudgetsAndDashboard(t *testing.T) {
	s := newTestServer(t)
	cash := createPocket(t, s, "Cash")
	rr := do(t, s, call{method: http.MethodPost, path: "/v1/categories", owner: testOwner, body: `{"name":"Food"}`})
	cat := decode[categoryView](t, rr)

	rr = do(t, s, call{method: http.MethodPut, path: "/v1/budgets", owner: testOwner, body: `{"category_id":` + id(cat.ID) + `,"amount":"100000"}`})
	mustStatus(t, rr, http.StatusOK)
	if b := decode[budgetView](t, rr); b.Year != 2025 || b.Month != 3 {
		t.Errorf("budget period = %d-%d, want current month", b.Year, b.Month)
	}

	body := `{"description":"Dinner","kind":"outflow","amount":"80000","pocket_id":` + id(cash) + `,"category_id":` + id(cat.ID) + `}`
	mustStatus(t, do(t, s, call{method: http.MethodPost, path: "/v1/entries", owner: testOwner, body: body}), http.StatusCreated)

	rr = do(t, s, call{method: http.MethodGet, path: "/v1/budgets?year=2025&month=3", owner: testOwner})
	mustStatus(t, rr, http.StatusOK)
	status := decode[struct {
		Period string           `json:"period"`
		Items  []budgetLineView `json:"items"`
	}](t, rr)
	if len(status.Items) != 1 || status.Items[0].Status != "warning" || status.Items[0].Percentage != "80.00" {
		t.Errorf("budget status = %+v", status)
	}

	rr = do(t, s, call{method: http.MethodGet, path: "/v1/dashboard", owner: testOwner})
	mustStatus(t, rr, http.StatusOK)
	d := decode[dashboardView](t, rr)
	if d.Period != "2025-03" || d.Total.Amount != "-80000" || len(d.Pockets) != 1 || len(d.Budgets) != 1 || len(d.Recent) != 1 {
		t.Errorf("dashboard = %+v", d)
	}

	rr = do(t, s, call{method: http.MethodGet, path: "/v1/reports/summary", owner: testOwner})
	mustStatus(t, rr, http.StatusOK)
	rep := decode[reportView](t, rr)
	if rep.Summary.Expense.Amount != "80000" || len(rep.ByCategory) != 1 || rep.ByCategory[0].Name != "Food" {
		t.Errorf("report = %+v", rep)
	}

	mustStatus(t, do(t, s, call{method: http.MethodGet, path: "/v1/dashboard?month=13", owner: testOwner}), http.StatusUnprocessableEntity)
}

func TestIdempotentTransfer(t *testing.T) {
	s := newTestServer(t)
	a := createPocket(t, s, "A")
	b := createPocket(t, s, "B")
	body := `{"from_pocket_id":` + id(a) + `,"to_pocket_id":` + id(b) + `,"amount":"10"}`
	key := map[string]string{HeaderIdempotencyKey: "k-1"}

	first := do(t, s, call{method: http.MethodPost, path: "/v1/transfers", owner: testOwner, body: body, headers: key})
	mustStatus(t, first, http.StatusCreated)

	second := do(t, s, call{method: http.MethodPost, path: "/v1/transfers", owner: testOwner, body: body, headers: key})
	mustStatus(t, second, http.StatusCreated)
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("replay header missing")
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Errorf("replayed body differs:\n%s\n%s", first.Body.String(), second.Body.String())
	}

	rr := do(t, s, call{method: http.MethodGet, path: "/v1/entries", owner: testOwner})
	if list := decode[listView[entryView]](t, rr); list.Count != 2 {
		t.Errorf("entries after replay = %d, want 2", list.Count)
	}

	changed := strings.Replace(body, `"10"`, `"11"`, 1)
	mustStatus(t, do(t, s, call{method: http.MethodPost, path: "/v1/transfers", owner: testOwner, body: changed, headers: key}), http.StatusUnprocessableEntity)

	// Keys are scoped per owner.
	rr = do(t, s, call{method: http.MethodPost, path: "/v1/transfers", owner: "someone-else", body: body, headers: key})
	mustStatus(t, rr, http.StatusNotFound)

	rr = do(t, s, call{method: http.MethodGet, path: "/metrics"})
	mustStatus(t, rr, http.StatusOK)
	for _, want := range []string{"idempotent_replays_total 1", "ledger_transfers_total 1", "http_requests_total"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestSuspiciousRequestBlocked(t *testing.T) {
	s := newTestServer(t)
	rr := do(t, s, call{method: http.MethodGet, path: "/v1/entries?q=1%20UNION%20SELECT%20*", owner: testOwner})
	mustStatus(t, rr, http.StatusBadRequest)
}

func TestRules(t *testing.T) {
	s := newTestServer(t)
	cash := createPocket(t, s, "Cash")

	rr := do(t, s, call{method: http.MethodPost, path: "/v1/rules", owner: testOwner,
		body: `{"description":"Rent","kind":"outflow","amount":"2500000","pocket_id":` + id(cash) + `,"day_of_month":1}`})
	mustStatus(t, rr, http.StatusCreated)
	rule := decode[ruleView](t, rr)
	if !rule.Active || rule.DayOfMonth != 1 {
		t.Errorf("rule = %+v", rule)
	}

	rr = do(t, s, call{method: http.MethodGet, path: "/v1/rules", owner: testOwner})
	if list := decode[listView[ruleView]](t, rr); list.Count != 1 {
		t.Errorf("rules = %+v", list)
	}
	mustStatus(t, do(t, s, call{method: http.MethodDelete, path: "/v1/rules/" + id(rule.ID), owner: testOwner}), http.StatusNoContent)
	mustStatus(t, do(t, s, call{method: http.MethodPost, path: "/v1/rules", owner: testOwner,
		body: `{"description":"Bad","kind":"outflow","amount":"1","day_of_month":40}`}), http.StatusUnprocessableEntity)
}
