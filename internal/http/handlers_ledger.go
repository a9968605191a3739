package http

import (
	"net/http"
	"strings"

	"saku/internal/core"
	"saku/internal/log"
)

type appendEntryRequest struct {
	Description string      `json:"description"`
	Kind        string      `json:"kind"`
	Amount      amountField `json:"amount"`
	PocketID    int64       `json:"pocket_id"`
	CategoryID  int64       `json:"category_id"`
	// Date backdates the entry; empty means now.
	Date string `json:"date"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type ruleRequest struct {
	Description string      `json:"description"`
	Kind        string      `json:"kind"`
	Amount      amountField `json:"amount"`
	PocketID    int64       `json:"pocket_id"`
	CategoryID  int64       `json:"category_id"`
	DayOfMonth  int         `json:"day_of_month"`
	Active      *bool       `json:"active"`
}

func (s *Server) handleAppendEntry(w http.ResponseWriter, r *http.Request, owner string) {
	var req appendEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpAppend, err)
		return
	}
	amount, err := req.Amount.Money(s.view.currency)
	if err != nil {
		s.writeError(w, r, log.OpAppend, err)
		return
	}
	e := core.Entry{
		Description: sanitizeInput(req.Description),
		Kind:        core.Kind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Amount:      amount,
		PocketID:    req.PocketID,
		CategoryID:  req.CategoryID,
	}
	if req.Date != "" {
		t, _, err := parseTime("date", req.Date)
		if err != nil {
			s.writeError(w, r, log.OpAppend, err)
			return
		}
		e.CreatedAt = t
	}

	saved, err := s.engine.Ledger.AppendEntry(r.Context(), owner, e)
	if err != nil {
		s.writeError(w, r, log.OpAppend, err)
		return
	}
	s.countCreated(&s.appMetrics.entriesAppended)
	s.writeJSON(w, http.StatusCreated, s.view.entry(saved))
}

func (s *Server) handleQueryEntries(w http.ResponseWriter, r *http.Request, owner string) {
	f, err := ParseEntryFilter(owner, r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.OpQuery, err)
		return
	}
	entries, err := s.engine.Ledger.QueryEntries(r.Context(), f)
	if err != nil {
		s.writeError(w, r, log.OpQuery, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newList(s.view.entries(entries)))
}

func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpRemove, err)
		return
	}
	if err := s.engine.Ledger.RemoveEntry(r.Context(), owner, id); err != nil {
		s.writeError(w, r, log.OpRemove, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreatePocket(w http.ResponseWriter, r *http.Request, owner string) {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "create_pocket", err)
		return
	}
	p, err := s.engine.Ledger.CreatePocket(r.Context(), owner, sanitizeInput(req.Name))
	if err != nil {
		s.writeError(w, r, "create_pocket", err)
		return
	}
	zero := core.Money{}
	s.writeJSON(w, http.StatusCreated, s.view.pocket(p, &zero))
}

func (s *Server) handleListPockets(w http.ResponseWriter, r *http.Request, owner string) {
	lines, err := s.engine.Reports.PocketBalances(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, "list_pockets", err)
		return
	}
	s.writeJSON(w, http.StatusOK, newList(s.view.pocketLines(lines)))
}

func (s *Server) handleGetPocket(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeError(w, r, "get_pocket", err)
		return
	}
	p, err := s.engine.Ledger.GetPocket(r.Context(), owner, id)
	if err != nil {
		s.writeError(w, r, "get_pocket", err)
		return
	}
	balance, err := s.engine.Reports.PocketBalance(r.Context(), owner, id)
	if err != nil {
		s.writeError(w, r, "get_pocket", err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.view.pocket(p, &balance))
}

func (s *Server) handleDeletePocket(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeError(w, r, "delete_pocket", err)
		return
	}
	removed, err := s.engine.Ledger.DeletePocket(r.Context(), owner, id)
	if err != nil {
		s.writeError(w, r, "delete_pocket", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"pocket_id": id, "removed_entries": len(removed)})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, owner string) {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "create_category", err)
		return
	}
	c, err := s.engine.Ledger.CreateCategory(r.Context(), owner, sanitizeInput(req.Name))
	if err != nil {
		s.writeError(w, r, "create_category", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, categoryView{ID: c.ID, Name: c.Name})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, owner string) {
	cats, err := s.engine.Ledger.ListCategories(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, "list_categories", err)
		return
	}
	out := make([]categoryView, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryView{ID: c.ID, Name: c.Name})
	}
	s.writeJSON(w, http.StatusOK, newList(out))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeError(w, r, "delete_category", err)
		return
	}
	if err := s.engine.Ledger.DeleteCategory(r.Context(), owner, id); err != nil {
		s.writeError(w, r, "delete_category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCategorySpend reports outflows of one category over from/to,
// defaulting to the current month.
func (s *Server) handleCategorySpend(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeError(w, r, "category_spend", err)
		return
	}
	rng, err := s.rangeOrCurrentMonth(r)
	if err != nil {
		s.writeError(w, r, "category_spend", err)
		return
	}
	spent, err := s.engine.Reports.CategorySpend(r.Context(), owner, id, rng)
	if err != nil {
		s.writeError(w, r, "category_spend", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"category_id": id,
		"from":        rng.From,
		"to":          rng.To,
		"spent":       s.view.money(spent),
	})
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request, owner string) {
	var req ruleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "create_rule", err)
		return
	}
	amount, err := req.Amount.Money(s.view.currency)
	if err != nil {
		s.writeError(w, r, "create_rule", err)
		return
	}
	rule := core.RecurringRule{
		Description: sanitizeInput(req.Description),
		Kind:        core.Kind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Amount:      amount,
		PocketID:    req.PocketID,
		CategoryID:  req.CategoryID,
		DayOfMonth:  req.DayOfMonth,
		Active:      req.Active == nil || *req.Active,
	}
	saved, err := s.engine.Ledger.CreateRule(r.Context(), owner, rule)
	if err != nil {
		s.writeError(w, r, "create_rule", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, s.view.rule(saved))
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request, owner string) {
	rules, err := s.engine.Ledger.ListRules(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, "list_rules", err)
		return
	}
	out := make([]ruleView, 0, len(rules))
	for _, rule := range rules {
		out = append(out, s.view.rule(rule))
	}
	s.writeJSON(w, http.StatusOK, newList(out))
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeError(w, r, "delete_rule", err)
		return
	}
	if err := s.engine.Ledger.DeleteRule(r.Context(), owner, id); err != nil {
		s.writeError(w, r, "delete_rule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
