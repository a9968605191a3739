package http

import (
	"net/http"

	"saku/internal/core"
	"saku/internal/log"
)

type transferRequest struct {
	FromPocketID int64       `json:"from_pocket_id"`
	ToPocketID   int64       `json:"to_pocket_id"`
	Amount       amountField `json:"amount"`
}

type createGoalRequest struct {
	Name   string      `json:"name"`
	Target amountField `json:"target"`
}

type fundGoalRequest struct {
	PocketID int64       `json:"pocket_id"`
	Amount   amountField `json:"amount"`
}

type setBudgetRequest struct {
	CategoryID int64       `json:"category_id"`
	Year       int         `json:"year"`
	Month      int         `json:"month"`
	Amount     amountField `json:"amount"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request, owner string) {
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpTransfer, err)
		return
	}
	amount, err := req.Amount.Money(s.view.currency)
	if err != nil {
		s.writeError(w, r, log.OpTransfer, err)
		return
	}
	t, err := s.engine.Transfers.TransferBetweenPockets(r.Context(), owner, req.FromPocketID, req.ToPocketID, amount)
	if err != nil {
		s.writeError(w, r, log.OpTransfer, err)
		return
	}
	s.countCreated(&s.appMetrics.transfers)
	s.writeJSON(w, http.StatusCreated, transferView{
		CorrelationID: t.CorrelationID,
		Amount:        s.view.money(t.Amount),
		Outflow:       s.view.entry(t.Outflow),
		Inflow:        s.view.entry(t.Inflow),
	})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request, owner string) {
	var req createGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	target, err := req.Target.Money(s.view.currency)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	g, err := s.engine.Goals.CreateGoal(r.Context(), owner, sanitizeInput(req.Name), target)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, s.view.goal(g))
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request, owner string) {
	goals, err := s.engine.Goals.ListGoals(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newList(s.view.goals(goals)))
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	g, err := s.engine.Goals.GetGoal(r.Context(), owner, id)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.view.goal(g))
}

// handleDeleteGoal removes the goal. Funds already moved stay spent.
func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.engine.Goals.DeleteGoal(r.Context(), owner, id); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFundGoal(w http.ResponseWriter, r *http.Request, owner string) {
	goalID, err := parseID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpFund, err)
		return
	}
	var req fundGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpFund, err)
		return
	}
	amount, err := req.Amount.Money(s.view.currency)
	if err != nil {
		s.writeError(w, r, log.OpFund, err)
		return
	}
	f, err := s.engine.Transfers.FundGoal(r.Context(), owner, goalID, req.PocketID, amount)
	if err != nil {
		s.writeError(w, r, log.OpFund, err)
		return
	}
	s.countCreated(&s.appMetrics.fundings)
	s.writeJSON(w, http.StatusCreated, fundingView{
		CorrelationID: f.CorrelationID,
		Entry:         s.view.entry(f.Entry),
		Goal:          s.view.goal(core.EvaluateGoal(f.Goal)),
	})
}

// handleSetBudget creates or replaces the budget of a category for a month.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request, owner string) {
	var req setBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpsert, err)
		return
	}
	amount, err := req.Amount.Money(s.view.currency)
	if err != nil {
		s.writeError(w, r, log.OpUpsert, err)
		return
	}
	period := core.Period{Year: req.Year, Month: req.Month}
	if req.Year == 0 && req.Month == 0 {
		period = core.PeriodOf(s.now())
	}
	b, err := s.engine.Budgets.SetBudget(r.Context(), owner, req.CategoryID, period, amount)
	if err != nil {
		s.writeError(w, r, log.OpUpsert, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.view.budget(b))
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request, owner string) {
	period, err := ParsePeriod(r.URL.Query(), s.now())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	lines, err := s.engine.Budgets.BudgetStatus(r.Context(), owner, period)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"period": period.String(),
		"items":  s.view.budgetLines(lines),
	})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.engine.Budgets.DeleteBudget(r.Context(), owner, id); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
