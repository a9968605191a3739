package http

import (
	"net/http"

	"saku/internal/core"
	"saku/internal/log"
)

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request, owner string) {
	total, err := s.engine.Reports.TotalBalance(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"total": s.view.money(total)})
}

// handleReport summarizes income and expense over from/to, defaulting to
// the current month.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, owner string) {
	rng, err := s.rangeOrCurrentMonth(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	report, err := s.engine.Reports.Report(r.Context(), owner, rng)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.view.report(report))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, owner string) {
	period, err := ParsePeriod(r.URL.Query(), s.now())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	d, err := s.engine.Reports.Dashboard(r.Context(), owner, period)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.view.dashboard(d))
}

func (s *Server) rangeOrCurrentMonth(r *http.Request) (core.Range, error) {
	q := r.URL.Query()
	if q.Get("from") == "" && q.Get("to") == "" {
		return core.PeriodOf(s.now()).Range(), nil
	}
	return ParseRange(q)
}
