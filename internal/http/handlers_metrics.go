package http

import (
	"net/http"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Dashboard(r.Context(), s.session(r)))
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	year, month, err := parseMonth(r, s.metrics.Today(sess))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.Insight(r.Context(), sess, year, month))
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	year, month, err := parseMonth(r, s.metrics.Today(sess))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.Budget(r.Context(), sess, year, month))
}

func (s *Server) handleShortcuts(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.Shortcuts(r.Context(), s.session(r), limit))
}

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Streak(r.Context(), s.session(r)))
}
