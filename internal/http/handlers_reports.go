package http

import (
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/report"
)

// windowDays reads ?days=. Unparsable values fall back to the default
// window and are only logged; report.ClampDays applies the bounds.
func windowDays(r *http.Request) int {
	days, err := QueryInt(r.URL.Query(), "days", report.DefaultWindowDays)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Ignoring invalid report window",
			log.FieldError, err, log.FieldQuery, r.URL.RawQuery)
		days = report.DefaultWindowDays
	}
	return report.ClampDays(days)
}

func reportFailed(w http.ResponseWriter, r *http.Request, kind core.Kind, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Report failed",
		log.FieldError, err, log.FieldKind, string(kind), log.FieldComponent, log.ComponentReport)
	writeJSONError(w, http.StatusInternalServerError, "could not build report")
}

// handleSummary returns the full aggregation for one kind.
func (s *Server) handleSummary(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := windowDays(r)
		res, err := s.reports.Summary(r.Context(), currentUser(r).ID, kind, days)
		if err != nil {
			reportFailed(w, r, kind, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// handleGroupTotals returns per-category (or per-source) totals under key.
func (s *Server) handleGroupTotals(kind core.Kind, key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := windowDays(r)
		res, err := s.reports.Summary(r.Context(), currentUser(r).ID, kind, days)
		if err != nil {
			reportFailed(w, r, kind, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]report.Accumulator{key: res.CategoryTotals})
	}
}

func (s *Server) handleLastThreeMonths(w http.ResponseWriter, r *http.Request) {
	res, err := s.reports.Summary(r.Context(), currentUser(r).ID, core.KindExpense, report.QuarterWindowDays)
	if err != nil {
		reportFailed(w, r, core.KindExpense, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleYear returns calendar-month totals for ?year=, defaulting to the
// current year.
func (s *Server) handleYear(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current := s.reports.Today().Year()
		year, err := QueryInt(r.URL.Query(), "year", current)
		if err != nil || year < 1 || year > 9999 {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Ignoring invalid report year",
				log.FieldQuery, r.URL.RawQuery)
			year = current
		}
		ys, err := s.reports.Year(r.Context(), currentUser(r).ID, kind, year)
		if err != nil {
			reportFailed(w, r, kind, err)
			return
		}
		writeJSON(w, http.StatusOK, ys)
	}
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	days := windowDays(r)
	ov, err := s.reports.Overview(r.Context(), currentUser(r).ID, days)
	if err != nil {
		reportFailed(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}
