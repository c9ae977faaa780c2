package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks templates and the store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.store.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
	} else {
		checks["store"] = "ok"
	}

	checks["cache"] = map[string]interface{}{
		"taxonomy_entries": s.taxonomy.Size(),
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.limiter.ActiveClients(),
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics exposes counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traffic := s.tracer.Metrics()
	suspicious, blocked := s.detector.Counts()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traffic.TotalRequests)

	fmt.Fprintf(w, "# HELP http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", traffic.ServerErrors)

	fmt.Fprintf(w, "# HELP http_response_time_avg_ms Average response time\n")
	fmt.Fprintf(w, "# TYPE http_response_time_avg_ms gauge\n")
	fmt.Fprintf(w, "http_response_time_avg_ms %d\n\n", traffic.AverageResponseTime.Milliseconds())

	fmt.Fprintf(w, "# HELP rate_limit_rejections_total Requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_rejections_total counter\n")
	fmt.Fprintf(w, "rate_limit_rejections_total %d\n\n", s.limiter.Rejected())

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", s.limiter.ActiveClients())

	fmt.Fprintf(w, "# HELP suspicious_requests_total Suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total{action=\"logged\"} %d\n", suspicious)
	fmt.Fprintf(w, "suspicious_requests_total{action=\"blocked\"} %d\n\n", blocked)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.started).Seconds())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

type statsPage struct {
	layout
	Currency string
	Year     int
}

func (s *Server) handleStatsPage(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	s.render(w, r, http.StatusOK, "stats.html", statsPage{
		layout:   s.layoutFor(r, "Summary"),
		Currency: u.Currency,
		Year:     s.reports.Today().Year(),
	})
}

type preferencesPage struct {
	layout
	Currencies []core.Currency
	Selected   string
}

func (s *Server) handlePreferencesPage(w http.ResponseWriter, r *http.Request) {
	s.renderPreferences(w, r, http.StatusOK, currentUser(r).Currency, "", nil)
}

func (s *Server) renderPreferences(w http.ResponseWriter, r *http.Request, status int, selected, flash string, errs []string) {
	l := s.layoutFor(r, "Preferences")
	l.Flash = flash
	l.Errors = errs
	s.render(w, r, status, "preferences.html", preferencesPage{
		layout:     l,
		Currencies: core.Currencies,
		Selected:   selected,
	})
}

// handleSavePreferences updates the user's display currency.
func (s *Server) handleSavePreferences(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}
	u := currentUser(r)
	c, ok := core.LookupCurrency(r.Form.Get("currency"))
	if !ok {
		s.renderPreferences(w, r, http.StatusUnprocessableEntity, u.Currency, "", []string{"Choose a currency from the list"})
		return
	}
	if err := s.store.UpdateCurrency(r.Context(), u.ID, c.Code); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to save preferences",
			log.FieldError, err, log.FieldUserID, u.ID)
		InternalServerError("Could not save preferences").Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Preferences updated", log.FieldUserID, u.ID, "currency", c.Code)
	s.renderPreferences(w, r, http.StatusOK, c.Code, "Changes saved", nil)
}
