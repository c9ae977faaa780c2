package http

import (
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

var templateFuncs = template.FuncMap{
	"amount": func(d decimal.Decimal) string { return core.FormatAmount(d) },
	"lower":  strings.ToLower,
	"total":  pageTotal,
}

// layout carries what every page template needs.
type layout struct {
	Title  string
	User   *core.User
	Flash  string
	Errors []string
}

func (s *Server) layoutFor(r *http.Request, title string) layout {
	l := layout{Title: title}
	if u, ok := auth.UserFromContext(r.Context()); ok {
		l.User = &u
	}
	return l
}

// render executes a page template. Output is buffered so a failing template
// still produces a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	logger := log.FromContext(r.Context())
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", name,
			log.FieldOperation, log.OpRender)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// currentUser is only called behind auth.RequirePage or auth.RequireAPI.
func currentUser(r *http.Request) core.User {
	u, _ := auth.UserFromContext(r.Context())
	return u
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirectAfterPost sends htmx clients an HX-Redirect carrying b's triggers
// and everyone else a 303.
func redirectAfterPost(w http.ResponseWriter, r *http.Request, target string, b *HTMXResponseBuilder) {
	if isHTMX(r) {
		b.Redirect(target).Write(w)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// safeNext accepts only local absolute paths as post-login targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/expenses"
	}
	if u, err := url.Parse(next); err != nil || u.Host != "" {
		return "/expenses"
	}
	return next
}

func kindBase(kind core.Kind) string {
	return "/" + kind.Plural()
}

func kindTitle(kind core.Kind) string {
	if kind == core.KindIncome {
		return "Income"
	}
	return "Expenses"
}

func kindNoun(kind core.Kind) string {
	if kind == core.KindIncome {
		return "Income"
	}
	return "Expense"
}
