package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/log"
	"expensetracker/internal/report"
	"expensetracker/internal/services"
	"expensetracker/internal/storage/memory"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	srv   *Server
	store *memory.Store
}

func newTestEnv(t *testing.T, mutate ...func(*Deps)) *testEnv {
	t.Helper()
	store := memory.New([]string{"Food", "Rent", "Travel"}, []string{"Salary", "Gifts"})
	logger := log.Discard()
	d := Deps{
		Store:    store,
		Records:  services.NewRecordService(store, nil, logger),
		Reports:  report.NewService(store, report.BucketCalendar, report.WithClock(func() time.Time { return testNow }), report.WithLogger(logger)),
		Auth:     auth.NewService(store, "USD", auth.WithBcryptCost(bcrypt.MinCost), auth.WithLogger(logger)),
		Sessions: auth.NewSessionStore(100, time.Hour),
		Exporter: export.NewExporter("", logger),
		Logger:   logger,
	}
	for _, m := range mutate {
		m(&d)
	}
	srv := NewServer(":0", d)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: store}
}

func (e *testEnv) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil), cookie)
}

func (e *testEnv) postForm(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req, cookie)
}

func (e *testEnv) postJSON(path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req, cookie)
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie in response (status %d)", rr.Code)
	return nil
}

// register creates username and returns its session cookie and user.
func (e *testEnv) register(t *testing.T, username string) (*http.Cookie, core.User) {
	t.Helper()
	rr := e.postForm("/register", url.Values{
		"username":         {username},
		"email":            {username + "@example.com"},
		"password":         {"correct-horse"},
		"confirm_password": {"correct-horse"},
	}, nil)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("register status=%d body=%s", rr.Code, rr.Body.String())
	}
	u, err := e.store.UserByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	return sessionCookie(t, rr), u
}

func (e *testEnv) seed(t *testing.T, owner int64, kind core.Kind, amount, date, category, desc string) core.Record {
	t.Helper()
	d, err := core.ParseDate(date)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := e.store.CreateRecord(context.Background(), core.Record{
		Kind:        kind,
		Owner:       owner,
		Amount:      decimal.RequireFromString(amount),
		Date:        d,
		Category:    category,
		Description: desc,
	})
	if err != nil {
		t.Fatal(err)
	}
	return rec
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func TestHealthReadyAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rr := env.get("/healthz", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("healthz status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = env.get("/readyz", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"ready"`) {
		t.Fatalf("readyz status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = env.get("/metrics", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "http_requests_total 2") {
		t.Fatalf("metrics body=%s", rr.Body.String())
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	env := newTestEnv(t)
	rr := env.get("/healthz", nil)

	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("request ID missing")
	}
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/static/app.css", "/static/app.js", "/static/stats.js"} {
		rr := env.get(path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if !strings.Contains(rr.Header().Get("Cache-Control"), "max-age=3600") {
			t.Errorf("%s missing cache header", path)
		}
	}
}

func TestAnonymousAccess(t *testing.T) {
	env := newTestEnv(t)

	rr := env.get("/expenses?page=2", nil)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/login?next="+url.QueryEscape("/expenses?page=2") {
		t.Errorf("Location = %q", loc)
	}

	req := httptest.NewRequest(http.MethodGet, "/income", nil)
	req.Header.Set("HX-Request", "true")
	rr = env.do(req, nil)
	if rr.Code != http.StatusUnauthorized || rr.Header().Get("HX-Redirect") == "" {
		t.Errorf("htmx request: status=%d HX-Redirect=%q", rr.Code, rr.Header().Get("HX-Redirect"))
	}

	rr = env.get("/api/overview", nil)
	if rr.Code != http.StatusUnauthorized || !strings.Contains(rr.Body.String(), "authentication required") {
		t.Errorf("api: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = env.get("/login", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `name="password"`) {
		t.Errorf("login page status=%d", rr.Code)
	}
}

func TestValidateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"missing", `{}`, http.StatusBadRequest, `{"username_error":"Username field is required."}`},
		{"not alphanumeric", `{"username":"bad name!"}`, http.StatusBadRequest, `{"username_error":"Username should only contain alphanumeric characters."}`},
		{"taken", `{"username":"alice"}`, http.StatusConflict, `{"username_error":"Username is already taken. Choose another one."}`},
		{"taken ignoring case", `{"username":"ALICE"}`, http.StatusConflict, `{"username_error":"Username is already taken. Choose another one."}`},
		{"available", `{"username":"bob42"}`, http.StatusOK, `{"username_valid":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.postJSON("/auth/validate-username", tt.body, nil)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d, want %d", rr.Code, tt.wantStatus)
			}
			if got := strings.TrimSpace(rr.Body.String()); got != tt.wantBody {
				t.Errorf("body = %s, want %s", got, tt.wantBody)
			}
		})
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	env := newTestEnv(t)

	rr := env.postForm("/register", url.Values{
		"username": {"alice"}, "password": {"correct-horse"}, "confirm_password": {"other-horse"},
	}, nil)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "The two password fields didn") {
		t.Fatalf("mismatch: status=%d body=%s", rr.Code, rr.Body.String())
	}

	cookie, u := env.register(t, "alice")
	if u.Currency != "USD" {
		t.Errorf("default currency = %q", u.Currency)
	}

	rr = env.postForm("/register", url.Values{
		"username": {"alice"}, "password": {"correct-horse"}, "confirm_password": {"correct-horse"},
	}, nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate register status=%d", rr.Code)
	}

	rr = env.postForm("/login", url.Values{"username": {"alice"}, "password": {"wrong-password"}}, nil)
	if rr.Code != http.StatusUnauthorized || !strings.Contains(rr.Body.String(), "Invalid credentials") {
		t.Fatalf("bad login status=%d", rr.Code)
	}

	rr = env.postForm("/login", url.Values{"username": {"alice"}, "password": {"correct-horse"}, "next": {"/income"}}, nil)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/income" {
		t.Fatalf("login status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}
	second := sessionCookie(t, rr)

	rr = env.postForm("/login", url.Values{"username": {"alice"}, "password": {"correct-horse"}, "next": {"//evil.example"}}, nil)
	if rr.Header().Get("Location") != "/expenses" {
		t.Errorf("open redirect allowed: %q", rr.Header().Get("Location"))
	}

	if rr := env.get("/expenses", cookie); rr.Code != http.StatusOK {
		t.Fatalf("list with session status=%d", rr.Code)
	}

	rr = env.postForm("/logout", nil, second)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("logout status=%d", rr.Code)
	}
	if rr := env.get("/expenses", second); rr.Code != http.StatusSeeOther {
		t.Errorf("session should be gone after logout, got %d", rr.Code)
	}
	if rr := env.get("/expenses", cookie); rr.Code != http.StatusOK {
		t.Errorf("other sessions should survive logout, got %d", rr.Code)
	}
}

func TestRecordLifecycle(t *testing.T) {
	env := newTestEnv(t)
	cookie, u := env.register(t, "alice")
	ctx := context.Background()

	rr := env.get("/expenses/new", cookie)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `value="2026-03-15"`) || !strings.Contains(rr.Body.String(), "Travel") {
		t.Fatalf("new form status=%d", rr.Code)
	}

	rr = env.postForm("/expenses/new", url.Values{"amount": {"-4"}, "description": {"Lunch"}, "date": {"2026-03-14"}}, cookie)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "Amount must be a positive number") {
		t.Fatalf("invalid amount status=%d", rr.Code)
	}

	rr = env.postForm("/expenses/new", url.Values{"amount": {"3"}, "description": {strings.Repeat("€", 256)}, "date": {"2026-03-14"}}, cookie)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "Description must be at most 255 characters") {
		t.Fatalf("overlong multi-byte description status=%d", rr.Code)
	}

	rr = env.postForm("/expenses/new", url.Values{
		"amount": {"12,50"}, "description": {"Lunch"}, "date": {"2026-03-14"}, "category": {"Food"},
	}, cookie)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/expenses?msg=created" {
		t.Fatalf("create status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}

	recs, err := env.store.ListRecords(ctx, core.RecordQuery{Owner: u.ID, Kind: core.KindExpense})
	if err != nil || len(recs) != 1 {
		t.Fatalf("stored records = %v, %v", recs, err)
	}
	id := recs[0].ID
	idPath := "/expenses/edit/" + itoa(id)

	rr = env.get("/expenses?msg=created", cookie)
	body := rr.Body.String()
	for _, want := range []string{"Lunch", "12.50", "Expense saved successfully", "Page 1 of 1", "Amount (USD)"} {
		if !strings.Contains(body, want) {
			t.Errorf("list page missing %q", want)
		}
	}

	rr = env.get(idPath, cookie)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `value="12.50"`) {
		t.Fatalf("edit form status=%d", rr.Code)
	}

	rr = env.postForm(idPath, url.Values{
		"amount": {"15"}, "description": {"Team lunch"}, "date": {"2026-03-14"}, "category": {"Food"},
	}, cookie)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	got, _ := env.store.GetRecord(ctx, u.ID, core.KindExpense, id)
	if got.Description != "Team lunch" || core.FormatAmount(got.Amount) != "15.00" {
		t.Errorf("record not updated: %+v", got)
	}

	// Another user sees nothing.
	other, _ := env.register(t, "mallory")
	if rr := env.get(idPath, other); rr.Code != http.StatusNotFound {
		t.Errorf("foreign edit status=%d", rr.Code)
	}
	if rr := env.postForm("/expenses/delete/"+itoa(id), nil, other); rr.Code != http.StatusNotFound {
		t.Errorf("foreign delete status=%d", rr.Code)
	}
	if rr := env.get("/income/edit/"+itoa(id), cookie); rr.Code != http.StatusNotFound {
		t.Errorf("wrong kind status=%d", rr.Code)
	}

	rr = env.postJSON("/api/expenses/search", `{"searchText":"team"}`, cookie)
	var found []map[string]any
	decodeJSON(t, rr, &found)
	if len(found) != 1 || found[0]["category"] != "Food" || found[0]["amount"] != 15.0 {
		t.Errorf("search = %v", found)
	}
	rr = env.postJSON("/api/expenses/search", `{"searchText":"team"}`, other)
	decodeJSON(t, rr, &found)
	if len(found) != 0 {
		t.Errorf("search leaked records: %v", found)
	}

	rr = env.postForm("/expenses/delete/"+itoa(id), nil, cookie)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/expenses?msg=deleted" {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if _, err := env.store.GetRecord(ctx, u.ID, core.KindExpense, id); err == nil {
		t.Error("record should be deleted")
	}
}

func TestCreateRecordHTMX(t *testing.T) {
	env := newTestEnv(t)
	cookie, _ := env.register(t, "alice")

	form := url.Values{"amount": {"2500"}, "description": {"March pay"}, "date": {"2026-03-01"}, "source": {"Salary"}}
	req := httptest.NewRequest(http.MethodPost, "/income/new", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rr := env.do(req, cookie)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("HX-Redirect") != "/income?msg=created" {
		t.Errorf("HX-Redirect = %q", rr.Header().Get("HX-Redirect"))
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"income:created"`) {
		t.Errorf("HX-Trigger = %q", rr.Header().Get("HX-Trigger"))
	}

	form.Set("description", " ")
	req = httptest.NewRequest(http.MethodPost, "/income/new", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rr = env.do(req, cookie)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "Description is required") {
		t.Errorf("blank description status=%d body=%s", rr.Code, rr.Body.String())
	}

	form.Set("description", strings.Repeat("€", 200))
	req = httptest.NewRequest(http.MethodPost, "/income/new", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rr = env.do(req, cookie)
	if rr.Code != http.StatusOK || rr.Header().Get("HX-Redirect") != "/income?msg=created" {
		t.Errorf("multi-byte description status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestReportsAPI(t *testing.T) {
	env := newTestEnv(t)
	cookie, u := env.register(t, "alice")

	env.seed(t, u.ID, core.KindExpense, "100", "2026-03-10", "Food", "groceries")
	env.seed(t, u.ID, core.KindExpense, "50", "2026-02-10", "Travel", "train")
	env.seed(t, u.ID, core.KindExpense, "30", "2025-06-01", "Rent", "old")
	env.seed(t, u.ID, core.KindIncome, "1000", "2026-03-01", "Salary", "pay")
	env.seed(t, u.ID, core.KindIncome, "200", "2026-02-01", "Gifts", "gift")

	rr := env.get("/api/expenses/summary?days=60", cookie)
	var summary struct {
		Window struct {
			Days int `json:"days"`
		} `json:"window"`
		MonthlyTotals map[string]float64 `json:"monthly_totals"`
		Stats         struct {
			Total            float64 `json:"total"`
			TransactionCount int     `json:"transaction_count"`
			TopCategory      string  `json:"top_category"`
		} `json:"stats"`
	}
	decodeJSON(t, rr, &summary)
	if summary.Window.Days != 60 || summary.Stats.Total != 150 || summary.Stats.TransactionCount != 2 || summary.Stats.TopCategory != "Food" {
		t.Errorf("summary = %+v", summary)
	}

	rr = env.get("/api/expenses/summary?days=abc", cookie)
	decodeJSON(t, rr, &summary)
	if rr.Code != http.StatusOK || summary.Window.Days != report.DefaultWindowDays {
		t.Errorf("bad days should fall back to the default window: status=%d days=%d", rr.Code, summary.Window.Days)
	}

	rr = env.get("/api/expenses/categories", cookie)
	var cats map[string]map[string]float64
	decodeJSON(t, rr, &cats)
	if cats["expense_category_data"]["Food"] != 100 || cats["expense_category_data"]["Travel"] != 50 {
		t.Errorf("categories = %v", cats)
	}
	if _, ok := cats["expense_category_data"]["Rent"]; ok {
		t.Error("records older than 180 days must be excluded")
	}

	rr = env.get("/api/income/sources", cookie)
	var sources map[string]map[string]float64
	decodeJSON(t, rr, &sources)
	if sources["income_source_data"]["Salary"] != 1000 {
		t.Errorf("sources = %v", sources)
	}

	rr = env.get("/api/expenses/last-3-months", cookie)
	decodeJSON(t, rr, &summary)
	if summary.Window.Days != report.QuarterWindowDays || summary.Stats.Total != 150 {
		t.Errorf("last 3 months = %+v", summary)
	}

	rr = env.get("/api/expenses/year", cookie)
	var year struct {
		Year     int                `json:"year"`
		Months   map[string]float64 `json:"months"`
		TopMonth struct {
			Month int `json:"month"`
		} `json:"top_month"`
	}
	decodeJSON(t, rr, &year)
	if year.Year != 2026 || len(year.Months) != 12 || year.Months["3"] != 100 || year.TopMonth.Month != 3 {
		t.Errorf("year = %+v", year)
	}

	rr = env.get("/api/expenses/year?year=2025", cookie)
	decodeJSON(t, rr, &year)
	if year.Year != 2025 || year.Months["6"] != 30 {
		t.Errorf("2025 = %+v", year)
	}
	rr = env.get("/api/expenses/year?year=soon", cookie)
	decodeJSON(t, rr, &year)
	if rr.Code != http.StatusOK || year.Year != 2026 {
		t.Errorf("invalid year should fall back to the current one: status=%d year=%d", rr.Code, year.Year)
	}

	rr = env.get("/api/overview?days=90", cookie)
	var ov struct {
		MonthlySavings map[string]float64 `json:"monthly_savings"`
		Health         struct {
			TotalSavings float64 `json:"total_savings"`
			SavingsRate  float64 `json:"savings_rate"`
			HealthStatus string  `json:"health_status"`
			HealthColor  string  `json:"health_color"`
		} `json:"health_indicators"`
	}
	decodeJSON(t, rr, &ov)
	if ov.Health.TotalSavings != 1050 || ov.Health.SavingsRate != 87.5 || ov.Health.HealthStatus != "Excellent" || ov.Health.HealthColor != "success" {
		t.Errorf("overview = %+v", ov.Health)
	}
	if len(ov.MonthlySavings) == 0 {
		t.Error("monthly savings missing")
	}

	other, _ := env.register(t, "bob")
	rr = env.get("/api/expenses/summary", other)
	decodeJSON(t, rr, &summary)
	if summary.Stats.Total != 0 || summary.Stats.TopCategory != report.NoCategory {
		t.Errorf("other user's summary = %+v", summary.Stats)
	}

	if rr := env.get("/stats", cookie); rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `data-year="2026"`) {
		t.Errorf("stats page status=%d", rr.Code)
	}
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	cookie, u := env.register(t, "alice")
	env.seed(t, u.ID, core.KindExpense, "12.5", "2026-03-10", "Food", "groceries")

	rr := env.get("/expenses/export/csv", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("csv status=%d", rr.Code)
	}
	cd := rr.Header().Get("Content-Disposition")
	if !strings.HasPrefix(cd, `attachment; filename="Expenses`) || !strings.HasSuffix(cd, `.csv"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 2 || lines[0] != "Amount,Description,Category,Date" || lines[1] != "12.50,groceries,Food,2026-03-10" {
		t.Errorf("csv = %q", lines)
	}

	rr = env.get("/income/export/csv", cookie)
	if !strings.HasPrefix(rr.Body.String(), "Amount,Description,Source,Date") {
		t.Errorf("income csv header = %q", rr.Body.String())
	}

	rr = env.get("/expenses/export/excel", cookie)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("Content-Disposition"), ".xlsx") {
		t.Errorf("xlsx status=%d cd=%q", rr.Code, rr.Header().Get("Content-Disposition"))
	}

	rr = env.get("/expenses/export/pdf", cookie)
	if rr.Code != http.StatusOK || !strings.HasSuffix(rr.Header().Get("Content-Disposition"), `.pdf"`) || !strings.HasPrefix(rr.Body.String(), "%PDF-") {
		t.Errorf("pdf status=%d cd=%q", rr.Code, rr.Header().Get("Content-Disposition"))
	}

	rr = env.get("/expenses/export/doc", cookie)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown format status=%d", rr.Code)
	}
}

func TestExportPDFFontMissing(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Exporter = export.NewExporter("/nonexistent/font.ttf", log.Discard())
	})
	cookie, u := env.register(t, "alice")
	env.seed(t, u.ID, core.KindExpense, "12.5", "2026-03-10", "Food", "groceries")

	rr := env.get("/expenses/export/pdf", cookie)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("pdf with missing font status=%d", rr.Code)
	}
}

func TestPreferences(t *testing.T) {
	env := newTestEnv(t)
	cookie, u := env.register(t, "alice")
	env.seed(t, u.ID, core.KindExpense, "9", "2026-03-01", "Food", "coffee")

	rr := env.postForm("/preferences", url.Values{"currency": {"eur"}}, cookie)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Changes saved") {
		t.Fatalf("save status=%d", rr.Code)
	}
	got, _ := env.store.UserByID(context.Background(), u.ID)
	if got.Currency != "EUR" {
		t.Errorf("currency = %q", got.Currency)
	}
	if rr := env.get("/expenses", cookie); !strings.Contains(rr.Body.String(), "Amount (EUR)") {
		t.Error("list page should show the new currency")
	}

	rr = env.postForm("/preferences", url.Values{"currency": {"XXX"}}, cookie)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid currency status=%d", rr.Code)
	}
}

func TestPostRateLimit(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.RateLimitPerMinute = 2 })

	for i := 0; i < 2; i++ {
		if rr := env.postJSON("/auth/validate-username", `{"username":"bob"}`, nil); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i+1, rr.Code)
		}
	}
	if rr := env.postJSON("/auth/validate-username", `{"username":"bob"}`, nil); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr := env.get("/login", nil); rr.Code != http.StatusOK {
		t.Errorf("GET must not be limited, got %d", rr.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
