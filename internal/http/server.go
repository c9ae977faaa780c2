package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"expensetracker/internal/auth"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/ports"
	"expensetracker/internal/report"
	"expensetracker/internal/services"
	appweb "expensetracker/web"
)

const (
	taxonomyCacheTTL  = 10 * time.Minute
	staticAssetMaxAge = 3600
	readyTimeout      = 5 * time.Second
)

// Deps are the collaborators the server is built from.
type Deps struct {
	Store    ports.Store
	Records  *services.RecordService
	Reports  *report.Service
	Auth     *auth.Service
	Sessions *auth.SessionStore
	Exporter *export.Exporter
	// Caches, when set, takes over expiry of the server's caches.
	Caches *cache.Manager
	Logger *log.Logger

	RateLimitPerMinute int
	SecureCookies      bool
	BlockSuspicious    bool
}

type Server struct {
	http.Server

	store     ports.Store
	records   *services.RecordService
	reports   *report.Service
	auth      *auth.Service
	authn     *auth.Authenticator
	exporter  *export.Exporter
	templates *template.Template
	logger    *log.Logger

	taxonomy *cache.LRUCache[[]string]
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		store:    d.Store,
		records:  d.Records,
		reports:  d.Reports,
		auth:     d.Auth,
		authn:    auth.NewAuthenticator(d.Sessions, d.Store, d.SecureCookies),
		exporter: d.Exporter,
		logger:   logger,
		taxonomy: cache.NewLRUCache[[]string](8, taxonomyCacheTTL),
		detector: security.NewDetector(d.BlockSuspicious),
		started:  time.Now(),
	}
	rlConfig := ratelimit.DefaultConfig()
	if d.RateLimitPerMinute > 0 {
		rlConfig.RequestsPerMinute = d.RateLimitPerMinute
	}
	s.limiter = ratelimit.NewLimiter(rlConfig)
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	if d.Caches != nil {
		d.Caches.Register("taxonomy", s.taxonomy)
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.authn.LoadUser(handler)
	handler = s.limiter.Middleware(s.detector.ExtractClientIP)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = s.tracer.Handler(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssets(staticAssetMaxAge)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /register", s.handleRegisterPage)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("POST /auth/validate-username", s.handleValidateUsername)

	page := func(h http.HandlerFunc) http.Handler { return auth.RequirePage(h) }
	api := func(h http.HandlerFunc) http.Handler { return auth.RequireAPI(h) }

	mux.Handle("GET /{$}", page(s.handleIndex))
	mux.Handle("GET /stats", page(s.handleStatsPage))
	mux.Handle("GET /preferences", page(s.handlePreferencesPage))
	mux.Handle("POST /preferences", page(s.handleSavePreferences))

	for _, kind := range []core.Kind{core.KindExpense, core.KindIncome} {
		base := kindBase(kind)
		mux.Handle("GET "+base, page(s.handleList(kind)))
		mux.Handle("GET "+base+"/new", page(s.handleNewRecord(kind)))
		mux.Handle("POST "+base+"/new", page(s.handleCreateRecord(kind)))
		mux.Handle("GET "+base+"/edit/{id}", page(s.handleEditRecord(kind)))
		mux.Handle("POST "+base+"/edit/{id}", page(s.handleUpdateRecord(kind)))
		mux.Handle("POST "+base+"/delete/{id}", page(s.handleDeleteRecord(kind)))
		mux.Handle("DELETE "+base+"/{id}", page(s.handleDeleteRecord(kind)))
		mux.Handle("GET "+base+"/export/{format}", page(s.handleExport(kind)))

		apiBase := "/api" + base
		mux.Handle("POST "+apiBase+"/search", api(s.handleSearch(kind)))
		mux.Handle("GET "+apiBase+"/summary", api(s.handleSummary(kind)))
		mux.Handle("GET "+apiBase+"/year", api(s.handleYear(kind)))
	}
	mux.Handle("GET /api/expenses/categories", api(s.handleGroupTotals(core.KindExpense, "expense_category_data")))
	mux.Handle("GET /api/income/sources", api(s.handleGroupTotals(core.KindIncome, "income_source_data")))
	mux.Handle("GET /api/expenses/last-3-months", api(s.handleLastThreeMonths))
	mux.Handle("GET /api/overview", api(s.handleOverview))
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// categories returns the form options for kind, cached briefly.
func (s *Server) categories(ctx context.Context, kind core.Kind) []string {
	if cats, ok := s.taxonomy.Get(string(kind)); ok {
		return cats
	}
	cats, err := s.store.ListCategories(ctx, kind)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Taxonomy list error", log.FieldError, err, log.FieldKind, string(kind))
		return nil
	}
	s.taxonomy.Set(string(kind), cats)
	return cats
}
