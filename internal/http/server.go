package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	appweb "fintrack/web"
)

// pages are rendered inside templates/layout.html.
var pages = []string{"index.html", "transactions.html", "settings.html", "login.html", "register.html"}

var templateFuncs = template.FuncMap{
	"money": core.FormatMoney,
	"date":  func(t time.Time) string { return t.Format(dateLayout) },
	"id":    func(id int64) string { return strconv.FormatInt(id, 10) },
}

// Config wires the server to its collaborators. Limiter and ClientIP are
// optional.
type Config struct {
	Addr          string
	Auth          *services.AuthService
	Dashboard     *services.DashboardService
	Transactions  *services.TransactionService
	Settings      *services.SettingsService
	Sessions      *auth.Sessions
	Ready         func(context.Context) error
	Limiter       *ratelimit.Limiter
	ClientIP      func(*http.Request) string
	Logger        *log.Logger
	SecureCookies bool
}

type Server struct {
	http.Server
	auth          *services.AuthService
	dashboard     *services.DashboardService
	transactions  *services.TransactionService
	settings      *services.SettingsService
	sessions      *auth.Sessions
	ready         func(context.Context) error
	limiter       *ratelimit.Limiter
	trace         *trace.Middleware
	logger        *log.Logger
	secureCookies bool
	pages         map[string]*template.Template

	shutdownOnce sync.Once
}

// pageData is what every page template receives.
type pageData struct {
	Title    string
	Username string
	Flash    *Flash
	Today    string
	Form     url.Values
	Data     any
}

// NewServer parses the embedded templates and registers every route.
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentHTTP)
	}
	clientIP := cfg.ClientIP
	if clientIP == nil {
		clientIP = func(r *http.Request) string { return r.RemoteAddr }
	}

	s := &Server{
		auth:          cfg.Auth,
		dashboard:     cfg.Dashboard,
		transactions:  cfg.Transactions,
		settings:      cfg.Settings,
		sessions:      cfg.Sessions,
		ready:         cfg.Ready,
		limiter:       cfg.Limiter,
		trace:         trace.NewMiddleware(logger, clientIP),
		logger:        logger,
		secureCookies: cfg.SecureCookies,
		pages:         make(map[string]*template.Template, len(pages)),
	}

	for _, page := range pages {
		t, err := template.New(page).Funcs(templateFuncs).
			ParseFS(appweb.TemplatesFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		s.pages[page] = t
	}

	mux := http.NewServeMux()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("/static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.Handle("/login", security.NoStore(http.HandlerFunc(s.handleLogin)))
	mux.Handle("/register", security.NoStore(http.HandlerFunc(s.handleRegister)))
	mux.Handle("/logout", security.NoStore(http.HandlerFunc(s.handleLogout)))

	mux.Handle("/", security.NoStore(s.requireLogin(s.handleIndex)))
	mux.Handle("/transactions", security.NoStore(s.requireLogin(s.handleTransactions)))
	mux.Handle("/settings", security.NoStore(s.requireLogin(s.handleSettings)))
	mux.Handle("/settings/currency", security.NoStore(s.requireLogin(s.handleDefaultCurrency)))
	mux.Handle("/accounts", security.NoStore(s.requireLogin(s.handleCreateAccount)))
	mux.Handle("/categories", security.NoStore(s.requireLogin(s.handleCreateCategory)))

	var handler http.Handler = mux
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	if s.limiter != nil {
		handler = s.limiter.Middleware(clientIP, http.MethodPost)(handler)
	}
	handler = s.trace.Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Shutdown stops the rate limiter and drains the HTTP server once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns the request counters collected so far.
func (s *Server) Metrics() trace.Metrics {
	return s.trace.GetMetrics()
}

// render executes page into a buffer first so a template error still
// produces a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	ctx := r.Context()
	t, ok := s.pages[page]
	if !ok {
		s.serverError(w, r, "Unknown template", fmt.Errorf("template %q not registered", page), log.OpRender)
		return
	}
	if data.Flash == nil {
		data.Flash = popFlash(w, r)
	}
	if data.Today == "" {
		data.Today = time.Now().Format(dateLayout)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.serverError(w, r, "Template execution failed", err, log.OpRender)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = buf.WriteTo(w)
	}
	log.FromContext(ctx).DebugContext(ctx, "Page rendered", "template", page, log.FieldStatusCode, status)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, msg string, err error, op string) {
	log.FromContext(r.Context()).LogError(r.Context(), msg, err, op, log.NewFields().WithRequestID(trace.GetRequestID(r.Context())))
	InternalServerError().Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().BodyString("ok").Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			NewResponse().Status(http.StatusServiceUnavailable).BodyString("not ready").Write(w)
			return
		}
	}
	NewResponse().BodyString("ready").Write(w)
}
