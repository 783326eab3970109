package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rentals/internal/apiclient"
	"rentals/internal/auth"
	"rentals/internal/core"
	"rentals/internal/events"
	"rentals/internal/guard"
	rlog "rentals/internal/log"
	"rentals/internal/middleware/ratelimit"
	"rentals/internal/middleware/security"
	"rentals/internal/middleware/trace"
	"rentals/internal/session"
	appweb "rentals/web"
)

// SessionCookie names the cookie holding the browser-session id.
const SessionCookie = "rentals_session"

// Deps are the collaborators a Server needs.
type Deps struct {
	Sessions     *session.Store
	API          *apiclient.Client
	Events       events.Publisher
	Logger       *rlog.Logger
	CookieSecure bool
	RateLimit    int
}

type Server struct {
	http.Server
	pages    map[string]*template.Template
	partials *template.Template

	sessions     *session.Store
	api          *apiclient.Client
	auth         *auth.Controller
	events       events.Publisher
	logger       *rlog.Logger
	audit        *rlog.StructuredLogger
	cookieSecure bool

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// appMetrics counts user-visible outcomes for /metrics.
type appMetrics struct {
	uptime              time.Time
	logins              int64
	loginFailures       int64
	registrations       int64
	rentalRequests      int64
	propertiesCreated   int64
	propertiesUpdated   int64
	propertiesDeleted   int64
	approvals           int64
	apiFailures         int64
	sessionsInvalidated int64
}

// NewServer parses the templates, wires the middleware chain and returns a
// server ready to ListenAndServe.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Sessions == nil || deps.API == nil {
		return nil, fmt.Errorf("sessions and api client are required")
	}
	if deps.Logger == nil {
		deps.Logger = rlog.New(rlog.DefaultConfig())
	}
	if deps.Events == nil {
		deps.Events = events.Noop{}
	}
	logger := deps.Logger.WithComponent(rlog.ComponentHTTP)

	pages, partials, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	limitCfg := ratelimit.DefaultConfig()
	limitCfg.RequestsPerMinute = deps.RateLimit

	s := &Server{
		pages:            pages,
		partials:         partials,
		sessions:         deps.Sessions,
		api:              deps.API,
		auth:             auth.NewController(deps.API, deps.Logger.WithComponent(rlog.ComponentAuth).Slog()),
		events:           deps.Events,
		logger:           logger,
		audit:            rlog.NewStructuredLogger(deps.Logger),
		cookieSecure:     deps.CookieSecure,
		rateLimiter:      ratelimit.NewLimiter(limitCfg),
		securityDetector: security.NewDetector(deps.Logger.WithComponent(rlog.ComponentSecurity).Slog()),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = guard.Middleware(s.sessionPresent)(handler)
	handler = s.sessionMiddleware(handler)
	handler = security.NoStore(handler)
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.handleRateLimited)(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /properties", s.handleProperties)
	mux.HandleFunc("GET /properties/{id}", s.handlePropertyDetail)
	mux.Handle("GET /properties/create", s.protect(s.handleCreatePropertyForm))
	mux.Handle("POST /properties/create", s.protect(s.handleCreateProperty))
	mux.Handle("POST /properties/{id}/rent", s.protect(s.handleRent))
	mux.Handle("GET /properties/{id}/edit", s.protect(s.handleEditPropertyForm))
	mux.Handle("POST /properties/{id}/edit", s.protect(s.handleUpdateProperty))
	mux.Handle("POST /properties/{id}/delete", s.protect(s.handleDeleteProperty))
	mux.Handle("GET /transactions", s.protect(s.handleTransactions))
	mux.Handle("POST /transactions/{id}/approve", s.protect(s.handleApprove))

	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /register", s.handleRegisterForm)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	if static, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		files := http.StripPrefix("/static/", http.FileServerFS(static))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(files))
	}

	mux.HandleFunc("/", s.handleNotFound)
}

// protect registers a handler that needs a session, independent of the
// path-based guard in front of the mux.
func (s *Server) protect(h http.HandlerFunc) http.Handler {
	return guard.Require(s.sessionPresent, h)
}

// Shutdown stops background work and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func parseTemplates() (map[string]*template.Template, *template.Template, error) {
	funcs := template.FuncMap{
		"price":   formatPrice,
		"date":    formatDate,
		"pageURL": pageURL,
		"deref":   derefInt,
		"join":    strings.Join,
		"card": func(tx core.Transaction, owner bool) cardView {
			return cardView{Tx: tx, Owner: owner}
		},
	}

	partials, err := template.New("partials").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/partials.html")
	if err != nil {
		return nil, nil, fmt.Errorf("parse partials: %w", err)
	}

	names, err := fs.Glob(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, nil, fmt.Errorf("list templates: %w", err)
	}

	pages := make(map[string]*template.Template)
	for _, name := range names {
		base := strings.TrimPrefix(name, "templates/")
		if base == "layout.html" || base == "partials.html" {
			continue
		}
		t, err := template.New(base).Funcs(funcs).ParseFS(appweb.TemplatesFS,
			"templates/layout.html", "templates/partials.html", name)
		if err != nil {
			return nil, nil, fmt.Errorf("parse %s: %w", base, err)
		}
		pages[base] = t
	}
	return pages, partials, nil
}

// pageView is what every full page template receives.
type pageView struct {
	Title         string
	User          core.User
	Authenticated bool
	Error         string
	Notice        string
	Data          any
}

// cardView renders one transaction card; Owner adds the approve action.
type cardView struct {
	Tx    core.Transaction
	Owner bool
}

func (s *Server) page(r *http.Request, title string, data any) pageView {
	sess := session.FromContext(r.Context()).Session(r.Context())
	return pageView{
		Title:         title,
		User:          sess.User,
		Authenticated: sess.Present(),
		Data:          data,
	}
}

// render executes a full page into a buffer first so a template error never
// leaves half a page on the wire.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, v pageView) {
	t, ok := s.pages[name]
	if !ok {
		s.log(r.Context()).ErrorContext(r.Context(), "Unknown template", rlog.FieldOperation, rlog.OpRender, "template", name)
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		s.log(r.Context()).ErrorContext(r.Context(), "Template render failed",
			rlog.FieldOperation, rlog.OpRender,
			"template", name,
			rlog.FieldErrorType, rlog.ErrorTypeInternal,
			rlog.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(buf.Bytes()).Write(w)
}

// fragment renders a partial template into a response builder.
func (s *Server) fragment(r *http.Request, name string, data any) *HTMXResponseBuilder {
	var buf bytes.Buffer
	if err := s.partials.ExecuteTemplate(&buf, name, data); err != nil {
		s.log(r.Context()).ErrorContext(r.Context(), "Fragment render failed",
			rlog.FieldOperation, rlog.OpRender,
			"template", name,
			rlog.FieldError, err)
		return InternalServerError("Something went wrong.")
	}
	return NewHTMXResponse().BodyHTML(buf.Bytes())
}

// redirect navigates the browser, whole page, for htmx and plain requests.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(target).Write(w)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// sessionMiddleware binds the request to the browser's session handle.
// Cookies that are not session ids are ignored.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(SessionCookie); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				id = c.Value
			}
		}
		ctx := session.WithHandle(r.Context(), s.sessions.Handle(id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) sessionPresent(r *http.Request) bool {
	return session.FromContext(r.Context()).Present(r.Context())
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// apiFor returns a client carrying the request's session token, if any.
func (s *Server) apiFor(r *http.Request) *apiclient.Client {
	return s.api.WithToken(session.FromContext(r.Context()).Session(r.Context()).Token)
}

// log returns the request-scoped logger, which carries the request id,
// falling back to the server's own.
func (s *Server) log(ctx context.Context) *rlog.Logger {
	return rlog.FromContextOr(ctx, s.logger)
}

// detach keeps API calls running when the browser goes away; their result
// is simply discarded.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.log(ctx).WarnContext(ctx, "Failed to publish event",
			rlog.FieldEvent, string(e.Type),
			rlog.FieldError, err)
	}
}
