// Package web provides the HTTP server and handlers for the table dashboard.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/JonMunkholm/fastro/internal/backend"
	"github.com/JonMunkholm/fastro/internal/cache"
	"github.com/JonMunkholm/fastro/internal/config"
	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/JonMunkholm/fastro/internal/importer"
	"github.com/JonMunkholm/fastro/internal/metrics"
	"github.com/JonMunkholm/fastro/internal/provider"
	"github.com/JonMunkholm/fastro/internal/realtime"
	webmw "github.com/JonMunkholm/fastro/internal/web/middleware"
)

// AuditStore records and lists audit entries.
type AuditStore interface {
	core.AuditLogger
	List(ctx context.Context, filter core.AuditLogFilter) ([]core.AuditEntry, int64, error)
}

// Deps are the services the server drives. Store, Cache and Metrics are
// required; the rest disable their feature when nil.
type Deps struct {
	Store    provider.Store
	Cache    *cache.Cache
	Metrics  *metrics.Metrics
	Audit    AuditStore
	Hub      *realtime.Hub
	Importer *importer.Client
	Storage  *backend.Storage
}

// Server is the HTTP server for the dashboard.
type Server struct {
	cfg      *config.Config
	deps     Deps
	router   *chi.Mux
	server   *http.Server
	sessions *sessions.CookieStore
	views    *viewStore

	bindingsMu sync.Mutex
	bindings   map[string]*provider.Binding

	stop context.CancelFunc
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, deps Deps) *Server {
	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		router:   chi.NewRouter(),
		sessions: newSessionStore(cfg.Session),
		views:    newViewStore(ctx, viewIdleTimeout, maxTableViews),
		bindings: make(map[string]*provider.Binding),
		stop:     stop,
	}
	s.setupMiddleware(ctx)
	s.setupRoutes(ctx)
	return s
}

// newSessionStore builds the cookie store. Without a configured secret a
// random key is used, so sessions do not survive a restart.
func newSessionStore(cfg config.SessionConfig) *sessions.CookieStore {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
		slog.Warn("SESSION_SECRET not set, using an ephemeral session key")
	}
	store := sessions.NewCookieStore(secret)
	store.MaxAge(86400 * 7)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.Secure
	store.Options.SameSite = http.SameSiteLaxMode
	return store
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(ctx context.Context) {
	s.router.Use(middleware.RequestID)
	s.router.Use(webmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(webmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(requestContext)

	if s.cfg.Security.EnableCSP {
		s.router.Use(securityHeaders)
	}

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(ctx, s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(ctx context.Context) {
	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	s.router.Handle("/metrics", s.deps.Metrics.Handler())

	var importLimit func(http.Handler) http.Handler
	if s.cfg.Rate.Enabled {
		importLimit = newRateLimiter(ctx, s.cfg.Rate.ImportLimit, time.Minute).middleware
	}

	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Get("/audit", s.handleAuditLog)

	s.router.Route("/tables/{table}", func(r chi.Router) {
		r.Use(s.requireTable)

		r.Get("/", s.handleTablePage)
		r.Get("/updates", s.handleTableUpdates)

		// CSV import is bounded by the import client's own timeout.
		r.With(optional(importLimit)).Post("/import", s.handleImport)

		// Regular requests get the middleware timeout; the updates stream
		// above stays open until the client leaves.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

			// Grid state
			r.Post("/refresh", s.handleRefresh)
			r.Post("/grid", s.handleGrid)
			r.Post("/grid/reset", s.handleGridReset)
			r.Post("/page/{page}", s.handlePage)
			r.Post("/sort/{column}", s.handleSort)
			r.Post("/search", s.handleSearch)

			// Selection
			r.Post("/select-all", s.handleSelectAll)
			r.Post("/clear-selection", s.handleClearSelection)
			r.Post("/rows/{id}/select", s.handleToggle)

			// Editor and preview
			r.Get("/create", s.handleOpenCreate)
			r.Post("/create", s.handleSubmitCreate)
			r.Get("/rows/{id}/edit", s.handleOpenEdit)
			r.Post("/rows/{id}/edit", s.handleSubmitEdit)
			r.Post("/rows/{id}/cell/{column}", s.handleEditCell)
			r.Get("/rows/{id}/preview", s.handlePreview)
			r.Post("/close", s.handleCloseModal)

			// Deletes and actions
			r.Post("/rows/{id}/delete", s.handleRequestDelete)
			r.Post("/bulk-delete", s.handleRequestBulkDelete)
			r.Post("/confirm", s.handleConfirm)
			r.Post("/cancel", s.handleCancel)
			r.Post("/rows/{id}/actions/{action}", s.handleRowAction)
			r.Post("/bulk-actions/{action}", s.handleBulkAction)

			r.Get("/import", s.handleOpenImport)
		})
	})

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.Security.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
		r.Use(webmw.APIKeyAuth(&s.cfg.Security))
		r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

		r.Get("/tables", s.handleListTables)
		r.Route("/tables/{table}", func(r chi.Router) {
			r.Use(s.requireTable)
			r.Get("/rows", s.handleAPIRows)
			r.Get("/template", s.handleDownloadTemplate)
		})
		r.With(optional(importLimit)).Post("/storage", s.handleStorageUpload)
		r.Get("/audit", s.handleAPIAudit)
	})
}

// optional returns mw, or a pass-through when mw is nil.
func optional(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and its background work.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	s.views.close()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// binding returns the shared backend binding of a table.
func (s *Server) binding(def core.TableDefinition) *provider.Binding {
	s.bindingsMu.Lock()
	defer s.bindingsMu.Unlock()

	b, ok := s.bindings[def.Info.Key]
	if !ok {
		b = provider.ForDefinition(def, provider.Deps{
			Store:    s.deps.Store,
			Cache:    s.deps.Cache,
			Audit:    s.deps.Audit,
			Progress: s.deps.Metrics,
		})
		s.bindings[def.Info.Key] = b
	}
	return b
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline' 'unsafe-eval' https://cdn.jsdelivr.net; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a fixed-window rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	now      func() time.Time
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter whose cleanup stops with ctx.
func newRateLimiter(ctx context.Context, rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
	}
	go rl.cleanup(ctx)
	return rl
}

// cleanup removes stale visitor entries every window.
func (rl *rateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if rl.now().Sub(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[ip]
	if !exists || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// middleware rate limits by client IP. RemoteAddr is already resolved by
// TrustedRealIP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			respondError(w, r, errRateLimited, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
