package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seoportal/sessionbind/internal/http/features/auth"
	"github.com/seoportal/sessionbind/internal/http/features/state"
	"github.com/seoportal/sessionbind/internal/http/features/tenants"
	"github.com/seoportal/sessionbind/internal/http/middleware"
	"github.com/seoportal/sessionbind/internal/httputil"
	"github.com/seoportal/sessionbind/pkg/identity"
	"github.com/seoportal/sessionbind/pkg/store"
	"github.com/seoportal/sessionbind/portal"
)

const defaultMaxBodySize = 1 << 20 // 1 MiB

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger             *slog.Logger
	Portal             *portal.Portal
	Store              store.Store
	Tokens             *identity.TokenService
	LoginRateLimit     int
	LoginRateWindow    time.Duration
	SecurityHeaders    middleware.SecurityHeadersConfig
	MaxRequestBodySize int64
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBody := cfg.MaxRequestBodySize
	if maxBody == 0 {
		maxBody = defaultMaxBodySize
	}

	// Apply global middleware
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(maxBody))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	loginLimiter := middleware.NoRateLimit()
	if cfg.LoginRateLimit > 0 {
		loginLimiter = middleware.RateLimit(middleware.RateLimitConfig{
			Requests: cfg.LoginRateLimit,
			Window:   cfg.LoginRateWindow,
			Logger:   cfg.Logger,
		})
	}

	// Authentication
	authHandler := auth.NewHandler(cfg.Logger, cfg.Portal, cfg.Tokens)
	r.With(loginLimiter).Post("/v1/auth/login", authHandler.Login)
	r.Post("/v1/auth/logout", authHandler.Logout)

	// Session state and the gate are readable without a token: the sign-in
	// view itself needs the gate's verdict to know where to send the user.
	stateHandler := state.NewHandler(cfg.Logger, cfg.Portal)
	r.Get("/v1/session", stateHandler.GetSession)
	r.Get("/v1/gate", stateHandler.EvaluateGate)

	// Tenant state requires a valid token
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Tokens))
		r.Get("/v1/tenants", stateHandler.GetTenants)
		r.Get("/v1/tenants/active", stateHandler.GetActiveTenant)
		r.Put("/v1/tenants/active", stateHandler.SelectTenant)
		r.Get("/v1/report", stateHandler.GetReport)
	})

	// Tenant management; the handlers additionally require the admin role
	tenantsHandler := tenants.NewHandler(cfg.Logger, cfg.Portal, cfg.Store)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Tokens))
		r.Post("/v1/tenants", tenantsHandler.Create)
		r.Patch("/v1/tenants/{id}", tenantsHandler.Update)
		r.Delete("/v1/tenants/{id}", tenantsHandler.Delete)
	})

	return r
}
