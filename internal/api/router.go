package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/excavator/rental-api/internal/api/handler"
	"github.com/excavator/rental-api/internal/api/middleware"
	"github.com/excavator/rental-api/internal/core/domain"
	"github.com/excavator/rental-api/internal/core/ports"
)

// Dependencies is everything the router wires into routes.
type Dependencies struct {
	Log  zerolog.Logger
	Auth ports.AuthService

	Tokens ports.TokenIssuer
	// Identities resolves access token subjects; usually the identity cache.
	Identities middleware.IdentityFinder
	// Credentials resolves refresh token subjects and must return the stored
	// refresh digest.
	Credentials middleware.IdentityFinder

	AuditLog ports.AuditRepository
	Audit    ports.AuditRecorder

	Cookie handler.CookieOptions
	Checks map[string]handler.DependencyCheck

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	registerer := deps.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "rental",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(middleware.RequestLogger(deps.Log))

	cookie := deps.Cookie.WithDefaults()

	// --- Guards ---
	accessGuard := middleware.NewAccessGuard(deps.Tokens, deps.Identities, deps.Log)
	refreshGuard := middleware.NewRefreshGuard(deps.Tokens, deps.Credentials, cookie.Name, deps.Log)
	adminGuard := middleware.RequireRole(domain.RoleAdmin, deps.Audit, deps.Log)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.Auth, cookie)
	auth := e.Group("/auth")
	auth.POST("/signup", authHandler.Register)
	auth.POST("/signin", authHandler.SignIn)
	auth.POST("/refresh", authHandler.Refresh, middleware.Guards(refreshGuard))
	auth.POST("/logout", authHandler.Logout, middleware.Guards(accessGuard))
	auth.GET("/validate", authHandler.Validate, middleware.Guards(accessGuard))
	auth.GET("/me", authHandler.Me, middleware.Guards(accessGuard))

	// --- Admin routes ---
	auditHandler := handler.NewAuditHandler(deps.AuditLog)
	admin := e.Group("/admin", middleware.Guards(accessGuard, adminGuard))
	admin.GET("/audit", auditHandler.List)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Checks)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return e
}
