package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/accounts/docs"
	"github.com/99minutos/accounts/internal/api/handler"
	"github.com/99minutos/accounts/internal/api/metrics"
	"github.com/99minutos/accounts/internal/api/middleware"
	"github.com/99minutos/accounts/internal/core/domain"
	"github.com/99minutos/accounts/internal/core/ports"
)

const logoutPath = "/logout"

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	Registration ports.RegistrationService
	Auth         ports.AuthService
	// Health maps a dependency name to its readiness check.
	Health  map[string]handler.Pinger
	Cookies handler.CookieConfig
	Log     zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	// Metrics wraps the request logger so it sees rendered responses.
	// Recover returns panics as errors for the logger to render.
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.Metrics())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echomiddleware.RecoverWithConfig(echomiddleware.RecoverConfig{DisableErrorHandler: true}))
	e.Use(middleware.LoadSession(deps.Auth))
	e.Use(middleware.LogoutInterceptor(deps.Auth, logoutPath, deps.Cookies.Secure))

	// --- Dependencies ---
	registrationHandler := handler.NewRegistrationHandler(deps.Registration)
	securityHandler := handler.NewSecurityHandler(deps.Auth, deps.Cookies)

	// --- Account routes ---
	e.POST("/register", registrationHandler.Register)
	e.POST("/inscription", registrationHandler.Register)

	e.GET("/login", securityHandler.LoginForm)
	e.POST("/login", securityHandler.Login)
	e.Match([]string{http.MethodGet, http.MethodPost}, logoutPath, securityHandler.Logout)

	e.GET("/me", securityHandler.Me, middleware.RequireSession(), middleware.RBAC(domain.BaseRole))

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Health)

	e.GET("/health", healthHandler.Liveness)            // liveness
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness

	// --- Operations ---
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
