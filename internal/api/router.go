package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/724parcabul/storefront/internal/api/handler"
	"github.com/724parcabul/storefront/internal/api/middleware"
	"github.com/724parcabul/storefront/internal/core/domain"
	"github.com/724parcabul/storefront/internal/core/ports"
	"github.com/724parcabul/storefront/internal/core/store"

	_ "github.com/724parcabul/storefront/docs"
)

// Dependencies is everything the HTTP layer needs from the core.
type Dependencies struct {
	Registry     *store.Registry
	AuthService  ports.AuthService
	OrderService ports.OrderService
	Checks       map[string]handler.DependencyCheck
	Logger       zerolog.Logger
	// Metrics receives the HTTP collectors and backs /metrics. Nil means the
	// default Prometheus registry, which also holds the custom metrics.
	Metrics *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowHeaders: []string{
			echo.HeaderContentType,
			echo.HeaderAuthorization,
			middleware.HeaderSessionID,
			handler.HeaderIdempotencyKey,
		},
		ExposeHeaders: []string{middleware.HeaderSessionID},
	}))
	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if deps.Metrics != nil {
		registerer, gatherer = deps.Metrics, deps.Metrics
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "storefront",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Handlers ---
	sessionHandler := handler.NewSessionHandler()
	cartHandler := handler.NewCartHandler()
	orderHandler := handler.NewOrderHandler(deps.OrderService)
	adminHandler := handler.NewAdminHandler(deps.OrderService)
	authHandler := handler.NewAuthHandler(deps.AuthService)

	withSession := []echo.MiddlewareFunc{
		middleware.Session(deps.Registry),
		middleware.Authenticate(deps.AuthService, false),
	}
	optionalAuth := middleware.Authenticate(deps.AuthService, false)
	requiredAuth := middleware.Authenticate(deps.AuthService, true)

	v1 := e.Group("/v1")

	// --- Session store ---
	v1.GET("/session", sessionHandler.Get, withSession...)
	v1.POST("/session/theme", sessionHandler.ToggleTheme, withSession...)
	v1.PUT("/session/search", sessionHandler.SetSearch, withSession...)

	v1.GET("/cart", cartHandler.Get, withSession...)
	v1.DELETE("/cart", cartHandler.Clear, withSession...)
	v1.POST("/cart/items", cartHandler.Add, withSession...)
	v1.PATCH("/cart/items/:id", cartHandler.Update, withSession...)
	v1.DELETE("/cart/items/:id", cartHandler.Remove, withSession...)

	// --- Checkout & orders ---
	v1.POST("/checkout", orderHandler.Checkout, withSession...)
	v1.GET("/orders", orderHandler.List, requiredAuth)
	v1.GET("/orders/:id", orderHandler.Get, optionalAuth)
	v1.POST("/orders/:id/return", orderHandler.RequestReturn, optionalAuth)

	// --- Auth ---
	v1.POST("/auth/register", authHandler.Register)
	v1.POST("/auth/login", authHandler.Login, middleware.Session(deps.Registry))
	v1.POST("/auth/logout", authHandler.Logout, middleware.Session(deps.Registry))

	// --- Admin ---
	admin := v1.Group("/admin", requiredAuth, middleware.RBAC(domain.RoleAdmin))
	admin.GET("/orders", adminHandler.ListOrders)
	admin.PATCH("/orders/:id/status", adminHandler.UpdateStatus)
	admin.GET("/stats", adminHandler.Stats)

	// --- Ops (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Checks)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("session_id", middleware.SessionID(c)).
				Msg("request")
			return nil
		},
	})
}
