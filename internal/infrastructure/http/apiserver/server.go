// Package apiserver provides the JSON API HTTP server
package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alchemorsel/mealplan/internal/infrastructure/config"
	"github.com/alchemorsel/mealplan/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/mealplan/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/mealplan/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplan/internal/infrastructure/security"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/pkg/healthcheck"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Server is the meal plan JSON API server
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
	router  *chi.Mux
	service inbound.MealPlanService
	tokens  *security.TokenValidator
	health  *healthcheck.HealthCheck
	metrics *monitoring.MetricsCollector
	openAPI *OpenAPIHandler
}

// NewServer creates a new API server. tokens may be nil when auth is
// disabled; metrics may be nil when metrics are disabled.
func NewServer(
	cfg *config.Config,
	log *zap.Logger,
	service inbound.MealPlanService,
	tokens *security.TokenValidator,
	health *healthcheck.HealthCheck,
	metrics *monitoring.MetricsCollector,
) *Server {
	s := &Server{
		config:  cfg,
		logger:  log.Named("api-server"),
		service: service,
		tokens:  tokens,
		health:  health,
		metrics: metrics,
		openAPI: NewOpenAPIHandler(log),
	}

	s.router = s.setupRoutes()
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Security())
	r.Use(s.metrics.HTTPMiddleware)

	r.Get("/health", s.health.Handler())
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/openapi.yaml", s.openAPI.ServeOpenAPISpec)

		h := handlers.NewMealPlanHandlers(s.service, s.config.Server.MaxBodyBytes, s.logger)
		r.Route("/meal-plans", func(r chi.Router) {
			r.Use(middleware.JSONOnly())
			if s.config.Auth.Enabled {
				r.Use(middleware.AuthenticateAPI(s.tokens, s.logger))
			}
			r.Method(http.MethodPost, "/generate",
				otelhttp.NewHandler(http.HandlerFunc(h.GeneratePlan), "POST /api/v1/meal-plans/generate"))
		})
	})

	return r
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info("Starting meal plan API server",
		zap.String("address", s.server.Addr),
		zap.Bool("auth_enabled", s.config.Auth.Enabled),
	)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.server.Shutdown(ctx)
}
