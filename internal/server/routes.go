package server

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jobtracker/internal/events"
	"jobtracker/internal/handlers"
	"jobtracker/internal/handlers/api"
	"jobtracker/internal/metrics"
	"jobtracker/internal/middleware"
	"jobtracker/internal/storage"
	"jobtracker/internal/tokens"
)

// Store is the persistence the HTTP layer needs; *db.DB satisfies it.
type Store interface {
	api.ApplicationStore
	api.AnalysisStore
	middleware.UserStore
	handlers.UserUpserter
	handlers.Pinger
}

// Deps are the collaborators wired into the routes.
type Deps struct {
	Store    Store
	Broker   *events.Broker
	Fetcher  api.JobFetcher
	Resumes  storage.ResumeStore // nil disables resume archiving
	Recorder *metrics.Recorder   // nil disables analysis metrics
	Tokens   *tokens.Issuer      // nil disables bearer tokens
	Gatherer prometheus.Gatherer // nil uses the default registry
	Done     <-chan struct{}     // closed on shutdown to end event streams
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(ctx context.Context, deps Deps) error {
	if deps.Broker == nil {
		deps.Broker = events.NewBroker()
	}

	var tokenParser middleware.TokenParser
	var tokenIssuer api.TokenIssuer
	if deps.Tokens != nil {
		tokenParser = deps.Tokens
		tokenIssuer = deps.Tokens
	}
	authMiddleware := middleware.NewAuthMiddleware(deps.Store, tokenParser)

	probeHandler := handlers.NewProbeHandler(deps.Store)
	applicationHandler := api.NewApplicationHandler(deps.Store, deps.Broker)
	eventsHandler := api.NewEventsHandler(deps.Store, deps.Broker, deps.Done)
	analyzeHandler := api.NewAnalyzeHandler(deps.Store, deps.Fetcher, deps.Resumes, deps.Recorder, s.Cfg.MaxUploadBytes)
	userHandler := api.NewUserHandler(tokenIssuer)

	// Probes and metrics
	s.App.Get("/healthz", probeHandler.Liveness)
	s.App.Get("/readyz", probeHandler.Readiness)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Auth routes
	switch {
	case s.Cfg.IsOIDCEnabled():
		authHandler, err := handlers.NewAuthHandler(ctx, s.Cfg, deps.Store)
		if err != nil {
			return err
		}
		s.App.Get("/auth/login", authHandler.Login)
		s.App.Get("/auth/callback", authHandler.Callback)
		s.App.Get("/auth/logout", authHandler.Logout)
	case s.Cfg.IsDev():
		slog.Warn("OIDC not configured; /auth/dev-login signs in without a password")
		s.App.Get("/auth/dev-login", handlers.DevLogin(deps.Store))
	default:
		slog.Warn("OIDC not configured; only bearer tokens are accepted")
	}

	// JSON API - always requires authentication
	apiGroup := s.App.Group("/api", authMiddleware.RequireAuth)

	apiGroup.Get("/me", userHandler.Me)
	apiGroup.Post("/tokens", userHandler.CreateToken)

	apiGroup.Get("/applications", applicationHandler.List)
	apiGroup.Post("/applications", applicationHandler.Create)
	apiGroup.Post("/applications/batch-delete", applicationHandler.BatchDelete)
	apiGroup.Get("/applications/:id", applicationHandler.Get)
	apiGroup.Patch("/applications/:id", applicationHandler.Update)
	apiGroup.Delete("/applications/:id", applicationHandler.Delete)

	apiGroup.Get("/stats", applicationHandler.Stats)
	apiGroup.Get("/export", applicationHandler.Export)
	apiGroup.Post("/import", applicationHandler.Import)
	apiGroup.Get("/events", eventsHandler.Stream)

	apiGroup.Post("/analyze", analyzeHandler.Analyze)
	apiGroup.Get("/analyses", analyzeHandler.ListAnalyses)
	apiGroup.Get("/analyses/:id", analyzeHandler.GetAnalysis)
	apiGroup.Delete("/analyses/:id", analyzeHandler.DeleteAnalysis)

	s.App.Use(func(c fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "not found")
	})

	return nil
}
