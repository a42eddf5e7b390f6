package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// OnboardingService is the workflow surface the HTTP layer exposes.
type OnboardingService interface {
	StartOnboarding(ctx context.Context, accountID string, req model.StartCrawlingRequest) (*model.Onboarding, error)
	HandleWebhook(ctx context.Context, workflowID string, event model.WebhookEventPayload) (*model.Onboarding, error)
	GetOrCreateStatus(ctx context.Context, accountID string) (*model.Onboarding, error)
	PatchOnboarding(ctx context.Context, accountID string, req model.PatchOnboardingRequest) (*model.Onboarding, error)
}

// ReadinessChecker reports whether a dependency is ready to serve.
type ReadinessChecker func(ctx context.Context) error

// Server hosts the onboarding HTTP API
type Server struct {
	httpServer *http.Server
	router     chi.Router
	service    OnboardingService
	readiness  map[string]ReadinessChecker
}

// NewServer builds the router and wires all routes
func NewServer(port int, service OnboardingService, metricsEnabled bool, readiness map[string]ReadinessChecker) *Server {
	s := &Server{
		service:   service,
		readiness: readiness,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(middleware.Recoverer)

	r.Route("/api/onboard", func(r chi.Router) {
		r.Post("/{account_id}/start-crawling/", s.handleStartCrawling)
		r.Get("/{account_id}/status/", s.handleStatus)
		r.Patch("/{account_id}/", s.handlePatch)
		r.Post("/{workflow_id}/webhook/", s.handleWebhook)
	})

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	s.router = r
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until the listener closes
func (s *Server) Start() error {
	logger.Log.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
