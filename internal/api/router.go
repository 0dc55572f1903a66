package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/api/handlers"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/api/response"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint (no versioning)
	s.router.Get("/health", s.healthCheck)

	if s.gatherer != nil {
		s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		upgradeHandler := handlers.NewUpgradeHandler(s.service, s.config.DefaultFormat, s.logger)
		r.Route("/upgrades", func(r chi.Router) {
			r.Post("/validate", upgradeHandler.Validate)
			r.Post("/suggest", upgradeHandler.Suggest)
			r.Get("/formats", upgradeHandler.GetFormats)
			r.Get("/tables", upgradeHandler.GetTables)
		})
	})

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, errors.New("route not found"))
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, errors.New("method not allowed"))
	})
}

// healthCheck returns the health status of the API server.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]any{
		"status":        "healthy",
		"version":       s.config.Version,
		"llm_available": s.service.HasCompleter(),
	})
}
