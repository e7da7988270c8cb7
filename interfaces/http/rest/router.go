package rest

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"trackline-backend/application/services"
	"trackline-backend/interfaces/http/rest/handlers"
	"trackline-backend/interfaces/http/rest/middleware"
	"trackline-backend/pkg/auth"
)

// Router creates and configures the HTTP router
type Router struct {
	service    *services.ProjectService
	validator  *auth.JWTValidator
	logger     *zap.Logger
	enableCORS bool
}

// NewRouter creates a new router instance
func NewRouter(service *services.ProjectService, validator *auth.JWTValidator, logger *zap.Logger, enableCORS bool) *Router {
	return &Router{
		service:    service,
		validator:  validator,
		logger:     logger,
		enableCORS: enableCORS,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	// API routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator))

		analysisHandler := handlers.NewAnalysisHandler(rt.service, rt.logger)
		projectHandler := handlers.NewProjectHandler(rt.service, rt.logger)

		r.Post("/meetings/{meetingID}/projects/analyze", analysisHandler.AnalyzeMeeting)

		r.Route("/consolidation", func(r chi.Router) {
			r.Post("/preview", analysisHandler.PreviewConsolidation)
			r.Post("/execute", analysisHandler.ExecuteConsolidation)
		})

		r.Get("/projects", projectHandler.ListProjects)
		r.Get("/tasks", projectHandler.ListTasks)
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
