package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"traflow/internal/repository"
	approuter "traflow/internal/router"
	"traflow/internal/service"
	"traflow/internal/transport/rest/handler"
	"traflow/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	TurnRouter        *approuter.Router
	AssessmentService *service.AssessmentService
	StatusService     *service.StatusService
	DocumentService   *service.DocumentService
	LinkService       *service.LinkService
	EventRepo         repository.EventRepository
	WSHub             *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	turnHandler := handler.NewTurnHandler(c.TurnRouter)
	assessmentHandler := handler.NewAssessmentHandler(c.AssessmentService, c.StatusService, c.EventRepo)
	documentHandler := handler.NewDocumentHandler(c.DocumentService)
	reviewHandler := handler.NewReviewHandler(c.LinkService, c.StatusService)
	wsHandler := ws.NewHandler(c.WSHub, c.TurnRouter.HandleTurn)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Conversational turns
	v1.HandleFunc("/sessions/{sessionId}/turns", turnHandler.Post).Methods("POST", "OPTIONS")

	// WebSocket route
	v1.HandleFunc("/ws/sessions/{sessionId}", wsHandler.SessionWS).Methods("GET")

	// Assessments
	v1.HandleFunc("/assessments", assessmentHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/assessments", assessmentHandler.List).Methods("GET", "OPTIONS")
	v1.HandleFunc("/assessments/{assessmentId}", assessmentHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/assessments/{assessmentId}/state", assessmentHandler.UpdateState).Methods("POST", "OPTIONS")
	v1.HandleFunc("/assessments/{assessmentId}/risk-areas", assessmentHandler.AddRiskArea).Methods("POST", "OPTIONS")
	v1.HandleFunc("/assessments/{assessmentId}/risk-areas/{areaId}", assessmentHandler.RemoveRiskArea).Methods("DELETE", "OPTIONS")
	v1.HandleFunc("/assessments/{assessmentId}/events", assessmentHandler.Events).Methods("GET", "OPTIONS")
	v1.HandleFunc("/assessments/{assessmentId}/summary", assessmentHandler.Summary).Methods("GET", "OPTIONS")

	// Documents
	v1.HandleFunc("/assessments/{assessmentId}/documents", documentHandler.Upload).Methods("POST", "OPTIONS")
	v1.HandleFunc("/assessments/{assessmentId}/documents", documentHandler.List).Methods("GET", "OPTIONS")
	v1.HandleFunc("/documents/{documentId}/content", documentHandler.Content).Methods("GET", "OPTIONS")

	// Assessor review links
	v1.HandleFunc("/review", reviewHandler.Validate).Methods("GET", "OPTIONS")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
