package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"traflow/config"
	"traflow/internal/cache"
	"traflow/internal/catalog"
	aiconfig "traflow/internal/config"
	"traflow/internal/flow"
	"traflow/internal/repository"
	approuter "traflow/internal/router"
	"traflow/internal/service"
	"traflow/internal/storage"
	"traflow/internal/transport/rest"
	"traflow/internal/transport/ws"
)

func main() {
	log.Println("started")
	ctx := context.Background()

	cfg := config.Load()

	// Load AI config and log model settings
	aiCfg := aiconfig.DefaultAIConfig()
	log.Printf("AI Config:")
	log.Printf("  Classify: %s", aiCfg.Models.Classify)
	log.Printf("  Suggest:  %s", aiCfg.Models.Suggest)
	log.Printf("  Summary:  %s", aiCfg.Models.Summary)
	if aiCfg.IsEnabled() {
		log.Println("  API Key:  configured ✓")
	} else {
		log.Println("  API Key:  NOT SET (keyword routing only)")
	}

	// Question catalog
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatal("Failed to load question catalog:", err)
	}
	log.Printf("Catalog loaded: %d qualifying questions, %d risk areas, %d questions",
		len(cat.QualifyingQuestions), len(cat.RiskAreas), len(cat.Questions))

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	redisAddr := strings.TrimPrefix(cfg.RedisAddr, "redis://")
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// Initialize repositories and storage
	assessmentRepo := repository.NewAssessmentRepo(db)
	documentRepo := repository.NewDocumentRepo(db)
	eventRepo := repository.NewEventRepo(db)
	objectStore := storage.NewMongoObjectStore(db)

	// Initialize caches
	contextCache := cache.NewContextCache(rdb)
	suggestionCache := cache.NewSuggestionCache(rdb)

	// Initialize services
	aiSvc := service.NewAIService(aiCfg)
	assessmentSvc := service.NewAssessmentService(assessmentRepo, eventRepo, cat)
	linkSvc := service.NewLinkService(cfg.LinkSecret, cfg.BaseURL)
	statusSvc := service.NewStatusService(assessmentSvc, cat, linkSvc)
	documentSvc := service.NewDocumentService(documentRepo, assessmentRepo, eventRepo, objectStore, aiSvc, cat)

	// Flow and routing
	controller := flow.NewController(assessmentRepo, eventRepo, cat)
	qualifying := flow.NewQualifyingFlow(assessmentRepo, eventRepo, cat)

	questionHandler := approuter.NewQuestionHandler(controller, qualifying, assessmentRepo, cat, suggestionCache, documentSvc, aiSvc)
	assessmentHandler := approuter.NewAssessmentHandler(assessmentSvc, cat)
	statusHandler := approuter.NewStatusHandler(statusSvc)
	documentHandler := approuter.NewDocumentHandler(documentSvc, cat)

	turnRouter := approuter.NewRouter(contextCache, assessmentRepo, cat, qualifying, aiSvc,
		questionHandler, assessmentHandler, statusHandler, documentHandler)

	// Create router with container
	container := &rest.Container{
		TurnRouter:        turnRouter,
		AssessmentService: assessmentSvc,
		StatusService:     statusSvc,
		DocumentService:   documentSvc,
		LinkService:       linkSvc,
		EventRepo:         eventRepo,
		WSHub:             wsHub,
	}
	httpRouter := rest.NewRouter(container)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: httpRouter,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		log.Println("Endpoints:")
		log.Println("  POST /v1/sessions/{sessionId}/turns")
		log.Println("  POST/GET /v1/assessments")
		log.Println("  POST /v1/assessments/{assessmentId}/documents")
		log.Println("  GET  /v1/review?token=...")
		log.Println("  WS   /v1/ws/sessions/{sessionId}")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
