package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"traflow/config"
	"traflow/internal/catalog"
	"traflow/internal/model"
	"traflow/internal/repository"
)

// Validates the question catalog and seeds a demo assessment for local work.
func main() {
	cfg := config.Load()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Catalog validation failed: %v", err)
	}
	fmt.Printf("Catalog OK: %d qualifying questions, %d risk areas, %d questions\n",
		len(cat.QualifyingQuestions), len(cat.RiskAreas), len(cat.Questions))
	for _, ra := range cat.RiskAreas {
		fmt.Printf("  %s: %d questions\n", ra.Name, len(cat.AreaQuestions(ra.ID)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDB)
	assessments := repository.NewAssessmentRepo(db)

	now := time.Now().UTC()
	demo := &model.Assessment{
		ID:                fmt.Sprintf("TRA-%d-DEMO01", now.Year()),
		SessionID:         "demo-session",
		Title:             "Customer Portal Replatform",
		Description:       "Migration of the customer portal to a managed cloud platform.",
		BusinessUnit:      "Digital Channels",
		State:             model.StateDraft,
		ActiveRiskAreas:   []string{},
		AnswersByRiskArea: map[string]model.AnswerSet{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := assessments.Create(ctx, demo); err != nil {
		log.Fatalf("Failed to seed demo assessment: %v", err)
	}
	fmt.Printf("Seeded demo assessment %s\n", demo.ID)
}
