package main

import (
	"context"
	"log"
	"time"

	"taskpilot/internal/api"
	"taskpilot/internal/config"
	"taskpilot/internal/database"
	"taskpilot/internal/services"
	"taskpilot/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize MongoDB client (optional - for state snapshots)
	var mongoClient *database.MongoDBClient
	if cfg.MongoDB.URI != "" || cfg.MongoDB.Host != "" {
		log.Printf("Initializing MongoDB connection (Host: %s, Port: %s, Database: %s)",
			cfg.MongoDB.Host, cfg.MongoDB.Port, cfg.MongoDB.Database)
		mongoClient, err = database.NewMongoDBClient(cfg.MongoDB)
		if err != nil {
			log.Printf("WARNING: Failed to connect to MongoDB (snapshots disabled): %v", err)
			mongoClient = nil
		} else {
			log.Printf("Successfully connected to MongoDB for state snapshots")
			defer mongoClient.Close()
		}
	} else {
		log.Printf("MongoDB not configured (Host and URI are empty), state snapshots disabled")
	}

	// Initialize the in-memory store, restoring the last snapshot if one exists
	taskStore := store.NewTaskStore()
	if mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		snapshot, err := mongoClient.LoadSnapshot(ctx)
		cancel()
		if err != nil {
			log.Printf("WARNING: Failed to load state snapshot: %v", err)
		} else if snapshot != nil {
			taskStore.ReplaceAll(snapshot.Tasks)
			taskStore.SetProfile(snapshot.Profile)
			log.Printf("Restored %d tasks from snapshot (updated %s)", len(snapshot.Tasks), snapshot.UpdatedAt.Format(time.RFC3339))
		}

		// Fire-and-forget snapshot on every mutation; the in-memory state
		// stays authoritative even when a write fails
		taskStore.SetPersistFunc(func(snap store.Snapshot) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := mongoClient.SaveSnapshot(ctx, snap.Tasks, snap.Profile); err != nil {
				log.Printf("WARNING: Failed to save state snapshot: %v", err)
			}
		})
	}

	// Initialize services
	aiService := services.NewAIService(cfg.AI)
	verificationService := services.NewVerificationService(taskStore, aiService)
	documentService := services.NewDocumentService(taskStore, aiService)

	// Mastery tracking, restored from and persisted to the same MongoDB
	memoryService := services.NewMemoryService(aiService)
	if mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		memoryDoc, err := mongoClient.LoadMemory(ctx)
		cancel()
		if err != nil {
			log.Printf("WARNING: Failed to load mastery memory: %v", err)
		} else if memoryDoc != nil {
			memoryService.Restore(memoryDoc.History, memoryDoc.Skills)
			log.Printf("Restored mastery memory with %d quiz records", len(memoryDoc.History))
		}

		memoryService.SetPersistFunc(func(snap services.MemorySnapshot) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := mongoClient.SaveMemory(ctx, snap.History, snap.Skills); err != nil {
				log.Printf("WARNING: Failed to save mastery memory: %v", err)
			}
		})
	}
	verificationService.SetMasteryRecorder(memoryService)

	// Initialize email, PDF and reminder services
	if cfg.Email.APIKey != "" {
		emailService := services.NewEmailService(cfg.Email)
		pdfService := services.NewPDFService()
		reminderService := services.NewReminderService(taskStore, emailService, documentService, pdfService)

		if err := reminderService.Start(); err != nil {
			log.Printf("WARNING: Failed to start reminder scheduler: %v", err)
		} else {
			defer reminderService.Stop()
		}
	} else {
		log.Printf("SendGrid API key not configured, email reminders disabled")
	}

	// Initialize handlers
	handlers := api.NewHandlers(taskStore, aiService, verificationService, documentService, memoryService)

	// Setup routes
	router := api.SetupRoutes(handlers)

	// Start server
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
