package main

import (
	"fmt"
	"log"
	"net/http"

	"stitch/internal/api"
	"stitch/internal/api/handlers"
	"stitch/internal/api/middleware"
	"stitch/internal/engine/admission"
	"stitch/internal/engine/delivery"
	"stitch/internal/pkg/logger"
	"stitch/internal/platform/config"
	"stitch/internal/platform/database"
	"stitch/internal/platform/repositories"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Repositories
	webhookRepo := repositories.NewWebhookRepository(db)
	deliveryRepo := repositories.NewDeliveryRepository(db)
	apiKeyRepo := repositories.NewAPIKeyRepository(db)
	usageRepo := repositories.NewUsageRepository(db)

	// Engines
	engine := delivery.NewEngine(webhookRepo, deliveryRepo, cfg.Webhooks)
	gateway := admission.NewGateway(apiKeyRepo, usageRepo, cfg.RateLimit.RetryAfter)

	// Handlers
	healthHandler := handlers.NewHealthHandler(db)
	admissionHandler := handlers.NewAdmissionHandler(gateway)
	apiKeyHandler := handlers.NewAPIKeyHandler(apiKeyRepo, cfg.RateLimit.DefaultPerHour)
	webhookHandler := handlers.NewWebhookHandler(webhookRepo, deliveryRepo)
	eventHandler := handlers.NewEventHandler(engine)

	// Middleware
	apiKeyMiddleware := middleware.NewAPIKeyMiddleware(gateway)

	router := api.NewRouter(&api.Dependencies{
		HealthHandler:    healthHandler,
		AdmissionHandler: admissionHandler,
		APIKeyHandler:    apiKeyHandler,
		WebhookHandler:   webhookHandler,
		EventHandler:     eventHandler,
		APIKeyMiddleware: apiKeyMiddleware,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Printf("Server starting on %s", addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
