package main

import (
	"log"
	"time"

	"stitch/internal/pkg/logger"
	"stitch/internal/platform/config"
	"stitch/internal/platform/database"
	"stitch/internal/platform/repositories"
	"stitch/internal/workers"
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

	retention := workers.NewRetention(
		repositories.NewUsageRepository(db),
		repositories.NewDeliveryRepository(db),
		cfg.Retention.Horizon,
	)

	interval := cfg.Retention.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}

	log.Printf("Retention worker starting, sweep every %v", interval)

	retention.Sweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		retention.Sweep()
	}
}
