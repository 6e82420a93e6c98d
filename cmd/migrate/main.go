package main

import (
	"flag"
	"log"

	"shelfkeeper-backend/internal/app"
	"shelfkeeper-backend/internal/config"
	"shelfkeeper-backend/internal/events"
	"shelfkeeper-backend/internal/logger"
	"shelfkeeper-backend/internal/repository/postgres"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	direction := flag.String("direction", "up", "Migration direction: 'up' or 'down'")
	steps := flag.Int("steps", 1, "Number of migrations to roll back with -direction=down")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	if cfg.Database.Driver == "memory" {
		log.Fatalf("Migrations need database.driver=postgres")
	}
	store, err := app.OpenStore(cfg, events.NewHub(1))
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	switch *direction {
	case "up":
		err = postgres.MigrateUp(store.DB)
	case "down":
		err = postgres.MigrateDown(store.DB, *steps)
	default:
		log.Fatalf("Unknown direction %q", *direction)
	}
	if err != nil {
		logger.Error("Migration failed", "direction", *direction, "error", err)
		log.Fatalf("Migration failed: %v", err)
	}
	logger.Info("Migrations applied", "direction", *direction)
}
