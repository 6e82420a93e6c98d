package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"shelfkeeper-backend/internal/app"
	"shelfkeeper-backend/internal/config"
	"shelfkeeper-backend/internal/events"
	"shelfkeeper-backend/internal/jobs"
	"shelfkeeper-backend/internal/logger"
	"shelfkeeper-backend/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'send-overdue-reminders', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Shelfkeeper Cronjob Runner...", "log_level", cfg.Log.Level)
	if cfg.Database.Driver == "memory" {
		logger.Warn("Cronjob runner is using an in-memory store; jobs will see no server data")
	}

	// Nobody watches changes from this process
	hub := events.NewHub(1)
	defer hub.Close()

	store, err := app.OpenStore(cfg, hub)
	if err != nil {
		logger.Error("Failed to open store", "error", err)
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	// Initialize Services
	svcs := app.NewServices(cfg, store, nil)
	jobRunner := jobs.NewJobRunner(&jobs.Services{
		Email:        svcs.Email,
		Loan:         svcs.Loan,
		Availability: svcs.Availability,
		Membership:   svcs.Membership,
		Settings:     svcs.Settings,
	}, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := runJobOnce(jobRunner, *runOnce); err != nil {
			logger.Error("Job failed", "job", *runOnce, "error", err)
			store.Close()
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) error {
	switch jobName {
	case "reconcile-availability":
		return jobRunner.ReconcileAvailability()
	case "send-overdue-reminders":
		return jobRunner.SendOverdueReminders()
	case "purge-membership-requests":
		return jobRunner.PurgeStaleMembershipRequests()
	case "all":
		jobRunner.RunAll()
		return nil
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - reconcile-availability\n")
		fmt.Printf("  - send-overdue-reminders\n")
		fmt.Printf("  - purge-membership-requests\n")
		fmt.Printf("  - all\n")
		return fmt.Errorf("unknown job %q", jobName)
	}
}
