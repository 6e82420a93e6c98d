package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	api "shelfkeeper-backend/internal/api/grpc"
	"shelfkeeper-backend/internal/api/grpc/interceptor"
	httpapi "shelfkeeper-backend/internal/api/http"
	"shelfkeeper-backend/internal/app"
	"shelfkeeper-backend/internal/config"
	"shelfkeeper-backend/internal/events"
	"shelfkeeper-backend/internal/logger"
	"shelfkeeper-backend/internal/repository/postgres"
	"shelfkeeper-backend/internal/security"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Shelfkeeper Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "http_address", cfg.GetHTTPAddress())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Change events fan out to WatchChanges subscribers
	hub := events.NewHub(64)
	defer hub.Close()

	// Initialize store
	store, err := app.OpenStore(cfg, hub)
	if err != nil {
		logger.Error("Failed to open store", "error", err)
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	if store.DB != nil {
		if err := postgres.MigrateUp(store.DB); err != nil {
			logger.Error("Failed to apply migrations", "error", err)
			log.Fatalf("Failed to apply migrations: %v", err)
		}
		listener := postgres.NewChangeListener(cfg.GetDatabaseConnectionString(), hub)
		go func() {
			if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Change listener stopped", "error", err)
			}
		}()
	}

	// Initialize Security
	var tokens security.TokenManager
	var verifier security.Verifier
	switch cfg.Auth.Provider {
	case "firebase":
		fv, err := security.NewFirebaseVerifier(ctx, cfg.Auth.FirebaseProjectID, cfg.Auth.FirebaseCredFile, store.Users())
		if err != nil {
			logger.Error("Failed to initialize Firebase auth", "error", err)
			log.Fatalf("Failed to initialize Firebase auth: %v", err)
		}
		verifier = fv
		logger.Info("Using Firebase ID tokens", "project_id", cfg.Auth.FirebaseProjectID)
	default:
		tokens = security.NewTokenManager(cfg.Auth.JWTSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
		verifier = tokens
	}
	authInterceptor := interceptor.NewAuthInterceptor(verifier, store.Users())

	// Initialize Services
	svcs := app.NewServices(cfg, store, tokens)
	if err := app.BootstrapAdmin(ctx, cfg, svcs); err != nil {
		logger.Error("Failed to bootstrap administrator", "error", err)
		log.Fatalf("Failed to bootstrap administrator: %v", err)
	}

	// Set up gRPC server
	lis, err := net.Listen("tcp", cfg.GetServerAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetServerAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	s := grpc.NewServer(
		grpc.UnaryInterceptor(authInterceptor.Unary()),
		grpc.StreamInterceptor(authInterceptor.Stream()),
	)

	api.Register(s, api.Handlers{
		Loan:       api.NewLoanHandler(svcs.Loan, svcs.Availability),
		Catalog:    api.NewCatalogHandler(svcs.Catalog),
		Review:     api.NewReviewHandler(svcs.Review),
		Membership: api.NewMembershipHandler(svcs.Membership),
		Settings:   api.NewSettingsHandler(svcs.Settings),
		Auth:       api.NewAuthHandler(svcs.Auth),
		Change:     api.NewChangeHandler(hub),
	})

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(s, healthSrv)

	// Register reflection service for grpcurl
	reflection.Register(s)

	// Health, readiness and metrics over plain HTTP
	var httpSrv *http.Server
	if addr := cfg.GetHTTPAddress(); addr != "" {
		httpSrv = &http.Server{Addr: addr, Handler: httpapi.NewRouter(store), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("HTTP server listening", "address", addr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
		healthSrv.Shutdown()
		if httpSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}
		hub.Close()
		s.GracefulStop()
	}()

	logger.Info("gRPC server listening", "address", cfg.GetServerAddress())
	if err := s.Serve(lis); err != nil {
		logger.Error("Failed to serve gRPC", "error", err)
		log.Fatalf("Failed to serve: %v", err)
	}
	logger.Info("Server stopped")
}
