// Package app builds the store, senders and services shared by the binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"shelfkeeper-backend/internal/config"
	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/email"
	"shelfkeeper-backend/internal/events"
	"shelfkeeper-backend/internal/logger"
	"shelfkeeper-backend/internal/repository"
	"shelfkeeper-backend/internal/repository/memory"
	"shelfkeeper-backend/internal/repository/postgres"
	"shelfkeeper-backend/internal/security"
	"shelfkeeper-backend/internal/service"
)

// Services is the full set of domain services.
type Services struct {
	Loan         service.LoanService
	Availability service.AvailabilityService
	Catalog      service.CatalogService
	Review       service.ReviewService
	Membership   service.MembershipService
	Settings     service.SettingsService
	Email        service.EmailService
	Auth         service.AuthService
}

// Store is an opened store plus what the caller must release.
type Store struct {
	repository.Store
	DB *sql.DB
}

func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// OpenStore opens the configured store. Memory stores publish to hub directly;
// postgres changes reach hub through a ChangeListener the caller starts.
func OpenStore(cfg *config.Config, hub *events.Hub) (*Store, error) {
	if cfg.Database.Driver == "memory" {
		logger.Info("Using in-memory store")
		return &Store{Store: memory.NewStore(hub)}, nil
	}

	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Database connection established", "host", cfg.Database.Host, "database", cfg.Database.Database)
	return &Store{Store: postgres.NewStore(db), DB: db}, nil
}

// NewEmailSender picks the outgoing mail transport.
func NewEmailSender(cfg *config.Config) email.Sender {
	switch cfg.Email.Provider {
	case "smtp":
		logger.Info("SMTP configuration", "host", cfg.Email.SMTPHost, "port", cfg.Email.SMTPPort)
		return email.NewSMTPSender(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPassword, cfg.Email.From)
	case "sendgrid":
		logger.Info("Using SendGrid for email", "from", cfg.Email.From)
		return email.NewSendGridSender(cfg.Email.SendGridAPIKey, cfg.Email.From, cfg.Email.FromName)
	default:
		logger.Info("Email delivery disabled, messages are logged")
		return email.LogSender{}
	}
}

// LibraryDefaults are the settings in force until an admin saves their own.
func LibraryDefaults(cfg *config.Config) domain.Settings {
	return domain.Settings{
		AppName:         cfg.Library.Name,
		LoanPeriodDays:  cfg.Library.LoanPeriodDays,
		RenewPeriodDays: cfg.Library.RenewPeriodDays,
	}
}

// NewServices wires every service over store. tokens may be nil when
// another provider issues credentials.
func NewServices(cfg *config.Config, store repository.Store, tokens security.TokenManager) *Services {
	settings := service.NewSettingsService(store, LibraryDefaults(cfg))
	emails := service.NewEmailService(NewEmailSender(cfg))
	return &Services{
		Loan:         service.NewLoanService(store, settings),
		Availability: service.NewAvailabilityService(store),
		Catalog:      service.NewCatalogService(store),
		Review:       service.NewReviewService(store),
		Membership:   service.NewMembershipService(store, emails, settings),
		Settings:     settings,
		Email:        emails,
		Auth:         service.NewAuthService(store.Users(), tokens),
	}
}

// BootstrapAdmin creates or promotes the configured administrator.
func BootstrapAdmin(ctx context.Context, cfg *config.Config, svcs *Services) error {
	b := cfg.Bootstrap
	if b.AdminEmail == "" {
		return nil
	}
	user, err := svcs.Membership.EnsureAdmin(ctx, b.AdminName, b.AdminEmail, b.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	logger.Info("Administrator ready", "user_id", user.ID, "email", user.Email)
	return nil
}
