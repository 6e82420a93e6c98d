package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Email     EmailConfig     `yaml:"email"`
	Log       LogConfig       `yaml:"log"`
	Library   LibraryConfig   `yaml:"library"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

// ServerConfig contains gRPC and HTTP side server settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	HTTPPort int    `yaml:"http_port"`
}

// DatabaseConfig selects the store. Driver "memory" needs no connection settings.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// AuthConfig selects how bearer tokens are verified
type AuthConfig struct {
	Provider           string `yaml:"provider"` // "jwt" or "firebase"
	JWTSecret          string `yaml:"jwt_secret"`
	AccessTokenExpiry  int    `yaml:"access_token_expiry_minutes"`
	RefreshTokenExpiry int    `yaml:"refresh_token_expiry_minutes"`
	FirebaseProjectID  string `yaml:"firebase_project_id"`
	FirebaseCredFile   string `yaml:"firebase_credentials_file"`
}

// EmailConfig contains outgoing mail settings
type EmailConfig struct {
	Provider       string `yaml:"provider"` // "smtp", "sendgrid" or "log"
	SMTPHost       string `yaml:"smtp_host"`
	SMTPPort       int    `yaml:"smtp_port"`
	SMTPUser       string `yaml:"smtp_user"`
	SMTPPassword   string `yaml:"smtp_password"`
	From           string `yaml:"from"`
	FromName       string `yaml:"from_name"`
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// LibraryConfig holds defaults used until an admin saves library settings
type LibraryConfig struct {
	Name                     string `yaml:"name"`
	LoanPeriodDays           int    `yaml:"loan_period_days"`
	RenewPeriodDays          int    `yaml:"renew_period_days"`
	MembershipRequestTTLDays int    `yaml:"membership_request_ttl_days"`
}

// SchedulerConfig contains cron schedule settings (with seconds, UTC)
type SchedulerConfig struct {
	ReconcileAvailability        string `yaml:"reconcile_availability"`
	SendOverdueReminders         string `yaml:"send_overdue_reminders"`
	PurgeStaleMembershipRequests string `yaml:"purge_stale_membership_requests"`
}

// BootstrapConfig creates or promotes an administrator at startup when Email is set
type BootstrapConfig struct {
	AdminName     string `yaml:"admin_name"`
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_DRIVER"); val != "" {
		c.Database.Driver = val
	}
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Auth
	if val := os.Getenv("AUTH_PROVIDER"); val != "" {
		c.Auth.Provider = val
	}
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.Auth.JWTSecret = val
	}
	if val := os.Getenv("FIREBASE_PROJECT_ID"); val != "" {
		c.Auth.FirebaseProjectID = val
	}
	if val := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); val != "" && c.Auth.FirebaseCredFile == "" {
		c.Auth.FirebaseCredFile = val
	}

	// Email
	if val := os.Getenv("EMAIL_PROVIDER"); val != "" {
		c.Email.Provider = val
	}
	if val := os.Getenv("SMTP_HOST"); val != "" {
		c.Email.SMTPHost = val
	}
	if val := os.Getenv("SMTP_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Email.SMTPPort)
	}
	if val := os.Getenv("SMTP_USER"); val != "" {
		c.Email.SMTPUser = val
	}
	if val := os.Getenv("SMTP_PASSWORD"); val != "" {
		c.Email.SMTPPassword = val
	}
	if val := os.Getenv("EMAIL_FROM"); val != "" {
		c.Email.From = val
	}
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Email.SendGridAPIKey = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("HTTP_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.HTTPPort)
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Bootstrap
	if val := os.Getenv("BOOTSTRAP_ADMIN_EMAIL"); val != "" {
		c.Bootstrap.AdminEmail = val
	}
	if val := os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"); val != "" {
		c.Bootstrap.AdminPassword = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.HTTPPort < 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", c.Server.HTTPPort)
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("unknown database driver: %q", c.Database.Driver)
	}

	if c.Auth.Provider == "" {
		c.Auth.Provider = "jwt"
	}
	switch c.Auth.Provider {
	case "jwt":
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT secret is required")
		}
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT secret must be at least 32 characters")
		}
		if c.Auth.AccessTokenExpiry == 0 {
			c.Auth.AccessTokenExpiry = 15
		}
		if c.Auth.RefreshTokenExpiry == 0 {
			c.Auth.RefreshTokenExpiry = 7 * 24 * 60
		}
	case "firebase":
		if c.Auth.FirebaseProjectID == "" {
			return fmt.Errorf("firebase project id is required")
		}
	default:
		return fmt.Errorf("unknown auth provider: %q", c.Auth.Provider)
	}

	if c.Email.Provider == "" {
		c.Email.Provider = "log"
	}
	switch c.Email.Provider {
	case "log":
	case "smtp":
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("SMTP host is required")
		}
		if c.Email.SMTPPort <= 0 || c.Email.SMTPPort > 65535 {
			return fmt.Errorf("invalid SMTP port: %d", c.Email.SMTPPort)
		}
	case "sendgrid":
		if c.Email.SendGridAPIKey == "" {
			return fmt.Errorf("sendgrid api key is required")
		}
	default:
		return fmt.Errorf("unknown email provider: %q", c.Email.Provider)
	}
	if c.Email.Provider != "log" && !strings.Contains(c.Email.From, "@") {
		return fmt.Errorf("email from address is required")
	}

	// Library defaults
	if c.Library.Name == "" {
		c.Library.Name = "Library"
	}
	if c.Library.LoanPeriodDays == 0 {
		c.Library.LoanPeriodDays = 14
	}
	if c.Library.RenewPeriodDays == 0 {
		c.Library.RenewPeriodDays = 14
	}
	if c.Library.LoanPeriodDays < 1 || c.Library.LoanPeriodDays > 365 {
		return fmt.Errorf("loan period must be between 1 and 365 days: %d", c.Library.LoanPeriodDays)
	}
	if c.Library.RenewPeriodDays < 1 || c.Library.RenewPeriodDays > 365 {
		return fmt.Errorf("renew period must be between 1 and 365 days: %d", c.Library.RenewPeriodDays)
	}
	if c.Library.MembershipRequestTTLDays == 0 {
		c.Library.MembershipRequestTTLDays = 30
	}

	// Scheduler defaults
	if c.Scheduler.ReconcileAvailability == "" {
		c.Scheduler.ReconcileAvailability = "0 0 2 * * *" // 2 AM UTC
	}
	if c.Scheduler.SendOverdueReminders == "" {
		c.Scheduler.SendOverdueReminders = "0 0 9 * * *" // 9 AM UTC
	}
	if c.Scheduler.PurgeStaleMembershipRequests == "" {
		c.Scheduler.PurgeStaleMembershipRequests = "0 0 3 * * 0" // Sundays at 3 AM UTC
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the gRPC server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetHTTPAddress returns the health and metrics server address, or "" when disabled.
func (c *Config) GetHTTPAddress() string {
	if c.Server.HTTPPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.Auth.AccessTokenExpiry) * time.Minute
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.Auth.RefreshTokenExpiry) * time.Minute
}

func (c *Config) MembershipRequestTTL() time.Duration {
	return time.Duration(c.Library.MembershipRequestTTLDays) * 24 * time.Hour
}
