package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devYAML = `
server:
  port: 50051
  http_port: 8080
database:
  driver: memory
auth:
  provider: jwt
  jwt_secret: "0123456789abcdef0123456789abcdef"
`

func TestParse(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := Parse([]byte(devYAML))
		require.NoError(t, err)
		assert.Equal(t, "memory", cfg.Database.Driver)
		assert.Equal(t, "log", cfg.Email.Provider)
		assert.Equal(t, 14, cfg.Library.LoanPeriodDays)
		assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL())
		assert.Equal(t, 30*24*time.Hour, cfg.MembershipRequestTTL())
		assert.Equal(t, "0 0 2 * * *", cfg.Scheduler.ReconcileAvailability)
		assert.Equal(t, ":8080", cfg.GetHTTPAddress())
	})

	t.Run("Env override", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "6000")
		t.Setenv("LOG_LEVEL", "debug")
		cfg, err := Parse([]byte(devYAML))
		require.NoError(t, err)
		assert.Equal(t, 6000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("Short secret", func(t *testing.T) {
		_, err := Parse([]byte("server:\n  port: 1\ndatabase:\n  driver: memory\nauth:\n  jwt_secret: short\n"))
		assert.ErrorContains(t, err, "32 characters")
	})

	t.Run("Postgres requires host", func(t *testing.T) {
		_, err := Parse([]byte("server:\n  port: 1\ndatabase:\n  driver: postgres\nauth:\n  provider: firebase\n  firebase_project_id: p\n"))
		assert.ErrorContains(t, err, "database host")
	})

	t.Run("Unknown email provider", func(t *testing.T) {
		_, err := Parse([]byte(devYAML + "email:\n  provider: pigeon\n"))
		assert.ErrorContains(t, err, "unknown email provider")
	})
}

func TestGetSecurityLevel(t *testing.T) {
	assert.Equal(t, SecurityPublic, GetSecurityLevel("/shelfkeeper.api.v1.AuthService/Login"))
	assert.Equal(t, SecurityMember, GetSecurityLevel("/shelfkeeper.api.v1.LoanService/Borrow"))
	assert.Equal(t, SecurityAdmin, GetSecurityLevel("/shelfkeeper.api.v1.LoanService/ForceReturn"))
	assert.Equal(t, SecurityAdmin, GetSecurityLevel("/shelfkeeper.api.v1.Unknown/Method"))
}
