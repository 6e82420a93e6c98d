package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/security"
	"shelfkeeper-backend/internal/service"
)

func TestAuthService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, f.store.Users().Create(ctx, &domain.User{
		ID: "p1", Name: "Pat", Email: "pat@example.com", PasswordHash: string(hash), Role: domain.RolePatron,
	}))
	require.NoError(t, f.store.Users().Create(ctx, &domain.User{
		ID: "p2", Name: "Lock", Email: "lock@example.com", PasswordHash: string(hash), Role: domain.RolePatron, IsLocked: true,
	}))

	tokens := security.NewTokenManager("test-secret", 15*time.Minute, time.Hour)
	svc := service.NewAuthService(f.store.Users(), tokens)

	t.Run("Success", func(t *testing.T) {
		issued, user, err := svc.Login(ctx, "PAT@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, "p1", user.ID)
		assert.NotEmpty(t, issued.AccessToken)

		identity, err := tokens.Verify(ctx, issued.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "p1", identity.UserID)
		assert.Equal(t, domain.RolePatron, identity.Role)

		refreshed, err := svc.RefreshToken(ctx, issued.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, refreshed.AccessToken)

		_, err = svc.RefreshToken(ctx, issued.AccessToken)
		assert.ErrorIs(t, err, security.ErrWrongTokenType)
	})

	t.Run("Wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "pat@example.com", "nope")
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
		_, _, err = svc.Login(ctx, "ghost@example.com", "password123")
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("Locked", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "lock@example.com", "password123")
		assert.ErrorIs(t, err, service.ErrUserLocked)
	})

	t.Run("Disabled", func(t *testing.T) {
		_, _, err := service.NewAuthService(f.store.Users(), nil).Login(ctx, "pat@example.com", "password123")
		assert.ErrorIs(t, err, service.ErrLoginDisabled)
	})
}
