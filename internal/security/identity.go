package security

import (
	"context"

	"shelfkeeper-backend/internal/domain"
)

// Identity is what a verified bearer token says about its holder.
type Identity struct {
	UserID string
	Email  string
	Role   domain.Role
}

// Verifier turns a bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// UserLookup resolves identities to user records.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}
