package security

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"shelfkeeper-backend/internal/logger"
	"shelfkeeper-backend/internal/repository"
)

var ErrUnknownUser = errors.New("no library account for this identity")

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier checks Firebase ID tokens and maps the verified email to a
// library account, so roles and locks stay owned by this service.
type FirebaseVerifier struct {
	client idTokenVerifier
	users  UserLookup
}

func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string, users UserLookup) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client, users: users}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	logger.ExternalServiceCall("firebase", "VerifyIDToken")
	tok, err := v.client.VerifyIDToken(ctx, idToken)
	logger.ExternalServiceResult("firebase", "VerifyIDToken", err)
	if err != nil {
		if auth.IsIDTokenExpired(err) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	email, _ := tok.Claims["email"].(string)
	if verified, _ := tok.Claims["email_verified"].(bool); email == "" || !verified {
		return nil, ErrInvalidToken
	}

	user, err := v.users.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, err
	}
	return &Identity{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}
