package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/logger"
	"shelfkeeper-backend/internal/repository"
	"shelfkeeper-backend/internal/security"
)

type authService struct {
	users  repository.UserRepository
	tokens security.TokenManager
}

// NewAuthService issues tokens for password logins. With a nil token manager
// (external identity provider) every login is refused.
func NewAuthService(users repository.UserRepository, tokens security.TokenManager) AuthService {
	return &authService{users: users, tokens: tokens}
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthTokens, *domain.User, error) {
	logger.EnterMethod("authService.Login", "email", email)
	if s.tokens == nil {
		return nil, nil, ErrLoginDisabled
	}
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if !errors.Is(err, repository.ErrRecordNotFound) {
			return nil, nil, err
		}
		return nil, nil, ErrInvalidCredentials
	}
	if user.PasswordHash == "" {
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logger.Rejected(ctx, "authService.Login", ErrInvalidCredentials, "user_id", user.ID)
		return nil, nil, ErrInvalidCredentials
	}
	if user.IsLocked {
		return nil, nil, ErrUserLocked
	}

	tokens, err := s.issue(user)
	if err != nil {
		logger.ExitMethodWithError("authService.Login", err)
		return nil, nil, err
	}
	logger.ExitMethod("authService.Login", "user_id", user.ID)
	return tokens, user, nil
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	if s.tokens == nil {
		return nil, ErrLoginDisabled
	}
	claims, err := s.tokens.ValidateToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Type != security.TokenTypeRefresh {
		return nil, security.ErrWrongTokenType
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, security.ErrInvalidToken
		}
		return nil, err
	}
	if user.IsLocked {
		return nil, ErrUserLocked
	}
	return s.issue(user)
}

func (s *authService) issue(user *domain.User) (*AuthTokens, error) {
	access, expires, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthTokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: expires}, nil
}
