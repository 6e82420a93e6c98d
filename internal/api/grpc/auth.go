package grpc

import (
	"context"

	"google.golang.org/grpc"

	"shelfkeeper-backend/internal/service"
)

type AuthHandler struct {
	authSvc service.AuthService
}

func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

const authServiceName = apiPackage + ".AuthService"

var authServiceDesc = serviceDesc(authServiceName, []grpc.MethodDesc{
	unaryMethod(authServiceName, "Login", (*AuthHandler).Login),
	unaryMethod(authServiceName, "RefreshToken", (*AuthHandler).RefreshToken),
})

func (h *AuthHandler) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	tokens, user, err := h.authSvc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &LoginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		User:         user,
	}, nil
}

func (h *AuthHandler) RefreshToken(ctx context.Context, req *RefreshTokenRequest) (*LoginResponse, error) {
	tokens, err := h.authSvc.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &LoginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
	}, nil
}
