package interceptor

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	api "shelfkeeper-backend/internal/api/grpc"
	"shelfkeeper-backend/internal/config"
	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/logger"
	"shelfkeeper-backend/internal/repository"
	"shelfkeeper-backend/internal/security"
)

type AuthInterceptor struct {
	verifier security.Verifier
	users    security.UserLookup
}

func NewAuthInterceptor(verifier security.Verifier, users security.UserLookup) *AuthInterceptor {
	return &AuthInterceptor{verifier: verifier, users: users}
}

// Unary returns a server interceptor function to authenticate and authorize unary RPCs
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		newCtx, err := i.authorize(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(newCtx, req)
	}
}

// Stream is the streaming counterpart of Unary.
func (i *AuthInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		newCtx, err := i.authorize(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &authedStream{ServerStream: ss, ctx: newCtx})
	}
}

type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authedStream) Context() context.Context {
	return s.ctx
}

// authorize resolves the caller from the bearer token and the user record.
// The role comes from the record so role changes and locks apply immediately.
func (i *AuthInterceptor) authorize(ctx context.Context, method string) (context.Context, error) {
	level := config.GetSecurityLevel(method)

	// Public endpoint - skip auth
	if level == config.SecurityPublic {
		return api.WithoutActor(ctx), nil
	}

	token, err := i.extractToken(ctx)
	if err != nil {
		return nil, err
	}

	identity, err := i.verifier.Verify(ctx, token)
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}

	user, err := i.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, status.Error(codes.Unauthenticated, "account no longer exists")
		}
		logger.ErrorContext(ctx, "failed to load caller", "user_id", identity.UserID, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	if user.IsLocked {
		return nil, status.Error(codes.PermissionDenied, "account is locked")
	}

	actor := domain.Actor{UserID: user.ID, Role: user.Role}
	if level == config.SecurityAdmin && !actor.IsAdmin() {
		logger.WarnContext(ctx, "admin endpoint denied", "method", method, "user_id", user.ID)
		return nil, status.Error(codes.PermissionDenied, "admin role required")
	}

	ctx = logger.WithContext(ctx, "user_id", user.ID, "method", method)
	return api.WithActor(ctx, actor), nil
}

func (i *AuthInterceptor) extractToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "metadata is not provided")
	}

	authHeader := md["authorization"]
	if len(authHeader) == 0 {
		return "", status.Error(codes.Unauthenticated, "authorization token is not provided")
	}

	token := authHeader[0]
	// Remove Bearer prefix if present
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}

	return token, nil
}
