package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"shelfkeeper-backend/internal/domain"
)

const (
	userIDKey   = "user-id"
	userRoleKey = "user-role"
)

// GetActorFromContext reads the caller the auth interceptor placed in the
// incoming metadata as "user-id" and "user-role".
func GetActorFromContext(ctx context.Context) (domain.Actor, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return domain.Actor{}, status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}

	userIDs := md.Get(userIDKey)
	if len(userIDs) == 0 || userIDs[0] == "" {
		return domain.Actor{}, status.Errorf(codes.Unauthenticated, "user_id is not provided in metadata")
	}

	role := domain.RolePatron
	if roles := md.Get(userRoleKey); len(roles) > 0 {
		role = domain.Role(roles[0])
	}
	if !role.Valid() {
		return domain.Actor{}, status.Errorf(codes.InvalidArgument, "invalid user role: %q", role)
	}
	return domain.Actor{UserID: userIDs[0], Role: role}, nil
}

// WithActor returns ctx with the actor set in its incoming metadata,
// overwriting anything the client sent.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.New(nil)
	} else {
		md = md.Copy()
	}
	md.Set(userIDKey, actor.UserID)
	md.Set(userRoleKey, string(actor.Role))
	return metadata.NewIncomingContext(ctx, md)
}

// WithoutActor strips identity headers a client may have sent on a public call.
func WithoutActor(ctx context.Context) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}
	md = md.Copy()
	md.Delete(userIDKey)
	md.Delete(userRoleKey)
	return metadata.NewIncomingContext(ctx, md)
}
