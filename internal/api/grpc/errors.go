package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"shelfkeeper-backend/internal/logger"
	"shelfkeeper-backend/internal/security"
	"shelfkeeper-backend/internal/service"
)

// toStatus maps service errors onto gRPC status codes. Faults are logged and
// returned without detail.
func toStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codes.Internal
	switch {
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, service.ErrRecordNotFound):
		code = codes.NotFound
	case errors.Is(err, service.ErrFailedValidation):
		code = codes.InvalidArgument
	case errors.Is(err, service.ErrForbidden):
		code = codes.PermissionDenied
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, security.ErrExpiredToken),
		errors.Is(err, security.ErrWrongTokenType):
		code = codes.Unauthenticated
	case errors.Is(err, service.ErrDuplicateRecord),
		errors.Is(err, service.ErrDuplicateLoan),
		errors.Is(err, service.ErrAlreadyRequested),
		errors.Is(err, service.ErrAlreadyReviewed):
		code = codes.AlreadyExists
	case errors.Is(err, service.ErrConcurrentModification):
		code = codes.Aborted
	case errors.Is(err, service.ErrLoginDisabled):
		code = codes.Unimplemented
	case service.IsRejection(err):
		code = codes.FailedPrecondition
	}

	if code == codes.Internal {
		logger.ErrorContext(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}
