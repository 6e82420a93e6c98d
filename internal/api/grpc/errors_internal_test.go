package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/service"
)

func TestToStatus(t *testing.T) {
	ctx := context.Background()
	cases := map[error]codes.Code{
		fmt.Errorf("loan x: %w", service.ErrRecordNotFound): codes.NotFound,
		service.ErrBookUnavailable:                           codes.FailedPrecondition,
		service.ErrDuplicateLoan:                             codes.AlreadyExists,
		service.ErrForbidden:                                 codes.PermissionDenied,
		service.ErrAlreadyReviewed:                           codes.AlreadyExists,
		service.ErrConcurrentModification:                    codes.Aborted,
		&service.ValidationError{Fields: map[string]string{"mode": "bad"}}: codes.InvalidArgument,
		context.DeadlineExceeded:                                           codes.DeadlineExceeded,
		errors.New("disk on fire"):                                         codes.Internal,
	}
	for err, want := range cases {
		assert.Equal(t, want, status.Code(toStatus(ctx, err)), err.Error())
	}

	st, _ := status.FromError(toStatus(ctx, errors.New("secret detail")))
	assert.Equal(t, "internal error", st.Message())
	assert.NoError(t, toStatus(ctx, nil))
}

func TestActorMetadata(t *testing.T) {
	ctx := WithActor(context.Background(), domain.Actor{UserID: "u1", Role: domain.RoleAdmin})
	actor, err := GetActorFromContext(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "u1", actor.UserID)
	assert.True(t, actor.IsAdmin())

	_, err = GetActorFromContext(WithoutActor(ctx))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
