package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/service"
)

func TestReviewService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := service.NewReviewService(f.store)
	catalog := service.NewCatalogService(f.store)
	u1 := f.addUser(t, "u1", domain.RolePatron, "")
	u2 := f.addUser(t, "u2", domain.RolePatron, "")
	f.addBook(t, "b1", 1, "")
	f.addBook(t, "b2", 1, "")

	var first *domain.Review

	t.Run("AddReview snapshots names", func(t *testing.T) {
		var err error
		first, err = svc.AddReview(ctx, u1, service.ReviewInput{BookID: "b1", Text: "  Gripping  ", Rating: 5})
		require.NoError(t, err)
		assert.Equal(t, "User u1", first.UserName)
		assert.Equal(t, "Book b1", first.BookTitle)
		assert.Equal(t, "Gripping", first.Text)
	})

	t.Run("AddReview once per book", func(t *testing.T) {
		_, err := svc.AddReview(ctx, u1, service.ReviewInput{BookID: "b1", Text: "Again", Rating: 1})
		assert.ErrorIs(t, err, service.ErrAlreadyReviewed)
	})

	t.Run("AddReview validation", func(t *testing.T) {
		for _, in := range []service.ReviewInput{
			{BookID: "b2", Text: "x", Rating: 0},
			{BookID: "b2", Text: "x", Rating: 6},
			{BookID: "b2", Text: "   ", Rating: 3},
		} {
			_, err := svc.AddReview(ctx, u2, in)
			assert.ErrorIs(t, err, service.ErrFailedValidation)
		}
	})

	t.Run("AddReview unknown book", func(t *testing.T) {
		_, err := svc.AddReview(ctx, u2, service.ReviewInput{BookID: "nope", Text: "x", Rating: 3})
		assert.ErrorIs(t, err, service.ErrRecordNotFound)
	})

	t.Run("AddReview anonymous", func(t *testing.T) {
		_, err := svc.AddReview(ctx, domain.Actor{}, service.ReviewInput{BookID: "b1", Text: "x", Rating: 3})
		assert.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("UpdateReview owner only", func(t *testing.T) {
		_, err := svc.UpdateReview(ctx, u2, first.ID, "Hijacked", 1)
		assert.ErrorIs(t, err, service.ErrForbidden)
		_, err = svc.UpdateReview(ctx, f.admin, first.ID, "Moderated", 1)
		assert.ErrorIs(t, err, service.ErrForbidden)

		updated, err := svc.UpdateReview(ctx, u1, first.ID, "Slower on reread", 4)
		require.NoError(t, err)
		assert.Equal(t, 4, updated.Rating)
		assert.Equal(t, first.CreatedOn, updated.CreatedOn)

		_, err = svc.UpdateReview(ctx, u1, first.ID, "Slower on reread", 9)
		assert.ErrorIs(t, err, service.ErrFailedValidation)
	})

	t.Run("Ratings on catalog reads", func(t *testing.T) {
		_, err := svc.AddReview(ctx, u2, service.ReviewInput{BookID: "b1", Text: "Fine", Rating: 3})
		require.NoError(t, err)
		_, err = svc.AddReview(ctx, f.admin, service.ReviewInput{BookID: "b1", Text: "Fine", Rating: 3})
		require.NoError(t, err)

		book, err := catalog.GetBook(ctx, "b1")
		require.NoError(t, err)
		require.NotNil(t, book.Rating)
		assert.Equal(t, 3.3, *book.Rating)
		assert.Equal(t, 3, book.ReviewCount)

		books, _, err := catalog.ListBooks(ctx, domain.BookFilter{})
		require.NoError(t, err)
		require.Len(t, books, 2)
		for _, b := range books {
			if b.ID == "b2" {
				assert.Nil(t, b.Rating)
				assert.Zero(t, b.ReviewCount)
			}
		}
	})

	t.Run("ListByBook and ListByUser", func(t *testing.T) {
		byBook, err := svc.ListByBook(ctx, "b1")
		require.NoError(t, err)
		assert.Len(t, byBook, 3)

		_, err = svc.ListByBook(ctx, "nope")
		assert.ErrorIs(t, err, service.ErrRecordNotFound)

		mine, err := svc.ListByUser(ctx, u1, u1.UserID)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, first.ID, mine[0].ID)

		_, err = svc.ListByUser(ctx, u2, u1.UserID)
		assert.ErrorIs(t, err, service.ErrForbidden)

		all, err := svc.ListByUser(ctx, f.admin, u2.UserID)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("Locked member cannot review", func(t *testing.T) {
		u3 := f.addUser(t, "u3", domain.RolePatron, "")
		locked := true
		_, err := service.NewMembershipService(f.store, new(MockEmailService), f.settings).UpdateUser(ctx, f.admin, service.UserUpdate{ID: u3.UserID, IsLocked: &locked})
		require.NoError(t, err)

		_, err = svc.AddReview(ctx, u3, service.ReviewInput{BookID: "b2", Text: "x", Rating: 3})
		assert.ErrorIs(t, err, service.ErrUserLocked)
	})
}
