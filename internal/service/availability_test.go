package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/service"
)

func TestAvailabilityService_Reconcile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := service.NewAvailabilityService(f.store)
	u1 := f.addUser(t, "u1", domain.RolePatron, "")
	u2 := f.addUser(t, "u2", domain.RolePatron, "")
	f.addBook(t, "b1", 3, "")
	f.addBook(t, "b2", 2, "")
	f.activeLoan(t, u1, "b1")
	f.activeLoan(t, u2, "b1")

	t.Run("Corrects drift", func(t *testing.T) {
		book, err := f.store.Books().GetByID(ctx, "b1")
		require.NoError(t, err)
		book.AvailableCopies = 3
		require.NoError(t, f.store.Books().Update(ctx, book))

		rec, err := svc.ReconcileBook(ctx, f.admin, "b1")
		require.NoError(t, err)
		assert.True(t, rec.Corrected())
		assert.Equal(t, 2, rec.OpenLoans)
		assert.Equal(t, 3, rec.Before)
		assert.Equal(t, 1, rec.After)
		assert.Equal(t, 1, f.available(t, "b1"))
	})

	t.Run("Nothing to do", func(t *testing.T) {
		rec, err := svc.ReconcileBook(ctx, f.admin, "b2")
		require.NoError(t, err)
		assert.False(t, rec.Corrected())
		assert.Equal(t, 2, f.available(t, "b2"))
	})

	t.Run("All books", func(t *testing.T) {
		recs, err := svc.ReconcileAll(ctx, domain.SystemActor)
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	})

	t.Run("Admin only", func(t *testing.T) {
		_, err := svc.ReconcileBook(ctx, u1, "b1")
		assert.ErrorIs(t, err, service.ErrForbidden)
	})
}
