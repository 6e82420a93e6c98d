package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/service"
)

func TestMembershipService_Requests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	emails := new(MockEmailService)
	svc := service.NewMembershipService(f.store, emails, f.settings)

	app := service.MembershipApplication{
		FullName:    "Ada Lovelace",
		Email:       " Ada@Example.com ",
		LibraryCard: "C-42",
		Password:    "correct horse",
	}

	t.Run("Submit and approve", func(t *testing.T) {
		req, err := svc.SubmitMembershipRequest(ctx, app)
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", req.Email)
		assert.NotEqual(t, app.Password, req.PasswordHash)

		_, err = svc.SubmitMembershipRequest(ctx, app)
		assert.ErrorIs(t, err, service.ErrDuplicateRecord)

		emails.On("SendMembershipApproved", ctx, mock.AnythingOfType("*domain.User"), "Library").Return(errors.New("smtp down"))
		user, err := svc.ApproveMembershipRequest(ctx, f.admin, req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RolePatron, user.Role)
		assert.Equal(t, "C-42", user.CardNumber)
		emails.AssertExpectations(t)

		pending, err := svc.ListMembershipRequests(ctx, f.admin)
		require.NoError(t, err)
		assert.Empty(t, pending)

		_, err = svc.SubmitMembershipRequest(ctx, app)
		assert.ErrorIs(t, err, service.ErrDuplicateRecord)
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := svc.SubmitMembershipRequest(ctx, service.MembershipApplication{FullName: "X", Email: "not-an-email", Password: "short"})
		var verr *service.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "email")
		assert.Contains(t, verr.Fields, "password")
	})

	t.Run("Reject", func(t *testing.T) {
		req, err := svc.SubmitMembershipRequest(ctx, service.MembershipApplication{FullName: "Bob", Email: "bob@example.com", Password: "password123"})
		require.NoError(t, err)

		emails.On("SendMembershipRejected", ctx, mock.AnythingOfType("*domain.MembershipRequest"), "Library").Return(nil)
		require.NoError(t, svc.RejectMembershipRequest(ctx, f.admin, req.ID))
		assert.ErrorIs(t, svc.RejectMembershipRequest(ctx, f.admin, req.ID), service.ErrRecordNotFound)
	})

	t.Run("Purge", func(t *testing.T) {
		_, err := svc.SubmitMembershipRequest(ctx, service.MembershipApplication{FullName: "Old", Email: "old@example.com", Password: "password123"})
		require.NoError(t, err)
		n, err := svc.PurgeStaleRequests(ctx, 24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		n, err = svc.PurgeStaleRequests(ctx, -72*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestMembershipService_Users(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := service.NewMembershipService(f.store, new(MockEmailService), f.settings)
	u1 := f.addUser(t, "u1", domain.RolePatron, "C-1")
	u2 := f.addUser(t, "u2", domain.RolePatron, "C-2")
	f.addBook(t, "b1", 1, "")

	t.Run("LookupByCard", func(t *testing.T) {
		user, err := svc.LookupByCard(ctx, f.admin, "C-2")
		require.NoError(t, err)
		assert.Equal(t, "u2", user.ID)

		_, err = svc.LookupByCard(ctx, u1, "C-2")
		assert.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("Patron edits own contact details only", func(t *testing.T) {
		name := "Renamed"
		user, err := svc.UpdateUser(ctx, u1, service.UserUpdate{ID: "u1", Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", user.Name)

		admin := domain.RoleAdmin
		_, err = svc.UpdateUser(ctx, u1, service.UserUpdate{ID: "u1", Role: &admin})
		assert.ErrorIs(t, err, service.ErrForbidden)

		_, err = svc.UpdateUser(ctx, u1, service.UserUpdate{ID: "u2", Name: &name})
		assert.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("DeleteUser guards", func(t *testing.T) {
		loan := f.activeLoan(t, u2, "b1")
		assert.ErrorIs(t, svc.DeleteUser(ctx, f.admin, "u2"), service.ErrUserHasOpenLoans)
		_, err := f.loans.DirectReturn(ctx, f.admin, loan.ID)
		require.NoError(t, err)

		locked := true
		_, err = svc.UpdateUser(ctx, f.admin, service.UserUpdate{ID: "u2", IsLocked: &locked})
		require.NoError(t, err)
		assert.ErrorIs(t, svc.DeleteUser(ctx, f.admin, "u2"), service.ErrUserLocked)

		_, err = f.loans.Borrow(ctx, f.admin, "u2", "b1", domain.BorrowModeDirect)
		assert.ErrorIs(t, err, service.ErrUserLocked)

		unlocked := false
		_, err = svc.UpdateUser(ctx, f.admin, service.UserUpdate{ID: "u2", IsLocked: &unlocked})
		require.NoError(t, err)
		require.NoError(t, svc.DeleteUser(ctx, f.admin, "u2"))
		_, err = svc.GetUser(ctx, f.admin, "u2")
		assert.ErrorIs(t, err, service.ErrRecordNotFound)
	})

	t.Run("EnsureAdmin", func(t *testing.T) {
		created, err := svc.EnsureAdmin(ctx, "Root", "root@example.com", "supersecret")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, created.Role)

		again, err := svc.EnsureAdmin(ctx, "Root", "ROOT@example.com", "")
		require.NoError(t, err)
		assert.Equal(t, created.ID, again.ID)

		promoted, err := svc.EnsureAdmin(ctx, "", "u1@example.com", "")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, promoted.Role)
		assert.Equal(t, "u1", promoted.ID)
	})
}

func TestSettingsService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u1 := f.addUser(t, "u1", domain.RolePatron, "")

	got, err := f.settings.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultLoanPeriodDays, got.LoanPeriodDays)

	_, err = f.settings.UpdateSettings(ctx, u1, domain.Settings{LoanPeriodDays: 7, RenewPeriodDays: 7})
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.settings.UpdateSettings(ctx, f.admin, domain.Settings{LoanPeriodDays: 0, RenewPeriodDays: 7})
	assert.ErrorIs(t, err, service.ErrFailedValidation)

	saved, err := f.settings.UpdateSettings(ctx, f.admin, domain.Settings{LoanPeriodDays: 21, RenewPeriodDays: 7})
	require.NoError(t, err)
	assert.Equal(t, "Library", saved.AppName)

	got, err = f.settings.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 21, got.LoanPeriodDays)
	assert.Equal(t, 7, got.RenewPeriodDays)
}
