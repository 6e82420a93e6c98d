package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/repository"
	"shelfkeeper-backend/internal/repository/memory"
	"shelfkeeper-backend/internal/service"
)

// lockSpyStore records which user row locks a transaction takes.
type lockSpyStore struct {
	*memory.Store

	mu    sync.Mutex
	locks []string
}

func (s *lockSpyStore) record(lock string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks = append(s.locks, lock)
}

func (s *lockSpyStore) RunInTx(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	return s.Store.RunInTx(ctx, func(uow repository.UnitOfWork) error {
		return fn(spyUnitOfWork{UnitOfWork: uow, spy: s})
	})
}

type spyUnitOfWork struct {
	repository.UnitOfWork
	spy *lockSpyStore
}

func (u spyUnitOfWork) Users() repository.UserRepository {
	return spyUsers{UserRepository: u.UnitOfWork.Users(), spy: u.spy}
}

type spyUsers struct {
	repository.UserRepository
	spy *lockSpyStore
}

func (r spyUsers) GetForUpdate(ctx context.Context, id string) (*domain.User, error) {
	r.spy.record("update:" + id)
	return r.UserRepository.GetForUpdate(ctx, id)
}

func (r spyUsers) GetForShare(ctx context.Context, id string) (*domain.User, error) {
	r.spy.record("share:" + id)
	return r.UserRepository.GetForShare(ctx, id)
}

func TestUserRowLocks(t *testing.T) {
	ctx := context.Background()
	admin := domain.Actor{UserID: "admin-1", Role: domain.RoleAdmin}

	newSpy := func(t *testing.T) *lockSpyStore {
		t.Helper()
		spy := &lockSpyStore{Store: memory.NewStore(nil)}
		require.NoError(t, spy.Users().Create(ctx, &domain.User{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: domain.RolePatron}))
		require.NoError(t, spy.Books().Create(ctx, &domain.Book{ID: "b1", Title: "Dune", Author: "Herbert", TotalCopies: 1, AvailableCopies: 1}))
		return spy
	}

	t.Run("Borrow shares the borrower row", func(t *testing.T) {
		spy := newSpy(t)
		settings := service.NewSettingsService(spy, domain.DefaultSettings())
		_, err := service.NewLoanService(spy, settings).Borrow(ctx, admin, "u1", "b1", domain.BorrowModeDirect)
		require.NoError(t, err)
		assert.Equal(t, []string{"share:u1"}, spy.locks)
	})

	t.Run("DeleteUser locks the row before counting loans", func(t *testing.T) {
		spy := newSpy(t)
		settings := service.NewSettingsService(spy, domain.DefaultSettings())
		membership := service.NewMembershipService(spy, new(MockEmailService), settings)
		require.NoError(t, membership.DeleteUser(ctx, admin, "u1"))
		assert.Equal(t, []string{"update:u1"}, spy.locks)
	})

	t.Run("UpdateUser locks the row", func(t *testing.T) {
		spy := newSpy(t)
		settings := service.NewSettingsService(spy, domain.DefaultSettings())
		membership := service.NewMembershipService(spy, new(MockEmailService), settings)
		locked := true
		user, err := membership.UpdateUser(ctx, admin, service.UserUpdate{ID: "u1", IsLocked: &locked})
		require.NoError(t, err)
		assert.True(t, user.IsLocked)
		assert.Equal(t, []string{"update:u1"}, spy.locks)
	})
}
