package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/repository"
	"shelfkeeper-backend/internal/repository/postgres"
)

var loanRowColumns = []string{"id", "book_id", "user_id", "book_title", "status", "returned", "renewed", "loan_date", "return_date", "force_returned_by", "close_reason", "created_by", "updated_by", "version", "updated_on"}

func TestLoanRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewLoanRepository(db)
	ctx := context.Background()
	loanDate := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		loan := &domain.Loan{ID: "l1", BookID: "b1", UserID: "u1", BookTitle: "Dune", Status: domain.LoanStatusPending, LoanDate: loanDate, CreatedBy: "u1"}

		mock.ExpectExec("INSERT INTO loans").
			WithArgs("l1", "b1", "u1", "Dune", "pending", false, false, loanDate, "u1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectNotify(mock)

		require.NoError(t, repo.Create(ctx, loan))
		assert.Equal(t, 1, loan.Version)
		assert.Equal(t, "u1", loan.UpdatedBy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("OpenLoanExists", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO loans").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "loans_open_user_book_key"})

		err := repo.Create(ctx, &domain.Loan{ID: "l2", BookID: "b1", UserID: "u1", Status: domain.LoanStatusPending, LoanDate: loanDate})
		assert.ErrorIs(t, err, repository.ErrDuplicateRecord)
	})
}

func TestLoanRepository_GetForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewLoanRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM loans WHERE id = \\$1 FOR UPDATE").
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows(loanRowColumns).
			AddRow("l1", "b1", "u1", "Dune", "returned", true, false, now, now, "admin-1", "forced", "u1", "admin-1", 3, now))

	loan, err := repo.GetForUpdate(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusReturned, loan.Status)
	assert.Equal(t, domain.CloseReasonForced, loan.CloseReason)
	require.NotNil(t, loan.ForceReturnedBy)
	assert.Equal(t, "admin-1", *loan.ForceReturnedBy)
	require.NotNil(t, loan.ReturnDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewLoanRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		loan := &domain.Loan{ID: "l1", Status: domain.LoanStatusActive, UpdatedBy: "admin-1", Version: 1}
		mock.ExpectQuery("UPDATE loans SET").
			WithArgs("active", false, false, nil, nil, "", "admin-1", sqlmock.AnyArg(), "l1", 1).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(2))
		expectNotify(mock)

		require.NoError(t, repo.Update(ctx, loan))
		assert.Equal(t, 2, loan.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ConcurrentWriterWon", func(t *testing.T) {
		loan := &domain.Loan{ID: "l1", Status: domain.LoanStatusRenewed, Renewed: true, Version: 1}
		mock.ExpectQuery("UPDATE loans SET").
			WillReturnRows(sqlmock.NewRows([]string{"version"}))

		assert.ErrorIs(t, repo.Update(ctx, loan), repository.ErrEditConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SerializationFailure", func(t *testing.T) {
		loan := &domain.Loan{ID: "l1", Status: domain.LoanStatusActive, Version: 2}
		mock.ExpectQuery("UPDATE loans SET").
			WillReturnError(&pq.Error{Code: "40001", Message: "could not serialize access"})

		assert.ErrorIs(t, repo.Update(ctx, loan), repository.ErrEditConflict)
	})
}

func TestLoanRepository_CountOpenByBook(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM loans WHERE book_id = \\$1 AND status <> 'returned'").
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := postgres.NewLoanRepository(db).CountOpenByBook(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_RunInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		store := postgres.NewStore(db)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM books WHERE id = \\$1 FOR UPDATE").
			WithArgs("b1").
			WillReturnRows(sqlmock.NewRows(bookRowColumns).
				AddRow("b1", "Dune", "Herbert", "", "", "", "", "", "", "{}", 2, 2, 1, now, now))
		mock.ExpectQuery("UPDATE books SET").
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(2))
		expectNotify(mock)
		mock.ExpectCommit()

		err = store.RunInTx(ctx, func(uow repository.UnitOfWork) error {
			book, err := uow.Books().GetForUpdate(ctx, "b1")
			if err != nil {
				return err
			}
			book.AvailableCopies--
			return uow.Books().Update(ctx, book)
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackOnError", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		store := postgres.NewStore(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM loans WHERE id = \\$1 FOR UPDATE").
			WithArgs("l1").
			WillReturnRows(sqlmock.NewRows(loanRowColumns))
		mock.ExpectRollback()

		err = store.RunInTx(ctx, func(uow repository.UnitOfWork) error {
			_, err := uow.Loans().GetForUpdate(ctx, "l1")
			return err
		})
		assert.ErrorIs(t, err, repository.ErrRecordNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("BeginFails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		store := postgres.NewStore(db)

		boom := errors.New("connection refused")
		mock.ExpectBegin().WillReturnError(boom)

		called := false
		err = store.RunInTx(ctx, func(uow repository.UnitOfWork) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, boom)
		assert.False(t, called)
	})
}
