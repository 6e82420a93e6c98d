package postgres_test

import (
	"context"
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

var bookRowColumns = []string{"id", "title", "author", "isbn", "language", "description", "cover_url", "publisher", "publish_date", "tags", "total_copies", "available_copies", "version", "created_on", "updated_on"}

func expectNotify(mock sqlmock.Sqlmock) {
	mock.ExpectExec("SELECT pg_notify").
		WithArgs(postgres.ChangeChannel, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestBookRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewBookRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		book := &domain.Book{ID: "b1", Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593", TotalCopies: 3, AvailableCopies: 3}

		mock.ExpectExec("INSERT INTO books").
			WithArgs("b1", "Dune", "Frank Herbert", "9780441013593", "", "", "", "", "", sqlmock.AnyArg(), 3, 3, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectNotify(mock)

		err := repo.Create(ctx, book)
		assert.NoError(t, err)
		assert.Equal(t, 1, book.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DuplicateISBN", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO books").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "books_isbn_key"})

		err := repo.Create(ctx, &domain.Book{ID: "b2", Title: "Dune", ISBN: "9780441013593", TotalCopies: 1})
		assert.ErrorIs(t, err, repository.ErrDuplicateRecord)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewBookRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		now := time.Now()
		rows := sqlmock.NewRows(bookRowColumns).
			AddRow("b1", "Dune", "Frank Herbert", "", "en", "", "", "Ace", "1965", "{sf,classic}", 3, 2, 4, now, now)
		mock.ExpectQuery("SELECT (.+) FROM books WHERE id = \\$1").
			WithArgs("b1").
			WillReturnRows(rows)

		book, err := repo.GetByID(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, "Dune", book.Title)
		assert.Equal(t, []string{"sf", "classic"}, book.Tags)
		assert.Equal(t, 2, book.AvailableCopies)
		assert.Equal(t, 4, book.Version)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM books WHERE id = \\$1").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(bookRowColumns))

		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrRecordNotFound)
	})
}

func TestBookRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewBookRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		book := &domain.Book{ID: "b1", Title: "Dune", Author: "Frank Herbert", TotalCopies: 3, AvailableCopies: 1, Version: 4}
		mock.ExpectQuery("UPDATE books SET").
			WithArgs("Dune", "Frank Herbert", "", "", "", "", "", "", sqlmock.AnyArg(), 3, 1, sqlmock.AnyArg(), "b1", 4).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(5))
		expectNotify(mock)

		require.NoError(t, repo.Update(ctx, book))
		assert.Equal(t, 5, book.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("StaleVersion", func(t *testing.T) {
		book := &domain.Book{ID: "b1", Title: "Dune", TotalCopies: 3, AvailableCopies: 0, Version: 4}
		mock.ExpectQuery("UPDATE books SET").
			WillReturnRows(sqlmock.NewRows([]string{"version"}))

		err := repo.Update(ctx, book)
		assert.ErrorIs(t, err, repository.ErrEditConflict)
		assert.Equal(t, 4, book.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewBookRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM books WHERE \\(title ILIKE \\$1 OR author ILIKE \\$1 OR isbn ILIKE \\$1\\) AND available_copies > 0").
		WithArgs("%dune%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM books WHERE (.+) ORDER BY author, id LIMIT \\$2 OFFSET \\$3").
		WithArgs("%dune%", 10, 10).
		WillReturnRows(sqlmock.NewRows(bookRowColumns).
			AddRow("b1", "Dune", "Frank Herbert", "", "", "", "", "", "", "{}", 1, 1, 1, now, now))

	books, total, err := repo.List(context.Background(), domain.BookFilter{
		Search: "dune", AvailableOnly: true, Sort: domain.BookSortAuthor, Page: 2, PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, books, 1)
	assert.Equal(t, "b1", books[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewBookRepository(db)

	mock.ExpectExec("DELETE FROM books WHERE id = \\$1").WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "gone"), repository.ErrRecordNotFound)

	mock.ExpectExec("DELETE FROM books WHERE id = \\$1").WithArgs("b1").WillReturnResult(sqlmock.NewResult(0, 1))
	expectNotify(mock)
	assert.NoError(t, repo.Delete(context.Background(), "b1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
