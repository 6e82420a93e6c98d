package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/repository"
)

type bookRepository struct {
	q dbtx
}

const bookColumns = `id, title, author, COALESCE(isbn, ''), language, description, cover_url, publisher, publish_date, tags, total_copies, available_copies, version, created_on, updated_on`

func scanBook(row scanner) (*domain.Book, error) {
	b := &domain.Book{}
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Language, &b.Description, &b.CoverURL,
		&b.Publisher, &b.PublishDate, pq.Array(&b.Tags), &b.TotalCopies, &b.AvailableCopies,
		&b.Version, &b.CreatedOn, &b.UpdatedOn)
	if err != nil {
		return nil, mapError(err)
	}
	return b, nil
}

func (r *bookRepository) Create(ctx context.Context, b *domain.Book) error {
	query := `INSERT INTO books (id, title, author, isbn, language, description, cover_url, publisher, publish_date, tags, total_copies, available_copies, version, created_on, updated_on)
	          VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, 1, $13, $13)`
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, query, b.ID, b.Title, b.Author, b.ISBN, b.Language, b.Description, b.CoverURL,
		b.Publisher, b.PublishDate, pq.Array(b.Tags), b.TotalCopies, b.AvailableCopies, now)
	if err != nil {
		return mapError(err)
	}
	b.Version = 1
	b.CreatedOn = now
	b.UpdatedOn = now
	return notify(ctx, r.q, domain.CollectionBooks, b.ID, domain.ChangeOpCreated)
}

func (r *bookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	return scanBook(r.q.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id))
}

func (r *bookRepository) GetForUpdate(ctx context.Context, id string) (*domain.Book, error) {
	return scanBook(r.q.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1 FOR UPDATE`, id))
}

func (r *bookRepository) GetByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	return scanBook(r.q.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE isbn = $1`, isbn))
}

func (r *bookRepository) List(ctx context.Context, filter domain.BookFilter) ([]domain.Book, int, error) {
	var where []string
	var args []any
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR author ILIKE $%d OR isbn ILIKE $%d)", len(args), len(args), len(args)))
	}
	if filter.AvailableOnly {
		where = append(where, "available_copies > 0")
	}
	base := `FROM books`
	if len(where) > 0 {
		base += " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT count(*) `+base, args...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	order := "title, id"
	switch filter.Sort {
	case domain.BookSortAuthor:
		order = "author, id"
	case domain.BookSortNewest:
		order = "created_on DESC, id"
	}
	query := `SELECT ` + bookColumns + ` ` + base + ` ORDER BY ` + order
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.PageSize, (page-1)*filter.PageSize)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	books := []domain.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		books = append(books, *b)
	}
	return books, total, rows.Err()
}

func (r *bookRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id FROM books ORDER BY id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *bookRepository) Update(ctx context.Context, b *domain.Book) error {
	query := `UPDATE books SET title=$1, author=$2, isbn=NULLIF($3, ''), language=$4, description=$5, cover_url=$6,
	          publisher=$7, publish_date=$8, tags=$9, total_copies=$10, available_copies=$11, updated_on=$12, version = version + 1
	          WHERE id=$13 AND version=$14 RETURNING version`
	now := time.Now().UTC()
	err := r.q.QueryRowContext(ctx, query, b.Title, b.Author, b.ISBN, b.Language, b.Description, b.CoverURL,
		b.Publisher, b.PublishDate, pq.Array(b.Tags), b.TotalCopies, b.AvailableCopies, now, b.ID, b.Version).Scan(&b.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrEditConflict
		}
		return mapError(err)
	}
	b.UpdatedOn = now
	return notify(ctx, r.q, domain.CollectionBooks, b.ID, domain.ChangeOpUpdated)
}

func (r *bookRepository) Delete(ctx context.Context, id string) error {
	if err := execAffecting(ctx, r.q, "DeleteBook", `DELETE FROM books WHERE id = $1`, id); err != nil {
		return err
	}
	return notify(ctx, r.q, domain.CollectionBooks, id, domain.ChangeOpDeleted)
}
