package postgres

import (
	"context"
	"time"

	"github.com/lib/pq"

	"shelfkeeper-backend/internal/domain"
)

type reviewRepository struct {
	q dbtx
}

const reviewColumns = `id, book_id, book_title, user_id, user_name, text, rating, created_on, updated_on`

func scanReview(row scanner) (*domain.Review, error) {
	rv := &domain.Review{}
	err := row.Scan(&rv.ID, &rv.BookID, &rv.BookTitle, &rv.UserID, &rv.UserName, &rv.Text, &rv.Rating, &rv.CreatedOn, &rv.UpdatedOn)
	if err != nil {
		return nil, mapError(err)
	}
	return rv, nil
}

func (r *reviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	query := `INSERT INTO reviews (id, book_id, book_title, user_id, user_name, text, rating, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, query, rv.ID, rv.BookID, rv.BookTitle, rv.UserID, rv.UserName, rv.Text, rv.Rating, now)
	if err != nil {
		return mapError(err)
	}
	rv.CreatedOn = now
	rv.UpdatedOn = now
	return notify(ctx, r.q, domain.CollectionReviews, rv.ID, domain.ChangeOpCreated)
}

func (r *reviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	return scanReview(r.q.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
}

func (r *reviewRepository) Update(ctx context.Context, rv *domain.Review) error {
	query := `UPDATE reviews SET text = $1, rating = $2, updated_on = $3 WHERE id = $4
	          RETURNING ` + reviewColumns
	updated, err := scanReview(r.q.QueryRowContext(ctx, query, rv.Text, rv.Rating, time.Now().UTC(), rv.ID))
	if err != nil {
		return err
	}
	*rv = *updated
	return notify(ctx, r.q, domain.CollectionReviews, rv.ID, domain.ChangeOpUpdated)
}

func (r *reviewRepository) list(ctx context.Context, where string, arg string) ([]domain.Review, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE `+where+` = $1 ORDER BY created_on DESC, id`, arg)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, *rv)
	}
	return reviews, rows.Err()
}

func (r *reviewRepository) ListByBook(ctx context.Context, bookID string) ([]domain.Review, error) {
	return r.list(ctx, "book_id", bookID)
}

func (r *reviewRepository) ListByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	return r.list(ctx, "user_id", userID)
}

func (r *reviewRepository) Ratings(ctx context.Context, bookIDs []string) (map[string]domain.RatingSummary, error) {
	out := make(map[string]domain.RatingSummary)
	if len(bookIDs) == 0 {
		return out, nil
	}
	rows, err := r.q.QueryContext(ctx,
		`SELECT book_id, COUNT(*), COALESCE(SUM(rating), 0) FROM reviews WHERE book_id = ANY($1) GROUP BY book_id`,
		pq.Array(bookIDs))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var s domain.RatingSummary
		if err := rows.Scan(&id, &s.Count, &s.Sum); err != nil {
			return nil, err
		}
		out[id] = s
	}
	return out, rows.Err()
}
