package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/repository"
)

type loanRepository struct {
	q dbtx
}

const loanColumns = `id, book_id, user_id, book_title, status, returned, renewed, loan_date, return_date, force_returned_by, close_reason, created_by, updated_by, version, updated_on`

func scanLoan(row scanner) (*domain.Loan, error) {
	l := &domain.Loan{}
	var returnDate sql.NullTime
	var forcedBy sql.NullString
	err := row.Scan(&l.ID, &l.BookID, &l.UserID, &l.BookTitle, &l.Status, &l.Returned, &l.Renewed, &l.LoanDate,
		&returnDate, &forcedBy, &l.CloseReason, &l.CreatedBy, &l.UpdatedBy, &l.Version, &l.UpdatedOn)
	if err != nil {
		return nil, mapError(err)
	}
	if returnDate.Valid {
		t := returnDate.Time
		l.ReturnDate = &t
	}
	if forcedBy.Valid {
		s := forcedBy.String
		l.ForceReturnedBy = &s
	}
	return l, nil
}

func (r *loanRepository) list(ctx context.Context, query string, args ...any) ([]domain.Loan, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	loans := []domain.Loan{}
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, *l)
	}
	return loans, rows.Err()
}

func (r *loanRepository) Create(ctx context.Context, l *domain.Loan) error {
	query := `INSERT INTO loans (id, book_id, user_id, book_title, status, returned, renewed, loan_date, created_by, updated_by, version, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9, 1, $10)`
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, query, l.ID, l.BookID, l.UserID, l.BookTitle, l.Status, l.Returned, l.Renewed,
		l.LoanDate, l.CreatedBy, now)
	if err != nil {
		return mapError(err)
	}
	l.Version = 1
	l.UpdatedBy = l.CreatedBy
	l.UpdatedOn = now
	return notify(ctx, r.q, domain.CollectionLoans, l.ID, domain.ChangeOpCreated)
}

func (r *loanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	return scanLoan(r.q.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id))
}

func (r *loanRepository) GetForUpdate(ctx context.Context, id string) (*domain.Loan, error) {
	return scanLoan(r.q.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id))
}

func (r *loanRepository) FindOpen(ctx context.Context, userID, bookID string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE user_id = $1 AND book_id = $2 AND status <> 'returned'`
	return scanLoan(r.q.QueryRowContext(ctx, query, userID, bookID))
}

func (r *loanRepository) Update(ctx context.Context, l *domain.Loan) error {
	query := `UPDATE loans SET status=$1, returned=$2, renewed=$3, return_date=$4, force_returned_by=$5, close_reason=$6,
	          updated_by=$7, updated_on=$8, version = version + 1
	          WHERE id=$9 AND version=$10 RETURNING version`
	var returnDate sql.NullTime
	if l.ReturnDate != nil {
		returnDate = sql.NullTime{Time: *l.ReturnDate, Valid: true}
	}
	var forcedBy sql.NullString
	if l.ForceReturnedBy != nil {
		forcedBy = sql.NullString{String: *l.ForceReturnedBy, Valid: true}
	}
	now := time.Now().UTC()
	err := r.q.QueryRowContext(ctx, query, l.Status, l.Returned, l.Renewed, returnDate, forcedBy, l.CloseReason,
		l.UpdatedBy, now, l.ID, l.Version).Scan(&l.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrEditConflict
		}
		return mapError(err)
	}
	l.UpdatedOn = now
	return notify(ctx, r.q, domain.CollectionLoans, l.ID, domain.ChangeOpUpdated)
}

func (r *loanRepository) ListByUser(ctx context.Context, userID string) ([]domain.Loan, error) {
	return r.list(ctx, `SELECT `+loanColumns+` FROM loans WHERE user_id = $1 ORDER BY loan_date DESC, id`, userID)
}

func (r *loanRepository) ListOpen(ctx context.Context) ([]domain.Loan, error) {
	return r.list(ctx, `SELECT `+loanColumns+` FROM loans WHERE status <> 'returned' ORDER BY loan_date, id`)
}

func (r *loanRepository) CountOpenByBook(ctx context.Context, bookID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT count(*) FROM loans WHERE book_id = $1 AND status <> 'returned'`, bookID).Scan(&n)
	return n, mapError(err)
}

func (r *loanRepository) CountOpenByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT count(*) FROM loans WHERE user_id = $1 AND status <> 'returned'`, userID).Scan(&n)
	return n, mapError(err)
}
