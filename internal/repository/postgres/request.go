package postgres

import (
	"context"
	"time"

	"shelfkeeper-backend/internal/domain"
)

type returnRequestRepository struct {
	q dbtx
}

const returnRequestColumns = `id, loan_id, book_id, book_title, user_id, user_email, request_date`

func scanReturnRequest(row scanner) (*domain.ReturnRequest, error) {
	rr := &domain.ReturnRequest{}
	if err := row.Scan(&rr.ID, &rr.LoanID, &rr.BookID, &rr.BookTitle, &rr.UserID, &rr.UserEmail, &rr.RequestDate); err != nil {
		return nil, mapError(err)
	}
	return rr, nil
}

func (r *returnRequestRepository) Create(ctx context.Context, rr *domain.ReturnRequest) error {
	query := `INSERT INTO return_requests (id, loan_id, book_id, book_title, user_id, user_email, request_date)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.ExecContext(ctx, query, rr.ID, rr.LoanID, rr.BookID, rr.BookTitle, rr.UserID, rr.UserEmail, rr.RequestDate)
	if err != nil {
		return mapError(err)
	}
	return notify(ctx, r.q, domain.CollectionReturnRequests, rr.ID, domain.ChangeOpCreated)
}

func (r *returnRequestRepository) GetByID(ctx context.Context, id string) (*domain.ReturnRequest, error) {
	return scanReturnRequest(r.q.QueryRowContext(ctx, `SELECT `+returnRequestColumns+` FROM return_requests WHERE id = $1`, id))
}

func (r *returnRequestRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.ReturnRequest, error) {
	return scanReturnRequest(r.q.QueryRowContext(ctx, `SELECT `+returnRequestColumns+` FROM return_requests WHERE loan_id = $1`, loanID))
}

func (r *returnRequestRepository) List(ctx context.Context) ([]domain.ReturnRequest, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+returnRequestColumns+` FROM return_requests ORDER BY request_date, id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	reqs := []domain.ReturnRequest{}
	for rows.Next() {
		rr, err := scanReturnRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *rr)
	}
	return reqs, rows.Err()
}

func (r *returnRequestRepository) Delete(ctx context.Context, id string) error {
	if err := execAffecting(ctx, r.q, "DeleteReturnRequest", `DELETE FROM return_requests WHERE id = $1`, id); err != nil {
		return err
	}
	return notify(ctx, r.q, domain.CollectionReturnRequests, id, domain.ChangeOpDeleted)
}

type membershipRequestRepository struct {
	q dbtx
}

const membershipRequestColumns = `id, full_name, email, phone, address, library_card, password_hash, created_on`

func scanMembershipRequest(row scanner) (*domain.MembershipRequest, error) {
	mr := &domain.MembershipRequest{}
	err := row.Scan(&mr.ID, &mr.FullName, &mr.Email, &mr.Phone, &mr.Address, &mr.LibraryCard, &mr.PasswordHash, &mr.CreatedOn)
	if err != nil {
		return nil, mapError(err)
	}
	return mr, nil
}

func (r *membershipRequestRepository) Create(ctx context.Context, mr *domain.MembershipRequest) error {
	query := `INSERT INTO membership_requests (id, full_name, email, phone, address, library_card, password_hash, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if mr.CreatedOn.IsZero() {
		mr.CreatedOn = time.Now().UTC()
	}
	_, err := r.q.ExecContext(ctx, query, mr.ID, mr.FullName, mr.Email, mr.Phone, mr.Address, mr.LibraryCard, mr.PasswordHash, mr.CreatedOn)
	if err != nil {
		return mapError(err)
	}
	return notify(ctx, r.q, domain.CollectionMembershipRequests, mr.ID, domain.ChangeOpCreated)
}

func (r *membershipRequestRepository) GetByID(ctx context.Context, id string) (*domain.MembershipRequest, error) {
	return scanMembershipRequest(r.q.QueryRowContext(ctx, `SELECT `+membershipRequestColumns+` FROM membership_requests WHERE id = $1`, id))
}

func (r *membershipRequestRepository) List(ctx context.Context) ([]domain.MembershipRequest, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+membershipRequestColumns+` FROM membership_requests ORDER BY created_on, id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	reqs := []domain.MembershipRequest{}
	for rows.Next() {
		mr, err := scanMembershipRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *mr)
	}
	return reqs, rows.Err()
}

func (r *membershipRequestRepository) Delete(ctx context.Context, id string) error {
	if err := execAffecting(ctx, r.q, "DeleteMembershipRequest", `DELETE FROM membership_requests WHERE id = $1`, id); err != nil {
		return err
	}
	return notify(ctx, r.q, domain.CollectionMembershipRequests, id, domain.ChangeOpDeleted)
}

func (r *membershipRequestRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	rows, err := r.q.QueryContext(ctx, `DELETE FROM membership_requests WHERE created_on < $1 RETURNING id`, cutoff)
	if err != nil {
		return 0, mapError(err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := notify(ctx, r.q, domain.CollectionMembershipRequests, id, domain.ChangeOpDeleted); err != nil {
			return 0, err
		}
	}
	return int64(len(ids)), nil
}
