package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/logger"
	"shelfkeeper-backend/internal/repository"
)

// ChangeChannel is the NOTIFY channel carrying domain.ChangeEvent payloads.
const ChangeChannel = "shelfkeeper_changes"

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type unitOfWork struct {
	books              repository.BookRepository
	users              repository.UserRepository
	loans              repository.LoanRepository
	returnRequests     repository.ReturnRequestRepository
	membershipRequests repository.MembershipRequestRepository
	settings           repository.SettingsRepository
	reviews            repository.ReviewRepository
}

func newUnitOfWork(q dbtx) *unitOfWork {
	return &unitOfWork{
		books:              &bookRepository{q: q},
		users:              &userRepository{q: q},
		loans:              &loanRepository{q: q},
		returnRequests:     &returnRequestRepository{q: q},
		membershipRequests: &membershipRequestRepository{q: q},
		settings:           &settingsRepository{q: q},
		reviews:            &reviewRepository{q: q},
	}
}

func (u *unitOfWork) Books() repository.BookRepository         { return u.books }
func (u *unitOfWork) Users() repository.UserRepository         { return u.users }
func (u *unitOfWork) Loans() repository.LoanRepository         { return u.loans }
func (u *unitOfWork) Settings() repository.SettingsRepository  { return u.settings }
func (u *unitOfWork) Reviews() repository.ReviewRepository     { return u.reviews }
func (u *unitOfWork) ReturnRequests() repository.ReturnRequestRepository {
	return u.returnRequests
}
func (u *unitOfWork) MembershipRequests() repository.MembershipRequestRepository {
	return u.membershipRequests
}

type Store struct {
	*unitOfWork
	db *sql.DB
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{unitOfWork: newUnitOfWork(db), db: db}
}

func NewBookRepository(db *sql.DB) repository.BookRepository { return &bookRepository{q: db} }
func NewUserRepository(db *sql.DB) repository.UserRepository { return &userRepository{q: db} }
func NewLoanRepository(db *sql.DB) repository.LoanRepository { return &loanRepository{q: db} }
func NewReviewRepository(db *sql.DB) repository.ReviewRepository {
	return &reviewRepository{q: db}
}

// RunInTx runs fn in a read-committed transaction. Rows read with
// GetForUpdate stay locked until fn returns.
func (s *Store) RunInTx(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(newUnitOfWork(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// mapError translates driver errors into repository errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrRecordNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", repository.ErrDuplicateRecord, pqErr.Constraint)
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", repository.ErrEditConflict, pqErr.Message)
		}
	}
	return err
}

// execAffecting runs a write that must touch a row.
func execAffecting(ctx context.Context, q dbtx, op, query string, args ...any) error {
	logger.DatabaseCall(op, query)
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult(op, 0, err)
		return mapError(err)
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult(op, n, err)
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrRecordNotFound
	}
	return nil
}

// notify queues a change event; PostgreSQL delivers it when the transaction commits.
func notify(ctx context.Context, q dbtx, c domain.Collection, id string, op domain.ChangeOp) error {
	payload, err := json.Marshal(domain.ChangeEvent{Collection: c, ID: id, Op: op, At: time.Now().UTC()})
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `SELECT pg_notify($1, $2)`, ChangeChannel, string(payload))
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
