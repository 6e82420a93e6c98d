package repository

import (
	"context"
	"time"

	"shelfkeeper-backend/internal/domain"
)

type BookRepository interface {
	Create(ctx context.Context, book *domain.Book) error
	GetByID(ctx context.Context, id string) (*domain.Book, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Book, error)
	GetByISBN(ctx context.Context, isbn string) (*domain.Book, error)
	List(ctx context.Context, filter domain.BookFilter) ([]domain.Book, int, error)
	ListIDs(ctx context.Context) ([]string, error)
	// Update writes the book if its version still matches and bumps book.Version.
	Update(ctx context.Context, book *domain.Book) error
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetForUpdate locks the row against concurrent writers and share lockers.
	GetForUpdate(ctx context.Context, id string) (*domain.User, error)
	// GetForShare keeps the row from being updated or deleted until the transaction ends.
	GetForShare(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByCardNumber(ctx context.Context, cardNumber string) (*domain.User, error)
	List(ctx context.Context, search string) ([]domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
}

type LoanRepository interface {
	Create(ctx context.Context, loan *domain.Loan) error
	GetByID(ctx context.Context, id string) (*domain.Loan, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Loan, error)
	FindOpen(ctx context.Context, userID, bookID string) (*domain.Loan, error)
	// Update writes the loan if its version still matches and bumps loan.Version.
	Update(ctx context.Context, loan *domain.Loan) error
	ListByUser(ctx context.Context, userID string) ([]domain.Loan, error)
	ListOpen(ctx context.Context) ([]domain.Loan, error)
	CountOpenByBook(ctx context.Context, bookID string) (int, error)
	CountOpenByUser(ctx context.Context, userID string) (int, error)
}

type ReturnRequestRepository interface {
	Create(ctx context.Context, req *domain.ReturnRequest) error
	GetByID(ctx context.Context, id string) (*domain.ReturnRequest, error)
	GetByLoanID(ctx context.Context, loanID string) (*domain.ReturnRequest, error)
	List(ctx context.Context) ([]domain.ReturnRequest, error)
	Delete(ctx context.Context, id string) error
}

type MembershipRequestRepository interface {
	Create(ctx context.Context, req *domain.MembershipRequest) error
	GetByID(ctx context.Context, id string) (*domain.MembershipRequest, error)
	List(ctx context.Context) ([]domain.MembershipRequest, error)
	Delete(ctx context.Context, id string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, id string) (*domain.Review, error)
	Update(ctx context.Context, review *domain.Review) error
	ListByBook(ctx context.Context, bookID string) ([]domain.Review, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Review, error)
	// Ratings summarises the reviews of each listed book. Books without reviews are absent.
	Ratings(ctx context.Context, bookIDs []string) (map[string]domain.RatingSummary, error)
}

type SettingsRepository interface {
	Get(ctx context.Context) (*domain.Settings, error)
	Upsert(ctx context.Context, settings *domain.Settings) error
}

// UnitOfWork groups the repositories bound to one transaction (or to none).
type UnitOfWork interface {
	Books() BookRepository
	Users() UserRepository
	Loans() LoanRepository
	ReturnRequests() ReturnRequestRepository
	MembershipRequests() MembershipRequestRepository
	Settings() SettingsRepository
	Reviews() ReviewRepository
}

type Transactor interface {
	// RunInTx commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(uow UnitOfWork) error) error
}

// Store is a UnitOfWork that runs outside of any transaction plus the ability to open one.
type Store interface {
	UnitOfWork
	Transactor
	Ping(ctx context.Context) error
}
