package service

import (
	"context"
	"time"

	"shelfkeeper-backend/internal/domain"
)

// LoanResult is the state after a lifecycle operation. Warnings are non-fatal
// anomalies found while adjusting availability; the operation still committed.
type LoanResult struct {
	Loan     *domain.Loan
	Book     *domain.Book
	Warnings []error

	from domain.LoanStatus
}

// LoanView is a loan decorated for display.
type LoanView struct {
	Loan            domain.Loan
	DueDate         time.Time
	Overdue         bool
	PendingReturn   bool
	ReturnRequestID string
	Borrower        *domain.User
}

type Reconciliation struct {
	BookID      string
	Title       string
	TotalCopies int
	OpenLoans   int
	Before      int
	After       int
}

func (r Reconciliation) Corrected() bool {
	return r.Before != r.After
}

type LoanService interface {
	Borrow(ctx context.Context, actor domain.Actor, userID, bookID string, mode domain.BorrowMode) (*LoanResult, error)
	Confirm(ctx context.Context, actor domain.Actor, loanID string) (*LoanResult, error)
	Renew(ctx context.Context, actor domain.Actor, loanID string) (*LoanResult, error)
	RequestReturn(ctx context.Context, actor domain.Actor, loanID string) (*domain.ReturnRequest, error)
	ApproveReturn(ctx context.Context, actor domain.Actor, requestID string) (*LoanResult, error)
	RejectReturn(ctx context.Context, actor domain.Actor, requestID string) error
	ForceReturn(ctx context.Context, actor domain.Actor, loanID string) (*LoanResult, error)
	DirectReturn(ctx context.Context, actor domain.Actor, loanID string) (*LoanResult, error)
	CancelPending(ctx context.Context, actor domain.Actor, loanID string) (*LoanResult, error)
	DeskBorrow(ctx context.Context, actor domain.Actor, cardNumber, isbn string) (*LoanResult, error)
	DeskReturn(ctx context.Context, actor domain.Actor, cardNumber, isbn string) (*LoanResult, error)
	GetLoan(ctx context.Context, actor domain.Actor, loanID string) (*LoanView, error)
	ListLoansByUser(ctx context.Context, actor domain.Actor, userID string) ([]LoanView, error)
	ListOpenLoans(ctx context.Context, actor domain.Actor, search string) ([]LoanView, error)
	ListReturnRequests(ctx context.Context, actor domain.Actor) ([]domain.ReturnRequest, error)
}

type AvailabilityService interface {
	ReconcileBook(ctx context.Context, actor domain.Actor, bookID string) (*Reconciliation, error)
	ReconcileAll(ctx context.Context, actor domain.Actor) ([]Reconciliation, error)
}

type CatalogService interface {
	AddBook(ctx context.Context, actor domain.Actor, book *domain.Book) (*domain.Book, error)
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	FindByISBN(ctx context.Context, isbn string) (*domain.Book, error)
	ListBooks(ctx context.Context, filter domain.BookFilter) ([]domain.Book, int, error)
	UpdateBook(ctx context.Context, actor domain.Actor, book *domain.Book) (*domain.Book, error)
	DeleteBook(ctx context.Context, actor domain.Actor, id string) error
}

// MembershipApplication is the public registration form.
type MembershipApplication struct {
	FullName    string `json:"full_name" validate:"required,max=200"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"omitempty,max=40"`
	Address     string `json:"address" validate:"omitempty,max=500"`
	LibraryCard string `json:"library_card" validate:"omitempty,max=64"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
}

// UserUpdate changes only the non-nil fields. Role and IsLocked are admin-only.
type UserUpdate struct {
	ID         string
	Name       *string
	Phone      *string
	Address    *string
	CardNumber *string
	Role       *domain.Role
	IsLocked   *bool
}

type MembershipService interface {
	SubmitMembershipRequest(ctx context.Context, app MembershipApplication) (*domain.MembershipRequest, error)
	ListMembershipRequests(ctx context.Context, actor domain.Actor) ([]domain.MembershipRequest, error)
	ApproveMembershipRequest(ctx context.Context, actor domain.Actor, requestID string) (*domain.User, error)
	RejectMembershipRequest(ctx context.Context, actor domain.Actor, requestID string) error
	PurgeStaleRequests(ctx context.Context, olderThan time.Duration) (int64, error)
	GetUser(ctx context.Context, actor domain.Actor, userID string) (*domain.User, error)
	ListUsers(ctx context.Context, actor domain.Actor, search string) ([]domain.User, error)
	LookupByCard(ctx context.Context, actor domain.Actor, cardNumber string) (*domain.User, error)
	UpdateUser(ctx context.Context, actor domain.Actor, update UserUpdate) (*domain.User, error)
	DeleteUser(ctx context.Context, actor domain.Actor, userID string) error
	EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, error)
}

// ReviewInput is a member's review text and 1..5 rating.
type ReviewInput struct {
	BookID string
	Text   string
	Rating int
}

type ReviewService interface {
	AddReview(ctx context.Context, actor domain.Actor, in ReviewInput) (*domain.Review, error)
	UpdateReview(ctx context.Context, actor domain.Actor, reviewID, text string, rating int) (*domain.Review, error)
	ListByBook(ctx context.Context, bookID string) ([]domain.Review, error)
	ListByUser(ctx context.Context, actor domain.Actor, userID string) ([]domain.Review, error)
}

type SettingsService interface {
	GetSettings(ctx context.Context) (domain.Settings, error)
	UpdateSettings(ctx context.Context, actor domain.Actor, settings domain.Settings) (*domain.Settings, error)
}

type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*AuthTokens, *domain.User, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthTokens, error)
}

type EmailService interface {
	SendMembershipApproved(ctx context.Context, user *domain.User, appName string) error
	SendMembershipRejected(ctx context.Context, req *domain.MembershipRequest, appName string) error
	SendOverdueReminder(ctx context.Context, user *domain.User, loan *domain.Loan, due time.Time, appName string) error
}
