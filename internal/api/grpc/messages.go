package grpc

import (
	"time"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/service"
)

type Empty struct{}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// Loans

type BorrowRequest struct {
	UserID string            `json:"user_id"`
	BookID string            `json:"book_id"`
	Mode   domain.BorrowMode `json:"mode"`
}

type LoanIDRequest struct {
	LoanID string `json:"loan_id"`
}

type RequestIDRequest struct {
	RequestID string `json:"request_id"`
}

type DeskRequest struct {
	CardNumber string `json:"card_number"`
	ISBN       string `json:"isbn"`
}

type ListLoansByUserRequest struct {
	UserID string `json:"user_id"`
}

type ListOpenLoansRequest struct {
	Search string `json:"search"`
}

type LoanResponse struct {
	Loan     *domain.Loan `json:"loan"`
	Book     *domain.Book `json:"book,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

type LoanView struct {
	Loan            domain.Loan  `json:"loan"`
	DueDate         time.Time    `json:"due_date"`
	Overdue         bool         `json:"overdue"`
	PendingReturn   bool         `json:"pending_return"`
	ReturnRequestID string       `json:"return_request_id,omitempty"`
	Borrower        *domain.User `json:"borrower,omitempty"`
}

type LoanViewResponse struct {
	Loan LoanView `json:"loan"`
}

type ListLoansResponse struct {
	Loans []LoanView `json:"loans"`
}

type ReturnRequestResponse struct {
	Request *domain.ReturnRequest `json:"request"`
}

type ListReturnRequestsResponse struct {
	Requests []domain.ReturnRequest `json:"requests"`
}

type BookIDRequest struct {
	BookID string `json:"book_id"`
}

type ReconcileResponse struct {
	BookID      string `json:"book_id"`
	TotalCopies int    `json:"total_copies"`
	OpenLoans   int    `json:"open_loans"`
	Before      int    `json:"before"`
	After       int    `json:"after"`
	Corrected   bool   `json:"corrected"`
}

// Catalog

type BookRequest struct {
	Book domain.Book `json:"book"`
}

type BookResponse struct {
	Book *domain.Book `json:"book"`
}

type ISBNRequest struct {
	ISBN string `json:"isbn"`
}

type ListBooksRequest struct {
	Search        string `json:"search"`
	AvailableOnly bool   `json:"available_only"`
	Sort          string `json:"sort"`
	Page          int    `json:"page"`
	PageSize      int    `json:"page_size"`
}

type ListBooksResponse struct {
	Books []domain.Book `json:"books"`
	Total int           `json:"total"`
}

// Reviews

type AddReviewRequest struct {
	BookID string `json:"book_id"`
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

type UpdateReviewRequest struct {
	ReviewID string `json:"review_id"`
	Text     string `json:"text"`
	Rating   int    `json:"rating"`
}

type ReviewResponse struct {
	Review *domain.Review `json:"review"`
}

type ListReviewsResponse struct {
	Reviews []domain.Review `json:"reviews"`
}

// Membership

type MembershipRequestResponse struct {
	Request *domain.MembershipRequest `json:"request"`
}

type ListMembershipRequestsResponse struct {
	Requests []domain.MembershipRequest `json:"requests"`
}

type UserIDRequest struct {
	UserID string `json:"user_id"`
}

type UserResponse struct {
	User *domain.User `json:"user"`
}

type ListUsersRequest struct {
	Search string `json:"search"`
}

type ListUsersResponse struct {
	Users []domain.User `json:"users"`
}

type CardRequest struct {
	CardNumber string `json:"card_number"`
}

type UpdateUserRequest struct {
	UserID     string       `json:"user_id"`
	Name       *string      `json:"name,omitempty"`
	Phone      *string      `json:"phone,omitempty"`
	Address    *string      `json:"address,omitempty"`
	CardNumber *string      `json:"card_number,omitempty"`
	Role       *domain.Role `json:"role,omitempty"`
	IsLocked   *bool        `json:"is_locked,omitempty"`
}

// Settings

type SettingsMessage struct {
	Settings domain.Settings `json:"settings"`
}

// Auth

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         *domain.User `json:"user,omitempty"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Changes

type WatchChangesRequest struct {
	Collections []domain.Collection `json:"collections"`
}

func mapLoanResult(r *service.LoanResult) *LoanResponse {
	resp := &LoanResponse{Loan: r.Loan, Book: r.Book}
	for _, w := range r.Warnings {
		resp.Warnings = append(resp.Warnings, w.Error())
	}
	return resp
}

func mapLoanView(v service.LoanView) LoanView {
	return LoanView{
		Loan:            v.Loan,
		DueDate:         v.DueDate,
		Overdue:         v.Overdue,
		PendingReturn:   v.PendingReturn,
		ReturnRequestID: v.ReturnRequestID,
		Borrower:        v.Borrower,
	}
}

func mapLoanViews(vs []service.LoanView) []LoanView {
	out := make([]LoanView, 0, len(vs))
	for _, v := range vs {
		out = append(out, mapLoanView(v))
	}
	return out
}
