package domain

import "time"

type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "pending"
	LoanStatusActive   LoanStatus = "active"
	LoanStatusRenewed  LoanStatus = "renewed"
	LoanStatusReturned LoanStatus = "returned"
)

// IsOpen reports whether the loan still holds a copy of the book.
func (s LoanStatus) IsOpen() bool {
	return s != LoanStatusReturned
}

type BorrowMode string

const (
	BorrowModeSelfService BorrowMode = "self_service"
	BorrowModeDirect      BorrowMode = "direct"
)

func (m BorrowMode) Valid() bool {
	return m == BorrowModeSelfService || m == BorrowModeDirect
}

// CloseReason records which path took a loan to returned.
type CloseReason string

const (
	CloseReasonNone      CloseReason = ""
	CloseReasonApproved  CloseReason = "approved"
	CloseReasonForced    CloseReason = "forced"
	CloseReasonDirect    CloseReason = "direct"
	CloseReasonCancelled CloseReason = "cancelled"
)

type Loan struct {
	ID              string      `json:"id"`
	BookID          string      `json:"book_id"`
	UserID          string      `json:"user_id"`
	BookTitle       string      `json:"book_title"`
	Status          LoanStatus  `json:"status"`
	Returned        bool        `json:"returned"`
	Renewed         bool        `json:"renewed"`
	LoanDate        time.Time   `json:"loan_date"`
	ReturnDate      *time.Time  `json:"return_date,omitempty"`
	ForceReturnedBy *string     `json:"force_returned_by,omitempty"`
	CloseReason     CloseReason `json:"close_reason,omitempty"`
	CreatedBy       string      `json:"created_by"`
	UpdatedBy       string      `json:"updated_by"`
	Version         int         `json:"version"`
	UpdatedOn       time.Time   `json:"updated_on"`
}

// DueDate is informational only; an overdue loan never changes state by itself.
func (l *Loan) DueDate(s Settings) time.Time {
	days := s.LoanPeriodDays
	if l.Renewed {
		days = s.RenewPeriodDays
	}
	return l.LoanDate.AddDate(0, 0, days)
}

func (l *Loan) IsOverdue(s Settings, now time.Time) bool {
	if l.Status != LoanStatusActive && l.Status != LoanStatusRenewed {
		return false
	}
	return now.After(l.DueDate(s))
}
