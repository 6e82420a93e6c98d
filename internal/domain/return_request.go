package domain

import "time"

type ReturnRequest struct {
	ID          string    `json:"id"`
	LoanID      string    `json:"loan_id"`
	BookID      string    `json:"book_id"`
	BookTitle   string    `json:"book_title"`
	UserID      string    `json:"user_id"`
	UserEmail   string    `json:"user_email"`
	RequestDate time.Time `json:"request_date"`
}
