package domain

import "time"

// MembershipRequest is a public registration waiting for an admin decision.
type MembershipRequest struct {
	ID           string    `json:"id"`
	FullName     string    `json:"full_name" validate:"required,max=200"`
	Email        string    `json:"email" validate:"required,email"`
	Phone        string    `json:"phone" validate:"omitempty,max=40"`
	Address      string    `json:"address" validate:"omitempty,max=500"`
	LibraryCard  string    `json:"library_card" validate:"omitempty,max=64"`
	PasswordHash string    `json:"-"`
	CreatedOn    time.Time `json:"created_on"`
}
