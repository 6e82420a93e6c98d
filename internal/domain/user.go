package domain

import "time"

type Role string

const (
	RolePatron Role = "patron"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RolePatron || r == RoleAdmin
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name" validate:"required,max=200"`
	Email        string    `json:"email" validate:"required,email"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	CardNumber   string    `json:"card_number"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role" validate:"oneof=patron admin"`
	IsLocked     bool      `json:"is_locked"`
	CreatedOn    time.Time `json:"created_on"`
	UpdatedOn    time.Time `json:"updated_on"`
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// SystemActor is used by scheduled jobs.
var SystemActor = Actor{UserID: "system", Role: RoleAdmin}
