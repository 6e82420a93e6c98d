package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/repository"
)

var (
	ErrBookUnavailable        = errors.New("no copies of this book are available")
	ErrDuplicateLoan          = errors.New("user already has an open loan for this book")
	ErrNotPending             = errors.New("loan is not pending")
	ErrAlreadyRenewed         = errors.New("loan has already been renewed")
	ErrNotRenewable           = errors.New("only active loans can be renewed")
	ErrAlreadyRequested       = errors.New("a return request already exists for this loan")
	ErrAlreadyForceReturned   = errors.New("loan has already been force returned")
	ErrAlreadyReturned        = errors.New("loan has already been returned")
	ErrLoanNotOpen            = errors.New("loan is not checked out")
	ErrReferencedBookMissing  = errors.New("referenced book no longer exists")
	ErrAvailabilityOverflow   = errors.New("available copies already at total copies")
	ErrConcurrentModification = errors.New("record was modified concurrently, retry the operation")
	ErrUserLocked             = errors.New("user account is locked")
	ErrUserHasOpenLoans       = errors.New("user still has open loans")
	ErrBookHasOpenLoans       = errors.New("book still has open loans")
	ErrForbidden              = errors.New("operation not permitted for this user")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrLoginDisabled          = errors.New("password login is disabled for this deployment")
	ErrFailedValidation       = errors.New("failed validation")
	ErrAlreadyReviewed        = errors.New("user has already reviewed this book")

	ErrRecordNotFound  = repository.ErrRecordNotFound
	ErrDuplicateRecord = repository.ErrDuplicateRecord
)

// ValidationError lists the offending fields of a request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "failed validation: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrFailedValidation
}

func invalidField(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, repository.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrRecordNotFound)
	}
	return err
}

// translate maps storage conflicts onto the retryable service error.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrEditConflict) {
		return fmt.Errorf("%w: %v", ErrConcurrentModification, err)
	}
	return err
}

// IsRejection reports whether err is an expected business-rule refusal rather than a fault.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrBookUnavailable, ErrDuplicateLoan, ErrNotPending, ErrAlreadyRenewed, ErrNotRenewable,
		ErrAlreadyRequested, ErrAlreadyForceReturned, ErrAlreadyReturned, ErrLoanNotOpen,
		ErrUserLocked, ErrUserHasOpenLoans, ErrBookHasOpenLoans, ErrForbidden, ErrInvalidCredentials,
		ErrFailedValidation, ErrRecordNotFound, ErrDuplicateRecord, ErrConcurrentModification, ErrLoginDisabled,
		ErrAlreadyReviewed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func requireAdmin(actor domain.Actor) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func requireSelfOrAdmin(actor domain.Actor, userID string) error {
	if actor.IsAdmin() || (actor.UserID != "" && actor.UserID == userID) {
		return nil
	}
	return ErrForbidden
}
