package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/logger"
	"shelfkeeper-backend/internal/repository"
)

type membershipService struct {
	store    repository.Store
	emails   EmailService
	settings SettingsService
	now      func() time.Time
}

func NewMembershipService(store repository.Store, emails EmailService, settings SettingsService) MembershipService {
	return &membershipService{
		store:    store,
		emails:   emails,
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *membershipService) appName(ctx context.Context) string {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return domain.DefaultSettings().AppName
	}
	return settings.AppName
}

func (s *membershipService) SubmitMembershipRequest(ctx context.Context, app MembershipApplication) (*domain.MembershipRequest, error) {
	logger.EnterMethod("membershipService.SubmitMembershipRequest", "email", app.Email)
	app.Email = normalizeEmail(app.Email)
	app.LibraryCard = strings.TrimSpace(app.LibraryCard)
	if err := validateStruct(app); err != nil {
		return nil, err
	}

	if _, err := s.store.Users().GetByEmail(ctx, app.Email); err == nil {
		return nil, ErrDuplicateRecord
	} else if !errors.Is(err, repository.ErrRecordNotFound) {
		return nil, err
	}
	if app.LibraryCard != "" {
		if _, err := s.store.Users().GetByCardNumber(ctx, app.LibraryCard); err == nil {
			return nil, invalidField("library_card", "already assigned to another member")
		} else if !errors.Is(err, repository.ErrRecordNotFound) {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(app.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	req := &domain.MembershipRequest{
		ID:           uuid.NewString(),
		FullName:     strings.TrimSpace(app.FullName),
		Email:        app.Email,
		Phone:        app.Phone,
		Address:      app.Address,
		LibraryCard:  app.LibraryCard,
		PasswordHash: string(hash),
	}
	if err := s.store.MembershipRequests().Create(ctx, req); err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "membership request submitted", "request_id", req.ID)
	return req, nil
}

func (s *membershipService) ListMembershipRequests(ctx context.Context, actor domain.Actor) ([]domain.MembershipRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.MembershipRequests().List(ctx)
}

func (s *membershipService) ApproveMembershipRequest(ctx context.Context, actor domain.Actor, requestID string) (*domain.User, error) {
	logger.EnterMethod("membershipService.ApproveMembershipRequest", "requestID", requestID)
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var user *domain.User
	err := s.store.RunInTx(ctx, func(uow repository.UnitOfWork) error {
		req, err := uow.MembershipRequests().GetByID(ctx, requestID)
		if err != nil {
			return notFound(err, "membership request", requestID)
		}
		user = &domain.User{
			ID:           uuid.NewString(),
			Name:         req.FullName,
			Email:        req.Email,
			Phone:        req.Phone,
			Address:      req.Address,
			CardNumber:   req.LibraryCard,
			PasswordHash: req.PasswordHash,
			Role:         domain.RolePatron,
		}
		if err := uow.Users().Create(ctx, user); err != nil {
			return err
		}
		return uow.MembershipRequests().Delete(ctx, req.ID)
	})
	if err != nil {
		if !IsRejection(err) {
			logger.ExitMethodWithError("membershipService.ApproveMembershipRequest", err)
		}
		return nil, err
	}
	logger.InfoContext(ctx, "membership approved", "request_id", requestID, "user_id", user.ID, "actor", actor.UserID)

	if err := s.emails.SendMembershipApproved(ctx, user, s.appName(ctx)); err != nil {
		logger.WarnContext(ctx, "welcome email not sent", "user_id", user.ID, "error", err)
	}
	return user, nil
}

func (s *membershipService) RejectMembershipRequest(ctx context.Context, actor domain.Actor, requestID string) error {
	logger.EnterMethod("membershipService.RejectMembershipRequest", "requestID", requestID)
	if err := requireAdmin(actor); err != nil {
		return err
	}
	req, err := s.store.MembershipRequests().GetByID(ctx, requestID)
	if err != nil {
		return notFound(err, "membership request", requestID)
	}
	if err := s.store.MembershipRequests().Delete(ctx, requestID); err != nil {
		return notFound(err, "membership request", requestID)
	}
	logger.InfoContext(ctx, "membership rejected", "request_id", requestID, "actor", actor.UserID)

	if err := s.emails.SendMembershipRejected(ctx, req, s.appName(ctx)); err != nil {
		logger.WarnContext(ctx, "rejection email not sent", "request_id", requestID, "error", err)
	}
	return nil
}

func (s *membershipService) PurgeStaleRequests(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan)
	n, err := s.store.MembershipRequests().DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.InfoContext(ctx, "stale membership requests purged", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

func (s *membershipService) GetUser(ctx context.Context, actor domain.Actor, userID string) (*domain.User, error) {
	if err := requireSelfOrAdmin(actor, userID); err != nil {
		return nil, err
	}
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user", userID)
	}
	return user, nil
}

func (s *membershipService) ListUsers(ctx context.Context, actor domain.Actor, search string) ([]domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.Users().List(ctx, strings.TrimSpace(search))
}

func (s *membershipService) LookupByCard(ctx context.Context, actor domain.Actor, cardNumber string) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	cardNumber = strings.TrimSpace(cardNumber)
	if cardNumber == "" {
		return nil, invalidField("card_number", "must be provided")
	}
	user, err := s.store.Users().GetByCardNumber(ctx, cardNumber)
	if err != nil {
		return nil, notFound(err, "library card", cardNumber)
	}
	return user, nil
}

func (s *membershipService) UpdateUser(ctx context.Context, actor domain.Actor, update UserUpdate) (*domain.User, error) {
	logger.EnterMethod("membershipService.UpdateUser", "userID", update.ID)
	if err := requireSelfOrAdmin(actor, update.ID); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && (update.Role != nil || update.IsLocked != nil || update.CardNumber != nil) {
		return nil, ErrForbidden
	}
	if update.Role != nil && !update.Role.Valid() {
		return nil, invalidField("role", "must be patron or admin")
	}

	var user *domain.User
	err := s.store.RunInTx(ctx, func(uow repository.UnitOfWork) error {
		current, err := uow.Users().GetForUpdate(ctx, update.ID)
		if err != nil {
			return notFound(err, "user", update.ID)
		}
		if update.Name != nil {
			current.Name = strings.TrimSpace(*update.Name)
		}
		if update.Phone != nil {
			current.Phone = *update.Phone
		}
		if update.Address != nil {
			current.Address = *update.Address
		}
		if update.CardNumber != nil {
			current.CardNumber = strings.TrimSpace(*update.CardNumber)
		}
		if update.Role != nil {
			current.Role = *update.Role
		}
		if update.IsLocked != nil {
			current.IsLocked = *update.IsLocked
		}
		if err := validateStruct(current); err != nil {
			return err
		}
		user = current
		return uow.Users().Update(ctx, current)
	})
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "user updated", "user_id", user.ID, "role", user.Role, "locked", user.IsLocked, "actor", actor.UserID)
	return user, nil
}

// DeleteUser removes a member. Locked members and members with open loans are kept.
func (s *membershipService) DeleteUser(ctx context.Context, actor domain.Actor, userID string) error {
	logger.EnterMethod("membershipService.DeleteUser", "userID", userID)
	if err := requireAdmin(actor); err != nil {
		return err
	}
	err := s.store.RunInTx(ctx, func(uow repository.UnitOfWork) error {
		// Blocks until in-flight borrows holding a share lock on the user commit.
		user, err := uow.Users().GetForUpdate(ctx, userID)
		if err != nil {
			return notFound(err, "user", userID)
		}
		if user.IsLocked {
			return ErrUserLocked
		}
		open, err := uow.Loans().CountOpenByUser(ctx, userID)
		if err != nil {
			return err
		}
		if open > 0 {
			return ErrUserHasOpenLoans
		}
		return uow.Users().Delete(ctx, userID)
	})
	if err != nil {
		if IsRejection(err) {
			logger.Rejected(ctx, "membershipService.DeleteUser", err, "user_id", userID)
		}
		return err
	}
	logger.InfoContext(ctx, "user deleted", "user_id", userID, "actor", actor.UserID)
	return nil
}

// EnsureAdmin creates the bootstrap administrator unless a user with the
// email already exists, in which case that user is promoted.
func (s *membershipService) EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, invalidField("email", "must be provided")
	}
	var user *domain.User
	err := s.store.RunInTx(ctx, func(uow repository.UnitOfWork) error {
		existing, err := uow.Users().GetByEmail(ctx, email)
		if err == nil {
			user = existing
			if existing.Role == domain.RoleAdmin {
				return nil
			}
			existing.Role = domain.RoleAdmin
			return uow.Users().Update(ctx, existing)
		}
		if !errors.Is(err, repository.ErrRecordNotFound) {
			return err
		}
		if len(password) < 8 {
			return invalidField("password", "failed 'min=8'")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		if name == "" {
			name = "Administrator"
		}
		user = &domain.User{
			ID:           uuid.NewString(),
			Name:         name,
			Email:        email,
			PasswordHash: string(hash),
			Role:         domain.RoleAdmin,
		}
		return uow.Users().Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("bootstrap admin ready", "user_id", user.ID, "email", email)
	return user, nil
}
