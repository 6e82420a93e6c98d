package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/logger"
	"shelfkeeper-backend/internal/metrics"
	"shelfkeeper-backend/internal/repository"
)

type loanService struct {
	store    repository.Store
	settings SettingsService
	now      func() time.Time
}

func NewLoanService(store repository.Store, settings SettingsService) LoanService {
	return &loanService{
		store:    store,
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// finish records the outcome of op and normalises err for callers.
func (s *loanService) finish(ctx context.Context, op string, err error) error {
	err = translate(err)
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrConcurrentModification):
		outcome = "conflict"
		logger.Rejected(ctx, op, err)
	case IsRejection(err):
		outcome = "rejected"
		logger.Rejected(ctx, op, err)
	default:
		outcome = "error"
		logger.ExitMethodWithError(op, err)
	}
	metrics.LoanTransitions.WithLabelValues(op, outcome).Inc()
	return err
}

func (s *loanService) Borrow(ctx context.Context, actor domain.Actor, userID, bookID string, mode domain.BorrowMode) (*LoanResult, error) {
	logger.EnterMethod("loanService.Borrow", "userID", userID, "bookID", bookID, "mode", mode)
	result, err := s.borrow(ctx, actor, userID, bookID, mode)
	if err = s.finish(ctx, "borrow", err); err != nil {
		return nil, err
	}
	logger.Transition(ctx, "loan", result.Loan.ID, "none", result.Loan.Status, "book_id", bookID, "user_id", userID)
	logger.ExitMethod("loanService.Borrow")
	return result, nil
}

func (s *loanService) borrow(ctx context.Context, actor domain.Actor, userID, bookID string, mode domain.BorrowMode) (*LoanResult, error) {
	switch mode {
	case domain.BorrowModeDirect:
		if err := requireAdmin(actor); err != nil {
			return nil, err
		}
	case domain.BorrowModeSelfService:
		if err := requireSelfOrAdmin(actor, userID); err != nil {
			return nil, err
		}
	default:
		return nil, invalidField("mode", "must be self_service or direct")
	}

	status := domain.LoanStatusPending
	if mode == domain.BorrowModeDirect {
		status = domain.LoanStatusActive
	}

	var result *LoanResult
	err := s.store.RunInTx(ctx, func(uow repository.UnitOfWork) error {
		// Shared lock: DeleteUser and UpdateUser wait until this loan commits.
		user, err := uow.Users().GetForShare(ctx, userID)
		if err != nil {
			return notFound(err, "user", userID)
		}
		if user.IsLocked {
			return ErrUserLocked
		}

		_, err = uow.Loans().FindOpen(ctx, userID, bookID)
		if err == nil {
			return ErrDuplicateLoan
		}
		if !errors.Is(err, repository.ErrRecordNotFound) {
			return err
		}

		book, err := reserveCopy(ctx, uow, bookID)
		if err != nil {
			return err
		}

		loan := &domain.Loan{
			ID:        uuid.NewString(),
			BookID:    book.ID,
			UserID:    user.ID,
			BookTitle: book.Title,
			Status:    status,
			LoanDate:  s.now(),
			CreatedBy: actor.UserID,
			UpdatedBy: actor.UserID,
		}
		if err := uow.Loans().Create(ctx, loan); err != nil {
			if errors.Is(err, repository.ErrDuplicateRecord) {
				return ErrDuplicateLoan
			}
			return err
		}
		result = &LoanResult{Loan: loan, Book: book}
		return nil
	})
	return result, err
}

// transition applies a status change to one loan under a row lock.
func (s *loanService) transition(ctx context.Context, actor domain.Actor, loanID string, apply func(loan *domain.Loan) error) (*LoanResult, domain.LoanStatus, error) {
	var result *LoanResult
	var from domain.LoanStatus
	err := s.store.RunInTx(ctx, func(uow repository.UnitOfWork) error {
		loan, err := uow.Loans().GetForUpdate(ctx, loanID)
		if err != nil {
			return notFound(err, "loan", loanID)
		}
		from = loan.Status
		if err := apply(loan); err != nil {
			return err
		}
		loan.UpdatedBy = actor.UserID
		if err := uow.Loans().Update(ctx, loan); err != nil {
			return err
		}
		result = &LoanResult{Loan: loan}
		return nil
	})
	return result, from, err
}

func (s *loanService) Confirm(ctx context.Context, actor domain.Actor, loanID string) (*LoanResult, error) {
	logger.EnterMethod("loanService.Confirm", "loanID", loanID)
	if err := requireAdmin(actor); err != nil {
		return nil, s.finish(ctx, "confirm", err)
	}
	result, from, err := s.transition(ctx, actor, loanID, func(loan *domain.Loan) error {
		if loan.Status != domain.LoanStatusPending {
			return ErrNotPending
		}
		loan.Status = domain.LoanStatusActive
		return nil
	})
	if err = s.finish(ctx, "confirm", err); err != nil {
		return nil, err
	}
	logger.Transition(ctx, "loan", loanID, from, result.Loan.Status, "actor", actor.UserID)
	return result, nil
}

func (s *loanService) Renew(ctx context.Context, actor domain.Actor, loanID string) (*LoanResult, error) {
	logger.EnterMethod("loanService.Renew", "loanID", loanID)
	result, from, err := s.transition(ctx, actor, loanID, func(loan *domain.Loan) error {
		if err := requireSelfOrAdmin(actor, loan.UserID); err != nil {
			return err
		}
		if loan.Renewed {
			return ErrAlreadyRenewed
		}
		if loan.Status != domain.LoanStatusActive {
			return ErrNotRenewable
		}
		loan.Status = domain.LoanStatusRenewed
		loan.Renewed = true
		return nil
	})
	if err = s.finish(ctx, "renew", err); err != nil {
		return nil, err
	}
	logger.Transition(ctx, "loan", loanID, from, result.Loan.Status, "actor", actor.UserID)
	return result, nil
}

func (s *loanService) RequestReturn(ctx context.Context, actor domain.Actor, loanID string) (*domain.ReturnRequest, error) {
	logger.EnterMethod("loanService.RequestReturn", "loanID", loanID)
	var req *domain.ReturnRequest
	err := s.store.RunInTx(ctx, func(uow repository.UnitOfWork) error {
		loan, err := uow.Loans().GetForUpdate(ctx, loanID)
		if err != nil {
			return notFound(err, "loan", loanID)
		}
		if err := requireSelfOrAdmin(actor, loan.UserID); err != nil {
			return err
		}
		if loan.Status != domain.LoanStatusActive && loan.Status != domain.LoanStatusRenewed {
			return ErrLoanNotOpen
		}

		_, err = uow.ReturnRequests().GetByLoanID(ctx, loanID)
		if err == nil {
			return ErrAlreadyRequested
		}
		if !errors.Is(err, repository.ErrRecordNotFound) {
			return err
		}

		var email string
		user, err := uow.Users().GetByID(ctx, loan.UserID)
		switch {
		case err == nil:
			email = user.Email
		case !errors.Is(err, repository.ErrRecordNotFound):
			return err
		}
		req = &domain.ReturnRequest{
			ID:          uuid.NewString(),
			LoanID:      loan.ID,
			BookID:      loan.BookID,
			BookTitle:   loan.BookTitle,
			UserID:      loan.UserID,
			UserEmail:   email,
			RequestDate: s.now(),
		}
		if err := uow.ReturnRequests().Create(ctx, req); err != nil {
			if errors.Is(err, repository.ErrDuplicateRecord) {
				return ErrAlreadyRequested
			}
			return err
		}
		return nil
	})
	if err = s.finish(ctx, "request_return", err); err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "return requested", "loan_id", loanID, "request_id", req.ID)
	return req, nil
}

// closeLoan is the single path to returned. It releases the copy and drops any
// pending return request for the loan.
func (s *loanService) closeLoan(ctx context.Context, uow repository.UnitOfWork, actor domain.Actor, loanID string, reason domain.CloseReason) (*LoanResult, error) {
	loan, err := uow.Loans().GetForUpdate(ctx, loanID)
	if err != nil {
		return nil, notFound(err, "loan", loanID)
	}
	from := loan.Status

	if loan.Status == domain.LoanStatusReturned {
		switch {
		case reason == domain.CloseReasonDirect:
			book, err := uow.Books().GetByID(ctx, loan.BookID)
			if err != nil && !errors.Is(err, repository.ErrRecordNotFound) {
				return nil, err
			}
			return &LoanResult{Loan: loan, Book: book, from: from}, nil
		case reason == domain.CloseReasonCancelled:
			return nil, ErrNotPending
		case reason == domain.CloseReasonForced && loan.ForceReturnedBy != nil:
			return nil, ErrAlreadyForceReturned
		default:
			return nil, ErrAlreadyReturned
		}
	}
	if reason == domain.CloseReasonCancelled && loan.Status != domain.LoanStatusPending {
		return nil, ErrNotPending
	}

	now := s.now()
	loan.Status = domain.LoanStatusReturned
	loan.Returned = true
	loan.ReturnDate = &now
	loan.CloseReason = reason
	loan.UpdatedBy = actor.UserID
	if reason == domain.CloseReasonForced {
		by := actor.UserID
		loan.ForceReturnedBy = &by
	}
	if err := uow.Loans().Update(ctx, loan); err != nil {
		return nil, err
	}

	req, err := uow.ReturnRequests().GetByLoanID(ctx, loan.ID)
	switch {
	case err == nil:
		if err := uow.ReturnRequests().Delete(ctx, req.ID); err != nil {
			return nil, err
		}
	case !errors.Is(err, repository.ErrRecordNotFound):
		return nil, err
	}

	book, warnings, err := releaseCopy(ctx, uow, loan.BookID)
	if err != nil {
		return nil, err
	}
	return &LoanResult{Loan: loan, Book: book, Warnings: warnings, from: from}, nil
}

func (s *loanService) close(ctx context.Context, actor domain.Actor, op, loanID string, reason domain.CloseReason, resolve func(uow repository.UnitOfWork) (string, error)) (*LoanResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, s.finish(ctx, op, err)
	}
	var result *LoanResult
	err := s.store.RunInTx(ctx, func(uow repository.UnitOfWork) error {
		id := loanID
		if resolve != nil {
			var err error
			if id, err = resolve(uow); err != nil {
				return err
			}
		}
		var err error
		result, err = s.closeLoan(ctx, uow, actor, id, reason)
		return err
	})
	if err = s.finish(ctx, op, err); err != nil {
		return nil, err
	}
	if result.from != domain.LoanStatusReturned {
		logger.Transition(ctx, "loan", result.Loan.ID, result.from, result.Loan.Status, "reason", reason, "actor", actor.UserID)
	}
	recordWarnings(ctx, op, result.Warnings)
	return result, nil
}

func (s *loanService) ApproveReturn(ctx context.Context, actor domain.Actor, requestID string) (*LoanResult, error) {
	logger.EnterMethod("loanService.ApproveReturn", "requestID", requestID)
	return s.close(ctx, actor, "approve_return", "", domain.CloseReasonApproved, func(uow repository.UnitOfWork) (string, error) {
		req, err := uow.ReturnRequests().GetByID(ctx, requestID)
		if err != nil {
			return "", notFound(err, "return request", requestID)
		}
		return req.LoanID, nil
	})
}

func (s *loanService) RejectReturn(ctx context.Context, actor domain.Actor, requestID string) error {
	logger.EnterMethod("loanService.RejectReturn", "requestID", requestID)
	if err := requireAdmin(actor); err != nil {
		return s.finish(ctx, "reject_return", err)
	}
	err := s.store.ReturnRequests().Delete(ctx, requestID)
	if err = s.finish(ctx, "reject_return", notFound(err, "return request", requestID)); err != nil {
		return err
	}
	logger.InfoContext(ctx, "return request rejected", "request_id", requestID, "actor", actor.UserID)
	return nil
}

func (s *loanService) ForceReturn(ctx context.Context, actor domain.Actor, loanID string) (*LoanResult, error) {
	logger.EnterMethod("loanService.ForceReturn", "loanID", loanID)
	return s.close(ctx, actor, "force_return", loanID, domain.CloseReasonForced, nil)
}

func (s *loanService) DirectReturn(ctx context.Context, actor domain.Actor, loanID string) (*LoanResult, error) {
	logger.EnterMethod("loanService.DirectReturn", "loanID", loanID)
	return s.close(ctx, actor, "direct_return", loanID, domain.CloseReasonDirect, nil)
}

func (s *loanService) CancelPending(ctx context.Context, actor domain.Actor, loanID string) (*LoanResult, error) {
	logger.EnterMethod("loanService.CancelPending", "loanID", loanID)
	return s.close(ctx, actor, "cancel_pending", loanID, domain.CloseReasonCancelled, nil)
}

func (s *loanService) DeskBorrow(ctx context.Context, actor domain.Actor, cardNumber, isbn string) (*LoanResult, error) {
	logger.EnterMethod("loanService.DeskBorrow", "card", cardNumber, "isbn", isbn)
	if err := requireAdmin(actor); err != nil {
		return nil, s.finish(ctx, "desk_borrow", err)
	}
	user, err := s.store.Users().GetByCardNumber(ctx, cardNumber)
	if err != nil {
		return nil, s.finish(ctx, "desk_borrow", notFound(err, "library card", cardNumber))
	}
	book, err := s.store.Books().GetByISBN(ctx, isbn)
	if err != nil {
		return nil, s.finish(ctx, "desk_borrow", notFound(err, "isbn", isbn))
	}
	return s.Borrow(ctx, actor, user.ID, book.ID, domain.BorrowModeDirect)
}

func (s *loanService) DeskReturn(ctx context.Context, actor domain.Actor, cardNumber, isbn string) (*LoanResult, error) {
	logger.EnterMethod("loanService.DeskReturn", "card", cardNumber, "isbn", isbn)
	return s.close(ctx, actor, "desk_return", "", domain.CloseReasonDirect, func(uow repository.UnitOfWork) (string, error) {
		user, err := uow.Users().GetByCardNumber(ctx, cardNumber)
		if err != nil {
			return "", notFound(err, "library card", cardNumber)
		}
		book, err := uow.Books().GetByISBN(ctx, isbn)
		if err != nil {
			return "", notFound(err, "isbn", isbn)
		}
		loan, err := uow.Loans().FindOpen(ctx, user.ID, book.ID)
		if err != nil {
			return "", notFound(err, "open loan for book", book.ID)
		}
		return loan.ID, nil
	})
}

func (s *loanService) view(loan domain.Loan, settings domain.Settings, pending map[string]string) LoanView {
	v := LoanView{
		Loan:    loan,
		DueDate: loan.DueDate(settings),
		Overdue: loan.IsOverdue(settings, s.now()),
	}
	if id, ok := pending[loan.ID]; ok {
		v.PendingReturn = true
		v.ReturnRequestID = id
	}
	return v
}

func (s *loanService) pendingReturns(ctx context.Context) (map[string]string, error) {
	reqs, err := s.store.ReturnRequests().List(ctx)
	if err != nil {
		return nil, err
	}
	pending := make(map[string]string, len(reqs))
	for _, r := range reqs {
		pending[r.LoanID] = r.ID
	}
	return pending, nil
}

func (s *loanService) GetLoan(ctx context.Context, actor domain.Actor, loanID string) (*LoanView, error) {
	loan, err := s.store.Loans().GetByID(ctx, loanID)
	if err != nil {
		return nil, notFound(err, "loan", loanID)
	}
	if err := requireSelfOrAdmin(actor, loan.UserID); err != nil {
		return nil, err
	}
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	pending := map[string]string{}
	if req, err := s.store.ReturnRequests().GetByLoanID(ctx, loanID); err == nil {
		pending[loanID] = req.ID
	} else if !errors.Is(err, repository.ErrRecordNotFound) {
		return nil, err
	}
	v := s.view(*loan, settings, pending)
	return &v, nil
}

func (s *loanService) ListLoansByUser(ctx context.Context, actor domain.Actor, userID string) ([]LoanView, error) {
	if err := requireSelfOrAdmin(actor, userID); err != nil {
		return nil, err
	}
	loans, err := s.store.Loans().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.pendingReturns(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]LoanView, 0, len(loans))
	for _, l := range loans {
		views = append(views, s.view(l, settings, pending))
	}
	return views, nil
}

// ListOpenLoans returns every open loan with its borrower, filtered by borrower
// name, email or card number.
func (s *loanService) ListOpenLoans(ctx context.Context, actor domain.Actor, search string) ([]LoanView, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	loans, err := s.store.Loans().ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.pendingReturns(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(search))
	users := map[string]*domain.User{}
	views := make([]LoanView, 0, len(loans))
	for _, l := range loans {
		u, ok := users[l.UserID]
		if !ok {
			u, err = s.store.Users().GetByID(ctx, l.UserID)
			if err != nil && !errors.Is(err, repository.ErrRecordNotFound) {
				return nil, err
			}
			users[l.UserID] = u
		}
		if q != "" && !borrowerMatches(u, q) {
			continue
		}
		v := s.view(l, settings, pending)
		v.Borrower = u
		views = append(views, v)
	}
	return views, nil
}

func borrowerMatches(u *domain.User, q string) bool {
	if u == nil {
		return false
	}
	return strings.Contains(strings.ToLower(u.Name), q) ||
		strings.Contains(strings.ToLower(u.Email), q) ||
		strings.Contains(strings.ToLower(u.CardNumber), q)
}

func (s *loanService) ListReturnRequests(ctx context.Context, actor domain.Actor) ([]domain.ReturnRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.ReturnRequests().List(ctx)
}
