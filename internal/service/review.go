package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/logger"
	"shelfkeeper-backend/internal/repository"
)

type reviewService struct {
	store repository.Store
}

func NewReviewService(store repository.Store) ReviewService {
	return &reviewService{store: store}
}

// AddReview records the caller's review of a book. Each member reviews a book once;
// later changes go through UpdateReview.
func (s *reviewService) AddReview(ctx context.Context, actor domain.Actor, in ReviewInput) (*domain.Review, error) {
	logger.EnterMethod("reviewService.AddReview", "bookID", in.BookID, "actor", actor.UserID)
	if actor.UserID == "" {
		return nil, ErrForbidden
	}
	review := domain.Review{
		ID:     uuid.NewString(),
		BookID: in.BookID,
		UserID: actor.UserID,
		Text:   strings.TrimSpace(in.Text),
		Rating: in.Rating,
	}
	if err := validateStruct(review); err != nil {
		return nil, err
	}

	err := s.store.RunInTx(ctx, func(uow repository.UnitOfWork) error {
		user, err := uow.Users().GetByID(ctx, actor.UserID)
		if err != nil {
			return notFound(err, "user", actor.UserID)
		}
		if user.IsLocked {
			return ErrUserLocked
		}
		book, err := uow.Books().GetByID(ctx, in.BookID)
		if err != nil {
			return notFound(err, "book", in.BookID)
		}
		review.UserName = user.Name
		review.BookTitle = book.Title
		if err := uow.Reviews().Create(ctx, &review); err != nil {
			if errors.Is(err, repository.ErrDuplicateRecord) {
				return ErrAlreadyReviewed
			}
			return err
		}
		return nil
	})
	if err != nil {
		if IsRejection(err) {
			logger.Rejected(ctx, "reviewService.AddReview", err, "book_id", in.BookID, "user_id", actor.UserID)
		} else {
			logger.ExitMethodWithError("reviewService.AddReview", err)
		}
		return nil, err
	}
	logger.InfoContext(ctx, "review added", "review_id", review.ID, "book_id", review.BookID, "rating", review.Rating)
	return &review, nil
}

// UpdateReview replaces the text and rating. Only the author may edit a review.
func (s *reviewService) UpdateReview(ctx context.Context, actor domain.Actor, reviewID, text string, rating int) (*domain.Review, error) {
	logger.EnterMethod("reviewService.UpdateReview", "reviewID", reviewID, "actor", actor.UserID)
	var updated *domain.Review
	err := s.store.RunInTx(ctx, func(uow repository.UnitOfWork) error {
		current, err := uow.Reviews().GetByID(ctx, reviewID)
		if err != nil {
			return notFound(err, "review", reviewID)
		}
		if actor.UserID == "" || current.UserID != actor.UserID {
			return ErrForbidden
		}
		next := *current
		next.Text = strings.TrimSpace(text)
		next.Rating = rating
		if err := validateStruct(next); err != nil {
			return err
		}
		if err := uow.Reviews().Update(ctx, &next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		if IsRejection(err) {
			logger.Rejected(ctx, "reviewService.UpdateReview", err, "review_id", reviewID)
		} else {
			logger.ExitMethodWithError("reviewService.UpdateReview", err)
		}
		return nil, err
	}
	logger.InfoContext(ctx, "review updated", "review_id", updated.ID, "rating", updated.Rating)
	return updated, nil
}

func (s *reviewService) ListByBook(ctx context.Context, bookID string) ([]domain.Review, error) {
	if _, err := s.store.Books().GetByID(ctx, bookID); err != nil {
		return nil, notFound(err, "book", bookID)
	}
	return s.store.Reviews().ListByBook(ctx, bookID)
}

func (s *reviewService) ListByUser(ctx context.Context, actor domain.Actor, userID string) ([]domain.Review, error) {
	if err := requireSelfOrAdmin(actor, userID); err != nil {
		return nil, err
	}
	return s.store.Reviews().ListByUser(ctx, userID)
}
