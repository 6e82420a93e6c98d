package service

import (
	"context"
	"errors"
	"fmt"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/logger"
	"shelfkeeper-backend/internal/metrics"
	"shelfkeeper-backend/internal/repository"
)

// reserveCopy takes one copy of the book. It never drives the count below zero.
func reserveCopy(ctx context.Context, uow repository.UnitOfWork, bookID string) (*domain.Book, error) {
	book, err := uow.Books().GetForUpdate(ctx, bookID)
	if err != nil {
		return nil, notFound(err, "book", bookID)
	}
	if book.AvailableCopies <= 0 {
		return nil, ErrBookUnavailable
	}
	book.AvailableCopies--
	if err := uow.Books().Update(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// releaseCopy gives one copy back, clamped at TotalCopies. Anomalies come back
// as warnings; they never abort the surrounding transition.
func releaseCopy(ctx context.Context, uow repository.UnitOfWork, bookID string) (*domain.Book, []error, error) {
	book, err := uow.Books().GetForUpdate(ctx, bookID)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return nil, []error{fmt.Errorf("book %s: %w", bookID, ErrReferencedBookMissing)}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if book.AvailableCopies >= book.TotalCopies {
		return book, []error{fmt.Errorf("book %s: %w", bookID, ErrAvailabilityOverflow)}, nil
	}
	book.AvailableCopies++
	if err := uow.Books().Update(ctx, book); err != nil {
		return nil, nil, err
	}
	return book, nil, nil
}

func recordWarnings(ctx context.Context, op string, warnings []error) {
	for _, w := range warnings {
		kind := "other"
		switch {
		case errors.Is(w, ErrAvailabilityOverflow):
			kind = "overflow"
		case errors.Is(w, ErrReferencedBookMissing):
			kind = "book_missing"
		}
		metrics.AvailabilityWarnings.WithLabelValues(kind).Inc()
		logger.WarnContext(ctx, "availability anomaly", "op", op, "warning", w)
	}
}

type availabilityService struct {
	store repository.Store
}

func NewAvailabilityService(store repository.Store) AvailabilityService {
	return &availabilityService{store: store}
}

func (s *availabilityService) ReconcileBook(ctx context.Context, actor domain.Actor, bookID string) (*Reconciliation, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var rec Reconciliation
	err := s.store.RunInTx(ctx, func(uow repository.UnitOfWork) error {
		book, err := uow.Books().GetForUpdate(ctx, bookID)
		if err != nil {
			return notFound(err, "book", bookID)
		}
		open, err := uow.Loans().CountOpenByBook(ctx, bookID)
		if err != nil {
			return err
		}

		want := book.TotalCopies - open
		if want < 0 {
			logger.WarnContext(ctx, "more open loans than copies", "book_id", bookID, "total", book.TotalCopies, "open_loans", open)
			want = 0
		}
		rec = Reconciliation{
			BookID:      book.ID,
			Title:       book.Title,
			TotalCopies: book.TotalCopies,
			OpenLoans:   open,
			Before:      book.AvailableCopies,
			After:       want,
		}
		if book.AvailableCopies == want {
			return nil
		}
		book.AvailableCopies = want
		return uow.Books().Update(ctx, book)
	})
	if err != nil {
		return nil, translate(err)
	}
	if rec.Corrected() {
		metrics.ReconcileCorrections.Inc()
		logger.InfoContext(ctx, "availability corrected", "book_id", rec.BookID, "before", rec.Before, "after", rec.After, "open_loans", rec.OpenLoans)
	}
	return &rec, nil
}

// ReconcileAll checks every book in its own transaction and keeps going past failures.
func (s *availabilityService) ReconcileAll(ctx context.Context, actor domain.Actor) ([]Reconciliation, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	ids, err := s.store.Books().ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	var out []Reconciliation
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		rec, err := s.ReconcileBook(ctx, actor, id)
		if err != nil {
			// deleted between listing and locking
			if errors.Is(err, ErrRecordNotFound) {
				continue
			}
			errs = append(errs, fmt.Errorf("book %s: %w", id, err))
			continue
		}
		out = append(out, *rec)
	}
	return out, errors.Join(errs...)
}
