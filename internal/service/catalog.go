package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/logger"
	"shelfkeeper-backend/internal/repository"
)

const maxPageSize = 100

type catalogService struct {
	store repository.Store
}

func NewCatalogService(store repository.Store) CatalogService {
	return &catalogService{store: store}
}

func (s *catalogService) AddBook(ctx context.Context, actor domain.Actor, book *domain.Book) (*domain.Book, error) {
	logger.EnterMethod("catalogService.AddBook", "title", book.Title, "isbn", book.ISBN)
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	b := *book
	b.ID = uuid.NewString()
	b.ISBN = strings.TrimSpace(b.ISBN)
	b.AvailableCopies = b.TotalCopies
	b.Version = 0
	if err := validateStruct(b); err != nil {
		return nil, err
	}
	if err := s.store.Books().Create(ctx, &b); err != nil {
		logger.ExitMethodWithError("catalogService.AddBook", err)
		return nil, err
	}
	logger.InfoContext(ctx, "book added", "book_id", b.ID, "copies", b.TotalCopies, "actor", actor.UserID)
	return &b, nil
}

func (s *catalogService) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	book, err := s.store.Books().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "book", id)
	}
	books := []domain.Book{*book}
	if err := s.attachRatings(ctx, books); err != nil {
		return nil, err
	}
	return &books[0], nil
}

func (s *catalogService) FindByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil, invalidField("isbn", "must be provided")
	}
	book, err := s.store.Books().GetByISBN(ctx, isbn)
	if err != nil {
		return nil, notFound(err, "isbn", isbn)
	}
	return book, nil
}

func (s *catalogService) ListBooks(ctx context.Context, filter domain.BookFilter) ([]domain.Book, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > maxPageSize {
		filter.PageSize = 20
	}
	switch filter.Sort {
	case domain.BookSortTitle, domain.BookSortAuthor, domain.BookSortNewest:
	case "":
		filter.Sort = domain.BookSortTitle
	default:
		return nil, 0, invalidField("sort", "must be title, author or newest")
	}
	books, total, err := s.store.Books().List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if err := s.attachRatings(ctx, books); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// attachRatings fills each book's average rating from its reviews.
func (s *catalogService) attachRatings(ctx context.Context, books []domain.Book) error {
	if len(books) == 0 {
		return nil
	}
	ids := make([]string, len(books))
	for i := range books {
		ids[i] = books[i].ID
	}
	ratings, err := s.store.Reviews().Ratings(ctx, ids)
	if err != nil {
		return err
	}
	for i := range books {
		books[i].ApplyRating(ratings[books[i].ID])
	}
	return nil
}

// UpdateBook edits catalog fields. A change to TotalCopies shifts
// AvailableCopies by the same amount so copies on loan stay accounted for.
func (s *catalogService) UpdateBook(ctx context.Context, actor domain.Actor, book *domain.Book) (*domain.Book, error) {
	logger.EnterMethod("catalogService.UpdateBook", "bookID", book.ID)
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var updated *domain.Book
	err := s.store.RunInTx(ctx, func(uow repository.UnitOfWork) error {
		current, err := uow.Books().GetForUpdate(ctx, book.ID)
		if err != nil {
			return notFound(err, "book", book.ID)
		}
		available := current.AvailableCopies + (book.TotalCopies - current.TotalCopies)
		if available < 0 {
			return invalidField("total_copies", "cannot be below the number of copies on loan")
		}

		next := *book
		next.AvailableCopies = available
		next.ISBN = strings.TrimSpace(next.ISBN)
		next.Version = current.Version
		next.CreatedOn = current.CreatedOn
		if err := validateStruct(next); err != nil {
			return err
		}
		if err := uow.Books().Update(ctx, &next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err = translate(err); err != nil {
		if !IsRejection(err) {
			logger.ExitMethodWithError("catalogService.UpdateBook", err)
		}
		return nil, err
	}
	logger.InfoContext(ctx, "book updated", "book_id", updated.ID, "total", updated.TotalCopies, "available", updated.AvailableCopies)
	return updated, nil
}

func (s *catalogService) DeleteBook(ctx context.Context, actor domain.Actor, id string) error {
	logger.EnterMethod("catalogService.DeleteBook", "bookID", id)
	if err := requireAdmin(actor); err != nil {
		return err
	}
	err := s.store.RunInTx(ctx, func(uow repository.UnitOfWork) error {
		if _, err := uow.Books().GetForUpdate(ctx, id); err != nil {
			return notFound(err, "book", id)
		}
		open, err := uow.Loans().CountOpenByBook(ctx, id)
		if err != nil {
			return err
		}
		if open > 0 {
			return ErrBookHasOpenLoans
		}
		return uow.Books().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "book deleted", "book_id", id, "actor", actor.UserID)
	return nil
}
