package memory

import (
	"context"
	"sort"
	"strings"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/repository"
)

type bookRepository struct {
	exec execFunc
}

func copyBook(b domain.Book) domain.Book {
	if b.Tags != nil {
		b.Tags = append([]string(nil), b.Tags...)
	}
	return b
}

func isbnTaken(st *state, isbn, exceptID string) bool {
	if isbn == "" {
		return false
	}
	for id, b := range st.books {
		if id != exceptID && b.ISBN == isbn {
			return true
		}
	}
	return false
}

func (r *bookRepository) Create(ctx context.Context, book *domain.Book) error {
	return r.exec(func(t *txn) error {
		if _, ok := t.st.books[book.ID]; ok || isbnTaken(t.st, book.ISBN, "") {
			return repository.ErrDuplicateRecord
		}
		book.Version = 1
		book.CreatedOn = t.now
		book.UpdatedOn = t.now
		t.st.books[book.ID] = copyBook(*book)
		t.emit(domain.CollectionBooks, book.ID, domain.ChangeOpCreated)
		return nil
	})
}

func (r *bookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	var out *domain.Book
	err := r.exec(func(t *txn) error {
		b, ok := t.st.books[id]
		if !ok {
			return repository.ErrRecordNotFound
		}
		c := copyBook(b)
		out = &c
		return nil
	})
	return out, err
}

func (r *bookRepository) GetForUpdate(ctx context.Context, id string) (*domain.Book, error) {
	return r.GetByID(ctx, id)
}

func (r *bookRepository) GetByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	var out *domain.Book
	err := r.exec(func(t *txn) error {
		for _, b := range t.st.books {
			if b.ISBN == isbn {
				c := copyBook(b)
				out = &c
				return nil
			}
		}
		return repository.ErrRecordNotFound
	})
	return out, err
}

func matchesBook(b domain.Book, filter domain.BookFilter) bool {
	if filter.AvailableOnly && b.AvailableCopies <= 0 {
		return false
	}
	if filter.Search == "" {
		return true
	}
	q := strings.ToLower(filter.Search)
	return strings.Contains(strings.ToLower(b.Title), q) ||
		strings.Contains(strings.ToLower(b.Author), q) ||
		strings.Contains(strings.ToLower(b.ISBN), q)
}

func (r *bookRepository) List(ctx context.Context, filter domain.BookFilter) ([]domain.Book, int, error) {
	var books []domain.Book
	err := r.exec(func(t *txn) error {
		for _, b := range t.st.books {
			if matchesBook(b, filter) {
				books = append(books, copyBook(b))
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(books, func(i, j int) bool {
		a, b := books[i], books[j]
		switch filter.Sort {
		case domain.BookSortAuthor:
			if a.Author != b.Author {
				return a.Author < b.Author
			}
		case domain.BookSortNewest:
			if !a.CreatedOn.Equal(b.CreatedOn) {
				return a.CreatedOn.After(b.CreatedOn)
			}
		default:
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		}
		return a.ID < b.ID
	})

	total := len(books)
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.PageSize
		if start >= total {
			return []domain.Book{}, total, nil
		}
		end := start + filter.PageSize
		if end > total {
			end = total
		}
		books = books[start:end]
	}
	return books, total, nil
}

func (r *bookRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.exec(func(t *txn) error {
		for id := range t.st.books {
			ids = append(ids, id)
		}
		return nil
	})
	sort.Strings(ids)
	return ids, err
}

func (r *bookRepository) Update(ctx context.Context, book *domain.Book) error {
	return r.exec(func(t *txn) error {
		current, ok := t.st.books[book.ID]
		if !ok || current.Version != book.Version {
			return repository.ErrEditConflict
		}
		if isbnTaken(t.st, book.ISBN, book.ID) {
			return repository.ErrDuplicateRecord
		}
		book.Version++
		book.CreatedOn = current.CreatedOn
		book.UpdatedOn = t.now
		t.st.books[book.ID] = copyBook(*book)
		t.emit(domain.CollectionBooks, book.ID, domain.ChangeOpUpdated)
		return nil
	})
}

func (r *bookRepository) Delete(ctx context.Context, id string) error {
	return r.exec(func(t *txn) error {
		if _, ok := t.st.books[id]; !ok {
			return repository.ErrRecordNotFound
		}
		delete(t.st.books, id)
		t.emit(domain.CollectionBooks, id, domain.ChangeOpDeleted)
		return nil
	})
}
