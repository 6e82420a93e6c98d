package memory

import (
	"context"
	"sort"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/repository"
)

type reviewRepository struct {
	exec execFunc
}

func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	return r.exec(func(t *txn) error {
		if _, ok := t.st.reviews[review.ID]; ok {
			return repository.ErrDuplicateRecord
		}
		for _, other := range t.st.reviews {
			if other.UserID == review.UserID && other.BookID == review.BookID {
				return repository.ErrDuplicateRecord
			}
		}
		review.CreatedOn = t.now
		review.UpdatedOn = t.now
		t.st.reviews[review.ID] = *review
		t.emit(domain.CollectionReviews, review.ID, domain.ChangeOpCreated)
		return nil
	})
}

func (r *reviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	var out *domain.Review
	err := r.exec(func(t *txn) error {
		rv, ok := t.st.reviews[id]
		if !ok {
			return repository.ErrRecordNotFound
		}
		out = &rv
		return nil
	})
	return out, err
}

func (r *reviewRepository) Update(ctx context.Context, review *domain.Review) error {
	return r.exec(func(t *txn) error {
		cur, ok := t.st.reviews[review.ID]
		if !ok {
			return repository.ErrRecordNotFound
		}
		cur.Text = review.Text
		cur.Rating = review.Rating
		cur.UpdatedOn = t.now
		t.st.reviews[review.ID] = cur
		*review = cur
		t.emit(domain.CollectionReviews, review.ID, domain.ChangeOpUpdated)
		return nil
	})
}

func (r *reviewRepository) list(match func(domain.Review) bool) ([]domain.Review, error) {
	reviews := []domain.Review{}
	err := r.exec(func(t *txn) error {
		for _, rv := range t.st.reviews {
			if match(rv) {
				reviews = append(reviews, rv)
			}
		}
		return nil
	})
	sort.Slice(reviews, func(i, j int) bool {
		if !reviews[i].CreatedOn.Equal(reviews[j].CreatedOn) {
			return reviews[i].CreatedOn.After(reviews[j].CreatedOn)
		}
		return reviews[i].ID < reviews[j].ID
	})
	return reviews, err
}

func (r *reviewRepository) ListByBook(ctx context.Context, bookID string) ([]domain.Review, error) {
	return r.list(func(rv domain.Review) bool { return rv.BookID == bookID })
}

func (r *reviewRepository) ListByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	return r.list(func(rv domain.Review) bool { return rv.UserID == userID })
}

func (r *reviewRepository) Ratings(ctx context.Context, bookIDs []string) (map[string]domain.RatingSummary, error) {
	out := make(map[string]domain.RatingSummary)
	want := make(map[string]bool, len(bookIDs))
	for _, id := range bookIDs {
		want[id] = true
	}
	err := r.exec(func(t *txn) error {
		for _, rv := range t.st.reviews {
			if !want[rv.BookID] {
				continue
			}
			s := out[rv.BookID]
			s.Count++
			s.Sum += rv.Rating
			out[rv.BookID] = s
		}
		return nil
	})
	return out, err
}
