package domain

import "time"

type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title" validate:"required,max=500"`
	Author          string    `json:"author" validate:"required,max=300"`
	ISBN            string    `json:"isbn" validate:"omitempty,max=20"`
	Language        string    `json:"language"`
	Description     string    `json:"description"`
	CoverURL        string    `json:"cover_url" validate:"omitempty,url"`
	Publisher       string    `json:"publisher"`
	PublishDate     string    `json:"publish_date"`
	Tags            []string  `json:"tags"`
	TotalCopies     int       `json:"total_copies" validate:"gte=1"`
	AvailableCopies int       `json:"available_copies" validate:"gte=0,ltefield=TotalCopies"`
	Version         int       `json:"version"`
	CreatedOn       time.Time `json:"created_on"`
	UpdatedOn       time.Time `json:"updated_on"`

	// Derived from reviews on read; never stored with the book.
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount int      `json:"review_count"`
}

// ApplyRating fills the derived rating fields.
func (b *Book) ApplyRating(r RatingSummary) {
	b.Rating = r.Average()
	b.ReviewCount = r.Count
}

// OnLoan is the number of copies currently out, derived from the counters.
func (b *Book) OnLoan() int {
	return b.TotalCopies - b.AvailableCopies
}

type BookSort string

const (
	BookSortTitle  BookSort = "title"
	BookSortAuthor BookSort = "author"
	BookSortNewest BookSort = "newest"
)

type BookFilter struct {
	Search        string
	AvailableOnly bool
	Sort          BookSort
	Page          int
	PageSize      int
}
