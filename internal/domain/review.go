package domain

import (
	"math"
	"time"
)

// Review is one member's rating of a book. A member reviews a book at most once.
type Review struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id" validate:"required"`
	BookTitle string    `json:"book_title"`
	UserID    string    `json:"user_id" validate:"required"`
	UserName  string    `json:"user_name"`
	Text      string    `json:"text" validate:"required,max=4000"`
	Rating    int       `json:"rating" validate:"min=1,max=5"`
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

// RatingSummary aggregates the reviews of one book.
type RatingSummary struct {
	Count int
	Sum   int
}

// Average is the mean rating rounded to one decimal, or nil without reviews.
func (r RatingSummary) Average() *float64 {
	if r.Count == 0 {
		return nil
	}
	avg := math.Round(float64(r.Sum)/float64(r.Count)*10) / 10
	return &avg
}
