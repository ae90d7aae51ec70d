package book

import (
	"errors"
)

// ErrNotFound is returned when a book is not found. Absence is a normal
// outcome, not a store failure; callers match it with errors.Is.
var ErrNotFound = errors.New("book not found")

// ErrInvalid is returned when a payload cannot produce a valid book.
var ErrInvalid = errors.New("invalid book payload")

// Book represents a book record in any of the storage backends.
type Book struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Year        int      `json:"year"`
	Genre       string   `json:"genre"`
	Pages       int      `json:"pages"`
	Available   bool     `json:"available"`
	CoverURL    *string  `json:"cover_url,omitempty"`
	Description *string  `json:"description,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
}

// BookCreate is the payload for creating a book. Year is a pointer so
// that an absent value can be filled in from external enrichment; it
// must be set by the time the record reaches a backend.
type BookCreate struct {
	Title       string   `json:"title" validate:"required"`
	Author      string   `json:"author" validate:"required"`
	Year        *int     `json:"year" validate:"omitempty,pub_year"`
	Genre       string   `json:"genre" validate:"required"`
	Pages       int      `json:"pages" validate:"required,gt=0"`
	Available   *bool    `json:"available"`
	CoverURL    *string  `json:"cover_url,omitempty"`
	Description *string  `json:"description,omitempty"`
	Rating      *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
}

// BookUpdate is a partial update payload. A nil field leaves the stored
// value unchanged.
type BookUpdate struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,min=1"`
	Author      *string  `json:"author,omitempty" validate:"omitempty,min=1"`
	Year        *int     `json:"year,omitempty" validate:"omitempty,pub_year"`
	Genre       *string  `json:"genre,omitempty" validate:"omitempty,min=1"`
	Pages       *int     `json:"pages,omitempty" validate:"omitempty,gt=0"`
	Available   *bool    `json:"available,omitempty"`
	CoverURL    *string  `json:"cover_url,omitempty"`
	Description *string  `json:"description,omitempty"`
	Rating      *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
}

// withID materializes the full record a backend persists. Available
// defaults to true when the payload does not set it.
func (c BookCreate) withID(id int) Book {
	b := Book{
		ID:          id,
		Title:       c.Title,
		Author:      c.Author,
		Genre:       c.Genre,
		Pages:       c.Pages,
		Available:   true,
		CoverURL:    c.CoverURL,
		Description: c.Description,
		Rating:      c.Rating,
	}
	if c.Year != nil {
		b.Year = *c.Year
	}
	if c.Available != nil {
		b.Available = *c.Available
	}
	return b
}

// apply returns a copy of b with the non-nil fields of u replaced.
func (u BookUpdate) apply(b Book) Book {
	if u.Title != nil {
		b.Title = *u.Title
	}
	if u.Author != nil {
		b.Author = *u.Author
	}
	if u.Year != nil {
		b.Year = *u.Year
	}
	if u.Genre != nil {
		b.Genre = *u.Genre
	}
	if u.Pages != nil {
		b.Pages = *u.Pages
	}
	if u.Available != nil {
		b.Available = *u.Available
	}
	if u.CoverURL != nil {
		b.CoverURL = u.CoverURL
	}
	if u.Description != nil {
		b.Description = u.Description
	}
	if u.Rating != nil {
		b.Rating = u.Rating
	}
	return b
}

// nextID assigns ids for the backends that manage them in-process:
// max(existing)+1, or 1 for an empty set. Ids of deleted records are
// never reused as long as a higher id remains.
func nextID(books []Book) int {
	maxID := 0
	for _, b := range books {
		if b.ID > maxID {
			maxID = b.ID
		}
	}
	return maxID + 1
}
