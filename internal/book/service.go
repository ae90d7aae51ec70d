package book

import (
	"context"
	"fmt"

	"github.com/Jarikso/library-catalog/internal/platform/openlibrary"
	"github.com/rs/zerolog/log"
)

// LookupClient is the slice of the Open Library client the enrichment
// needs. (nil, nil) means the search found nothing.
type LookupClient interface {
	Search(ctx context.Context, title, author string) (*openlibrary.BookInfo, error)
}

// Service provides catalog business logic over one storage backend.
type Service struct {
	repo   Repository
	lookup LookupClient
}

func NewService(repo Repository, lookup LookupClient) *Service {
	return &Service{repo: repo, lookup: lookup}
}

func (s *Service) Get(ctx context.Context, id int) (Book, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, skip, limit int) ([]Book, error) {
	return s.repo.List(ctx, skip, limit)
}

func (s *Service) Update(ctx context.Context, id int, in BookUpdate) (Book, error) {
	return s.repo.Update(ctx, id, in)
}

func (s *Service) Delete(ctx context.Context, id int) (Book, error) {
	return s.repo.Delete(ctx, id)
}

// Create persists the caller's fields as given. Year must be set by
// this point; required fields never reach a backend empty.
func (s *Service) Create(ctx context.Context, in BookCreate) (Book, error) {
	if in.Year == nil {
		return Book{}, fmt.Errorf("%w: year is required", ErrInvalid)
	}
	return s.repo.Create(ctx, in)
}

// CreateWithExternalData creates a book, optionally merging fields
// returned by the external lookup first.
//
// Merge precedence: cover_url, description and rating are overwritten
// whenever the lookup returns them; the caller's values for those three
// are defaults, not overrides. Year is the opposite: first_publish_year
// fills it only when the caller left it absent.
//
// A lookup failure aborts the creation. A lookup with no results does
// not: creation proceeds with the caller's fields alone.
func (s *Service) CreateWithExternalData(ctx context.Context, in BookCreate, fetchExternal bool) (Book, error) {
	if !fetchExternal {
		return s.Create(ctx, in)
	}

	info, err := s.lookup.Search(ctx, in.Title, in.Author)
	if err != nil {
		return Book{}, fmt.Errorf("enrich %q: %w", in.Title, err)
	}
	if info != nil {
		if info.CoverURL != nil {
			in.CoverURL = info.CoverURL
		}
		if info.Description != nil {
			in.Description = info.Description
		}
		if info.Rating != nil {
			in.Rating = info.Rating
		}
		if in.Year == nil && info.FirstPublishYear != nil {
			in.Year = info.FirstPublishYear
		}
		log.Debug().Str("title", in.Title).Msg("merged external book info")
	}

	return s.Create(ctx, in)
}
