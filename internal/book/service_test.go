package book

import (
	"context"
	"fmt"
	"testing"

	"github.com/Jarikso/library-catalog/internal/platform/openlibrary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLookup struct {
	info  *openlibrary.BookInfo
	err   error
	calls int
}

func (s *stubLookup) Search(ctx context.Context, title, author string) (*openlibrary.BookInfo, error) {
	s.calls++
	return s.info, s.err
}

func newTestService(t *testing.T, lookup LookupClient) *Service {
	t.Helper()
	repo, _ := newTestFileRepo(t)
	return NewService(repo, lookup)
}

func TestService_MergePolicy(t *testing.T) {
	external := &openlibrary.BookInfo{
		CoverURL:         ptr("theirs"),
		Description:      ptr("external description"),
		Rating:           ptr(4.2),
		FirstPublishYear: ptr(1990),
	}

	tests := []struct {
		name     string
		in       BookCreate
		info     *openlibrary.BookInfo
		wantYear int
		wantCov  *string
		wantDesc *string
		wantRate *float64
	}{
		{
			name:     "caller year wins over first_publish_year",
			in:       BookCreate{Title: "X", Author: "A", Year: ptr(2000), Genre: "G", Pages: 10},
			info:     external,
			wantYear: 2000,
			wantCov:  ptr("theirs"),
			wantDesc: ptr("external description"),
			wantRate: ptr(4.2),
		},
		{
			name:     "absent year filled from first_publish_year",
			in:       BookCreate{Title: "X", Author: "A", Genre: "G", Pages: 10},
			info:     external,
			wantYear: 1990,
			wantCov:  ptr("theirs"),
			wantDesc: ptr("external description"),
			wantRate: ptr(4.2),
		},
		{
			name:     "external cover overwrites caller cover",
			in:       BookCreate{Title: "X", Author: "A", Year: ptr(2000), Genre: "G", Pages: 10, CoverURL: ptr("mine")},
			info:     external,
			wantYear: 2000,
			wantCov:  ptr("theirs"),
			wantDesc: ptr("external description"),
			wantRate: ptr(4.2),
		},
		{
			name:     "caller values survive when external fields absent",
			in:       BookCreate{Title: "X", Author: "A", Year: ptr(2000), Genre: "G", Pages: 10, CoverURL: ptr("mine"), Rating: ptr(3.0)},
			info:     &openlibrary.BookInfo{Description: ptr("only description")},
			wantYear: 2000,
			wantCov:  ptr("mine"),
			wantDesc: ptr("only description"),
			wantRate: ptr(3.0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, &stubLookup{info: tt.info})

			created, err := svc.CreateWithExternalData(context.Background(), tt.in, true)
			require.NoError(t, err)

			assert.Equal(t, tt.wantYear, created.Year)
			assert.Equal(t, tt.wantCov, created.CoverURL)
			assert.Equal(t, tt.wantDesc, created.Description)
			assert.Equal(t, tt.wantRate, created.Rating)
		})
	}
}

func TestService_LookupNotFoundFallsBackToCallerFields(t *testing.T) {
	lookup := &stubLookup{} // nil info, nil err: no results
	svc := newTestService(t, lookup)
	ctx := context.Background()

	in := sampleCreate("Solaris")
	enriched, err := svc.CreateWithExternalData(ctx, in, true)
	require.NoError(t, err)
	assert.Equal(t, 1, lookup.calls)

	plain, err := svc.CreateWithExternalData(ctx, in, false)
	require.NoError(t, err)

	// Identical records apart from the assigned id.
	enriched.ID = 0
	plain.ID = 0
	assert.Equal(t, plain, enriched)
}

func TestService_LookupFailureAbortsCreation(t *testing.T) {
	lookup := &stubLookup{err: fmt.Errorf("%w: connection refused", openlibrary.ErrLookup)}
	svc := newTestService(t, lookup)
	ctx := context.Background()

	_, err := svc.CreateWithExternalData(ctx, sampleCreate("Solaris"), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, openlibrary.ErrLookup)

	// Nothing was persisted.
	books, err := svc.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestService_FetchExternalFalseSkipsLookup(t *testing.T) {
	lookup := &stubLookup{err: fmt.Errorf("%w: should not be called", openlibrary.ErrLookup)}
	svc := newTestService(t, lookup)

	created, err := svc.CreateWithExternalData(context.Background(), sampleCreate("Solaris"), false)
	require.NoError(t, err)
	assert.Equal(t, 0, lookup.calls)
	assert.Equal(t, "Solaris", created.Title)
}

func TestService_CreateRequiresYear(t *testing.T) {
	svc := newTestService(t, &stubLookup{})

	in := sampleCreate("Solaris")
	in.Year = nil

	_, err := svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestService_YearStillMissingAfterMergeIsRejected(t *testing.T) {
	// Lookup found the book but knows no publish year either.
	svc := newTestService(t, &stubLookup{info: &openlibrary.BookInfo{CoverURL: ptr("c")}})

	in := sampleCreate("Solaris")
	in.Year = nil

	_, err := svc.CreateWithExternalData(context.Background(), in, true)
	assert.ErrorIs(t, err, ErrInvalid)
}
