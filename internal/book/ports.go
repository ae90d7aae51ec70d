package book

import (
	"context"
)

// Repository is the storage contract shared by the Postgres, file and
// remote-bin backends. Each backend owns an independent record set; the
// implementations are interchangeable behind this interface.
//
// Get, Update and Delete report a missing id as ErrNotFound. Any other
// error is a store failure and leaves previously persisted state
// untouched.
type Repository interface {
	// Get returns the book with the given id.
	Get(ctx context.Context, id int) (Book, error)
	// List returns up to limit books after skipping the first skip, in
	// the backend's storage order.
	List(ctx context.Context, skip, limit int) ([]Book, error)
	// Create persists a new book and returns it with its assigned id.
	Create(ctx context.Context, in BookCreate) (Book, error)
	// Update applies the non-nil fields of in and returns the full
	// resulting record.
	Update(ctx context.Context, id int, in BookUpdate) (Book, error)
	// Delete removes the book and returns its pre-deletion snapshot.
	Delete(ctx context.Context, id int) (Book, error)
}
