package book

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// FileRepo stores the whole record set as a JSON array in a single
// file. Every mutation is a read-modify-write of the entire file; the
// write happens only after a successful read and merge, so a failed
// operation leaves the previous contents untouched. Concurrent writers
// race and the last write wins.
type FileRepo struct {
	path string
}

// NewFileRepo opens the backend at path, creating an empty catalog
// file when none exists.
func NewFileRepo(path string) (*FileRepo, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
			return nil, fmt.Errorf("create catalog file %s: %w", path, err)
		}
		log.Debug().Str("path", path).Msg("created empty catalog file")
	} else if err != nil {
		return nil, fmt.Errorf("stat catalog file %s: %w", path, err)
	}
	return &FileRepo{path: path}, nil
}

func (r *FileRepo) readAll() ([]Book, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file %s: %w", r.path, err)
	}
	var books []Book
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("decode catalog file %s: %w", r.path, err)
	}
	return books, nil
}

func (r *FileRepo) writeAll(books []Book) error {
	data, err := json.MarshalIndent(books, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("write catalog file %s: %w", r.path, err)
	}
	return nil
}

func (r *FileRepo) Get(ctx context.Context, id int) (Book, error) {
	books, err := r.readAll()
	if err != nil {
		return Book{}, err
	}
	for _, b := range books {
		if b.ID == id {
			return b, nil
		}
	}
	return Book{}, ErrNotFound
}

func (r *FileRepo) List(ctx context.Context, skip, limit int) ([]Book, error) {
	books, err := r.readAll()
	if err != nil {
		return nil, err
	}
	return slice(books, skip, limit), nil
}

func (r *FileRepo) Create(ctx context.Context, in BookCreate) (Book, error) {
	books, err := r.readAll()
	if err != nil {
		return Book{}, err
	}
	rec := in.withID(nextID(books))
	books = append(books, rec)
	if err := r.writeAll(books); err != nil {
		return Book{}, err
	}
	log.Info().Int("id", rec.ID).Str("title", rec.Title).Msg("book created in file catalog")
	return rec, nil
}

func (r *FileRepo) Update(ctx context.Context, id int, in BookUpdate) (Book, error) {
	books, err := r.readAll()
	if err != nil {
		return Book{}, err
	}
	for i, b := range books {
		if b.ID == id {
			updated := in.apply(b)
			books[i] = updated
			if err := r.writeAll(books); err != nil {
				return Book{}, err
			}
			log.Info().Int("id", id).Msg("book updated in file catalog")
			return updated, nil
		}
	}
	return Book{}, ErrNotFound
}

func (r *FileRepo) Delete(ctx context.Context, id int) (Book, error) {
	books, err := r.readAll()
	if err != nil {
		return Book{}, err
	}
	for i, b := range books {
		if b.ID == id {
			books = append(books[:i], books[i+1:]...)
			if err := r.writeAll(books); err != nil {
				return Book{}, err
			}
			log.Info().Int("id", id).Msg("book deleted from file catalog")
			return b, nil
		}
	}
	return Book{}, ErrNotFound
}

// slice applies skip/limit pagination to an in-memory record set.
func slice(books []Book, skip, limit int) []Book {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(books) {
		return []Book{}
	}
	end := skip + limit
	if limit <= 0 || end > len(books) {
		end = len(books)
	}
	return books[skip:end]
}
