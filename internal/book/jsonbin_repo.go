package book

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// JSONBinRepo stores the whole record set as a single JSONBin document
// of shape {"record": [ ...Book... ]}. Reads fetch the document with an
// authenticated GET; mutations re-read it, modify the array in memory
// and replace it wholesale with a PUT. There is no conditional-request
// protection, so concurrent writers race the same way the file backend
// does.
type JSONBinRepo struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewJSONBinRepo(binID, apiKey string) *JSONBinRepo {
	return &JSONBinRepo{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: "https://api.jsonbin.io/v3/b/" + binID,
		apiKey:  apiKey,
	}
}

// binDocument matches the bin's top-level shape. A document without a
// record key reads as an empty catalog.
type binDocument struct {
	Record []Book `json:"record"`
}

func (r *JSONBinRepo) fetch(ctx context.Context) ([]Book, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch bin: %w", err)
	}
	r.setHeaders(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bin: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch bin: unexpected status code: %d", resp.StatusCode)
	}

	var doc binDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode bin: %w", err)
	}
	return doc.Record, nil
}

func (r *JSONBinRepo) replace(ctx context.Context, books []Book) error {
	body, err := json.Marshal(books)
	if err != nil {
		return fmt.Errorf("encode bin: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("replace bin: %w", err)
	}
	r.setHeaders(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("replace bin: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("replace bin: unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

func (r *JSONBinRepo) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Master-Key", r.apiKey)
}

func (r *JSONBinRepo) Get(ctx context.Context, id int) (Book, error) {
	books, err := r.fetch(ctx)
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

func (r *JSONBinRepo) List(ctx context.Context, skip, limit int) ([]Book, error) {
	books, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return slice(books, skip, limit), nil
}

func (r *JSONBinRepo) Create(ctx context.Context, in BookCreate) (Book, error) {
	books, err := r.fetch(ctx)
	if err != nil {
		return Book{}, err
	}
	rec := in.withID(nextID(books))
	books = append(books, rec)
	if err := r.replace(ctx, books); err != nil {
		return Book{}, err
	}
	log.Info().Int("id", rec.ID).Str("title", rec.Title).Msg("book created in remote bin")
	return rec, nil
}

func (r *JSONBinRepo) Update(ctx context.Context, id int, in BookUpdate) (Book, error) {
	books, err := r.fetch(ctx)
	if err != nil {
		return Book{}, err
	}
	for i, b := range books {
		if b.ID == id {
			updated := in.apply(b)
			books[i] = updated
			if err := r.replace(ctx, books); err != nil {
				return Book{}, err
			}
			log.Info().Int("id", id).Msg("book updated in remote bin")
			return updated, nil
		}
	}
	return Book{}, ErrNotFound
}

func (r *JSONBinRepo) Delete(ctx context.Context, id int) (Book, error) {
	books, err := r.fetch(ctx)
	if err != nil {
		return Book{}, err
	}
	for i, b := range books {
		if b.ID == id {
			books = append(books[:i], books[i+1:]...)
			if err := r.replace(ctx, books); err != nil {
				return Book{}, err
			}
			log.Info().Int("id", id).Msg("book deleted from remote bin")
			return b, nil
		}
	}
	return Book{}, ErrNotFound
}
