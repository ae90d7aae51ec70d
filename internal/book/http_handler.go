package book

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Jarikso/library-catalog/internal/httpx"
	"github.com/rs/zerolog/log"
)

const (
	defaultListLimit = 100
	maxListLimit     = 100
)

// HTTPHandler exposes one backend's catalog over HTTP. The same type is
// mounted once per backend under a different prefix.
type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// Register mounts the CRUD routes under prefix (e.g. "/books").
func (h *HTTPHandler) Register(mux *http.ServeMux, prefix string) {
	mux.HandleFunc("POST "+prefix, h.Create)
	mux.HandleFunc("GET "+prefix, h.List)
	mux.HandleFunc("GET "+prefix+"/{id}", h.Get)
	mux.HandleFunc("PUT "+prefix+"/{id}", h.Update)
	mux.HandleFunc("DELETE "+prefix+"/{id}", h.Delete)
}

// Create handles POST {prefix}. Enrichment from the external lookup is
// on by default; ?fetch_external=false creates from the payload alone.
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in BookCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
		return
	}
	if details := httpx.ValidateStruct(in); details != nil {
		httpx.JSONError(r, w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", details)
		return
	}

	fetchExternal := r.URL.Query().Get("fetch_external") != "false"

	created, err := h.service.CreateWithExternalData(r.Context(), in, fetchExternal)
	if err != nil {
		if errors.Is(err, ErrInvalid) {
			httpx.JSONError(r, w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed",
				[]httpx.ErrorDetail{{Field: "year", Message: "is required"}})
			return
		}
		log.Error().Err(err).Str("title", in.Title).Msg("create book failed")
		httpx.JSONError(r, w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create book", nil)
		return
	}

	httpx.JSONSuccessCreated(r, w, created)
}

// List handles GET {prefix}?skip=&limit=.
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	if skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	books, err := h.service.List(r.Context(), skip, limit)
	if err != nil {
		log.Error().Err(err).Msg("list books failed")
		httpx.JSONError(r, w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch books", nil)
		return
	}

	httpx.JSONSuccess(r, w, books, map[string]any{
		"skip":  skip,
		"limit": limit,
		"count": len(books),
	})
}

// Get handles GET {prefix}/{id}.
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, id, err, "fetch")
		return
	}
	httpx.JSONSuccess(r, w, b, nil)
}

// Update handles PUT {prefix}/{id} with a partial payload.
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	var in BookUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
		return
	}
	if details := httpx.ValidateStruct(in); details != nil {
		httpx.JSONError(r, w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", details)
		return
	}

	b, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.writeErr(w, r, id, err, "update")
		return
	}
	httpx.JSONSuccess(r, w, b, nil)
}

// Delete handles DELETE {prefix}/{id} and returns the deleted record.
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	b, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, id, err, "delete")
		return
	}
	httpx.JSONSuccess(r, w, b, nil)
}

func (h *HTTPHandler) bookID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		httpx.JSONError(r, w, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) writeErr(w http.ResponseWriter, r *http.Request, id int, err error, op string) {
	if errors.Is(err, ErrNotFound) {
		httpx.JSONError(r, w, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		return
	}
	log.Error().Err(err).Int("id", id).Str("op", op).Msg("book operation failed")
	httpx.JSONError(r, w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+op+" book", nil)
}
