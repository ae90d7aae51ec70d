package book

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const bookColumns = "id, title, author, year, genre, pages, available, cover_url, description, rating"

// PostgresRepo stores books in a Postgres table. Every mutating
// operation runs in its own transaction and is rolled back on failure;
// id assignment is delegated to the table's identity column.
type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

type pgRow interface {
	Scan(dest ...any) error
}

func scanBook(row pgRow) (Book, error) {
	var b Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Year, &b.Genre, &b.Pages, &b.Available, &b.CoverURL, &b.Description, &b.Rating)
	return b, err
}

func (r *PostgresRepo) Get(ctx context.Context, id int) (Book, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.db.QueryRow(ctx, "SELECT "+bookColumns+" FROM books WHERE id = $1", id)
	b, err := scanBook(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("get book %d: %w", id, err)
	}
	return b, nil
}

func (r *PostgresRepo) List(ctx context.Context, skip, limit int) ([]Book, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, "SELECT "+bookColumns+" FROM books ORDER BY id LIMIT $1 OFFSET $2", limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("list books: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (r *PostgresRepo) Create(ctx context.Context, in BookCreate) (Book, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Book{}, fmt.Errorf("create book: %w", err)
	}
	defer tx.Rollback(ctx)

	rec := in.withID(0)
	row := tx.QueryRow(ctx, `
		INSERT INTO books (title, author, year, genre, pages, available, cover_url, description, rating)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		rec.Title, rec.Author, rec.Year, rec.Genre, rec.Pages, rec.Available, rec.CoverURL, rec.Description, rec.Rating,
	)
	if err := row.Scan(&rec.ID); err != nil {
		return Book{}, fmt.Errorf("create book: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Book{}, fmt.Errorf("create book: %w", err)
	}
	log.Info().Int("id", rec.ID).Str("title", rec.Title).Msg("book created in database")
	return rec, nil
}

func (r *PostgresRepo) Update(ctx context.Context, id int, in BookUpdate) (Book, error) {
	sets := []string{}
	args := []any{}
	argn := 1

	add := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argn))
		args = append(args, val)
		argn++
	}
	if in.Title != nil {
		add("title", *in.Title)
	}
	if in.Author != nil {
		add("author", *in.Author)
	}
	if in.Year != nil {
		add("year", *in.Year)
	}
	if in.Genre != nil {
		add("genre", *in.Genre)
	}
	if in.Pages != nil {
		add("pages", *in.Pages)
	}
	if in.Available != nil {
		add("available", *in.Available)
	}
	if in.CoverURL != nil {
		add("cover_url", *in.CoverURL)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Rating != nil {
		add("rating", *in.Rating)
	}

	if len(sets) == 0 {
		// Nothing to change; an empty update still reports a missing id.
		return r.Get(ctx, id)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Book{}, fmt.Errorf("update book %d: %w", id, err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf("UPDATE books SET %s WHERE id = $%d RETURNING %s", strings.Join(sets, ", "), argn, bookColumns)
	args = append(args, id)

	b, err := scanBook(tx.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("update book %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Book{}, fmt.Errorf("update book %d: %w", id, err)
	}
	log.Info().Int("id", id).Msg("book updated in database")
	return b, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id int) (Book, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Book{}, fmt.Errorf("delete book %d: %w", id, err)
	}
	defer tx.Rollback(ctx)

	b, err := scanBook(tx.QueryRow(ctx, "DELETE FROM books WHERE id = $1 RETURNING "+bookColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("delete book %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Book{}, fmt.Errorf("delete book %d: %w", id, err)
	}
	log.Info().Int("id", id).Msg("book deleted from database")
	return b, nil
}
