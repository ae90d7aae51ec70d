package book

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a migrated database; set TEST_DB_DSN to run.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set; skipping Postgres repo tests")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(context.Background(), "TRUNCATE books RESTART IDENTITY")
	require.NoError(t, err)
	return pool
}

func TestPostgresRepo_CRUDRoundtrip(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresRepo(pool, 5*time.Second)
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleCreate("Solaris"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.True(t, created.Available)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := repo.Update(ctx, created.ID, BookUpdate{
		Pages:  ptr(300),
		Rating: ptr(4.8),
	})
	require.NoError(t, err)
	assert.Equal(t, 300, updated.Pages)
	require.NotNil(t, updated.Rating)
	assert.Equal(t, 4.8, *updated.Rating)
	assert.Equal(t, created.Title, updated.Title)

	_, err = repo.Update(ctx, 999999, BookUpdate{Pages: ptr(1)})
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, deleted)

	_, err = repo.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresRepo_ListOrderedByID(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresRepo(pool, 5*time.Second)
	ctx := context.Background()

	var ids []int
	for i := 0; i < 5; i++ {
		b, err := repo.Create(ctx, sampleCreate("Book"))
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	books, err := repo.List(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, ids[1], books[0].ID)
	assert.Equal(t, ids[3], books[2].ID)
}

func TestPostgresRepo_EmptyUpdateBehavesLikeGet(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPostgresRepo(pool, 5*time.Second)
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleCreate("Solaris"))
	require.NoError(t, err)

	got, err := repo.Update(ctx, created.ID, BookUpdate{})
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = repo.Update(ctx, 999999, BookUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}
