package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"fileshare/server/common/infra/db"
)

// newPostgresRepo starts a throwaway Postgres. Set TEST_INTEGRATION to run.
func newPostgresRepo(t *testing.T) *PostgresFileRepository {
	t.Helper()
	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("TEST_INTEGRATION not set")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("fileshare_test"),
		postgres.WithUsername("fileshare"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.MigratePostgres(dsn))

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewPostgresFileRepository(pool)
}

func TestPostgresRoundTrip(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()

	for _, rec := range []string{"b", "a"} {
		created := int64(2000)
		if rec == "a" {
			created = 1000
		}
		_, err := repo.Create(ctx, sampleRecord(rec, created))
		require.NoError(t, err)
	}

	got, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.Name)
	assert.True(t, sampleRecord("a", 1000).ExpiresAt.Equal(got.ExpiresAt))

	_, err = repo.GetByID(ctx, "zzz")
	assert.ErrorIs(t, err, ErrNotFound)

	items, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
}
