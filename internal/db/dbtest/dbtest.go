// Package dbtest starts a disposable PostgreSQL container with the service schema applied.
package dbtest

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nortsur/pedidos/internal/db"
)

// New returns a migrated database. The test is skipped under -short or when no
// container provider is available.
func New(t *testing.T) *db.Postgres {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("pedidos_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrateURL := "pgx5://" + strings.TrimPrefix(dsn, "postgres://")
	require.NoError(t, db.Migrate(migrateURL, migrationsDir()))

	poolConfig, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)

	pg, err := db.Connect(ctx, poolConfig)
	require.NoError(t, err)
	t.Cleanup(pg.Close)

	return pg
}

func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "..", "migrations")
}
