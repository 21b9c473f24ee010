package database

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tclog "github.com/testcontainers/testcontainers-go/log"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// TestImageEnv overrides the Postgres image used by container tests
const TestImageEnv = "THV_CATALOG_TEST_POSTGRES_IMAGE"

const defaultTestImage = "postgres:16-alpine"

// silentLogger keeps container lifecycle chatter out of test output
type silentLogger struct{}

func (silentLogger) Printf(string, ...any) {}

var _ tclog.Logger = silentLogger{}

func testImage() string {
	if image := os.Getenv(TestImageEnv); image != "" {
		return image
	}
	return defaultTestImage
}

// SetupTestDBContainer starts an empty Postgres container and connects a pool
// to it. It skips in -short mode because it needs a container runtime.
func SetupTestDBContainer(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("Postgres container tests need a container runtime")
	}

	container, err := postgres.Run(ctx, testImage(),
		postgres.WithDatabase("catalog"),
		postgres.WithUsername("catalog"),
		postgres.WithPassword("catalog"),
		postgres.BasicWaitStrategies(),
		tc.WithLogger(silentLogger{}),
	)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)

	return pool, func() {
		pool.Close()
		tc.CleanupContainer(t, container)
	}
}

// SetupTestDB is SetupTestDBContainer with every migration applied
func SetupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	pool, cleanup := SetupTestDBContainer(t, context.Background())
	if err := MigrateUp(pool.Config().ConnString()); err != nil {
		cleanup()
		require.NoError(t, err)
	}
	return pool, cleanup
}
