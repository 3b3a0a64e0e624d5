package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/domain-verification/domains/verification/be/service"
	"github.com/zenGate-Global/domain-verification/platform/go/persistence"
)

func TestPostgresRepository(t *testing.T) {
	t.Parallel()

	if testing.Short() {
		t.Skip("skipping postgres repository integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("domains"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connString, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	admin, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: connString})
	require.NoError(t, err)
	t.Cleanup(func() { persistence.ClosePool(admin) })

	// Each subtest gets its own database so the contract starts from an empty store.
	var n int
	runRepositoryContract(t, func(t *testing.T) service.Repository {
		n++
		dbName := fmt.Sprintf("contract_%d", n)
		_, err := admin.Exec(ctx, "CREATE DATABASE "+dbName)
		require.NoError(t, err)

		cfg, err := pgxpool.ParseConfig(connString)
		require.NoError(t, err)
		cfg.ConnConfig.Database = dbName

		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		require.NoError(t, err)
		t.Cleanup(pool.Close)

		require.NoError(t, persistence.Migrate(ctx, pool, zaptest.NewLogger(t)))

		store, err := persistence.NewDomainStore(pool)
		require.NoError(t, err)
		return NewPostgresRepository(store)
	})
}
