package persistence

import (
	"context"
	"fmt"
	"io/fs"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	sqlassets "github.com/zenGate-Global/domain-verification/database"
)

// MigrationsTable records applied goose versions.
const MigrationsTable = "goose_db_version"

// goose keeps its configuration in package globals.
var gooseMu sync.Mutex

// Migrate applies the embedded SQL migrations. It is idempotent and used by the API
// on startup (when enabled), the CLI and the integration tests.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	return MigrateFS(ctx, pool, sqlassets.Migrations(), logger)
}

// MigrateFS applies goose migrations from an arbitrary filesystem rooted at the migration files.
func MigrateFS(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS, logger *zap.Logger) error {
	if pool == nil {
		return fmt.Errorf("migrate: pool is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	// Shares the pool's connections; closing it would close the pool.
	db := stdlib.OpenDBFromPool(pool)

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{logger: logger.Sugar()})
	goose.SetTableName(MigrationsTable)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// MigrationVersion reports the latest applied migration.
func MigrationVersion(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	db := stdlib.OpenDBFromPool(pool)
	goose.SetTableName(MigrationsTable)
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, fmt.Errorf("set goose dialect: %w", err)
	}
	return goose.GetDBVersionContext(ctx, db)
}

type gooseLogger struct {
	logger *zap.SugaredLogger
}

func (g gooseLogger) Printf(format string, args ...any) {
	g.logger.Infof(format, args...)
}

// Fatalf logs only; goose still returns the error to the caller.
func (g gooseLogger) Fatalf(format string, args ...any) {
	g.logger.Errorf(format, args...)
}
