package migrate

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zenGate-Global/domain-verification/platform/go/jobs"
	"github.com/zenGate-Global/domain-verification/platform/go/logging"
	"github.com/zenGate-Global/domain-verification/platform/go/persistence"
)

// Command applies the schema migrations (domains, verification logs) and optionally the job queue tables.
func Command() *cobra.Command {
	var (
		databaseURL string
		withJobs    bool
		statusOnly  bool
		logLevel    string
	)

	c := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return fmt.Errorf("--database-url or DATABASE_URL is required")
			}

			logger, err := logging.NewLogger(logging.Config{
				Component: "dvctl",
				Level:     logLevel,
				Format:    "console",
				Output:    cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			if !statusOnly {
				if err := persistence.Migrate(ctx, pool, logger); err != nil {
					return err
				}
				if withJobs {
					if err := jobs.Migrate(ctx, pool, logger); err != nil {
						return err
					}
				}
			}

			version, err := persistence.MigrationVersion(ctx, pool)
			if err != nil {
				return fmt.Errorf("read migration version: %w", err)
			}
			logger.Debug("migration state", zap.Int64("version", version), zap.Bool("jobs", withJobs))
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version: %d\n", version)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string (defaults to $DATABASE_URL)")
	c.Flags().BoolVar(&withJobs, "jobs", true, "Also apply the job queue migrations")
	c.Flags().BoolVar(&statusOnly, "status", false, "Only print the applied schema version")
	c.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	return c
}
