// Package jobs runs the river job queue on the shared postgres pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertype"
	"go.uber.org/zap"
)

var (
	ErrPoolRequired   = errors.New("jobs: pool is required")
	ErrAlreadyStarted = errors.New("jobs: queue already started")
	ErrNotStarted     = errors.New("jobs: queue not started")
)

// Config holds the queue settings read from the environment.
type Config struct {
	Enabled    bool `env:"JOBS_ENABLED" envDefault:"true"`
	MaxWorkers int  `env:"JOBS_MAX_WORKERS" envDefault:"10"`
}

// Inserter enqueues river jobs.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// Queue owns a river client and its lifecycle.
type Queue struct {
	pool   *pgxpool.Pool
	client *river.Client[pgx.Tx]
	logger *zap.Logger

	mu      sync.Mutex
	started bool
}

// New builds a queue processing the registered workers. Jobs can be inserted before Start.
func New(pool *pgxpool.Pool, workers *river.Workers, cfg Config, logger *zap.Logger) (*Queue, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 10
	}

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.MaxWorkers},
		},
		Workers: workers,
		Logger:  riverLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("jobs: create client: %w", err)
	}

	return &Queue{pool: pool, client: client, logger: logger}, nil
}

// Insert enqueues a job.
func (q *Queue) Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	res, err := q.client.Insert(ctx, args, opts)
	if err != nil {
		return nil, fmt.Errorf("jobs: insert %s: %w", args.Kind(), err)
	}
	return res, nil
}

func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return ErrAlreadyStarted
	}
	if err := q.client.Start(ctx); err != nil {
		return fmt.Errorf("jobs: start client: %w", err)
	}
	q.started = true
	q.logger.Info("job queue started")
	return nil
}

// Stop waits for running jobs to finish or ctx to expire.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.started {
		return ErrNotStarted
	}
	if err := q.client.Stop(ctx); err != nil {
		return fmt.Errorf("jobs: stop client: %w", err)
	}
	q.started = false
	q.logger.Info("job queue stopped")
	return nil
}

// Healthcheck fails until the queue is started, then pings the pool.
func (q *Queue) Healthcheck(ctx context.Context) error {
	q.mu.Lock()
	started := q.started
	q.mu.Unlock()

	if !started {
		return ErrNotStarted
	}
	return q.pool.Ping(ctx)
}

// Migrate brings the river schema up to date.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		return ErrPoolRequired
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), &rivermigrate.Config{Logger: riverLogger()})
	if err != nil {
		return fmt.Errorf("jobs: create migrator: %w", err)
	}

	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("jobs: migrate: %w", err)
	}
	for _, version := range res.Versions {
		logger.Info("applied river migration", zap.Int("version", version.Version), zap.Duration("duration", version.Duration))
	}
	return nil
}

// river logs through slog; keep it to warnings on stderr next to the zap output.
func riverLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
