package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/zenGate-Global/domain-verification/contracts"
	verificationhandler "github.com/zenGate-Global/domain-verification/domains/verification/be/handler"
	verificationrepo "github.com/zenGate-Global/domain-verification/domains/verification/be/repo"
	"github.com/zenGate-Global/domain-verification/domains/verification/be/routing"
	verificationservice "github.com/zenGate-Global/domain-verification/domains/verification/be/service"
	"github.com/zenGate-Global/domain-verification/platform/go/dnsresolver"
	"github.com/zenGate-Global/domain-verification/platform/go/health"
	"github.com/zenGate-Global/domain-verification/platform/go/jobs"
	platformlogging "github.com/zenGate-Global/domain-verification/platform/go/logging"
	"github.com/zenGate-Global/domain-verification/platform/go/metrics"
	platformmiddleware "github.com/zenGate-Global/domain-verification/platform/go/middleware"
	"github.com/zenGate-Global/domain-verification/platform/go/persistence"
	"github.com/zenGate-Global/domain-verification/platform/go/rdb"
)

const (
	backendPostgres = "postgres"
	backendSQLite   = "sqlite"
	backendMemory   = "memory"
)

type config struct {
	Port               string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat          string        `env:"LOG_FORMAT" envDefault:"json"`
	StoreBackend       string        `env:"STORE_BACKEND" envDefault:"postgres"` // postgres | sqlite | memory
	SQLiteDSN          string        `env:"SQLITE_DSN" envDefault:"file:domains.db"`
	AutoMigrate        bool          `env:"AUTO_MIGRATE" envDefault:"true"`
	TokenTTL           time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	DNSFixturesFile    string        `env:"DNS_FIXTURES_FILE"`
	RedisURL           string        `env:"REDIS_URL"`
	RateLimit          string        `env:"RATE_LIMIT" envDefault:"60-M"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	Pool     persistence.PoolConfig
	DNS      dnsresolver.Config
	Defaults verificationhandler.Defaults
	Jobs     jobs.Config
}

func main() {
	ctx := context.Background()

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "domain-verification-api",
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("api server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	m := metrics.New()
	readiness := health.Checks{}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()
	readiness["database"] = health.PingCheck(store.repo)

	resolver, err := buildResolver(cfg, m, logger)
	if err != nil {
		return err
	}

	var queue *jobs.Queue
	hook := verificationservice.VerifiedHook(verificationservice.VerifiedHookFunc(func(ctx context.Context, record verificationservice.DomainRecord) error {
		platformlogging.FromContextOr(ctx, logger).Info("domain verified", zap.String("domain", record.Name), zap.String("domain_id", record.ID.String()))
		return nil
	}))
	if store.pool != nil && cfg.Jobs.Enabled {
		workers := river.NewWorkers()
		routing.Register(workers, routing.NewWorker(logger.Named("routing"), nil))

		queue, err = jobs.New(store.pool, workers, cfg.Jobs, logger.Named("jobs"))
		if err != nil {
			return err
		}
		if err := queue.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := queue.Stop(stopCtx); err != nil {
				logger.Error("stop job queue", zap.Error(err))
			}
		}()
		hook = routing.NewHook(queue)
		readiness["jobs"] = queue.Healthcheck
	}

	rateLimitCfg := platformmiddleware.RateLimitConfig{Rate: cfg.RateLimit}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		defer func() {
			_ = client.Close()
		}()

		rateLimitCfg.Store, err = platformmiddleware.NewRedisStore(client)
		if err != nil {
			return err
		}
		readiness["redis"] = health.RedisCheck(client)
	}
	rateLimit, err := platformmiddleware.RateLimit(rateLimitCfg)
	if err != nil {
		return err
	}

	svc := verificationservice.New(
		verificationrepo.WithStepMetrics(store.repo, m),
		resolver,
		verificationservice.WithLogger(logger.Named("verification")),
		verificationservice.WithTokenTTL(cfg.TokenTTL),
		verificationservice.WithVerifiedHook(hook),
	)

	spec, err := contracts.LoadDomains(ctx)
	if err != nil {
		return err
	}

	router := newRouter(routerDeps{
		Handler:        verificationhandler.New(svc, logger, cfg.Defaults),
		Logger:         logger,
		Metrics:        m,
		Spec:           spec,
		RateLimit:      rateLimit,
		Readiness:      readiness,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting api server",
			zap.String("port", cfg.Port),
			zap.String("store_backend", cfg.StoreBackend),
			zap.Bool("jobs_enabled", queue != nil),
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen failed: %w", err)
		}
	case <-stop:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	return nil
}

type storeHandle struct {
	repo  verificationservice.Repository
	pool  *pgxpool.Pool
	close func()
}

func openStore(ctx context.Context, cfg config, logger *zap.Logger) (storeHandle, error) {
	switch cfg.StoreBackend {
	case backendPostgres:
		pool, err := persistence.NewPool(ctx, cfg.Pool)
		if err != nil {
			return storeHandle{}, fmt.Errorf("init postgres pool: %w", err)
		}
		if cfg.AutoMigrate {
			if err := persistence.Migrate(ctx, pool, logger); err != nil {
				persistence.ClosePool(pool)
				return storeHandle{}, err
			}
			if cfg.Jobs.Enabled {
				if err := jobs.Migrate(ctx, pool, logger); err != nil {
					persistence.ClosePool(pool)
					return storeHandle{}, err
				}
			}
		}
		domainStore, err := persistence.NewDomainStore(pool)
		if err != nil {
			persistence.ClosePool(pool)
			return storeHandle{}, err
		}
		return storeHandle{
			repo:  verificationrepo.NewPostgresRepository(domainStore),
			pool:  pool,
			close: func() { persistence.ClosePool(pool) },
		}, nil

	case backendSQLite:
		db, err := rdb.OpenFromURL("sqlite:" + cfg.SQLiteDSN)
		if err != nil {
			return storeHandle{}, fmt.Errorf("open sqlite: %w", err)
		}
		if cfg.AutoMigrate {
			if err := rdb.AutoMigrate(db); err != nil {
				_ = rdb.Close(db)
				return storeHandle{}, fmt.Errorf("migrate sqlite: %w", err)
			}
		}
		domainStore, err := rdb.NewDomainStore(db)
		if err != nil {
			_ = rdb.Close(db)
			return storeHandle{}, err
		}
		return storeHandle{
			repo:  verificationrepo.NewSQLiteRepository(domainStore),
			close: func() { _ = rdb.Close(db) },
		}, nil

	case backendMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return storeHandle{repo: verificationrepo.NewMemoryRepository(), close: func() {}}, nil

	default:
		return storeHandle{}, fmt.Errorf("invalid STORE_BACKEND %q (use postgres, sqlite or memory)", cfg.StoreBackend)
	}
}

func buildResolver(cfg config, m *metrics.Metrics, logger *zap.Logger) (verificationservice.Resolver, error) {
	if cfg.DNSFixturesFile != "" {
		static, err := dnsresolver.LoadStaticFile(cfg.DNSFixturesFile)
		if err != nil {
			return nil, err
		}
		logger.Warn("serving DNS answers from fixtures file", zap.String("path", cfg.DNSFixturesFile))
		return static, nil
	}
	return dnsresolver.New(cfg.DNS, dnsresolver.WithObserver(m)), nil
}
