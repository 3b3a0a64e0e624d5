package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	limiterhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	platformlogging "github.com/zenGate-Global/domain-verification/platform/go/logging"
	"github.com/zenGate-Global/domain-verification/platform/go/problem"
)

const rateLimitPrefix = "domain-verification:ratelimit"

// RateLimitConfig configures the per-client request limiter.
type RateLimitConfig struct {
	// Rate uses the limiter format, e.g. "60-M" or "1000-H".
	Rate  string `env:"RATE_LIMIT" envDefault:"60-M"`
	Store limiter.Store
	// KeyHeader, when set, buckets requests by this header before falling back to the client IP.
	KeyHeader string
}

// NewMemoryStore returns an in-process limiter store.
func NewMemoryStore() limiter.Store {
	return memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          rateLimitPrefix,
		CleanUpInterval: time.Minute,
	})
}

// NewRedisStore returns a limiter store shared through redis.
func NewRedisStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   rateLimitPrefix,
		MaxRetry: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis limiter store: %w", err)
	}
	return store, nil
}

// RateLimit rejects clients over the configured rate with a 429 problem document.
func RateLimit(cfg RateLimitConfig) (func(http.Handler) http.Handler, error) {
	spec := strings.TrimSpace(cfg.Rate)
	if spec == "" {
		spec = "60-M"
	}
	rate, err := limiter.NewRateFromFormatted(spec)
	if err != nil {
		return nil, fmt.Errorf("parse rate limit %q: %w", spec, err)
	}

	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}

	instance := limiter.New(store, rate)
	options := []limiterhttp.Option{
		limiterhttp.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			problem.Write(w, problem.New(http.StatusTooManyRequests, problem.TypeRateLimited,
				"Too many requests", fmt.Sprintf("rate limit of %d requests per %s exceeded", rate.Limit, rate.Period)))
		}),
		limiterhttp.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			platformlogging.FromContextOr(r.Context(), zap.NewNop()).Error("rate limiter store failed", zap.Error(err))
			problem.Write(w, problem.New(http.StatusInternalServerError, problem.TypeInternal,
				"Internal server error", "an unexpected error occurred"))
		}),
	}
	if header := strings.TrimSpace(cfg.KeyHeader); header != "" {
		options = append(options, limiterhttp.WithKeyGetter(func(r *http.Request) string {
			if key := strings.TrimSpace(r.Header.Get(header)); key != "" {
				return header + ":" + key
			}
			return instance.GetIPKey(r)
		}))
	}

	return limiterhttp.NewMiddleware(instance, options...).Handler, nil
}
