package main

import (
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	verificationhandler "github.com/zenGate-Global/domain-verification/domains/verification/be/handler"
	"github.com/zenGate-Global/domain-verification/platform/go/health"
	platformlogging "github.com/zenGate-Global/domain-verification/platform/go/logging"
	"github.com/zenGate-Global/domain-verification/platform/go/metrics"
	platformmiddleware "github.com/zenGate-Global/domain-verification/platform/go/middleware"
)

type routerDeps struct {
	Handler        *verificationhandler.Handler
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	Spec           *openapi3.T
	RateLimit      func(http.Handler) http.Handler
	Readiness      health.Checks
	CORSOrigins    []string
	RequestTimeout time.Duration
}

func newRouter(deps routerDeps) http.Handler {
	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		platformmiddleware.CORS(deps.CORSOrigins),
	)
	if deps.RequestTimeout > 0 {
		rootRouter.Use(chimw.Timeout(deps.RequestTimeout))
	}
	rootRouter.Use(platformlogging.RequestLogger(deps.Logger, "/healthz", "/readyz", "/metrics"))
	rootRouter.Use(deps.Metrics.Middleware)
	rootRouter.Use(platformmiddleware.RequestTrace)

	rootRouter.Get("/healthz", health.LivenessHandler())
	rootRouter.Get("/readyz", health.ReadinessHandler(deps.Readiness, health.WithLogger(deps.Logger)))
	rootRouter.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	// ---- Swagger UI + OpenAPI document (public) ----
	registerDocsRoutes(rootRouter, deps.Spec, deps.Logger)

	rootRouter.Get("/", deps.Handler.Root)

	rootRouter.Route("/api/domains", func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit)
		}
		r.Use(platformmiddleware.OpenAPIValidator(deps.Spec))
		deps.Handler.Routes(r)
	})

	return rootRouter
}
