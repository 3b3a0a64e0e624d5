package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	platformlogging "github.com/zenGate-Global/domain-verification/platform/go/logging"
	"github.com/zenGate-Global/domain-verification/platform/go/requesttrace"
)

// RequestTrace populates the context with request-scoped AuditInfo so handlers, services and
// queued jobs can stamp the originating request. It should run after RequestID and RequestLogger.
func RequestTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := platformlogging.FromRequest(r, nil)
		requestID, _ := r.Context().Value(middleware.RequestIDKey).(string)

		audit := requesttrace.Anonymous(requestID)
		if header := r.Header.Get(requesttrace.CustomerHeader); header != "" {
			if customer, err := requesttrace.ForCustomer(header, requestID); err == nil {
				audit = customer
			}
		}
		audit.RemoteAddr = r.RemoteAddr

		ctx := requesttrace.IntoContext(r.Context(), audit)
		if logger != nil {
			fields := []zap.Field{zap.String("actor_kind", string(audit.ActorKind))}
			if audit.CustomerID != nil {
				fields = append(fields, zap.String("customer_id", *audit.CustomerID))
			}
			ctx = platformlogging.WithLogger(ctx, logger.With(fields...))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
