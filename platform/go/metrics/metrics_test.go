package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveStepAndLookup(t *testing.T) {
	t.Parallel()
	m := New()

	m.ObserveStep("txt_record", "failed")
	m.ObserveStep("txt_record", "failed")
	m.ObserveStep("completed", "success")
	m.ObserveLookup("TXT", 10*time.Millisecond, nil)
	m.ObserveLookup("CNAME", 20*time.Millisecond, errors.New("timeout"))

	require.Equal(t, 2.0, testutil.ToFloat64(m.steps.WithLabelValues("txt_record", "failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.steps.WithLabelValues("completed", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues("TXT", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues("CNAME", "error")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	t.Parallel()
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/domains/status", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/domains/status?domain=acme.io", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/domains/status", "404")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, "domain_verification_http_requests_total"))
	require.True(t, strings.Contains(body, "go_goroutines"))
}
