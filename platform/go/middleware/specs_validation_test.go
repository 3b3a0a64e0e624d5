package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/domain-verification/contracts"
	"github.com/zenGate-Global/domain-verification/platform/go/problem"
)

func TestOpenAPIValidator(t *testing.T) {
	t.Parallel()

	spec, err := contracts.LoadDomains(context.Background())
	require.NoError(t, err)

	handler := OpenAPIValidator(spec)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{name: "valid push", method: http.MethodPost, target: "/api/domains/push", body: `{"domain":"acme.io","ip":"10.0.0.1"}`, wantStatus: http.StatusOK},
		{name: "push without ip", method: http.MethodPost, target: "/api/domains/push", body: `{"domain":"acme.io"}`, wantStatus: http.StatusBadRequest},
		{name: "verify without customer", method: http.MethodPost, target: "/api/domains/verify", body: `{"domain":"acme.io"}`, wantStatus: http.StatusBadRequest},
		{name: "status with query", method: http.MethodGet, target: "/api/domains/status?domain=acme.io&customerId=c1", wantStatus: http.StatusOK},
		{name: "status missing customer", method: http.MethodGet, target: "/api/domains/status?domain=acme.io", wantStatus: http.StatusBadRequest},
		{name: "unknown route", method: http.MethodGet, target: "/api/domains/unknown", wantStatus: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var req *http.Request
			if tc.body != "" {
				req = httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = httptest.NewRequest(tc.method, tc.target, nil)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			require.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			if tc.wantStatus != http.StatusOK {
				require.Equal(t, problem.ContentType, rec.Header().Get("Content-Type"))
				var doc problem.Details
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
				require.Equal(t, tc.wantStatus, doc.Status)
			}
		})
	}
}
