package domain

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/domain-verification/client"
)

func runDomainCommand(t *testing.T, apiURL string, args ...string) (string, error) {
	t.Helper()

	cmd := Command()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--api-url", apiURL))

	err := cmd.Execute()
	return out.String(), err
}

func TestPushCommandSendsRegistration(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/domains/push", r.URL.Path)
		require.Equal(t, "cust-1", r.Header.Get("X-Customer-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"Domain registered","domain":{"id":"d-1","name":"example.com","ip":"10.0.0.1","customerId":"cust-1","isVerified":false}}`))
	}))
	defer srv.Close()

	out, err := runDomainCommand(t, srv.URL, "push", "--domain", "example.com", "--ip", "10.0.0.1", "--customer-id", "cust-1")
	require.NoError(t, err)
	require.Equal(t, "example.com", got["domain"])
	require.Equal(t, "10.0.0.1", got["ip"])

	var res client.RegisterDomainResponse
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.True(t, res.Success)
	require.Equal(t, "d-1", res.Domain.ID)
}

func TestInstructionsCommandForwardsOverrides(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/domains/instructions", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "example.com", q.Get("domain"))
		require.Equal(t, "cust-1", q.Get("customerId"))
		require.Equal(t, "edge.example.net", q.Get("serviceHost"))
		require.Equal(t, "_verify", q.Get("txtRecordVerifyKey"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"instructions":{"step1":{"type":"TXT","name":"_verify.example.com","value":"tok","instruction":"add txt"},"step2":{"type":"CNAME","name":"example.com","value":"edge.example.net","instruction":"add cname"}}}`))
	}))
	defer srv.Close()

	out, err := runDomainCommand(t, srv.URL, "instructions",
		"--domain", "example.com", "--customer-id", "cust-1",
		"--service-host", "edge.example.net", "--txt-key", "_verify")
	require.NoError(t, err)

	var res client.InstructionsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, "TXT", res.Instructions.Step1.Type)
	require.Equal(t, "edge.example.net", res.Instructions.Step2.Value)
}

func TestCheckCommandSurfacesProblem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"type":"https://domain-verification.dev/problems/verification-failed","title":"Verification failed","status":422,"detail":"TXT record verification failed"}`))
	}))
	defer srv.Close()

	_, err := runDomainCommand(t, srv.URL, "check", "--domain", "example.com", "--customer-id", "cust-1")
	require.Error(t, err)
	require.True(t, client.IsStatus(err, http.StatusUnprocessableEntity))
	require.Contains(t, err.Error(), "TXT record verification failed")
}

func TestStatusCommandRequiresFlags(t *testing.T) {
	_, err := runDomainCommand(t, "http://127.0.0.1:1", "status", "--domain", "example.com")
	require.Error(t, err)
	require.Contains(t, err.Error(), "customer-id")
}

func TestDomainCommandRejectsRelativeAPIURL(t *testing.T) {
	_, err := runDomainCommand(t, "localhost", "logs", "--domain", "example.com", "--customer-id", "cust-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must be absolute")
}
