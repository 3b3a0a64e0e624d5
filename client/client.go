// Package client is a typed Go client for the domain verification API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/zenGate-Global/domain-verification/platform/go/problem"
)

const (
	DefaultBaseURL = "http://localhost:3000"
	defaultTimeout = 30 * time.Second
	customerHeader = "X-Customer-ID"
)

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Problem    problem.Details
}

func (e *APIError) Error() string {
	if e.Problem.Title != "" {
		return fmt.Sprintf("domain verification api: %d %s", e.StatusCode, e.Problem.Error())
	}
	return fmt.Sprintf("domain verification api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	validate   *validator.Validate
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New builds a client; an empty baseURL targets DefaultBaseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) RegisterDomain(ctx context.Context, in RegisterDomainInput) (RegisterDomainResponse, error) {
	var out RegisterDomainResponse
	if err := c.validate.Struct(in); err != nil {
		return out, fmt.Errorf("invalid register domain input: %w", err)
	}
	customer := ""
	if in.CustomerID != nil {
		customer = *in.CustomerID
	}
	err := c.do(ctx, http.MethodPost, "/api/domains/push", nil, in, customer, &out)
	return out, err
}

func (c *Client) GenerateVerificationToken(ctx context.Context, in VerificationInput) (GenerateTokenResponse, error) {
	var out GenerateTokenResponse
	if err := c.validate.Struct(in); err != nil {
		return out, fmt.Errorf("invalid verification input: %w", err)
	}
	err := c.do(ctx, http.MethodPost, "/api/domains/verify", nil, in, in.CustomerID, &out)
	return out, err
}

func (c *Client) CheckDomainVerification(ctx context.Context, in VerificationInput) (CheckVerificationResponse, error) {
	var out CheckVerificationResponse
	if err := c.validate.Struct(in); err != nil {
		return out, fmt.Errorf("invalid verification input: %w", err)
	}
	err := c.do(ctx, http.MethodPost, "/api/domains/check", nil, in, in.CustomerID, &out)
	return out, err
}

func (c *Client) GetDomainStatus(ctx context.Context, q DomainQuery) (DomainStatusResponse, error) {
	var out DomainStatusResponse
	if err := c.validate.Struct(q); err != nil {
		return out, fmt.Errorf("invalid domain query: %w", err)
	}
	err := c.do(ctx, http.MethodGet, "/api/domains/status", q.values(), nil, q.CustomerID, &out)
	return out, err
}

func (c *Client) GetVerificationInstructions(ctx context.Context, q InstructionsQuery) (InstructionsResponse, error) {
	var out InstructionsResponse
	if err := c.validate.Struct(q.DomainQuery); err != nil {
		return out, fmt.Errorf("invalid domain query: %w", err)
	}
	values := q.values()
	if q.ServiceHost != "" {
		values.Set("serviceHost", q.ServiceHost)
	}
	if q.TxtRecordVerifyKey != "" {
		values.Set("txtRecordVerifyKey", q.TxtRecordVerifyKey)
	}
	err := c.do(ctx, http.MethodGet, "/api/domains/instructions", values, nil, q.CustomerID, &out)
	return out, err
}

func (c *Client) ListVerificationLogs(ctx context.Context, q DomainQuery) (LogsResponse, error) {
	var out LogsResponse
	if err := c.validate.Struct(q); err != nil {
		return out, fmt.Errorf("invalid domain query: %w", err)
	}
	err := c.do(ctx, http.MethodGet, "/api/domains/logs", q.values(), nil, q.CustomerID, &out)
	return out, err
}

// HealthCheck calls the service root, which also checks the database.
func (c *Client) HealthCheck(ctx context.Context) (HealthCheckResponse, error) {
	var out HealthCheckResponse
	err := c.do(ctx, http.MethodGet, "/", nil, nil, "", &out)
	return out, err
}

func (q DomainQuery) values() url.Values {
	return url.Values{
		"domain":     {q.Domain},
		"customerId": {q.CustomerID},
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, customerID string, out any) error {
	target := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if customerID != "" {
		req.Header.Set(customerHeader, customerID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(raw, &apiErr.Problem)
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
