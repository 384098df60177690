package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MoovFleet/MoovFleet/internal/common/middleware"
)

const apiErrorBodyLimit = 512

// APIError is the typed failure for any platform API call. It carries enough
// context for the run summary without dumping whole response bodies into logs.
type APIError struct {
	Endpoint string
	Status   int
	Body     string // truncated
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform api %s: status %d: %s", e.Endpoint, e.Status, e.Body)
}

// Credentials are the fixed headers the platform authenticates with.
type Credentials struct {
	ClientID string
	APIKey   string
	ParkID   string
}

// Validate reports missing credentials.
func (c Credentials) Validate() error {
	if c.ClientID == "" || c.APIKey == "" {
		return fmt.Errorf("platform credentials not configured")
	}
	if c.ParkID == "" {
		return fmt.Errorf("platform park id not configured")
	}
	return nil
}

// Client is the low-level HTTP client shared by the three fetch operations.
// Calls go through a rate limiter and a circuit breaker; there are no retries
// here, retry policy belongs to the caller.
type Client struct {
	baseURL string
	creds   Credentials
	http    *http.Client
	breaker *middleware.CircuitBreaker
	limiter *middleware.TokenBucket
}

// NewClient builds a platform client.
func NewClient(baseURL string, creds Credentials, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		creds:   creds,
		http:    &http.Client{Timeout: timeout},
		breaker: middleware.NewCircuitBreaker("platform-api", 5, 30*time.Second),
		limiter: middleware.NewTokenBucket(10, 5),
	}
}

// post issues one JSON request against endpoint and decodes the envelope
// into out. Any non-2xx response becomes an *APIError.
func (c *Client) post(ctx context.Context, endpoint string, body interface{}, out interface{}) error {
	if c == nil || c.http == nil {
		return fmt.Errorf("platform client not initialized")
	}
	if err := c.creds.Validate(); err != nil {
		return err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request for %s: %w", endpoint, err)
	}

	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to build request for %s: %w", endpoint, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Client-ID", c.creds.ClientID)
		req.Header.Set("X-API-Key", c.creds.APIKey)
		req.Header.Set("X-Park-ID", c.creds.ParkID)

		resp, err := c.http.Do(req)
		if err != nil {
			return &APIError{Endpoint: endpoint, Status: 0, Body: truncate(err.Error(), apiErrorBodyLimit)}
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return &APIError{Endpoint: endpoint, Status: resp.StatusCode, Body: truncate(err.Error(), apiErrorBodyLimit)}
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &APIError{Endpoint: endpoint, Status: resp.StatusCode, Body: truncate(string(raw), apiErrorBodyLimit)}
		}
		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return &APIError{Endpoint: endpoint, Status: resp.StatusCode, Body: truncate("bad json: "+err.Error(), apiErrorBodyLimit)}
			}
		}
		return nil
	}

	if c.breaker != nil {
		return c.breaker.Call(ctx, call)
	}
	return call()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
