// Package framework provides shared helpers for end-to-end tests against a
// running silo cluster, most importantly a process-wide resilient HTTP
// client.
//
// The underlying transport, retry policy and circuit breaker are built
// exactly once per process. Tests obtain lightweight handles bound to a base
// URL, so concurrent tests against different endpoints share pooled
// connections without sharing mutable state.
package framework

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"

	"github.com/silobase/silohost/internal/logger"
)

const (
	// connectTimeout bounds TCP connection establishment.
	connectTimeout = 5 * time.Second

	// pooledConnLifetime bounds how long idle pooled connections survive, so
	// tests pick up DNS/endpoint changes quickly.
	pooledConnLifetime = 5 * time.Second

	// attemptTimeout bounds a single HTTP attempt. The outer client carries
	// no timeout of its own; expiry is owned by the resilience policy.
	attemptTimeout = 2 * time.Minute

	// totalRequestBudget bounds one logical request across all retries.
	totalRequestBudget = 10 * time.Minute

	// breakerInterval is the circuit breaker's sampling window. It must stay
	// at least twice attemptTimeout so a slow attempt cannot span windows.
	breakerInterval = 5 * time.Minute

	// maxRetries is the retry budget per logical request.
	maxRetries = 20

	// bodySnippetLimit bounds response bodies echoed into diagnostics.
	bodySnippetLimit = 512
)

var (
	sharedOnce   sync.Once
	sharedClient *retryablehttp.Client
)

// sharedRetryClient returns the process-wide resilient client, constructing
// it on first use. Repeated calls return the identical instance.
func sharedRetryClient() *retryablehttp.Client {
	sharedOnce.Do(func() {
		sharedClient = buildRetryClient()
	})
	return sharedClient
}

// serverStatusError carries a 5xx response through the circuit breaker so
// the failure is counted without violating the RoundTripper contract.
type serverStatusError struct {
	resp *http.Response
}

func (e *serverStatusError) Error() string {
	return fmt.Sprintf("server error: %s", e.resp.Status)
}

// breakerTransport runs every attempt through a circuit breaker. Network
// errors and 5xx responses count as failures; sustained failure opens the
// circuit and later attempts fail fast until the breaker half-opens.
type breakerTransport struct {
	next    http.RoundTripper
	breaker *gobreaker.CircuitBreaker
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	result, err := t.breaker.Execute(func() (any, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &serverStatusError{resp: resp}
		}
		return resp, nil
	})
	if err != nil {
		var statusErr *serverStatusError
		if errors.As(err, &statusErr) {
			return statusErr.resp, nil
		}
		return nil, err
	}
	return result.(*http.Response), nil
}

func buildRetryClient() *retryablehttp.Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "e2e-http",
		Interval: breakerInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("HTTP circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     pooledConnLifetime,
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 10 * time.Second
	rc.Logger = nil
	rc.HTTPClient = &http.Client{
		Transport: &breakerTransport{next: transport, breaker: breaker},
		Timeout:   attemptTimeout,
	}

	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logger.Warn("HTTP retry attempt %d: %s %s", attempt, req.Method, req.URL)
		}
	}

	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		// An open breaker is worth retrying: the backoff gives it time to
		// half-open again within the overall budget.
		if err != nil && (errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)) {
			logger.Warn("HTTP retry: circuit breaker open (%v)", err)
			return true, nil
		}

		retry, checkErr := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		if retry {
			logRetryDiagnostics(resp, err)
		}
		return retry, checkErr
	}

	return rc
}

// logRetryDiagnostics emits one line per failed attempt with everything
// needed to diagnose a flaky endpoint: URI, status, error and a bounded body
// snippet. The body is restored so retryablehttp can drain it.
func logRetryDiagnostics(resp *http.Response, err error) {
	switch {
	case err != nil:
		logger.Warn("HTTP attempt failed: error=%v", err)
	case resp != nil:
		snippet := ""
		if resp.Body != nil {
			limited := io.LimitReader(resp.Body, bodySnippetLimit)
			data, readErr := io.ReadAll(limited)
			if readErr == nil && len(data) > 0 {
				rest, _ := io.ReadAll(resp.Body)
				resp.Body = io.NopCloser(bytes.NewReader(append(data, rest...)))
				snippet = string(data)
			}
		}
		logger.Warn("HTTP attempt failed: %s %s status=%d (%s) body=%q",
			resp.Request.Method, resp.Request.URL, resp.StatusCode, resp.Status, snippet)
	}
}

// Response is a fully materialized HTTP response. Bodies are read inside the
// request budget so callers never hold open connections.
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
}

// Client is a handle over the shared resilient HTTP client, bound to one
// base URL. Handles are cheap; create one per target endpoint instead of
// mutating a shared base address.
type Client struct {
	base *url.URL
	rc   *retryablehttp.Client
}

// NewClient creates a handle for the given base URL, building the shared
// resilient client on first use.
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must include scheme and host", baseURL)
	}

	return &Client{
		base: u,
		rc:   sharedRetryClient(),
	}, nil
}

// Get issues a GET against path (joined to the base URL).
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, "", nil)
}

// Post issues a POST with the given content type and body.
func (c *Client) Post(ctx context.Context, path, contentType string, body []byte) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, contentType, body)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, totalRequestBudget)
	defer cancel()

	target := c.base.JoinPath(path)

	var reqBody any
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, target.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s: %w", method, target, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.rc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", target, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       data,
	}, nil
}
