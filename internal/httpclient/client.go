// Package httpclient is C2: a uniform HTTP client core with retry,
// exponential backoff with jitter, Retry-After handling and an optional
// per-instance rate limit. The retry loop is modeled directly on the
// teacher's flow.Client.withRetry (select on time.After vs ctx.Done,
// exponential backoff, a rate.Limiter consulted before every attempt)
// generalized from gRPC status codes to HTTP status codes.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMaxAttempts = 3
	baseDelay          = time.Second
	capDelay           = 30 * time.Second
)

// Response is the result of a successful (possibly after retries) call.
type Response struct {
	Status  int
	Body    []byte
	Headers http.Header
}

// Client wraps *http.Client with the retry/backoff/rate-limit policy
// spec.md §4.2 describes. One Client instance belongs to exactly one
// fetcher instance for the lifetime of a run (§3 Ownership).
type Client struct {
	http        *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	rng         *rand.Rand
}

// Option configures a Client.
type Option func(*Client)

// WithQPS imposes a per-fetcher minimum inter-request delay, e.g. Pangle's
// declared 5 QPS cap (200ms between requests).
func WithQPS(qps float64) Option {
	return func(c *Client) {
		if qps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(qps), 1)
		}
	}
}

// WithMaxAttempts overrides the default attempt budget (3).
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithTimeout sets the underlying http.Client.Timeout (per-attempt, not
// per-call — callers scope the overall deadline via context).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New returns a Client ready for use.
func New(opts ...Option) *Client {
	c := &Client{
		http:        &http.Client{Timeout: 30 * time.Second},
		maxAttempts: defaultMaxAttempts,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request describes one HTTP call.
type Request struct {
	Method  string
	URL     string
	Query   url.Values
	Headers http.Header
	Body    []byte
}

// StatusError wraps a non-2xx response body so the caller can inspect
// it for diagnosis, per spec.md §4.2 "fail fast with the body included".
type StatusError struct {
	Status     int
	Body       []byte
	RetryAfter int // seconds, parsed from Retry-After when present (0 if absent)
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Status, truncate(e.Body, 500))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "...(truncated)"
}

// Do issues one logical request, retrying on network errors, timeouts,
// 5xx and 429 up to the configured attempt budget. Non-retryable 4xx
// responses (other than 429) return immediately as a *StatusError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	fullURL := req.URL
	if len(req.Query) > 0 {
		u, err := url.Parse(req.URL)
		if err != nil {
			return nil, fmt.Errorf("httpclient: parse url %q: %w", req.URL, err)
		}
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		fullURL = u.String()
	}

	var lastErr error
	delay := baseDelay

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.attempt(ctx, req.Method, fullURL, req.Headers, req.Body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		wait, retryable := c.nextDelay(err, delay)
		if !retryable || attempt == c.maxAttempts-1 {
			return nil, lastErr
		}
		delay *= 2
		if delay > capDelay {
			delay = capDelay
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method, fullURL string, headers http.Header, body []byte) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("httpclient: build request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Response{Status: resp.StatusCode, Body: respBody, Headers: resp.Header}, nil
	}

	return nil, &StatusError{Status: resp.StatusCode, Body: respBody, RetryAfter: parseRetryAfter(resp.Header)}
}

func parseRetryAfter(h http.Header) int {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	var seconds int
	if _, err := fmt.Sscanf(v, "%d", &seconds); err != nil {
		return 0
	}
	return seconds
}

// nextDelay decides whether err is retryable and, if so, how long to wait
// before the next attempt. It honours Retry-After on 429, otherwise falls
// back to exponential backoff with jitter: min(base*2^attempt +
// rand(0,base), cap).
func (c *Client) nextDelay(err error, currentDelay time.Duration) (time.Duration, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Status == http.StatusTooManyRequests:
			if d, ok := retryAfterFrom(statusErr); ok {
				return d, true
			}
			return c.jittered(currentDelay), true
		case statusErr.Status >= 500:
			return c.jittered(currentDelay), true
		default:
			return 0, false
		}
	}
	// Network error or timeout: retryable.
	return c.jittered(currentDelay), true
}

func (c *Client) jittered(base time.Duration) time.Duration {
	jitter := time.Duration(c.rng.Int63n(int64(baseDelay)))
	d := base + jitter
	if d > capDelay {
		d = capDelay
	}
	return d
}

// retryAfterFrom reports the server-provided Retry-After delay, if any.
func retryAfterFrom(e *StatusError) (time.Duration, bool) {
	if e.RetryAfter <= 0 {
		return 0, false
	}
	return time.Duration(e.RetryAfter) * time.Second, true
}
