// Package http provides an HTTP client with retry logic and common utilities.
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sharkusmanch/outline-backup/pkg/version"
)

// RetryConfig configures retry behavior for the HTTP client.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns sensible default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 5 * time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// Client is an HTTP client with retry logic.
type Client struct {
	httpClient *http.Client
	retry      RetryConfig
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new HTTP client with retry capabilities.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry:  DefaultRetryConfig(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// maxResponseBody caps how much of a response body is kept.
const maxResponseBody = 1 << 20

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns nil for a 2xx status, otherwise an error naming service and
// quoting the start of the body.
func (r *Response) Err(service string) error {
	if r.OK() {
		return nil
	}
	body := strings.TrimSpace(string(r.Body))
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Errorf("%s returned status %d", service, r.StatusCode)
	}
	return fmt.Errorf("%s returned status %d: %s", service, r.StatusCode, body)
}

// retryableStatuses are the response codes worth another attempt.
var retryableStatuses = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// retryableStatus carries a response whose status is in retryableStatuses.
type retryableStatus struct {
	resp *Response
}

func (e *retryableStatus) Error() string {
	return e.resp.Err("server").Error()
}

// Do performs an HTTP request with retry logic. Transport errors and
// retryable status codes are retried with exponential backoff; when the
// attempts run out on a retryable status, that last response is returned.
func (c *Client) Do(ctx context.Context, req *http.Request) (*Response, error) {
	var bodyBytes []byte

	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		_ = req.Body.Close()
	}

	attempt := 0
	operation := func() (*Response, error) {
		attempt++

		attemptReq := req.Clone(ctx)
		if bodyBytes != nil {
			attemptReq.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
		if attemptReq.Header.Get("User-Agent") == "" {
			attemptReq.Header.Set("User-Agent", version.Get().UserAgent())
		}

		c.logger.Debug("HTTP request attempt",
			"method", req.Method,
			"url", req.URL.String(),
			"attempt", attempt,
			"max_attempts", c.retry.MaxAttempts,
		)

		resp, err := c.httpClient.Do(attemptReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		out := &Response{
			StatusCode: resp.StatusCode,
			Body:       body,
			Headers:    resp.Header,
		}
		if retryableStatuses[resp.StatusCode] {
			return nil, &retryableStatus{resp: out}
		}
		return out, nil
	}

	notify := func(err error, delay time.Duration) {
		c.logger.Warn("HTTP request failed, retrying",
			"method", req.Method,
			"url", req.URL.String(),
			"attempt", attempt,
			"error", err,
			"delay", delay,
		)
	}

	resp, err := backoff.RetryNotifyWithData(operation, c.newBackOff(ctx), notify)
	if err == nil {
		return resp, nil
	}

	var rs *retryableStatus
	if errors.As(err, &rs) {
		return rs.resp, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", attempt, err)
}

// newBackOff builds the retry schedule: InitialDelay doubling up to
// MaxDelay, without jitter, for at most MaxAttempts attempts.
func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retry.InitialDelay
	b.MaxInterval = c.retry.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	retries := c.retry.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.Do(ctx, req)
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, url string, contentType string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(ctx, req)
}

// Probe sends a single GET to each URL in turn and returns nil at the first
// 2xx answer. It does not retry; it is meant for configuration checks.
func (c *Client) Probe(ctx context.Context, urls ...string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var errs []error
	for _, u := range urls {
		err := c.probeOne(ctx, u)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return errors.New("no URL to probe")
	}
	return fmt.Errorf("connectivity check failed: %w", errors.Join(errs...))
}

func (c *Client) probeOne(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.Get().UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}
	return nil
}
