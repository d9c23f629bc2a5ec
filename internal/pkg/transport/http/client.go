// Package http builds the retrying HTTP client shared by the chain readers,
// the price provider and the chat adapter.
package http

import (
	"net/http"
	"time"

	"github.com/gabapcia/walletbot/internal/pkg/logger"

	"github.com/hashicorp/go-retryablehttp"
)

const defaultUserAgent = "walletbot"

type config struct {
	timeout      time.Duration // per attempt
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	retryMax     int
	userAgent    string
}

// Option configures NewClient.
type Option func(*config)

// NewClient returns a retryablehttp.Client. Defaults: 5s per attempt, 1s to
// 5s backoff, 2 retries, User-Agent "walletbot".
//
// When retries run out on a retryable status (429, 5xx) the last response is
// returned instead of an error, so callers report the real status code.
func NewClient(opts ...Option) *retryablehttp.Client {
	cfg := config{
		timeout:      5 * time.Second,
		retryWaitMin: time.Second,
		retryWaitMax: 5 * time.Second,
		retryMax:     2,
		userAgent:    defaultUserAgent,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	client := retryablehttp.NewClient()
	client.Logger = nil
	client.HTTPClient.Timeout = cfg.timeout
	client.HTTPClient.Transport = &userAgentTransport{
		base:      client.HTTPClient.Transport,
		userAgent: cfg.userAgent,
	}
	client.RetryWaitMin = cfg.retryWaitMin
	client.RetryWaitMax = cfg.retryWaitMax
	client.RetryMax = cfg.retryMax
	client.RequestLogHook = logRetry
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

// userAgentTransport sets User-Agent on requests that do not carry one.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" && t.userAgent != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(req)
}

func logRetry(_ retryablehttp.Logger, req *http.Request, attempt int) {
	if attempt == 0 {
		return
	}

	logger.Debug(req.Context(), "retrying http request",
		"http.method", req.Method,
		"http.host", req.URL.Host,
		"http.path", req.URL.Path,
		"http.attempt", attempt,
	)
}

func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

func WithRetryWaitMin(d time.Duration) Option {
	return func(c *config) {
		c.retryWaitMin = d
	}
}

func WithRetryWaitMax(d time.Duration) Option {
	return func(c *config) {
		c.retryWaitMax = d
	}
}

// WithRetryMax sets how many times a failed request is retried. Zero disables retries.
func WithRetryMax(n int) Option {
	return func(c *config) {
		c.retryMax = n
	}
}

// WithUserAgent replaces the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *config) {
		c.userAgent = ua
	}
}
