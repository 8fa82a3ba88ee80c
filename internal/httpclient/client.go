package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Common errors. ErrNotFound, ErrForbidden, ErrUnauthorized and
// ErrBadRequest are fatal for a request; ErrServerError and
// ErrRateLimited are transient and worth retrying.
var (
	ErrNotFound     = errors.New("httpclient: resource not found")
	ErrForbidden    = errors.New("httpclient: access forbidden")
	ErrUnauthorized = errors.New("httpclient: unauthorized")
	ErrBadRequest   = errors.New("httpclient: bad request")
	ErrServerError  = errors.New("httpclient: server error")
	ErrRateLimited  = errors.New("httpclient: rate limited")
)

// defaultUserAgent mimics a desktop browser. The catalog service
// rejects requests with obviously non-browser agents.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures the HTTP client.
type Options struct {
	// Token is the bearer token sent in the Authorization header.
	// Empty means unauthenticated requests.
	Token string

	// Proxy routes all requests through the given proxy URL. Nil uses
	// a direct connection, ignoring proxy environment variables.
	Proxy *url.URL

	// ResponseHeaderTimeout bounds the wait for response headers. The
	// body itself is not covered: streaming a large file takes as long
	// as it takes, bounded by the request context.
	// Default: 30s
	ResponseHeaderTimeout time.Duration

	// UserAgent overrides the default user agent string.
	UserAgent string

	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 8
	MaxIdleConnsPerHost int
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		ResponseHeaderTimeout: 30 * time.Second,
		MaxIdleConnsPerHost:   8,
	}
}

// Response is a successful GET response. The caller owns Body and must
// close it.
type Response struct {
	// ContentLength is the server-declared body length, or -1 if the
	// server did not declare one.
	ContentLength int64
	Body          io.ReadCloser
}

// Client issues authenticated GET requests against the catalog service
// and its file hosts.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a client with the given options.
func NewClient(opts Options) *Client {
	if opts.ResponseHeaderTimeout == 0 {
		opts.ResponseHeaderTimeout = 30 * time.Second
	}
	if opts.MaxIdleConnsPerHost == 0 {
		opts.MaxIdleConnsPerHost = 8
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		MaxIdleConns:          opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		DisableCompression:    true, // raw bytes; lengths must match the declared size
	}
	if opts.Proxy != nil {
		proxy := opts.Proxy
		transport.Proxy = func(*http.Request) (*url.URL, error) { return proxy, nil }
	} else {
		transport.Proxy = nil
	}

	return &Client{
		client: &http.Client{Transport: transport},
		opts:   opts,
	}
}

// Get issues one GET request and returns the open body. Non-success
// statuses are mapped to the package sentinel errors and the body is
// drained and closed before returning.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}

	if err := checkStatusCode(resp.StatusCode); err != nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}

	return &Response{
		ContentLength: resp.ContentLength,
		Body:          resp.Body,
	}, nil
}

// GetJSON issues one GET request with an application/json Accept
// header and decodes the response body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if err := checkStatusCode(resp.StatusCode); err != nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("get %s: %w", rawURL, err)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

// IsTransient reports whether err is worth retrying: server errors,
// rate limiting, and network-level failures (timeouts, resets,
// interrupted reads). Fatal statuses, malformed URLs, and everything
// else return false.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrServerError), errors.Is(err, ErrRateLimited):
		return true
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden),
		errors.Is(err, ErrUnauthorized), errors.Is(err, ErrBadRequest):
		return false
	}

	// Every http.Client failure arrives wrapped in *url.Error, which
	// satisfies net.Error even for malformed URLs and unsupported
	// schemes, so a bare net.Error match is useless. Only timeouts and
	// actual socket-level failures qualify as transient.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	// A connection dropped mid-body surfaces as one of these from the
	// response body reader.
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed)
}

// checkStatusCode returns the sentinel error for a non-success status.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %d", ErrRateLimited, code)
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code >= 500:
		return fmt.Errorf("%w: %d", ErrServerError, code)
	case code >= 400:
		return fmt.Errorf("%w: %d", ErrBadRequest, code)
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}
