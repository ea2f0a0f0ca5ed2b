package dingz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Client defaults.
const (
	// DefaultMinInterval is the minimum spacing between the end of one
	// request and the start of the next.
	DefaultMinInterval = 200 * time.Millisecond

	// DefaultRequestTimeout bounds a single HTTP attempt.
	DefaultRequestTimeout = 10 * time.Second

	// maxResponseSize caps the body read from the device.
	maxResponseSize = 1 << 20

	// contentTypeJSON and contentTypeForm are the request body encodings.
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// RetryPolicy bounds how often a request is attempted and how long the
// client waits between attempts.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// Default retry policies. Writes get fewer, slower retries than reads:
// replaying a command is riskier and the device needs longer to recover
// after a write.
var (
	DefaultReadPolicy  = RetryPolicy{Attempts: 5, Delay: time.Second}
	DefaultWritePolicy = RetryPolicy{Attempts: 3, Delay: 3 * time.Second}
)

// Logger is the logging interface used by the client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client talks to the local HTTP API of one dingz device.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	gate        *gate
	readPolicy  RetryPolicy
	writePolicy RetryPolicy
	logger      Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithReadPolicy sets the retry policy for GET requests.
func WithReadPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.readPolicy = p }
}

// WithWritePolicy sets the retry policy for POST requests.
func WithWritePolicy(p RetryPolicy) Option {
	return func(c *Client) { c.writePolicy = p }
}

// WithMinInterval sets the trailing throttle of the request gate.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) { c.gate.minInterval = d }
}

// WithClock sets the time source used by the request gate.
func WithClock(clock Clock) Option {
	return func(c *Client) {
		if clock != nil {
			c.gate.clock = clock
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the device at baseURL.
//
// A bare host such as "10.0.3.39" is treated as http://10.0.3.39.
//
// Parameters:
//   - baseURL: Device address, optionally with scheme and path prefix
//   - opts: Functional options
//
// Returns:
//   - *Client: Ready to use client
//   - error: ErrInvalidBaseURL if the address cannot be parsed
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:     u,
		http:        &http.Client{Timeout: DefaultRequestTimeout},
		gate:        newGate(DefaultMinInterval, systemClock{}),
		readPolicy:  DefaultReadPolicy,
		writePolicy: DefaultWritePolicy,
		logger:      noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidBaseURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidBaseURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidBaseURL)
	}

	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// BaseURL returns the device address the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// request describes a single HTTP exchange. The body is kept as bytes so
// each attempt gets a fresh reader.
type request struct {
	method      string
	path        string
	query       string
	body        []byte
	contentType string
}

// Get fetches path and decodes the JSON response into out.
//
// Failed attempts (transport error, non-2xx status, undecodable body) are
// retried according to the read policy. When every attempt fails the
// returned error wraps ErrRequestFailed and the last attempt error.
func (c *Client) Get(ctx context.Context, p string, out any) error {
	return c.do(ctx, c.readPolicy, request{method: http.MethodGet, path: p}, out)
}

// PostJSON posts v as a JSON body.
func (c *Client) PostJSON(ctx context.Context, p string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s body: %w", p, err)
	}
	return c.do(ctx, c.writePolicy, request{
		method:      http.MethodPost,
		path:        p,
		body:        body,
		contentType: contentTypeJSON,
	}, nil)
}

// PostQuery posts with params encoded into the query string and an empty
// body. Nil-valued params are omitted.
func (c *Client) PostQuery(ctx context.Context, p string, params Params) error {
	return c.do(ctx, c.writePolicy, request{
		method: http.MethodPost,
		path:   p,
		query:  params.Encode(),
	}, nil)
}

// PostRaw posts body exactly as given, labelled as form data. It exists
// for endpoints whose form decoder rejects percent-encoded characters.
func (c *Client) PostRaw(ctx context.Context, p string, body string) error {
	return c.do(ctx, c.writePolicy, request{
		method:      http.MethodPost,
		path:        p,
		body:        []byte(body),
		contentType: contentTypeForm,
	}, nil)
}

// do runs req under policy. Every attempt acquires the request gate on
// its own so that other callers can interleave between retries.
func (c *Client) do(ctx context.Context, policy RetryPolicy, req request, out any) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, c.attempt(ctx, req, out)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(policy.Delay)),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debug("dingz request failed, retrying",
				"method", req.method,
				"path", req.path,
				"retry_in", next,
				"error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, req.method, req.path, err)
	}
	return nil
}

// attempt performs one exchange while holding the request gate. The gate
// is released only after the response body has been consumed.
func (c *Client) attempt(ctx context.Context, req request, out any) error {
	c.gate.acquire()
	defer c.gate.release()

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.resolve(req.path, req.query), body)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("building request: %w", err))
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", contentTypeJSON)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{Method: req.method, Path: req.path, Code: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// resolve joins p onto the base URL path.
func (c *Client) resolve(p, query string) string {
	u := *c.baseURL
	u.Path = path.Join("/", u.Path, p)
	u.RawPath = ""
	u.RawQuery = query
	return u.String()
}
