// Package upstream is the typed client of the PricefloCompare backend API.
// Every call runs under a per-request timeout and a bounded retry loop with
// exponential backoff; failures come back as *Error with a Kind that the
// storefront turns into a visitor-facing notice.
package upstream

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

	"go.uber.org/zap"
)

const (
	DefaultTimeout = 10 * time.Second
	userAgent      = "priceflo-storefront/1.0"
	maxErrorBody   = 4 << 10
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Retry      RetryConfig
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client calls the backend API.
type Client struct {
	baseURL string
	timeout time.Duration
	retry   RetryConfig
	http    *http.Client
	logger  *zap.Logger
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = LocalBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	opts.Retry = opts.Retry.withDefaults()
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: opts.Timeout,
		retry:   opts.Retry,
		http:    opts.HTTPClient,
		logger:  opts.Logger,
	}
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
}

// do performs req with retries and decodes a JSON response into out when
// out is not nil.
func (c *Client) do(ctx context.Context, req request, out any) error {
	var payload []byte
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return &Error{Kind: KindGeneric, Op: req.op, Err: fmt.Errorf("encode body: %w", err)}
		}
		payload = b
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	return withRetry(ctx, c.retry, c.logger, req.op, func(ctx context.Context) error {
		return c.attempt(ctx, req, target, payload, out)
	})
}

func (c *Client) attempt(ctx context.Context, req request, target string, payload []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return &Error{Kind: KindGeneric, Op: req.op, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &Error{Kind: kindOfTransportError(err), Op: req.op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("upstream call",
		zap.String("op", req.op),
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Kind:   KindForStatus(resp.StatusCode),
			Status: resp.StatusCode,
			Op:     req.op,
			Err:    errors.New(errorDetail(resp)),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &Error{Kind: KindTimeout, Op: req.op, Err: err}
		}
		return &Error{Kind: KindGeneric, Op: req.op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorDetail extracts the backend's {"detail": ...} message, falling back
// to the status text.
func errorDetail(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if s, ok := body.Detail.(string); ok && s != "" {
			return s
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return http.StatusText(resp.StatusCode)
}
