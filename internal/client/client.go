// Package client talks to the HomeStock REST backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 4 << 20

// TokenStore supplies the stored bearer token and forgets it on a 401.
type TokenStore interface {
	Token(ctx context.Context) (string, bool)
	Clear(ctx context.Context) error
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Tokens     TokenStore
	Logger     *logrus.Logger
	HTTPClient *http.Client
}

// Client attaches the session token to every request and reports 401 answers to the
// registered listeners.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenStore
	logger *logrus.Logger

	mu             sync.RWMutex
	unauthorizedFn []func(ctx context.Context)
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", cfg.BaseURL)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		base:   base,
		http:   httpClient,
		tokens: cfg.Tokens,
		logger: logger,
	}, nil
}

// OnUnauthorized registers fn to run after a request carrying the stored token got a 401.
// The session has already been cleared when fn runs.
func (c *Client) OnUnauthorized(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unauthorizedFn = append(c.unauthorizedFn, fn)
}

type request struct {
	method string
	path   string
	body   any
	form   map[string]string
	// token overrides the stored session token and disables the 401 hook.
	token string
	// anonymous requests never carry a token.
	anonymous bool

	fallback       string
	statusFallback map[int]string
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.base.String() + strings.TrimLeft(path, "/")
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.form != nil:
		buf := &bytes.Buffer{}
		w := multipart.NewWriter(buf)
		for k, v := range req.form {
			if err := w.WriteField(k, v); err != nil {
				return fmt.Errorf("encode form: %w", err)
			}
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("encode form: %w", err)
		}
		body, contentType = buf, w.FormDataContentType()
	case req.body != nil:
		raw, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body, contentType = bytes.NewReader(raw), "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.resolve(req.path), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	usedStored := false
	switch {
	case req.anonymous:
	case req.token != "":
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	case c.tokens != nil:
		if token, ok := c.tokens.Token(ctx); ok {
			httpReq.Header.Set("Authorization", "Bearer "+token)
			usedStored = true
		}
	}

	entry := c.logger.WithField("request_id", requestID)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		entry.Warnf("%s %s: %v", req.method, req.path, err)
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}
	entry.Debugf("%s %s -> %d", req.method, req.path, resp.StatusCode)

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: extractMessage(raw)}
		if apiErr.Message == "" {
			apiErr.Message = req.statusFallback[resp.StatusCode]
		}
		if apiErr.Message == "" {
			apiErr.Message = req.fallback
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusUnauthorized && usedStored {
			c.handleUnauthorized(ctx)
		}
		return apiErr
	}

	return decode(raw, out)
}

func (c *Client) handleUnauthorized(ctx context.Context) {
	c.logger.Warn("backend rejected the session token, clearing session")
	if err := c.tokens.Clear(ctx); err != nil {
		c.logger.Warnf("clear session after 401: %v", err)
	}
	c.mu.RLock()
	listeners := append([]func(context.Context){}, c.unauthorizedFn...)
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn(ctx)
	}
}

func decode(raw []byte, out any) error {
	if out == nil {
		return nil
	}
	trimmed := bytes.TrimSpace(raw)
	if s, ok := out.(*string); ok {
		if err := json.Unmarshal(trimmed, s); err != nil {
			*s = string(trimmed)
		}
		return nil
	}
	if len(trimmed) == 0 {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// orEmpty turns a 404 into an empty result for list endpoints.
func orEmpty[T any](items []T, err error) ([]T, error) {
	if err != nil {
		if StatusCode(err) == http.StatusNotFound {
			return []T{}, nil
		}
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// escape encodes a single path segment such as a product or category name.
func escape(segment string) string {
	return url.PathEscape(segment)
}
