package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fragmede/v2xdash/internal/render"
)

const (
	defaultTimeout = 10 * time.Second
	userAgent      = "v2xdash/1.0"
	maxErrorBody   = 64 << 10
	summaryLength  = 200
)

// ErrDecode marks a 2xx response whose body could not be decoded.
var ErrDecode = errors.New("malformed response body")

// TokenSource supplies the bearer token attached to outgoing requests.
// An empty token means the request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Summary string
}

func (e *StatusError) Error() string {
	if e.Summary == "" {
		return fmt.Sprintf("HTTP %d from %s %s", e.Code, e.Method, e.Path)
	}
	return fmt.Sprintf("HTTP %d from %s %s: %s", e.Code, e.Method, e.Path, e.Summary)
}

// Client is the HTTP client for the V2X platform API.
type Client struct {
	http    *http.Client
	baseURL string
	tokens  TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout enforced by the transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a client for the API rooted at baseURL. tokens may be nil.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestOption adjusts a single outgoing request.
type RequestOption func(*http.Request)

// WithToken overrides the token from the client's TokenSource.
func WithToken(token string) RequestOption {
	return func(req *http.Request) {
		if token == "" {
			req.Header.Del("Authorization")
			return
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// Get issues a GET to path and decodes the JSON response into dst.
func (c *Client) Get(ctx context.Context, path string, dst any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodGet, path, nil, dst, opts)
}

// Post issues a POST to path with body encoded as JSON and decodes the
// response into dst. body and dst may be nil.
func (c *Client) Post(ctx context.Context, path string, body, dst any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPost, path, body, dst, opts)
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any, opts []RequestOption) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:  method,
			Path:    path,
			Code:    resp.StatusCode,
			Summary: summarize(raw),
		}
	}

	if dst == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response from %s: %w: %v", path, ErrDecode, err)
	}
	return nil
}

// summarize turns an error body into one short diagnostic line. JSON bodies
// carrying message or error are preferred, HTML pages are reduced to text.
func summarize(raw []byte) string {
	body := strings.TrimSpace(string(raw))
	if body == "" {
		return ""
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Message != "" {
			return render.Truncate(payload.Message, summaryLength)
		}
		if payload.Error != "" {
			return render.Truncate(payload.Error, summaryLength)
		}
	}

	if render.LooksLikeHTML(body) {
		body = render.HTMLToText(body, 0)
	}
	return render.Truncate(strings.Join(strings.Fields(body), " "), summaryLength)
}
