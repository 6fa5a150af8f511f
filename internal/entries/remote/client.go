// Package remote implements the entries ports against the external
// entries REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"oosc/internal/core"
	"oosc/internal/entries"
)

// Ensure interface conformance
var _ entries.Store = (*Client)(nil)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// Config holds the remote API settings.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

// APIError is a non-2xx answer from the entries API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// Unwrap lets callers test a 404 with errors.Is(err, entries.ErrNotFound).
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return entries.ErrNotFound
	}
	return nil
}

// New creates a client for the API rooted at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("missing entries API base URL")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse entries API URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid entries API URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: u,
		token:   strings.TrimSpace(cfg.Token),
		http:    newHTTPClientWithPooling(timeout),
	}, nil
}

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// newHTTPClientWithPooling creates an HTTP client with connection pooling,
// dial timeouts and keep-alive.
func newHTTPClientWithPooling(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// ListEntries implements entries.EntryLister
func (c *Client) ListEntries(ctx context.Context) ([]*core.Entry, error) {
	body, err := c.do(ctx, http.MethodGet, nil, "entries")
	if err != nil {
		return nil, err
	}
	list, err := entries.DecodeEntries(body)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Entries fetched from API", "count", len(list))
	return list, nil
}

// GetEntry implements entries.EntryReader
func (c *Client) GetEntry(ctx context.Context, id string) (core.Entry, error) {
	if err := entries.CheckID(id); err != nil {
		return core.Entry{}, err
	}
	body, err := c.do(ctx, http.MethodGet, nil, "entries", id)
	if err != nil {
		return core.Entry{}, err
	}
	e, err := entries.DecodeEntry(body)
	if err != nil {
		return core.Entry{}, err
	}
	if e.ID == "" {
		e.ID = id
	}
	return e, nil
}

// CreateEntry implements entries.EntryWriter
func (c *Client) CreateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	e.ID = ""
	body, err := c.do(ctx, http.MethodPost, e, "entries")
	if err != nil {
		return core.Entry{}, err
	}
	return decodeWritten(body, e), nil
}

// UpdateEntry implements entries.EntryWriter
func (c *Client) UpdateEntry(ctx context.Context, id string, e core.Entry) (core.Entry, error) {
	if err := entries.CheckID(id); err != nil {
		return core.Entry{}, err
	}
	e.ID = ""
	body, err := c.do(ctx, http.MethodPut, e, "entries", id)
	if err != nil {
		return core.Entry{}, err
	}
	out := decodeWritten(body, e)
	if out.ID == "" {
		out.ID = id
	}
	return out, nil
}

// DeleteEntry implements entries.EntryDeleter
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	if err := entries.CheckID(id); err != nil {
		return err
	}
	_, err := c.do(ctx, http.MethodDelete, nil, "entries", id)
	return err
}

// decodeWritten reads the stored entry back from a write response, falling
// back to what was sent when the API answers with something else.
func decodeWritten(body []byte, sent core.Entry) core.Entry {
	if len(bytes.TrimSpace(body)) == 0 {
		return sent
	}
	e, err := entries.DecodeEntry(body)
	if err != nil || (e.ID == "" && e.District.IsEmpty()) {
		return sent
	}
	return e
}

// do sends one request to the API path made of elems and returns the body
// of a 2xx answer.
func (c *Client) do(ctx context.Context, method string, payload any, elems ...string) ([]byte, error) {
	path := "/" + strings.Join(elems, "/")
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	u := c.endpoint(elems...)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	slog.DebugContext(ctx, "Entries API call",
		"method", method,
		"path", path,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}
	return body, nil
}

// endpoint appends elems to the base URL as escaped path segments. Unlike
// url.JoinPath it never resolves dot segments.
func (c *Client) endpoint(elems ...string) *url.URL {
	u := *c.baseURL
	raw := u.EscapedPath()
	for _, e := range elems {
		u.Path += "/" + e
		raw += "/" + url.PathEscape(e)
	}
	u.RawPath = raw
	return &u
}

// errorMessage extracts {"message": ...} or {"error": ...} from an error body.
func errorMessage(body []byte) string {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
