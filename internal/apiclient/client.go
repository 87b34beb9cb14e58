// Package apiclient is a small HTTP client for the onboarding API used by the
// load generator and the smoke test.
package apiclient

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
	"sync"
	"time"

	"github.com/google/uuid"

	"mop.org/internal/auth"
	"mop.org/internal/cases"
	"mop.org/internal/domain"
)

// Error is a non-2xx answer from the API.
type Error struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *Error) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api: %d %s (request %s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// Unwrap exposes the matching domain sentinel so callers can use errors.Is.
func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return domain.ErrValidation
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	}
	return nil
}

// Client talks to one API base URL. It is safe for concurrent use once
// logged in.
type Client struct {
	base string
	http *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("apiclient: invalid base url %q", baseURL)
	}
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Login signs in and keeps the access token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (auth.AuthResult, error) {
	var res auth.AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", body, &res); err != nil {
		return auth.AuthResult{}, err
	}
	if res.Tokens.AccessToken == "" {
		return auth.AuthResult{}, errors.New("apiclient: empty access token")
	}
	c.mu.Lock()
	c.token = res.Tokens.AccessToken
	c.mu.Unlock()
	return res, nil
}

func (c *Client) Healthz(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) CreateCase(ctx context.Context, in cases.Input) (cases.Case, error) {
	var out cases.Case
	err := c.do(ctx, http.MethodPost, "/v1/cases", in, &out)
	return out, err
}

func (c *Client) GetCase(ctx context.Context, id string) (cases.Case, error) {
	var out cases.Case
	err := c.do(ctx, http.MethodGet, "/v1/cases/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) UpdateCase(ctx context.Context, id string, in cases.Input) (cases.Case, error) {
	var out cases.Case
	err := c.do(ctx, http.MethodPut, "/v1/cases/"+url.PathEscape(id), in, &out)
	return out, err
}

func (c *Client) DeleteCase(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/cases/"+url.PathEscape(id), nil, nil)
}

// CaseStatistics returns windowed case counts by status.
func (c *Client) CaseStatistics(ctx context.Context) (map[string]int, error) {
	var out map[string]int
	err := c.do(ctx, http.MethodGet, "/v1/cases/statistics", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("apiclient: encode: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var payload struct {
			Error     string `json:"error"`
			RequestID string `json:"request_id"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return &Error{StatusCode: resp.StatusCode, Message: payload.Error, RequestID: payload.RequestID}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("apiclient: decode %s %s: %w", method, path, err)
	}
	return nil
}
