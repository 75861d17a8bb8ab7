// Package memos provides a client for the Memos note server HTTP API.
package memos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	apiPrefix      = "/api/v1"
	requestTimeout = 10 * time.Second
	maxBodySize    = 8 << 20 // 8 MB, a full month page of memos with content
	userAgent      = "github.com/theirongolddev/memocal/1.0"
)

var (
	// ErrUnauthorized indicates the access token is missing, expired, or invalid.
	ErrUnauthorized = errors.New("memos: unauthorized (access token expired or invalid)")
	// ErrRateLimited indicates the server rejected the request with 429.
	ErrRateLimited = errors.New("memos: rate limited")
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("memos: not found")
)

// HTTPClient is the subset of *http.Client the client needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.http = httpClient
	}
}

// WithRateLimit throttles outgoing requests to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(r, burst)
	}
}

// Client talks to a Memos server.
type Client struct {
	baseURL string
	token   string
	http    HTTPClient
	limiter *rate.Limiter
}

// NewClient creates a client for the server at baseURL.
// Returns nil if baseURL is empty or not an absolute http(s) URL.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if baseURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil
	}

	c := &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(token),
		http:    &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server URL the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListMemos returns one page of memos matching req.Filter.
func (c *Client) ListMemos(ctx context.Context, req ListMemosRequest) (*ListMemosResponse, error) {
	q := url.Values{}
	if req.Filter != "" {
		q.Set("filter", req.Filter)
	}
	if req.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(req.PageSize))
	}
	if req.PageToken != "" {
		q.Set("pageToken", req.PageToken)
	}

	body, err := c.get(ctx, "/memos", q)
	if err != nil {
		return nil, err
	}

	var resp ListMemosResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("memos: parsing memo list: %w", err)
	}
	if resp.Memos == nil {
		resp.Memos = []Memo{}
	}
	return &resp, nil
}

// CurrentUser returns the account the access token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	body, err := c.get(ctx, "/auth/me", nil)
	if err != nil {
		return nil, err
	}

	// Older servers wrap the user in {"user": {...}}.
	var wrapped struct {
		User *User `json:"user"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User, nil
	}

	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("memos: parsing current user: %w", err)
	}
	if u.Name == "" {
		return nil, fmt.Errorf("memos: current user response has no name")
	}
	return &u, nil
}

// GetUserStats returns the precomputed statistics for userName ("users/<id>").
func (c *Client) GetUserStats(ctx context.Context, userName string) (*UserStats, error) {
	if _, err := ExtractUserID(userName); err != nil {
		return nil, err
	}

	body, err := c.get(ctx, "/"+userName+":getStats", nil)
	if err != nil {
		return nil, err
	}

	var stats UserStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("memos: parsing user stats: %w", err)
	}
	if stats.Name == "" {
		stats.Name = userName
	}
	return &stats, nil
}

// get performs an authenticated GET request and returns the response body.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("memos: waiting for rate limiter: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	target := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("memos: creating request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("memos: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusNotFound:
		return nil, ErrNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("memos: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("memos: reading response: %w", err)
	}
	return body, nil
}
