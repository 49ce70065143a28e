package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"ghsearch/internal/apperror"
	"ghsearch/internal/domain"
)

// DefaultEndpoint is the GitHub user search endpoint
const DefaultEndpoint = "https://api.github.com/search/users"

// DefaultUserAgent is sent when no other user agent is configured
const DefaultUserAgent = "ghsearch"

// maxBodyBytes bounds how much of a response is read
const maxBodyBytes = 8 << 20

// Client performs user search requests against a fixed endpoint
type Client struct {
	endpoint   string
	token      string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithToken sets a bearer token for authenticated requests
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRequestsPerMinute throttles outgoing calls. Zero or less disables it.
func WithRequestsPerMinute(n int) Option {
	return func(c *Client) {
		if n <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for endpoint. An empty endpoint selects
// DefaultEndpoint.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme must be http or https", endpoint)
	}

	c := &Client{
		endpoint:  endpoint,
		userAgent: DefaultUserAgent,
		// No timeout: cancellation comes from the caller's context
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the configured search endpoint
func (c *Client) Endpoint() string {
	return c.endpoint
}

// searchResponse mirrors the API payload; pointers detect missing fields
type searchResponse struct {
	TotalCount *int              `json:"total_count"`
	Items      *[]searchItemJSON `json:"items"`
}

type searchItemJSON struct {
	ID        *int64 `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Search performs one round trip for query and returns the normalized result.
// Every failure is an *apperror.Failure; there are no retries.
func (c *Client) Search(ctx context.Context, query string) (domain.SearchResult, error) {
	if query == "" {
		return domain.SearchResult{}, apperror.ValidationFailed("query must not be empty")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.SearchResult{}, apperror.Network(err)
		}
	}

	req, err := c.newRequest(ctx, query)
	if err != nil {
		return domain.SearchResult{}, apperror.Network(err)
	}

	requestID := RequestIDFrom(ctx)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Prefer the context error so supersession reads as a cancellation
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return domain.SearchResult{}, apperror.Network(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.SearchResult{}, apperror.Network(fmt.Errorf("failed to read response body: %w", err))
	}

	c.logger.Debug("search response",
		slog.String("request_id", requestID),
		slog.String("query", query),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.SearchResult{}, apperror.BadResponse(resp.StatusCode, serverMessage(body))
	}

	return decodeSearch(body)
}

func (c *Client) newRequest(ctx context.Context, query string) (*http.Request, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id := RequestIDFrom(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	return req, nil
}

// decodeSearch validates the payload shape and normalizes it
func decodeSearch(body []byte) (domain.SearchResult, error) {
	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.SearchResult{}, apperror.Parse("invalid JSON", err)
	}
	if payload.TotalCount == nil {
		return domain.SearchResult{}, apperror.Parse("missing total_count", nil)
	}
	if *payload.TotalCount < 0 {
		return domain.SearchResult{}, apperror.Parse("negative total_count", nil)
	}
	if payload.Items == nil {
		return domain.SearchResult{}, apperror.Parse("missing items", nil)
	}

	items := make([]domain.UserSummary, 0, len(*payload.Items))
	for i, it := range *payload.Items {
		if it.ID == nil {
			return domain.SearchResult{}, apperror.Parse(fmt.Sprintf("item %d has no id", i), nil)
		}
		if it.Login == "" {
			return domain.SearchResult{}, apperror.Parse(fmt.Sprintf("item %d has no login", i), nil)
		}
		items = append(items, domain.UserSummary{
			ID:        *it.ID,
			Login:     it.Login,
			AvatarURL: it.AvatarURL,
		})
	}

	return domain.SearchResult{
		Items:      items,
		TotalCount: *payload.TotalCount,
	}, nil
}

// serverMessage extracts the API's own error text, if any
func serverMessage(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Message
}

// IsCanceled reports whether err came from a cancelled or expired context
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
