package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL for the EODHD API.
	DefaultBaseURL = "https://eodhd.com/api"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10

	dateLayout   = "2006-01-02"
	maxBodyBytes = 32 << 20
)

// Client is an EODHD API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new EODHD API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get issues one rate-limited GET and decodes the JSON body into result.
// A 429 becomes *RateLimitError; any other non-200 becomes *APIError.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &RateLimitError{RetryAfter: time.Second}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug().Str("endpoint", path).Msg("EODHD API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("EODHD %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(result); err != nil {
		return fmt.Errorf("EODHD %s: malformed payload: %w", path, err)
	}
	return nil
}

// retryAfter reads a Retry-After header in seconds, defaulting to one minute.
func retryAfter(header string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Minute
}

// GetEOD returns daily bars in ascending date order for an EODHD symbol ("AAPL.US").
func (c *Client) GetEOD(ctx context.Context, symbol string, opts ...RequestOption) (EODResponse, error) {
	r := &request{period: "d"}
	for _, opt := range opts {
		opt(r)
	}

	values := url.Values{}
	setDateRange(values, r)
	values.Set("period", r.period)
	values.Set("order", "a")

	var result EODResponse
	if err := c.get(ctx, "/eod/"+symbol, values, &result); err != nil {
		return nil, err
	}

	for i := range result {
		if t, err := time.Parse(dateLayout, result[i].DateStr); err == nil {
			result[i].Date = t
		}
	}
	return result, nil
}

func setDateRange(values url.Values, r *request) {
	if !r.from.IsZero() {
		values.Set("from", r.from.Format(dateLayout))
	}
	if !r.to.IsZero() {
		values.Set("to", r.to.Format(dateLayout))
	}
}

// GetFundamentals retrieves the General and Highlights sections for a symbol.
func (c *Client) GetFundamentals(ctx context.Context, symbol string) (*FundamentalsResponse, error) {
	params := url.Values{}
	params.Set("filter", "General,Highlights")

	var result FundamentalsResponse
	if err := c.get(ctx, "/fundamentals/"+symbol, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetNews retrieves news for one or more symbols.
// Symbols should be in TICKER.EXCHANGE format.
func (c *Client) GetNews(ctx context.Context, symbols []string, opts ...RequestOption) (NewsResponse, error) {
	values := url.Values{}
	values.Set("s", strings.Join(symbols, ","))
	return c.news(ctx, values, opts)
}

// GetNewsByTopic retrieves news tagged with topic (e.g. "business", "earnings").
func (c *Client) GetNewsByTopic(ctx context.Context, topic string, opts ...RequestOption) (NewsResponse, error) {
	values := url.Values{}
	values.Set("t", topic)
	return c.news(ctx, values, opts)
}

func (c *Client) news(ctx context.Context, values url.Values, opts []RequestOption) (NewsResponse, error) {
	r := &request{limit: 50}
	for _, opt := range opts {
		opt(r)
	}
	if r.limit > 0 {
		values.Set("limit", strconv.Itoa(r.limit))
	}
	setDateRange(values, r)

	var result NewsResponse
	if err := c.get(ctx, "/news", values, &result); err != nil {
		return nil, err
	}

	// "2006-01-02T15:04:05+00:00", "2006-01-02 15:04:05" or a plain date
	for i := range result {
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", dateLayout} {
			if t, err := time.Parse(layout, result[i].DateStr); err == nil {
				result[i].Date = t
				break
			}
		}
	}
	return result, nil
}
