// Package eodhd talks to the EODHD market data API and exposes it to the ETL
// as both a price provider and a news provider.
package eodhd

import (
	"fmt"
	"time"
)

// RequestOption narrows a bars or news request.
type RequestOption func(*request)

// request collects the optional filters shared by the /eod and /news endpoints.
// Zero values are left off the query string.
type request struct {
	from   time.Time
	to     time.Time
	period string // "d", "w" or "m" bars
	limit  int    // news items per call
}

// WithDateRange bounds the request to [from, to], both inclusive calendar dates.
func WithDateRange(from, to time.Time) RequestOption {
	return func(r *request) {
		r.from, r.to = from, to
	}
}

// WithPeriod picks the bar size.
func WithPeriod(period string) RequestOption {
	return func(r *request) { r.period = period }
}

// WithLimit caps the number of news items returned.
func WithLimit(limit int) RequestOption {
	return func(r *request) { r.limit = limit }
}

// APIError carries the status and body of a failed EODHD call.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eodhd %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// RateLimitError means the call was throttled, either by EODHD (HTTP 429) or
// by the client's own limiter. RetryAfter is zero when no hint was given.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter <= 0 {
		return "eodhd: rate limited"
	}
	return fmt.Sprintf("eodhd: rate limited, retry in %s", e.RetryAfter)
}
