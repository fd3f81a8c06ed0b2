package eodhd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc, cacheTTL time.Duration) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("test-key", WithBaseURL(server.URL), WithRateLimit(100), WithLogger(arbor.NewNoOpLogger()))
	p := NewProvider(client, cacheTTL, arbor.NewNoOpLogger())
	p.now = func() time.Time { return time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC) }
	return p
}

func TestProvider_FetchDailyBars(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/eod/AAPL.US", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_token"))
		assert.Equal(t, "2024-03-15", r.URL.Query().Get("to"))
		assert.Equal(t, "2024-03-04", r.URL.Query().Get("from"))
		assert.Equal(t, "d", r.URL.Query().Get("period"))
		assert.Equal(t, "a", r.URL.Query().Get("order"))

		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"date": "2024-03-08", "open": 1, "high": 2, "low": 0.5, "close": 1.5, "adjusted_close": 1.5, "volume": 10},
			{"date": "2024-03-11", "open": 1, "high": 2, "low": 0.5, "close": 1.6, "adjusted_close": 1.6, "volume": 11},
			{"date": "2024-03-12", "open": 1, "high": 2, "low": 0.5, "close": 1.7, "adjusted_close": 1.7, "volume": 12},
		})
	}, 0)

	bars, err := p.FetchDailyBars(context.Background(), "NASDAQ:AAPL", "2d")
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "AAPL", bars[0].Symbol)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, 1.7, bars[1].Close)
	assert.Equal(t, int64(12), bars[1].Volume)
}

func TestProvider_FetchDailyBarsAPIError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Ticker Not Found", http.StatusNotFound)
	}, 0)

	bars, err := p.FetchDailyBars(context.Background(), "ZZZZ", "5d")
	assert.Nil(t, bars)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "status 404")
}

func TestErrorMessages(t *testing.T) {
	apiErr := &APIError{StatusCode: 401, Message: "Unauthenticated", Endpoint: "/eod/AAPL.US"}
	assert.Equal(t, "eodhd /eod/AAPL.US: status 401: Unauthenticated", apiErr.Error())

	assert.Equal(t, "eodhd: rate limited", (&RateLimitError{}).Error())
	assert.Equal(t, "eodhd: rate limited, retry in 30s", (&RateLimitError{RetryAfter: 30 * time.Second}).Error())
}

func TestProvider_FetchDailyBarsRateLimited(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}, 0)

	_, err := p.FetchDailyBars(context.Background(), "AAPL", "5d")
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 30*time.Second, rateErr.RetryAfter)
}

func TestProvider_FetchDailyBarsBadLookback(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, 0)

	_, err := p.FetchDailyBars(context.Background(), "AAPL", "forever")
	assert.Error(t, err)
}

func TestProvider_FetchFundamentalsCached(t *testing.T) {
	var calls int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/fundamentals/MSFT.US", r.URL.Path)
		w.Write([]byte(`{"General":{"Code":"MSFT","Name":"Microsoft Corporation","Exchange":"NASDAQ","Sector":"Technology"},
			"Highlights":{"MarketCapitalization":3100000000000}}`))
	}, time.Hour)

	f, err := p.FetchFundamentals(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "Microsoft Corporation", f.Name)
	assert.Equal(t, "Technology", f.Sector)
	assert.Equal(t, "NASDAQ", f.Exchange)
	assert.Equal(t, "3100000000000", f.MarketCapitalization)

	f.Name = "mutated"
	again, err := p.FetchFundamentals(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "Microsoft Corporation", again.Name)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestProvider_FetchFundamentalsMissingHighlights(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"General":{"Code":"XYZ","Name":""}}`))
	}, 0)

	f, err := p.FetchFundamentals(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.Equal(t, "XYZ", f.Name)
	assert.Equal(t, "None", f.MarketCapitalization)
}

func TestProvider_FetchFundamentalsNoGeneral(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}, 0)

	f, err := p.FetchFundamentals(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestProvider_FetchNews(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/news", r.URL.Path)
		if r.URL.Query().Get("s") != "" {
			assert.Equal(t, "AAPL.US", r.URL.Query().Get("s"))
		} else {
			assert.Equal(t, "business", r.URL.Query().Get("t"))
		}
		assert.Equal(t, "20", r.URL.Query().Get("limit"))

		w.Write([]byte(`[{"date":"2024-03-14T13:05:00+00:00","title":" Apple update ",
			"content":"<p>Apple <em>rose</em></p>","link":"https://www.reuters.com/a","symbols":["AAPL.US"]}]`))
	}, 0)

	articles, err := p.FetchEverything(context.Background(), "AAPL", "ignored", 20)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Apple update", articles[0].Title)
	assert.Equal(t, "Apple rose", articles[0].Content)
	assert.Equal(t, "reuters.com", articles[0].SourceName)
	assert.Equal(t, "2024-03-14T13:05:00Z", articles[0].PublishedAt)

	articles, err = p.FetchTopHeadlines(context.Background(), "business", 20)
	require.NoError(t, err)
	assert.Len(t, articles, 1)
}

func TestFlexNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"MarketCapitalization":2750000000000}`, "2750000000000"},
		{`{"MarketCapitalization":"123"}`, "123"},
		{`{"MarketCapitalization":"None"}`, "None"},
		{`{"MarketCapitalization":null}`, "None"},
		{`{}`, "None"},
	}
	for _, tt := range tests {
		var h Highlights
		require.NoError(t, json.Unmarshal([]byte(tt.raw), &h), tt.raw)
		assert.Equal(t, tt.want, h.MarketCapitalization.String(), tt.raw)
	}
}

func TestParseLookback(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		in   string
		want Window
	}{
		{"5d", Window{From: day(2024, 2, 27), To: day(2024, 3, 15), Bars: 5}},
		{"1wk", Window{From: day(2024, 3, 8), To: day(2024, 3, 15)}},
		{"1mo", Window{From: day(2024, 2, 15), To: day(2024, 3, 15)}},
		{"1y", Window{From: day(2023, 3, 15), To: day(2024, 3, 15)}},
		{"YTD", Window{From: day(2024, 1, 1), To: day(2024, 3, 15)}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLookback(tt.in, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "0d", "-1mo", "abc", "5x"} {
		_, err := ParseLookback(bad, now)
		assert.Error(t, err, bad)
	}
}
