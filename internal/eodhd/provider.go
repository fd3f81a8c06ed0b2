package eodhd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockit/internal/common"
	"github.com/ternarybob/stockit/internal/models"
)

// Provider adapts Client to interfaces.PriceProvider and interfaces.NewsProvider.
// Symbols may be exchange-qualified ("NASDAQ:AAPL"); they are mapped to EODHD form ("AAPL.US").
type Provider struct {
	client       *Client
	fundamentals *cache.Cache
	now          func() time.Time
	logger       arbor.ILogger
}

// NewProvider creates a provider. Fundamentals are cached for cacheTTL; zero disables the cache.
func NewProvider(client *Client, cacheTTL time.Duration, logger arbor.ILogger) *Provider {
	p := &Provider{
		client: client,
		now:    time.Now,
		logger: logger,
	}
	if cacheTTL > 0 {
		p.fundamentals = cache.New(cacheTTL, 2*cacheTTL)
	}
	return p
}

// FetchDailyBars returns ascending daily bars covering lookback ("5d", "1mo", "1y", "ytd").
// A day-based lookback keeps only the last N trading days.
func (p *Provider) FetchDailyBars(ctx context.Context, symbol string, lookback string) ([]models.PriceBar, error) {
	ticker := common.ParseTicker(symbol)
	if ticker.Code == "" {
		return nil, fmt.Errorf("empty symbol")
	}

	window, err := ParseLookback(lookback, p.now())
	if err != nil {
		return nil, err
	}

	eod, err := p.client.GetEOD(ctx, ticker.EODHDSymbol(), WithDateRange(window.From, window.To), WithPeriod("d"))
	if err != nil {
		return nil, err
	}

	bars := make([]models.PriceBar, 0, len(eod))
	for _, d := range eod {
		if d.Date.IsZero() {
			return nil, fmt.Errorf("bar for %s has unparseable date %q", ticker.Symbol(), d.DateStr)
		}
		bars = append(bars, models.PriceBar{
			Symbol: ticker.Symbol(),
			Date:   d.Date,
			Open:   d.Open,
			High:   d.High,
			Low:    d.Low,
			Close:  d.Close,
			Volume: d.Volume,
		})
	}

	if window.Bars > 0 && len(bars) > window.Bars {
		bars = bars[len(bars)-window.Bars:]
	}

	p.logger.Debug().
		Str("symbol", ticker.EODHDSymbol()).
		Str("lookback", lookback).
		Int("bars", len(bars)).
		Msg("Fetched daily bars")
	return bars, nil
}

// FetchFundamentals returns the company overview for symbol. A missing Highlights
// section yields MarketCapitalization "None".
func (p *Provider) FetchFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error) {
	ticker := common.ParseTicker(symbol)
	key := ticker.EODHDSymbol()
	if key == "" {
		return nil, fmt.Errorf("empty symbol")
	}

	if p.fundamentals != nil {
		if cached, found := p.fundamentals.Get(key); found {
			p.logger.Debug().Str("symbol", key).Msg("Fundamentals cache hit")
			f := *cached.(*models.Fundamentals)
			return &f, nil
		}
	}

	resp, err := p.client.GetFundamentals(ctx, key)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.General == nil {
		return nil, nil
	}

	f := &models.Fundamentals{
		Symbol:               ticker.Symbol(),
		Name:                 resp.General.Name,
		Sector:               resp.General.Sector,
		Exchange:             resp.General.Exchange,
		Industry:             resp.General.Industry,
		MarketCapitalization: "None",
	}
	if f.Name == "" {
		f.Name = ticker.Symbol()
	}
	if f.Sector == "" {
		f.Sector = resp.General.GicSector
	}
	if resp.Highlights != nil {
		f.MarketCapitalization = resp.Highlights.MarketCapitalization.String()
	}

	if p.fundamentals != nil {
		p.fundamentals.Set(key, f, cache.DefaultExpiration)
	}
	copied := *f
	return &copied, nil
}

// FetchTopHeadlines returns general market news. EODHD has no category feed, so
// category is sent as a topic tag.
func (p *Provider) FetchTopHeadlines(ctx context.Context, category string, pageSize int) ([]models.Article, error) {
	items, err := p.client.GetNewsByTopic(ctx, category, WithLimit(pageSize))
	if err != nil {
		return nil, err
	}
	return toArticles(items), nil
}

// FetchEverything returns news for a symbol query. sources is not supported by EODHD and is ignored.
func (p *Provider) FetchEverything(ctx context.Context, query string, sources string, pageSize int) ([]models.Article, error) {
	ticker := common.ParseTicker(query)
	if ticker.Code == "" {
		return nil, fmt.Errorf("empty query")
	}
	items, err := p.client.GetNews(ctx, []string{ticker.EODHDSymbol()}, WithLimit(pageSize))
	if err != nil {
		return nil, err
	}
	return toArticles(items), nil
}

func toArticles(items NewsResponse) []models.Article {
	articles := make([]models.Article, 0, len(items))
	for _, item := range items {
		article := models.Article{
			Title:      strings.TrimSpace(item.Title),
			Content:    common.PlainText(item.Content),
			URL:        strings.TrimSpace(item.Link),
			SourceName: common.SourceNameFromURL(item.Link),
		}
		if !item.Date.IsZero() {
			article.PublishedAt = item.Date.UTC().Format(time.RFC3339)
		}
		articles = append(articles, article)
	}
	return articles
}

// Window is the date range requested for a lookback period.
type Window struct {
	From time.Time
	To   time.Time
	Bars int // trailing bars to keep; zero keeps everything
}

// ParseLookback converts a lookback period into a date range ending at now.
// Supported forms: Nd (trading days), Nwk, Nmo, Ny, ytd and max.
func ParseLookback(lookback string, now time.Time) (Window, error) {
	lookback = strings.ToLower(strings.TrimSpace(lookback))
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch lookback {
	case "ytd":
		return Window{From: time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC), To: to}, nil
	case "max":
		return Window{From: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), To: to}, nil
	}

	units := []struct {
		suffix string
		apply  func(n int) Window
	}{
		{"mo", func(n int) Window { return Window{From: to.AddDate(0, -n, 0), To: to} }},
		{"wk", func(n int) Window { return Window{From: to.AddDate(0, 0, -7*n), To: to} }},
		{"d", func(n int) Window {
			// Calendar span wide enough to hold n trading days
			return Window{From: to.AddDate(0, 0, -(2*n + 7)), To: to, Bars: n}
		}},
		{"y", func(n int) Window { return Window{From: to.AddDate(-n, 0, 0), To: to} }},
	}

	for _, u := range units {
		if !strings.HasSuffix(lookback, u.suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(lookback, u.suffix))
		if err != nil || n <= 0 {
			return Window{}, fmt.Errorf("invalid lookback %q", lookback)
		}
		return u.apply(n), nil
	}

	return Window{}, fmt.Errorf("invalid lookback %q", lookback)
}
