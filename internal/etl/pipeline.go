package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockit/internal/common"
	"github.com/ternarybob/stockit/internal/interfaces"
	"github.com/ternarybob/stockit/internal/models"
)

// Options tunes extraction.
type Options struct {
	Lookback       string        // price lookback period, e.g. "5d"
	LightBars      int           // bars kept by RunStockUpdates
	RateLimitDelay time.Duration // fixed pause between consecutive symbols
	NewsCategory   string        // top-headlines category for the general batch
	NewsPageSize   int
	NewsSources    string // comma-separated source ids for symbol queries
}

// DefaultOptions mirrors the defaults in common.NewDefaultConfig.
func DefaultOptions() Options {
	return Options{
		Lookback:       "5d",
		LightBars:      5,
		RateLimitDelay: time.Second,
		NewsCategory:   "business",
		NewsPageSize:   50,
	}
}

// SymbolResult is the outcome of one symbol's stock ETL.
type SymbolResult struct {
	Symbol         string
	Success        bool // price load succeeded
	Prices         LoadStats
	CompanyUpdated bool
	Err            error // price path failure
	CompanyErr     error // fundamentals path failure, logged only
}

// NewsBatchResult is the outcome of one news extraction.
type NewsBatchResult struct {
	Query string // empty for the general headlines batch
	Stats LoadStats
	Err   error
}

// NewsResult aggregates a news ETL run.
type NewsResult struct {
	Batches []NewsBatchResult
}

// Loaded reports whether at least one batch was extracted and loaded without error.
func (r NewsResult) Loaded() bool {
	for _, b := range r.Batches {
		if b.Err == nil {
			return true
		}
	}
	return false
}

// Inserted is the number of new articles across all batches.
func (r NewsResult) Inserted() int {
	total := 0
	for _, b := range r.Batches {
		total += b.Stats.Inserted
	}
	return total
}

// RunReport is the outcome of a full ETL run.
type RunReport struct {
	ID          string
	Started     time.Time
	Finished    time.Time
	Symbols     []SymbolResult
	News        NewsResult
	Interrupted bool
}

// Succeeded returns the symbols whose price load succeeded.
func (r RunReport) Succeeded() []string {
	var out []string
	for _, s := range r.Symbols {
		if s.Success {
			out = append(out, s.Symbol)
		}
	}
	return out
}

// Failed returns the symbols whose price load failed.
func (r RunReport) Failed() []string {
	var out []string
	for _, s := range r.Symbols {
		if !s.Success {
			out = append(out, s.Symbol)
		}
	}
	return out
}

// Pipeline sequences extract -> transform -> load per entity and per symbol.
// Failures are isolated per symbol and per batch; no method returns a panic or aborts a loop.
type Pipeline struct {
	prices  interfaces.PriceProvider
	news    interfaces.NewsProvider
	loader  *Loader
	symbols []common.Ticker
	opts    Options
	sleep   common.SleepFunc
	logger  arbor.ILogger
}

// NewPipeline creates a pipeline over the tracked symbols.
func NewPipeline(prices interfaces.PriceProvider, news interfaces.NewsProvider, loader *Loader, symbols []string, opts Options, logger arbor.ILogger) *Pipeline {
	return &Pipeline{
		prices:  prices,
		news:    news,
		loader:  loader,
		symbols: common.ParseTickers(symbols),
		opts:    opts,
		sleep:   common.SleepContext,
		logger:  logger,
	}
}

// SetSleep replaces the inter-symbol sleep (tests use a no-op).
func (p *Pipeline) SetSleep(sleep common.SleepFunc) {
	p.sleep = sleep
}

// Symbols returns the tracked symbols.
func (p *Pipeline) Symbols() []string {
	out := make([]string, 0, len(p.symbols))
	for _, t := range p.symbols {
		out = append(out, t.Symbol())
	}
	return out
}

// RunStockETL loads price bars and, independently, fundamentals for one symbol.
// Success is the price load's success; a fundamentals failure is logged only.
func (p *Pipeline) RunStockETL(ctx context.Context, symbol string) SymbolResult {
	return p.runStock(ctx, common.ParseTicker(symbol), p.opts.Lookback, 0, true)
}

// RunStockUpdates is the light scheduled job: the latest few bars per tracked symbol, no fundamentals.
func (p *Pipeline) RunStockUpdates(ctx context.Context) []SymbolResult {
	p.logger.Info().Int("symbols", len(p.symbols)).Msg("Running scheduled stock updates")

	results := make([]SymbolResult, 0, len(p.symbols))
	for i, ticker := range p.symbols {
		results = append(results, p.runStock(ctx, ticker, p.opts.Lookback, p.opts.LightBars, false))
		if i < len(p.symbols)-1 {
			if err := p.sleep(ctx, p.opts.RateLimitDelay); err != nil {
				break
			}
		}
	}
	return results
}

// RunNewsETL loads one general headlines batch, then one query batch per tracked symbol.
func (p *Pipeline) RunNewsETL(ctx context.Context) NewsResult {
	p.logger.Info().Msg("Starting news ETL")

	var result NewsResult
	result.Batches = append(result.Batches, p.runNewsBatch(ctx, ""))

	for _, ticker := range p.symbols {
		if ctx.Err() != nil {
			break
		}
		result.Batches = append(result.Batches, p.runNewsBatch(ctx, ticker.Symbol()))
	}

	p.logger.Info().
		Int("batches", len(result.Batches)).
		Int("inserted", result.Inserted()).
		Msg("Completed news ETL")
	return result
}

// RunFullETL runs RunStockETL for every tracked symbol, rate limited, then RunNewsETL.
func (p *Pipeline) RunFullETL(ctx context.Context) RunReport {
	report := RunReport{
		ID:      common.NewRunID(),
		Started: time.Now(),
	}
	logger := p.logger.WithCorrelationId(report.ID)
	logger.Info().Int("symbols", len(p.symbols)).Msg("Starting full ETL pipeline")

	for i, ticker := range p.symbols {
		report.Symbols = append(report.Symbols, p.runStock(ctx, ticker, p.opts.Lookback, 0, true))
		if i < len(p.symbols)-1 {
			if err := p.sleep(ctx, p.opts.RateLimitDelay); err != nil {
				report.Interrupted = true
				break
			}
		}
	}
	if ctx.Err() != nil {
		report.Interrupted = true
	}

	if !report.Interrupted {
		report.News = p.RunNewsETL(ctx)
	}
	report.Finished = time.Now()

	logger.Info().
		Strs("succeeded", report.Succeeded()).
		Strs("failed", report.Failed()).
		Int("news_inserted", report.News.Inserted()).
		Bool("interrupted", report.Interrupted).
		Str("duration", report.Finished.Sub(report.Started).Round(time.Millisecond).String()).
		Msg("Full ETL pipeline completed")
	return report
}

func (p *Pipeline) runStock(ctx context.Context, ticker common.Ticker, lookback string, keepLast int, withFundamentals bool) (result SymbolResult) {
	result.Symbol = ticker.Symbol()
	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Err = common.RecoverAsError(p.logger, "stock_etl "+result.Symbol, r)
		}
	}()

	p.logger.Info().Str("symbol", result.Symbol).Msg("Starting stock ETL")

	stats, err := p.loadPrices(ctx, ticker, lookback, keepLast)
	result.Prices = stats
	if err != nil {
		result.Err = err
		p.logger.Warn().Err(err).Str("symbol", result.Symbol).Str("kind", string(KindOf(err))).Msg("Price ETL failed")
	} else {
		result.Success = true
	}

	if withFundamentals {
		if err := p.loadFundamentals(ctx, ticker); err != nil {
			result.CompanyErr = err
			p.logger.Warn().Err(err).Str("symbol", result.Symbol).Str("kind", string(KindOf(err))).Msg("Company info ETL failed")
		} else {
			result.CompanyUpdated = true
		}
	}

	p.logger.Info().
		Str("symbol", result.Symbol).
		Bool("success", result.Success).
		Int("inserted", result.Prices.Inserted).
		Int("skipped", result.Prices.Skipped).
		Msg("Completed stock ETL")
	return result
}

func (p *Pipeline) loadPrices(ctx context.Context, ticker common.Ticker, lookback string, keepLast int) (LoadStats, error) {
	symbol := ticker.Symbol()

	bars, err := p.prices.FetchDailyBars(ctx, ticker.String(), lookback)
	if err != nil {
		return LoadStats{}, newError(KindProvider, "extract_prices", symbol, err)
	}
	if len(bars) == 0 {
		return LoadStats{}, newError(KindProvider, "extract_prices", symbol, ErrNoData)
	}
	if keepLast > 0 && len(bars) > keepLast {
		bars = bars[len(bars)-keepLast:]
	}
	p.logger.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("Extracted price bars")

	records, err := TransformPrices(symbol, bars)
	if err != nil {
		return LoadStats{}, newError(KindTransform, "transform_prices", symbol, err)
	}

	return p.loader.LoadPrices(ctx, records)
}

func (p *Pipeline) loadFundamentals(ctx context.Context, ticker common.Ticker) error {
	symbol := ticker.Symbol()

	fundamentals, err := p.prices.FetchFundamentals(ctx, ticker.String())
	if err != nil {
		return newError(KindProvider, "extract_company", symbol, err)
	}
	if fundamentals == nil {
		return newError(KindProvider, "extract_company", symbol, ErrNoData)
	}

	return p.loader.LoadCompanyInfo(ctx, symbol, fundamentals)
}

func (p *Pipeline) runNewsBatch(ctx context.Context, query string) (batch NewsBatchResult) {
	batch.Query = query
	defer func() {
		if r := recover(); r != nil {
			batch.Err = common.RecoverAsError(p.logger, "news_etl "+query, r)
		}
	}()

	var articles []models.Article
	var err error
	if query == "" {
		articles, err = p.news.FetchTopHeadlines(ctx, p.opts.NewsCategory, p.opts.NewsPageSize)
	} else {
		articles, err = p.news.FetchEverything(ctx, query, p.opts.NewsSources, p.opts.NewsPageSize)
	}

	entity := query
	if entity == "" {
		entity = "headlines:" + p.opts.NewsCategory
	}

	switch {
	case err != nil:
		batch.Err = newError(KindProvider, "extract_news", entity, err)
	case len(articles) == 0:
		batch.Err = newError(KindProvider, "extract_news", entity, ErrNoData)
	}
	if batch.Err != nil {
		p.logger.Warn().Err(batch.Err).Str("query", entity).Msg("News extraction returned no data")
		return batch
	}

	records, err := TransformNews(articles)
	if err != nil {
		batch.Err = newError(KindTransform, "transform_news", entity, err)
		p.logger.Warn().Err(batch.Err).Str("query", entity).Msg("News transform failed")
		return batch
	}

	batch.Stats, batch.Err = p.loader.LoadNews(ctx, records)
	if batch.Err != nil {
		p.logger.Warn().Err(batch.Err).Str("query", entity).Msg("News load failed")
	}
	return batch
}

// IsNoData reports whether err is the provider "no data" outcome.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}

// Summary renders a one-line description of a run report.
func (r RunReport) Summary() string {
	return fmt.Sprintf("%d/%d symbols loaded, %d articles inserted",
		len(r.Succeeded()), len(r.Symbols), r.News.Inserted())
}
