// Package tracker runs the continuous tracking loop: per-symbol refreshes on a fixed
// interval, a slower news refresh, and a fixed sleep between cycles.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockit/internal/common"
	"github.com/ternarybob/stockit/internal/etl"
	"github.com/ternarybob/stockit/internal/interfaces"
)

// ErrNoCompanies is returned by Run when there is nothing to track.
var ErrNoCompanies = errors.New("no companies to track")

// ETLRunner is the part of etl.Pipeline the tracker drives.
type ETLRunner interface {
	RunStockETL(ctx context.Context, symbol string) etl.SymbolResult
	RunNewsETL(ctx context.Context) etl.NewsResult
}

// Options configures the tracking cadence.
type Options struct {
	UpdateInterval     time.Duration // per-symbol refresh threshold, also the sleep between cycles
	NewsUpdateInterval time.Duration
	RateLimitDelay     time.Duration // pause after each symbol refresh
	FallbackSymbols    []string      // tracked when the store has no active stocks
}

// Company is one tracked stock.
type Company struct {
	Symbol string
	Name   string
}

// CycleResult summarises one tracking cycle.
type CycleResult struct {
	Number        int
	Attempted     int
	Updated       int
	NewsRefreshed bool
	Duration      time.Duration
}

// Service holds the tracker's state explicitly; construct one per process.
type Service struct {
	runner         ETLRunner
	store          interfaces.MarketStorage
	opts           Options
	companies      []Company
	lastUpdated    map[string]time.Time
	lastNewsUpdate time.Time
	cycles         int
	now            func() time.Time
	sleep          common.SleepFunc
	logger         arbor.ILogger
}

// NewService creates a tracker. The first cycle refreshes news unless the news
// interval exceeds one hour.
func NewService(runner ETLRunner, store interfaces.MarketStorage, opts Options, logger arbor.ILogger) *Service {
	s := &Service{
		runner:      runner,
		store:       store,
		opts:        opts,
		lastUpdated: make(map[string]time.Time),
		now:         time.Now,
		sleep:       common.SleepContext,
		logger:      logger,
	}
	s.lastNewsUpdate = s.now().Add(-time.Hour)
	return s
}

// LoadCompanies reads the active stocks from the store, falling back to the configured symbols.
func (s *Service) LoadCompanies(ctx context.Context) ([]Company, error) {
	stocks, err := s.store.ListActiveStocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load companies: %w", err)
	}

	s.companies = s.companies[:0]
	for _, stock := range stocks {
		s.companies = append(s.companies, Company{Symbol: stock.Symbol, Name: stock.CompanyName})
	}

	if len(s.companies) == 0 {
		for _, t := range common.ParseTickers(s.opts.FallbackSymbols) {
			s.companies = append(s.companies, Company{Symbol: t.Symbol(), Name: t.Symbol()})
		}
		if len(s.companies) > 0 {
			s.logger.Warn().Int("symbols", len(s.companies)).Msg("No active stocks in database, tracking configured symbols")
		}
	}

	return s.companies, nil
}

// Run loads the companies and runs cycles until ctx is cancelled, returning the
// number of completed cycles.
func (s *Service) Run(ctx context.Context) (int, error) {
	companies, err := s.LoadCompanies(ctx)
	if err != nil {
		return 0, err
	}
	if len(companies) == 0 {
		return 0, ErrNoCompanies
	}

	for _, c := range companies {
		s.logger.Info().Str("symbol", c.Symbol).Str("company", c.Name).Msg("Tracking company")
	}
	s.logger.Info().
		Str("update_interval", s.opts.UpdateInterval.String()).
		Str("news_update_interval", s.opts.NewsUpdateInterval.String()).
		Msg("Starting continuous tracking")

	for ctx.Err() == nil {
		result, err := s.RunCycle(ctx)
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			s.logger.Error().Err(err).Int("cycle", result.Number).Msg("Cycle failed")
		} else {
			s.logger.Info().
				Int("cycle", result.Number).
				Int("updated", result.Updated).
				Int("attempted", result.Attempted).
				Bool("news_refreshed", result.NewsRefreshed).
				Str("duration", result.Duration.Round(100*time.Millisecond).String()).
				Str("next_cycle_in", s.opts.UpdateInterval.String()).
				Msg("Cycle completed")
		}

		if err := s.sleep(ctx, s.opts.UpdateInterval); err != nil {
			break
		}
	}

	s.logger.Info().Int("cycles", s.cycles).Msg(fmt.Sprintf("Completed %d tracking cycles", s.cycles))
	return s.cycles, nil
}

// RunCycle refreshes every symbol whose last update is older than the update
// interval, then news when due. A cycle interrupted by ctx is not counted.
func (s *Service) RunCycle(ctx context.Context) (result CycleResult, err error) {
	number := s.cycles + 1
	cycleLogger := s.logger.WithCorrelationId(common.NewRunID())
	started := s.now()

	defer func() {
		if r := recover(); r != nil {
			err = common.RecoverAsError(cycleLogger, fmt.Sprintf("tracking cycle %d", number), r)
		}
	}()

	cycleLogger.Info().Int("cycle", number).Msg("Cycle started")
	result.Number = number

	for _, company := range s.companies {
		if !s.shouldUpdateStock(company.Symbol) {
			continue
		}
		result.Attempted++
		if s.updateStock(ctx, cycleLogger, company) {
			result.Updated++
		}

		if err := s.sleep(ctx, s.opts.RateLimitDelay); err != nil {
			return result, err
		}
	}

	if s.shouldUpdateNews() {
		cycleLogger.Info().Msg("Updating news data")
		news := s.runner.RunNewsETL(ctx)
		if news.Loaded() {
			s.lastNewsUpdate = s.now()
			result.NewsRefreshed = true
		} else {
			cycleLogger.Warn().Msg("Failed to store news data")
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	s.cycles = number
	result.Duration = s.now().Sub(started)
	return result, nil
}

// Cycles returns the number of completed cycles.
func (s *Service) Cycles() int {
	return s.cycles
}

func (s *Service) shouldUpdateStock(symbol string) bool {
	last, ok := s.lastUpdated[symbol]
	if !ok {
		return true
	}
	return s.now().Sub(last) >= s.opts.UpdateInterval
}

func (s *Service) shouldUpdateNews() bool {
	return s.now().Sub(s.lastNewsUpdate) >= s.opts.NewsUpdateInterval
}

func (s *Service) updateStock(ctx context.Context, logger arbor.ILogger, company Company) bool {
	logger.Info().Str("symbol", company.Symbol).Str("company", company.Name).Msg("Fetching stock data")

	result := s.runner.RunStockETL(ctx, company.Symbol)
	if !result.Success {
		logger.Warn().Err(result.Err).Str("symbol", company.Symbol).Msg("Failed to store stock data")
		return false
	}
	s.lastUpdated[company.Symbol] = s.now()

	latest, err := s.store.GetLatestPrice(ctx, company.Symbol)
	if err != nil {
		logger.Debug().Err(err).Str("symbol", company.Symbol).Msg("Latest price unavailable")
		return true
	}
	logger.Info().
		Str("symbol", company.Symbol).
		Str("date", latest.Date).
		Str("close", fmt.Sprintf("%.2f", latest.Close)).
		Int64("volume", latest.Volume).
		Int("inserted", result.Prices.Inserted).
		Msg("Stored stock data")
	return true
}
