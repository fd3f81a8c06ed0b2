// -----------------------------------------------------------------------
// Last Modified: Saturday, 17th October 2026 2:05:00 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockit/internal/common"
	"github.com/ternarybob/stockit/internal/eodhd"
	"github.com/ternarybob/stockit/internal/etl"
	"github.com/ternarybob/stockit/internal/interfaces"
	"github.com/ternarybob/stockit/internal/newsapi"
	"github.com/ternarybob/stockit/internal/sentiment"
	"github.com/ternarybob/stockit/internal/services/scheduler"
	"github.com/ternarybob/stockit/internal/services/tracker"
	"github.com/ternarybob/stockit/internal/storage/sqlite"
)

// Scheduled job names
const (
	JobStockUpdates = "stock_updates"
	JobNewsUpdates  = "news_updates"
	JobFullETL      = "full_etl"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	DB             *sqlite.SQLiteDB
	MarketStorage  *sqlite.MarketStorage
	JobStorage     *sqlite.JobSettingsStorage
	ReportStorage  interfaces.ReportStorage
	PriceProvider  interfaces.PriceProvider
	NewsProvider   interfaces.NewsProvider
	Analyzer       *sentiment.Analyzer
	Pipeline       *etl.Pipeline
	Scheduler      *scheduler.Service
	TrackerService *tracker.Service

	closeOnce sync.Once
	closeErr  error
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initProviders(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	app.initServices()

	logger.Debug().
		Str("news_provider", cfg.News.Provider).
		Int("symbols", len(app.Pipeline.Symbols())).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase opens the SQLite store and its storages
func (a *App) initDatabase() error {
	db, err := sqlite.NewSQLiteDB(a.Logger, &a.Config.Storage.SQLite)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return fmt.Errorf("database not reachable: %w", err)
	}

	a.DB = db
	a.MarketStorage = sqlite.NewMarketStorage(db, a.Logger)
	a.JobStorage = sqlite.NewJobSettingsStorage(db, a.Logger)
	a.ReportStorage = sqlite.NewReportStorage(db, a.Logger)
	return nil
}

// initProviders builds the market data and news adapters
func (a *App) initProviders() error {
	cfg := a.Config

	if cfg.EODHD.APIKey == "" {
		a.Logger.Warn().Msg("EODHD API key not configured, price extraction will fail")
	}
	eodClient := eodhd.NewClient(cfg.EODHD.APIKey,
		eodhd.WithBaseURL(cfg.EODHD.BaseURL),
		eodhd.WithTimeout(common.ParseDurationOr(cfg.EODHD.Timeout, 30*time.Second)),
		eodhd.WithRateLimit(cfg.EODHD.RateLimit),
		eodhd.WithLogger(a.Logger),
	)
	eodProvider := eodhd.NewProvider(eodClient, common.ParseDurationOr(cfg.EODHD.FundamentalsCacheTTL, 6*time.Hour), a.Logger)
	a.PriceProvider = eodProvider

	switch strings.ToLower(cfg.News.Provider) {
	case "", "newsapi":
		if cfg.NewsAPI.APIKey == "" {
			a.Logger.Warn().Msg("NewsAPI key not configured, news extraction will fail")
		}
		client := newsapi.NewClient(cfg.NewsAPI.APIKey,
			newsapi.WithBaseURL(cfg.NewsAPI.BaseURL),
			newsapi.WithTimeout(common.ParseDurationOr(cfg.NewsAPI.Timeout, 30*time.Second)),
			newsapi.WithRateLimit(cfg.NewsAPI.RateLimit),
			newsapi.WithLogger(a.Logger),
		)
		a.NewsProvider = newsapi.NewProvider(client, a.Logger)
	case "eodhd":
		a.NewsProvider = eodProvider
	default:
		return fmt.Errorf("unknown news provider %q", cfg.News.Provider)
	}

	return nil
}

// initServices wires the ETL pipeline, scheduler and tracker in dependency order
func (a *App) initServices() {
	cfg := a.Config

	a.Analyzer = sentiment.NewAnalyzer(a.Logger)
	enricher := etl.NewEnricher(a.Analyzer, nil, a.Logger)
	linker := etl.NewLinker(cfg.ETL.RelevanceScore, a.Logger)
	loader := etl.NewLoader(a.MarketStorage, enricher, linker, cfg.ETL.CredibilityScore, a.Logger)

	opts := etl.DefaultOptions()
	opts.Lookback = cfg.ETL.Lookback
	opts.LightBars = cfg.ETL.LightBars
	opts.RateLimitDelay = common.ParseDurationOr(cfg.ETL.RateLimitDelay, opts.RateLimitDelay)
	if cfg.News.Category != "" {
		opts.NewsCategory = cfg.News.Category
	}
	if cfg.News.PageSize > 0 {
		opts.NewsPageSize = cfg.News.PageSize
	}
	opts.NewsSources = cfg.News.Sources
	a.Pipeline = etl.NewPipeline(a.PriceProvider, a.NewsProvider, loader, cfg.ETL.Symbols, opts, a.Logger)

	a.Scheduler = scheduler.NewService(a.JobStorage, common.ParseDurationOr(cfg.Scheduler.Tick, scheduler.DefaultTick), a.Logger)

	a.TrackerService = tracker.NewService(a.Pipeline, a.MarketStorage, tracker.Options{
		UpdateInterval:     common.ParseDurationOr(cfg.Tracker.UpdateInterval, 300*time.Second),
		NewsUpdateInterval: common.ParseDurationOr(cfg.Tracker.NewsUpdateInterval, 1800*time.Second),
		RateLimitDelay:     common.ParseDurationOr(cfg.Tracker.RateLimitDelay, 12*time.Second),
		FallbackSymbols:    cfg.ETL.Symbols,
	}, a.Logger)
}

// RegisterJobs registers the three recurring ETL triggers with the scheduler
func (a *App) RegisterJobs(ctx context.Context) error {
	jobs := []struct {
		name    string
		spec    string
		handler interfaces.JobHandler
	}{
		{JobStockUpdates, a.Config.Scheduler.StockUpdates, a.stockUpdatesJob},
		{JobNewsUpdates, a.Config.Scheduler.NewsUpdates, a.newsUpdatesJob},
		{JobFullETL, a.Config.Scheduler.FullETL, a.fullETLJob},
	}

	for _, job := range jobs {
		if err := a.Scheduler.RegisterJob(ctx, job.name, job.spec, job.handler); err != nil {
			return fmt.Errorf("failed to register job %s: %w", job.name, err)
		}
	}
	return nil
}

// RunScheduler registers the jobs, optionally runs one full ETL, then blocks in the
// scheduler loop until ctx is cancelled.
func (a *App) RunScheduler(ctx context.Context) error {
	if err := a.RegisterJobs(ctx); err != nil {
		return err
	}

	if a.Config.Scheduler.RunOnStart {
		a.Logger.Info().Msg("Running initial full ETL")
		report := a.Pipeline.RunFullETL(ctx)
		a.Logger.Info().Str("run_id", report.ID).Msg(report.Summary())
	}

	if ctx.Err() != nil {
		return nil
	}
	return a.Scheduler.Start(ctx)
}

func (a *App) stockUpdatesJob(ctx context.Context) error {
	results := a.Pipeline.RunStockUpdates(ctx)
	var failed []string
	for _, r := range results {
		if !r.Success {
			failed = append(failed, r.Symbol)
		}
	}
	if len(results) > 0 && len(failed) == len(results) {
		return fmt.Errorf("stock updates failed for every symbol: %s", strings.Join(failed, ", "))
	}
	return nil
}

func (a *App) newsUpdatesJob(ctx context.Context) error {
	result := a.Pipeline.RunNewsETL(ctx)
	if !result.Loaded() {
		return errors.New("no news batch loaded")
	}
	return nil
}

func (a *App) fullETLJob(ctx context.Context) error {
	report := a.Pipeline.RunFullETL(ctx)
	if report.Interrupted {
		return fmt.Errorf("full ETL %s interrupted: %s", report.ID, report.Summary())
	}
	if len(report.Symbols) > 0 && len(report.Succeeded()) == 0 {
		return fmt.Errorf("full ETL %s loaded no symbols", report.ID)
	}
	return nil
}

// Close releases the store handle. Safe to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		if a.DB != nil {
			a.closeErr = a.DB.Close()
			if a.closeErr != nil {
				a.Logger.Warn().Err(a.closeErr).Msg("Failed to close database")
			} else {
				a.Logger.Debug().Msg("Database closed")
			}
		}
	})
	return a.closeErr
}
