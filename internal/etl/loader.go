package etl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockit/internal/interfaces"
	"github.com/ternarybob/stockit/internal/models"
)

// LoadStats counts what one load call did.
type LoadStats struct {
	Received       int // records handed to the loader
	Inserted       int // new rows written
	Skipped        int // natural key already present
	Dropped        int // records without a dedup key (news without url)
	StocksCreated  int
	SourcesCreated int
	Sentiments     int // sentiment rows written
	Relations      int // stock/news relations written
	EnrichFailures int
}

// Loader persists transformed records with at-most-one-row-per-natural-key semantics.
// Each call runs in one transaction that either commits fully or is rolled back.
type Loader struct {
	store            interfaces.MarketStorage
	enricher         *Enricher
	linker           *Linker
	credibilityScore float64
	logger           arbor.ILogger
}

// NewLoader creates a loader. enricher and linker run once per newly inserted article.
func NewLoader(store interfaces.MarketStorage, enricher *Enricher, linker *Linker, credibilityScore float64, logger arbor.ILogger) *Loader {
	return &Loader{
		store:            store,
		enricher:         enricher,
		linker:           linker,
		credibilityScore: credibilityScore,
		logger:           logger,
	}
}

// LoadPrices inserts price rows that are not yet stored. Existing (stock, date) rows are never overwritten.
func (l *Loader) LoadPrices(ctx context.Context, records []models.PriceInput) (stats LoadStats, err error) {
	stats.Received = len(records)
	if len(records) == 0 {
		return stats, nil
	}

	tx, err := l.store.BeginTx(ctx)
	if err != nil {
		return stats, newError(KindStore, "load_prices", "", err)
	}
	defer func() {
		if err != nil {
			l.rollback(tx, "load_prices")
		}
	}()

	stocks := make(map[string]*models.Stock)
	for _, r := range records {
		stock, ok := stocks[r.Symbol]
		if !ok {
			var created bool
			stock, created, err = l.getOrCreateStock(ctx, tx, r.Symbol)
			if err != nil {
				return stats, newError(KindStore, "load_prices", r.Symbol, err)
			}
			if created {
				stats.StocksCreated++
			}
			stocks[r.Symbol] = stock
		}

		found, err := tx.PriceExists(ctx, stock.ID, r.Date)
		if err != nil {
			return stats, newError(KindStore, "load_prices", r.Symbol, err)
		}
		if found {
			stats.Skipped++
			continue
		}

		price := &models.PriceRecord{
			StockID:       stock.ID,
			Date:          r.Date,
			Open:          r.Open,
			High:          r.High,
			Low:           r.Low,
			Close:         r.Close,
			AdjustedClose: r.AdjustedClose,
			Volume:        r.Volume,
		}
		if err := tx.InsertPrice(ctx, price); err != nil {
			return stats, newError(KindStore, "load_prices", r.Symbol, err)
		}
		stats.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return stats, newError(KindStore, "load_prices", "", fmt.Errorf("commit: %w", err))
	}

	l.logger.Debug().
		Int("received", stats.Received).
		Int("inserted", stats.Inserted).
		Int("skipped", stats.Skipped).
		Msg("Loaded price batch")
	return stats, nil
}

// LoadCompanyInfo enriches an existing stock from fundamentals. It never creates the stock.
func (l *Loader) LoadCompanyInfo(ctx context.Context, symbol string, fundamentals *models.Fundamentals) (err error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if fundamentals == nil {
		return newError(KindProvider, "load_company", symbol, ErrNoData)
	}

	tx, err := l.store.BeginTx(ctx)
	if err != nil {
		return newError(KindStore, "load_company", symbol, err)
	}
	defer func() {
		if err != nil {
			l.rollback(tx, "load_company")
		}
	}()

	stock, err := tx.GetStockBySymbol(ctx, symbol)
	if err != nil {
		return newError(KindStore, "load_company", symbol, err)
	}

	companyInfo(stock, fundamentals)
	if err := tx.UpdateStockInfo(ctx, stock); err != nil {
		return newError(KindStore, "load_company", symbol, err)
	}

	if err := tx.Commit(); err != nil {
		return newError(KindStore, "load_company", symbol, fmt.Errorf("commit: %w", err))
	}

	l.logger.Debug().
		Str("symbol", symbol).
		Str("company", stock.CompanyName).
		Str("sector", stock.Sector).
		Msg("Updated company info")
	return nil
}

// LoadNews inserts articles whose url is not yet stored, enriching each new article
// before the batch commits. Enrichment failures are logged and never undo the article.
func (l *Loader) LoadNews(ctx context.Context, records []models.NewsInput) (stats LoadStats, err error) {
	stats.Received = len(records)
	if len(records) == 0 {
		return stats, nil
	}

	tx, err := l.store.BeginTx(ctx)
	if err != nil {
		return stats, newError(KindStore, "load_news", "", err)
	}
	defer func() {
		if err != nil {
			l.rollback(tx, "load_news")
		}
	}()

	sources := make(map[string]*models.NewsSource)
	for _, r := range records {
		source, ok := sources[r.SourceName]
		if !ok {
			var created bool
			source, created, err = l.getOrCreateSource(ctx, tx, r.SourceName)
			if err != nil {
				return stats, newError(KindStore, "load_news", r.SourceName, err)
			}
			if created {
				stats.SourcesCreated++
			}
			sources[r.SourceName] = source
		}

		if r.URL == nil {
			stats.Dropped++
			continue
		}

		found, err := tx.ArticleExists(ctx, *r.URL)
		if err != nil {
			return stats, newError(KindStore, "load_news", *r.URL, err)
		}
		if found {
			stats.Skipped++
			continue
		}

		article := &models.NewsArticle{
			Title:       r.Title,
			Content:     r.Content,
			Author:      r.Author,
			PublishedAt: r.PublishedAt,
			URL:         *r.URL,
			SourceID:    source.ID,
		}
		if err := tx.InsertArticle(ctx, article); err != nil {
			return stats, newError(KindStore, "load_news", *r.URL, err)
		}
		stats.Inserted++

		l.enrich(ctx, tx, article, &stats)
	}

	if err := tx.Commit(); err != nil {
		return stats, newError(KindStore, "load_news", "", fmt.Errorf("commit: %w", err))
	}

	l.logger.Info().
		Int("received", stats.Received).
		Int("inserted", stats.Inserted).
		Int("skipped", stats.Skipped).
		Int("dropped", stats.Dropped).
		Int("sentiments", stats.Sentiments).
		Int("relations", stats.Relations).
		Msg("Loaded news batch")
	return stats, nil
}

// enrich runs sentiment scoring and relevance linking, each inside its own savepoint.
func (l *Loader) enrich(ctx context.Context, tx interfaces.MarketTx, article *models.NewsArticle, stats *LoadStats) {
	if l.enricher != nil {
		stored, err := l.enricher.AnalyzeSentiment(ctx, tx, article)
		stats.Sentiments += stored
		if err != nil {
			stats.EnrichFailures++
			l.logger.Warn().Err(err).Int64("news_id", article.ID).Msg("Sentiment analysis incomplete")
		}
	}

	if l.linker != nil {
		var linked int
		err := tx.WithSavepoint(ctx, "relevance", func() error {
			var linkErr error
			linked, linkErr = l.linker.Link(ctx, tx, article)
			return linkErr
		})
		if err != nil {
			stats.EnrichFailures++
			l.logger.Warn().
				Err(newError(KindEnrichment, "link_news", article.URL, err)).
				Int64("news_id", article.ID).
				Msg("Failed to link news to stocks")
			return
		}
		stats.Relations += linked
	}
}

func (l *Loader) getOrCreateStock(ctx context.Context, tx interfaces.MarketTx, symbol string) (*models.Stock, bool, error) {
	stock, err := tx.GetStockBySymbol(ctx, symbol)
	if err == nil {
		return stock, false, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, false, err
	}

	// Placeholder name until fundamentals arrive
	stock = &models.Stock{Symbol: symbol, CompanyName: symbol, IsActive: true}
	if err := tx.CreateStock(ctx, stock); err != nil {
		return nil, false, err
	}
	l.logger.Info().Str("symbol", symbol).Msg("Created stock")
	return stock, true, nil
}

func (l *Loader) getOrCreateSource(ctx context.Context, tx interfaces.MarketTx, name string) (*models.NewsSource, bool, error) {
	source, err := tx.GetSourceByName(ctx, name)
	if err == nil {
		return source, false, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, false, err
	}

	source = &models.NewsSource{Name: name, CredibilityScore: l.credibilityScore, IsActive: true}
	if err := tx.CreateSource(ctx, source); err != nil {
		return nil, false, err
	}
	return source, true, nil
}

func (l *Loader) rollback(tx interfaces.MarketTx, op string) {
	if err := tx.Rollback(); err != nil {
		l.logger.Warn().Err(err).Str("operation", op).Msg("Rollback failed")
		return
	}
	l.logger.Warn().Str("operation", op).Msg("Batch rolled back")
}
