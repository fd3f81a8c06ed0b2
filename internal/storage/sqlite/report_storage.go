package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockit/internal/interfaces"
	"github.com/ternarybob/stockit/internal/models"
)

const (
	summaryStockLimit  = 20
	summaryPriceLimit  = 10
	summaryNewsLimit   = 5
	detailHistoryLimit = 10
)

// ReportStorage implements interfaces.ReportStorage for SQLite
type ReportStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewReportStorage creates a new ReportStorage instance
func NewReportStorage(db *SQLiteDB, logger arbor.ILogger) *ReportStorage {
	return &ReportStorage{
		db:     db,
		logger: logger,
	}
}

// GetSummary collects table counts and the most recent rows of each table
func (s *ReportStorage) GetSummary(ctx context.Context) (*models.DatabaseSummary, error) {
	db := s.db.db
	summary := &models.DatabaseSummary{}

	tables, err := queryStrings(ctx, db,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	summary.Tables = tables

	counts := []struct {
		table string
		dest  *int
	}{
		{"stocks", &summary.StockCount},
		{"stock_prices", &summary.PriceCount},
		{"financial_news", &summary.NewsCount},
		{"sentiment_analysis", &summary.SentimentCount},
		{"stock_news_relations", &summary.RelationCount},
	}
	for _, c := range counts {
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}

	stockRows, err := db.QueryContext(ctx,
		`SELECT `+stockColumns+` FROM stocks ORDER BY symbol LIMIT ?`, summaryStockLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}
	defer stockRows.Close()
	for stockRows.Next() {
		stock, err := scanStock(stockRows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		summary.Stocks = append(summary.Stocks, stock)
	}
	if err := stockRows.Err(); err != nil {
		return nil, err
	}

	priceRows, err := db.QueryContext(ctx, `
		SELECT s.symbol, sp.date, sp.close_price, sp.volume
		FROM stock_prices sp
		JOIN stocks s ON sp.stock_id = s.stock_id
		ORDER BY sp.date DESC, s.symbol
		LIMIT ?`, summaryPriceLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest prices: %w", err)
	}
	defer priceRows.Close()
	for priceRows.Next() {
		var p models.LatestPrice
		if err := priceRows.Scan(&p.Symbol, &p.Date, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		summary.LatestPrices = append(summary.LatestPrices, p)
	}
	if err := priceRows.Err(); err != nil {
		return nil, err
	}

	newsRows, err := db.QueryContext(ctx, `
		SELECT fn.title, ns.source_name, fn.published_at
		FROM financial_news fn
		JOIN news_sources ns ON fn.source_id = ns.source_id
		ORDER BY fn.published_at DESC
		LIMIT ?`, summaryNewsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest news: %w", err)
	}
	defer newsRows.Close()
	for newsRows.Next() {
		var h models.NewsHeadline
		var publishedAt sql.NullInt64
		if err := newsRows.Scan(&h.Title, &h.SourceName, &publishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan news: %w", err)
		}
		h.PublishedAt = timeFromNull(publishedAt)
		summary.LatestNews = append(summary.LatestNews, h)
	}
	if err := newsRows.Err(); err != nil {
		return nil, err
	}

	sentimentRows, err := db.QueryContext(ctx, `
		SELECT analysis_model, sentiment_label, AVG(sentiment_score), COUNT(*)
		FROM sentiment_analysis
		GROUP BY analysis_model, sentiment_label
		ORDER BY analysis_model, sentiment_label`)
	if err != nil {
		return nil, fmt.Errorf("failed to group sentiment: %w", err)
	}
	defer sentimentRows.Close()
	for sentimentRows.Next() {
		var g models.SentimentGroup
		var label string
		if err := sentimentRows.Scan(&g.Model, &label, &g.AverageScore, &g.Count); err != nil {
			return nil, fmt.Errorf("failed to scan sentiment group: %w", err)
		}
		g.Label = models.SentimentLabel(label)
		summary.SentimentGroups = append(summary.SentimentGroups, g)
	}

	return summary, sentimentRows.Err()
}

// GetStockDetail returns a stock with its recent prices and linked news
func (s *ReportStorage) GetStockDetail(ctx context.Context, symbol string) (*models.StockDetail, error) {
	db := s.db.db
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	stock, err := scanStock(db.QueryRowContext(ctx, `SELECT `+stockColumns+` FROM stocks WHERE symbol = ?`, symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("stock %s: %w", symbol, interfaces.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock: %w", err)
	}

	detail := &models.StockDetail{Stock: stock}

	priceRows, err := db.QueryContext(ctx, `
		SELECT price_id, stock_id, date, open_price, high_price, low_price,
		       close_price, adjusted_close, volume, created_at
		FROM stock_prices
		WHERE stock_id = ?
		ORDER BY date DESC
		LIMIT ?`, stock.ID, detailHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}
	defer priceRows.Close()
	for priceRows.Next() {
		price, err := scanPrice(priceRows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		detail.Prices = append(detail.Prices, price)
	}
	if err := priceRows.Err(); err != nil {
		return nil, err
	}

	// LEFT JOIN keeps linked articles that have no sentiment rows yet
	newsRows, err := db.QueryContext(ctx, `
		SELECT fn.title, fn.published_at,
		       COALESCE(sa.analysis_model, ''), COALESCE(sa.sentiment_label, ''), COALESCE(sa.sentiment_score, 0.0)
		FROM financial_news fn
		JOIN stock_news_relations snr ON fn.news_id = snr.news_id
		LEFT JOIN sentiment_analysis sa ON fn.news_id = sa.news_id
		WHERE snr.stock_id = ?
		ORDER BY fn.published_at DESC
		LIMIT ?`, stock.ID, detailHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock news: %w", err)
	}
	defer newsRows.Close()
	for newsRows.Next() {
		var item models.StockNewsItem
		var publishedAt sql.NullInt64
		var label string
		if err := newsRows.Scan(&item.Title, &publishedAt, &item.Model, &label, &item.Score); err != nil {
			return nil, fmt.Errorf("failed to scan stock news: %w", err)
		}
		item.PublishedAt = timeFromNull(publishedAt)
		item.Label = models.SentimentLabel(label)
		detail.News = append(detail.News, item)
	}

	return detail, newsRows.Err()
}

// ListSources returns all news sources ordered by name
func (s *ReportStorage) ListSources(ctx context.Context) ([]*models.NewsSource, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT source_id, source_name, source_url, credibility_score, is_active
		FROM news_sources ORDER BY source_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list news sources: %w", err)
	}
	defer rows.Close()

	var sources []*models.NewsSource
	for rows.Next() {
		var source models.NewsSource
		var url sql.NullString
		if err := rows.Scan(&source.ID, &source.Name, &url, &source.CredibilityScore, &source.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan news source: %w", err)
		}
		source.URL = url.String
		sources = append(sources, &source)
	}
	return sources, rows.Err()
}

func queryStrings(ctx context.Context, q queryer, query string, args ...interface{}) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
