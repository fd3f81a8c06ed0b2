package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockit/internal/interfaces"
	"github.com/ternarybob/stockit/internal/models"
)

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const stockColumns = `stock_id, symbol, company_name, sector, market_cap, exchange, is_active, created_at, updated_at`

// MarketStorage implements interfaces.MarketStorage for SQLite
type MarketStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewMarketStorage creates a new MarketStorage instance
func NewMarketStorage(db *SQLiteDB, logger arbor.ILogger) *MarketStorage {
	return &MarketStorage{
		db:     db,
		logger: logger,
	}
}

// BeginTx starts one load batch
func (s *MarketStorage) BeginTx(ctx context.Context) (interfaces.MarketTx, error) {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &marketTx{tx: tx, logger: s.logger}, nil
}

// ListActiveStocks returns all active stocks ordered by symbol
func (s *MarketStorage) ListActiveStocks(ctx context.Context) ([]*models.Stock, error) {
	return listActiveStocks(ctx, s.db.db)
}

// GetLatestPrice returns the most recent price row for symbol
func (s *MarketStorage) GetLatestPrice(ctx context.Context, symbol string) (*models.PriceRecord, error) {
	query := `
		SELECT sp.price_id, sp.stock_id, sp.date, sp.open_price, sp.high_price, sp.low_price,
		       sp.close_price, sp.adjusted_close, sp.volume, sp.created_at
		FROM stock_prices sp
		JOIN stocks s ON s.stock_id = sp.stock_id
		WHERE s.symbol = ?
		ORDER BY sp.date DESC
		LIMIT 1`

	price, err := scanPrice(s.db.db.QueryRowContext(ctx, query, symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest price for %s: %w", symbol, interfaces.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}
	return price, nil
}

// Close closes the underlying database
func (s *MarketStorage) Close() error {
	return s.db.Close()
}

// marketTx implements interfaces.MarketTx over a *sql.Tx
type marketTx struct {
	tx     *sql.Tx
	logger arbor.ILogger
}

func (t *marketTx) GetStockBySymbol(ctx context.Context, symbol string) (*models.Stock, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+stockColumns+` FROM stocks WHERE symbol = ?`, symbol)
	stock, err := scanStock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("stock %s: %w", symbol, interfaces.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock: %w", err)
	}
	return stock, nil
}

func (t *marketTx) CreateStock(ctx context.Context, stock *models.Stock) error {
	now := time.Now()
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO stocks (symbol, company_name, sector, market_cap, exchange, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		stock.Symbol, stock.CompanyName, nullString(stock.Sector), nullInt64(stock.MarketCap),
		nullString(stock.Exchange), stock.IsActive, now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to create stock %s: %w", stock.Symbol, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read stock id: %w", err)
	}
	stock.ID = id
	stock.CreatedAt = now
	stock.UpdatedAt = now
	return nil
}

func (t *marketTx) UpdateStockInfo(ctx context.Context, stock *models.Stock) error {
	now := time.Now()
	result, err := t.tx.ExecContext(ctx, `
		UPDATE stocks
		SET company_name = ?, sector = ?, exchange = ?, market_cap = ?, updated_at = ?
		WHERE stock_id = ?`,
		stock.CompanyName, nullString(stock.Sector), nullString(stock.Exchange),
		nullInt64(stock.MarketCap), now.Unix(), stock.ID)
	if err != nil {
		return fmt.Errorf("failed to update stock %s: %w", stock.Symbol, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("stock %s: %w", stock.Symbol, interfaces.ErrNotFound)
	}
	stock.UpdatedAt = now
	return nil
}

func (t *marketTx) ListActiveStocks(ctx context.Context) ([]*models.Stock, error) {
	return listActiveStocks(ctx, t.tx)
}

func (t *marketTx) PriceExists(ctx context.Context, stockID int64, date string) (bool, error) {
	return exists(ctx, t.tx, `SELECT 1 FROM stock_prices WHERE stock_id = ? AND date = ?`, stockID, date)
}

func (t *marketTx) InsertPrice(ctx context.Context, price *models.PriceRecord) error {
	now := time.Now()
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO stock_prices (stock_id, date, open_price, high_price, low_price, close_price, adjusted_close, volume, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		price.StockID, price.Date, price.Open, price.High, price.Low, price.Close,
		price.AdjustedClose, price.Volume, now.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert price %d/%s: %w", price.StockID, price.Date, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read price id: %w", err)
	}
	price.ID = id
	price.CreatedAt = now
	return nil
}

func (t *marketTx) GetSourceByName(ctx context.Context, name string) (*models.NewsSource, error) {
	var source models.NewsSource
	var url sql.NullString
	err := t.tx.QueryRowContext(ctx, `
		SELECT source_id, source_name, source_url, credibility_score, is_active
		FROM news_sources WHERE source_name = ?`, name).
		Scan(&source.ID, &source.Name, &url, &source.CredibilityScore, &source.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("news source %s: %w", name, interfaces.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get news source: %w", err)
	}
	source.URL = url.String
	return &source, nil
}

func (t *marketTx) CreateSource(ctx context.Context, source *models.NewsSource) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO news_sources (source_name, source_url, credibility_score, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		source.Name, nullString(source.URL), source.CredibilityScore, source.IsActive, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to create news source %s: %w", source.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read source id: %w", err)
	}
	source.ID = id
	return nil
}

func (t *marketTx) ArticleExists(ctx context.Context, url string) (bool, error) {
	return exists(ctx, t.tx, `SELECT 1 FROM financial_news WHERE url = ?`, url)
}

func (t *marketTx) InsertArticle(ctx context.Context, article *models.NewsArticle) error {
	now := time.Now()
	var publishedAt sql.NullInt64
	if article.PublishedAt != nil {
		publishedAt = sql.NullInt64{Int64: article.PublishedAt.Unix(), Valid: true}
	}
	var author sql.NullString
	if article.Author != nil {
		author = sql.NullString{String: *article.Author, Valid: true}
	}

	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO financial_news (title, content, author, published_at, url, source_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		article.Title, article.Content, author, publishedAt, article.URL, article.SourceID, now.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert article %s: %w", article.URL, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read news id: %w", err)
	}
	article.ID = id
	article.CreatedAt = now
	return nil
}

func (t *marketTx) InsertSentiment(ctx context.Context, record *models.SentimentRecord) error {
	now := time.Now()
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO sentiment_analysis (news_id, sentiment_score, sentiment_label, confidence_score, analysis_model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		record.NewsID, record.Score, string(record.Label), record.Confidence, record.Model, now.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert sentiment %d/%s: %w", record.NewsID, record.Model, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read sentiment id: %w", err)
	}
	record.ID = id
	record.CreatedAt = now
	return nil
}

func (t *marketTx) RelationExists(ctx context.Context, stockID, newsID int64) (bool, error) {
	return exists(ctx, t.tx, `SELECT 1 FROM stock_news_relations WHERE stock_id = ? AND news_id = ?`, stockID, newsID)
}

func (t *marketTx) InsertRelation(ctx context.Context, relation *models.StockNewsRelation) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO stock_news_relations (stock_id, news_id, relevance_score)
		VALUES (?, ?, ?)`,
		relation.StockID, relation.NewsID, relation.RelevanceScore)
	if err != nil {
		return fmt.Errorf("failed to insert relation %d/%d: %w", relation.StockID, relation.NewsID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read relation id: %w", err)
	}
	relation.ID = id
	return nil
}

func (t *marketTx) WithSavepoint(ctx context.Context, name string, fn func() error) error {
	if !isIdentifier(name) {
		return fmt.Errorf("invalid savepoint name %q", name)
	}
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to open savepoint %s: %w", name, err)
	}

	if err := fn(); err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return fmt.Errorf("%w (rollback to savepoint %s failed: %v)", err, name, rbErr)
		}
		if _, relErr := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); relErr != nil {
			t.logger.Warn().Err(relErr).Str("savepoint", name).Msg("Failed to release savepoint")
		}
		return err
	}

	if _, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to release savepoint %s: %w", name, err)
	}
	return nil
}

func (t *marketTx) Commit() error {
	return t.tx.Commit()
}

func (t *marketTx) Rollback() error {
	return t.tx.Rollback()
}

func listActiveStocks(ctx context.Context, q queryer) ([]*models.Stock, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+stockColumns+` FROM stocks WHERE is_active = 1 ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active stocks: %w", err)
	}
	defer rows.Close()

	var stocks []*models.Stock
	for rows.Next() {
		stock, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, stock)
	}
	return stocks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStock(row rowScanner) (*models.Stock, error) {
	var stock models.Stock
	var sector, exchange sql.NullString
	var marketCap sql.NullInt64
	var createdAt, updatedAt sql.NullInt64

	err := row.Scan(&stock.ID, &stock.Symbol, &stock.CompanyName, &sector, &marketCap,
		&exchange, &stock.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	stock.Sector = sector.String
	stock.Exchange = exchange.String
	if marketCap.Valid {
		v := marketCap.Int64
		stock.MarketCap = &v
	}
	stock.CreatedAt = time.Unix(createdAt.Int64, 0)
	stock.UpdatedAt = time.Unix(updatedAt.Int64, 0)
	return &stock, nil
}

func scanPrice(row rowScanner) (*models.PriceRecord, error) {
	var price models.PriceRecord
	var adjusted sql.NullFloat64
	var createdAt sql.NullInt64

	err := row.Scan(&price.ID, &price.StockID, &price.Date, &price.Open, &price.High, &price.Low,
		&price.Close, &adjusted, &price.Volume, &createdAt)
	if err != nil {
		return nil, err
	}

	price.AdjustedClose = price.Close
	if adjusted.Valid {
		price.AdjustedClose = adjusted.Float64
	}
	price.CreatedAt = time.Unix(createdAt.Int64, 0)
	return &price, nil
}

func exists(ctx context.Context, q queryer, query string, args ...interface{}) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("existence check failed: %w", err)
	}
	return true, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	return strings.IndexFunc(name, func(r rune) bool {
		return !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) < 0
}
