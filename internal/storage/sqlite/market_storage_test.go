package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockit/internal/common"
	"github.com/ternarybob/stockit/internal/interfaces"
	"github.com/ternarybob/stockit/internal/models"
)

// setupTestDB creates a migrated database in a temp dir
func setupTestDB(t *testing.T) *SQLiteDB {
	t.Helper()

	config := &common.SQLiteConfig{
		Path:          filepath.Join(t.TempDir(), "test.db"),
		CacheSizeMB:   10,
		WALMode:       false,
		BusyTimeoutMS: 5000,
	}

	db, err := NewSQLiteDB(arbor.NewNoOpLogger(), config)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func createStock(t *testing.T, ctx context.Context, tx interfaces.MarketTx, symbol, name string) *models.Stock {
	t.Helper()
	stock := &models.Stock{Symbol: symbol, CompanyName: name, IsActive: true}
	require.NoError(t, tx.CreateStock(ctx, stock))
	return stock
}

func TestNewSQLiteDB_MigrationsAreIdempotent(t *testing.T) {
	db := setupTestDB(t)

	// Re-running migrations against an applied schema is a no-op
	require.NoError(t, db.migrate())

	var count int
	require.NoError(t, db.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestSQLiteDB_CloseTwice(t *testing.T) {
	db := setupTestDB(t)

	assert.NoError(t, db.Close())
	assert.NoError(t, db.Close())
}

func TestSQLiteDB_Ping(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Ping(ctx))
	require.NoError(t, db.Close())
	assert.Error(t, db.Ping(ctx))
}

func TestMarketStorage_StockLifecycle(t *testing.T) {
	db := setupTestDB(t)
	storage := NewMarketStorage(db, arbor.NewNoOpLogger())
	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)

	_, err = tx.GetStockBySymbol(ctx, "AAPL")
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))

	stock := createStock(t, ctx, tx, "AAPL", "AAPL")
	assert.NotZero(t, stock.ID)

	marketCap := int64(3000000000000)
	stock.CompanyName = "Apple Inc"
	stock.Sector = "Technology"
	stock.Exchange = "NASDAQ"
	stock.MarketCap = &marketCap
	require.NoError(t, tx.UpdateStockInfo(ctx, stock))
	require.NoError(t, tx.Commit())

	stocks, err := storage.ListActiveStocks(ctx)
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	assert.Equal(t, "Apple Inc", stocks[0].CompanyName)
	assert.Equal(t, "Technology", stocks[0].Sector)
	require.NotNil(t, stocks[0].MarketCap)
	assert.Equal(t, marketCap, *stocks[0].MarketCap)
	assert.True(t, stocks[0].IsActive)
}

func TestMarketStorage_UpdateUnknownStock(t *testing.T) {
	db := setupTestDB(t)
	storage := NewMarketStorage(db, arbor.NewNoOpLogger())
	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	err = tx.UpdateStockInfo(ctx, &models.Stock{ID: 42, Symbol: "NOPE", CompanyName: "Nope"})
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))
}

func TestMarketStorage_PriceUniquePerStockAndDate(t *testing.T) {
	db := setupTestDB(t)
	storage := NewMarketStorage(db, arbor.NewNoOpLogger())
	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	stock := createStock(t, ctx, tx, "MSFT", "MSFT")

	price := &models.PriceRecord{StockID: stock.ID, Date: "2024-03-01", Open: 1, High: 2, Low: 0.5, Close: 1.5, AdjustedClose: 1.5, Volume: 100}
	require.NoError(t, tx.InsertPrice(ctx, price))

	found, err := tx.PriceExists(ctx, stock.ID, "2024-03-01")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = tx.PriceExists(ctx, stock.ID, "2024-03-02")
	require.NoError(t, err)
	assert.False(t, found)

	dup := *price
	assert.Error(t, tx.InsertPrice(ctx, &dup), "UNIQUE(stock_id, date) must reject duplicates")
	require.NoError(t, tx.Commit())

	latest, err := storage.GetLatestPrice(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", latest.Date)
	assert.Equal(t, 1.5, latest.Close)

	_, err = storage.GetLatestPrice(ctx, "TSLA")
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))
}

func TestMarketStorage_NewsAndEnrichmentRows(t *testing.T) {
	db := setupTestDB(t)
	storage := NewMarketStorage(db, arbor.NewNoOpLogger())
	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)

	_, err = tx.GetSourceByName(ctx, "Reuters")
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))

	source := &models.NewsSource{Name: "Reuters", CredibilityScore: 0.5, IsActive: true}
	require.NoError(t, tx.CreateSource(ctx, source))

	got, err := tx.GetSourceByName(ctx, "Reuters")
	require.NoError(t, err)
	assert.Equal(t, source.ID, got.ID)
	assert.Equal(t, 0.5, got.CredibilityScore)

	published := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	article := &models.NewsArticle{Title: "Apple beats", Content: "body", PublishedAt: &published, URL: "https://example.com/a", SourceID: source.ID}
	require.NoError(t, tx.InsertArticle(ctx, article))

	found, err := tx.ArticleExists(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.True(t, found)

	require.NoError(t, tx.InsertSentiment(ctx, &models.SentimentRecord{NewsID: article.ID, Score: 0.4, Label: models.SentimentPositive, Confidence: 0.4, Model: models.SentimentModelLexicon}))
	assert.Error(t, tx.InsertSentiment(ctx, &models.SentimentRecord{NewsID: article.ID, Score: 0.1, Label: models.SentimentNeutral, Confidence: 0.1, Model: models.SentimentModelLexicon}))

	stock := createStock(t, ctx, tx, "AAPL", "Apple Inc")
	require.NoError(t, tx.InsertRelation(ctx, &models.StockNewsRelation{StockID: stock.ID, NewsID: article.ID, RelevanceScore: 0.75}))

	linked, err := tx.RelationExists(ctx, stock.ID, article.ID)
	require.NoError(t, err)
	assert.True(t, linked)
	require.NoError(t, tx.Commit())
}

func TestMarketTx_WithSavepointRollsBackOnlyInnerWrites(t *testing.T) {
	db := setupTestDB(t)
	storage := NewMarketStorage(db, arbor.NewNoOpLogger())
	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)

	createStock(t, ctx, tx, "AAPL", "AAPL")

	err = tx.WithSavepoint(ctx, "inner", func() error {
		createStock(t, ctx, tx, "MSFT", "MSFT")
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")

	require.NoError(t, tx.WithSavepoint(ctx, "kept", func() error {
		createStock(t, ctx, tx, "NVDA", "NVDA")
		return nil
	}))
	require.NoError(t, tx.Commit())

	stocks, err := storage.ListActiveStocks(ctx)
	require.NoError(t, err)
	symbols := make([]string, 0, len(stocks))
	for _, s := range stocks {
		symbols = append(symbols, s.Symbol)
	}
	assert.Equal(t, []string{"AAPL", "NVDA"}, symbols)
}

func TestMarketTx_WithSavepointRejectsBadName(t *testing.T) {
	db := setupTestDB(t)
	storage := NewMarketStorage(db, arbor.NewNoOpLogger())
	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	called := false
	err = tx.WithSavepoint(ctx, "x; DROP TABLE stocks", func() error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestMarketTx_RollbackDiscardsBatch(t *testing.T) {
	db := setupTestDB(t)
	storage := NewMarketStorage(db, arbor.NewNoOpLogger())
	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	createStock(t, ctx, tx, "AAPL", "AAPL")
	require.NoError(t, tx.Rollback())

	stocks, err := storage.ListActiveStocks(ctx)
	require.NoError(t, err)
	assert.Empty(t, stocks)
}
