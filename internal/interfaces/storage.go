// -----------------------------------------------------------------------
// Last Modified: Saturday, 17th October 2026 9:20:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/stockit/internal/models"
)

// ErrNotFound is returned when a lookup by natural key finds no row
var ErrNotFound = errors.New("not found")

// MarketStorage - the relational market-data store
type MarketStorage interface {
	// BeginTx opens one load batch; the caller must Commit or Rollback
	BeginTx(ctx context.Context) (MarketTx, error)

	// ListActiveStocks returns stocks with is_active set, ordered by symbol
	ListActiveStocks(ctx context.Context) ([]*models.Stock, error)

	// GetLatestPrice returns the most recent price row for a symbol
	GetLatestPrice(ctx context.Context, symbol string) (*models.PriceRecord, error)

	Close() error
}

// MarketTx - key-based reads and additive writes inside one transaction.
// Get* methods return an error wrapping ErrNotFound when the key is absent.
type MarketTx interface {
	// Stock operations
	GetStockBySymbol(ctx context.Context, symbol string) (*models.Stock, error)
	CreateStock(ctx context.Context, stock *models.Stock) error
	UpdateStockInfo(ctx context.Context, stock *models.Stock) error
	ListActiveStocks(ctx context.Context) ([]*models.Stock, error)

	// Price operations
	PriceExists(ctx context.Context, stockID int64, date string) (bool, error)
	InsertPrice(ctx context.Context, price *models.PriceRecord) error

	// News operations
	GetSourceByName(ctx context.Context, name string) (*models.NewsSource, error)
	CreateSource(ctx context.Context, source *models.NewsSource) error
	ArticleExists(ctx context.Context, url string) (bool, error)
	InsertArticle(ctx context.Context, article *models.NewsArticle) error

	// Enrichment operations
	InsertSentiment(ctx context.Context, record *models.SentimentRecord) error
	RelationExists(ctx context.Context, stockID, newsID int64) (bool, error)
	InsertRelation(ctx context.Context, relation *models.StockNewsRelation) error

	// WithSavepoint runs fn inside a savepoint; when fn fails only its writes are undone
	WithSavepoint(ctx context.Context, name string, fn func() error) error

	Commit() error
	Rollback() error
}

// JobSettingsStorage - persisted scheduler job state
type JobSettingsStorage interface {
	SaveJobRun(ctx context.Context, run *models.JobRun) error
	GetJobRun(ctx context.Context, name string) (*models.JobRun, error)
	ListJobRuns(ctx context.Context) ([]*models.JobRun, error)
}

// ReportStorage - read-only queries for the database viewer
type ReportStorage interface {
	GetSummary(ctx context.Context) (*models.DatabaseSummary, error)
	GetStockDetail(ctx context.Context, symbol string) (*models.StockDetail, error)
	ListSources(ctx context.Context) ([]*models.NewsSource, error)
}
