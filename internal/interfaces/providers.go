package interfaces

import (
	"context"

	"github.com/ternarybob/stockit/internal/models"
)

// PriceProvider supplies daily bars and company fundamentals.
// An empty result with a nil error means the provider had no data.
type PriceProvider interface {
	FetchDailyBars(ctx context.Context, symbol string, lookback string) ([]models.PriceBar, error)
	FetchFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error)
}

// NewsProvider supplies articles for a category or a free-text query.
type NewsProvider interface {
	FetchTopHeadlines(ctx context.Context, category string, pageSize int) ([]models.Article, error)
	FetchEverything(ctx context.Context, query string, sources string, pageSize int) ([]models.Article, error)
}

// SentimentScorer scores a text blob under a named model.
type SentimentScorer interface {
	Score(ctx context.Context, text string, model string) (models.SentimentResult, error)
}
