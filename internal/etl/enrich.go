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

// Enricher scores new articles under each configured sentiment model.
type Enricher struct {
	scorer interfaces.SentimentScorer
	models []string
	logger arbor.ILogger
}

// NewEnricher creates an enricher running sentimentModels in order.
// An empty list means models.SentimentModels.
func NewEnricher(scorer interfaces.SentimentScorer, sentimentModels []string, logger arbor.ILogger) *Enricher {
	if len(sentimentModels) == 0 {
		sentimentModels = models.SentimentModels
	}
	return &Enricher{
		scorer: scorer,
		models: sentimentModels,
		logger: logger,
	}
}

// AnalyzeSentiment stores one sentiment row per model for article. Each model is
// independent: a failure is collected and the next model still runs.
func (e *Enricher) AnalyzeSentiment(ctx context.Context, tx interfaces.MarketTx, article *models.NewsArticle) (int, error) {
	text := article.Text()
	stored := 0
	var errs []error

	for _, model := range e.models {
		err := tx.WithSavepoint(ctx, "sentiment", func() error {
			result, err := e.score(ctx, text, model)
			if err != nil {
				return err
			}
			return tx.InsertSentiment(ctx, &models.SentimentRecord{
				NewsID:     article.ID,
				Score:      result.Score,
				Label:      result.Label,
				Confidence: result.Confidence,
				Model:      model,
			})
		})
		if err != nil {
			errs = append(errs, newError(KindEnrichment, "sentiment_"+model, article.URL, err))
			continue
		}
		stored++
	}

	if stored > 0 {
		e.logger.Debug().Int64("news_id", article.ID).Int("models", stored).Msg("Sentiment analysis completed")
	}
	return stored, errors.Join(errs...)
}

// score calls the scorer, converting a panic into an error
func (e *Enricher) score(ctx context.Context, text, model string) (result models.SentimentResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scorer panicked: %v", r)
		}
	}()

	result, err = e.scorer.Score(ctx, text, model)
	if err != nil {
		return result, err
	}
	if _, err := models.ParseSentimentLabel(string(result.Label)); err != nil {
		return result, err
	}
	result.Label = models.SentimentLabel(strings.ToLower(string(result.Label)))
	return result, nil
}
