package etl

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockit/internal/interfaces"
	"github.com/ternarybob/stockit/internal/models"
)

// Linker relates an article to every active stock it mentions.
// Cost is O(active stocks x article length) per article.
type Linker struct {
	relevanceScore float64
	logger         arbor.ILogger
}

// NewLinker creates a linker that writes relations with a fixed relevance score.
func NewLinker(relevanceScore float64, logger arbor.ILogger) *Linker {
	return &Linker{
		relevanceScore: relevanceScore,
		logger:         logger,
	}
}

// Link creates missing relations for article and returns how many were written.
func (l *Linker) Link(ctx context.Context, tx interfaces.MarketTx, article *models.NewsArticle) (int, error) {
	stocks, err := tx.ListActiveStocks(ctx)
	if err != nil {
		return 0, err
	}

	text := strings.ToLower(article.Text())
	linked := 0
	for _, stock := range stocks {
		if !mentions(text, stock) {
			continue
		}

		found, err := tx.RelationExists(ctx, stock.ID, article.ID)
		if err != nil {
			return linked, err
		}
		if found {
			continue
		}

		relation := &models.StockNewsRelation{
			StockID:        stock.ID,
			NewsID:         article.ID,
			RelevanceScore: l.relevanceScore,
		}
		if err := tx.InsertRelation(ctx, relation); err != nil {
			return linked, err
		}
		linked++
	}

	if linked > 0 {
		l.logger.Debug().Int64("news_id", article.ID).Int("stocks", linked).Msg("Linked news to stocks")
	}
	return linked, nil
}

// Mentions reports whether text names stock by symbol or company name, case-insensitively.
func Mentions(text string, stock *models.Stock) bool {
	return mentions(strings.ToLower(text), stock)
}

func mentions(lowerText string, stock *models.Stock) bool {
	if symbol := strings.ToLower(stock.Symbol); symbol != "" && strings.Contains(lowerText, symbol) {
		return true
	}
	name := strings.ToLower(strings.TrimSpace(stock.CompanyName))
	return name != "" && strings.Contains(lowerText, name)
}
