package newsapi

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockit/internal/common"
	"github.com/ternarybob/stockit/internal/models"
)

// removedMarker is the title NewsAPI uses for withdrawn articles.
const removedMarker = "[Removed]"

// Provider adapts Client to interfaces.NewsProvider.
type Provider struct {
	client *Client
	logger arbor.ILogger
}

// NewProvider creates a news provider over client.
func NewProvider(client *Client, logger arbor.ILogger) *Provider {
	return &Provider{client: client, logger: logger}
}

// FetchTopHeadlines returns the category headlines.
func (p *Provider) FetchTopHeadlines(ctx context.Context, category string, pageSize int) ([]models.Article, error) {
	resp, err := p.client.TopHeadlines(ctx, category, pageSize)
	if err != nil {
		return nil, err
	}
	return p.toArticles(resp), nil
}

// FetchEverything returns articles matching query.
func (p *Provider) FetchEverything(ctx context.Context, query string, sources string, pageSize int) ([]models.Article, error) {
	resp, err := p.client.Everything(ctx, query, sources, pageSize)
	if err != nil {
		return nil, err
	}
	return p.toArticles(resp), nil
}

func (p *Provider) toArticles(resp *Response) []models.Article {
	articles := make([]models.Article, 0, len(resp.Articles))
	removed := 0

	for _, a := range resp.Articles {
		title := strings.TrimSpace(deref(a.Title))
		if title == removedMarker {
			removed++
			continue
		}

		// content is truncated by the free tier; description is the fuller summary when content is absent
		content := deref(a.Content)
		if strings.TrimSpace(content) == "" {
			content = deref(a.Description)
		}

		articles = append(articles, models.Article{
			Title:       title,
			Content:     common.PlainText(content),
			Author:      strings.TrimSpace(deref(a.Author)),
			PublishedAt: strings.TrimSpace(deref(a.PublishedAt)),
			URL:         strings.TrimSpace(deref(a.URL)),
			SourceName:  strings.TrimSpace(a.Source.Name),
		})
	}

	p.logger.Debug().
		Int("total_results", resp.TotalResults).
		Int("articles", len(articles)).
		Int("removed", removed).
		Msg("Mapped NewsAPI articles")
	return articles
}
