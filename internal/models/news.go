package models

import (
	"fmt"
	"strings"
	"time"
)

// NewsSource is a publisher, keyed by Name.
type NewsSource struct {
	ID               int64   `json:"source_id"`
	Name             string  `json:"source_name"`
	URL              string  `json:"source_url,omitempty"`
	CredibilityScore float64 `json:"credibility_score"`
	IsActive         bool    `json:"is_active"`
}

// NewsArticle is a stored article, keyed by URL. Immutable once inserted.
type NewsArticle struct {
	ID          int64      `json:"news_id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Author      *string    `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	URL         string     `json:"url"`
	SourceID    int64      `json:"source_id"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Text is the blob used for sentiment scoring and relevance matching.
func (a *NewsArticle) Text() string {
	return a.Title + " " + a.Content
}

// SentimentLabel classifies a sentiment score.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// ParseSentimentLabel accepts any casing of the three labels.
func ParseSentimentLabel(s string) (SentimentLabel, error) {
	switch SentimentLabel(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive, nil
	case SentimentNeutral:
		return SentimentNeutral, nil
	case SentimentNegative:
		return SentimentNegative, nil
	}
	return "", fmt.Errorf("unknown sentiment label %q", s)
}

// Sentiment model identifiers stored in sentiment_analysis.analysis_model.
const (
	SentimentModelLexicon  = "lexicon"
	SentimentModelPolarity = "polarity"
)

// SentimentModels are the fixed models run for every new article, in order.
var SentimentModels = []string{SentimentModelLexicon, SentimentModelPolarity}

// SentimentResult is what a scorer returns for one text under one model.
type SentimentResult struct {
	Score      float64        `json:"sentiment_score"`
	Label      SentimentLabel `json:"sentiment_label"`
	Confidence float64        `json:"confidence_score"`
}

// SentimentRecord is one stored score, unique per (NewsID, Model).
type SentimentRecord struct {
	ID         int64          `json:"sentiment_id"`
	NewsID     int64          `json:"news_id"`
	Score      float64        `json:"sentiment_score"`
	Label      SentimentLabel `json:"sentiment_label"`
	Confidence float64        `json:"confidence_score"`
	Model      string         `json:"analysis_model"`
	CreatedAt  time.Time      `json:"created_at"`
}

// StockNewsRelation links an article to a stock it mentions, unique per pair.
type StockNewsRelation struct {
	ID             int64   `json:"relation_id"`
	StockID        int64   `json:"stock_id"`
	NewsID         int64   `json:"news_id"`
	RelevanceScore float64 `json:"relevance_score"`
}
