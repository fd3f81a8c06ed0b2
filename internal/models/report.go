package models

import "time"

// DatabaseSummary backs the "view summary" command.
type DatabaseSummary struct {
	Tables          []string
	StockCount      int
	PriceCount      int
	NewsCount       int
	SentimentCount  int
	RelationCount   int
	Stocks          []*Stock
	LatestPrices    []LatestPrice
	LatestNews      []NewsHeadline
	SentimentGroups []SentimentGroup
}

// LatestPrice is one row of the most recent prices across all stocks.
type LatestPrice struct {
	Symbol string
	Date   string
	Close  float64
	Volume int64
}

// NewsHeadline is an article title with its source and publication time.
type NewsHeadline struct {
	Title       string
	SourceName  string
	PublishedAt *time.Time
}

// SentimentGroup is the average score per (model, label).
type SentimentGroup struct {
	Model        string
	Label        SentimentLabel
	AverageScore float64
	Count        int
}

// StockDetail backs the "view stock" command.
type StockDetail struct {
	Stock  *Stock
	Prices []*PriceRecord
	News   []StockNewsItem
}

// StockNewsItem is a linked article with one of its sentiment records, if any.
type StockNewsItem struct {
	Title       string
	PublishedAt *time.Time
	Model       string // empty when not analyzed
	Label       SentimentLabel
	Score       float64
}
