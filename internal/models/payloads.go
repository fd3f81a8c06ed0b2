package models

import "time"

// PriceBar is the provider-agnostic daily bar produced by market data adapters.
type PriceBar struct {
	Symbol string    `json:"symbol" validate:"required"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open" validate:"gte=0"`
	High   float64   `json:"high" validate:"gte=0"`
	Low    float64   `json:"low" validate:"gte=0"`
	Close  float64   `json:"close" validate:"gte=0"`
	Volume int64     `json:"volume" validate:"gte=0"`
}

// Article is the provider-agnostic news item produced by news adapters.
// Empty strings mean the provider did not supply the field.
type Article struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Author      string `json:"author"`
	PublishedAt string `json:"published_at"` // RFC3339 or "2006-01-02 15:04:05"
	URL         string `json:"url"`
	SourceName  string `json:"source_name"`
}

// Fundamentals is the company overview produced by market data adapters.
// MarketCapitalization stays textual; the loader parses it and maps "None" to null.
type Fundamentals struct {
	Symbol               string `json:"symbol"`
	Name                 string `json:"name"`
	Sector               string `json:"sector"`
	Exchange             string `json:"exchange"`
	Industry             string `json:"industry,omitempty"`
	MarketCapitalization string `json:"market_capitalization"`
}

// PriceInput is a storage-ready price row produced by the transform stage.
type PriceInput struct {
	Symbol        string
	Date          string // YYYY-MM-DD
	Open          float64
	High          float64
	Low           float64
	Close         float64
	AdjustedClose float64
	Volume        int64
}

// NewsInput is a storage-ready article produced by the transform stage.
// A nil URL marks a record that cannot be deduplicated and is dropped at load.
type NewsInput struct {
	Title       string
	Content     string
	Author      *string
	PublishedAt *time.Time
	URL         *string
	SourceName  string
}
