package models

import "time"

// Stock is a tracked company. Symbol is the natural key (uppercase ticker).
type Stock struct {
	ID          int64     `json:"stock_id"`
	Symbol      string    `json:"symbol"`
	CompanyName string    `json:"company_name"`
	Sector      string    `json:"sector,omitempty"`
	Exchange    string    `json:"exchange,omitempty"`
	MarketCap   *int64    `json:"market_cap,omitempty"` // nil when unknown
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PriceRecord is one daily bar for a stock, unique per (StockID, Date).
// Rows are immutable once written.
type PriceRecord struct {
	ID            int64     `json:"price_id"`
	StockID       int64     `json:"stock_id"`
	Date          string    `json:"date"` // YYYY-MM-DD
	Open          float64   `json:"open_price"`
	High          float64   `json:"high_price"`
	Low           float64   `json:"low_price"`
	Close         float64   `json:"close_price"`
	AdjustedClose float64   `json:"adjusted_close"`
	Volume        int64     `json:"volume"`
	CreatedAt     time.Time `json:"created_at"`
}

// DateLayout is the calendar-date format used for price rows.
const DateLayout = "2006-01-02"
