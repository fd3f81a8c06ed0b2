package etl

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/stockit/internal/models"
)

const (
	maxTitleLen       = 500
	maxAuthorLen      = 255
	maxURLLen         = 1000
	maxCompanyNameLen = 255
	maxSectorLen      = 100
	maxExchangeLen    = 50

	defaultSourceName = "Unknown"
)

var validate = validator.New()

// publishedLayouts are tried in order when parsing Article.PublishedAt
var publishedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	models.DateLayout,
}

// TransformPrices maps provider bars into storage-ready rows for symbol.
// A single malformed bar fails the whole batch.
func TransformPrices(symbol string, bars []models.PriceBar) ([]models.PriceInput, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	out := make([]models.PriceInput, 0, len(bars))

	for i, bar := range bars {
		if bar.Symbol == "" {
			bar.Symbol = symbol
		}
		if err := validate.Struct(bar); err != nil {
			return nil, fmt.Errorf("bar %d: %w", i, err)
		}
		if bar.Date.IsZero() {
			return nil, fmt.Errorf("bar %d: missing date", i)
		}
		for _, v := range []float64{bar.Open, bar.High, bar.Low, bar.Close} {
			if math.IsInf(v, 0) || math.IsNaN(v) {
				return nil, fmt.Errorf("bar %d (%s): non-finite price", i, bar.Date.Format(models.DateLayout))
			}
		}

		out = append(out, models.PriceInput{
			Symbol:        symbol,
			Date:          bar.Date.Format(models.DateLayout),
			Open:          bar.Open,
			High:          bar.High,
			Low:           bar.Low,
			Close:         bar.Close,
			AdjustedClose: bar.Close,
			Volume:        bar.Volume,
		})
	}

	return out, nil
}

// TransformNews maps provider articles into storage-ready rows.
// An unparseable publication time fails the whole batch; a missing one is stored as null.
func TransformNews(articles []models.Article) ([]models.NewsInput, error) {
	out := make([]models.NewsInput, 0, len(articles))

	for i, a := range articles {
		publishedAt, err := parsePublishedAt(a.PublishedAt)
		if err != nil {
			return nil, fmt.Errorf("article %d: %w", i, err)
		}

		record := models.NewsInput{
			Title:       truncate(a.Title, maxTitleLen),
			Content:     a.Content,
			PublishedAt: publishedAt,
			SourceName:  strings.TrimSpace(a.SourceName),
		}
		if a.Author != "" {
			author := truncate(a.Author, maxAuthorLen)
			record.Author = &author
		}
		if url := strings.TrimSpace(a.URL); url != "" {
			url = truncate(url, maxURLLen)
			record.URL = &url
		}
		if record.SourceName == "" {
			record.SourceName = defaultSourceName
		}

		out = append(out, record)
	}

	return out, nil
}

// companyInfo applies the fundamentals truncation rules onto stock.
func companyInfo(stock *models.Stock, f *models.Fundamentals) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		name = stock.Symbol
	}
	stock.CompanyName = truncate(name, maxCompanyNameLen)
	stock.Sector = truncate(f.Sector, maxSectorLen)
	stock.Exchange = truncate(f.Exchange, maxExchangeLen)
	stock.MarketCap = parseMarketCap(f.MarketCapitalization)
}

// parseMarketCap returns nil for "None", blanks and anything that is not an integer.
func parseMarketCap(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "none") {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parsePublishedAt(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unparseable published time %q", raw)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
