package etl

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockit/internal/common"
	"github.com/ternarybob/stockit/internal/models"
	"github.com/ternarybob/stockit/internal/storage/sqlite"
)

type testEnv struct {
	store  *sqlite.MarketStorage
	report *sqlite.ReportStorage
	loader *Loader
	scorer *fakeScorer
}

// newTestEnv wires a loader over a fresh sqlite database with a fake scorer
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := arbor.NewNoOpLogger()
	db, err := sqlite.NewSQLiteDB(logger, &common.SQLiteConfig{
		Path:          filepath.Join(t.TempDir(), "etl.db"),
		CacheSizeMB:   10,
		BusyTimeoutMS: 5000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	scorer := &fakeScorer{fail: map[string]bool{}}
	store := sqlite.NewMarketStorage(db, logger)
	loader := NewLoader(store, NewEnricher(scorer, nil, logger), NewLinker(0.75, logger), 0.50, logger)

	return &testEnv{
		store:  store,
		report: sqlite.NewReportStorage(db, logger),
		loader: loader,
		scorer: scorer,
	}
}

func (e *testEnv) summary(t *testing.T) *models.DatabaseSummary {
	t.Helper()
	summary, err := e.report.GetSummary(context.Background())
	require.NoError(t, err)
	return summary
}

func (e *testEnv) pipeline(prices *fakePrices, news *fakeNews, symbols ...string) *Pipeline {
	p := NewPipeline(prices, news, e.loader, symbols, DefaultOptions(), arbor.NewNoOpLogger())
	p.SetSleep(func(ctx context.Context, d time.Duration) error { return ctx.Err() })
	return p
}

// fakeScorer returns a fixed positive score, or fails for models listed in fail
type fakeScorer struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls int
}

func (s *fakeScorer) Score(ctx context.Context, text string, model string) (models.SentimentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail[model] {
		return models.SentimentResult{}, errors.New("model unavailable")
	}
	return models.SentimentResult{Score: 0.6, Label: models.SentimentPositive, Confidence: 0.6}, nil
}

// fakePrices serves bars and fundamentals keyed by bare symbol
type fakePrices struct {
	bars         map[string][]models.PriceBar
	fundamentals map[string]*models.Fundamentals
	barErr       map[string]error
	panicOn      string
	requested    []string
}

func (f *fakePrices) FetchDailyBars(ctx context.Context, symbol string, lookback string) ([]models.PriceBar, error) {
	key := common.ParseTicker(symbol).Symbol()
	f.requested = append(f.requested, key)
	if key == f.panicOn {
		panic("provider exploded")
	}
	if err := f.barErr[key]; err != nil {
		return nil, err
	}
	return f.bars[key], nil
}

func (f *fakePrices) FetchFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error) {
	return f.fundamentals[common.ParseTicker(symbol).Symbol()], nil
}

// fakeNews serves a headline batch and per-query batches
type fakeNews struct {
	headlines  []models.Article
	everything map[string][]models.Article
	queries    []string
}

func (f *fakeNews) FetchTopHeadlines(ctx context.Context, category string, pageSize int) ([]models.Article, error) {
	return f.headlines, nil
}

func (f *fakeNews) FetchEverything(ctx context.Context, query string, sources string, pageSize int) ([]models.Article, error) {
	f.queries = append(f.queries, query)
	return f.everything[query], nil
}

func dailyBars(symbol string, start time.Time, n int) []models.PriceBar {
	bars := make([]models.PriceBar, 0, n)
	for i := 0; i < n; i++ {
		price := 100 + float64(i)
		bars = append(bars, models.PriceBar{
			Symbol: symbol,
			Date:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price + 2,
			Low:    price - 1,
			Close:  price + 1,
			Volume: 1000 + int64(i),
		})
	}
	return bars
}

func strPtr(s string) *string {
	return &s
}
