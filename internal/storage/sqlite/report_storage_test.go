package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockit/internal/interfaces"
	"github.com/ternarybob/stockit/internal/models"
)

func seedReportData(t *testing.T, db *SQLiteDB) {
	t.Helper()
	ctx := context.Background()
	storage := NewMarketStorage(db, arbor.NewNoOpLogger())

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)

	apple := createStock(t, ctx, tx, "AAPL", "Apple Inc")
	createStock(t, ctx, tx, "MSFT", "Microsoft Corporation")

	for i, date := range []string{"2024-03-01", "2024-03-04"} {
		require.NoError(t, tx.InsertPrice(ctx, &models.PriceRecord{
			StockID: apple.ID, Date: date, Open: 170, High: 175, Low: 169,
			Close: 171 + float64(i), AdjustedClose: 171 + float64(i), Volume: 1000,
		}))
	}

	source := &models.NewsSource{Name: "Reuters", URL: "https://reuters.com", CredibilityScore: 0.5, IsActive: true}
	require.NoError(t, tx.CreateSource(ctx, source))

	published := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	linked := &models.NewsArticle{Title: "Apple Inc rallies", URL: "https://example.com/1", SourceID: source.ID, PublishedAt: &published}
	require.NoError(t, tx.InsertArticle(ctx, linked))
	require.NoError(t, tx.InsertSentiment(ctx, &models.SentimentRecord{NewsID: linked.ID, Score: 0.6, Label: models.SentimentPositive, Confidence: 0.6, Model: models.SentimentModelLexicon}))
	require.NoError(t, tx.InsertSentiment(ctx, &models.SentimentRecord{NewsID: linked.ID, Score: 0.2, Label: models.SentimentPositive, Confidence: 0.3, Model: models.SentimentModelPolarity}))
	require.NoError(t, tx.InsertRelation(ctx, &models.StockNewsRelation{StockID: apple.ID, NewsID: linked.ID, RelevanceScore: 0.75}))

	unscored := &models.NewsArticle{Title: "AAPL supplier news", URL: "https://example.com/2", SourceID: source.ID}
	require.NoError(t, tx.InsertArticle(ctx, unscored))
	require.NoError(t, tx.InsertRelation(ctx, &models.StockNewsRelation{StockID: apple.ID, NewsID: unscored.ID, RelevanceScore: 0.75}))

	require.NoError(t, tx.Commit())
}

func TestReportStorage_GetSummary(t *testing.T) {
	db := setupTestDB(t)
	seedReportData(t, db)
	reports := NewReportStorage(db, arbor.NewNoOpLogger())

	summary, err := reports.GetSummary(context.Background())
	require.NoError(t, err)

	assert.Contains(t, summary.Tables, "stocks")
	assert.Contains(t, summary.Tables, "job_settings")
	assert.Equal(t, 2, summary.StockCount)
	assert.Equal(t, 2, summary.PriceCount)
	assert.Equal(t, 2, summary.NewsCount)
	assert.Equal(t, 2, summary.SentimentCount)
	assert.Equal(t, 2, summary.RelationCount)

	require.Len(t, summary.LatestPrices, 2)
	assert.Equal(t, "2024-03-04", summary.LatestPrices[0].Date)

	require.Len(t, summary.LatestNews, 2)
	assert.Equal(t, "Reuters", summary.LatestNews[0].SourceName)

	require.Len(t, summary.SentimentGroups, 2)
	assert.Equal(t, models.SentimentModelLexicon, summary.SentimentGroups[0].Model)
	assert.InDelta(t, 0.6, summary.SentimentGroups[0].AverageScore, 1e-9)
}

func TestReportStorage_GetStockDetail(t *testing.T) {
	db := setupTestDB(t)
	seedReportData(t, db)
	reports := NewReportStorage(db, arbor.NewNoOpLogger())
	ctx := context.Background()

	detail, err := reports.GetStockDetail(ctx, "aapl")
	require.NoError(t, err)

	assert.Equal(t, "Apple Inc", detail.Stock.CompanyName)
	require.Len(t, detail.Prices, 2)
	assert.Equal(t, "2024-03-04", detail.Prices[0].Date)

	// two sentiment rows for the scored article plus one unscored row
	require.Len(t, detail.News, 3)
	unscored := 0
	for _, item := range detail.News {
		if item.Model == "" {
			unscored++
			assert.Equal(t, "AAPL supplier news", item.Title)
		}
	}
	assert.Equal(t, 1, unscored)

	_, err = reports.GetStockDetail(ctx, "TSLA")
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))
}

func TestReportStorage_ListSources(t *testing.T) {
	db := setupTestDB(t)
	seedReportData(t, db)
	reports := NewReportStorage(db, arbor.NewNoOpLogger())

	sources, err := reports.ListSources(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "Reuters", sources[0].Name)
	assert.Equal(t, "https://reuters.com", sources[0].URL)
}

func TestJobSettingsStorage_SaveAndList(t *testing.T) {
	db := setupTestDB(t)
	jobs := NewJobSettingsStorage(db, arbor.NewNoOpLogger())
	ctx := context.Background()

	_, err := jobs.GetJobRun(ctx, "news_updates")
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))

	lastRun := time.Unix(1700000000, 0)
	nextRun := lastRun.Add(15 * time.Minute)
	run := &models.JobRun{Name: "news_updates", Schedule: "@every 15m", LastRun: &lastRun, NextRun: &nextRun, RunCount: 1}
	require.NoError(t, jobs.SaveJobRun(ctx, run))

	run.RunCount = 2
	run.LastError = "provider down"
	require.NoError(t, jobs.SaveJobRun(ctx, run))

	got, err := jobs.GetJobRun(ctx, "news_updates")
	require.NoError(t, err)
	assert.Equal(t, 2, got.RunCount)
	assert.Equal(t, "provider down", got.LastError)
	require.NotNil(t, got.LastRun)
	assert.Equal(t, lastRun.Unix(), got.LastRun.Unix())

	require.NoError(t, jobs.SaveJobRun(ctx, &models.JobRun{Name: "full_etl", Schedule: "30 16 * * *"}))
	runs, err := jobs.ListJobRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "full_etl", runs[0].Name)
	assert.Nil(t, runs[0].LastRun)
}
