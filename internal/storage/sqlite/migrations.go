package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrate runs database migrations
func (s *SQLiteDB) migrate() error {
	ctx := context.Background()

	if err := s.createMigrationsTable(ctx); err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "market_schema", up: migrateV1},
		{version: 2, name: "job_settings", up: migrateV2},
	}

	for _, m := range migrations {
		if err := s.runMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
	}

	return nil
}

type migration struct {
	version int
	name    string
	up      func(context.Context, *sql.Tx) error
}

func (s *SQLiteDB) createMigrationsTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at INTEGER NOT NULL
	)`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *SQLiteDB) runMigration(ctx context.Context, m migration) error {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.version).Scan(&count)
	if err != nil {
		return err
	}

	if count > 0 {
		return nil // Already applied
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := m.up(ctx, tx); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, strftime('%s', 'now'))",
		m.version, m.name)
	if err != nil {
		return err
	}

	s.logger.Debug().Int("version", m.version).Str("name", m.name).Msg("Applied migration")
	return tx.Commit()
}

// migrateV1 creates the market-data schema. Natural keys are enforced with UNIQUE constraints.
func migrateV1(ctx context.Context, tx *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS stocks (
			stock_id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL UNIQUE,
			company_name TEXT NOT NULL,
			sector TEXT,
			market_cap INTEGER,
			exchange TEXT,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER DEFAULT (strftime('%s', 'now')),
			updated_at INTEGER DEFAULT (strftime('%s', 'now'))
		)`,

		`CREATE TABLE IF NOT EXISTS stock_prices (
			price_id INTEGER PRIMARY KEY AUTOINCREMENT,
			stock_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			open_price REAL NOT NULL,
			high_price REAL NOT NULL,
			low_price REAL NOT NULL,
			close_price REAL NOT NULL,
			adjusted_close REAL,
			volume INTEGER NOT NULL,
			created_at INTEGER DEFAULT (strftime('%s', 'now')),
			UNIQUE (stock_id, date),
			FOREIGN KEY (stock_id) REFERENCES stocks(stock_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_prices_date ON stock_prices(date DESC)`,

		`CREATE TABLE IF NOT EXISTS news_sources (
			source_id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_name TEXT NOT NULL UNIQUE,
			source_url TEXT,
			credibility_score REAL NOT NULL DEFAULT 0.50,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER DEFAULT (strftime('%s', 'now'))
		)`,

		`CREATE TABLE IF NOT EXISTS financial_news (
			news_id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			author TEXT,
			published_at INTEGER,
			url TEXT NOT NULL UNIQUE,
			source_id INTEGER NOT NULL,
			created_at INTEGER DEFAULT (strftime('%s', 'now')),
			FOREIGN KEY (source_id) REFERENCES news_sources(source_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_financial_news_published ON financial_news(published_at DESC)`,

		`CREATE TABLE IF NOT EXISTS sentiment_analysis (
			sentiment_id INTEGER PRIMARY KEY AUTOINCREMENT,
			news_id INTEGER NOT NULL,
			sentiment_score REAL NOT NULL,
			sentiment_label TEXT NOT NULL CHECK (sentiment_label IN ('positive', 'neutral', 'negative')),
			confidence_score REAL NOT NULL,
			analysis_model TEXT NOT NULL,
			created_at INTEGER DEFAULT (strftime('%s', 'now')),
			UNIQUE (news_id, analysis_model),
			FOREIGN KEY (news_id) REFERENCES financial_news(news_id)
		)`,

		`CREATE TABLE IF NOT EXISTS stock_news_relations (
			relation_id INTEGER PRIMARY KEY AUTOINCREMENT,
			stock_id INTEGER NOT NULL,
			news_id INTEGER NOT NULL,
			relevance_score REAL NOT NULL DEFAULT 0.75,
			UNIQUE (stock_id, news_id),
			FOREIGN KEY (stock_id) REFERENCES stocks(stock_id),
			FOREIGN KEY (news_id) REFERENCES financial_news(news_id)
		)`,
	}

	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return err
		}
	}

	return nil
}

// migrateV2 adds persisted scheduler state
func migrateV2(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS job_settings (
			job_name TEXT PRIMARY KEY,
			schedule TEXT NOT NULL,
			last_run INTEGER,
			next_run INTEGER,
			last_error TEXT NOT NULL DEFAULT '',
			run_count INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		)`)
	return err
}
