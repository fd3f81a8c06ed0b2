package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the resolved runtime settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.Print("StockIt", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.Environment).
		Str("database", config.Storage.SQLite.Path).
		Str("news_provider", config.News.Provider).
		Strs("symbols", config.ETL.Symbols).
		Msg("StockIt starting")
}
