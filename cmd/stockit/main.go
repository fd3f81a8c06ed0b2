// -----------------------------------------------------------------------
// Last Modified: Saturday, 17th October 2026 2:40:00 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockit/internal/app"
	"github.com/ternarybob/stockit/internal/common"
)

var (
	// Command-line flags
	configFiles []string // multiple --config flags supported, later files override earlier ones
	dbPath      string
	logLevel    string
	symbols     []string

	// Global state
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:               "stockit",
	Short:             "Stock market and news ETL",
	Long:              `Extracts daily prices, company fundamentals and financial news, scores sentiment, and loads everything into SQLite.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (can be specified multiple times)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringSliceVar(&symbols, "symbols", nil, "Tracked symbols, comma separated (overrides config)")

	rootCmd.AddCommand(runCmd, scheduleCmd, trackCmd, viewCmd, versionCmd)
}

func main() {
	// SIGINT/SIGTERM cancel the context; every long-running command returns on cancellation
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig runs the startup sequence in order:
// defaults -> config files -> .env -> environment -> CLI flags, then logger and banner.
func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd == versionCmd {
		return nil
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("stockit.toml"); err == nil {
			configFiles = append(configFiles, "stockit.toml")
		} else if _, err := os.Stat("deployments/local/stockit.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/stockit.toml")
		}
	}

	cfg, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	common.ApplyFlagOverrides(cfg, dbPath, logLevel, symbols)

	if err := cfg.Validate(); err != nil {
		return err
	}
	config = cfg

	logger = common.SetupLogger(config)
	common.PrintBanner(config, logger)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("sqlite_path", config.Storage.SQLite.Path).
		Str("log_level", config.Logging.Level).
		Strs("log_output", config.Logging.Output).
		Msg("Resolved configuration")

	return nil
}

// newApp initializes the application; the caller must Close it
func newApp() (*app.App, error) {
	application, err := app.New(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}
