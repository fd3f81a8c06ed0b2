package main

import (
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the recurring ETL jobs until interrupted",
	Long: `Registers the stock update, news update and daily full ETL jobs, optionally runs one
full ETL immediately, then checks for due jobs every tick until Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

var scheduleNoInitial bool

func init() {
	scheduleCmd.Flags().BoolVar(&scheduleNoInitial, "no-initial-run", false, "Skip the full ETL run at startup")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if scheduleNoInitial {
		config.Scheduler.RunOnStart = false
	}

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	logger.Info().
		Str("stock_updates", config.Scheduler.StockUpdates).
		Str("news_updates", config.Scheduler.NewsUpdates).
		Str("full_etl", config.Scheduler.FullETL).
		Msg("Scheduler ready - Press Ctrl+C to stop")

	if err := application.RunScheduler(cmd.Context()); err != nil {
		return err
	}

	logger.Info().Msg("Scheduler shut down")
	return nil
}
