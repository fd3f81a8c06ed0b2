package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/stockit/internal/services/tracker"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Continuously refresh tracked stocks and news until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runTrack,
}

func runTrack(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	logger.Info().Msg("Tracker ready - Press Ctrl+C to stop")

	cycles, err := application.TrackerService.Run(cmd.Context())
	if errors.Is(err, tracker.ErrNoCompanies) {
		return fmt.Errorf("%w: add symbols under [etl] or run 'stockit run full' first", err)
	}
	if err != nil {
		return err
	}

	fmt.Printf("\nTracking stopped after %d cycles\n", cycles)
	return nil
}
