package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ternarybob/stockit/internal/common"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an ETL pass once and exit",
}

var runFullCmd = &cobra.Command{
	Use:   "full",
	Short: "Run stock ETL for every tracked symbol, then news ETL",
	Args:  cobra.NoArgs,
	RunE:  runFull,
}

var runStockCmd = &cobra.Command{
	Use:   "stock <SYMBOL>",
	Short: "Run stock ETL (prices and company info) for one symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runStock,
}

var runNewsCmd = &cobra.Command{
	Use:   "news",
	Short: "Run news ETL for headlines and every tracked symbol",
	Args:  cobra.NoArgs,
	RunE:  runNews,
}

func init() {
	runCmd.AddCommand(runFullCmd, runStockCmd, runNewsCmd)
}

func runFull(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	report := application.Pipeline.RunFullETL(cmd.Context())

	fmt.Printf("\nRun %s: %s\n", report.ID, report.Summary())
	if failed := report.Failed(); len(failed) > 0 {
		fmt.Printf("Failed symbols: %s\n", strings.Join(failed, ", "))
	}
	if report.Interrupted {
		fmt.Println("Run interrupted")
	}
	return nil
}

func runStock(cmd *cobra.Command, args []string) error {
	symbol := common.ParseTicker(args[0])
	if symbol.Code == "" {
		return fmt.Errorf("invalid symbol %q", args[0])
	}

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	result := application.Pipeline.RunStockETL(cmd.Context(), symbol.String())
	if !result.Success {
		return fmt.Errorf("stock ETL for %s failed: %w", result.Symbol, result.Err)
	}

	fmt.Printf("\n%s: %d prices inserted, %d already stored\n", result.Symbol, result.Prices.Inserted, result.Prices.Skipped)
	if result.CompanyErr != nil {
		fmt.Printf("Company info not updated: %v\n", result.CompanyErr)
	}
	return nil
}

func runNews(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	result := application.Pipeline.RunNewsETL(cmd.Context())
	if !result.Loaded() {
		return fmt.Errorf("news ETL loaded no batches")
	}

	fmt.Printf("\n%d news batches, %d articles inserted\n", len(result.Batches), result.Inserted())
	return nil
}
