package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/ternarybob/stockit/internal/interfaces"
	"github.com/ternarybob/stockit/internal/models"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Inspect the database",
}

var viewSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Row counts, latest prices, latest news and sentiment averages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		summary, err := application.ReportStorage.GetSummary(cmd.Context())
		if err != nil {
			return err
		}
		printSummary(os.Stdout, summary, time.Now())
		return nil
	},
}

var viewStockCmd = &cobra.Command{
	Use:   "stock <SYMBOL>",
	Short: "Company info, recent prices and linked news for one stock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		detail, err := application.ReportStorage.GetStockDetail(cmd.Context(), args[0])
		if errors.Is(err, interfaces.ErrNotFound) {
			fmt.Printf("Stock %s not found in database\n", strings.ToUpper(args[0]))
			return nil
		}
		if err != nil {
			return err
		}
		printStockDetail(os.Stdout, detail)
		return nil
	},
}

var viewSourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List news sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		sources, err := application.ReportStorage.ListSources(cmd.Context())
		if err != nil {
			return err
		}
		printSources(os.Stdout, sources)
		return nil
	},
}

var viewJobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Last run state of the scheduled jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		runs, err := application.JobStorage.ListJobRuns(cmd.Context())
		if err != nil {
			return err
		}
		printJobRuns(os.Stdout, runs, time.Now())
		return nil
	},
}

func init() {
	viewCmd.AddCommand(viewSummaryCmd, viewStockCmd, viewSourcesCmd, viewJobsCmd)
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", strings.Repeat("=", 50), title, strings.Repeat("=", 50))
}

func printSummary(w io.Writer, s *models.DatabaseSummary, now time.Time) {
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, "STOCK TRACKER DATABASE SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Generated at: %s\n", now.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(w, "\nAvailable tables (%d):\n", len(s.Tables))
	for _, table := range s.Tables {
		fmt.Fprintf(w, "   - %s\n", table)
	}

	section(w, "STOCKS DATA")
	fmt.Fprintf(w, "Total companies tracked: %d\n", s.StockCount)
	if len(s.Stocks) > 0 {
		fmt.Fprintln(w, "\nCompanies in database:")
		for _, stock := range s.Stocks {
			fmt.Fprintf(w, "   %-6s | %-40s | %s\n", stock.Symbol, truncate(stock.CompanyName, 40), orNA(stock.Sector))
		}
	}

	section(w, "STOCK PRICES DATA")
	fmt.Fprintf(w, "Total price records: %s\n", humanize.Comma(int64(s.PriceCount)))
	if len(s.LatestPrices) > 0 {
		fmt.Fprintln(w, "\nLatest price data:")
		fmt.Fprintln(w, "   Symbol | Date       | Close Price | Volume")
		fmt.Fprintln(w, "   "+strings.Repeat("-", 45))
		for _, p := range s.LatestPrices {
			fmt.Fprintf(w, "   %-6s | %s | $%10.2f | %s\n", p.Symbol, p.Date, p.Close, humanize.Comma(p.Volume))
		}
	}

	section(w, "FINANCIAL NEWS DATA")
	fmt.Fprintf(w, "Total news articles: %s\n", humanize.Comma(int64(s.NewsCount)))
	if len(s.LatestNews) > 0 {
		fmt.Fprintln(w, "\nLatest news articles:")
		for _, n := range s.LatestNews {
			fmt.Fprintf(w, "   %s\n", truncate(n.Title, 60))
			fmt.Fprintf(w, "    Source: %s | Date: %s\n", n.SourceName, formatPublished(n.PublishedAt, now))
		}
	}

	section(w, "SENTIMENT ANALYSIS DATA")
	fmt.Fprintf(w, "Total sentiment analysis records: %s\n", humanize.Comma(int64(s.SentimentCount)))
	if len(s.SentimentGroups) > 0 {
		fmt.Fprintln(w, "\nSentiment analysis summary:")
		for _, g := range s.SentimentGroups {
			fmt.Fprintf(w, "   Model: %s, Label: %s, Avg Score: %.2f (%d)\n", g.Model, g.Label, g.AverageScore, g.Count)
		}
	}
	fmt.Fprintf(w, "\nStock-news relations: %s\n", humanize.Comma(int64(s.RelationCount)))
}

func printStockDetail(w io.Writer, d *models.StockDetail) {
	stock := d.Stock
	fmt.Fprintf(w, "\nDETAILED VIEW FOR %s\n%s\n", stock.Symbol, strings.Repeat("=", 50))
	fmt.Fprintf(w, "Company: %s\n", stock.CompanyName)
	fmt.Fprintf(w, "Symbol: %s\n", stock.Symbol)
	fmt.Fprintf(w, "Sector: %s\n", orNA(stock.Sector))
	if stock.MarketCap != nil {
		fmt.Fprintf(w, "Market Cap: %s\n", humanize.Comma(*stock.MarketCap))
	} else {
		fmt.Fprintln(w, "Market Cap: N/A")
	}
	fmt.Fprintf(w, "Exchange: %s\n", orNA(stock.Exchange))

	if len(d.Prices) > 0 {
		fmt.Fprintln(w, "\nRecent price history:")
		fmt.Fprintln(w, "Date       | Open    | High    | Low     | Close   | Volume")
		fmt.Fprintln(w, strings.Repeat("-", 65))
		for _, p := range d.Prices {
			fmt.Fprintf(w, "%s | $%6.2f | $%6.2f | $%6.2f | $%6.2f | %s\n",
				p.Date, p.Open, p.High, p.Low, p.Close, humanize.Comma(p.Volume))
		}
	}

	if len(d.News) == 0 {
		fmt.Fprintln(w, "\nNo news articles found for this stock.")
		return
	}
	fmt.Fprintln(w, "\nRecent News and Sentiment:")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, n := range d.News {
		published := "N/A"
		if n.PublishedAt != nil {
			published = n.PublishedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "Title: %s\n", truncate(n.Title, 70))
		if n.Model == "" {
			fmt.Fprintf(w, "  Published: %s | Sentiment: Not analyzed yet\n", published)
			continue
		}
		fmt.Fprintf(w, "  Published: %s | Sentiment: %s (%.2f) | Model: %s\n", published, n.Label, n.Score, n.Model)
	}
}

func printSources(w io.Writer, sources []*models.NewsSource) {
	fmt.Fprintf(w, "\nNEWS SOURCES\n%s\n", strings.Repeat("=", 40))
	for _, s := range sources {
		fmt.Fprintf(w, " %s\n", s.Name)
		fmt.Fprintf(w, "  URL: %s | Credibility: %.2f\n", orNA(s.URL), s.CredibilityScore)
	}
}

func printJobRuns(w io.Writer, runs []*models.JobRun, now time.Time) {
	fmt.Fprintf(w, "\nSCHEDULED JOBS\n%s\n", strings.Repeat("=", 40))
	if len(runs) == 0 {
		fmt.Fprintln(w, "No job has been registered yet. Start 'stockit schedule'.")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, " %s (%s)\n", r.Name, r.Schedule)
		lastRun := "never"
		if r.LastRun != nil {
			lastRun = humanize.RelTime(*r.LastRun, now, "ago", "from now")
		}
		nextRun := "N/A"
		if r.NextRun != nil {
			nextRun = humanize.RelTime(*r.NextRun, now, "ago", "from now")
		}
		fmt.Fprintf(w, "  Runs: %d | Last: %s | Next: %s\n", r.RunCount, lastRun, nextRun)
		if r.LastError != "" {
			fmt.Fprintf(w, "  Last error: %s\n", r.LastError)
		}
	}
}

func formatPublished(t *time.Time, now time.Time) string {
	if t == nil {
		return "N/A"
	}
	return fmt.Sprintf("%s (%s)", t.Format("2006-01-02 15:04"), humanize.RelTime(*t, now, "ago", "from now"))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
