package commands

import (
	"context"
	"errors"
	"filingscraper/internal/browser"
	"filingscraper/internal/filingstore"
	"filingscraper/internal/scrapers/portal"
	"filingscraper/lib/telemetry"
	"filingscraper/lib/util/serviceutil"
	"fmt"
	"log/slog"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	scrapeStart    *string
	scrapeEnd      *string
	scrapeDb       *string
	scrapePortal   *string
	scrapeMaxPages *int
)

func init() {
	scrapeStart = scrapeCmd.Flags().String("start", "", "The first filing date to search for (YYYY-MM-DD).")
	scrapeEnd = scrapeCmd.Flags().String("end", "", "The last filing date to search for (YYYY-MM-DD).")
	scrapeDb = scrapeCmd.Flags().String("db", "", "The database to store filings in, without one the run is a dry run.")
	scrapePortal = scrapeCmd.Flags().String("portal", "", "The portal's search page, overrides portal_url from the config.")
	scrapeMaxPages = scrapeCmd.Flags().Int("max-pages", 0, "Stop after this many result pages, 0 means every page.")
	scrapeCmd.MarkFlagRequired("start")
	scrapeCmd.MarkFlagRequired("end")
	rootCmd.AddCommand(scrapeCmd)
}

func scrape(ctx context.Context, cfg Config, req portal.RunRequest) (portal.Summary, error) {
	tel := telemetry.NewScopedAPI("portal", telemetry.SlogAPI{})

	if cfg.preflightEnabled() {
		err := portal.Preflight(ctx, cfg.PortalURL, tel)
		if err != nil {
			return portal.Summary{}, fmt.Errorf("preflight: %w", err)
		}
	}

	var store portal.Store
	if *scrapeDb != "" {
		s, err := filingstore.Open(*scrapeDb, nil)
		if err != nil {
			return portal.Summary{}, fmt.Errorf("open db: %w", err)
		}
		defer s.Close()
		store = s
	}

	session, err := browser.New(ctx, browser.Options{
		Headless:  cfg.headless(*debugFlag),
		UserAgent: cfg.Browser.UserAgent,
		ExecPath:  cfg.Browser.ExecPath,
	}, telemetry.NewScopedAPI("browser", telemetry.SlogAPI{}))
	if err != nil {
		return portal.Summary{}, err
	}
	defer session.Close()

	scraper := portal.New(session, store, portal.Options{
		PortalURL:      cfg.PortalURL,
		Layout:         cfg.Layout,
		Timing:         cfg.Timing,
		FormTypePolicy: cfg.FormTypePolicy,
		Debug:          *debugFlag,
		MaxPages:       cfg.MaxPages,
	}, tel)
	return scraper.Run(ctx, req)
}

func renderSummary(summary portal.Summary) {
	documents := "Stored"
	if summary.DryRun {
		documents = "Fetched"
	}

	t := NewTable()
	t.AppendHeader(table.Row{"Page", "Rows", documents, "Skipped", "Unparsable", "No document"})
	for _, page := range summary.Pages {
		done := page.Stored
		if summary.DryRun {
			done = page.Fetched
		}
		t.AppendRow(table.Row{page.Page, page.Rows, done, page.Skipped, page.Unparsable, page.NoDocument})
	}
	t.AppendFooter(table.Row{"Total", summary.Rows, summary.Done(), summary.Skipped, summary.Unparsable, summary.NoDocument})
	t.Render()

	if summary.DryRun {
		fmt.Printf("dry run: %d documents fetched and validated, none stored\n", summary.Fetched)
		return
	}
	fmt.Printf("%d documents stored (run %s)\n", summary.Stored, summary.RunID)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape --start <YYYY-MM-DD> --end <YYYY-MM-DD> [--db <path/to/filings.db>]",
	Short: "Searches the portal for filings in a date range and downloads their documents.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(*configFlag)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if *scrapePortal != "" {
			cfg.PortalURL = *scrapePortal
		}
		if *scrapeMaxPages > 0 {
			cfg.MaxPages = *scrapeMaxPages
		}
		if cfg.PortalURL == "" {
			serviceutil.Fatal("no portal to scrape", errors.New("set portal_url in the config or pass --portal"))
		}

		req := portal.RunRequest{StartDate: *scrapeStart, EndDate: *scrapeEnd}
		err = req.Validate()
		if err != nil {
			serviceutil.Fatal("invalid date range", err)
		}

		slog.Info("scraping filings", "start", req.StartDate, "end", req.EndDate, "portal", cfg.PortalURL, "dry_run", *scrapeDb == "")
		t1 := time.Now()
		summary, err := scrape(cmd.Context(), cfg, req)
		t2 := time.Now()

		if len(summary.Pages) > 0 {
			renderSummary(summary)
		}
		slog.Info("scraping time", "seconds", t2.Sub(t1).Seconds())

		if errors.Is(err, portal.ErrNavigationAnomaly) {
			serviceutil.Fatal("run halted, the result grid did not advance as expected", err)
		}
		if err != nil {
			serviceutil.Fatal("scrape failed", err)
		}
	},
}
