// Package portal drives the campaign finance portal's filing search through
// a browser: it walks every page of the result grid, resolves the download
// credential of each filing's document and hands validated documents to a
// store.
package portal

import (
	"context"
	"errors"
	"filingscraper/internal/db"
	"filingscraper/internal/filing"
	"filingscraper/internal/filingstore"
	"filingscraper/lib/telemetry"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("scrapers/portal")

var meter = otel.Meter("scrapers/portal")

var (
	storedCounter, _ = meter.Int64Counter(
		"portal.documents_stored",
		metric.WithDescription("documents validated and written to the store"),
	)
	skippedCounter, _ = meter.Int64Counter(
		"portal.documents_skipped",
		metric.WithDescription("documents that could not be resolved, downloaded or validated"),
	)
	unparsableCounter, _ = meter.Int64Counter(
		"portal.rows_unparsable",
		metric.WithDescription("grid rows missing a form type or filing date"),
	)
)

const (
	report_search         = "search"
	report_pagination     = "pagination"
	report_navigation     = "navigation"
	report_row_unparsable = "row.unparsable"
	report_row_no_doc     = "row.no-document"
	report_fetch_document = "fetch.document"
	report_page_count     = "artifact.page-count"
	report_run_history    = "run.history"
	report_page_summary   = "page.summary"
	report_total_done     = "documents.done"
	report_total_skipped  = "documents.skipped"
)

// Store persists fetched documents, filingstore.Store implements it.
//
// note: fault injection point
type Store interface {
	Put(ctx context.Context, record filing.Record, artifact filingstore.Artifact, runID string) (int64, error)
	BeginRun(ctx context.Context, startDate, endDate string) (string, error)
	FinishRun(ctx context.Context, id string, totals filingstore.RunTotals) error
}

type Scraper struct {
	browser Browser
	store   Store
	opts    Options
	tel     telemetry.API
	runID   string
}

// New creates a Scraper, a nil store makes every run a dry run: documents
// are fetched and validated but never persisted.
func New(browser Browser, store Store, opts Options, tel telemetry.API) *Scraper {
	if opts.Layout.Row == "" {
		opts.Layout = DefaultLayout()
	}
	if opts.Timing == (Timing{}) {
		opts.Timing = DefaultTiming()
	}
	if opts.FormTypePolicy == "" {
		opts.FormTypePolicy = filing.FormTypeVerbatim
	}
	return &Scraper{
		browser: browser,
		store:   store,
		opts:    opts,
		tel:     tel,
	}
}

func (s *Scraper) DryRun() bool {
	return s.store == nil
}

// RunRequest is the inclusive filing date range of a run, in YYYY-MM-DD.
type RunRequest struct {
	StartDate string
	EndDate   string
}

func (r RunRequest) Validate() error {
	start, err := filing.ParseISODate(r.StartDate)
	if err != nil {
		return fmt.Errorf("start date: %w", err)
	}
	end, err := filing.ParseISODate(r.EndDate)
	if err != nil {
		return fmt.Errorf("end date: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("end date %s is before start date %s", r.EndDate, r.StartDate)
	}
	return nil
}

// Summary is the outcome of a whole run.
type Summary struct {
	RunID string
	// DryRun is set when there was no store, documents are then counted
	// as Fetched instead of Stored.
	DryRun     bool
	Pages      []PageResult
	Rows       int
	Unparsable int
	NoDocument int
	Stored     int
	Fetched    int
	Skipped    int
	// Anomaly is set when the run was halted by a navigation anomaly.
	Anomaly error
}

// Done is the number of documents that made it through, stored or in a dry
// run fetched.
func (s Summary) Done() int {
	if s.DryRun {
		return s.Fetched
	}
	return s.Stored
}

func (s *Summary) add(page PageResult) {
	s.Pages = append(s.Pages, page)
	s.Rows += page.Rows
	s.Unparsable += page.Unparsable
	s.NoDocument += page.NoDocument
	s.Stored += page.Stored
	s.Fetched += page.Fetched
	s.Skipped += page.Skipped
}

func (s *Scraper) search(ctx context.Context, req RunRequest) error {
	ctx, span := tracer.Start(ctx, "search")
	defer span.End()

	start, err := filing.PortalDate(req.StartDate)
	if err != nil {
		return err
	}
	end, err := filing.PortalDate(req.EndDate)
	if err != nil {
		return err
	}

	layout := s.opts.Layout
	err = s.browser.Navigate(ctx, s.opts.PortalURL)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("navigate to portal: %w", err)
	}
	err = s.browser.Fill(ctx, layout.StartDateInput, start)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("fill start date: %w", err)
	}
	err = s.browser.Fill(ctx, layout.EndDateInput, end)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("fill end date: %w", err)
	}
	err = s.browser.Click(ctx, layout.SearchButton)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("submit search: %w", err)
	}
	err = s.waitForReload(ctx)
	if err != nil {
		return err
	}
	s.tel.ReportDebug("search submitted", start, end)
	return s.browser.Wait(ctx, s.opts.Timing.SearchSettle.Std())
}

func (s *Scraper) beginRun(ctx context.Context, req RunRequest) {
	s.runID = ""
	if s.store == nil {
		return
	}
	id, err := s.store.BeginRun(ctx, req.StartDate, req.EndDate)
	if err != nil {
		s.tel.ReportWarning(report_run_history, "failed to record run start", err)
		return
	}
	s.runID = id
}

func (s *Scraper) finishRun(ctx context.Context, summary Summary, runErr error) {
	if s.store == nil || s.runID == "" {
		return
	}
	outcome := db.RUN_COMPLETED
	switch {
	case errors.Is(runErr, ErrNavigationAnomaly):
		outcome = db.RUN_ANOMALY
	case runErr != nil:
		outcome = db.RUN_FAILED
	}
	err := s.store.FinishRun(context.WithoutCancel(ctx), s.runID, filingstore.RunTotals{
		Outcome:    outcome,
		Stored:     summary.Stored,
		Skipped:    summary.Skipped,
		Unparsable: summary.Unparsable,
	})
	if err != nil {
		s.tel.ReportWarning(report_run_history, "failed to record run result", err)
	}
}

// Run searches the portal for the given date range and processes every page
// of results. Per row and per document failures are reported and counted,
// the returned error is only non-nil when the search could not be performed,
// the context was cancelled or navigation went out of sequence
// (ErrNavigationAnomaly). The summary is valid in every case.
func (s *Scraper) Run(ctx context.Context, req RunRequest) (summary Summary, err error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	summary.DryRun = s.DryRun()
	err = req.Validate()
	if err != nil {
		return summary, err
	}

	s.beginRun(ctx, req)
	summary.RunID = s.runID
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		s.finishRun(ctx, summary, err)
	}()

	err = s.search(ctx, req)
	if err != nil {
		s.tel.ReportBroken(report_search, err)
		return summary, err
	}

	state, known := s.ReadState(ctx)
	if known {
		s.tel.ReportDebug("result grid", state.String())
	}
	for {
		page := s.processPage(ctx, len(summary.Pages)+1)
		summary.add(page)
		s.reportPage(page, summary)

		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		if !known || state.IsLast() {
			return summary, nil
		}
		if s.opts.MaxPages > 0 && len(summary.Pages) >= s.opts.MaxPages {
			s.tel.ReportDebug("page limit reached", s.opts.MaxPages)
			return summary, nil
		}

		advanced, err := s.Advance(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			s.tel.ReportWarning(report_pagination, "failed to advance", state.String(), err)
			return summary, nil
		}
		if !advanced {
			return summary, nil
		}

		next, ok := s.ReadState(ctx)
		err = checkAdvance(state, next, ok)
		if err != nil {
			s.tel.ReportBroken(report_navigation, err)
			summary.Anomaly = err
			return summary, err
		}
		state = next
	}
}

// reportPage reports the page's counts together with the running totals of
// the run.
func (s *Scraper) reportPage(page PageResult, total Summary) {
	done := total.Done()
	s.tel.ReportInfo(
		report_page_summary,
		page.String(),
		fmt.Sprintf("run so far: %d rows, %d documents, %d skipped", total.Rows, done, total.Skipped),
	)
	s.tel.ReportCount(report_total_done, int64(done))
	s.tel.ReportCount(report_total_skipped, int64(total.Skipped))
}
