package portal

import (
	"context"
	"filingscraper/internal/filing"
	"filingscraper/internal/filingstore"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type FetchOutcome int

const (
	OutcomeSkipped FetchOutcome = iota
	// OutcomeFetched means the document was fetched and validated but there
	// was no store to put it in.
	OutcomeFetched
	OutcomeStored
)

func (o FetchOutcome) String() string {
	switch o {
	case OutcomeStored:
		return "stored"
	case OutcomeFetched:
		return "fetched"
	default:
		return "skipped"
	}
}

func filingRecord(row GridRow, opts Options) (filing.Record, bool) {
	return filing.ParseRecordWith(row.Text, opts.FormTypePolicy)
}

// closeView dismisses the document view, it is run no matter how far the
// fetch got so the next row starts from the grid.
func (s *Scraper) closeView(ctx context.Context) {
	err := s.browser.PressKey(ctx, KeyEscape)
	if err != nil {
		s.tel.ReportDebug("failed to dismiss document view", err)
	}
	err = s.browser.Wait(ctx, s.opts.Timing.CloseSettle.Std())
	if err != nil {
		s.tel.ReportDebug("interrupted while closing document view", err)
	}
}

func (s *Scraper) fetchAndStore(ctx context.Context, row GridRow, record filing.Record) (FetchOutcome, error) {
	defer s.closeView(ctx)

	err := s.browser.Click(ctx, row.DocumentSelector)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("open document view: %w", err)
	}
	err = s.browser.Wait(ctx, s.opts.Timing.ViewSettle.Std())
	if err != nil {
		return OutcomeSkipped, err
	}

	key, err := s.resolveCredential(ctx)
	if err != nil {
		return OutcomeSkipped, err
	}
	content, err := s.browser.FetchBytes(ctx, BuildDownloadURL(key))
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("download document: %w", err)
	}
	err = ValidateArtifact(content)
	if err != nil {
		return OutcomeSkipped, err
	}

	if s.store == nil {
		return OutcomeFetched, nil
	}

	pages, err := PageCount(content)
	if err != nil {
		s.tel.ReportDebug(report_page_count, record.FileName(), err)
		pages = 0
	}
	_, err = s.store.Put(ctx, record, filingstore.Artifact{
		Content:   content,
		PageCount: pages,
	}, s.runID)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("store document: %w", err)
	}
	return OutcomeStored, nil
}

// fetchDocument opens the row's document, downloads and validates it and
// stores it when there is a store. Every failure is reported and absorbed,
// the row is then counted as skipped.
func (s *Scraper) fetchDocument(ctx context.Context, row GridRow, record filing.Record) FetchOutcome {
	ctx, span := tracer.Start(
		ctx, "fetchDocument",
		trace.WithAttributes(
			attribute.String("file_name", record.FileName()),
			attribute.String("row_id", row.ID),
		),
	)
	defer span.End()

	outcome, err := s.fetchAndStore(ctx, row, record)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		skippedCounter.Add(ctx, 1)
		s.tel.ReportWarning(report_fetch_document, record.FileName(), err)
		return OutcomeSkipped
	}
	if outcome == OutcomeStored {
		storedCounter.Add(ctx, 1)
	}
	s.tel.ReportDebug("document "+outcome.String(), record.FileName())

	if s.opts.Debug {
		err = s.browser.Wait(ctx, s.opts.Timing.InspectionPause.Std())
		if err != nil {
			s.tel.ReportDebug("inspection pause interrupted", err)
		}
	}
	return outcome
}
