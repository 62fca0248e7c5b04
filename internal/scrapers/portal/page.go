package portal

import (
	"context"
	"fmt"
)

// PageResult counts what happened to the rows of a single grid page.
type PageResult struct {
	Page       int
	Rows       int
	Unparsable int
	// NoDocument is the number of parsed rows without a document link.
	NoDocument int
	Stored     int
	Fetched    int
	Skipped    int
}

func (p PageResult) String() string {
	return fmt.Sprintf(
		"page %d: %d rows, %d stored, %d fetched, %d skipped, %d unparsable, %d without document",
		p.Page, p.Rows, p.Stored, p.Fetched, p.Skipped, p.Unparsable, p.NoDocument,
	)
}

func (s *Scraper) processPage(ctx context.Context, page int) PageResult {
	ctx, span := tracer.Start(ctx, "processPage")
	defer span.End()

	result := PageResult{Page: page}

	markup, err := s.browser.HTML(ctx, s.opts.Layout.Grid)
	if err != nil {
		s.tel.ReportWarning(report_pagination, "failed to read result grid", page, err)
		return result
	}
	rows, err := ParseGrid(markup, s.opts.Layout)
	if err != nil {
		s.tel.ReportWarning(report_pagination, "failed to parse result grid", page, err)
		return result
	}

	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		result.Rows++

		record, ok := filingRecord(row, s.opts)
		if !ok {
			result.Unparsable++
			unparsableCounter.Add(ctx, 1)
			s.tel.ReportWarning(report_row_unparsable, page, row.Index, row.ID)
			continue
		}
		if row.DocumentSelector == "" {
			result.NoDocument++
			s.tel.ReportWarning(report_row_no_doc, page, row.Index, record.FileName())
			continue
		}

		switch s.fetchDocument(ctx, row, record) {
		case OutcomeStored:
			result.Stored++
		case OutcomeFetched:
			result.Fetched++
		case OutcomeSkipped:
			result.Skipped++
		}
	}

	return result
}
