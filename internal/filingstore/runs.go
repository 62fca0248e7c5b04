package filingstore

import (
	"context"
	"database/sql"
	"errors"
	"filingscraper/internal/db"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one recorded scrape run.
type Run struct {
	ID         string
	StartDate  string
	EndDate    string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    db.RunOutcome
	Stored     int
	Skipped    int
	Unparsable int
}

// RunTotals are the counters a run is finished with.
type RunTotals struct {
	Outcome    db.RunOutcome
	Stored     int
	Skipped    int
	Unparsable int
}

// BeginRun records the start of a run over the given date range and returns its id.
func (s Store) BeginRun(ctx context.Context, startDate, endDate string) (string, error) {
	id := uuid.NewString()
	err := s.qry.CreateScrapeRun(ctx, db.CreateScrapeRunParams{
		ID:        id,
		StartDate: startDate,
		EndDate:   endDate,
		StartedAt: s.clock.Now().Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("create scrape run: %w", err)
	}
	return id, nil
}

func (s Store) FinishRun(ctx context.Context, id string, totals RunTotals) error {
	err := s.qry.FinishScrapeRun(ctx, db.FinishScrapeRunParams{
		ID:         id,
		FinishedAt: s.clock.Now().Unix(),
		Outcome:    totals.Outcome,
		Stored:     int64(totals.Stored),
		Skipped:    int64(totals.Skipped),
		Unparsable: int64(totals.Unparsable),
	})
	if err != nil {
		return fmt.Errorf("finish scrape run: %w", err)
	}
	return nil
}

func (s Store) GetRun(ctx context.Context, id string) (Run, error) {
	row, err := s.qry.GetScrapeRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("get scrape run: %w", err)
	}
	run := Run{
		ID:         row.ID,
		StartDate:  row.StartDate,
		EndDate:    row.EndDate,
		StartedAt:  time.Unix(row.StartedAt, 0).UTC(),
		Outcome:    db.RunOutcome(row.Outcome),
		Stored:     int(row.Stored),
		Skipped:    int(row.Skipped),
		Unparsable: int(row.Unparsable),
	}
	if row.FinishedAt.Valid {
		run.FinishedAt = time.Unix(row.FinishedAt.Int64, 0).UTC()
	}
	return run, nil
}
