package db

import (
	"context"
)

const upsertFiling = `
insert into filing (
    form_type, filing_date, filer_name,
    candidate_last_name, candidate_first_name, candidate_middle_name,
    file_name, page_count, run_id, created_at, updated_at
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict (form_type, filing_date, filer_name, candidate_last_name, candidate_first_name)
do update set
    candidate_middle_name = excluded.candidate_middle_name,
    file_name = excluded.file_name,
    page_count = excluded.page_count,
    run_id = excluded.run_id,
    updated_at = excluded.updated_at
returning id
`

type UpsertFilingParams struct {
	FormType            string
	FilingDate          string
	FilerName           string
	CandidateLastName   string
	CandidateFirstName  string
	CandidateMiddleName string
	FileName            string
	PageCount           int64
	RunID               *string
	Now                 int64
}

// UpsertFiling inserts or updates the filing with the given natural key and
// returns its stable id.
func (q *Queries) UpsertFiling(ctx context.Context, arg UpsertFilingParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, upsertFiling,
		arg.FormType,
		arg.FilingDate,
		arg.FilerName,
		arg.CandidateLastName,
		arg.CandidateFirstName,
		arg.CandidateMiddleName,
		arg.FileName,
		arg.PageCount,
		arg.RunID,
		arg.Now,
		arg.Now,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const replaceFilingBlob = `
insert into filing_blob (filing_id, content, size, sha256) values (?, ?, ?, ?)
on conflict (filing_id) do update set
    content = excluded.content,
    size = excluded.size,
    sha256 = excluded.sha256
`

type ReplaceFilingBlobParams struct {
	FilingID int64
	Content  []byte
	Sha256   string
}

func (q *Queries) ReplaceFilingBlob(ctx context.Context, arg ReplaceFilingBlobParams) error {
	_, err := q.db.ExecContext(ctx, replaceFilingBlob,
		arg.FilingID,
		arg.Content,
		int64(len(arg.Content)),
		arg.Sha256,
	)
	return err
}

const getFilingBlob = `
select filing_id, content, size, sha256 from filing_blob where filing_id = ?
`

func (q *Queries) GetFilingBlob(ctx context.Context, filingID int64) (FilingBlob, error) {
	row := q.db.QueryRowContext(ctx, getFilingBlob, filingID)
	var i FilingBlob
	err := row.Scan(&i.FilingID, &i.Content, &i.Size, &i.Sha256)
	return i, err
}

const countFilings = `select count(*) from filing`

func (q *Queries) CountFilings(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countFilings)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countFilingBlobs = `select count(*) from filing_blob`

func (q *Queries) CountFilingBlobs(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countFilingBlobs)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listFilings = `
select
    id, form_type, filing_date, filer_name,
    candidate_last_name, candidate_first_name, candidate_middle_name,
    file_name, page_count, run_id, created_at, updated_at
from filing
where (?1 = '' or filing_date >= ?1)
  and (?2 = '' or filing_date <= ?2)
order by filing_date, id
`

type ListFilingsParams struct {
	From string
	To   string
}

func (q *Queries) ListFilings(ctx context.Context, arg ListFilingsParams) ([]Filing, error) {
	rows, err := q.db.QueryContext(ctx, listFilings, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Filing
	for rows.Next() {
		var i Filing
		if err := rows.Scan(
			&i.ID,
			&i.FormType,
			&i.FilingDate,
			&i.FilerName,
			&i.CandidateLastName,
			&i.CandidateFirstName,
			&i.CandidateMiddleName,
			&i.FileName,
			&i.PageCount,
			&i.RunID,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createScrapeRun = `
insert into scrape_run (id, start_date, end_date, started_at, outcome) values (?, ?, ?, ?, ?)
`

type CreateScrapeRunParams struct {
	ID        string
	StartDate string
	EndDate   string
	StartedAt int64
}

func (q *Queries) CreateScrapeRun(ctx context.Context, arg CreateScrapeRunParams) error {
	_, err := q.db.ExecContext(ctx, createScrapeRun,
		arg.ID,
		arg.StartDate,
		arg.EndDate,
		arg.StartedAt,
		string(RUN_RUNNING),
	)
	return err
}

const finishScrapeRun = `
update scrape_run set
    finished_at = ?,
    outcome = ?,
    stored = ?,
    skipped = ?,
    unparsable = ?
where id = ?
`

type FinishScrapeRunParams struct {
	ID         string
	FinishedAt int64
	Outcome    RunOutcome
	Stored     int64
	Skipped    int64
	Unparsable int64
}

func (q *Queries) FinishScrapeRun(ctx context.Context, arg FinishScrapeRunParams) error {
	_, err := q.db.ExecContext(ctx, finishScrapeRun,
		arg.FinishedAt,
		string(arg.Outcome),
		arg.Stored,
		arg.Skipped,
		arg.Unparsable,
		arg.ID,
	)
	return err
}

const getScrapeRun = `
select id, start_date, end_date, started_at, finished_at, outcome, stored, skipped, unparsable
from scrape_run where id = ?
`

func (q *Queries) GetScrapeRun(ctx context.Context, id string) (ScrapeRun, error) {
	row := q.db.QueryRowContext(ctx, getScrapeRun, id)
	var i ScrapeRun
	err := row.Scan(
		&i.ID,
		&i.StartDate,
		&i.EndDate,
		&i.StartedAt,
		&i.FinishedAt,
		&i.Outcome,
		&i.Stored,
		&i.Skipped,
		&i.Unparsable,
	)
	return i, err
}
