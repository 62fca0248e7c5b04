package db

import (
	"database/sql"
)

type Filing struct {
	ID                  int64
	FormType            string
	FilingDate          string
	FilerName           string
	CandidateLastName   string
	CandidateFirstName  string
	CandidateMiddleName string
	FileName            string
	PageCount           int64
	RunID               sql.NullString
	CreatedAt           int64
	UpdatedAt           int64
}

type FilingBlob struct {
	FilingID int64
	Content  []byte
	Size     int64
	Sha256   string
}

type ScrapeRun struct {
	ID         string
	StartDate  string
	EndDate    string
	StartedAt  int64
	FinishedAt sql.NullInt64
	Outcome    string
	Stored     int64
	Skipped    int64
	Unparsable int64
}
