package filingstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"filingscraper/internal/chrono"
	"filingscraper/internal/db"
	"filingscraper/internal/filing"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("filing not found")

// Store persists filings, their documents and the history of scrape runs.
type Store struct {
	db     *sql.DB
	qry    *db.Queries
	makeTx db.MakeTx
	clock  chrono.API
}

func NewStore(database *sql.DB, clock chrono.API) Store {
	if clock == nil {
		clock = chrono.StandardImpl{}
	}
	return Store{
		db:     database,
		qry:    db.New(database),
		makeTx: db.NewMakeTx(database),
		clock:  clock,
	}
}

// Open opens the database at path (creating the schema if needed) and wraps it in a Store.
func Open(path string, clock chrono.API) (Store, error) {
	database, err := db.OpenDB(path)
	if err != nil {
		return Store{}, err
	}
	return NewStore(database, clock), nil
}

func (s Store) Close() error {
	return s.db.Close()
}

// StoredFiling is the metadata of a persisted filing, the document itself is
// only loaded through Blob.
type StoredFiling struct {
	ID        int64
	Record    filing.Record
	FileName  string
	PageCount int
	RunID     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Artifact is a validated document together with the metadata derived from it.
type Artifact struct {
	Content   []byte
	PageCount int
}

// Put upserts the filing by its natural key and replaces its document, both
// writes happen in a single transaction. runID may be empty.
func (s Store) Put(ctx context.Context, record filing.Record, artifact Artifact, runID string) (int64, error) {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("make tx: %w", err)
	}
	defer discard()

	var run *string
	if runID != "" {
		run = &runID
	}

	id, err := tx.UpsertFiling(ctx, db.UpsertFilingParams{
		FormType:            record.FormType,
		FilingDate:          record.FilingDate,
		FilerName:           record.FilerName,
		CandidateLastName:   record.CandidateLastName,
		CandidateFirstName:  record.CandidateFirstName,
		CandidateMiddleName: record.CandidateMiddleName,
		FileName:            record.FileName(),
		PageCount:           int64(artifact.PageCount),
		RunID:               run,
		Now:                 s.clock.Now().Unix(),
	})
	if err != nil {
		return 0, fmt.Errorf("upsert filing: %w", err)
	}

	sum := sha256.Sum256(artifact.Content)
	err = tx.ReplaceFilingBlob(ctx, db.ReplaceFilingBlobParams{
		FilingID: id,
		Content:  artifact.Content,
		Sha256:   hex.EncodeToString(sum[:]),
	})
	if err != nil {
		return 0, fmt.Errorf("replace filing blob: %w", err)
	}

	err = commit()
	if err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func (s Store) Count(ctx context.Context) (int64, error) {
	return s.qry.CountFilings(ctx)
}

// ListFilter bounds List by filing date (YYYY-MM-DD), empty means unbounded.
type ListFilter struct {
	From string
	To   string
}

func fromRow(row db.Filing) StoredFiling {
	return StoredFiling{
		ID: row.ID,
		Record: filing.Record{
			FormType:            row.FormType,
			FilingDate:          row.FilingDate,
			FilerName:           row.FilerName,
			CandidateLastName:   row.CandidateLastName,
			CandidateFirstName:  row.CandidateFirstName,
			CandidateMiddleName: row.CandidateMiddleName,
		},
		FileName:  row.FileName,
		PageCount: int(row.PageCount),
		RunID:     row.RunID.String,
		CreatedAt: time.Unix(row.CreatedAt, 0).UTC(),
		UpdatedAt: time.Unix(row.UpdatedAt, 0).UTC(),
	}
}

// List returns filing metadata ordered by filing date and then id.
func (s Store) List(ctx context.Context, filter ListFilter) ([]StoredFiling, error) {
	rows, err := s.qry.ListFilings(ctx, db.ListFilingsParams{
		From: filter.From,
		To:   filter.To,
	})
	if err != nil {
		return nil, fmt.Errorf("list filings: %w", err)
	}
	out := make([]StoredFiling, len(rows))
	for i, r := range rows {
		out[i] = fromRow(r)
	}
	return out, nil
}

// Blob returns the document of the filing with the given id.
func (s Store) Blob(ctx context.Context, id int64) ([]byte, error) {
	blob, err := s.qry.GetFilingBlob(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get filing blob: %w", err)
	}
	return blob.Content, nil
}
