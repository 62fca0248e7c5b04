package testutil

import (
	"database/sql"
	"filingscraper/internal/db"
	"filingscraper/lib/telemetry"
	"fmt"
	"path/filepath"
	"testing"
)

type StoreParams struct {
	Name string
	// if true, the database is a file in a temporary directory instead of
	// `:memory:`
	OnDisk bool
}

type StoreResult struct {
	DB   *sql.DB
	Path string
}

// SetupStore sets up telemetry for testing and opens a database with the
// schema applied, everything is torn down when the test ends.
func SetupStore(t testing.TB, params StoreParams) StoreResult {
	cleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))
	t.Cleanup(cleanup)

	path := ":memory:"
	if params.OnDisk {
		path = filepath.Join(t.TempDir(), "filings.db")
	}
	database, err := db.OpenDB(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		database.Close()
	})

	return StoreResult{
		DB:   database,
		Path: path,
	}
}
