package portal

import (
	"context"
	"errors"
	"filingscraper/internal/chrono"
	"filingscraper/internal/db"
	"filingscraper/internal/filing"
	"filingscraper/internal/filingstore"
	"filingscraper/lib/configutil"
	"filingscraper/lib/telemetry"
	"filingscraper/lib/testutil"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testPortalURL = "https://portal.example/Public/ReportsByDate.aspx"

var juneRun = RunRequest{StartDate: "2025-06-01", EndDate: "2025-06-30"}

func setupScraper(t *testing.T, portal *fakePortal, store Store, opts Options) (*Scraper, *telemetry.MemoryAPI) {
	cleanup := telemetry.SetupForTesting(t, "test:portal")
	t.Cleanup(cleanup)

	tel := &telemetry.MemoryAPI{}
	opts.PortalURL = testPortalURL
	return New(portal, store, opts, tel), tel
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)
	return ctx
}

func TestRunWalksEveryPage(t *testing.T) {
	portal := newFakePortal()
	portal.pages = [][]fakeRow{
		portal.withRows(0, 2),
		portal.withRows(2, 2),
		portal.withRows(4, 1),
	}
	scraper, _ := setupScraper(t, portal, nil, Options{})
	ctx := testContext(t)

	summary, err := scraper.Run(ctx, juneRun)
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, 2, portal.nextClicks)
	require.Equal(t, 5, summary.Rows)
	require.Equal(t, 5, summary.Fetched)
	require.Equal(t, 0, summary.Stored)
	require.Equal(t, 0, summary.Skipped)
	require.Nil(t, summary.Anomaly)

	pages := make([]int, len(summary.Pages))
	for i, p := range summary.Pages {
		pages[i] = p.Rows
	}
	diff := cmp.Diff([]int{2, 2, 1}, pages)
	if diff != "" {
		t.Fatal(diff)
	}

	advanced, err := scraper.Advance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, advanced)
	require.Equal(t, 2, portal.nextClicks)

	require.Equal(t, []string{testPortalURL}, portal.navigated)
	layout := DefaultLayout()
	require.Equal(t, "06/01/2025", portal.filled[layout.StartDateInput])
	require.Equal(t, "06/30/2025", portal.filled[layout.EndDateInput])
	require.Len(t, portal.opened, 5)
	require.Equal(t, 5, portal.escapes)
	require.Equal(t, 1, portal.countWaits(DefaultTiming().SearchSettle.Std()))
}

func TestRunReadsPagerWithNonBreakingSpaces(t *testing.T) {
	portal := newFakePortal()
	portal.pages = [][]fakeRow{
		portal.withRows(0, 2),
		portal.withRows(2, 2),
		portal.withRows(4, 1),
	}
	portal.pagerSpace = "\u00a0"
	scraper, _ := setupScraper(t, portal, nil, Options{})

	summary, err := scraper.Run(testContext(t), juneRun)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, summary.Pages, 3)
	require.Equal(t, 5, summary.Rows)
	require.Equal(t, 2, portal.nextClicks)
}

func TestRunReportsEveryPage(t *testing.T) {
	portal := newFakePortal()
	rows := portal.withRows(2, 2)
	rows[1].key = ""
	portal.pages = [][]fakeRow{
		portal.withRows(0, 2),
		rows,
	}
	scraper, tel := setupScraper(t, portal, nil, Options{})

	summary, err := scraper.Run(testContext(t), juneRun)
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, summary.DryRun)
	require.Equal(t, 3, summary.Done())

	reports := tel.Find("info", report_page_summary)
	require.Len(t, reports, 2)
	for i, report := range reports {
		require.Equal(t, summary.Pages[i].String(), report.Params[0])
	}
	require.Equal(t, "run so far: 4 rows, 3 documents, 1 skipped", reports[1].Params[1])

	done := tel.Find("count", report_total_done)
	require.Len(t, done, 2)
	require.Equal(t, []any{int64(2)}, done[0].Params)
	require.Equal(t, []any{int64(3)}, done[1].Params)
	skipped := tel.Find("count", report_total_skipped)
	require.Equal(t, []any{int64(1)}, skipped[1].Params)
}

func TestRunContinuesPastDocumentFailures(t *testing.T) {
	portal := newFakePortal()
	rows := portal.withRows(0, 4)
	portal.pages = [][]fakeRow{rows}
	portal.openErr[rows[0].id] = errors.New("element not visible")
	portal.fetchErr[BuildDownloadURL(rows[1].key)] = errors.New("net::ERR_CONNECTION_RESET")
	// rows 0 and 1 never reach the store, the first Put is row 2
	store := &failingStore{fail: map[int]error{1: errors.New("database is locked")}}
	scraper, tel := setupScraper(t, portal, store, Options{})

	summary, err := scraper.Run(testContext(t), juneRun)
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, summary.DryRun)
	require.Equal(t, 4, summary.Rows)
	require.Equal(t, 3, summary.Skipped)
	require.Equal(t, 1, summary.Stored)
	require.Len(t, store.stored, 1)
	require.Equal(t, 2, store.calls)

	require.Equal(t, []string{rows[1].id, rows[2].id, rows[3].id}, portal.opened)
	require.Equal(t, 4, portal.escapes)
	require.Len(t, portal.fetched, 3)
	require.Len(t, tel.Find("warning", report_fetch_document), 3)
}

func TestRunHaltsOnNavigationAnomaly(t *testing.T) {
	portal := newFakePortal()
	portal.pages = [][]fakeRow{
		portal.withRows(0, 2),
		portal.withRows(2, 2),
	}
	portal.stuck = true
	scraper, tel := setupScraper(t, portal, nil, Options{})

	summary, err := scraper.Run(testContext(t), juneRun)
	require.ErrorIs(t, err, ErrNavigationAnomaly)
	require.ErrorIs(t, summary.Anomaly, ErrNavigationAnomaly)
	require.Equal(t, 1, portal.nextClicks)
	require.Len(t, summary.Pages, 1)
	require.Len(t, tel.Find("broken", report_navigation), 1)
}

func TestRunWithoutPager(t *testing.T) {
	portal := newFakePortal()
	portal.pages = [][]fakeRow{portal.withRows(0, 3)}
	portal.noPager = true
	scraper, _ := setupScraper(t, portal, nil, Options{})

	summary, err := scraper.Run(testContext(t), juneRun)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, summary.Pages, 1)
	require.Equal(t, 3, summary.Fetched)
	require.Equal(t, 0, portal.nextClicks)
}

func TestRunStopsAtMaxPages(t *testing.T) {
	portal := newFakePortal()
	portal.pages = [][]fakeRow{
		portal.withRows(0, 1),
		portal.withRows(1, 1),
		portal.withRows(2, 1),
	}
	scraper, _ := setupScraper(t, portal, nil, Options{MaxPages: 2})

	summary, err := scraper.Run(testContext(t), juneRun)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, summary.Pages, 2)
	require.Equal(t, 1, portal.nextClicks)
}

func TestRunFallsBackWhenNetworkNeverIdles(t *testing.T) {
	portal := newFakePortal()
	portal.pages = [][]fakeRow{
		portal.withRows(0, 1),
		portal.withRows(1, 1),
	}
	portal.idleErr = errors.New("requests still in flight")
	timing := DefaultTiming()
	timing.NetworkIdleFallback = configutil.Duration(7 * time.Second)
	scraper, _ := setupScraper(t, portal, nil, Options{Timing: timing})

	summary, err := scraper.Run(testContext(t), juneRun)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 2, summary.Fetched)
	// once after the search, once after the page change
	require.Equal(t, 2, portal.countWaits(7*time.Second))
}

func TestRunCountsUnparsableRows(t *testing.T) {
	portal := newFakePortal()
	rows := portal.withRows(0, 4)
	rows[1].date = "June 30"
	rows[2].formType = "  "
	rows[3].noLink = true
	portal.pages = [][]fakeRow{rows}
	scraper, tel := setupScraper(t, portal, nil, Options{})

	summary, err := scraper.Run(testContext(t), juneRun)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 4, summary.Rows)
	require.Equal(t, 2, summary.Unparsable)
	require.Equal(t, 1, summary.NoDocument)
	require.Equal(t, 1, summary.Fetched)
	require.Equal(t, []string{rows[0].id}, portal.opened)
	require.Len(t, tel.Find("warning", report_row_unparsable), 2)
}

func TestRunSkipsInvalidArtifacts(t *testing.T) {
	portal := newFakePortal()
	rows := portal.withRows(0, 3)
	portal.artifacts[BuildDownloadURL(rows[1].key)] = []byte("<html><body>Session expired</body></html>")
	portal.pages = [][]fakeRow{rows}
	scraper, tel := setupScraper(t, portal, nil, Options{})

	summary, err := scraper.Run(testContext(t), juneRun)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 2, summary.Fetched)
	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, 3, portal.escapes)

	reports := tel.Find("warning", report_fetch_document)
	require.Len(t, reports, 1)
	err, ok := reports[0].Params[1].(error)
	require.True(t, ok)
	require.ErrorIs(t, err, ErrInvalidArtifact)
}

func TestRunSkipsUnresolvedCredentials(t *testing.T) {
	portal := newFakePortal()
	rows := portal.withRows(0, 2)
	rows[0].key = ""
	portal.pages = [][]fakeRow{rows}
	scraper, _ := setupScraper(t, portal, nil, Options{})

	summary, err := scraper.Run(testContext(t), juneRun)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, 1, summary.Fetched)
	require.Equal(t, 2, portal.escapes)
	require.Len(t, portal.fetched, 1)
	require.Equal(t, DefaultTiming().CredentialAttempts-1, portal.countWaits(DefaultTiming().CredentialInterval.Std()))
}

func TestRunDebugPausesAfterDocuments(t *testing.T) {
	portal := newFakePortal()
	portal.pages = [][]fakeRow{portal.withRows(0, 2)}
	scraper, _ := setupScraper(t, portal, nil, Options{Debug: true})

	_, err := scraper.Run(testContext(t), juneRun)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 2, portal.countWaits(DefaultTiming().InspectionPause.Std()))
}

func TestRunStoresDocuments(t *testing.T) {
	portal := newFakePortal()
	portal.pages = [][]fakeRow{
		portal.withRows(0, 2),
		portal.withRows(2, 1),
	}
	res := testutil.SetupStore(t, testutil.StoreParams{Name: "portal"})
	store := filingstore.NewStore(res.DB, &chrono.SteppedImpl{
		Start: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Step:  time.Second,
	})

	scraper, _ := setupScraper(t, portal, store, Options{FormTypePolicy: filing.FormTypeCode})
	ctx := testContext(t)

	summary, err := scraper.Run(ctx, juneRun)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 3, summary.Stored)
	require.NotEmpty(t, summary.RunID)

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.EqualValues(t, 3, count)

	filings, err := store.List(ctx, filingstore.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, filings, 3)
	for _, f := range filings {
		require.Equal(t, "410", f.Record.FormType)
		require.Equal(t, summary.RunID, f.RunID)
	}

	run, err := store.GetRun(ctx, summary.RunID)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, db.RUN_COMPLETED, run.Outcome)
	require.Equal(t, 3, run.Stored)

	// a second run over the same range does not duplicate filings
	_, err = scraper.Run(ctx, juneRun)
	if err != nil {
		t.Fatal(err)
	}
	count, err = store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.EqualValues(t, 3, count)
}

func TestRunRecordsAnomaly(t *testing.T) {
	portal := newFakePortal()
	portal.pages = [][]fakeRow{
		portal.withRows(0, 1),
		portal.withRows(1, 1),
	}
	portal.stuck = true
	res := testutil.SetupStore(t, testutil.StoreParams{Name: "portal"})
	store := filingstore.NewStore(res.DB, nil)
	scraper, _ := setupScraper(t, portal, store, Options{})
	ctx := testContext(t)

	summary, err := scraper.Run(ctx, juneRun)
	require.ErrorIs(t, err, ErrNavigationAnomaly)

	run, err := store.GetRun(ctx, summary.RunID)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, db.RUN_ANOMALY, run.Outcome)
	require.Equal(t, 1, run.Stored)
}

func TestRunRejectsInvalidRange(t *testing.T) {
	portal := newFakePortal()
	scraper, _ := setupScraper(t, portal, nil, Options{})

	_, err := scraper.Run(testContext(t), RunRequest{StartDate: "2025-06-30", EndDate: "2025-06-01"})
	require.Error(t, err)
	_, err = scraper.Run(testContext(t), RunRequest{StartDate: "6/1/2025", EndDate: "2025-06-30"})
	require.Error(t, err)
	require.Empty(t, portal.navigated)
}
