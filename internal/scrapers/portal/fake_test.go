package portal

import (
	"bytes"
	"context"
	"filingscraper/internal/filing"
	"filingscraper/internal/filingstore"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"
)

type fakeRow struct {
	id       string
	formType string
	date     string
	filer    string
	last     string
	first    string
	middle   string
	noLink   bool
	// key is the credential the viewer exposes once the row is opened, an
	// empty key means the viewer never shows up.
	key string
}

type fakePortal struct {
	layout Layout
	pages  [][]fakeRow
	// artifacts maps download urls to document content.
	artifacts map[string][]byte

	// stuck makes the next page control do nothing.
	stuck bool
	// noPager hides the pager summary.
	noPager bool
	// viewerDelay is the number of Frames calls before the viewer frame
	// of an opened row is attached.
	viewerDelay int
	// idleErr is returned by WaitNetworkIdle.
	idleErr error
	// pagerSpace replaces the spaces of the pager summary when set.
	pagerSpace string
	// openErr and fetchErr fail opening a row's document by row id and
	// downloading by url.
	openErr  map[string]error
	fetchErr map[string]error

	mutex      sync.Mutex
	searched   bool
	current    int
	openKey    string
	openPolls  int
	viewOpen   bool
	navigated  []string
	filled     map[string]string
	nextClicks int
	opened     []string
	escapes    int
	fetched    []string
	waits      []time.Duration
}

func newFakePortal(pages ...[]fakeRow) *fakePortal {
	return &fakePortal{
		layout:    DefaultLayout(),
		pages:     pages,
		artifacts: map[string][]byte{},
		filled:    map[string]string{},
		openErr:   map[string]error{},
		fetchErr:  map[string]error{},
	}
}

func fakePDF(seed string) []byte {
	return append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte(seed+" "), 200/len(seed)+1)...)
}

// rows generates n parseable rows with documents starting at the given
// global row index.
func (f *fakePortal) withRows(start, n int) []fakeRow {
	rows := make([]fakeRow, n)
	for i := range rows {
		index := start + i
		key := fmt.Sprintf("%032x", index+1)
		rows[i] = fakeRow{
			id:       fmt.Sprintf("ctl00_cph_gvFilings_DXDataRow%d", index),
			formType: "410 Statement of Organization",
			date:     fmt.Sprintf("6/%d/2025", index+1),
			filer:    fmt.Sprintf("Committee %d", index),
			last:     "Doe",
			first:    "Jane",
			key:      key,
		}
		f.artifacts[BuildDownloadURL(key)] = fakePDF(fmt.Sprintf("document-%d", index))
	}
	return rows
}

func (f *fakePortal) totalItems() int {
	total := 0
	for _, page := range f.pages {
		total += len(page)
	}
	return total
}

func (f *fakePortal) rowSelector(row fakeRow) string {
	return fmt.Sprintf(`[id="%s"] %s`, row.id, f.layout.DocumentLink)
}

func (f *fakePortal) Navigate(ctx context.Context, url string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.navigated = append(f.navigated, url)
	f.searched = false
	f.current = 0
	return nil
}

func (f *fakePortal) Fill(ctx context.Context, selector, text string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.filled[selector] = text
	return nil
}

func (f *fakePortal) Click(ctx context.Context, selector string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	switch selector {
	case f.layout.SearchButton:
		f.searched = true
		f.current = 0
		return nil
	case f.layout.NextButton:
		f.nextClicks++
		if !f.stuck && f.current < len(f.pages)-1 {
			f.current++
		}
		return nil
	}

	if !f.searched || len(f.pages) == 0 {
		return fmt.Errorf("no element matches %s", selector)
	}
	for _, row := range f.pages[f.current] {
		if row.noLink || f.rowSelector(row) != selector {
			continue
		}
		if err := f.openErr[row.id]; err != nil {
			return err
		}
		f.opened = append(f.opened, row.id)
		f.viewOpen = true
		f.openKey = row.key
		f.openPolls = 0
		return nil
	}
	return fmt.Errorf("no element matches %s", selector)
}

func (f *fakePortal) Count(ctx context.Context, selector string) (int, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if selector == f.layout.NextButton {
		if f.searched && (f.stuck || f.current < len(f.pages)-1) {
			return 1, nil
		}
		return 0, nil
	}
	return 0, nil
}

func (f *fakePortal) Text(ctx context.Context, selector string, timeout time.Duration) (*string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if selector != f.layout.PagerSummary || f.noPager || !f.searched {
		return nil, nil
	}
	text := fmt.Sprintf("Page %d of %d (%d items)", f.current+1, len(f.pages), f.totalItems())
	if f.pagerSpace != "" {
		text = strings.ReplaceAll(text, " ", f.pagerSpace)
	}
	return &text, nil
}

func cell(text string) string {
	return "<td>" + html.EscapeString(text) + "</td>"
}

func (f *fakePortal) HTML(ctx context.Context, selector string) (string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if selector != f.layout.Grid || !f.searched {
		return "", fmt.Errorf("no element matches %s", selector)
	}

	var sb strings.Builder
	sb.WriteString(`<table id="ctl00_cph_gvFilings_DXMainTable">`)
	if len(f.pages) > 0 {
		for _, row := range f.pages[f.current] {
			sb.WriteString(fmt.Sprintf(`<tr id="%s">`, row.id))
			if row.noLink {
				sb.WriteString("<td></td>")
			} else {
				sb.WriteString(fmt.Sprintf(`<td><a id="%s_lnkViewDocument" href="#">View</a></td>`, row.id))
			}
			sb.WriteString(cell(row.formType))
			sb.WriteString(cell(row.date))
			sb.WriteString(cell(row.filer))
			sb.WriteString(cell(row.last))
			sb.WriteString(cell(row.first))
			sb.WriteString(cell(row.middle))
			sb.WriteString("</tr>")
		}
	}
	sb.WriteString("</table>")
	return sb.String(), nil
}

type fakeFrame struct {
	layout Layout
	src    string
}

func (f fakeFrame) Count(ctx context.Context, selector string) (int, error) {
	if f.src == "" || selector != f.layout.ViewerElement {
		return 0, nil
	}
	return 1, nil
}

func (f fakeFrame) Attribute(ctx context.Context, selector, name string) (*string, error) {
	if f.src == "" || selector != f.layout.ViewerElement || name != f.layout.ViewerAttribute {
		return nil, nil
	}
	src := f.src
	return &src, nil
}

func (f *fakePortal) Frames(ctx context.Context) ([]Frame, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	frames := []Frame{fakeFrame{layout: f.layout}}
	if !f.viewOpen || f.openKey == "" {
		return frames, nil
	}
	f.openPolls++
	if f.openPolls <= f.viewerDelay {
		return frames, nil
	}
	frames = append(frames, fakeFrame{
		layout: f.layout,
		src:    "/Public/PdfHandler.axd?key=" + f.openKey + "&format=pdf#toolbar=0",
	})
	return frames, nil
}

func (f *fakePortal) PressKey(ctx context.Context, key string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if key == KeyEscape {
		f.escapes++
		f.viewOpen = false
		f.openKey = ""
	}
	return nil
}

func (f *fakePortal) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.fetched = append(f.fetched, url)
	if err := f.fetchErr[url]; err != nil {
		return nil, err
	}
	content, ok := f.artifacts[url]
	if !ok {
		return []byte("<html><body>Document not found.</body></html>"), nil
	}
	return content, nil
}

func (f *fakePortal) Wait(ctx context.Context, d time.Duration) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.waits = append(f.waits, d)
	return ctx.Err()
}

func (f *fakePortal) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	return f.idleErr
}

func (f *fakePortal) countWaits(d time.Duration) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	n := 0
	for _, w := range f.waits {
		if w == d {
			n++
		}
	}
	return n
}

// failingStore fails the Put calls listed in fail, counted from 1, and
// records the file names of the rest.
type failingStore struct {
	fail   map[int]error
	mutex  sync.Mutex
	calls  int
	stored []string
}

func (s *failingStore) Put(ctx context.Context, record filing.Record, artifact filingstore.Artifact, runID string) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.calls++
	if err := s.fail[s.calls]; err != nil {
		return 0, err
	}
	s.stored = append(s.stored, record.FileName())
	return int64(len(s.stored)), nil
}

func (s *failingStore) BeginRun(ctx context.Context, startDate, endDate string) (string, error) {
	return "run", nil
}

func (s *failingStore) FinishRun(ctx context.Context, id string, totals filingstore.RunTotals) error {
	return nil
}
