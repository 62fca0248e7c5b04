package portal

import (
	"filingscraper/internal/filing"
	"filingscraper/lib/configutil"
	"time"
)

// Columns are the 1-based cell positions of each field in a grid row,
// 0 or less means the grid does not have that column.
type Columns struct {
	FormType            int `json:"form_type"`
	FilingDate          int `json:"filing_date"`
	FilerName           int `json:"filer_name"`
	CandidateLastName   int `json:"candidate_last_name"`
	CandidateFirstName  int `json:"candidate_first_name"`
	CandidateMiddleName int `json:"candidate_middle_name"`
}

// Layout holds the css selectors of the portal's search form, result grid,
// pager and document viewer.
type Layout struct {
	StartDateInput string  `json:"start_date_input"`
	EndDateInput   string  `json:"end_date_input"`
	SearchButton   string  `json:"search_button"`
	Grid           string  `json:"grid"`
	Row            string  `json:"row"`
	Columns        Columns `json:"columns"`
	DocumentLink   string  `json:"document_link"`
	PagerSummary   string  `json:"pager_summary"`
	// NextButton must only match the next page control while it is enabled.
	NextButton      string `json:"next_button"`
	ViewerElement   string `json:"viewer_element"`
	ViewerAttribute string `json:"viewer_attribute"`
}

func DefaultLayout() Layout {
	return Layout{
		StartDateInput: `input[id$="dteFilingDateFrom_I"]`,
		EndDateInput:   `input[id$="dteFilingDateTo_I"]`,
		SearchButton:   `[id$="btnSearch"]`,
		Grid:           `table[id$="gvFilings_DXMainTable"]`,
		Row:            `tr[id*="gvFilings_DXDataRow"]`,
		Columns: Columns{
			FormType:            2,
			FilingDate:          3,
			FilerName:           4,
			CandidateLastName:   5,
			CandidateFirstName:  6,
			CandidateMiddleName: 7,
		},
		DocumentLink:    `a[id*="lnkViewDocument"]`,
		PagerSummary:    `[id$="gvFilings_DXPagerBottom"] .dxp-summary`,
		NextButton:      `[id$="gvFilings_DXPagerBottom"] a.dxp-button[onclick*="PBN"]:not(.dxp-disabledButton)`,
		ViewerElement:   `embed[src*="PdfHandler.axd"], object[data*="PdfHandler.axd"], iframe[src*="PdfHandler.axd"]`,
		ViewerAttribute: "src",
	}
}

// Timing holds every fixed wait of a run. The portal gives no reliable
// completion signal for most of its updates, so these are bounded sleeps.
type Timing struct {
	SearchSettle        configutil.Duration `json:"search_settle"`
	ViewSettle          configutil.Duration `json:"view_settle"`
	CloseSettle         configutil.Duration `json:"close_settle"`
	CredentialAttempts  int                 `json:"credential_attempts"`
	CredentialInterval  configutil.Duration `json:"credential_interval"`
	SummaryTimeout      configutil.Duration `json:"summary_timeout"`
	NetworkIdleTimeout  configutil.Duration `json:"network_idle_timeout"`
	NetworkIdleFallback configutil.Duration `json:"network_idle_fallback"`
	InspectionPause     configutil.Duration `json:"inspection_pause"`
}

func DefaultTiming() Timing {
	return Timing{
		SearchSettle:        configutil.Duration(5 * time.Second),
		ViewSettle:          configutil.Duration(3 * time.Second),
		CloseSettle:         configutil.Duration(500 * time.Millisecond),
		CredentialAttempts:  5,
		CredentialInterval:  configutil.Duration(time.Second),
		SummaryTimeout:      configutil.Duration(5 * time.Second),
		NetworkIdleTimeout:  configutil.Duration(10 * time.Second),
		NetworkIdleFallback: configutil.Duration(3 * time.Second),
		InspectionPause:     configutil.Duration(30 * time.Second),
	}
}

// Options configure a Scraper.
type Options struct {
	PortalURL      string
	Layout         Layout
	Timing         Timing
	FormTypePolicy filing.FormTypePolicy
	// Debug pauses for Timing.InspectionPause after every stored document.
	Debug bool
	// MaxPages stops the run after that many pages, 0 means no limit.
	MaxPages int
}
