package portal

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ErrNavigationAnomaly = errors.New("navigation anomaly")

// PaginationState is read off the grid's pager after every navigation.
type PaginationState struct {
	CurrentPage int
	TotalPages  int
	TotalItems  int
}

func (p PaginationState) String() string {
	return fmt.Sprintf("page %d of %d (%d items)", p.CurrentPage, p.TotalPages, p.TotalItems)
}

func (p PaginationState) IsLast() bool {
	return p.CurrentPage >= p.TotalPages
}

var pageSummaryRegex = regexp.MustCompile(`Page (\d+) of (\d+) \((\d+) items?\)`)

// ParsePageSummary parses the pager's "Page X of Y (Z items)". The pager
// renders &nbsp; between words, any unicode space run counts as one space.
func ParsePageSummary(text string) (PaginationState, bool) {
	text = strings.Join(strings.Fields(text), " ")
	groups := pageSummaryRegex.FindStringSubmatch(text)
	if len(groups) < 4 {
		return PaginationState{}, false
	}
	var numbers [3]int
	for i, group := range groups[1:] {
		n, err := strconv.Atoi(group)
		if err != nil || n <= 0 {
			return PaginationState{}, false
		}
		numbers[i] = n
	}
	state := PaginationState{
		CurrentPage: numbers[0],
		TotalPages:  numbers[1],
		TotalItems:  numbers[2],
	}
	if state.CurrentPage > state.TotalPages {
		return PaginationState{}, false
	}
	return state, true
}

// ReadState reads the current pagination state, ok is false when the grid has
// no pager (a single page of results).
func (s *Scraper) ReadState(ctx context.Context) (PaginationState, bool) {
	text, err := s.browser.Text(ctx, s.opts.Layout.PagerSummary, s.opts.Timing.SummaryTimeout.Std())
	if err != nil {
		s.tel.ReportDebug("failed to read pager summary", err)
		return PaginationState{}, false
	}
	if text == nil {
		return PaginationState{}, false
	}
	state, ok := ParsePageSummary(*text)
	if !ok {
		s.tel.ReportWarning(report_pagination, "unrecognized pager summary", *text)
	}
	return state, ok
}

// waitForReload waits for the grid's callback to finish, some requests the
// page makes never settle so network idle falls back to a fixed wait.
func (s *Scraper) waitForReload(ctx context.Context) error {
	timing := s.opts.Timing
	err := s.browser.WaitNetworkIdle(ctx, timing.NetworkIdleTimeout.Std())
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.tel.ReportDebug("network did not become idle, falling back to fixed wait", err)
	return s.browser.Wait(ctx, timing.NetworkIdleFallback.Std())
}

// Advance moves the grid to the next page, it returns false without error
// when there is no enabled next page control, which means the current page
// is the last one.
func (s *Scraper) Advance(ctx context.Context) (bool, error) {
	n, err := s.browser.Count(ctx, s.opts.Layout.NextButton)
	if err != nil {
		return false, fmt.Errorf("locate next page control: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	err = s.browser.Click(ctx, s.opts.Layout.NextButton)
	if err != nil {
		return false, fmt.Errorf("click next page control: %w", err)
	}
	err = s.waitForReload(ctx)
	if err != nil {
		return false, err
	}
	return true, nil
}

// checkAdvance verifies that a navigation moved exactly one page forward.
func checkAdvance(previous PaginationState, next PaginationState, ok bool) error {
	if !ok {
		return fmt.Errorf("%w: pager disappeared after leaving %s", ErrNavigationAnomaly, previous)
	}
	if next.CurrentPage != previous.CurrentPage+1 || next.TotalPages != previous.TotalPages {
		return fmt.Errorf("%w: %s was followed by %s", ErrNavigationAnomaly, previous, next)
	}
	return nil
}
