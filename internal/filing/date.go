package filing

import (
	"fmt"
	"strings"
	"time"
)

func isDigits(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func padTwo(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// NormalizeDate turns the portal's M/D/YYYY into YYYY-MM-DD. Only the first
// whitespace separated token is considered (the grid sometimes appends the
// time of day). There is no calendar validation, "2/31/2025" is accepted.
func NormalizeDate(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", false
	}
	parts := strings.Split(fields[0], "/")
	if len(parts) != 3 {
		return "", false
	}
	month, day, year := parts[0], parts[1], parts[2]
	if !isDigits(month, 1, 2) || !isDigits(day, 1, 2) || !isDigits(year, 4, 4) {
		return "", false
	}
	return fmt.Sprintf("%s-%s-%s", year, padTwo(month), padTwo(day)), true
}

const (
	isoLayout    = "2006-01-02"
	portalLayout = "01/02/2006"
)

// ParseISODate parses a YYYY-MM-DD date as given on the command line.
func ParseISODate(text string) (time.Time, error) {
	t, err := time.Parse(isoLayout, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("date '%s' is not in YYYY-MM-DD format", text)
	}
	return t, nil
}

// PortalDate converts YYYY-MM-DD into the MM/DD/YYYY the search form expects.
func PortalDate(text string) (string, error) {
	t, err := ParseISODate(text)
	if err != nil {
		return "", err
	}
	return t.Format(portalLayout), nil
}
