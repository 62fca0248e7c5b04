// Package filing contains the filing record as it is listed in the portal's
// result grid and the logic to parse one out of raw row text.
package filing

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// RowText is the raw text of each grid column of a row, a nil field means
// that the column (or the cell) was not present.
type RowText struct {
	FormType            *string
	FilingDate          *string
	FilerName           *string
	CandidateLastName   *string
	CandidateFirstName  *string
	CandidateMiddleName *string
}

// Record is a validated filing, it is not mutated after ParseRecord.
type Record struct {
	FormType            string
	FilingDate          string
	FilerName           string
	CandidateLastName   string
	CandidateFirstName  string
	CandidateMiddleName string
}

// NaturalKey identifies the same logical filing across runs.
type NaturalKey struct {
	FormType           string
	FilingDate         string
	FilerName          string
	CandidateLastName  string
	CandidateFirstName string
}

func (r Record) NaturalKey() NaturalKey {
	return NaturalKey{
		FormType:           r.FormType,
		FilingDate:         r.FilingDate,
		FilerName:          r.FilerName,
		CandidateLastName:  r.CandidateLastName,
		CandidateFirstName: r.CandidateFirstName,
	}
}

func sanitizeNamePart(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, s)
}

// FileName is the name the filing's document is stored and exported under:
// {filingDate}.{filerName}.{formType}.pdf
func (r Record) FileName() string {
	return fmt.Sprintf(
		"%s.%s.%s.pdf",
		sanitizeNamePart(r.FilingDate),
		sanitizeNamePart(r.FilerName),
		sanitizeNamePart(r.FormType),
	)
}

// FormTypePolicy decides how the form type column is turned into Record.FormType.
type FormTypePolicy string

const (
	// FormTypeVerbatim keeps the trimmed column text.
	FormTypeVerbatim FormTypePolicy = "verbatim"
	// FormTypeCode extracts the leading form code ("410", "410-A") and falls
	// back to UnknownFormCode.
	FormTypeCode FormTypePolicy = "code"
)

const UnknownFormCode = "unknown"

var formCodeRegex = regexp.MustCompile(`^\d+(?:-[A-Z])?`)

// FormCode extracts the leading form code out of a descriptive form type
// like "410-A Statement of Organization".
func FormCode(text string) string {
	code := formCodeRegex.FindString(strings.TrimSpace(text))
	if code == "" {
		return UnknownFormCode
	}
	return code
}

func optional(text *string) string {
	if text == nil {
		return ""
	}
	return strings.TrimSpace(*text)
}

// ParseRecord validates row text into a Record using the verbatim form type
// policy, ok is false when the row cannot be parsed.
func ParseRecord(row RowText) (Record, bool) {
	return ParseRecordWith(row, FormTypeVerbatim)
}

// ParseRecordWith is ParseRecord with an explicit form type policy.
func ParseRecordWith(row RowText, policy FormTypePolicy) (Record, bool) {
	if row.FormType == nil || row.FilingDate == nil {
		return Record{}, false
	}
	formType := strings.TrimSpace(*row.FormType)
	if formType == "" {
		return Record{}, false
	}
	if policy == FormTypeCode {
		formType = FormCode(formType)
	}
	date, ok := NormalizeDate(*row.FilingDate)
	if !ok {
		return Record{}, false
	}

	return Record{
		FormType:            formType,
		FilingDate:          date,
		FilerName:           optional(row.FilerName),
		CandidateLastName:   optional(row.CandidateLastName),
		CandidateFirstName:  optional(row.CandidateFirstName),
		CandidateMiddleName: optional(row.CandidateMiddleName),
	}, true
}
