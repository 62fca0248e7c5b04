package portal

import (
	"filingscraper/internal/filing"
	"filingscraper/lib/htmlutil"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// GridRow is one row of the result grid as it was rendered.
type GridRow struct {
	// Index is the position of the row in the grid, starting at 0.
	Index int
	ID    string
	Text  filing.RowText
	// DocumentSelector selects the row's document link, it is empty when the
	// row has no document link (or no id to address it by).
	DocumentSelector string
}

func cellText(cells *goquery.Selection, column int) *string {
	if column <= 0 || column > cells.Length() {
		return nil
	}
	return htmlutil.CellText(cells.Eq(column - 1))
}

// ParseGrid reads every row matching layout.Row out of the grid's html.
func ParseGrid(markup string, layout Layout) ([]GridRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse grid: %w", err)
	}

	var rows []GridRow
	doc.Find(layout.Row).Each(func(i int, sel *goquery.Selection) {
		cells := sel.ChildrenFiltered("td")
		columns := layout.Columns

		row := GridRow{
			Index: i,
			ID:    strings.TrimSpace(sel.AttrOr("id", "")),
			Text: filing.RowText{
				FormType:            cellText(cells, columns.FormType),
				FilingDate:          cellText(cells, columns.FilingDate),
				FilerName:           cellText(cells, columns.FilerName),
				CandidateLastName:   cellText(cells, columns.CandidateLastName),
				CandidateFirstName:  cellText(cells, columns.CandidateFirstName),
				CandidateMiddleName: cellText(cells, columns.CandidateMiddleName),
			},
		}
		if row.ID != "" && sel.Find(layout.DocumentLink).Length() > 0 {
			row.DocumentSelector = fmt.Sprintf(
				`[id="%s"] %s`,
				strings.ReplaceAll(row.ID, `"`, `\"`),
				layout.DocumentLink,
			)
		}
		rows = append(rows, row)
	})

	return rows, nil
}
