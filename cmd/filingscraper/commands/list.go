package commands

import (
	"filingscraper/internal/filing"
	"filingscraper/internal/filingstore"
	"filingscraper/lib/util/serviceutil"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	listDb   *string
	listFrom *string
	listTo   *string
)

func init() {
	listDb = listCmd.Flags().String("db", "", "The database to list filings from.")
	listFrom = listCmd.Flags().String("from", "", "Only list filings filed on or after this date (YYYY-MM-DD).")
	listTo = listCmd.Flags().String("to", "", "Only list filings filed on or before this date (YYYY-MM-DD).")
	listCmd.MarkFlagRequired("db")
	rootCmd.AddCommand(listCmd)
}

func candidateName(r filing.Record) string {
	parts := []string{}
	for _, part := range []string{r.CandidateFirstName, r.CandidateMiddleName, r.CandidateLastName} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

var listCmd = &cobra.Command{
	Use:   "list --db <path/to/filings.db> [--from <YYYY-MM-DD>] [--to <YYYY-MM-DD>]",
	Short: "Lists the stored filings without their documents.",
	Run: func(cmd *cobra.Command, args []string) {
		for _, date := range []string{*listFrom, *listTo} {
			if date == "" {
				continue
			}
			_, err := filing.ParseISODate(date)
			if err != nil {
				serviceutil.Fatal("invalid date", err)
			}
		}

		store, err := filingstore.Open(*listDb, nil)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		filings, err := store.List(cmd.Context(), filingstore.ListFilter{
			From: *listFrom,
			To:   *listTo,
		})
		store.Close()
		if err != nil {
			serviceutil.Fatal("failed to list filings", err)
		}

		t := NewTable()
		t.AppendHeader(table.Row{"ID", "Filed", "Form", "Filer", "Candidate", "Pages", "File"})
		for _, f := range filings {
			pages := "-"
			if f.PageCount > 0 {
				pages = strconv.Itoa(f.PageCount)
			}
			t.AppendRow(table.Row{
				f.ID,
				f.Record.FilingDate,
				f.Record.FormType,
				f.Record.FilerName,
				candidateName(f.Record),
				pages,
				f.FileName,
			})
		}
		t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(filings)})
		t.Render()
	},
}
