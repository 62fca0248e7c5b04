package commands

import (
	"errors"
	"filingscraper/internal/filingstore"
	"filingscraper/lib/util/serviceutil"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	exportDb  *string
	exportOut *string
)

func init() {
	exportDb = exportCmd.Flags().String("db", "", "The database to export documents from.")
	exportOut = exportCmd.Flags().String("out", "", "The directory to write documents into.")
	exportCmd.MarkFlagRequired("db")
	exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export --db <path/to/filings.db> --out <dir>",
	Short: "Writes every stored document into a directory.",
	Run: func(cmd *cobra.Command, args []string) {
		if *exportDb == "" || *exportOut == "" {
			serviceutil.Fatal("missing arguments", errors.New("both --db and --out are required"))
		}

		store, err := filingstore.Open(*exportDb, nil)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		files, err := store.Export(cmd.Context(), *exportOut)
		store.Close()
		if err != nil {
			serviceutil.Fatal(fmt.Sprintf("export stopped after %d documents", len(files)), err)
		}

		var size int
		for _, f := range files {
			size += f.Size
		}
		fmt.Printf("exported %d documents (%d bytes) to %s\n", len(files), size, *exportOut)
	},
}
