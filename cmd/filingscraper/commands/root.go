package commands

import (
	"context"
	"filingscraper/lib/telemetry"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "filingscraper",
	Short: "filingscraper downloads campaign finance filings from the public filing portal.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if *debugFlag {
			telemetry.InitSlog(true)
		}
	},
}

var (
	debugFlag  *bool
	configFlag *string
)

func init() {
	debugFlag = rootCmd.PersistentFlags().Bool("debug", false, "Show the browser, log debug output and pause after every document.")
	configFlag = rootCmd.PersistentFlags().String("config", "filingscraper.json5", "The config file to read, <name>.local.json5 overrides it.")
}

// ExecuteContext runs the command line and returns the exit code.
func ExecuteContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
