package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "restspec",
	Short: "Fluent HTTP probes with response expectations.",
	Long: `restspec sends one-off HTTP requests through the same pipeline the
library uses in test suites: layered configuration, proxy directives,
content-type aware body encoding, and response expectations.`,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitUsageError)
	}
}

func init() {
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(versionCmd)
}
