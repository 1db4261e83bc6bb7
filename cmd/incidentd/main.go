// Package main implements the incidentd CLI for manual triage operations:
// validating the pipeline config, running triage against fixtures or raw
// payloads, listing recent agent sessions, and a dev webhook listener.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// cfgPath is the pipeline config file shared by all commands.
	cfgPath string
	// fixturesDir is the root for signal and log fixtures.
	fixturesDir string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "incidentd",
	Short: "CLI for incident triage operations",
	Long: `incidentd turns monitoring webhooks into agent-run incident triage.
This CLI validates the pipeline config, runs triage manually against
fixtures or raw payloads, and inspects recent agent sessions.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "incident-triage.yaml", "pipeline config file")
	rootCmd.PersistentFlags().StringVar(&fixturesDir, "fixtures", "fixtures", "fixtures root directory")
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
}
