package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/incidentd/internal/cfg"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the pipeline config file",
	Long: `Validate loads the pipeline config, applies environment overrides, and
checks every field. Unlike the daemon, a missing file is an error here.

Examples:
  incidentd validate
  incidentd validate --config ./deploy/incident-triage.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, err := cfg.LoadPipeline(cfgPath)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Config is valid.\n")
		fmt.Fprintf(cmd.OutOrStdout(), "  services: %d\n", len(pipeline.Services))
		fmt.Fprintf(cmd.OutOrStdout(), "  signals: prometheus=%t deploy=%t posthog=%t github=%t\n",
			pipeline.Signals.Prometheus.Enabled,
			pipeline.Signals.Deploy.Enabled,
			pipeline.Signals.PostHog.Enabled,
			pipeline.Signals.GitHub.Enabled)
		fmt.Fprintf(cmd.OutOrStdout(), "  outputs: patch_pr=%t report_path=%s\n",
			pipeline.Outputs.CreatePatchPR, pipeline.Outputs.ReportPath)
		return nil
	},
}
