package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/linnemanlabs/go-core/log"
	"github.com/spf13/cobra"

	"github.com/linnemanlabs/incidentd/internal/devin"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List recent triage sessions",
	Long: `Status lists the most recent agent sessions carrying the triage tag.

Requires DEVIN_API_KEY in the environment.

Examples:
  incidentd status
  incidentd status --limit 50`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		apiKey := os.Getenv("DEVIN_API_KEY")
		if apiKey == "" {
			return fmt.Errorf("DEVIN_API_KEY is not set")
		}

		client := devin.New(apiKey, os.Getenv("DEVIN_BASE_URL"), log.Nop())
		sessions, err := client.ListSessions(cmd.Context(), devin.ListOptions{
			Tag:   "incident-triage",
			Limit: statusLimit,
		})
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No triage sessions found.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SESSION\tSTATUS\tPR\tURL")
		for i := range sessions {
			s := &sessions[i]
			id := s.SessionID
			if id == "" {
				id = s.ID
			}
			pr := s.PullRequest()
			if pr == "" {
				pr = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, s.NormalizedStatus(), pr, s.URL)
		}
		return tw.Flush()
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "maximum sessions to list")
}
