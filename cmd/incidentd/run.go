package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/linnemanlabs/go-core/log"
	"github.com/spf13/cobra"

	"github.com/linnemanlabs/incidentd/internal/cfg"
	"github.com/linnemanlabs/incidentd/internal/devin"
	"github.com/linnemanlabs/incidentd/internal/signal"
	"github.com/linnemanlabs/incidentd/internal/triage"
)

var (
	runFixture string
	runDemo    string
	runPayload string
	runRepoDir string
	runBase    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a triage end-to-end from a fixture, demo, or payload file",
	Long: `Run normalizes a signal payload into an incident, gathers evidence,
creates an agent session, waits for it to finish, and writes the report.

Requires DEVIN_API_KEY in the environment. For --payload files that hold
GitHub webhook bodies, set GITHUB_EVENT to the event name that would have
arrived in the X-GitHub-Event header. Inside CI, GITHUB_BASE_SHA (or the
--base flag) pins the base commit for the evidence diff.

Examples:
  incidentd run --demo high-error-rate
  incidentd run --fixture prometheus/latency-spike
  incidentd run --payload ./alert.json`,
	Args: cobra.NoArgs,
	RunE: runTriage,
}

func init() {
	runCmd.Flags().StringVar(&runFixture, "fixture", "", "signal fixture name (optionally source-qualified)")
	runCmd.Flags().StringVar(&runDemo, "demo", "", "demo scenario name")
	runCmd.Flags().StringVar(&runPayload, "payload", "", "path to a raw webhook payload file")
	runCmd.Flags().StringVar(&runRepoDir, "repo-dir", ".", "git repository to gather commit evidence from")
	runCmd.Flags().StringVar(&runBase, "base", "", "explicit base commit for evidence diffs (defaults to GITHUB_BASE_SHA)")
	runCmd.Flags().Lookup("fixture").NoOptDefVal = "?"
	runCmd.Flags().Lookup("demo").NoOptDefVal = "?"
}

func runTriage(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	// Bare --demo or --fixture lists what is available instead of running.
	if runDemo == "?" {
		fmt.Fprintln(out, "Available demos:")
		for _, name := range demoNames() {
			fmt.Fprintf(out, "  %s\n", name)
		}
		return nil
	}
	if runFixture == "?" {
		refs, err := listFixtures(fixturesDir)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Available fixtures:")
		for _, ref := range refs {
			fmt.Fprintf(out, "  %s/%s\n", ref.Source, ref.Name)
		}
		return nil
	}

	payload, opts, scenario, err := resolvePayload()
	if err != nil {
		return err
	}

	inc := signal.Normalize(payload, opts)
	if inc == nil {
		return fmt.Errorf("payload did not normalize to an incident")
	}
	fmt.Fprintf(out, "Incident: %s (%s)\n", inc.ID, inc.Trigger)

	apiKey := os.Getenv("DEVIN_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("DEVIN_API_KEY is not set")
	}

	pipeline, err := cfg.LoadPipelineOrDefault(cfgPath)
	if err != nil {
		return err
	}

	client := devin.New(apiKey, os.Getenv("DEVIN_BASE_URL"), log.Nop())
	runner := triage.NewRunner(client, pipeline, triage.RunnerOptions{
		RepoDir:     runRepoDir,
		FixturesDir: fixturesDir,
	}, nil, log.Nop())

	res, err := runner.Run(cmd.Context(), inc, triage.RunOptions{LogsScenario: scenario, BaseSHA: runBase})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Session: %s (%s)\n", res.SessionID, res.Status)
	fmt.Fprintf(out, "Report: %s\n", res.ReportPath)
	if res.PRURL != "" {
		fmt.Fprintf(out, "PR: %s\n", res.PRURL)
	}
	return nil
}

// resolvePayload picks the signal body from, in order of precedence, an
// explicit payload file, a demo scenario, or a named fixture. The returned
// scenario selects which log fixture accompanies the run; it is empty when
// the runner should derive it from the incident.
func resolvePayload() (json.RawMessage, signal.Options, string, error) {
	switch {
	case runPayload != "":
		data, err := os.ReadFile(runPayload)
		if err != nil {
			return nil, signal.Options{}, "", fmt.Errorf("read payload %s: %w", runPayload, err)
		}
		if !json.Valid(data) {
			return nil, signal.Options{}, "", fmt.Errorf("payload %s is not valid JSON", runPayload)
		}
		return data, signal.Options{GitHubEvent: os.Getenv("GITHUB_EVENT")}, "", nil

	case runDemo != "":
		demo, ok := demoScenarios[runDemo]
		if !ok {
			return nil, signal.Options{}, "", fmt.Errorf("unknown demo %q (available: %v)", runDemo, demoNames())
		}
		ref, err := findFixture(fixturesDir, demo.Source+"/"+demo.Fixture)
		if err != nil {
			return nil, signal.Options{}, "", err
		}
		payload, err := loadFixturePayload(ref)
		if err != nil {
			return nil, signal.Options{}, "", err
		}
		return payload, fixtureOptions(ref), runDemo, nil

	case runFixture != "":
		ref, err := findFixture(fixturesDir, runFixture)
		if err != nil {
			return nil, signal.Options{}, "", err
		}
		payload, err := loadFixturePayload(ref)
		if err != nil {
			return nil, signal.Options{}, "", err
		}
		return payload, fixtureOptions(ref), ref.Name, nil
	}
	return nil, signal.Options{}, "", fmt.Errorf("one of --fixture, --demo, or --payload is required")
}

// fixtureOptions derives normalize options from the fixture's source
// directory. GitHub fixtures carry the event name in a top-level
// "__event" key since there is no header to read it from.
func fixtureOptions(ref fixtureRef) signal.Options {
	if ref.Source != "github" {
		return signal.Options{}
	}
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		return signal.Options{}
	}
	var probe struct {
		Event string `json:"__event"`
	}
	_ = json.Unmarshal(data, &probe)
	if probe.Event == "" {
		probe.Event = "workflow_run"
	}
	return signal.Options{GitHubEvent: probe.Event}
}
