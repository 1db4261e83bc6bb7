package triage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/incidentd/internal/cfg"
	"github.com/linnemanlabs/incidentd/internal/devin"
	"github.com/linnemanlabs/incidentd/internal/evidence"
	"github.com/linnemanlabs/incidentd/internal/incident"
	"github.com/linnemanlabs/incidentd/internal/report"
)

// defaultLogsScenario is used when neither the caller nor the incident
// labels name a log fixture.
const defaultLogsScenario = "high-error-rate"

// Result is the outcome of a completed triage run.
type Result struct {
	IncidentID string
	Trigger    incident.Trigger

	SessionID  string
	SessionURL string

	// Status is the final normalized session status.
	Status string

	ReportPath string
	PRURL      string
	Report     report.Parsed

	Duration    float64
	CompletedAt time.Time
}

// RunnerOptions tunes a Runner beyond what the pipeline config carries.
type RunnerOptions struct {
	// RepoDir is the repository to gather commit evidence from.
	// Defaults to the current working directory.
	RepoDir string

	// FixturesDir is the root for log fixtures.
	FixturesDir string

	// WorkDir holds per-incident evidence directories. Empty means the
	// OS temp dir.
	WorkDir string

	// Poll overrides the session polling cadence. Zero values use the
	// client defaults.
	Poll devin.PollOptions
}

// Runner executes the full triage pipeline for one incident: evidence
// gathering, bundling, agent session orchestration, and report writing.
type Runner struct {
	client   *devin.Client
	pipeline *cfg.Pipeline
	opts     RunnerOptions
	metrics  *Metrics
	logger   log.Logger
}

// NewRunner creates a triage runner. metrics may be nil.
func NewRunner(client *devin.Client, pipeline *cfg.Pipeline, opts RunnerOptions, metrics *Metrics, logger log.Logger) *Runner {
	if logger == nil {
		logger = log.Nop()
	}
	if opts.RepoDir == "" {
		opts.RepoDir = "."
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	return &Runner{
		client:   client,
		pipeline: pipeline,
		opts:     opts,
		metrics:  metrics,
		logger:   logger,
	}
}

// RunOptions carries per-run overrides.
type RunOptions struct {
	// LogsScenario names the log fixture to attach. Empty falls back to
	// the incident's service label, then to the default scenario.
	LogsScenario string

	// BaseSHA is an explicit base commit for evidence gathering. Empty
	// falls back to the GITHUB_BASE_SHA environment variable (set by CI),
	// then to merge-base resolution inside the gatherer.
	BaseSHA string
}

// Run executes the triage pipeline and blocks until the agent session
// reaches a terminal state, the poll budget expires, or ctx is done.
func (r *Runner) Run(ctx context.Context, inc *incident.Incident, opts RunOptions) (*Result, error) {
	start := time.Now()
	L := r.logger.With("incident_id", inc.ID, "trigger", string(inc.Trigger))

	baseSHA := opts.BaseSHA
	if baseSHA == "" {
		baseSHA = os.Getenv("GITHUB_BASE_SHA")
	}
	commits, err := evidence.GatherCommits(evidence.GatherOptions{
		RepoDir:     r.opts.RepoDir,
		BaseSHA:     baseSHA,
		CommitDepth: r.pipeline.Normalizer.CommitDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("gather commits: %w", err)
	}

	scenario := opts.LogsScenario
	if scenario == "" {
		scenario = inc.Labels["service"]
	}
	if scenario == "" {
		scenario = defaultLogsScenario
	}
	logs := evidence.LoadLogs(scenario, r.opts.FixturesDir)

	pkg, err := evidence.WritePackage(r.opts.WorkDir, inc, commits, logs)
	if err != nil {
		return nil, fmt.Errorf("write evidence package: %w", err)
	}

	bundle, err := evidence.Bundle(pkg.Dir, inc)
	if err != nil {
		return nil, fmt.Errorf("bundle evidence: %w", err)
	}
	if fi, err := os.Stat(bundle.ArchivePath); err == nil {
		r.metrics.observeEvidence(len(commits.Commits), len(logs.Entries), fi.Size())
	}

	L.Info(ctx, "evidence bundled",
		"commits", len(commits.Commits),
		"log_entries", len(logs.Entries),
		"archive", bundle.ArchivePath,
	)

	attachmentURL, err := r.client.UploadAttachment(ctx, bundle.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("upload evidence bundle: %w", err)
	}

	prompt := BuildPlaybookPrompt(PlaybookInput{
		Incident:       inc,
		Evidence:       pkg.Evidence,
		AttachmentURLs: []string{attachmentURL},
		RepoURL:        r.repoURL(),
	})

	created, err := r.client.CreateSession(ctx, &devin.CreateSessionRequest{
		Prompt:           prompt,
		Unlisted:         r.pipeline.Devin.Unlisted,
		MaxACULimit:      r.pipeline.Devin.MaxACULimit,
		Tags:             r.pipeline.Devin.SessionTags(),
		Attachments:      []string{attachmentURL},
		StructuredOutput: &devin.StructuredOutput{Schema: ReportSchema},
		Metadata: map[string]string{
			"incidentId": inc.ID,
			"trigger":    string(inc.Trigger),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create agent session: %w", err)
	}

	L = L.With("session_id", created.SessionID)
	L.Info(ctx, "agent session created", "session_url", created.URL)

	final, err := r.client.PollUntilTerminal(ctx, created.SessionID, r.opts.Poll)
	if err != nil {
		outcome := "error"
		var te *devin.TimeoutError
		if errors.As(err, &te) {
			outcome = "timeout"
		}
		r.metrics.observeRun(outcome, string(inc.Trigger), time.Since(start).Seconds(), false)
		return nil, fmt.Errorf("poll agent session: %w", err)
	}
	if final.URL == "" {
		final.URL = created.URL
	}

	reportPath, parsed, err := report.Write(final, inc.ID, r.pipeline.Outputs.ReportPath)
	if err != nil {
		return nil, err
	}

	prURL := ""
	if parsed.PR != nil {
		prURL = parsed.PR.URL
	}
	if prURL == "" {
		prURL = final.PullRequest()
	}

	res := &Result{
		IncidentID:  inc.ID,
		Trigger:     inc.Trigger,
		SessionID:   created.SessionID,
		SessionURL:  final.URL,
		Status:      final.NormalizedStatus(),
		ReportPath:  reportPath,
		PRURL:       prURL,
		Report:      parsed,
		Duration:    time.Since(start).Seconds(),
		CompletedAt: time.Now(),
	}
	r.metrics.observeRun(res.Status, string(inc.Trigger), res.Duration, prURL != "")

	L.Info(ctx, "triage run complete",
		"status", res.Status,
		"report", reportPath,
		"pr_url", prURL,
		"duration", res.Duration,
	)
	return res, nil
}

// repoURL derives the PR target from the first configured service.
func (r *Runner) repoURL() string {
	if len(r.pipeline.Services) == 0 || r.pipeline.Services[0].Repo == "" {
		return ""
	}
	return "https://github.com/" + r.pipeline.Services[0].Repo
}
