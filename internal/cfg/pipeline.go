package cfg

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxPipelineFileSize = 1 << 20 // 1MB

// envPrefix namespaces pipeline env overrides, e.g.
// INCIDENTD_DEVIN_MAX_ACU_LIMIT -> devin.max_acu_limit.
const envPrefix = "INCIDENTD_"

// envSections are the top-level pipeline config sections an env override
// may address. The first matching section prefix becomes the koanf path.
var envSections = []string{"devin", "signals", "normalizer", "outputs"}

// Pipeline is the triage pipeline configuration, loaded from
// incident-triage.yaml with environment overrides.
type Pipeline struct {
	Version    int              `koanf:"version"`
	Devin      DevinConfig      `koanf:"devin"`
	Signals    SignalsConfig    `koanf:"signals"`
	Services   []ServiceConfig  `koanf:"services"`
	Normalizer NormalizerConfig `koanf:"normalizer"`
	Outputs    OutputsConfig    `koanf:"outputs"`
}

// DevinConfig controls session creation.
type DevinConfig struct {
	Unlisted    bool     `koanf:"unlisted"`
	MaxACULimit int      `koanf:"max_acu_limit"`
	Tags        []string `koanf:"tags"`
}

// SignalsConfig enables and tunes the signal sources.
type SignalsConfig struct {
	Prometheus PrometheusSignalConfig `koanf:"prometheus"`
	PostHog    PostHogSignalConfig    `koanf:"posthog"`
	Deploy     DeploySignalConfig     `koanf:"deploy"`
	GitHub     GitHubSignalConfig     `koanf:"github"`
}

type PrometheusSignalConfig struct {
	Enabled      bool              `koanf:"enabled"`
	LabelFilters map[string]string `koanf:"label_filters"`
}

type PostHogSignalConfig struct {
	Enabled             bool    `koanf:"enabled"`
	FunnelDropThreshold float64 `koanf:"funnel_drop_threshold"`
}

type DeploySignalConfig struct {
	Enabled   bool     `koanf:"enabled"`
	Providers []string `koanf:"providers"`
}

type GitHubSignalConfig struct {
	Enabled bool     `koanf:"enabled"`
	Events  []string `koanf:"events"`
}

// ServiceConfig maps a service name to its repository for PR creation.
type ServiceConfig struct {
	Name  string   `koanf:"name"`
	Repo  string   `koanf:"repo"`
	Paths []string `koanf:"paths"`
}

// NormalizerConfig tunes evidence gathering.
type NormalizerConfig struct {
	TimeWindowMinutes int    `koanf:"time_window_minutes"`
	CommitDepth       int    `koanf:"commit_depth"`
	LogsAdapter       string `koanf:"logs_adapter"`
}

// OutputsConfig controls what the agent is allowed to produce and where
// reports land.
type OutputsConfig struct {
	CreatePatchPR      bool   `koanf:"create_patch_pr"`
	CreateTelemetryPR  bool   `koanf:"create_telemetry_pr"`
	RequireHumanReview bool   `koanf:"require_human_review"`
	ReportPath         string `koanf:"report_path"`
}

// DefaultPipeline returns the pipeline defaults used when a field (or the
// whole file) is absent.
func DefaultPipeline() Pipeline {
	return Pipeline{
		Version: 1,
		Devin: DevinConfig{
			Unlisted:    true,
			MaxACULimit: 3,
			Tags:        []string{"incident-triage"},
		},
		Signals: SignalsConfig{
			Prometheus: PrometheusSignalConfig{Enabled: true},
			Deploy:     DeploySignalConfig{Enabled: true},
			GitHub: GitHubSignalConfig{
				Enabled: true,
				Events:  []string{"deployment_status", "check_run", "workflow_run"},
			},
		},
		Normalizer: NormalizerConfig{
			TimeWindowMinutes: 30,
			CommitDepth:       10,
			LogsAdapter:       "file",
		},
		Outputs: OutputsConfig{
			RequireHumanReview: true,
			ReportPath:         ".incident-triage/reports",
		},
	}
}

// LoadPipeline loads the pipeline config from path, then applies env
// overrides. A missing file is an error; use LoadPipelineOrDefault for
// fixture/demo runs.
func LoadPipeline(path string) (*Pipeline, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path is operator-supplied config
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}
	if len(content) > maxPipelineFileSize {
		return nil, fmt.Errorf("pipeline config %s exceeds %d bytes", path, maxPipelineFileSize)
	}
	return parsePipeline(content)
}

// LoadPipelineOrDefault loads the pipeline config if the file exists;
// otherwise it returns the defaults (still applying env overrides).
func LoadPipelineOrDefault(path string) (*Pipeline, error) {
	if _, err := os.Stat(path); err != nil {
		return parsePipeline(nil)
	}
	return LoadPipeline(path)
}

func parsePipeline(content []byte) (*Pipeline, error) {
	k := koanf.New(".")

	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse pipeline config: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	p := DefaultPipeline()
	if err := k.Unmarshal("", &p); err != nil {
		return nil, fmt.Errorf("decode pipeline config: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// envTransform maps INCIDENTD_DEVIN_MAX_ACU_LIMIT to devin.max_acu_limit.
// Variables outside the known sections are ignored.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for _, section := range envSections {
		if strings.HasPrefix(s, section+"_") {
			return section + "." + strings.TrimPrefix(s, section+"_")
		}
	}
	return ""
}

// knownGitHubEvents is the event allowlist a pipeline config may select from.
var knownGitHubEvents = map[string]bool{
	"deployment_status": true,
	"check_run":         true,
	"workflow_run":      true,
}

// Validate checks the pipeline config for correctness.
func (p *Pipeline) Validate() error {
	var errs []error

	if p.Version != 1 {
		errs = append(errs, fmt.Errorf("unsupported config version %d (must be 1)", p.Version))
	}
	if p.Devin.MaxACULimit <= 0 {
		errs = append(errs, fmt.Errorf("devin.max_acu_limit %d must be positive", p.Devin.MaxACULimit))
	}
	if p.Normalizer.CommitDepth <= 0 {
		errs = append(errs, fmt.Errorf("normalizer.commit_depth %d must be positive", p.Normalizer.CommitDepth))
	}
	if p.Normalizer.TimeWindowMinutes <= 0 {
		errs = append(errs, fmt.Errorf("normalizer.time_window_minutes %d must be positive", p.Normalizer.TimeWindowMinutes))
	}
	if p.Normalizer.LogsAdapter != "file" {
		errs = append(errs, fmt.Errorf("normalizer.logs_adapter %q is not supported (only \"file\")", p.Normalizer.LogsAdapter))
	}
	if p.Outputs.ReportPath == "" {
		errs = append(errs, errors.New("outputs.report_path is required"))
	}
	if t := p.Signals.PostHog.FunnelDropThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("signals.posthog.funnel_drop_threshold %v must be in [0,1]", t))
	}
	for _, ev := range p.Signals.GitHub.Events {
		if !knownGitHubEvents[ev] {
			errs = append(errs, fmt.Errorf("signals.github.events contains unknown event %q", ev))
		}
	}
	for i, svc := range p.Services {
		if svc.Name == "" {
			errs = append(errs, fmt.Errorf("services[%d].name is required", i))
		}
		if svc.Repo == "" {
			errs = append(errs, fmt.Errorf("services[%d].repo is required", i))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SessionTags returns the session tag set: configured tags plus the fixed
// incident-triage marker, deduplicated with order preserved.
func (d DevinConfig) SessionTags() []string {
	seen := map[string]bool{}
	tags := []string{}
	for _, t := range append(append([]string{}, d.Tags...), "incident-triage") {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}
