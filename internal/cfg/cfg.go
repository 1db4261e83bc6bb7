// Package cfg holds incidentd configuration: flag-registered daemon
// settings and the YAML pipeline config shared with the CLI.
package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds daemon-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	DevinAPIKey           string
	DevinBaseURL          string
	PipelinePath          string
	FixturesDir           string
	WorkDir               string
	SlackWebhookURL       string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.DevinAPIKey, "devin-api-key", "", "API key for the Devin session service")
	fs.StringVar(&c.DevinBaseURL, "devin-base-url", "", "Devin API base URL (empty = production endpoint)")
	fs.StringVar(&c.PipelinePath, "config", "incident-triage.yaml", "path to the triage pipeline config file")
	fs.StringVar(&c.FixturesDir, "fixtures-dir", "fixtures", "root directory for signal and log fixtures")
	fs.StringVar(&c.WorkDir, "work-dir", "", "directory for per-incident evidence working dirs (empty = OS temp dir)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for triage completion notifications")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Devin API key is required for session orchestration
	if c.DevinAPIKey == "" {
		errs = append(errs, errors.New("DEVIN_API_KEY is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
