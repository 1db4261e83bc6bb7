// Package signal normalizes heterogeneous webhook payloads into the
// canonical incident model. One parser per source; every parser is total
// over arbitrary untrusted input and declines (returns nil) rather than
// erroring on anything it cannot positively identify.
package signal

import (
	"encoding/json"

	"github.com/linnemanlabs/incidentd/internal/incident"
)

// Options carry out-of-band routing hints for Normalize.
type Options struct {
	// GitHubEvent is the X-GitHub-Event header value, when the payload came
	// from the GitHub webhook endpoint. Forces GitHub dispatch.
	GitHubEvent string

	// PrometheusLabelFilters restricts Alertmanager payloads: every key/value
	// pair must be matched by at least one firing alert's labels.
	PrometheusLabelFilters map[string]string
}

// Normalize routes a raw payload to the matching parser and returns a single
// incident, or nil when no parser claims the payload or the claiming parser
// finds no triggering state.
//
// Dispatch order: an explicit GitHub event hint wins; otherwise the body
// shape is probed (version+alerts => Alertmanager, source discriminator =>
// posthog/deploy). Unrecognized shapes are silently ignored.
func Normalize(raw json.RawMessage, opts Options) *incident.Incident {
	if opts.GitHubEvent != "" {
		return ParseGitHub(raw, opts.GitHubEvent)
	}

	var probe struct {
		Version json.RawMessage `json:"version"`
		Alerts  json.RawMessage `json:"alerts"`
		Source  string          `json:"source"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil
	}

	switch {
	case probe.Version != nil && probe.Alerts != nil:
		return ParsePrometheus(raw, opts.PrometheusLabelFilters)
	case probe.Source == "posthog":
		return ParsePostHog(raw)
	case probe.Source == "deploy":
		return ParseDeploy(raw)
	}
	return nil
}
