// Package incident defines the canonical in-memory representation of one
// triggering event. An Incident is only ever constructed by a successful
// signal parse and is immutable afterwards; every downstream component
// (evidence gathering, agent orchestration, reporting) consumes it as-is.
package incident

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Trigger identifies which signal source produced an incident.
type Trigger string

const (
	// TriggerPrometheus is an Alertmanager v4 webhook with firing alerts.
	TriggerPrometheus Trigger = "prometheus"

	// TriggerPostHog is a product-analytics funnel regression webhook.
	TriggerPostHog Trigger = "posthog"

	// TriggerDeploy is a generic deploy-failure webhook (Vercel, manual CI POST).
	TriggerDeploy Trigger = "deploy"

	// TriggerGitHub is a GitHub CI webhook (deployment_status, check_run, workflow_run).
	TriggerGitHub Trigger = "github"
)

// Incident is the canonical record of one triggering event.
//
// Labels carry source-specific dimensional tags (service, repo, branch,
// event subtype). Keys are not validated against a fixed schema; consumers
// must treat an absent key as unknown rather than zero-valued. Raw retains
// the original payload for audit only and feeds no computation.
type Incident struct {
	ID          string            `json:"id"`
	Trigger     Trigger           `json:"trigger"`
	StartsAt    time.Time         `json:"startsAt"`
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
	Raw         json.RawMessage   `json:"raw"`
}

// NewID generates a globally unique incident ID. IDs are ULIDs with an
// "inc-" prefix so working directories and report files sort by creation
// time and never collide across concurrent runs.
func NewID() string {
	return "inc-" + ulid.Make().String()
}
