package signal

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/linnemanlabs/incidentd/internal/incident"
)

// githubParsers keys sub-parsers by X-GitHub-Event name. Events outside this
// table are recognized-but-ignored: well-formed but not incidents.
var githubParsers = map[string]func(json.RawMessage) *incident.Incident{
	"deployment_status": ParseGitHubDeploymentStatus,
	"check_run":         ParseGitHubCheckRun,
	"workflow_run":      ParseGitHubWorkflowRun,
}

// ParseGitHub routes a GitHub webhook payload by event name. Unknown event
// names decline; they are never errors.
func ParseGitHub(raw json.RawMessage, event string) *incident.Incident {
	parse, ok := githubParsers[event]
	if !ok {
		return nil
	}
	return parse(raw)
}

// ParseGitHubDeploymentStatus triggers when the deployment status state is
// error or failure. Success and in-progress deployments are not incidents.
func ParseGitHubDeploymentStatus(raw json.RawMessage) *incident.Incident {
	var ev github.DeploymentStatusEvent
	if err := json.Unmarshal(raw, &ev); err != nil || ev.DeploymentStatus == nil {
		return nil
	}

	ds := ev.GetDeploymentStatus()
	state := strings.ToLower(ds.GetState())
	if state != "error" && state != "failure" {
		return nil
	}

	return &incident.Incident{
		ID:       incident.NewID(),
		Trigger:  incident.TriggerGitHub,
		StartsAt: timestampOrNow(ds.GetCreatedAt().Time),
		Labels: map[string]string{
			"repo":  repoFullName(ev.GetRepo()),
			"event": "deployment_status",
			"state": state,
		},
		Annotations: map[string]string{
			"target_url":  ds.GetTargetURL(),
			"description": ds.GetDescription(),
		},
		Raw: raw,
	}
}

// ParseGitHubCheckRun triggers when the check run concluded failure or
// cancelled.
func ParseGitHubCheckRun(raw json.RawMessage) *incident.Incident {
	var ev github.CheckRunEvent
	if err := json.Unmarshal(raw, &ev); err != nil || ev.CheckRun == nil {
		return nil
	}

	cr := ev.GetCheckRun()
	conclusion := strings.ToLower(cr.GetConclusion())
	if conclusion != "failure" && conclusion != "cancelled" {
		return nil
	}

	checkName := cr.GetName()
	if checkName == "" {
		checkName = "unknown"
	}
	summary := cr.GetOutput().GetSummary()
	if summary == "" {
		summary = cr.GetOutput().GetTitle()
	}

	return &incident.Incident{
		ID:       incident.NewID(),
		Trigger:  incident.TriggerGitHub,
		StartsAt: timestampOrNow(cr.GetCompletedAt().Time),
		Labels: map[string]string{
			"repo":       repoFullName(ev.GetRepo()),
			"event":      "check_run",
			"check_name": checkName,
		},
		Annotations: map[string]string{
			"html_url": cr.GetHTMLURL(),
			"summary":  summary,
		},
		Raw: raw,
	}
}

// ParseGitHubWorkflowRun triggers when the workflow run concluded failure or
// cancelled.
func ParseGitHubWorkflowRun(raw json.RawMessage) *incident.Incident {
	var ev github.WorkflowRunEvent
	if err := json.Unmarshal(raw, &ev); err != nil || ev.WorkflowRun == nil {
		return nil
	}

	wr := ev.GetWorkflowRun()
	conclusion := strings.ToLower(wr.GetConclusion())
	if conclusion != "failure" && conclusion != "cancelled" {
		return nil
	}

	workflow := wr.GetName()
	if workflow == "" {
		workflow = "unknown"
	}

	return &incident.Incident{
		ID:       incident.NewID(),
		Trigger:  incident.TriggerGitHub,
		StartsAt: timestampOrNow(wr.GetCreatedAt().Time),
		Labels: map[string]string{
			"repo":     repoFullName(ev.GetRepo()),
			"event":    "workflow_run",
			"workflow": workflow,
		},
		Annotations: map[string]string{
			"html_url": wr.GetHTMLURL(),
		},
		Raw: raw,
	}
}

func repoFullName(repo *github.Repository) string {
	if name := repo.GetFullName(); name != "" {
		return name
	}
	return "unknown/unknown"
}

func timestampOrNow(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now().UTC()
	}
	return ts
}
