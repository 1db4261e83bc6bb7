package signal

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseGitHubDeploymentStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		wantNil bool
	}{
		{
			name:    "failure triggers",
			payload: `{"deployment_status":{"state":"failure","target_url":"https://ci/run/1","created_at":"2026-08-01T12:00:00Z"},"repository":{"full_name":"acme/shop"}}`,
		},
		{
			name:    "error triggers",
			payload: `{"deployment_status":{"state":"error"},"repository":{"full_name":"acme/shop"}}`,
		},
		{
			name:    "success is not an incident",
			payload: `{"deployment_status":{"state":"success"},"repository":{"full_name":"acme/shop"}}`,
			wantNil: true,
		},
		{
			name:    "in_progress is not an incident",
			payload: `{"deployment_status":{"state":"in_progress"}}`,
			wantNil: true,
		},
		{
			name:    "missing deployment_status declines",
			payload: `{"deployment":{"ref":"main"}}`,
			wantNil: true,
		},
		{
			name:    "malformed payload declines",
			payload: `{"deployment_status":"broken"}`,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			inc := ParseGitHubDeploymentStatus(json.RawMessage(tt.payload))
			if tt.wantNil {
				if inc != nil {
					t.Fatalf("got %+v, want nil", inc)
				}
				return
			}
			if inc == nil {
				t.Fatal("got nil, want incident")
			}
			if inc.Labels["event"] != "deployment_status" {
				t.Errorf("labels[event] = %q, want deployment_status", inc.Labels["event"])
			}
		})
	}
}

func TestParseGitHubDeploymentStatus_Fields(t *testing.T) {
	t.Parallel()

	payload := `{
		"deployment_status": {
			"state": "FAILURE",
			"target_url": "https://ci/run/9",
			"description": "build broke",
			"created_at": "2026-08-01T12:00:00Z"
		},
		"repository": {"full_name": "acme/shop"}
	}`

	inc := ParseGitHubDeploymentStatus(json.RawMessage(payload))
	if inc == nil {
		t.Fatal("got nil, want incident")
	}
	if inc.Labels["state"] != "failure" {
		t.Errorf("state not lowercased: %q", inc.Labels["state"])
	}
	if inc.Labels["repo"] != "acme/shop" {
		t.Errorf("labels[repo] = %q", inc.Labels["repo"])
	}
	if inc.Annotations["target_url"] != "https://ci/run/9" {
		t.Errorf("annotations[target_url] = %q", inc.Annotations["target_url"])
	}
	want := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if !inc.StartsAt.Equal(want) {
		t.Errorf("startsAt = %v, want %v", inc.StartsAt, want)
	}
}

func TestParseGitHubCheckRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		payload     string
		wantNil     bool
		wantSummary string
	}{
		{
			name:        "failure with summary",
			payload:     `{"check_run":{"conclusion":"failure","name":"unit-tests","output":{"title":"3 failed","summary":"assertions failed"}},"repository":{"full_name":"acme/shop"}}`,
			wantSummary: "assertions failed",
		},
		{
			name:        "summary falls back to title",
			payload:     `{"check_run":{"conclusion":"cancelled","name":"lint","output":{"title":"cancelled by user"}}}`,
			wantSummary: "cancelled by user",
		},
		{
			name:    "success declines",
			payload: `{"check_run":{"conclusion":"success","name":"unit-tests"}}`,
			wantNil: true,
		},
		{
			name:    "missing check_run declines",
			payload: `{}`,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			inc := ParseGitHubCheckRun(json.RawMessage(tt.payload))
			if tt.wantNil {
				if inc != nil {
					t.Fatalf("got %+v, want nil", inc)
				}
				return
			}
			if inc == nil {
				t.Fatal("got nil, want incident")
			}
			if inc.Labels["event"] != "check_run" {
				t.Errorf("labels[event] = %q", inc.Labels["event"])
			}
			if inc.Annotations["summary"] != tt.wantSummary {
				t.Errorf("annotations[summary] = %q, want %q", inc.Annotations["summary"], tt.wantSummary)
			}
		})
	}
}

func TestParseGitHubWorkflowRun(t *testing.T) {
	t.Parallel()

	inc := ParseGitHubWorkflowRun(json.RawMessage(
		`{"workflow_run":{"conclusion":"failure","name":"ci","html_url":"https://github.com/acme/shop/actions/runs/7"},"repository":{"full_name":"acme/shop"}}`,
	))
	if inc == nil {
		t.Fatal("got nil, want incident")
	}
	if inc.Labels["workflow"] != "ci" {
		t.Errorf("labels[workflow] = %q", inc.Labels["workflow"])
	}
	if inc.Annotations["html_url"] == "" {
		t.Error("annotations[html_url] is empty")
	}

	if inc := ParseGitHubWorkflowRun(json.RawMessage(`{"workflow_run":{"conclusion":"success"}}`)); inc != nil {
		t.Fatalf("success conclusion yielded %+v, want nil", inc)
	}
}

func TestParseGitHub_RepoDefault(t *testing.T) {
	t.Parallel()

	inc := ParseGitHub(json.RawMessage(`{"deployment_status":{"state":"failure"}}`), "deployment_status")
	if inc == nil {
		t.Fatal("got nil, want incident")
	}
	if inc.Labels["repo"] != "unknown/unknown" {
		t.Errorf("labels[repo] = %q, want unknown/unknown", inc.Labels["repo"])
	}
}
