package triage

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/linnemanlabs/incidentd/internal/evidence"
	"github.com/linnemanlabs/incidentd/internal/incident"
)

func playbookFixture() PlaybookInput {
	return PlaybookInput{
		Incident: &incident.Incident{
			ID:       "inc-01",
			Trigger:  incident.TriggerPrometheus,
			StartsAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			Labels:   map[string]string{"service": "checkout", "alertname": "HighErrorRate"},
			Annotations: map[string]string{
				"summary": "5xx rate above 5%",
			},
		},
		Evidence: &evidence.Package{
			Commits:     []string{"aaa1111", "bbb2222", "ccc3333"},
			DiffSummary: "api/handler.go | 12 ++++----",
			Logs: evidence.LogsResult{Entries: []map[string]any{
				{"level": "error", "msg": "upstream timeout"},
			}},
		},
		AttachmentURLs: []string{"https://files.devin.ai/evidence.tar.gz"},
	}
}

func TestBuildPlaybookPrompt(t *testing.T) {
	t.Parallel()

	prompt := BuildPlaybookPrompt(playbookFixture())

	for _, want := range []string{
		"- ATTACHMENT 1: https://files.devin.ai/evidence.tar.gz",
		"- Trigger: prometheus",
		"- Started: 2024-05-01T10:00:00Z",
		`"alertname":"HighErrorRate"`,
		`"summary":"5xx rate above 5%"`,
		"- Recent commits (3): aaa1111, bbb2222, ccc3333",
		"- Diff summary: api/handler.go | 12 ++++----",
		"- Log entries: 1",
		"PLAYBOOK (deterministic):",
		"5. Suggest an action: patch",
		"Maintain the provided JSON schema.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "Repository (for opening PRs)") {
		t.Error("repo line should be absent without a RepoURL")
	}
}

func TestBuildPlaybookPrompt_Deterministic(t *testing.T) {
	t.Parallel()

	in := playbookFixture()
	if a, b := BuildPlaybookPrompt(in), BuildPlaybookPrompt(in); a != b {
		t.Error("identical inputs must produce identical prompts")
	}
}

func TestBuildPlaybookPrompt_CommitElision(t *testing.T) {
	t.Parallel()

	in := playbookFixture()
	in.Evidence.Commits = []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7"}

	prompt := BuildPlaybookPrompt(in)
	if !strings.Contains(prompt, "- Recent commits (7): c1, c2, c3, c4, c5 ...") {
		t.Errorf("commit preview not elided at five:\n%s", prompt)
	}
	if strings.Contains(prompt, "c6") {
		t.Error("commits beyond the preview cap should not appear")
	}
}

func TestBuildPlaybookPrompt_DiffTruncation(t *testing.T) {
	t.Parallel()

	in := playbookFixture()
	in.Evidence.DiffSummary = strings.Repeat("x", 600)

	prompt := BuildPlaybookPrompt(in)
	want := "- Diff summary: " + strings.Repeat("x", 500) + "..."
	if !strings.Contains(prompt, want) {
		t.Error("diff summary not truncated with elision marker")
	}
	if strings.Contains(prompt, strings.Repeat("x", 501)) {
		t.Error("diff preview exceeds the character budget")
	}
}

func TestBuildPlaybookPrompt_DiffTruncationRuneBoundary(t *testing.T) {
	t.Parallel()

	// A two-byte rune straddling the cut point must not be split.
	in := playbookFixture()
	in.Evidence.DiffSummary = strings.Repeat("x", 499) + "é" + strings.Repeat("y", 200)

	prompt := BuildPlaybookPrompt(in)
	if !utf8.ValidString(prompt) {
		t.Fatal("prompt contains invalid UTF-8 after diff truncation")
	}
	want := "- Diff summary: " + strings.Repeat("x", 499) + "..."
	if !strings.Contains(prompt, want) {
		t.Error("diff summary not cut back to the rune boundary")
	}
	if strings.Contains(prompt, "é") {
		t.Error("straddling rune should be elided entirely")
	}
}

func TestBuildPlaybookPrompt_RepoURL(t *testing.T) {
	t.Parallel()

	in := playbookFixture()
	in.RepoURL = "https://github.com/acme/checkout"

	prompt := BuildPlaybookPrompt(in)
	if !strings.HasSuffix(prompt, "Repository (for opening PRs): https://github.com/acme/checkout") {
		t.Errorf("repo line should close the prompt:\n%s", prompt)
	}
}

func TestBuildPlaybookPrompt_MultipleAttachments(t *testing.T) {
	t.Parallel()

	in := playbookFixture()
	in.AttachmentURLs = []string{"https://files/a.tar.gz", "https://files/b.tar.gz"}

	prompt := BuildPlaybookPrompt(in)
	if !strings.Contains(prompt, "- ATTACHMENT 1: https://files/a.tar.gz\n- ATTACHMENT 2: https://files/b.tar.gz") {
		t.Errorf("attachments not enumerated in order:\n%s", prompt)
	}
}
