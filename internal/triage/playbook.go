package triage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/linnemanlabs/incidentd/internal/evidence"
	"github.com/linnemanlabs/incidentd/internal/incident"
)

const (
	// maxPromptCommits caps how many commit identifiers the prompt previews.
	maxPromptCommits = 5

	// maxPromptDiffChars caps the diff summary preview length.
	maxPromptDiffChars = 500
)

// PlaybookInput carries everything the playbook prompt references.
type PlaybookInput struct {
	Incident       *incident.Incident
	Evidence       *evidence.Package
	AttachmentURLs []string

	// RepoURL, when set, tells the agent where to open PRs.
	RepoURL string
}

// BuildPlaybookPrompt renders the triage instructions for the agent.
// The prompt is deterministic given its inputs: identical evidence
// always produces textually identical prompts.
func BuildPlaybookPrompt(in PlaybookInput) string {
	inc := in.Incident
	ev := in.Evidence

	commits := strings.Join(ev.Commits[:min(len(ev.Commits), maxPromptCommits)], ", ")
	if len(ev.Commits) > maxPromptCommits {
		commits += " ..."
	}

	diff := ev.DiffSummary
	if len(diff) > maxPromptDiffChars {
		// Back up to a rune boundary so a multibyte filename in the
		// diff-stat cannot leave invalid UTF-8 before the marker.
		cut := maxPromptDiffChars
		for cut > 0 && !utf8.RuneStart(diff[cut]) {
			cut--
		}
		diff = diff[:cut] + "..."
	}

	// Map keys marshal in sorted order, keeping the prompt stable.
	labels, _ := json.Marshal(inc.Labels)
	annotations, _ := json.Marshal(inc.Annotations)

	lines := []string{
		"You are Devin. Task: perform incident triage using the attached evidence.",
		"",
		"EVIDENCE (attachments):",
		attachmentBlock(in.AttachmentURLs),
		"",
		"INCIDENT CONTEXT:",
		fmt.Sprintf("- Trigger: %s", inc.Trigger),
		fmt.Sprintf("- Started: %s", inc.StartsAt.Format(time.RFC3339)),
		fmt.Sprintf("- Labels: %s", labels),
		fmt.Sprintf("- Annotations: %s", annotations),
		"",
		"EVIDENCE SUMMARY (from attachment):",
		fmt.Sprintf("- Recent commits (%d): %s", len(ev.Commits), commits),
		fmt.Sprintf("- Diff summary: %s", diff),
		fmt.Sprintf("- Log entries: %d", len(ev.Logs.Entries)),
		"",
		"PLAYBOOK (deterministic):",
		"1. Identify impacted services from the incident labels and log entries.",
		"2. Correlate recent commits (in the attachment) with the time window of the incident.",
		"3. Search the log entries in the attachment for errors, timeouts, or exceptions.",
		"4. Propose a root cause hypothesis and assign a confidence score (0-1).",
		"5. Suggest an action: patch (if you can propose a fix), rollback (if recent deploy likely caused it), investigate (if unclear), or none.",
		"6. List missing telemetry (counters, spans, logs) that would have made triage easier.",
		"7. If createPatchPr is true and you have a clear fix: open a single pull request with the patch. Include root cause and hypothesis in the PR description.",
		"8. If createTelemetryPr is true: list telemetry improvements in structured output; you may open a second PR for observability improvements.",
		"",
		"Structured Output:",
		"Maintain the provided JSON schema. Update status as you progress (ANALYZING → HYPOTHESIS → PATCH_PROPOSED or BLOCKED → DONE). If you open a PR, set pr.url.",
		"",
		"Goal: Produce a triage report (structured output) and optionally open PR(s) for patch and/or telemetry.",
	}

	if in.RepoURL != "" {
		lines = append(lines, "", fmt.Sprintf("Repository (for opening PRs): %s", in.RepoURL))
	}

	return strings.Join(lines, "\n")
}

func attachmentBlock(urls []string) string {
	parts := make([]string, len(urls))
	for i, url := range urls {
		parts[i] = fmt.Sprintf("- ATTACHMENT %d: %s", i+1, url)
	}
	return strings.Join(parts, "\n")
}
