// Package report renders agent triage findings as markdown and writes
// them under the configured report directory.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/linnemanlabs/incidentd/internal/devin"
)

// absent marks a summary field the agent did not fill in.
const absent = "—"

// Parsed is the triage report extracted from a session's structured
// output. All fields are optional; the renderer substitutes a marker
// for anything missing.
type Parsed struct {
	Status                string                 `json:"status,omitempty"`
	ImpactedServices      []string               `json:"impactedServices,omitempty"`
	RootCauseHypothesis   string                 `json:"rootCauseHypothesis,omitempty"`
	Confidence            *float64               `json:"confidence,omitempty"`
	SuggestedAction       string                 `json:"suggestedAction,omitempty"`
	MissingTelemetry      []string               `json:"missingTelemetry,omitempty"`
	TelemetryImprovements []TelemetryImprovement `json:"telemetryImprovements,omitempty"`
	PR                    *PullRequest           `json:"pr,omitempty"`
}

// TelemetryImprovement is a single suggested observability change.
type TelemetryImprovement struct {
	Target    string `json:"target,omitempty"`
	Change    string `json:"change,omitempty"`
	Rationale string `json:"rationale,omitempty"`
}

// PullRequest points at a PR the agent opened.
type PullRequest struct {
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

// ParseSession extracts the triage report from the session's structured
// output. Malformed or missing output yields an empty Parsed, never an
// error: a report is written for every completed session.
func ParseSession(sess *devin.Session) Parsed {
	var p Parsed
	raw := sess.Output()
	if len(raw) == 0 {
		return p
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return Parsed{}
	}
	return p
}

// Render produces the markdown report body.
func Render(p Parsed, incidentID, sessionURL string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Incident Triage Report: %s\n\n", incidentID)
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- **Status:** %s\n", orAbsent(p.Status))
	fmt.Fprintf(&b, "- **Impacted services:** %s\n", orAbsent(strings.Join(p.ImpactedServices, ", ")))
	fmt.Fprintf(&b, "- **Root cause hypothesis:** %s\n", orAbsent(p.RootCauseHypothesis))
	fmt.Fprintf(&b, "- **Confidence:** %s\n", confidenceString(p.Confidence))
	fmt.Fprintf(&b, "- **Suggested action:** %s\n\n", orAbsent(p.SuggestedAction))

	if sessionURL != "" {
		fmt.Fprintf(&b, "**Devin session:** %s\n\n", sessionURL)
	}
	if p.PR != nil && p.PR.URL != "" {
		fmt.Fprintf(&b, "**Pull request:** %s\n\n", p.PR.URL)
	}

	if len(p.MissingTelemetry) > 0 {
		b.WriteString("## Missing telemetry\n\n")
		for _, t := range p.MissingTelemetry {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		b.WriteString("\n")
	}

	if len(p.TelemetryImprovements) > 0 {
		b.WriteString("## Telemetry improvements\n\n")
		for _, t := range p.TelemetryImprovements {
			fmt.Fprintf(&b, "- **%s**: %s — %s\n", t.Target, t.Change, t.Rationale)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// Write parses the session output, renders it, and writes
// <reportDir>/<incidentID>.md. Rendering is deterministic, so repeated
// writes for the same session produce identical files.
func Write(sess *devin.Session, incidentID, reportDir string) (string, Parsed, error) {
	parsed := ParseSession(sess)
	markdown := Render(parsed, incidentID, sess.URL)

	if err := os.MkdirAll(reportDir, 0o750); err != nil {
		return "", parsed, fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(reportDir, incidentID+".md")
	if err := os.WriteFile(path, []byte(markdown), 0o640); err != nil {
		return "", parsed, fmt.Errorf("write report: %w", err)
	}
	return path, parsed, nil
}

func orAbsent(s string) string {
	if s == "" {
		return absent
	}
	return s
}

func confidenceString(c *float64) string {
	if c == nil {
		return absent
	}
	return strconv.FormatFloat(*c, 'f', -1, 64)
}
