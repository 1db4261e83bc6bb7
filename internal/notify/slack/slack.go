// Package slack sends triage notifications to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/linnemanlabs/incidentd/internal/triage"
)

const (
	maxHypothesisLen = 3000
	httpTimeout      = 10 * time.Second
)

// Notifier sends triage results to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Send posts a triage result to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, result *triage.Result) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(result)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(r *triage.Result) map[string]any {
	blocks := []map[string]any{
		headerBlock(r),
		{"type": "divider"},
		fieldsBlock(r),
		{"type": "divider"},
		hypothesisBlock(r),
	}
	if links := linksBlock(r); links != nil {
		blocks = append(blocks, map[string]any{"type": "divider"}, links)
	}
	blocks = append(blocks, map[string]any{"type": "divider"}, contextBlock(r))

	return map[string]any{"blocks": blocks}
}

func headerBlock(r *triage.Result) map[string]any {
	text := fmt.Sprintf("%s Triage Complete: %s", actionEmoji(r.Report.SuggestedAction), r.IncidentID)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(r *triage.Result) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Trigger:* %s", r.Trigger),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Session status:* %s", r.Status),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Suggested action:* %s", orDash(r.Report.SuggestedAction)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Confidence:* %s", confidence(r)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Impacted:* %s", orDash(strings.Join(r.Report.ImpactedServices, ", "))),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Duration:* %.1fs", r.Duration),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func hypothesisBlock(r *triage.Result) map[string]any {
	text := truncate(r.Report.RootCauseHypothesis, maxHypothesisLen)
	if text == "" {
		text = "_No hypothesis available._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Root cause hypothesis*\n\n%s", text),
		},
	}
}

func linksBlock(r *triage.Result) map[string]any {
	var lines []string
	if r.PRURL != "" {
		lines = append(lines, fmt.Sprintf("*Pull request:* %s", r.PRURL))
	}
	if r.SessionURL != "" {
		lines = append(lines, fmt.Sprintf("*Session:* %s", r.SessionURL))
	}
	if r.ReportPath != "" {
		lines = append(lines, fmt.Sprintf("*Report:* `%s`", r.ReportPath))
	}
	if len(lines) == 0 {
		return nil
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": strings.Join(lines, "\n"),
		},
	}
}

func contextBlock(r *triage.Result) map[string]any {
	ts := r.CompletedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("incidentd • %s • %s", r.IncidentID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func actionEmoji(action string) string {
	switch action {
	case "rollback":
		return "\U0001f534" // red circle
	case "patch":
		return "\U0001f7e1" // yellow circle
	case "investigate":
		return "\U0001f50d" // magnifying glass
	default:
		return "\U0001f7e2" // green circle
	}
}

func confidence(r *triage.Result) string {
	if r.Report.Confidence == nil {
		return "—"
	}
	return strconv.FormatFloat(*r.Report.Confidence, 'f', -1, 64)
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
