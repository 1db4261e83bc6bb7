package signal

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/linnemanlabs/incidentd/internal/incident"
)

type posthogWebhook struct {
	Source   string          `json:"source"`
	FunnelID json.RawMessage `json:"funnel_id"`
	DropPct  json.RawMessage `json:"drop_pct"`
}

// ParsePostHog parses a PostHog-style funnel regression webhook (typically
// relayed through Zapier/Make). Requires the explicit "posthog" source
// discriminator; there is no source timestamp, so StartsAt is set to now.
func ParsePostHog(raw json.RawMessage) *incident.Incident {
	var body posthogWebhook
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}
	if body.Source != "posthog" {
		return nil
	}

	funnelID := rawScalarString(body.FunnelID)
	if funnelID == "" {
		funnelID = "unknown"
	}

	dropPct := "0"
	var pct float64
	if body.DropPct != nil && json.Unmarshal(body.DropPct, &pct) == nil {
		dropPct = strconv.FormatFloat(pct, 'f', -1, 64)
	}

	return &incident.Incident{
		ID:          incident.NewID(),
		Trigger:     incident.TriggerPostHog,
		StartsAt:    time.Now().UTC(),
		Labels:      map[string]string{"funnel_id": funnelID},
		Annotations: map[string]string{"drop_pct": dropPct},
		Raw:         raw,
	}
}

// rawScalarString renders a JSON scalar (string, number, bool) as a string.
// Non-scalar or absent values render as "".
func rawScalarString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return ""
}
