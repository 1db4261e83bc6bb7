package signal

import (
	"encoding/json"
	"time"

	"github.com/linnemanlabs/incidentd/internal/incident"
)

// promWebhook is the Alertmanager v4 webhook shape. All fields are optional
// on the wire; anything missing degrades to declination, not an error.
type promWebhook struct {
	Version           string            `json:"version"`
	Status            string            `json:"status"`
	GroupKey          string            `json:"groupKey"`
	Alerts            []promAlert       `json:"alerts"`
	CommonLabels      map[string]string `json:"commonLabels"`
	CommonAnnotations map[string]string `json:"commonAnnotations"`
}

type promAlert struct {
	Status       string            `json:"status"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations"`
	StartsAt     string            `json:"startsAt"`
	EndsAt       string            `json:"endsAt"`
	GeneratorURL string            `json:"generatorURL"`
}

// ParsePrometheus parses an Alertmanager v4 webhook. It only triggers when
// the overall status is "firing" and at least one contained alert is itself
// firing with a parseable start time. When labelFilters is non-empty, every
// pair must be matched by some firing alert or the parser declines.
func ParsePrometheus(raw json.RawMessage, labelFilters map[string]string) *incident.Incident {
	var body promWebhook
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}
	if body.Status != "firing" {
		return nil
	}

	var firing []promAlert
	var starts []time.Time
	for _, a := range body.Alerts {
		if a.Status != "firing" || a.StartsAt == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, a.StartsAt)
		if err != nil {
			continue
		}
		firing = append(firing, a)
		starts = append(starts, ts)
	}
	if len(firing) == 0 {
		return nil
	}

	for k, v := range labelFilters {
		matched := false
		for _, a := range firing {
			if a.Labels[k] == v {
				matched = true
				break
			}
		}
		if !matched {
			return nil
		}
	}

	first := firing[0]
	labels := mergeStringMaps(body.CommonLabels, first.Labels)
	annotations := mergeStringMaps(body.CommonAnnotations, first.Annotations)

	return &incident.Incident{
		ID:          incident.NewID(),
		Trigger:     incident.TriggerPrometheus,
		StartsAt:    starts[0],
		Labels:      labels,
		Annotations: annotations,
		Raw:         raw,
	}
}

// mergeStringMaps overlays specific on top of common.
func mergeStringMaps(common, specific map[string]string) map[string]string {
	out := make(map[string]string, len(common)+len(specific))
	for k, v := range common {
		out[k] = v
	}
	for k, v := range specific {
		out[k] = v
	}
	return out
}
