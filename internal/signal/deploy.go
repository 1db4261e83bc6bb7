package signal

import (
	"encoding/json"
	"time"

	"github.com/linnemanlabs/incidentd/internal/incident"
)

type deployWebhook struct {
	Source       string          `json:"source"`
	Provider     json.RawMessage `json:"provider"`
	DeploymentID json.RawMessage `json:"deployment_id"`
	Repo         json.RawMessage `json:"repo"`
	Branch       json.RawMessage `json:"branch"`
	ErrorMessage json.RawMessage `json:"error_message"`
}

// ParseDeploy parses a generic deploy-failure webhook (Vercel, a manual CI
// POST, etc.). Requires the explicit "deploy" source discriminator. Every
// other field is optional and only copied into labels/annotations when
// present; StartsAt is set to now since these payloads carry no timestamp.
func ParseDeploy(raw json.RawMessage) *incident.Incident {
	var body deployWebhook
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}
	if body.Source != "deploy" {
		return nil
	}

	labels := map[string]string{}
	for k, v := range map[string]json.RawMessage{
		"provider":      body.Provider,
		"repo":          body.Repo,
		"branch":        body.Branch,
		"deployment_id": body.DeploymentID,
	} {
		if s := rawScalarString(v); s != "" {
			labels[k] = s
		}
	}

	annotations := map[string]string{}
	if s := rawScalarString(body.ErrorMessage); s != "" {
		annotations["error_message"] = s
	}

	return &incident.Incident{
		ID:          incident.NewID(),
		Trigger:     incident.TriggerDeploy,
		StartsAt:    time.Now().UTC(),
		Labels:      labels,
		Annotations: annotations,
		Raw:         raw,
	}
}
