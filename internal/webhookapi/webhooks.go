package webhookapi

import (
	"net/http"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/incidentd/internal/incident"
	"github.com/linnemanlabs/incidentd/internal/signal"
)

func (a *API) handlePrometheus(w http.ResponseWriter, r *http.Request) {
	raw, ok := a.readJSON(w, r)
	if !ok {
		return
	}

	inc := signal.Normalize(raw, signal.Options{
		PrometheusLabelFilters: a.signals.Prometheus.LabelFilters,
	})
	if inc == nil {
		writeError(w, http.StatusBadRequest, "no firing alerts or filter mismatch")
		return
	}

	a.submit(w, r, inc)
}

func (a *API) handleDeploy(w http.ResponseWriter, r *http.Request) {
	raw, ok := a.readJSON(w, r)
	if !ok {
		return
	}

	inc := signal.Normalize(raw, signal.Options{})
	if inc == nil {
		writeError(w, http.StatusBadRequest, "invalid deploy payload (expected source: deploy)")
		return
	}

	a.submit(w, r, inc)
}

func (a *API) handlePostHog(w http.ResponseWriter, r *http.Request) {
	raw, ok := a.readJSON(w, r)
	if !ok {
		return
	}

	inc := signal.Normalize(raw, signal.Options{})
	if inc == nil {
		writeError(w, http.StatusBadRequest, "invalid PostHog payload")
		return
	}

	a.submit(w, r, inc)
}

func (a *API) handleGitHub(w http.ResponseWriter, r *http.Request) {
	event := r.Header.Get("X-GitHub-Event")
	if event == "" {
		writeError(w, http.StatusBadRequest, "missing X-GitHub-Event header")
		return
	}
	if !slices.Contains(a.githubEvents(), event) {
		writeIgnored(w, "event ignored")
		return
	}

	raw, ok := a.readJSON(w, r)
	if !ok {
		return
	}

	inc := signal.Normalize(raw, signal.Options{GitHubEvent: event})
	if inc == nil {
		// A delivery for a passing check or successful deploy is normal
		// traffic, not an error.
		writeIgnored(w, "no trigger")
		return
	}

	a.submit(w, r, inc)
}

func (a *API) githubEvents() []string {
	if len(a.signals.GitHub.Events) > 0 {
		return a.signals.GitHub.Events
	}
	return []string{"deployment_status", "check_run", "workflow_run"}
}

// submit hands the incident to the triage service and acknowledges the
// webhook. The triage run continues after this response is written.
func (a *API) submit(w http.ResponseWriter, r *http.Request, inc *incident.Incident) {
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("incidentd.incident.id", inc.ID),
		attribute.String("incidentd.incident.trigger", string(inc.Trigger)),
	)

	sub := a.svc.Submit(r.Context(), inc)

	a.logger.Info(r.Context(), "incident accepted",
		"incident_id", sub.IncidentID,
		"trigger", string(inc.Trigger),
	)
	writeAccepted(w, sub.IncidentID)
}
