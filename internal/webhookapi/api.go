// Package webhookapi exposes the incident webhook HTTP surface. Each
// monitoring source posts its native payload to a dedicated endpoint;
// payloads that normalize into an incident are submitted for triage.
package webhookapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/incidentd/internal/cfg"
	"github.com/linnemanlabs/incidentd/internal/incident"
	"github.com/linnemanlabs/incidentd/internal/triage"
)

// maxBodyBytes bounds webhook payload size.
const maxBodyBytes = 1 << 20 // 1MB

// TriageService defines the business operations webhookapi needs.
type TriageService interface {
	Submit(ctx context.Context, inc *incident.Incident) *triage.SubmitResult
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger  log.Logger
	svc     TriageService
	signals cfg.SignalsConfig
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService, signals cfg.SignalsConfig) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger:  logger,
		svc:     svc,
		signals: signals,
	}
}

// RegisterRoutes attaches webhook endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/webhook", func(r chi.Router) {
		r.Post("/prometheus", a.handlePrometheus)
		r.Post("/deploy", a.handleDeploy)
		r.Post("/posthog", a.handlePostHog)
		r.Post("/github", a.handleGitHub)
	})
}

// readJSON reads the request body and verifies it parses as JSON. On
// failure it writes a 400 and returns ok=false.
func (a *API) readJSON(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return nil, false
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return nil, false
	}
	return body, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeIgnored(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ignored", "reason": reason})
}

func writeAccepted(w http.ResponseWriter, incidentID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "incidentId": incidentID})
}
