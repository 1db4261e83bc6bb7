package webhookapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/incidentd/internal/cfg"
	"github.com/linnemanlabs/incidentd/internal/incident"
	"github.com/linnemanlabs/incidentd/internal/triage"
)

// stubService records submitted incidents without running triage.
type stubService struct {
	mu        sync.Mutex
	submitted []*incident.Incident
}

func (s *stubService) Submit(_ context.Context, inc *incident.Incident) *triage.SubmitResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = append(s.submitted, inc)
	return &triage.SubmitResult{IncidentID: inc.ID}
}

func (s *stubService) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submitted)
}

func (s *stubService) last() *incident.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.submitted) == 0 {
		return nil
	}
	return s.submitted[len(s.submitted)-1]
}

func newTestRouter(t *testing.T, signals cfg.SignalsConfig) (chi.Router, *stubService) {
	t.Helper()
	svc := &stubService{}
	api := New(nil, svc, signals)
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	return r, svc
}

const firingWebhook = `{
	"version": "4",
	"status": "firing",
	"commonLabels": {"team": "payments"},
	"alerts": [{
		"status": "firing",
		"startsAt": "2024-05-01T10:00:00Z",
		"labels": {"alertname": "HighErrorRate", "service": "checkout"},
		"annotations": {"summary": "5xx over 5%"}
	}]
}`

// New / constructor

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	api := New(nil, &stubService{}, cfg.SignalsConfig{})
	if api == nil {
		t.Fatal("New(nil, svc) returned nil API")
	}
	if api.logger == nil {
		t.Fatal("New(nil, svc) left logger nil; expected Nop logger")
	}
}

func TestNew_WithLogger(t *testing.T) {
	t.Parallel()

	api := New(log.Nop(), &stubService{}, cfg.SignalsConfig{})
	if api == nil {
		t.Fatal("New(logger, svc) returned nil API")
	}
}

func TestNew_NilService_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("New(nil, nil) did not panic; expected panic for nil service")
		}
	}()
	New(nil, nil, cfg.SignalsConfig{})
}

// Routing

func TestPrometheusWebhook(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantSubmits int
	}{
		{"firing alert accepted", firingWebhook, http.StatusOK, 1},
		{"invalid JSON", `{bad`, http.StatusBadRequest, 0},
		{"resolved alert declined", `{"version":"4","status":"resolved","alerts":[{"status":"resolved","startsAt":"2024-05-01T10:00:00Z"}]}`, http.StatusBadRequest, 0},
		{"no alerts", `{"version":"4","status":"firing","alerts":[]}`, http.StatusBadRequest, 0},
		{"wrong shape", `{"source":"posthog","funnel_id":"f1"}`, http.StatusOK, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, svc := newTestRouter(t, cfg.SignalsConfig{})

			req := httptest.NewRequest(http.MethodPost, "/webhook/prometheus", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if svc.count() != tt.wantSubmits {
				t.Errorf("submits = %d, want %d", svc.count(), tt.wantSubmits)
			}
		})
	}
}

func TestPrometheusWebhook_AcceptBody(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t, cfg.SignalsConfig{})
	req := httptest.NewRequest(http.MethodPost, "/webhook/prometheus", strings.NewReader(firingWebhook))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want ok", resp["status"])
	}
	if resp["incidentId"] != svc.last().ID {
		t.Errorf("incidentId = %q, want %q", resp["incidentId"], svc.last().ID)
	}
	if svc.last().Trigger != incident.TriggerPrometheus {
		t.Errorf("trigger = %q, want prometheus", svc.last().Trigger)
	}
}

func TestPrometheusWebhook_LabelFilters(t *testing.T) {
	t.Parallel()

	signals := cfg.SignalsConfig{
		Prometheus: cfg.PrometheusSignalConfig{
			Enabled:      true,
			LabelFilters: map[string]string{"service": "billing"},
		},
	}
	r, svc := newTestRouter(t, signals)

	req := httptest.NewRequest(http.MethodPost, "/webhook/prometheus", strings.NewReader(firingWebhook))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 on filter mismatch", rec.Code)
	}
	if svc.count() != 0 {
		t.Errorf("submits = %d, want 0", svc.count())
	}
}

func TestDeployWebhook(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantSubmits int
	}{
		{"deploy failure accepted", `{"source":"deploy","provider":"vercel","repo":"acme/web","error_message":"build failed"}`, http.StatusOK, 1},
		{"invalid JSON", `not json`, http.StatusBadRequest, 0},
		{"missing source", `{"provider":"vercel"}`, http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, svc := newTestRouter(t, cfg.SignalsConfig{})

			req := httptest.NewRequest(http.MethodPost, "/webhook/deploy", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if svc.count() != tt.wantSubmits {
				t.Errorf("submits = %d, want %d", svc.count(), tt.wantSubmits)
			}
		})
	}
}

func TestPostHogWebhook(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantSubmits int
	}{
		{"funnel drop accepted", `{"source":"posthog","funnel_id":"signup","drop_pct":42.5}`, http.StatusOK, 1},
		{"invalid JSON", `{`, http.StatusBadRequest, 0},
		{"missing source", `{"funnel_id":"signup"}`, http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, svc := newTestRouter(t, cfg.SignalsConfig{})

			req := httptest.NewRequest(http.MethodPost, "/webhook/posthog", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if svc.count() != tt.wantSubmits {
				t.Errorf("submits = %d, want %d", svc.count(), tt.wantSubmits)
			}
		})
	}
}

func TestGitHubWebhook(t *testing.T) {
	t.Parallel()

	failedDeploy := `{"deployment_status":{"state":"failure","target_url":"https://ci","description":"deploy failed"},"repository":{"full_name":"acme/web"}}`

	tests := []struct {
		name        string
		event       string
		body        string
		wantStatus  int
		wantSubmits int
	}{
		{"failed deployment accepted", "deployment_status", failedDeploy, http.StatusOK, 1},
		{"missing event header", "", failedDeploy, http.StatusBadRequest, 0},
		{"unsupported event ignored", "push", `{}`, http.StatusOK, 0},
		{"invalid JSON", "deployment_status", `{`, http.StatusBadRequest, 0},
		{"success state not a trigger", "deployment_status", `{"deployment_status":{"state":"success"},"repository":{"full_name":"acme/web"}}`, http.StatusOK, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, svc := newTestRouter(t, cfg.SignalsConfig{})

			req := httptest.NewRequest(http.MethodPost, "/webhook/github", strings.NewReader(tt.body))
			if tt.event != "" {
				req.Header.Set("X-GitHub-Event", tt.event)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if svc.count() != tt.wantSubmits {
				t.Errorf("submits = %d, want %d", svc.count(), tt.wantSubmits)
			}
		})
	}
}

func TestGitHubWebhook_ConfiguredEventAllowlist(t *testing.T) {
	t.Parallel()

	signals := cfg.SignalsConfig{
		GitHub: cfg.GitHubSignalConfig{Enabled: true, Events: []string{"check_run"}},
	}
	r, svc := newTestRouter(t, signals)

	// deployment_status is off the configured allowlist.
	req := httptest.NewRequest(http.MethodPost, "/webhook/github",
		strings.NewReader(`{"deployment_status":{"state":"failure"},"repository":{"full_name":"acme/web"}}`))
	req.Header.Set("X-GitHub-Event", "deployment_status")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 ignored", rec.Code)
	}
	if svc.count() != 0 {
		t.Errorf("submits = %d, want 0", svc.count())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "ignored" {
		t.Errorf("status field = %q, want ignored", resp["status"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, cfg.SignalsConfig{})

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		for _, path := range []string{"/webhook/prometheus", "/webhook/deploy", "/webhook/posthog", "/webhook/github"} {
			req := httptest.NewRequest(method, path, nil)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("%s %s = %d, want 405", method, path, rec.Code)
			}
		}
	}
}

func TestUnknownPath(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, cfg.SignalsConfig{})

	req := httptest.NewRequest(http.MethodPost, "/webhook/datadog", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path = %d, want 404", rec.Code)
	}
}
