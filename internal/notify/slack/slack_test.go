package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/incidentd/internal/incident"
	"github.com/linnemanlabs/incidentd/internal/triage"
)

func sampleResult() *triage.Result {
	return &triage.Result{
		IncidentID:  "inc-01JN123",
		Trigger:     incident.TriggerPrometheus,
		SessionID:   "sess-1",
		SessionURL:  "https://app.devin.ai/sessions/sess-1",
		Status:      "finished",
		ReportPath:  ".incident-triage/reports/inc-01JN123.md",
		PRURL:       "https://github.com/acme/checkout/pull/42",
		Duration:    23.4,
		CompletedAt: time.Date(2026, 2, 26, 14, 23, 0, 0, time.UTC),
	}
}

func TestSend_PostsToWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL)
	result := sampleResult()
	conf := 0.8
	result.Report.SuggestedAction = "rollback"
	result.Report.Confidence = &conf
	result.Report.RootCauseHypothesis = "deploy abc123 regressed retries"
	result.Report.ImpactedServices = []string{"checkout"}

	if err := n.Send(context.Background(), result); err != nil {
		t.Fatalf("Send: %v", err)
	}

	blocks, ok := got["blocks"].([]any)
	if !ok {
		t.Fatal("expected blocks array in payload")
	}

	// header, divider, fields, divider, hypothesis, divider, links, divider, context = 9 blocks
	if len(blocks) != 9 {
		t.Errorf("blocks count = %d, want 9", len(blocks))
	}

	header := blocks[0].(map[string]any)
	headerText := header["text"].(map[string]any)["text"].(string)
	if !strings.Contains(headerText, "inc-01JN123") {
		t.Errorf("header text = %q, want to contain incident id", headerText)
	}
	if !strings.Contains(headerText, "\U0001f534") {
		t.Error("header should contain red circle for rollback action")
	}

	links := blocks[6].(map[string]any)
	linksText := links["text"].(map[string]any)["text"].(string)
	if !strings.Contains(linksText, "https://github.com/acme/checkout/pull/42") {
		t.Errorf("links block missing PR URL: %q", linksText)
	}
	if !strings.Contains(linksText, "https://app.devin.ai/sessions/sess-1") {
		t.Errorf("links block missing session URL: %q", linksText)
	}
}

func TestSend_NoOpWithoutURL(t *testing.T) {
	t.Parallel()

	n := New("")
	if err := n.Send(context.Background(), &triage.Result{}); err != nil {
		t.Fatalf("Send with empty URL should be no-op, got: %v", err)
	}
}

func TestSend_TruncatesLongHypothesis(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL)
	result := &triage.Result{IncidentID: "inc-01JN456", Status: "finished"}
	result.Report.RootCauseHypothesis = strings.Repeat("x", 4000)

	if err := n.Send(context.Background(), result); err != nil {
		t.Fatalf("Send: %v", err)
	}

	blocks := got["blocks"].([]any)
	hypothesisSection := blocks[4].(map[string]any)
	text := hypothesisSection["text"].(map[string]any)["text"].(string)

	// Text includes the "*Root cause hypothesis*\n\n" prefix, so the hypothesis
	// portion is what follows, truncated to maxHypothesisLen chars.
	if len(text) > maxHypothesisLen+len("*Root cause hypothesis*\n\n") {
		t.Errorf("hypothesis text length = %d, expected <= %d", len(text), maxHypothesisLen+len("*Root cause hypothesis*\n\n"))
	}
	if !strings.HasSuffix(text, "...") {
		t.Error("expected truncated hypothesis to end with ...")
	}
}

func TestActionEmoji(t *testing.T) {
	t.Parallel()

	tests := []struct {
		action string
		want   string
	}{
		{"rollback", "\U0001f534"},
		{"patch", "\U0001f7e1"},
		{"investigate", "\U0001f50d"},
		{"none", "\U0001f7e2"},
		{"", "\U0001f7e2"},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			t.Parallel()
			if got := actionEmoji(tt.action); got != tt.want {
				t.Errorf("actionEmoji(%q) = %q, want %q", tt.action, got, tt.want)
			}
		})
	}
}

func FuzzSlackBuild(f *testing.F) {
	f.Add("inc-1", "prometheus", "finished", "rollback", "deploy regressed retries")
	f.Add("", "", "", "", "")
	f.Add("<@U123> mention", "deploy", "blocked", "patch", "*bold* _italic_ ~strike~")
	f.Add("inc\x00\x01\x02", "github", "sev\nline", "investigate", "analysis\ttab")
	f.Add(strings.Repeat("A", 5000), "posthog", "finished", "none", strings.Repeat("x", 10000))
	f.Add("inc-2", "prometheus", "finished", "rollback", "```code block``` and <http://example.com|link>")

	f.Fuzz(func(t *testing.T, id, trigger, status, action, hypothesis string) {
		result := &triage.Result{
			IncidentID:  id,
			Trigger:     incident.Trigger(trigger),
			Status:      status,
			Duration:    1.0,
			CompletedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		result.Report.SuggestedAction = action
		result.Report.RootCauseHypothesis = hypothesis

		// Must not panic
		msg := buildMessage(result)

		// Must produce valid JSON
		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("buildMessage produced non-marshalable output: %v", err)
		}

		// Must round-trip
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("buildMessage JSON does not round-trip: %v", err)
		}

		if _, ok := decoded["blocks"].([]any); !ok {
			t.Fatal("expected blocks array")
		}
	})
}

func TestSend_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	n := New(srv.URL)
	err := n.Send(context.Background(), &triage.Result{
		IncidentID: "inc-01JN789",
		Status:     "finished",
	})
	if err == nil {
		t.Fatal("expected error on non-OK status")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error = %q, want to contain status code 500", err.Error())
	}
}
