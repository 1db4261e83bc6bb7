// Package devin is an HTTP client for the Devin v1 session API: attachment
// upload, session create/get/list, and polling a session to completion. The
// service owns all session state; this client only observes it.
package devin

import (
	"encoding/json"
	"strings"
)

// terminalStatuses is the closed set of session states from which no
// further progress is expected. Comparison is case-insensitive.
var terminalStatuses = map[string]bool{
	"finished":   true,
	"blocked":    true,
	"error":      true,
	"cancelled":  true,
	"done":       true,
	"complete":   true,
	"completed":  true,
	"success":    true,
	"terminated": true,
}

// SessionMessage is one chat message on a session, used as a fallback
// signal when structured output is empty.
type SessionMessage struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
	Text    string `json:"text,omitempty"`
}

// Session is the locally observed view of an externally owned session. The
// API is loosely typed, so several fields have alternate locations; use the
// accessor methods rather than reading fields directly.
type Session struct {
	SessionID        string                     `json:"session_id,omitempty"`
	ID               string                     `json:"id,omitempty"`
	URL              string                     `json:"url,omitempty"`
	Status           string                     `json:"status,omitempty"`
	StatusEnum       string                     `json:"status_enum,omitempty"`
	StructuredOutput json.RawMessage            `json:"structured_output,omitempty"`
	Data             map[string]json.RawMessage `json:"data,omitempty"`
	PullRequestURL   string                     `json:"pull_request_url,omitempty"`
	PRURL            string                     `json:"pr_url,omitempty"`
	Messages         []SessionMessage           `json:"messages,omitempty"`
}

// NormalizedStatus returns the session status lowercased, preferring
// status_enum over status. Unknown is returned when neither is set.
func (s *Session) NormalizedStatus() string {
	status := s.StatusEnum
	if status == "" {
		status = s.Status
	}
	if status == "" {
		status = "UNKNOWN"
	}
	return strings.ToLower(status)
}

// Terminal reports whether the session status is in the terminal set.
func (s *Session) Terminal() bool {
	return terminalStatuses[s.NormalizedStatus()]
}

// Output returns the structured output object, falling back to the nested
// data.structured_output location. Nil when absent in both places.
func (s *Session) Output() json.RawMessage {
	if len(s.StructuredOutput) > 0 && string(s.StructuredOutput) != "null" {
		return s.StructuredOutput
	}
	if nested, ok := s.Data["structured_output"]; ok && len(nested) > 0 && string(nested) != "null" {
		return nested
	}
	return nil
}

// PullRequest returns the first pull-request URL visible through any of the
// known response locations: the direct fields, then structured output's
// pr.url. Empty when none is present.
func (s *Session) PullRequest() string {
	if s.PullRequestURL != "" {
		return s.PullRequestURL
	}
	if s.PRURL != "" {
		return s.PRURL
	}
	var out struct {
		PR struct {
			URL string `json:"url"`
		} `json:"pr"`
	}
	if raw := s.Output(); raw != nil {
		if err := json.Unmarshal(raw, &out); err == nil && out.PR.URL != "" {
			return out.PR.URL
		}
	}
	return ""
}
