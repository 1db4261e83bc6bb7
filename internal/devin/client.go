package devin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// DefaultBaseURL is the production Devin v1 API endpoint.
const DefaultBaseURL = "https://api.devin.ai/v1"

const maxResponseBytes = 5 << 20 // 5 MB

// Client talks to the Devin v1 API with bearer authentication.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     log.Logger
}

// New creates a Devin API client. An empty baseURL selects the production
// endpoint; tests point it at a local httptest server.
func New(apiKey, baseURL string, logger log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// CreateSessionRequest is the session-create payload.
type CreateSessionRequest struct {
	Prompt           string            `json:"prompt"`
	Unlisted         bool              `json:"unlisted"`
	MaxACULimit      int               `json:"max_acu_limit,omitempty"`
	Tags             []string          `json:"tags,omitempty"`
	Attachments      []string          `json:"attachments,omitempty"`
	StructuredOutput *StructuredOutput `json:"structured_output,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// StructuredOutput asks the session to maintain a JSON document conforming
// to the given schema. The agent is asked, not forced, to honor it.
type StructuredOutput struct {
	Schema json.RawMessage `json:"schema"`
}

// CreateSessionResponse identifies a newly created session.
type CreateSessionResponse struct {
	SessionID    string `json:"session_id"`
	URL          string `json:"url"`
	IsNewSession *bool  `json:"is_new_session,omitempty"`
}

// UploadAttachment uploads the file as a multipart attachment and returns
// its attachment URL. The API returns either a bare JSON string or an
// object with a url field; any other 2xx body is a protocol error.
func (c *Client) UploadAttachment(ctx context.Context, filePath string) (string, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: path comes from the run's own bundling step
	if err != nil {
		return "", fmt.Errorf("read attachment: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return "", fmt.Errorf("build multipart form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("build multipart form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build multipart form: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/attachments", &buf, mw.FormDataContentType(), "upload attachment")
	if err != nil {
		return "", err
	}

	var asString string
	if err := json.Unmarshal(body, &asString); err == nil && asString != "" {
		return asString, nil
	}
	var asObject struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &asObject); err == nil && asObject.URL != "" {
		return asObject.URL, nil
	}
	return "", &ProtocolError{Op: "upload attachment", Detail: "unexpected response payload: " + truncateBody(body)}
}

// CreateSession creates a new session.
func (c *Client) CreateSession(ctx context.Context, req *CreateSessionRequest) (*CreateSessionResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/sessions", bytes.NewReader(payload), "application/json", "create session")
	if err != nil {
		return nil, err
	}

	var out CreateSessionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ProtocolError{Op: "create session", Detail: "unparseable response: " + truncateBody(body)}
	}
	if out.SessionID == "" {
		return nil, &ProtocolError{Op: "create session", Detail: "response has no session_id: " + truncateBody(body)}
	}
	return &out, nil
}

// GetSession fetches the current session state.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	body, err := c.do(ctx, http.MethodGet, c.baseURL+"/sessions/"+url.PathEscape(sessionID), nil, "", "get session")
	if err != nil {
		return nil, err
	}

	var out Session
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ProtocolError{Op: "get session", Detail: "unparseable response: " + truncateBody(body)}
	}
	return &out, nil
}

// ListOptions filter ListSessions.
type ListOptions struct {
	Limit int
	Tag   string
}

// ListSessions lists sessions, handling both the bare-array and the
// enveloped {"sessions": [...]} response shapes.
func (c *Client) ListSessions(ctx context.Context, opts ListOptions) ([]Session, error) {
	u, err := url.Parse(c.baseURL + "/sessions")
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Tag != "" {
		q.Set("tag", opts.Tag)
	}
	u.RawQuery = q.Encode()

	body, err := c.do(ctx, http.MethodGet, u.String(), nil, "", "list sessions")
	if err != nil {
		return nil, err
	}

	var asArray []Session
	if err := json.Unmarshal(body, &asArray); err == nil {
		return asArray, nil
	}
	var asEnvelope struct {
		Sessions []Session `json:"sessions"`
	}
	if err := json.Unmarshal(body, &asEnvelope); err == nil && asEnvelope.Sessions != nil {
		return asEnvelope.Sessions, nil
	}
	return []Session{}, nil
}

// do performs one authenticated request and returns the body of a 2xx
// response. Non-2xx responses surface as *APIError with status and body.
func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader, contentType, op string) ([]byte, error) {
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: base URL is from trusted config, not user input
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

func truncateBody(body []byte) string {
	const limit = 256
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
