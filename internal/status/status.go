package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Checker reports whether the artifact for a selected template is ready.
// An empty artifact with a nil error means "not yet".
type Checker interface {
	Check(ctx context.Context, templateID int) (artifact string, err error)
}

// Ensure implementations satisfy Checker at compile time.
var (
	_ Checker = (*Client)(nil)
	_ Checker = Stub{}
	_ Checker = (*ReadyAfter)(nil)
)

const (
	defaultUserAgent = "photocraft/0.1"
	requestTimeout   = 5 * time.Second
)

// Response mirrors the status endpoint payload.
type Response struct {
	Status      string `json:"status"`
	ArtifactURL string `json:"artifactUrl"`
	Error       string `json:"error"`
}

// Client polls an HTTP status endpoint.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

// NewClient builds a Client for statusURL.
func NewClient(statusURL string) (*Client, error) {
	base, err := parseStatusURL(statusURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
	}, nil
}

// Check issues GET <status_url>?templateId=N.
func (c *Client) Check(ctx context.Context, templateID int) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	u := *c.baseURL
	values := u.Query()
	values.Set("templateId", strconv.Itoa(templateID))
	u.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("status endpoint returned status %d", resp.StatusCode)
	}
	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(payload.Status)) {
	case "failed", "error":
		msg := strings.TrimSpace(payload.Error)
		if msg == "" {
			msg = "processing failed"
		}
		return "", fmt.Errorf("template %d: %s", templateID, msg)
	case "ready", "processed", "completed", "done":
		if artifact := strings.TrimSpace(payload.ArtifactURL); artifact != "" {
			return artifact, nil
		}
		return "", fmt.Errorf("template %d reported ready without an artifact url", templateID)
	}
	return "", nil
}

// Stub never resolves. It stands in for a status source that does not exist yet.
type Stub struct{}

// Check always reports "not ready".
func (Stub) Check(ctx context.Context, _ int) (string, error) {
	return "", ctx.Err()
}

// ReadyAfter resolves with Artifact on the N-th call.
type ReadyAfter struct {
	N        int
	Artifact string

	mu    sync.Mutex
	calls int
}

// Check counts calls and resolves once N is reached.
func (r *ReadyAfter) Check(ctx context.Context, templateID int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.N > 0 && r.calls >= r.N {
		artifact := r.Artifact
		if artifact == "" {
			artifact = fmt.Sprintf("artifact://template/%d", templateID)
		}
		return artifact, nil
	}
	return "", nil
}

func parseStatusURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("status url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse status_url %q: %w", raw, err)
	}
	u.Fragment = ""
	return u, nil
}
