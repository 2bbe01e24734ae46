package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/five82/photocraft/internal/fault"
)

type capturedRequest struct {
	Method      string
	ContentType string
	Body        []byte
}

func newCaptureServer(t *testing.T, status int, reply string) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []capturedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, capturedRequest{Method: r.Method, ContentType: r.Header.Get("Content-Type"), Body: body})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(server.Close)
	return server, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), reqs...)
	}
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 12, 30, 45, 123_000_000, time.UTC)
}

func TestClient_StrictPostsEnvelope(t *testing.T) {
	t.Parallel()

	server, requests := newCaptureServer(t, http.StatusOK, `{"ok":true}`)
	c, err := NewClient(Options{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	c.now = fixedNow

	res, err := c.Send(context.Background(), TemplateSelected{
		TemplateID:   2,
		TemplateName: "Story Template",
		Dimensions:   "1080 x 1920",
		Timestamp:    "2024-03-01T12:30:45.000Z",
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if res.Status != http.StatusOK || string(res.Body) != `{"ok":true}` {
		t.Fatalf("Result = %#v, want status 200 with JSON body", res)
	}

	got := requests()
	if len(got) != 1 {
		t.Fatalf("requests = %d, want 1", len(got))
	}
	if got[0].Method != http.MethodPost || got[0].ContentType != "application/json" {
		t.Fatalf("request = %s %q, want POST application/json", got[0].Method, got[0].ContentType)
	}

	var decoded map[string]any
	if err := json.Unmarshal(got[0].Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	want := map[string]any{
		"event":     "template_selected",
		"timestamp": "2024-03-01T12:30:45.123Z",
		"data": map[string]any{
			"templateId":   float64(2),
			"templateName": "Story Template",
			"dimensions":   "1080 x 1920",
			"timestamp":    "2024-03-01T12:30:45.000Z",
		},
		"metadata": map[string]any{"userId": "anonymous", "platform": "web"},
	}
	if diff := cmp.Diff(want, decoded); diff != "" {
		t.Fatalf("envelope mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_StrictNonSuccessSurfacesBody(t *testing.T) {
	t.Parallel()

	server, _ := newCaptureServer(t, http.StatusInternalServerError, "workflow not active")
	c, err := NewClient(Options{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = c.Send(context.Background(), ImageUploaded{FileName: "a.png", FileSize: 3, FileType: "image/png"})
	if err == nil {
		t.Fatalf("Send returned nil error, want delivery error")
	}
	if !fault.IsKind(err, fault.KindDelivery) {
		t.Fatalf("error kind = %q, want delivery", fault.KindOf(err))
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error %v does not carry *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError || statusErr.Body != "workflow not active" {
		t.Fatalf("StatusError = %#v", statusErr)
	}
	if !strings.Contains(err.Error(), "status: 500") {
		t.Fatalf("error = %q, want it to mention status 500", err.Error())
	}
}

func TestClient_StrictNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	c, err := NewClient(Options{Endpoint: endpoint, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.Send(context.Background(), ImageUploaded{FileName: "a.png"})
	if !fault.IsKind(err, fault.KindDelivery) {
		t.Fatalf("Send error = %v, want delivery error", err)
	}
}

func TestClient_OpaqueMasksNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	c, err := NewClient(Options{Endpoint: endpoint, Mode: ModeOpaque, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	res, err := c.Send(context.Background(), ImageUploaded{FileName: "a.png"})
	if err != nil {
		t.Fatalf("Send returned error in opaque mode: %v", err)
	}
	if !res.Opaque || res.Status != 0 || res.Body != nil {
		t.Fatalf("Result = %#v, want opaque pseudo-success", res)
	}
}

func TestClient_OpaqueIgnoresStatus(t *testing.T) {
	t.Parallel()

	server, requests := newCaptureServer(t, http.StatusBadGateway, "nope")
	c, err := NewClient(Options{Endpoint: server.URL, Mode: ModeOpaque})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	res, err := c.Send(context.Background(), ImageUploaded{FileName: "a.png"})
	if err != nil || !res.Opaque {
		t.Fatalf("Send = %#v, %v; want opaque success", res, err)
	}
	if len(requests()) != 1 {
		t.Fatalf("opaque mode should still send exactly one request")
	}
}

func TestClient_NilPayloadRejectedBeforeNetwork(t *testing.T) {
	t.Parallel()

	server, requests := newCaptureServer(t, http.StatusOK, "")
	c, err := NewClient(Options{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	tests := []struct {
		name    string
		payload Payload
	}{
		{name: "untyped nil", payload: nil},
		{name: "nil image_uploaded pointer", payload: (*ImageUploaded)(nil)},
		{name: "nil template_selected pointer", payload: (*TemplateSelected)(nil)},
	}
	for _, tt := range tests {
		_, err := c.Send(context.Background(), tt.payload)
		if !fault.IsKind(err, fault.KindInvalid) {
			t.Fatalf("%s: Send error = %v, want invalid", tt.name, err)
		}
	}
	if len(requests()) != 0 {
		t.Fatalf("no request should be sent for a nil payload")
	}
}

func TestClient_NonJSONSuccessKeepsText(t *testing.T) {
	t.Parallel()

	server, _ := newCaptureServer(t, http.StatusOK, "Workflow was started")
	c, err := NewClient(Options{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	res, err := c.Send(context.Background(), ImageUploaded{FileName: "a.png"})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if res.Body != nil || res.Text != "Workflow was started" {
		t.Fatalf("Result = %#v, want text body only", res)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if c.Endpoint() != DefaultEndpoint {
		t.Fatalf("Endpoint = %q, want %q", c.Endpoint(), DefaultEndpoint)
	}
	if c.Mode() != ModeStrict {
		t.Fatalf("Mode = %v, want strict", c.Mode())
	}
	if c.metadata != (Metadata{UserID: "anonymous", Platform: "web"}) {
		t.Fatalf("metadata = %#v", c.metadata)
	}
}

func TestNewClient_RejectsBadEndpoint(t *testing.T) {
	for _, raw := range []string{"ftp://example.com/hook", "http://", "://bad"} {
		if _, err := NewClient(Options{Endpoint: raw}); !fault.IsKind(err, fault.KindConfig) {
			t.Errorf("NewClient(%q) error = %v, want config error", raw, err)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeStrict, false},
		{"Strict", ModeStrict, false},
		{" opaque ", ModeOpaque, false},
		{"no-cors", ModeOpaque, false},
		{"loose", ModeStrict, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if ModeOpaque.String() != "opaque" || ModeStrict.String() != "strict" {
		t.Fatalf("Mode.String mismatch")
	}
}

func TestFormatTimestamp(t *testing.T) {
	loc := time.FixedZone("x", 2*60*60)
	got := FormatTimestamp(time.Date(2024, 1, 2, 5, 4, 5, 6_000_000, loc))
	if got != "2024-01-02T03:04:05.006Z" {
		t.Fatalf("FormatTimestamp = %q", got)
	}
}
