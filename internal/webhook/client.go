package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/five82/photocraft/internal/fault"
	"github.com/five82/photocraft/internal/logging"
)

// Sender delivers webhook events. *Client implements it.
type Sender interface {
	Send(ctx context.Context, payload Payload) (Result, error)
}

var _ Sender = (*Client)(nil)

const (
	DefaultEndpoint  = "https://n8n.servenorobot.com/webhook/canva-webhook"
	defaultUserAgent = "photocraft/0.1"
	defaultUserID    = "anonymous"
	defaultPlatform  = "web"
	requestTimeout   = 10 * time.Second
	maxResponseBytes = 64 << 10
)

// Result describes a delivery. In opaque mode only Opaque is set.
type Result struct {
	Status int
	Body   json.RawMessage
	Text   string
	Opaque bool
}

// StatusError carries a non-2xx response seen in strict mode.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook failed with status: %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook failed with status: %d: %s", e.StatusCode, e.Body)
}

// Options configure a Client.
type Options struct {
	Endpoint   string
	Mode       Mode
	Timeout    time.Duration
	UserID     string
	Platform   string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client posts event envelopes to a single endpoint.
type Client struct {
	endpoint  *url.URL
	mode      Mode
	http      *http.Client
	userAgent string
	metadata  Metadata
	logger    *slog.Logger
	now       func() time.Time
}

// NewClient validates the endpoint and builds a Client.
func NewClient(opts Options) (*Client, error) {
	endpoint, err := parseEndpoint(opts.Endpoint)
	if err != nil {
		return nil, fault.Wrap(fault.KindConfig, "webhook.new", "invalid webhook url", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = requestTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	meta := Metadata{
		UserID:   strings.TrimSpace(opts.UserID),
		Platform: strings.TrimSpace(opts.Platform),
	}
	if meta.UserID == "" {
		meta.UserID = defaultUserID
	}
	if meta.Platform == "" {
		meta.Platform = defaultPlatform
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Client{
		endpoint:  endpoint,
		mode:      opts.Mode,
		http:      httpClient,
		userAgent: defaultUserAgent,
		metadata:  meta,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Mode returns the delivery mode.
func (c *Client) Mode() Mode { return c.mode }

// Endpoint returns the destination URL.
func (c *Client) Endpoint() string { return c.endpoint.String() }

// Envelope wraps payload with the current timestamp and the client's metadata.
func (c *Client) Envelope(payload Payload) Envelope {
	return Envelope{
		Event:     payload.Event(),
		Timestamp: FormatTimestamp(c.now()),
		Data:      payload,
		Metadata:  c.metadata,
	}
}

// Send delivers payload. Strict mode returns a delivery error for transport
// failures and non-2xx statuses; opaque mode reports success for both.
func (c *Client) Send(ctx context.Context, payload Payload) (Result, error) {
	if c == nil {
		return Result{}, fmt.Errorf("client is nil")
	}
	if isNilPayload(payload) {
		return Result{}, fault.New(fault.KindInvalid, "webhook.send", "payload is required")
	}

	body, err := json.Marshal(c.Envelope(payload))
	if err != nil {
		return Result{}, fault.Wrap(fault.KindInvalid, "webhook.send", "encode envelope", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return Result{}, fault.Wrap(fault.KindDelivery, "webhook.send", "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	log := c.logger.With("event", string(payload.Event()), "mode", c.mode.String())

	if c.mode == ModeOpaque {
		return c.sendOpaque(ctx, req, log)
	}

	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		log.ErrorContext(ctx, "webhook trigger failed", "error", err)
		return Result{}, fault.Wrap(fault.KindDelivery, "webhook.send", "execute request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, fault.Wrap(fault.KindDelivery, "webhook.send", "read response", err)
	}
	text := strings.TrimSpace(string(raw))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.ErrorContext(ctx, "webhook rejected", "status", resp.StatusCode, "body", text)
		return Result{Status: resp.StatusCode, Text: text}, &fault.Error{
			Kind:    fault.KindDelivery,
			Op:      "webhook.send",
			Message: "webhook rejected",
			Cause:   &StatusError{StatusCode: resp.StatusCode, Body: text},
		}
	}

	result := Result{Status: resp.StatusCode, Text: text}
	if len(raw) > 0 && json.Valid(raw) {
		result.Body = json.RawMessage(raw)
	}
	log.DebugContext(ctx, "webhook delivered", "status", resp.StatusCode)
	return result, nil
}

// isNilPayload also catches nil pointers to the value payload types, whose
// methods would panic on dereference.
func isNilPayload(payload Payload) bool {
	if payload == nil {
		return true
	}
	v := reflect.ValueOf(payload)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func (c *Client) sendOpaque(ctx context.Context, req *http.Request, log *slog.Logger) (Result, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return Result{}, ctxErr
		}
		log.WarnContext(ctx, "opaque webhook delivery failed; reporting success", "error", err)
		return Result{Opaque: true}, nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
	log.DebugContext(ctx, "opaque webhook sent")
	return Result{Opaque: true}, nil
}

func parseEndpoint(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultEndpoint
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("url %q must use http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("url %q has no host", raw)
	}
	u.Fragment = ""
	return u, nil
}
