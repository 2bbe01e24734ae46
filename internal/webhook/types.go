package webhook

import (
	"fmt"
	"strings"
	"time"
)

// EventName identifies a webhook event kind.
type EventName string

const (
	EventImageUploaded    EventName = "image_uploaded"
	EventTemplateSelected EventName = "template_selected"
)

// Payload is the closed set of event payloads the client can deliver.
// Only types declared in this package implement it.
type Payload interface {
	Event() EventName
	payload()
}

// ImageUploaded is sent after a photo has been read into a preview.
type ImageUploaded struct {
	FileName  string `json:"fileName"`
	FileSize  int64  `json:"fileSize"`
	FileType  string `json:"fileType"`
	Timestamp string `json:"timestamp"`
}

func (ImageUploaded) Event() EventName { return EventImageUploaded }
func (ImageUploaded) payload()         {}

// TemplateSelected is sent when a gallery template is chosen.
type TemplateSelected struct {
	TemplateID   int    `json:"templateId"`
	TemplateName string `json:"templateName"`
	Dimensions   string `json:"dimensions"`
	Timestamp    string `json:"timestamp"`
}

func (TemplateSelected) Event() EventName { return EventTemplateSelected }
func (TemplateSelected) payload()         {}

// Metadata is attached to every envelope.
type Metadata struct {
	UserID   string `json:"userId"`
	Platform string `json:"platform"`
}

// Envelope is the JSON body POSTed to the webhook endpoint.
type Envelope struct {
	Event     EventName `json:"event"`
	Timestamp string    `json:"timestamp"`
	Data      Payload   `json:"data"`
	Metadata  Metadata  `json:"metadata"`
}

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t as a UTC ISO-8601 timestamp with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Mode selects how the client treats the endpoint's response.
type Mode int

const (
	// ModeStrict fails on transport errors and non-2xx statuses.
	ModeStrict Mode = iota
	// ModeOpaque never inspects the response and always reports success.
	ModeOpaque
)

func (m Mode) String() string {
	switch m {
	case ModeOpaque:
		return "opaque"
	default:
		return "strict"
	}
}

// ParseMode accepts "strict" or "opaque" (case-insensitive). Empty means strict.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "strict":
		return ModeStrict, nil
	case "opaque", "no-cors":
		return ModeOpaque, nil
	}
	return ModeStrict, fmt.Errorf("unknown delivery mode %q (want strict or opaque)", value)
}
