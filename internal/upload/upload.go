// Package upload reads a single user-selected photo into an in-memory preview
// and announces it through the webhook client.
package upload

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/five82/photocraft/internal/fault"
	"github.com/five82/photocraft/internal/logging"
	"github.com/five82/photocraft/internal/webhook"
)

// SizeHint is the advertised upload limit. It is only enforced when
// Options.MaxBytes is set.
const SizeHint = "Supports PNG, JPG up to 10MB"

var acceptedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

var acceptedTypes = []string{"image/png", "image/jpeg"}

// Image is the current preview.
type Image struct {
	DataURI  string
	FileName string
	Size     int64
	MIMEType string
	LoadedAt time.Time
}

// Accepts reports whether path has an extension the handler takes.
func Accepts(path string) bool {
	_, ok := acceptedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// AcceptedExtensions lists the accepted extensions in display order.
func AcceptedExtensions() []string {
	return []string{".png", ".jpg", ".jpeg"}
}

// Options configure a Handler.
type Options struct {
	// MaxBytes rejects larger files when positive. Zero disables the check.
	MaxBytes int64
	Logger   *slog.Logger
	// OnChange is called whenever the preview is set or cleared.
	OnChange func(img Image, ok bool)
}

// Handler holds at most one preview. A newer selection replaces an older one.
type Handler struct {
	notifier webhook.Sender
	maxBytes int64
	logger   *slog.Logger
	onChange func(Image, bool)
	now      func() time.Time

	mu      sync.Mutex
	current *Image
	seq     uint64
}

// NewHandler builds a Handler that announces uploads through notifier.
func NewHandler(notifier webhook.Sender, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{
		notifier: notifier,
		maxBytes: opts.MaxBytes,
		logger:   logger,
		onChange: opts.OnChange,
		now:      time.Now,
	}
}

// Select reads path into the preview slot and sends image_uploaded.
// A rejected extension leaves the current preview untouched. A read or
// notification failure clears it.
func (h *Handler) Select(ctx context.Context, path string) (Image, error) {
	if !Accepts(path) {
		return Image{}, fault.New(fault.KindInvalid, "upload.select",
			fmt.Sprintf("%s is not a png, jpg or jpeg file", filepath.Base(path)))
	}

	seq := h.begin()

	img, err := h.read(path)
	if err != nil {
		h.clearIfCurrent(seq)
		h.logger.WarnContext(ctx, "image read failed", "path", path, "error", err)
		return Image{}, err
	}

	if !h.setIfCurrent(seq, img) {
		return img, nil
	}

	_, err = h.notifier.Send(ctx, webhook.ImageUploaded{
		FileName:  img.FileName,
		FileSize:  img.Size,
		FileType:  img.MIMEType,
		Timestamp: webhook.FormatTimestamp(img.LoadedAt),
	})
	if err != nil {
		h.clearIfCurrent(seq)
		h.logger.WarnContext(ctx, "image_uploaded notification failed", "file", img.FileName, "error", err)
		return Image{}, err
	}

	h.logger.InfoContext(ctx, "photo uploaded", "file", img.FileName, "size", img.Size, "type", img.MIMEType)
	return img, nil
}

// Current returns the preview, if any.
func (h *Handler) Current() (Image, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return Image{}, false
	}
	return *h.current, true
}

// Clear drops the preview.
func (h *Handler) Clear() {
	h.mu.Lock()
	h.seq++
	had := h.current != nil
	h.current = nil
	h.mu.Unlock()
	if had {
		h.notify(Image{}, false)
	}
}

func (h *Handler) read(path string) (Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Image{}, fault.Wrap(fault.KindDecode, "upload.read", "stat image", err)
	}
	if info.IsDir() {
		return Image{}, fault.New(fault.KindDecode, "upload.read", path+" is a directory")
	}
	if h.maxBytes > 0 && info.Size() > h.maxBytes {
		return Image{}, fault.New(fault.KindDecode, "upload.read",
			fmt.Sprintf("%s is %d bytes, limit is %d", filepath.Base(path), info.Size(), h.maxBytes))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fault.Wrap(fault.KindDecode, "upload.read", "read image", err)
	}

	mime := mimetype.Detect(data)
	if !isAcceptedType(mime) {
		return Image{}, fault.New(fault.KindDecode, "upload.read",
			fmt.Sprintf("%s content is %s, not a png or jpeg image", filepath.Base(path), mime.String()))
	}
	mimeType := mime.String()
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = mimeType[:idx]
	}

	return Image{
		DataURI:  EncodeDataURI(mimeType, data),
		FileName: filepath.Base(path),
		Size:     int64(len(data)),
		MIMEType: mimeType,
		LoadedAt: h.now(),
	}, nil
}

// EncodeDataURI renders data as a base64 data URI.
func EncodeDataURI(mimeType string, data []byte) string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mimeType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

func isAcceptedType(mime *mimetype.MIME) bool {
	for _, t := range acceptedTypes {
		if mime.Is(t) {
			return true
		}
	}
	return false
}

func (h *Handler) begin() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	return h.seq
}

func (h *Handler) setIfCurrent(seq uint64, img Image) bool {
	h.mu.Lock()
	if seq != h.seq {
		h.mu.Unlock()
		return false
	}
	h.current = &img
	h.mu.Unlock()
	h.notify(img, true)
	return true
}

func (h *Handler) clearIfCurrent(seq uint64) {
	h.mu.Lock()
	if seq != h.seq {
		h.mu.Unlock()
		return
	}
	had := h.current != nil
	h.current = nil
	h.mu.Unlock()
	if had {
		h.notify(Image{}, false)
	}
}

func (h *Handler) notify(img Image, ok bool) {
	if h.onChange != nil {
		h.onChange(img, ok)
	}
}
