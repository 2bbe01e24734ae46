package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/photocraft/internal/poller"
	"github.com/five82/photocraft/internal/upload"
)

// ToastLevel classifies a transient message.
type ToastLevel int

const (
	ToastInfo ToastLevel = iota
	ToastSuccess
	ToastWarning
	ToastError
)

// DefaultToastTTL is how long a toast stays visible.
const DefaultToastTTL = 4 * time.Second

// Toast is a transient status message.
type Toast struct {
	Level     ToastLevel
	Message   string
	ExpiresAt time.Time
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Preview     upload.Image
	HasPreview  bool
	Session     poller.Snapshot
	HasSession  bool
	Toast       Toast
	HasToast    bool
	LastUpdated time.Time
	LastError   error
	// ConsecutiveFailures counts webhook deliveries that failed in a row.
	ConsecutiveFailures int
}

// IsOffline returns true when the webhook has rejected several deliveries in a row.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates from the upload handler, the poller
// and the UI.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	now      func() time.Time
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// SetPreview replaces or clears the preview.
func (s *Store) SetPreview(img upload.Image, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ok {
		s.snapshot.Preview = img
	} else {
		s.snapshot.Preview = upload.Image{}
	}
	s.snapshot.HasPreview = ok
	s.snapshot.LastUpdated = s.clock()
}

// UpdateSession records the latest selection session snapshot.
func (s *Store) UpdateSession(snap poller.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Session = snap
	s.snapshot.HasSession = true
	s.snapshot.LastUpdated = s.clock()
}

// RecordDelivery tracks the outcome of a webhook delivery. When err is non-nil
// it is kept for visibility and the failure streak grows.
func (s *Store) RecordDelivery(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = s.clock()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// Notify shows msg until ttl elapses. A zero ttl uses DefaultToastTTL.
func (s *Store) Notify(level ToastLevel, msg string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	s.snapshot.Toast = Toast{Level: level, Message: msg, ExpiresAt: now.Add(ttl)}
	s.snapshot.HasToast = true
	s.snapshot.LastUpdated = now
}

// Snapshot returns a copy of the current snapshot. Expired toasts are omitted.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if snap.HasToast && !s.clock().Before(snap.Toast.ExpiresAt) {
		snap.Toast = Toast{}
		snap.HasToast = false
	}
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
