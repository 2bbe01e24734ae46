// Package poller runs the template-selection session: notify the webhook,
// then check on a fixed interval until an artifact is ready or attempts run out.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/five82/photocraft/internal/fault"
	"github.com/five82/photocraft/internal/gallery"
	"github.com/five82/photocraft/internal/logging"
	"github.com/five82/photocraft/internal/status"
	"github.com/five82/photocraft/internal/webhook"
)

const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 10
)

// State is a session lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateNotifying State = "notifying"
	StatePolling   State = "polling"
	StateResolved  State = "resolved"
	StateTimedOut  State = "timed_out"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	switch s {
	case StateResolved, StateTimedOut, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	SessionID   string
	Template    gallery.Template
	State       State
	Attempt     int
	MaxAttempts int
	Interval    time.Duration
	Artifact    string
	NotifyErr   error
	Err         error
	StartedAt   time.Time
	UpdatedAt   time.Time
}

// Options configure a Poller.
type Options struct {
	Interval    time.Duration
	MaxAttempts int
	// AbortOnNotifyError fails the session when template_selected cannot be
	// delivered instead of polling anyway.
	AbortOnNotifyError bool
	// OnUpdate receives every transition. It runs on the session goroutine and
	// must not call Select or Stop.
	OnUpdate func(Snapshot)
	Logger   *slog.Logger
}

// Poller owns at most one active session.
type Poller struct {
	notifier webhook.Sender
	checker  status.Checker
	interval time.Duration
	maxTries int
	abort    bool
	onUpdate func(Snapshot)
	logger   *slog.Logger
	now      func() time.Time

	selectMu sync.Mutex // serializes Select and Stop

	mu     sync.Mutex
	active *Session
	last   *Session
}

// New builds a Poller. A nil checker never resolves.
func New(notifier webhook.Sender, checker status.Checker, opts Options) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	maxTries := opts.MaxAttempts
	if maxTries <= 0 {
		maxTries = DefaultMaxAttempts
	}
	if checker == nil {
		checker = status.Stub{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Poller{
		notifier: notifier,
		checker:  checker,
		interval: interval,
		maxTries: maxTries,
		abort:    opts.AbortOnNotifyError,
		onUpdate: opts.OnUpdate,
		logger:   logger,
		now:      time.Now,
	}
}

// Select cancels any running session, waits for it to exit, and starts a new
// one for tpl. The session stops when ctx is cancelled.
func (p *Poller) Select(ctx context.Context, tpl gallery.Template) *Session {
	p.selectMu.Lock()
	defer p.selectMu.Unlock()

	p.stopActive()

	id := uuid.NewString()
	sessCtx, cancel := context.WithCancel(logging.WithSession(ctx, id))
	started := p.now()
	s := &Session{
		cancel: cancel,
		done:   make(chan struct{}),
		snap: Snapshot{
			SessionID:   id,
			Template:    tpl,
			State:       StateIdle,
			MaxAttempts: p.maxTries,
			Interval:    p.interval,
			StartedAt:   started,
			UpdatedAt:   started,
		},
	}

	p.mu.Lock()
	p.active = s
	p.last = s
	p.mu.Unlock()

	go p.run(sessCtx, s)
	return s
}

// Stop cancels the running session, if any, and waits for it.
func (p *Poller) Stop() {
	p.selectMu.Lock()
	defer p.selectMu.Unlock()
	p.stopActive()
}

// Current returns the most recent session's snapshot.
func (p *Poller) Current() (Snapshot, bool) {
	p.mu.Lock()
	last := p.last
	p.mu.Unlock()
	if last == nil {
		return Snapshot{}, false
	}
	return last.Snapshot(), true
}

func (p *Poller) stopActive() {
	p.mu.Lock()
	prev := p.active
	p.active = nil
	p.mu.Unlock()
	if prev != nil {
		prev.stop()
	}
}

func (p *Poller) run(ctx context.Context, s *Session) {
	defer close(s.done)
	defer p.release(s)

	tpl := s.Snapshot().Template
	log := p.logger.With("template_id", tpl.ID)

	p.transition(s, func(snap *Snapshot) { snap.State = StateNotifying })
	_, err := p.notifier.Send(ctx, webhook.TemplateSelected{
		TemplateID:   tpl.ID,
		TemplateName: tpl.Name,
		Dimensions:   tpl.Dimensions,
		Timestamp:    webhook.FormatTimestamp(p.now()),
	})
	if ctx.Err() != nil {
		p.finish(ctx, s, StateCancelled, nil)
		return
	}
	if err != nil {
		log.WarnContext(ctx, "template_selected notification failed", "error", err)
		p.transition(s, func(snap *Snapshot) { snap.NotifyErr = err })
		if p.abort {
			p.finish(ctx, s, StateFailed, err)
			return
		}
	}

	p.transition(s, func(snap *Snapshot) { snap.State = StatePolling })
	log.InfoContext(ctx, "polling for artifact", "interval", p.interval, "max_attempts", p.maxTries)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= p.maxTries; attempt++ {
		select {
		case <-ctx.Done():
			p.finish(ctx, s, StateCancelled, nil)
			return
		case <-ticker.C:
		}

		p.transition(s, func(snap *Snapshot) { snap.Attempt = attempt })
		artifact, err := p.checker.Check(ctx, tpl.ID)
		if ctx.Err() != nil {
			p.finish(ctx, s, StateCancelled, nil)
			return
		}
		if err != nil {
			log.WarnContext(ctx, "artifact check failed", "attempt", attempt, "error", err)
			p.finish(ctx, s, StateFailed, fault.Wrap(fault.KindCheck, "poller.check", "status check failed", err))
			return
		}
		if artifact != "" {
			p.transition(s, func(snap *Snapshot) { snap.Artifact = artifact })
			p.finish(ctx, s, StateResolved, nil)
			return
		}
		log.DebugContext(ctx, "artifact not ready", "attempt", attempt)
	}

	p.finish(ctx, s, StateTimedOut, fault.New(fault.KindTimeout, "poller.poll",
		fmt.Sprintf("no artifact after %d attempts", p.maxTries)))
}

func (p *Poller) finish(ctx context.Context, s *Session, state State, err error) {
	p.transition(s, func(snap *Snapshot) {
		snap.State = state
		snap.Err = err
	})
	p.logger.InfoContext(ctx, "selection session finished", "state", string(state), "template_id", s.Snapshot().Template.ID)
}

func (p *Poller) transition(s *Session, mutate func(*Snapshot)) {
	s.mu.Lock()
	mutate(&s.snap)
	s.snap.UpdatedAt = p.now()
	snap := s.snap
	s.mu.Unlock()
	if p.onUpdate != nil {
		p.onUpdate(snap)
	}
}

func (p *Poller) release(s *Session) {
	p.mu.Lock()
	if p.active == s {
		p.active = nil
	}
	p.mu.Unlock()
	s.cancel()
}

// Session is one selection's notify-then-poll task.
type Session struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	snap Snapshot
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.Snapshot().SessionID
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session finishes or ctx ends.
func (s *Session) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-s.done:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

func (s *Session) stop() {
	s.cancel()
	<-s.done
}
