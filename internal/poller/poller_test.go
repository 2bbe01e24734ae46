package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/five82/photocraft/internal/fault"
	"github.com/five82/photocraft/internal/gallery"
	"github.com/five82/photocraft/internal/status"
	"github.com/five82/photocraft/internal/webhook"
)

const testInterval = 5 * time.Millisecond

type recordingSender struct {
	mu       sync.Mutex
	payloads []webhook.Payload
	err      error
}

func (s *recordingSender) Send(_ context.Context, p webhook.Payload) (webhook.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, p)
	return webhook.Result{}, s.err
}

func (s *recordingSender) sent() []webhook.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]webhook.Payload(nil), s.payloads...)
}

// countingChecker records every call and answers with fn.
type countingChecker struct {
	mu    sync.Mutex
	calls []int
	fn    func(call int) (string, error)
}

func (c *countingChecker) Check(_ context.Context, templateID int) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, templateID)
	n := len(c.calls)
	c.mu.Unlock()
	if c.fn == nil {
		return "", nil
	}
	return c.fn(n)
}

func (c *countingChecker) snapshot() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.calls...)
}

func mustTemplate(t *testing.T, id int) gallery.Template {
	t.Helper()
	tpl, err := gallery.Lookup(id)
	if err != nil {
		t.Fatalf("Lookup(%d): %v", id, err)
	}
	return tpl
}

func wait(t *testing.T, s *Session) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := s.Wait(ctx)
	if err != nil {
		t.Fatalf("session did not finish: %v (state %s)", err, snap.State)
	}
	return snap
}

func TestSelect_TimesOutAfterExactlyMaxAttempts(t *testing.T) {
	checker := &countingChecker{}
	p := New(&recordingSender{}, checker, Options{Interval: testInterval})

	start := time.Now()
	snap := wait(t, p.Select(context.Background(), mustTemplate(t, 1)))
	elapsed := time.Since(start)

	if snap.State != StateTimedOut {
		t.Fatalf("State = %s, want timed_out", snap.State)
	}
	if !fault.IsKind(snap.Err, fault.KindTimeout) {
		t.Fatalf("Err = %v, want timeout kind", snap.Err)
	}
	if got := len(checker.snapshot()); got != DefaultMaxAttempts {
		t.Fatalf("checks = %d, want %d", got, DefaultMaxAttempts)
	}
	if snap.Attempt != DefaultMaxAttempts || snap.MaxAttempts != DefaultMaxAttempts {
		t.Fatalf("Attempt = %d/%d, want 10/10", snap.Attempt, snap.MaxAttempts)
	}
	if floor := time.Duration(DefaultMaxAttempts) * testInterval; elapsed < floor {
		t.Fatalf("elapsed %v, want at least %v of interval spacing", elapsed, floor)
	}
}

func TestSelect_ResolvesOnFirstAttempt(t *testing.T) {
	checker := &countingChecker{fn: func(int) (string, error) { return "https://cdn.example/out.png", nil }}
	p := New(&recordingSender{}, checker, Options{Interval: testInterval})

	snap := wait(t, p.Select(context.Background(), mustTemplate(t, 3)))
	if snap.State != StateResolved || snap.Attempt != 1 {
		t.Fatalf("snapshot = %s attempt %d, want resolved at attempt 1", snap.State, snap.Attempt)
	}
	if snap.Artifact != "https://cdn.example/out.png" || snap.Err != nil {
		t.Fatalf("Artifact = %q Err = %v", snap.Artifact, snap.Err)
	}
	if got := len(checker.snapshot()); got != 1 {
		t.Fatalf("checks = %d, want 1", got)
	}
}

func TestSelect_CheckErrorFailsImmediately(t *testing.T) {
	checker := &countingChecker{fn: func(int) (string, error) { return "", errors.New("status source down") }}
	p := New(&recordingSender{}, checker, Options{Interval: testInterval})

	snap := wait(t, p.Select(context.Background(), mustTemplate(t, 1)))
	if snap.State != StateFailed || !fault.IsKind(snap.Err, fault.KindCheck) {
		t.Fatalf("snapshot = %s %v, want failed with check kind", snap.State, snap.Err)
	}
	if got := len(checker.snapshot()); got != 1 {
		t.Fatalf("checks = %d, want 1", got)
	}
}

func TestSelect_NotifiesTemplateSelected(t *testing.T) {
	sender := &recordingSender{}
	p := New(sender, &status.ReadyAfter{N: 1}, Options{Interval: testInterval})
	p.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	wait(t, p.Select(context.Background(), mustTemplate(t, 2)))

	want := []webhook.Payload{webhook.TemplateSelected{
		TemplateID:   2,
		TemplateName: "Story Template",
		Dimensions:   "1080 x 1920",
		Timestamp:    "2024-01-01T00:00:00.000Z",
	}}
	if diff := cmp.Diff(want, sender.sent()); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestSelect_NotifyFailureStillPollsByDefault(t *testing.T) {
	sender := &recordingSender{err: errors.New("connection refused")}
	p := New(sender, &status.ReadyAfter{N: 2}, Options{Interval: testInterval})

	snap := wait(t, p.Select(context.Background(), mustTemplate(t, 4)))
	if snap.State != StateResolved || snap.Attempt != 2 {
		t.Fatalf("snapshot = %s attempt %d, want resolved at attempt 2", snap.State, snap.Attempt)
	}
	if snap.NotifyErr == nil {
		t.Fatalf("NotifyErr = nil, want the delivery failure recorded")
	}
}

func TestSelect_AbortOnNotifyError(t *testing.T) {
	sender := &recordingSender{err: errors.New("connection refused")}
	checker := &countingChecker{}
	p := New(sender, checker, Options{Interval: testInterval, AbortOnNotifyError: true})

	snap := wait(t, p.Select(context.Background(), mustTemplate(t, 4)))
	if snap.State != StateFailed {
		t.Fatalf("State = %s, want failed", snap.State)
	}
	if got := len(checker.snapshot()); got != 0 {
		t.Fatalf("checks = %d, want 0", got)
	}
}

func TestSelect_NewSelectionCancelsPrevious(t *testing.T) {
	checker := &countingChecker{}
	polling := make(chan struct{}, 1)
	p := New(&recordingSender{}, checker, Options{
		Interval: testInterval,
		OnUpdate: func(s Snapshot) {
			if s.Template.ID == 1 && s.Attempt == 2 {
				select {
				case polling <- struct{}{}:
				default:
				}
			}
		},
	})

	first := p.Select(context.Background(), mustTemplate(t, 1))
	select {
	case <-polling:
	case <-time.After(5 * time.Second):
		t.Fatalf("first session never reached attempt 2")
	}

	second := p.Select(context.Background(), mustTemplate(t, 2))
	boundary := len(checker.snapshot())

	select {
	case <-first.Done():
	default:
		t.Fatalf("previous session should be finished when Select returns")
	}
	if got := first.Snapshot().State; got != StateCancelled {
		t.Fatalf("first state = %s, want cancelled", got)
	}

	snap := wait(t, second)
	if snap.State != StateTimedOut {
		t.Fatalf("second state = %s, want timed_out", snap.State)
	}
	for i, id := range checker.snapshot()[boundary:] {
		if id != 2 {
			t.Fatalf("check %d after reselection was for template %d; old session fired", boundary+i, id)
		}
	}
	if got := len(checker.snapshot()) - boundary; got != DefaultMaxAttempts {
		t.Fatalf("second session checks = %d, want %d", got, DefaultMaxAttempts)
	}
}

func TestStop_CancelsActiveSession(t *testing.T) {
	checker := &countingChecker{}
	p := New(&recordingSender{}, checker, Options{Interval: time.Hour})

	s := p.Select(context.Background(), mustTemplate(t, 1))
	p.Stop()

	select {
	case <-s.Done():
	default:
		t.Fatalf("Stop should wait for the session to exit")
	}
	if got := s.Snapshot().State; got != StateCancelled {
		t.Fatalf("State = %s, want cancelled", got)
	}
	if got := len(checker.snapshot()); got != 0 {
		t.Fatalf("checks = %d, want 0", got)
	}
	cur, ok := p.Current()
	if !ok || cur.SessionID != s.ID() {
		t.Fatalf("Current = %#v, want the stopped session", cur)
	}
}

func TestSelect_ParentContextCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New(&recordingSender{}, &countingChecker{}, Options{Interval: time.Hour})
	s := p.Select(ctx, mustTemplate(t, 1))
	cancel()
	if snap := wait(t, s); snap.State != StateCancelled {
		t.Fatalf("State = %s, want cancelled", snap.State)
	}
}

func TestSelect_UpdateSequence(t *testing.T) {
	var (
		mu     sync.Mutex
		states []State
	)
	p := New(&recordingSender{}, &status.ReadyAfter{N: 2}, Options{
		Interval: testInterval,
		OnUpdate: func(s Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			if len(states) == 0 || states[len(states)-1] != s.State {
				states = append(states, s.State)
			}
		},
	})
	wait(t, p.Select(context.Background(), mustTemplate(t, 1)))

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateNotifying, StatePolling, StateResolved}
	if diff := cmp.Diff(want, states); diff != "" {
		t.Fatalf("state sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New(&recordingSender{}, nil, Options{})
	if p.interval != DefaultInterval || p.maxTries != DefaultMaxAttempts {
		t.Fatalf("defaults = %v/%d, want 2s/10", p.interval, p.maxTries)
	}
	if _, ok := p.Current(); ok {
		t.Fatalf("Current before any selection should be empty")
	}
}

func TestState_Terminal(t *testing.T) {
	terminal := []State{StateResolved, StateTimedOut, StateFailed, StateCancelled}
	active := []State{StateIdle, StateNotifying, StatePolling}
	var got []State
	for _, s := range append(append([]State{}, terminal...), active...) {
		if s.Terminal() {
			got = append(got, s)
		}
	}
	if diff := cmp.Diff(terminal, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("terminal states mismatch (-want +got):\n%s", diff)
	}
}
