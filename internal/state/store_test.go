package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/photocraft/internal/gallery"
	"github.com/five82/photocraft/internal/poller"
	"github.com/five82/photocraft/internal/upload"
)

func TestStore_PreviewReplaceAndClear(t *testing.T) {
	var s Store

	before := time.Now()
	s.SetPreview(upload.Image{FileName: "a.png", Size: 10}, true)
	s.SetPreview(upload.Image{FileName: "b.jpg", Size: 20}, true)

	snap := s.Snapshot()
	if !snap.HasPreview || snap.Preview.FileName != "b.jpg" {
		t.Fatalf("preview = %#v (has=%v), want b.jpg", snap.Preview, snap.HasPreview)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}

	s.SetPreview(upload.Image{FileName: "ignored"}, false)
	snap = s.Snapshot()
	if snap.HasPreview || snap.Preview.FileName != "" {
		t.Fatalf("preview after clear = %#v, want empty", snap.Preview)
	}
}

func TestStore_UpdateSession(t *testing.T) {
	var s Store

	if s.Snapshot().HasSession {
		t.Fatal("zero store should not report a session")
	}
	tpl, _ := gallery.Lookup(2)
	s.UpdateSession(poller.Snapshot{SessionID: "abc", Template: tpl, State: poller.StatePolling, Attempt: 3, MaxAttempts: 10})

	snap := s.Snapshot()
	if !snap.HasSession || snap.Session.Attempt != 3 || snap.Session.Template.ID != 2 {
		t.Fatalf("session = %#v, want template 2 attempt 3", snap.Session)
	}
}

func TestStore_RecordDeliveryTracksFailures(t *testing.T) {
	var s Store

	origErr := errors.New("webhook failed with status: 502")
	s.RecordDelivery(origErr)
	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 1 || snap.IsOffline() {
		t.Fatalf("after one failure: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}
	if snap.LastError == nil || snap.LastError.Error() != origErr.Error() {
		t.Fatalf("LastError = %v, want %v", snap.LastError, origErr)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatal("Snapshot should clone error instance")
	}

	s.RecordDelivery(errors.New("again"))
	if snap := s.Snapshot(); !snap.IsOffline() {
		t.Fatalf("IsOffline() = false with %d failures", snap.ConsecutiveFailures)
	}

	s.RecordDelivery(nil)
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.LastError != nil || snap.IsOffline() {
		t.Fatalf("success should reset: failures=%d err=%v", snap.ConsecutiveFailures, snap.LastError)
	}
}

func TestStore_ToastExpires(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := Store{now: func() time.Time { return now }}

	s.Notify(ToastSuccess, "Photo uploaded", 0)
	snap := s.Snapshot()
	if !snap.HasToast || snap.Toast.Message != "Photo uploaded" || snap.Toast.Level != ToastSuccess {
		t.Fatalf("toast = %#v, want success message", snap.Toast)
	}
	if want := now.Add(DefaultToastTTL); !snap.Toast.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", snap.Toast.ExpiresAt, want)
	}

	now = now.Add(DefaultToastTTL - time.Millisecond)
	if !s.Snapshot().HasToast {
		t.Fatal("toast should still be visible before its TTL")
	}
	now = now.Add(time.Millisecond)
	if snap := s.Snapshot(); snap.HasToast || snap.Toast.Message != "" {
		t.Fatalf("toast = %#v, want expired", snap.Toast)
	}
}

func TestStore_NewerToastReplacesOlder(t *testing.T) {
	var s Store
	s.Notify(ToastInfo, "first", time.Minute)
	s.Notify(ToastError, "second", time.Minute)
	if got := s.Snapshot().Toast; got.Message != "second" || got.Level != ToastError {
		t.Fatalf("toast = %#v, want second", got)
	}
}
