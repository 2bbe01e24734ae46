package app

import (
	"context"
	"fmt"

	"github.com/five82/photocraft/internal/poller"
	"github.com/five82/photocraft/internal/state"
	"github.com/five82/photocraft/internal/webhook"
)

// reportSession mirrors session transitions into the store and raises a
// toast when a session ends.
func reportSession(store *state.Store, observe func(poller.Snapshot)) func(poller.Snapshot) {
	return func(snap poller.Snapshot) {
		store.UpdateSession(snap)
		if level, msg, ok := sessionToast(snap); ok {
			store.Notify(level, msg, 0)
		}
		if observe != nil {
			observe(snap)
		}
	}
}

func sessionToast(snap poller.Snapshot) (state.ToastLevel, string, bool) {
	name := snap.Template.Name
	switch snap.State {
	case poller.StateResolved:
		return state.ToastSuccess, fmt.Sprintf("%s is ready", name), true
	case poller.StateTimedOut:
		return state.ToastWarning, fmt.Sprintf("%s not ready after %d checks", name, snap.MaxAttempts), true
	case poller.StateFailed:
		return state.ToastError, fmt.Sprintf("%s failed: %v", name, snap.Err), true
	case poller.StatePolling:
		if snap.Attempt == 0 && snap.NotifyErr != nil {
			return state.ToastWarning, "Template selection was not delivered; checking anyway", true
		}
	}
	return 0, "", false
}

// deliveryTracker records every webhook outcome in the store so the UI can
// show when the endpoint keeps rejecting requests.
type deliveryTracker struct {
	next  webhook.Sender
	store *state.Store
}

func trackDelivery(next webhook.Sender, store *state.Store) webhook.Sender {
	return deliveryTracker{next: next, store: store}
}

func (d deliveryTracker) Send(ctx context.Context, payload webhook.Payload) (webhook.Result, error) {
	res, err := d.next.Send(ctx, payload)
	if ctx.Err() == nil {
		d.store.RecordDelivery(err)
	}
	return res, err
}
