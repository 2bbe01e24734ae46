// Package state holds the snapshot shared between background work and the UI.
//
// The upload handler, the selection poller and the webhook delivery path are
// producers. The UI is the single consumer and reads Snapshot on its own
// tick. All access goes through a sync.RWMutex; Snapshot returns a copy so
// rendering never observes a torn update.
//
// Toasts expire on read: a toast older than its TTL is simply left out of
// the returned snapshot.
//
// The zero Store is ready to use.
package state
