// Package status answers the selection poller's "is the artifact ready yet?"
// question.
//
// Three checkers are provided:
//
//   - Client: GETs <status_url>?templateId=N and reads {"status","artifactUrl","error"}.
//     "ready" (or processed/completed/done) with an artifact URL resolves; "failed"
//     becomes an error; anything else means keep polling.
//   - Stub: never resolves. Used when no status_url is configured, which matches a
//     deployment where the automation endpoint produces no readable result.
//   - ReadyAfter: resolves on the N-th call. Used by tests and demo mode.
package status
