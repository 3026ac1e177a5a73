// ABOUTME: Package documentation for the local debug HTTP server
// ABOUTME: Explains the exposed endpoints and their read-only nature

// Package webui serves a local, read-only debug surface for a running
// console: Prometheus metrics, a health summary, and an HTML snapshot of
// the in-memory timeline.
//
// # Endpoints
//
//   - /metrics: Prometheus exposition for the console's registry
//   - /healthz: connection status, resume cursor, and loading flag as JSON
//   - /timeline: the current timeline rendered as HTML, entry content
//     treated as markdown
//
// The server never writes to the backend; it only observes state owned by
// the connection manager.
package webui
