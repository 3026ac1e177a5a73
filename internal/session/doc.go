// Package session persists the per-conversation resume cursor (the highest
// backend event id processed so far) in SQLite, so a restarted client can
// hand the backend a latest_event_id and receive only newer events.
//
// The store uses WAL mode and creates its schema on open. Cursors are
// monotonic: a save never lowers the value on disk.
package session
