// Package protocol defines the wire format spoken by agent-execution
// backends.
//
// # Events
//
// Every payload on the stream is an Event: a discriminated union where
// exactly one of the Action or Observation fields names the kind.
// Actions describe something the agent or user intends or did (run a
// command, write a file, send a message). Observations report the result
// of a prior action and carry a Cause field holding the id of the action
// they resolve.
//
// Event ids are assigned by the backend and increase monotonically within
// a session; the highest id seen so far doubles as the resume cursor.
//
// # Handshake
//
// On transport connect the client sends a Handshake (an init action) with
// the session settings, opaque credentials, and — when resuming — the
// latest event id already processed, so the backend replays only newer
// events.
package protocol
