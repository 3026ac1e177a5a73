// Package conn owns the persistent connection to the agent-execution
// backend.
//
// # State machine
//
// The Manager moves through STOPPED -> OPENING -> ACTIVE, with ERROR
// reachable from any non-stopped state:
//
//   - Connect(true, creds) dials (or reuses) the transport and enters
//     OPENING
//   - the init handshake is sent when the transport reports connected,
//     carrying the resume cursor when one is known
//   - ACTIVE is entered only when the backend signals readiness via an
//     agent_state_changed observation with the init sentinel
//   - transport errors, and error observations arriving before readiness,
//     force ERROR; reconnection is driven externally by calling Connect
//     again
//
// # Teardown debounce
//
// Connect(false, ...) schedules teardown on a short timer instead of
// closing immediately; a Connect call inside the window cancels it. This
// absorbs rapid mount/unmount churn without dropping a healthy connection.
//
// # Sends
//
// Send forwards events unmodified. With no live transport the event is
// logged and dropped — no error, no queueing.
package conn
