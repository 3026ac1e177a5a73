// ABOUTME: Transport abstraction for the persistent backend connection
// ABOUTME: Decouples the manager's state machine from the websocket wiring

package conn

// Callbacks receives transport lifecycle signals and inbound payloads.
// Implementations must deliver signals from their own goroutine, never
// from inside Dial, so the manager can hold its lock while dialing.
type Callbacks struct {
	// OnConnected fires once the transport is ready to carry traffic.
	OnConnected func()
	// OnPayload fires for every inbound frame.
	OnPayload func(data []byte)
	// OnError fires on connect failures and read-loop termination.
	OnError func(err error)
}

// Transport is a live, persistent connection to a backend.
type Transport interface {
	// Send transmits one frame. Fails when the connection is down.
	Send(data []byte) error
	// Close tears the connection down. Idempotent.
	Close() error
}

// Dialer opens a Transport to url, delivering signals to cb. Tests swap in
// a fake; production uses DialWebSocket.
type Dialer func(url string, cb Callbacks) (Transport, error)
