// ABOUTME: Websocket implementation of the Transport interface using gorilla/websocket
// ABOUTME: Runs a read loop goroutine and serializes writes behind a mutex

package conn

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// wsTransport wraps a gorilla websocket connection. Writes are serialized
// with a mutex; gorilla connections support one concurrent writer only.
type wsTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	closeMu sync.Mutex
	closed  bool
}

// DialWebSocket opens a websocket transport to url. The connected signal
// and all payloads are delivered from the read-loop goroutine.
func DialWebSocket(url string, cb Callbacks) (Transport, error) {
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	t := &wsTransport{conn: c}
	go t.readLoop(cb)
	return t, nil
}

func (t *wsTransport) readLoop(cb Callbacks) {
	if cb.OnConnected != nil {
		cb.OnConnected()
	}
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			t.closeMu.Lock()
			closed := t.closed
			t.closeMu.Unlock()
			if !closed && cb.OnError != nil {
				cb.OnError(fmt.Errorf("reading frame: %w", err))
			}
			return
		}
		if cb.OnPayload != nil {
			cb.OnPayload(data)
		}
	}
}

// Send writes one text frame.
func (t *wsTransport) Send(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// Close tears the connection down and silences the read loop's exit error.
func (t *wsTransport) Close() error {
	t.closeMu.Lock()
	if t.closed {
		t.closeMu.Unlock()
		return nil
	}
	t.closed = true
	t.closeMu.Unlock()

	return t.conn.Close()
}
