// ABOUTME: Owns the backend connection lifecycle, handshake, and resumption cursor
// ABOUTME: State machine STOPPED -> OPENING -> ACTIVE with ERROR reachable from any live state

package conn

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/coven-console/internal/metrics"
	"github.com/2389/coven-console/internal/protocol"
	"github.com/2389/coven-console/internal/rate"
	"github.com/2389/coven-console/internal/session"
	"github.com/2389/coven-console/internal/timeline"
)

// Status is the connection manager's externally visible state.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusOpening Status = "opening"
	StatusActive  Status = "active"
	StatusError   Status = "error"
)

// DefaultTeardownDelay is the debounce window for teardown requests. A
// Connect call inside the window cancels the pending teardown, absorbing
// rapid mount/unmount churn without dropping a healthy connection.
const DefaultTeardownDelay = 100 * time.Millisecond

// cursorSaveTimeout bounds the per-event cursor persistence write.
const cursorSaveTimeout = 2 * time.Second

// ErrNoTransport is logged (not returned) when Send is called with no live
// transport attached.
var ErrNoTransport = errors.New("no live transport attached")

// Credentials are the opaque tokens forwarded in the handshake.
type Credentials struct {
	Token       string
	GitHubToken string
}

// Options configures a Manager.
type Options struct {
	URL            string
	ConversationID string
	Settings       map[string]any // handshake session settings
	Sessions       *session.Store // optional cursor persistence
	RateWindow     time.Duration
	RateBurst      int
	TeardownDelay  time.Duration
	Dial           Dialer
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
}

// Manager owns the transport lifecycle and feeds decoded events to the
// correlator. All inbound events are processed end-to-end on the
// transport's read goroutine, so no two events mutate the timeline
// concurrently.
type Manager struct {
	opts       Options
	correlator *timeline.Correlator
	rate       *rate.Monitor
	logger     *slog.Logger

	mu          sync.Mutex
	status      Status
	creds       Credentials
	transport   Transport
	lastEventID int // resume cursor; -1 until the first event arrives
	teardown    *time.Timer
}

// NewManager creates a Manager driving the given correlator.
func NewManager(correlator *timeline.Correlator, opts Options) *Manager {
	if opts.TeardownDelay <= 0 {
		opts.TeardownDelay = DefaultTeardownDelay
	}
	if opts.Dial == nil {
		opts.Dial = DialWebSocket
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		opts:        opts,
		correlator:  correlator,
		rate:        rate.New(opts.RateWindow, opts.RateBurst),
		logger:      logger.With("component", "conn"),
		status:      StatusStopped,
		lastEventID: -1,
	}
}

// Connect drives the connection toward the desired state. enabled=false
// schedules a debounced teardown; enabled=true reuses a live transport when
// credentials are unchanged, otherwise discards it and dials fresh.
func (m *Manager) Connect(enabled bool, creds Credentials) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Any Connect call cancels a pending teardown.
	if m.teardown != nil {
		m.teardown.Stop()
		m.teardown = nil
	}

	if !enabled {
		m.scheduleTeardownLocked()
		return
	}

	if m.transport != nil && creds == m.creds {
		m.logger.Debug("reusing live transport")
		return
	}

	if m.transport != nil {
		m.transport.Close()
		m.transport = nil
	}
	m.creds = creds
	m.seedCursorLocked()
	m.setStatusLocked(StatusOpening)

	t, err := m.opts.Dial(m.opts.URL, Callbacks{
		OnConnected: m.handleConnected,
		OnPayload:   m.handlePayload,
		OnError:     m.handleTransportError,
	})
	if err != nil {
		m.logger.Error("transport dial failed", "url", m.opts.URL, "error", err)
		m.setStatusLocked(StatusError)
		return
	}
	m.transport = t
}

// Send forwards an event to the backend unmodified. With no live transport
// it logs and drops the event; callers never receive an error.
func (m *Manager) Send(v any) {
	m.mu.Lock()
	t := m.transport
	m.mu.Unlock()

	if t == nil {
		m.logger.Error("dropping outbound event", "error", ErrNoTransport)
		if m.opts.Metrics != nil {
			m.opts.Metrics.SendsWithoutTransport.Inc()
		}
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		m.logger.Error("marshaling outbound event", "error", err)
		return
	}
	if err := t.Send(data); err != nil {
		m.logger.Error("transport send failed", "error", err)
	}
}

// SendUserMessage inserts an optimistic pending entry and submits the
// message action to the backend. The pending entry is replaced when the
// backend echoes the message with an assigned id.
func (m *Manager) SendUserMessage(text string) {
	m.correlator.AddUserMessage(text, time.Now().UTC().Format(time.RFC3339), true)
	m.Send(map[string]any{
		"action": protocol.ActionMessage,
		"args":   map[string]any{"content": text},
	})
}

// Status returns the current connection status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsLoadingMessages reports whether the inbound message rate suggests a
// backlog is still draining.
func (m *Manager) IsLoadingMessages() bool {
	return m.rate.IsUnderThreshold()
}

// Events returns an ordered snapshot of the correlated timeline.
func (m *Manager) Events() []timeline.Entry {
	return m.correlator.Store().Snapshot()
}

// LastEventID returns the resume cursor, or -1 when no event has been seen.
func (m *Manager) LastEventID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastEventID
}

// Reset clears the timeline and forgets the resume cursor. Used when
// switching conversations.
func (m *Manager) Reset(ctx context.Context) error {
	m.correlator.Clear()

	m.mu.Lock()
	m.lastEventID = -1
	m.mu.Unlock()

	if m.opts.Sessions != nil {
		return m.opts.Sessions.Reset(ctx, m.opts.ConversationID)
	}
	return nil
}

// handleConnected sends the init handshake, including the resume cursor
// when a non-negative last event id is known.
func (m *Manager) handleConnected() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.transport == nil {
		return
	}

	h := protocol.NewHandshake(m.opts.Settings, m.creds.Token, m.creds.GitHubToken, m.lastEventID)
	data, err := json.Marshal(h)
	if err != nil {
		m.logger.Error("marshaling handshake", "error", err)
		return
	}
	if err := m.transport.Send(data); err != nil {
		m.logger.Error("sending handshake", "error", err)
		return
	}
	m.logger.Info("handshake sent", "resume_cursor", m.lastEventID)
}

// handlePayload processes one inbound frame end-to-end: connection
// bookkeeping, rate accounting, then correlation.
func (m *Manager) handlePayload(data []byte) {
	ev, err := protocol.Decode(data)
	if err != nil {
		m.logger.Debug("ignoring undecodable payload", "error", err)
		return
	}

	m.mu.Lock()
	if ev.ID > m.lastEventID {
		m.lastEventID = ev.ID
		m.persistCursorLocked(ev.ID)
	}

	if ev.Observation == protocol.ObsAgentStateChanged &&
		ev.AgentState() == protocol.AgentStateInit &&
		m.status == StatusOpening {
		m.setStatusLocked(StatusActive)
	}

	// An error observation before readiness is a protocol error and kills
	// the session; after readiness it is ordinary correlatable content.
	if ev.Observation == protocol.ObsError && m.status != StatusActive {
		m.logger.Error("backend reported error before ready", "message", ev.Message)
		m.setStatusLocked(StatusError)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if ev.Action == protocol.ActionMessage {
		m.rate.Record()
	}

	m.correlator.Ingest(ev)
}

// handleTransportError reacts to connect failures and read-loop death.
func (m *Manager) handleTransportError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Error("transport error", "error", err)
	if m.transport != nil {
		m.transport.Close()
		m.transport = nil
	}
	m.setStatusLocked(StatusError)
}

// scheduleTeardownLocked arms the debounced teardown timer. Caller holds mu.
func (m *Manager) scheduleTeardownLocked() {
	if m.transport == nil && m.status == StatusStopped {
		return
	}
	m.teardown = time.AfterFunc(m.opts.TeardownDelay, m.finishTeardown)
}

// finishTeardown closes the transport unless the teardown was cancelled by
// a Connect call inside the debounce window.
func (m *Manager) finishTeardown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.teardown == nil {
		return // cancelled
	}
	m.teardown = nil

	if m.transport != nil {
		m.transport.Close()
		m.transport = nil
	}
	m.setStatusLocked(StatusStopped)
}

// seedCursorLocked loads the persisted resume cursor before the first
// connect of a process. Caller holds mu.
func (m *Manager) seedCursorLocked() {
	if m.lastEventID >= 0 || m.opts.Sessions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cursorSaveTimeout)
	defer cancel()

	id, ok, err := m.opts.Sessions.Cursor(ctx, m.opts.ConversationID)
	if err != nil {
		m.logger.Warn("loading resume cursor", "error", err)
		return
	}
	if ok {
		m.lastEventID = id
	}
}

// persistCursorLocked saves the cursor best-effort. Caller holds mu.
func (m *Manager) persistCursorLocked(eventID int) {
	if m.opts.Sessions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cursorSaveTimeout)
	defer cancel()

	if err := m.opts.Sessions.SaveCursor(ctx, m.opts.ConversationID, eventID); err != nil {
		m.logger.Warn("persisting resume cursor", "error", err)
	}
}

// setStatusLocked transitions the state machine. Caller holds mu.
func (m *Manager) setStatusLocked(s Status) {
	if m.status == s {
		return
	}
	m.status = s
	if m.opts.Metrics != nil {
		m.opts.Metrics.StateChanges.WithLabelValues(string(s)).Inc()
	}
	m.logger.Info("connection status changed", "status", s)
}
