// ABOUTME: Rolling-window arrival-rate tracker for inbound message events
// ABOUTME: Heuristic used to decide whether the client is still draining a backlog

package rate

import (
	"sync"
	"time"
)

const (
	// DefaultWindow is the rolling window over which arrivals are counted.
	DefaultWindow = 250 * time.Millisecond
	// DefaultBurst is the arrival count above which the stream is treated
	// as a backlog drain rather than live conversation.
	DefaultBurst = 3
)

// Monitor counts message-event arrivals inside a rolling time window.
// It is a heuristic, not an exact backlog count: while more than burst
// arrivals fall inside the window the consumer should show a loading
// state, and once the window elapses quietly the stream is considered
// live again.
type Monitor struct {
	mu      sync.Mutex
	window  time.Duration
	burst   int
	samples []time.Time
	now     func() time.Time
}

// New creates a Monitor with the given window and burst threshold.
// Zero values fall back to the defaults.
func New(window time.Duration, burst int) *Monitor {
	return NewWithClock(window, burst, time.Now)
}

// NewWithClock creates a Monitor with an injected clock. Used by tests to
// step time deterministically.
func NewWithClock(window time.Duration, burst int, now func() time.Time) *Monitor {
	if window <= 0 {
		window = DefaultWindow
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &Monitor{window: window, burst: burst, now: now}
}

// Record notes the arrival of one message-class event.
func (m *Monitor) Record() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prune(m.now())
	m.samples = append(m.samples, m.now())
}

// IsUnderThreshold reports whether the arrival rate within the window still
// exceeds the burst threshold. Consumers read true as "still draining
// backlog / show loading".
func (m *Monitor) IsUnderThreshold() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prune(m.now())
	return len(m.samples) > m.burst
}

// prune drops samples that have aged out of the window. Caller holds mu.
func (m *Monitor) prune(now time.Time) {
	cutoff := now.Add(-m.window)
	i := 0
	for i < len(m.samples) && m.samples[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		m.samples = append(m.samples[:0], m.samples[i:]...)
	}
}
