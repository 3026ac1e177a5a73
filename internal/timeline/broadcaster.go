// ABOUTME: In-memory fan-out of timeline mutations to read-only subscribers
// ABOUTME: Non-blocking publish; slow subscribers drop notifications, never stall ingest

package timeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// Broadcaster publishes every appended or mutated entry to all subscribers
// of the timeline. Display layers subscribe, receive change notifications,
// and re-read the store snapshot as needed.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan Entry
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]chan Entry),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber for timeline changes. Returns the
// notification channel and a subscription ID for later unsubscription.
// The subscription is automatically cleaned up when ctx is cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context) (<-chan Entry, string) {
	subID := uuid.New().String()
	ch := make(chan Entry, subscriberBufferSize)

	b.mu.Lock()
	b.subscribers[subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(subID)
	}()

	return ch, subID
}

// Publish sends a changed entry to all subscribers. Non-blocking: the
// notification is dropped for subscribers whose channels are full.
func (b *Broadcaster) Publish(e Entry) {
	b.mu.RLock()
	targets := make([]chan Entry, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- e:
		default:
			b.logger.Debug("dropped notification for slow subscriber",
				"event_id", e.EventID)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[subID]
	if !ok {
		return
	}
	delete(b.subscribers, subID)
	close(ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subID, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, subID)
	}
}
