// ABOUTME: Consumes raw events one at a time and creates or mutates timeline entries
// ABOUTME: Correlates observations to the entry created by their causing action

package timeline

import (
	"log/slog"
	"sync/atomic"

	"github.com/2389/coven-console/internal/format"
	"github.com/2389/coven-console/internal/metrics"
	"github.com/2389/coven-console/internal/protocol"
)

// Correlator turns the raw event stream into timeline mutations. Ingest is
// called once per inbound event, in arrival order; no two events are
// processed concurrently.
type Correlator struct {
	store    *Store
	bc       *Broadcaster
	metrics  *metrics.Metrics
	logger   *slog.Logger
	dangling atomic.Int64
}

// NewCorrelator wires a correlator to its store. Broadcaster and metrics
// are optional; pass nil logger for default.
func NewCorrelator(store *Store, bc *Broadcaster, m *metrics.Metrics, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{
		store:   store,
		bc:      bc,
		metrics: m,
		logger:  logger.With("component", "correlator"),
	}
}

// Store returns the underlying message store.
func (c *Correlator) Store() *Store { return c.store }

// Ingest processes one inbound event end-to-end.
func (c *Correlator) Ingest(ev protocol.Event) {
	if c.metrics != nil {
		c.metrics.EventsIngested.WithLabelValues(ev.Kind()).Inc()
	}

	switch {
	case ev.IsAction():
		c.ingestAction(ev)
	case ev.IsObservation():
		c.ingestObservation(ev)
	}
}

// AddUserMessage appends a user message, atomically dropping any stale
// pending entry first. Pending entries are the optimistic echo inserted at
// submit time, before the backend assigns the event an id.
func (c *Correlator) AddUserMessage(text, timestamp string, pending bool) {
	e := Entry{
		Type:      EntryThought,
		Sender:    SenderUser,
		Content:   text,
		EventID:   NoEventID,
		Timestamp: timestamp,
		Pending:   pending,
	}
	c.store.ReplacePending(e)
	c.publish(e)
}

// AddError appends a synthetic error entry. eventID may be NoEventID when
// the error is not tied to a backend event.
func (c *Correlator) AddError(text string, eventID int) {
	e := Entry{
		Type:    EntryError,
		Sender:  SenderAssistant,
		Content: text,
		EventID: eventID,
		Success: boolPtr(false),
	}
	c.store.Append(e)
	c.publish(e)
}

// Clear empties the timeline. Used on session boundaries.
func (c *Correlator) Clear() {
	c.store.Clear()
}

// DanglingCount returns the number of observations dropped because no entry
// matched their cause id. Should stay at zero on a healthy stream.
func (c *Correlator) DanglingCount() int64 {
	return c.dangling.Load()
}

func (c *Correlator) ingestAction(ev protocol.Event) {
	if ev.Action == protocol.ActionMessage {
		text := ev.ArgString("content")
		if text == "" {
			text = ev.Message
		}
		if ev.Source == protocol.SourceUser {
			c.AddUserMessage(text, ev.Timestamp, false)
			return
		}
		e := Entry{
			Type:      EntryThought,
			Sender:    SenderAssistant,
			Content:   text,
			EventID:   NoEventID,
			Timestamp: ev.Timestamp,
		}
		c.store.Append(e)
		c.publish(e)
		return
	}

	content, ok := format.Action(ev)
	if !ok {
		// Control and task-bookkeeping actions carry no display content.
		c.logger.Debug("ignoring action with no display rule", "kind", ev.Action, "id", ev.ID)
		return
	}

	if awaitingConfirmation(ev) {
		content += format.RiskText(ev)
	}

	e := Entry{
		Type:          EntryAction,
		Sender:        senderOf(ev.Source),
		Content:       content,
		TranslationID: format.TranslationID(ev.Action),
		EventID:       ev.ID,
		Timestamp:     ev.Timestamp,
	}
	c.store.Append(e)
	c.publish(e)
}

func (c *Correlator) ingestObservation(ev protocol.Event) {
	switch ev.Observation {
	case protocol.ObsAgentStateChanged:
		// Connection-level signal, not timeline content.
		return
	case protocol.ObsError:
		text := ev.Message
		if text == "" {
			text = ev.Content
		}
		c.AddError(text, ev.ID)
		return
	}

	updated := c.store.Update(ev.Cause, func(e *Entry) {
		res, ok := format.Observation(e.Content, ev)
		if !ok {
			return
		}
		e.Content = res.Content
		e.Success = boolPtr(res.Success)
	})
	if !updated {
		c.dangling.Add(1)
		if c.metrics != nil {
			c.metrics.DanglingObservations.Inc()
		}
		c.logger.Debug("dropping observation with no matching entry",
			"kind", ev.Observation, "cause", ev.Cause, "id", ev.ID)
		return
	}

	if e, ok := c.store.FindByEventID(ev.Cause); ok {
		c.publish(e)
	}
}

func (c *Correlator) publish(e Entry) {
	if c.bc != nil {
		c.bc.Publish(e)
	}
}

func awaitingConfirmation(ev protocol.Event) bool {
	if ev.Action != protocol.ActionRun && ev.Action != protocol.ActionRunIPython {
		return false
	}
	return ev.ArgString("confirmation_state") == protocol.ConfirmationAwaiting
}

func senderOf(source string) Sender {
	if source == protocol.SourceUser {
		return SenderUser
	}
	return SenderAssistant
}

func boolPtr(b bool) *bool { return &b }
