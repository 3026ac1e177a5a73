// ABOUTME: Wire-level event types for the agent event stream protocol
// ABOUTME: Defines the action/observation union, kind constants, and JSON decoding

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotEvent is returned when a payload carries neither an action nor an
// observation discriminator.
var ErrNotEvent = errors.New("payload has no action or observation discriminator")

// Event source identifiers.
const (
	SourceUser  = "user"
	SourceAgent = "agent"
)

// Action kinds emitted by the backend.
const (
	ActionMessage           = "message"
	ActionRun               = "run"
	ActionRunIPython        = "run_ipython"
	ActionWrite             = "write"
	ActionRead              = "read"
	ActionEdit              = "edit"
	ActionBrowse            = "browse"
	ActionBrowseInteractive = "browse_interactive"
	ActionThink             = "think"
	ActionFinish            = "finish"
	ActionReject            = "reject"
	ActionDelegate          = "delegate"
	ActionAddTask           = "add_task"
	ActionModifyTask        = "modify_task"
	ActionChangeAgentState  = "change_agent_state"
	ActionInit              = "init"
)

// Observation kinds emitted by the backend.
const (
	ObsRun               = "run"
	ObsRunIPython        = "run_ipython"
	ObsRead              = "read"
	ObsEdit              = "edit"
	ObsBrowse            = "browse"
	ObsDelegate          = "delegate"
	ObsError             = "error"
	ObsAgentStateChanged = "agent_state_changed"
)

// AgentStateInit is the agent_state sentinel that marks the backend as
// initialized and ready to correlate events.
const AgentStateInit = "init"

// ConfirmationAwaiting is the confirmation_state value for actions that are
// paused until the user approves them.
const ConfirmationAwaiting = "awaiting_confirmation"

// Event is one message on the wire, either an action or an observation.
// Exactly one of Action and Observation is set on a well-formed event.
// Events are immutable once decoded.
type Event struct {
	ID          int            `json:"id"`
	Source      string         `json:"source"`
	Timestamp   string         `json:"timestamp"`
	Action      string         `json:"action,omitempty"`
	Observation string         `json:"observation,omitempty"`
	Cause       int            `json:"cause,omitempty"`
	Args        map[string]any `json:"args,omitempty"`
	Extras      map[string]any `json:"extras,omitempty"`
	Content     string         `json:"content,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// Decode parses a wire payload into an Event. Payloads without an action or
// observation discriminator are rejected with ErrNotEvent.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decoding event: %w", err)
	}
	if ev.Action == "" && ev.Observation == "" {
		return Event{}, ErrNotEvent
	}
	return ev, nil
}

// IsAction reports whether the event is an action.
func (e Event) IsAction() bool { return e.Action != "" }

// IsObservation reports whether the event is an observation.
func (e Event) IsObservation() bool { return e.Observation != "" }

// Kind returns the discriminator value, regardless of which side of the
// union the event is on.
func (e Event) Kind() string {
	if e.Action != "" {
		return e.Action
	}
	return e.Observation
}

// ArgString returns args[key] as a string, or "" when absent or not a string.
func (e Event) ArgString(key string) string {
	return stringField(e.Args, key)
}

// ExtraString returns extras[key] as a string, or "" when absent or not a string.
func (e Event) ExtraString(key string) string {
	return stringField(e.Extras, key)
}

// ExtraInt returns extras[key] as an int. JSON numbers decode as float64,
// so both are accepted. The second return is false when the key is absent
// or not numeric.
func (e Event) ExtraInt(key string) (int, bool) {
	return intField(e.Extras, key)
}

// ArgInt returns args[key] as an int, with the same coercion as ExtraInt.
func (e Event) ArgInt(key string) (int, bool) {
	return intField(e.Args, key)
}

// Thought returns the human-readable intent attached to an event: the
// thought arg when present, otherwise the top-level message text.
func (e Event) Thought() string {
	if t := e.ArgString("thought"); t != "" {
		return t
	}
	if e.Message != "" {
		return e.Message
	}
	return e.ArgString("content")
}

// AgentState returns extras.agent_state for agent_state_changed observations.
func (e Event) AgentState() string {
	return e.ExtraString("agent_state")
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func intField(m map[string]any, key string) (int, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), true
		}
	case string:
		// Some backends stringify numeric extras.
		var i int
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &i); err == nil {
			return i, true
		}
	}
	return 0, false
}
