// ABOUTME: Tests for the event correlator
// ABOUTME: Covers the growth invariant, correlation round-trip, pending replacement, and dangling drops

package timeline

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-console/internal/metrics"
	"github.com/2389/coven-console/internal/protocol"
)

func newTestCorrelator(t *testing.T) *Correlator {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	return NewCorrelator(NewStore(), nil, m, nil)
}

func TestCorrelator_RoundTrip(t *testing.T) {
	c := newTestCorrelator(t)

	c.Ingest(protocol.Event{
		ID:     5,
		Source: protocol.SourceAgent,
		Action: protocol.ActionRun,
		Args:   map[string]any{"command": "ls"},
	})
	c.Ingest(protocol.Event{
		ID:          6,
		Source:      protocol.SourceAgent,
		Observation: protocol.ObsRun,
		Cause:       5,
		Content:     "a b",
		Extras:      map[string]any{"exit_code": float64(0)},
	})

	snap := c.Store().Snapshot()
	require.Len(t, snap, 1, "observation must mutate, not append")

	e := snap[0]
	assert.Equal(t, 5, e.EventID)
	require.NotNil(t, e.Success)
	assert.True(t, *e.Success)
	assert.Contains(t, e.Content, "```\na b\n```")
	assert.Equal(t, "ACTION_MESSAGE$RUN", e.TranslationID)
}

func TestCorrelator_GrowthInvariant(t *testing.T) {
	c := newTestCorrelator(t)

	events := []struct {
		ev    protocol.Event
		grows bool
	}{
		{protocol.Event{ID: 0, Source: protocol.SourceUser, Action: protocol.ActionMessage, Args: map[string]any{"content": "hi"}}, true},
		{protocol.Event{ID: 1, Source: protocol.SourceAgent, Action: protocol.ActionMessage, Args: map[string]any{"content": "hello"}}, true},
		{protocol.Event{ID: 2, Source: protocol.SourceAgent, Action: protocol.ActionRun, Args: map[string]any{"command": "pwd"}}, true},
		{protocol.Event{ID: 3, Source: protocol.SourceAgent, Observation: protocol.ObsRun, Cause: 2, Content: "/", Extras: map[string]any{"exit_code": float64(0)}}, false},
		{protocol.Event{ID: 4, Source: protocol.SourceAgent, Action: protocol.ActionAddTask, Args: map[string]any{"task": "x"}}, false},
		{protocol.Event{ID: 5, Source: protocol.SourceAgent, Observation: protocol.ObsAgentStateChanged, Extras: map[string]any{"agent_state": "running"}}, false},
		{protocol.Event{ID: 6, Source: protocol.SourceAgent, Observation: protocol.ObsError, Message: "boom"}, true},
	}

	for _, tc := range events {
		before := c.Store().Len()
		c.Ingest(tc.ev)
		after := c.Store().Len()
		if tc.grows {
			assert.Equal(t, before+1, after, "event %+v should append", tc.ev)
		} else {
			assert.Equal(t, before, after, "event %+v should not append", tc.ev)
		}
	}
}

func TestCorrelator_PendingReplacement(t *testing.T) {
	c := newTestCorrelator(t)

	c.AddUserMessage("hi", "2024-03-01T12:00:00Z", true)
	c.AddUserMessage("hello", "2024-03-01T12:00:01Z", true)

	snap := c.Store().Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "hello", snap[0].Content)
	assert.True(t, snap[0].Pending)
}

func TestCorrelator_BackendEchoClearsPending(t *testing.T) {
	c := newTestCorrelator(t)

	c.AddUserMessage("hi", "2024-03-01T12:00:00Z", true)
	c.Ingest(protocol.Event{
		ID:     0,
		Source: protocol.SourceUser,
		Action: protocol.ActionMessage,
		Args:   map[string]any{"content": "hi"},
	})

	snap := c.Store().Snapshot()
	require.Len(t, snap, 1)
	assert.False(t, snap[0].Pending)
}

func TestCorrelator_DanglingObservation(t *testing.T) {
	c := newTestCorrelator(t)

	c.Ingest(protocol.Event{
		ID:          9,
		Observation: protocol.ObsRun,
		Cause:       999,
		Content:     "orphan",
	})

	assert.Equal(t, 0, c.Store().Len(), "store must be unchanged")
	assert.Equal(t, int64(1), c.DanglingCount())
}

func TestCorrelator_MultipleObservationsLastWriteWins(t *testing.T) {
	c := newTestCorrelator(t)

	c.Ingest(protocol.Event{ID: 1, Action: protocol.ActionRun, Args: map[string]any{"command": "x"}})
	c.Ingest(protocol.Event{ID: 2, Observation: protocol.ObsRun, Cause: 1, Content: "first", Extras: map[string]any{"exit_code": float64(1)}})
	c.Ingest(protocol.Event{ID: 3, Observation: protocol.ObsRun, Cause: 1, Content: "second", Extras: map[string]any{"exit_code": float64(0)}})

	snap := c.Store().Snapshot()
	require.Len(t, snap, 1)
	assert.Contains(t, snap[0].Content, "second")
	require.NotNil(t, snap[0].Success)
	assert.True(t, *snap[0].Success)
}

func TestCorrelator_ThinkPassthrough(t *testing.T) {
	c := newTestCorrelator(t)

	c.Ingest(protocol.Event{
		ID:     4,
		Source: protocol.SourceAgent,
		Action: protocol.ActionThink,
		Args:   map[string]any{"thought": "pondering"},
	})

	snap := c.Store().Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "pondering", snap[0].Content)
	assert.Equal(t, 4, snap[0].EventID)
}

func TestCorrelator_AwaitingConfirmationRisk(t *testing.T) {
	c := newTestCorrelator(t)

	c.Ingest(protocol.Event{
		ID:     8,
		Action: protocol.ActionRun,
		Args: map[string]any{
			"command":            "rm -rf /tmp/scratch",
			"confirmation_state": protocol.ConfirmationAwaiting,
			"security_risk":      float64(2),
		},
	})

	snap := c.Store().Snapshot()
	require.Len(t, snap, 1)
	assert.Contains(t, snap[0].Content, "Security risk: high")
}

func TestCorrelator_ErrorObservationAppends(t *testing.T) {
	c := newTestCorrelator(t)

	c.Ingest(protocol.Event{
		ID:          11,
		Observation: protocol.ObsError,
		Message:     "agent exploded",
	})

	snap := c.Store().Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, EntryError, snap[0].Type)
	assert.Equal(t, "agent exploded", snap[0].Content)
	require.NotNil(t, snap[0].Success)
	assert.False(t, *snap[0].Success)
}

func TestCorrelator_Clear(t *testing.T) {
	c := newTestCorrelator(t)

	c.Ingest(protocol.Event{ID: 1, Action: protocol.ActionRun, Args: map[string]any{"command": "x"}})
	c.Clear()
	assert.Equal(t, 0, c.Store().Len())
}
