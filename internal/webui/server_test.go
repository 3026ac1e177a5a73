// ABOUTME: Tests for the debug HTTP server handlers
// ABOUTME: Exercises the health summary and the rendered timeline snapshot

package webui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-console/internal/conn"
	"github.com/2389/coven-console/internal/metrics"
	"github.com/2389/coven-console/internal/protocol"
	"github.com/2389/coven-console/internal/timeline"
)

func newTestServer(t *testing.T) (*Server, *timeline.Correlator) {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	corr := timeline.NewCorrelator(timeline.NewStore(), nil, m, nil)
	mgr := conn.NewManager(corr, conn.Options{
		URL:            "ws://backend/events",
		ConversationID: "conv-1",
		Metrics:        m,
		Dial: func(url string, cb conn.Callbacks) (conn.Transport, error) {
			t.Fatal("debug server must never dial")
			return nil, nil
		},
	})

	return New(Config{Addr: "127.0.0.1:0"}, mgr, reg), corr
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "stopped", body["status"])
	assert.Equal(t, float64(-1), body["last_event_id"])
	assert.Equal(t, false, body["loading"])
}

func TestServer_TimelineRendersMarkdown(t *testing.T) {
	s, corr := newTestServer(t)

	corr.Ingest(protocol.Event{
		ID:     1,
		Source: protocol.SourceAgent,
		Action: protocol.ActionMessage,
		Args:   map[string]any{"content": "some **bold** text"},
	})

	rec := httptest.NewRecorder()
	s.handleTimeline(rec, httptest.NewRequest(http.MethodGet, "/timeline", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<strong>bold</strong>")
	assert.Contains(t, body, "event 1")
}

func TestServer_TimelineMarksErrors(t *testing.T) {
	s, corr := newTestServer(t)

	corr.AddError("agent exploded", 3)

	rec := httptest.NewRecorder()
	s.handleTimeline(rec, httptest.NewRequest(http.MethodGet, "/timeline", nil))

	body := rec.Body.String()
	assert.Contains(t, body, `class="entry error"`)
	assert.Contains(t, body, "failed")
}
