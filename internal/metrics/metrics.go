// ABOUTME: Prometheus collectors for the event-stream client
// ABOUTME: Counts ingested events, dropped dangling observations, and connection churn

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the collectors exported by the console. Dangling
// observation drops are counted here precisely because they are otherwise
// silent; integration tests assert the counter stays at zero.
type Metrics struct {
	EventsIngested        *prometheus.CounterVec
	DanglingObservations  prometheus.Counter
	SendsWithoutTransport prometheus.Counter
	StateChanges          *prometheus.CounterVec
}

// New registers the console collectors on reg. Pass nil to use the default
// registerer, or a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		EventsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_events_ingested_total",
			Help: "Inbound events processed by the correlator, by kind.",
		}, []string{"kind"}),
		DanglingObservations: factory.NewCounter(prometheus.CounterOpts{
			Name: "timeline_dangling_observations_total",
			Help: "Observations dropped because no entry matched their cause id.",
		}),
		SendsWithoutTransport: factory.NewCounter(prometheus.CounterOpts{
			Name: "console_send_no_transport_total",
			Help: "Outbound sends rejected because no live transport was attached.",
		}),
		StateChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_connection_state_changes_total",
			Help: "Connection manager state transitions, by resulting state.",
		}, []string{"state"}),
	}
}
