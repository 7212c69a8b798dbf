package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments for the bingo store.
type Metrics struct {
	ConnectedClients prometheus.Gauge
	CallsTotal       *prometheus.CounterVec
	ChangesTotal     prometheus.Counter
	DroppedFrames    prometheus.Counter
}

// NewMetrics registers the store's metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ConnectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "bingo",
			Name:      "connected_clients",
			Help:      "Number of websocket clients currently connected.",
		}),
		CallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bingo",
			Name:      "calls_total",
			Help:      "Remote calls processed, by call name and outcome.",
		}, []string{"call", "outcome"}),
		ChangesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bingo",
			Name:      "row_changes_total",
			Help:      "Row change events broadcast to subscribers.",
		}),
		DroppedFrames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bingo",
			Name:      "dropped_frames_total",
			Help:      "Frames dropped because a client send buffer was full.",
		}),
	}
}

func (m *Metrics) observeCall(name string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.CallsTotal.WithLabelValues(name, outcome).Inc()
}
