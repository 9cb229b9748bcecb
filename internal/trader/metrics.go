package trader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	OpenPositions      prometheus.Gauge
	AvailableSlots     prometheus.Gauge
	Decisions          *prometheus.CounterVec // signal: buy|hold|sell|no_data
	Swaps              *prometheus.CounterVec // side, result: ok|error
	Exits              *prometheus.CounterVec // reason
	ChartFetchFailures prometheus.Counter
	LoopErrors         *prometheus.CounterVec // loop
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OpenPositions: f.NewGauge(prometheus.GaugeOpts{
			Name: "bot_open_positions",
			Help: "Assets currently holding an open position",
		}),
		AvailableSlots: f.NewGauge(prometheus.GaugeOpts{
			Name: "bot_available_slots",
			Help: "Position slots free at the start of the last buy iteration",
		}),
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_decisions_total",
			Help: "Decisions taken",
		}, []string{"signal"}),
		Swaps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_swaps_total",
			Help: "Swap attempts by side and result",
		}, []string{"side", "result"}),
		Exits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_exit_reasons_total",
			Help: "Closed positions split by exit reason",
		}, []string{"reason"}),
		ChartFetchFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "bot_chart_fetch_failures_total",
			Help: "Chart fetches that returned no data after retries",
		}),
		LoopErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_loop_errors_total",
			Help: "Loop iterations or tasks that panicked",
		}, []string{"loop"}),
	}
}
