// Package metrics defines the prometheus metrics of the loopback tools.
// The tools are short lived, so metrics are exported by writing a
// textfile for the node_exporter textfile collector rather than by
// serving them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics shared by ethtest, sertest and mctltest.
var (
	Runs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loopback_runs_total",
			Help: "Number of loopback test runs by outcome.",
		},
		[]string{"tool", "result"},
	)
	Packets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loopback_packets_total",
			Help: "Number of test packets sent and received.",
		},
		[]string{"tool", "direction"},
	)
	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loopback_errors_total",
			Help: "Number of loopback test errors of each type.",
		},
		[]string{"tool", "error"},
	)
	Rate = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "loopback_rate_kbps",
			Help: "A histogram of approximate transfer rates.",
			Buckets: []float64{
				1, 2.5, 5, 10, 25, 50, 100, 250, 500,
				1000, 2500, 5000, 10000, 25000, 50000, 100000},
		},
		[]string{"tool"},
	)
	ModemChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modemctl_checks_total",
			Help: "Number of modem control signal tests by outcome.",
		},
		[]string{"result"},
	)
)

// WriteTextfile writes all registered metrics to |path| in the text
// exposition format. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
