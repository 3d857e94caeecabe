// Package metrics holds the Prometheus collectors of the leaderboard service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission results used as the "result" label.
const (
	ResultAccepted = "accepted"
	ResultNewBest  = "new_best"
)

// Metrics groups the service collectors on a private registry, so tests can
// build as many instances as they need.
type Metrics struct {
	registry *prometheus.Registry

	// Submissions counts POST /score outcomes by result: accepted, new_best
	// or the public error code.
	Submissions *prometheus.CounterVec
	// LeaderboardReads counts served GET /leaderboard requests.
	LeaderboardReads prometheus.Counter
	// Throttled counts requests rejected by the read throttle.
	Throttled prometheus.Counter
}

// New creates the collectors and registers them together with the Go runtime
// and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		Submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bugman_score_submissions_total",
				Help: "Score submissions by result",
			},
			[]string{"result"},
		),
		LeaderboardReads: factory.NewCounter(prometheus.CounterOpts{
			Name: "bugman_leaderboard_reads_total",
			Help: "Leaderboard reads served",
		}),
		Throttled: factory.NewCounter(prometheus.CounterOpts{
			Name: "bugman_throttled_requests_total",
			Help: "Requests rejected by the process-wide throttle",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
