package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sjzar/jrpc/pkg/jsonrpc"
)

const namespace = "jrpc"

// Metrics holds the client and stub collectors. It implements
// jsonrpc.Observer.
type Metrics struct {
	clientCalls    *prometheus.CounterVec
	clientDuration *prometheus.HistogramVec
	stubRequests   *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates the collectors and registers them with reg, or with
// the default registry when reg is nil.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	metrics := &Metrics{
		registry: reg,
		clientCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_calls_total",
			Help:      "The total number of JSON-RPC calls by method and outcome",
		}, []string{"method", "outcome"}),
		clientDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "client_call_duration_seconds",
			Help:      "The duration of JSON-RPC calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "version"}),
		stubRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stub_requests_total",
			Help:      "The total number of requests answered by the stub peer",
		}, []string{"method", "version"}),
	}
	metrics.register()
	return metrics
}

func (m *Metrics) register() {
	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	if m.registry != nil {
		reg = m.registry
	}
	reg.MustRegister(m.clientCalls, m.clientDuration, m.stubRequests)
}

// Handler serves the registry the collectors were registered with.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Outcome maps an error kind to the outcome label; success is "ok".
func Outcome(kind jsonrpc.Kind) string {
	if kind == "" {
		return "ok"
	}
	return string(kind)
}

func (m *Metrics) ObserveCall(method string, version jsonrpc.Version, kind jsonrpc.Kind, elapsed time.Duration) {
	m.clientCalls.WithLabelValues(method, Outcome(kind)).Inc()
	if kind != jsonrpc.KindBuild {
		m.clientDuration.WithLabelValues(method, string(version)).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) IncrementStubRequests(method string, version jsonrpc.Version) {
	m.stubRequests.WithLabelValues(method, string(version)).Inc()
}
