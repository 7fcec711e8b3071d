package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pms/internal/domain/appraisal"
)

// Collector owns a private registry so tests and multiple servers in one
// process never collide on the default one.
type Collector struct {
	registry        *prometheus.Registry
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	degraded        *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pms_http_requests_total",
				Help: "How many HTTP requests processed, partitioned by status code, method and route.",
			},
			[]string{"code", "method", "route"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pms_http_request_duration_seconds",
				Help:    "The HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"code", "method", "route"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pms_workflow_transitions_total",
				Help: "Workflow operations attempted, partitioned by transition and outcome.",
			},
			[]string{"transition", "outcome"},
		),
		degraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pms_read_degraded_branches_total",
				Help: "Optional read branches that failed and were served empty.",
			},
			[]string{"branch"},
		),
	}
	c.registry.MustRegister(
		c.requestCount,
		c.requestDuration,
		c.transitions,
		c.degraded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Record observes one finished request. route is the matched route pattern,
// never the raw path.
func (c *Collector) Record(route, method string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	c.requestCount.WithLabelValues(code, method, route).Inc()
	c.requestDuration.WithLabelValues(code, method, route).Observe(duration.Seconds())
}

func (c *Collector) Transition(name appraisal.Transition, outcome string) {
	c.transitions.WithLabelValues(string(name), outcome).Inc()
}

func (c *Collector) Degraded(branch string) {
	c.degraded.WithLabelValues(branch).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

var _ appraisal.Recorder = (*Collector)(nil)
