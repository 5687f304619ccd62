package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerMetrics tracks tick runs and state-machine transitions.
type SchedulerMetrics struct {
	tickRuns           prometheus.Counter
	tickDuration       prometheus.Histogram
	transitions        *prometheus.CounterVec
	transitionFailures *prometheus.CounterVec
	generationResults  *prometheus.CounterVec
	leaseContentions   prometheus.Counter
}

var (
	schedulerMu       sync.Mutex
	schedulerInstance *SchedulerMetrics
)

// Scheduler returns the process-wide scheduler metrics, registering them on
// first use against the default registerer.
func Scheduler() *SchedulerMetrics {
	schedulerMu.Lock()
	defer schedulerMu.Unlock()
	if schedulerInstance != nil {
		return schedulerInstance
	}

	m := &SchedulerMetrics{
		tickRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foundry_scheduler_tick_runs_total",
			Help: "Number of completed scheduler ticks.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "foundry_scheduler_tick_duration_seconds",
			Help:    "Duration of a full scheduler tick.",
			Buckets: prometheus.DefBuckets,
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foundry_scheduler_transitions_total",
			Help: "Committed job state transitions by action and target status.",
		}, []string{"action", "to"}),
		transitionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foundry_scheduler_transition_failures_total",
			Help: "Released leases by pipeline stage.",
		}, []string{"stage"}),
		generationResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foundry_scheduler_generation_deliveries_total",
			Help: "Resource generation delivery attempts by result.",
		}, []string{"result"}),
		leaseContentions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foundry_scheduler_lease_contentions_total",
			Help: "Lease acquisitions skipped because another attempt was in flight.",
		}),
	}
	prometheus.DefaultRegisterer.MustRegister(
		m.tickRuns,
		m.tickDuration,
		m.transitions,
		m.transitionFailures,
		m.generationResults,
		m.leaseContentions,
	)
	schedulerInstance = m
	return m
}

// ResetSchedulerForTest drops the cached instance so tests can swap registries.
func ResetSchedulerForTest() {
	schedulerMu.Lock()
	defer schedulerMu.Unlock()
	schedulerInstance = nil
}

func (m *SchedulerMetrics) IncTickRun() {
	if m == nil {
		return
	}
	m.tickRuns.Inc()
}

func (m *SchedulerMetrics) ObserveTickDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(d.Seconds())
}

func (m *SchedulerMetrics) IncTransition(action, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, to).Inc()
}

func (m *SchedulerMetrics) IncTransitionFailure(stage string) {
	if m == nil {
		return
	}
	m.transitionFailures.WithLabelValues(stage).Inc()
}

func (m *SchedulerMetrics) IncGenerationResult(result string) {
	if m == nil {
		return
	}
	m.generationResults.WithLabelValues(result).Inc()
}

func (m *SchedulerMetrics) IncLeaseContention() {
	if m == nil {
		return
	}
	m.leaseContentions.Inc()
}

// HTTPMetrics tracks request counts and latency on the gin engine.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics() *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foundry_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "foundry_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	prometheus.DefaultRegisterer.MustRegister(m.requests, m.duration)
	return m
}

func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
