// Package metrics holds the Prometheus collectors for the auth service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "messenger_auth"

type Metrics struct {
	registry prometheus.Gatherer

	IDsGenerated      prometheus.Counter
	ClockRegressions  prometheus.Counter
	AccountsCreated   prometheus.Counter
	AccountsDiscarded prometheus.Counter
	Logins            *prometheus.CounterVec
	CodesIssued       *prometheus.CounterVec
	CodesExpired      *prometheus.CounterVec
	Verifications     *prometheus.CounterVec
	PendingCodes      prometheus.Gauge
	WriteQueueDepth   prometheus.Gauge
	WriteQueueFlushes *prometheus.CounterVec

	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// New builds the collectors and registers them with reg. A nil reg gets a
// fresh private registry, which keeps tests independent of each other.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: reg,
		IDsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snowflake_ids_generated_total",
			Help:      "Total number of snowflake ids handed out.",
		}),
		ClockRegressions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snowflake_clock_regressions_total",
			Help:      "Id generations refused because the wall clock moved backwards.",
		}),
		AccountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_created_total",
			Help:      "Accounts accepted for creation.",
		}),
		AccountsDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_discarded_total",
			Help:      "Accounts deleted because their signup code expired unconfirmed.",
		}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts partitioned by result.",
		}, []string{"result"}),
		CodesIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_codes_issued_total",
			Help:      "Verification codes issued partitioned by purpose.",
		}, []string{"purpose"}),
		CodesExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_codes_expired_total",
			Help:      "Verification codes that expired unconsumed partitioned by purpose.",
		}, []string{"purpose"}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Verification attempts partitioned by result.",
		}, []string{"result"}),
		PendingCodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "verification_codes_pending",
			Help:      "Live verification entries.",
		}),
		WriteQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "write_queue_depth",
			Help:      "Account records waiting for a successful bulk insert.",
		}),
		WriteQueueFlushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_queue_flushes_total",
			Help:      "Bulk insert attempts by the write queue partitioned by result.",
		}, []string{"result"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests partitioned by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request latencies in seconds partitioned by method, route, and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
	}

	collectors := []prometheus.Collector{
		m.IDsGenerated, m.ClockRegressions, m.AccountsCreated, m.AccountsDiscarded,
		m.Logins, m.CodesIssued, m.CodesExpired, m.Verifications, m.PendingCodes,
		m.WriteQueueDepth, m.WriteQueueFlushes, m.Requests, m.Duration, m.InFlight,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register collector: %w", err)
		}
	}
	return m, nil
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IDGenerated() {
	if m != nil {
		m.IDsGenerated.Inc()
	}
}

func (m *Metrics) ClockRegressed() {
	if m != nil {
		m.ClockRegressions.Inc()
	}
}

func (m *Metrics) AccountCreated() {
	if m != nil {
		m.AccountsCreated.Inc()
	}
}

func (m *Metrics) AccountDiscarded() {
	if m != nil {
		m.AccountsDiscarded.Inc()
	}
}

func (m *Metrics) Login(result string) {
	if m != nil {
		m.Logins.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) CodeIssued(purpose string) {
	if m != nil {
		m.CodesIssued.WithLabelValues(purpose).Inc()
	}
}

func (m *Metrics) CodeExpired(purpose string) {
	if m != nil {
		m.CodesExpired.WithLabelValues(purpose).Inc()
	}
}

func (m *Metrics) Verification(result string) {
	if m != nil {
		m.Verifications.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) SetPendingCodes(n int) {
	if m != nil {
		m.PendingCodes.Set(float64(n))
	}
}

func (m *Metrics) SetWriteQueueDepth(n int) {
	if m != nil {
		m.WriteQueueDepth.Set(float64(n))
	}
}

func (m *Metrics) WriteQueueFlush(result string) {
	if m != nil {
		m.WriteQueueFlushes.WithLabelValues(result).Inc()
	}
}

// HTTPMiddleware records request count, latency and in-flight requests.
// route names the handler so that path parameters do not explode label
// cardinality.
func (m *Metrics) HTTPMiddleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.InFlight.Inc()
			defer m.InFlight.Dec()

			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			labels := prometheus.Labels{
				"method": r.Method,
				"route":  route,
				"status": strconv.Itoa(rw.status),
			}
			m.Requests.With(labels).Inc()
			m.Duration.With(labels).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
