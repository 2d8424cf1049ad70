package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gatekeeper"

// Metrics holds the service collectors on a private registry, so several
// instances can coexist in one process (tests).
type Metrics struct {
	registry *prometheus.Registry

	inFlight        prometheus.Gauge
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rateLimited     prometheus.Counter
	authRejections  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		authRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_rejections_total",
			Help:      "Presented tokens that did not resolve to a principal, by reason.",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		m.inFlight,
		m.requestsTotal,
		m.requestDuration,
		m.rateLimited,
		m.authRejections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TrackBuckets publishes the limiter's bucket count. A negative count
// (shared store) is reported as-is.
func (m *Metrics) TrackBuckets(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rate_limit_buckets",
		Help:      "Live rate-limit buckets held in memory.",
	}, func() float64 { return float64(count()) }))
}

func (m *Metrics) RateLimited() {
	m.rateLimited.Inc()
}

func (m *Metrics) TokenRejected(reason string) {
	m.authRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument records count, latency and in-flight requests. It wraps the
// whole handler chain, panic recovery included, so recovered 500s are
// counted. The route label is filled in by CaptureRoute once the router
// has matched, so ids in paths do not explode cardinality.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		holder := &routeHolder{route: "unmatched"}
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			rec := recover()
			code := sw.code
			if rec != nil && !sw.wroteHeader {
				code = http.StatusInternalServerError
			}
			status := strconv.Itoa(code)
			m.requestDuration.WithLabelValues(r.Method, holder.route, status).Observe(time.Since(start).Seconds())
			m.requestsTotal.WithLabelValues(r.Method, holder.route, status).Inc()
			if rec != nil {
				panic(rec)
			}
		}()
		next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), routeKey{}, holder)))
	})
}

// CaptureRoute is a mux middleware that reports the matched path template
// back to Instrument.
func CaptureRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if holder, ok := r.Context().Value(routeKey{}).(*routeHolder); ok {
			if cr := mux.CurrentRoute(r); cr != nil {
				if tpl, err := cr.GetPathTemplate(); err == nil {
					holder.route = tpl
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

type routeKey struct{}

type routeHolder struct {
	route string
}

type statusWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.code = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}
