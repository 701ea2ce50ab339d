// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors. Each instance owns its registry so tests can
// build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	ShiftsSaved      *prometheus.CounterVec
	ReportsGenerated *prometheus.CounterVec
	Tasks            *prometheus.CounterVec
	SessionEvents    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timesheet",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "timesheet",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		ShiftsSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timesheet",
			Name:      "shifts_saved_total",
			Help:      "Shifts written, by operation.",
		}, []string{"op"}),
		ReportsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timesheet",
			Name:      "reports_generated_total",
			Help:      "Reports produced, by output format.",
		}, []string{"format"}),
		Tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timesheet",
			Name:      "tasks_total",
			Help:      "Background task outcomes, by task type.",
		}, []string{"type", "outcome"}),
		SessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timesheet",
			Name:      "session_events_total",
			Help:      "Published session events, by kind.",
		}, []string{"kind"}),
	}
	m.Registry.MustRegister(
		m.HTTPRequests, m.HTTPDuration, m.ShiftsSaved, m.ReportsGenerated, m.Tasks, m.SessionEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ShiftSaved counts a shift create or update. Nil receivers are ignored so
// callers can run without metrics.
func (m *Metrics) ShiftSaved(op string) {
	if m == nil {
		return
	}
	m.ShiftsSaved.WithLabelValues(op).Inc()
}

func (m *Metrics) ReportGenerated(format string) {
	if m == nil {
		return
	}
	m.ReportsGenerated.WithLabelValues(format).Inc()
}

func (m *Metrics) TaskFinished(taskType, outcome string) {
	if m == nil {
		return
	}
	m.Tasks.WithLabelValues(taskType, outcome).Inc()
}

func (m *Metrics) SessionEvent(kind string) {
	if m == nil {
		return
	}
	m.SessionEvents.WithLabelValues(kind).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Flush keeps streaming handlers working behind the middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware records request count and latency labelled with the mux route
// template, never the raw path.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		m.HTTPDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
