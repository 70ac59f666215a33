package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors exported by airmaestro
type Metrics struct {
	registry *prometheus.Registry

	mergeRuns         *prometheus.CounterVec
	storedReadings    prometheus.Gauge
	fetchedReadings   *prometheus.CounterVec
	differenceRecords *prometheus.CounterVec
	alignDuration     prometheus.Histogram
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors on a dedicated registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mergeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airmaestro_merge_runs_total",
			Help: "Merge-and-persist runs of the ingestion store by result.",
		}, []string{"result"}),
		storedReadings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "airmaestro_stored_readings",
			Help: "Readings held by the ingestion store after the last merge.",
		}),
		fetchedReadings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airmaestro_fetched_readings_total",
			Help: "Readings returned by upstream pullers by device.",
		}, []string{"device"}),
		differenceRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airmaestro_difference_records_total",
			Help: "Difference records computed by variable.",
		}, []string{"variable"}),
		alignDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "airmaestro_alignment_duration_seconds",
			Help:    "Duration of alignment engine runs.",
			Buckets: prometheus.DefBuckets,
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.mergeRuns,
		m.storedReadings,
		m.fetchedReadings,
		m.differenceRecords,
		m.alignDuration,
		m.httpRequestsTotal,
		m.httpDuration,
	)

	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveMerge records the outcome of a merge-and-persist run
func (m *Metrics) ObserveMerge(total int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.mergeRuns.WithLabelValues("error").Inc()
		return
	}
	m.mergeRuns.WithLabelValues("ok").Inc()
	m.storedReadings.Set(float64(total))
}

// ObserveFetch records the readings returned for a device
func (m *Metrics) ObserveFetch(deviceID string, count int) {
	if m == nil {
		return
	}
	m.fetchedReadings.WithLabelValues(deviceID).Add(float64(count))
}

// ObserveAlignment records an alignment run and its per-variable output sizes
func (m *Metrics) ObserveAlignment(duration time.Duration, perVariable map[string]int) {
	if m == nil {
		return
	}
	m.alignDuration.Observe(duration.Seconds())
	for variable, count := range perVariable {
		m.differenceRecords.WithLabelValues(variable).Add(float64(count))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// InstrumentHandler wraps an HTTP handler with request counters and latency histograms
func (m *Metrics) InstrumentHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}
