// Package metrics holds the Prometheus collectors of the journal service. All methods
// are safe on a nil *Metrics so components can run without instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sideb"

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	primaryWrites       *prometheus.CounterVec
	propagations        *prometheus.CounterVec
	propagationDuration *prometheus.HistogramVec
	classifications     *prometheus.CounterVec
	recommendedSongs    *prometheus.CounterVec
	recommendShortfall  prometheus.Counter
	degradedReads       *prometheus.CounterVec
	storeUp             *prometheus.GaugeVec
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New registers all collectors on registry. A nil registry gets a fresh one that
// also carries the Go and process collectors.
func New(registry *prometheus.Registry) (*Metrics, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	m := &Metrics{
		registry: registry,
		primaryWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "primary_writes_total",
			Help:      "Primary store writes by operation and status",
		}, []string{"op", "status"}),
		propagations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "propagations_total",
			Help:      "Secondary store propagation tasks by store and status",
		}, []string{"store", "status"}),
		propagationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "propagation_duration_seconds",
			Help:      "Duration of secondary store propagation tasks",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"store"}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mood_classifications_total",
			Help:      "Mood classifications by source (cache, vector, default)",
		}, []string{"source"}),
		recommendedSongs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommended_songs_total",
			Help:      "Songs returned by the recommender by origin (vector, fallback)",
		}, []string{"origin"}),
		recommendShortfall: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendation_shortfall_total",
			Help:      "Recommendations that returned fewer songs than requested",
		}),
		degradedReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_reads_total",
			Help:      "Read paths that fell back to zero values",
		}, []string{"kind"}),
		storeUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_up",
			Help:      "Last health probe result per store (1 up, 0 down)",
		}, []string{"store"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code",
		}, []string{"route", "method", "code"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	for _, c := range []prometheus.Collector{
		m.primaryWrites, m.propagations, m.propagationDuration, m.classifications,
		m.recommendedSongs, m.recommendShortfall, m.degradedReads, m.storeUp,
		m.httpRequests, m.httpRequestDuration,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

func (m *Metrics) PrimaryWrite(op string, err error) {
	if m == nil {
		return
	}
	m.primaryWrites.WithLabelValues(op, status(err)).Inc()
}

func (m *Metrics) Propagation(store string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.propagations.WithLabelValues(store, status(err)).Inc()
	m.propagationDuration.WithLabelValues(store).Observe(d.Seconds())
}

func (m *Metrics) Classification(source string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(source).Inc()
}

func (m *Metrics) RecommendedSongs(origin string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recommendedSongs.WithLabelValues(origin).Add(float64(n))
}

func (m *Metrics) RecommendationShortfall() {
	if m == nil {
		return
	}
	m.recommendShortfall.Inc()
}

func (m *Metrics) DegradedRead(kind string) {
	if m == nil {
		return
	}
	m.degradedReads.WithLabelValues(kind).Inc()
}

// StoreHealth records a health snapshot as returned by the store manager.
func (m *Metrics) StoreHealth(snapshot map[string]bool) {
	if m == nil {
		return
	}
	for name, up := range snapshot {
		v := 0.0
		if up {
			v = 1
		}
		m.storeUp.WithLabelValues(name).Set(v)
	}
}

func (m *Metrics) HTTPRequest(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
