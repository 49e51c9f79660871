package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "stemma"

// Prometheus implements every hook interface by recording Prometheus metrics.
// Create one per registry with [NewPrometheus].
type Prometheus struct {
	collationsTotal   *prometheus.CounterVec
	collationDuration prometheus.Histogram
	graphVertices     prometheus.Histogram

	mergesTotal    *prometheus.CounterVec
	mergeDuration  prometheus.Histogram
	mergeTokens    *prometheus.CounterVec
	transpositions prometheus.Counter

	cacheTotal    *prometheus.CounterVec
	cacheSetBytes prometheus.Counter

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewPrometheus registers the stemma metrics with reg.
// It panics if the metrics are already registered with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		collationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "collations_total",
			Help:      "Collation runs by result",
		}, []string{"result"}),
		collationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "collation_duration_seconds",
			Help:      "Collation run duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		}),
		graphVertices: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "graph_vertices",
			Help:      "Vertices in finished variant graphs",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000},
		}),
		mergesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "merge",
			Name:      "total",
			Help:      "Witness merges by result",
		}, []string{"result"}),
		mergeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "merge",
			Name:      "duration_seconds",
			Help:      "Witness merge duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		mergeTokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "merge",
			Name:      "tokens_total",
			Help:      "Merged witness tokens by placement",
		}, []string{"placement"}),
		transpositions: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "merge",
			Name:      "transpositions_total",
			Help:      "Reported transpositions",
		}),
		cacheTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Cache operations by key type and outcome",
		}, []string{"key_type", "outcome"}),
		cacheSetBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "written_bytes_total",
			Help:      "Bytes written to the cache",
		}),
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Served requests by route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) OnCollationStart(context.Context, string, int) {}

func (p *Prometheus) OnCollationComplete(_ context.Context, _ string, vertices int, d time.Duration, err error) {
	p.collationsTotal.WithLabelValues(result(err)).Inc()
	p.collationDuration.Observe(d.Seconds())
	if err == nil {
		p.graphVertices.Observe(float64(vertices))
	}
}

func (p *Prometheus) OnMergeStart(context.Context, string, int) {}

func (p *Prometheus) OnMergeComplete(_ context.Context, _ string, s MergeStats, d time.Duration, err error) {
	p.mergesTotal.WithLabelValues(result(err)).Inc()
	p.mergeDuration.Observe(d.Seconds())
	if err != nil {
		return
	}
	p.mergeTokens.WithLabelValues("matched").Add(float64(s.Matched))
	p.mergeTokens.WithLabelValues("reused").Add(float64(s.Reused))
	p.mergeTokens.WithLabelValues("new").Add(float64(s.NewVertices))
	p.transpositions.Add(float64(s.Transpositions))
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheTotal.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheTotal.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheTotal.WithLabelValues(keyType, "set").Inc()
	p.cacheSetBytes.Add(float64(size))
}

func (p *Prometheus) OnRequest(context.Context, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	p.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ CollationHooks = (*Prometheus)(nil)
	_ CacheHooks     = (*Prometheus)(nil)
	_ ServerHooks    = (*Prometheus)(nil)
)
