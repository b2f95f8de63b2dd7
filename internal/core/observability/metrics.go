package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	upstreamDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Latency of calls to the feature service in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"op", "outcome"},
	)

	layersAdded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "map_layers_added_total",
			Help: "Overlay layers appended to the map view.",
		},
		[]string{"dataset"},
	)

	authAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Session initialisation and interactive authentication attempts.",
		},
		[]string{"kind", "outcome"},
	)

	renderSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "map_render_duration_seconds",
			Help:    "Time spent rendering the map by backend.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	cacheOps = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation latency in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "outcome"},
	)

	cacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collection_cache_results_total",
			Help: "Feature collection cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	assetInstalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_installs_total",
			Help: "Mapping library files downloaded because they were absent.",
		},
		[]string{"file", "outcome"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served by the interactive backend.",
		},
		[]string{"method", "route", "status"},
	)
)

func collectorsAll() []prometheus.Collector {
	return []prometheus.Collector{
		upstreamDurationSeconds,
		layersAdded,
		authAttempts,
		renderSeconds,
		cacheOps,
		cacheResults,
		assetInstalls,
		httpRequestsTotal,
	}
}

// Init registers the collectors on reg. Registering twice on the same
// registry is not an error.
func Init(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectorsAll() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func ObserveUpstream(op string, err error, durationSeconds float64) {
	upstreamDurationSeconds.WithLabelValues(op, outcome(err)).Observe(durationSeconds)
}

func IncLayerAdded(dataset string) {
	layersAdded.WithLabelValues(dataset).Inc()
}

func IncAuthAttempt(kind string, err error) {
	authAttempts.WithLabelValues(kind, outcome(err)).Inc()
}

func ObserveRender(backend string, durationSeconds float64) {
	renderSeconds.WithLabelValues(backend).Observe(durationSeconds)
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	cacheOps.WithLabelValues(op, outcome(err)).Observe(durationSeconds)
}

func IncCacheHit()  { cacheResults.WithLabelValues("hit").Inc() }
func IncCacheMiss() { cacheResults.WithLabelValues("miss").Inc() }

func IncAssetInstall(file string, err error) {
	assetInstalls.WithLabelValues(file, outcome(err)).Inc()
}

func ObserveHTTP(method, route string, status int) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
