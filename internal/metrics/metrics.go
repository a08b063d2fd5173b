package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pool metrics
	PoolCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relayswap_pool_count",
		Help: "Number of pools in the current snapshot",
	})

	PoolSnapshotReplacements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relayswap_pool_snapshot_replacements_total",
		Help: "Total number of pool snapshot replacements",
	})

	GraphRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relayswap_graph_rebuilds_total",
		Help: "Total number of pool graph rebuilds",
	})

	GraphCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relayswap_graph_cache_hits_total",
		Help: "Total number of plans served from the cached pool graph",
	})

	// Route metrics
	RouteSearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relayswap_route_search_duration_seconds",
			Help:    "Route enumeration and selection duration in seconds",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
		[]string{"swap_mode"},
	)

	RouteCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relayswap_route_candidates",
		Help:    "Number of candidate paths per route search",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	// Plan metrics
	PlanRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayswap_plan_requests_total",
			Help: "Total number of swap plan requests",
		},
		[]string{"swap_mode", "status"},
	)

	PlanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relayswap_plan_duration_seconds",
			Help:    "Swap plan duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"swap_mode"},
	)

	PlansSuperseded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relayswap_plans_superseded_total",
		Help: "Total number of in-flight plans abandoned for a newer request",
	})

	AccountLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayswap_account_lookups_total",
			Help: "Total number of on-chain account lookups made by the account analyzer",
		},
		[]string{"kind", "result"},
	)

	// Relay metrics
	RelayContextLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayswap_relay_context_loads_total",
			Help: "Total number of relay context loads",
		},
		[]string{"status"},
	)

	RelayContextLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relayswap_relay_context_load_duration_seconds",
		Help:    "Relay context load duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	RelayContextValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayswap_relay_context_validations_total",
			Help: "Total number of relay context validations",
		},
		[]string{"result"},
	)

	RelayAPIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayswap_relay_api_requests_total",
			Help: "Total number of requests to the fee relay API",
		},
		[]string{"method", "status"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayswap_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relayswap_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
