package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RemoteCallsTotal tracks remote API calls by endpoint and outcome category.
	RemoteCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitenav_remote_calls_total",
			Help: "Total number of remote API calls",
		},
		[]string{"endpoint", "result"},
	)

	// RemoteCallLatency tracks remote call latency per endpoint.
	RemoteCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitenav_remote_call_latency_seconds",
			Help:    "Remote API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// CacheReadsTotal tracks cache lookups by cache name and outcome
	// (hit, stale_hit, miss, invalid).
	CacheReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitenav_cache_reads_total",
			Help: "Total number of cache lookups",
		},
		[]string{"cache", "outcome"},
	)

	// FailOpenTotal counts license validations that fell back to a stale or
	// synthesized status instead of an authoritative answer.
	FailOpenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitenav_license_fail_open_total",
			Help: "Total number of fail-open license results",
		},
		[]string{"mode"},
	)

	// MappingAnomaliesTotal counts fetches where a non-empty search result
	// mapped to zero usable records.
	MappingAnomaliesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sitenav_mapping_anomalies_total",
			Help: "Total number of site mapping anomalies (likely API contract drift)",
		},
	)
)
