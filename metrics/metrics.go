// Package metrics defines the Prometheus collectors exported by the client.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Client metrics. Label values come from the command or backoff type names,
// so the cardinality is small and fixed.
var (
	RequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tinykv_client",
			Subsystem: "request",
			Name:      "duration_seconds",
			Help:      "Duration of kv requests by command type.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 18),
		}, []string{"type"})

	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinykv_client",
			Subsystem: "request",
			Name:      "total",
			Help:      "Counter of kv requests by command type and result.",
		}, []string{"type", "result"})

	BackoffCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinykv_client",
			Subsystem: "backoff",
			Name:      "total",
			Help:      "Counter of backoff sleeps by reason.",
		}, []string{"type"})

	BackoffHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tinykv_client",
			Subsystem: "backoff",
			Name:      "seconds",
			Help:      "Total backoff time per request.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		})

	TxnCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinykv_client",
			Subsystem: "txn",
			Name:      "total",
			Help:      "Counter of transactions by final state.",
		}, []string{"result"})

	TxnDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tinykv_client",
			Subsystem: "txn",
			Name:      "duration_seconds",
			Help:      "Duration of transactions from begin to finish.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 20),
		}, []string{"result"})

	LockResolverCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinykv_client",
			Subsystem: "lock_resolver",
			Name:      "actions_total",
			Help:      "Counter of lock resolver actions.",
		}, []string{"type"})

	RegionCacheCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinykv_client",
			Subsystem: "region_cache",
			Name:      "operations_total",
			Help:      "Counter of region cache operations.",
		}, []string{"type", "result"})

	ConnPoolGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tinykv_client",
			Subsystem: "rpc",
			Name:      "connections",
			Help:      "Number of open store connections.",
		})
)

// RegisterMetrics registers all client collectors with the default registry.
// Call it once from the program that embeds the client.
func RegisterMetrics() {
	prometheus.MustRegister(RequestDurationHistogram)
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(BackoffCounter)
	prometheus.MustRegister(BackoffHistogram)
	prometheus.MustRegister(TxnCounter)
	prometheus.MustRegister(TxnDurationHistogram)
	prometheus.MustRegister(LockResolverCounter)
	prometheus.MustRegister(RegionCacheCounter)
	prometheus.MustRegister(ConnPoolGauge)
}
