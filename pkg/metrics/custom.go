package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tickbook"

var (
	OrdersProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_processed_total",
		Help:      "Orders handed to the matching engine.",
	})

	OrdersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_rejected_total",
			Help:      "Order lines rejected at ingestion.",
		},
		[]string{"reason"},
	)

	Trades = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trades_total",
		Help:      "Fills produced by matching.",
	})

	TradedQty = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "traded_quantity_total",
		Help:      "Total filled quantity.",
	})

	// 100ns ~ 3.2ms
	MatchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "match_latency_seconds",
		Help:      "Latency of a single process call.",
		Buckets:   prometheus.ExponentialBuckets(100e-9, 2, 16),
	})

	PipelineDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pipeline_depth",
		Help:      "Orders waiting in the ingestion pipeline.",
	})

	TraceFlushes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trace_flush_total",
		Help:      "Latency trace batch flushes.",
	})
)

var registerOnce sync.Once

// MustRegister 注册到默认 registry，多次调用只注册一次
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			OrdersProcessed, OrdersRejected, Trades, TradedQty,
			MatchLatency, PipelineDepth, TraceFlushes,
		)
	})
}
