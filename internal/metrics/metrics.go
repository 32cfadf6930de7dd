// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "finflow"

// TransactionsRecorded counts transactions appended to the log.
var TransactionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "log",
	Name:      "transactions_recorded_total",
	Help:      "Total transactions recorded by category and type.",
}, []string{"category", "type"})

// LogResets counts bulk clears of the log.
var LogResets = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "log",
	Name:      "resets_total",
	Help:      "Total transaction log resets by reason (manual, weekly).",
}, []string{"reason"})

var CycleDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "cycle",
	Name:      "decisions_total",
	Help:      "Total budget cycle evaluations by resulting action.",
}, []string{"action"})

var AdviceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "advice",
	Name:      "requests_total",
	Help:      "Total advice requests by outcome (generated, cached, empty, fallback).",
}, []string{"outcome"})

var AdviceLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "advice",
	Name:      "generation_seconds",
	Help:      "Latency of calls to the advice generator.",
	Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20},
})

// WeeklySpent is the trailing seven day expense total as of the last dashboard build.
var WeeklySpent = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "budget",
	Name:      "weekly_spent",
	Help:      "Trailing seven day expense total in currency units.",
})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Total HTTP requests by method, route and status code.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route"})

// RateLimited counts requests rejected by the per-client limiter.
var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Total requests rejected with 429.",
})
