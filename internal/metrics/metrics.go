// Package metrics exposes the service's Prometheus registry and handler.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AskRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ruleoracle_ask_requests_total", Help: "Total /ask requests by outcome"},
		[]string{"outcome"},
	)
	AskLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "ruleoracle_ask_latency_seconds", Help: "/ask response latency"},
		[]string{"outcome"},
	)
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ruleoracle_cache_hits_total", Help: "Cache hits by cache name"},
		[]string{"cache"},
	)
	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ruleoracle_cache_misses_total", Help: "Cache misses by cache name"},
		[]string{"cache"},
	)
	RateLimitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ruleoracle_rate_limit_rejections_total", Help: "Requests rejected by the sliding-window limiter"},
		[]string{"endpoint"},
	)
	BudgetRejections = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ruleoracle_budget_rejections_total", Help: "Requests rejected by the daily budget gate"},
	)
	IngestJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ruleoracle_ingest_jobs_total", Help: "Ingestion jobs by terminal state"},
		[]string{"state"},
	)
	StartupTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "ruleoracle_startup_timestamp", Help: "Unix time the process started"},
	)
)

func init() {
	prometheus.MustRegister(
		AskRequests, AskLatency, CacheHits, CacheMisses,
		RateLimitRejections, BudgetRejections, IngestJobs, StartupTimestamp,
	)
	StartupTimestamp.Set(float64(time.Now().Unix()))
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler { return promhttp.Handler() }
