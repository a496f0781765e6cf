package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blog"

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Read-through cache lookups by namespace and result (hit, miss, bypass).",
	}, []string{"namespace", "result"})

	CacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_evictions_total",
		Help:      "Cache entries removed by reason (invalidate, expire).",
	}, []string{"reason"})

	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_total",
		Help:      "Authentication events by kind and outcome.",
	}, []string{"event", "outcome"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
