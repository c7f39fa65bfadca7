package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recsys_fit_duration_seconds",
		Help:    "Wall-clock duration of snapshot fits",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	fitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recsys_fits_total",
		Help: "Snapshot fits by outcome",
	}, []string{"status"})

	recommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recsys_recommendations_total",
		Help: "Recommendation requests served, by strategy that produced the list",
	}, []string{"strategy"})

	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recsys_result_cache_lookups_total",
		Help: "Result cache lookups by outcome",
	}, []string{"outcome"})
)

func observeFit(d time.Duration, ok bool) {
	fitDuration.Observe(d.Seconds())
	status := "error"
	if ok {
		status = "success"
	}
	fitsTotal.WithLabelValues(status).Inc()
}

func observeRecommendation(strategy string) {
	recommendationsTotal.WithLabelValues(strategy).Inc()
}

func observeCache(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	cacheLookupsTotal.WithLabelValues(outcome).Inc()
}
