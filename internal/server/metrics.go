package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reserve_forecast_requests_total",
		Help: "API requests served, by route and outcome.",
	}, []string{"route", "outcome"})

	simulationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reserve_forecast_simulation_seconds",
		Help:    "Wall time of projection and optimization runs.",
		Buckets: prometheus.DefBuckets,
	})
)

// observeSimulation records the duration of one engine run.
func observeSimulation(start time.Time) {
	simulationSeconds.Observe(time.Since(start).Seconds())
}
