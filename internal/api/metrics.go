package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scoreRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telematics_score_requests_total",
		Help: "Total number of scoring requests served.",
	})
	priceRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telematics_price_requests_total",
		Help: "Total number of pricing requests served.",
	})
	requestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telematics_request_failures_total",
		Help: "Total number of failed requests by reason.",
	}, []string{"reason"})
	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "telematics_request_duration_seconds",
		Help:    "Duration of scoring/pricing requests.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	})
)
