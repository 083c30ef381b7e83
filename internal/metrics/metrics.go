// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InspectionUnits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "factoryqc",
			Name:      "inspection_units_total",
			Help:      "Inspected units recorded, by disposition and source",
		},
		[]string{"disposition", "source"},
	)

	ProductionSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "factoryqc",
			Name:      "production_submissions_total",
			Help:      "Production submissions accumulated, by outcome",
		},
		[]string{"outcome"},
	)

	AndonAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "factoryqc",
			Name:      "andon_alert_transitions_total",
			Help:      "Andon alert lifecycle transitions",
		},
		[]string{"event"},
	)

	AndonResponseMinutes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "factoryqc",
			Name:      "andon_response_minutes",
			Help:      "Minutes from alert trigger to acknowledgement",
			Buckets:   []float64{1, 2, 5, 10, 15, 30, 60, 120},
		},
	)

	NotificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "factoryqc",
			Name:      "notification_failures_total",
			Help:      "Alert notifications that could not be delivered",
		},
	)

	ParetoTier = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "factoryqc",
			Name:      "pareto_queries_total",
			Help:      "Pareto queries by the data source tier that answered",
		},
		[]string{"source"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "factoryqc",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "factoryqc",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)
