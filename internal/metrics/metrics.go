// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package metrics exposes the Prometheus instrumentation for the delivery
// core: outcome counters, response-time histograms, breaker state gauges,
// and queue depth.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "webhookd"

// DeliveryMetrics holds every metric the delivery core records.
type DeliveryMetrics struct {
	AttemptsTotal      *prometheus.CounterVec
	ResponseTimeHist   *prometheus.HistogramVec
	BreakerState       *prometheus.GaugeVec
	QueueDepth         prometheus.Gauge
	DeadLetteredTotal  *prometheus.CounterVec
	RateLimitDeferrals *prometheus.CounterVec
}

// New registers and returns the delivery core's metrics against the
// default Prometheus registry.
func New() *DeliveryMetrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the delivery core's metrics against reg
// instead of the default registry, so tests can use a scratch
// prometheus.NewRegistry() and avoid colliding with other registrations in
// the same process.
func NewWithRegisterer(reg prometheus.Registerer) *DeliveryMetrics {
	factory := promauto.With(reg)

	return &DeliveryMetrics{
		AttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delivery_attempts_total",
				Help:      "Total delivery attempts, partitioned by subscription and outcome.",
			},
			[]string{"subscription_id", "outcome"},
		),
		ResponseTimeHist: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "delivery_response_time_seconds",
				Help:      "Observed response time of delivery attempts.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"subscription_id"},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "breaker_state",
				Help:      "Current circuit breaker state per endpoint URL: 0=closed, 1=half-open, 2=open.",
			},
			[]string{"url"},
		),
		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "event_queue_depth",
				Help:      "Number of Events currently pending or failed-retryable and due for dispatch.",
			},
		),
		DeadLetteredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_dead_lettered_total",
				Help:      "Total Events that reached the dead-lettered terminal state, by reason.",
			},
			[]string{"subscription_id", "reason"},
		),
		RateLimitDeferrals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_deferrals_total",
				Help:      "Total Events deferred by the per-endpoint sliding-window rate limiter.",
			},
			[]string{"subscription_id"},
		),
	}
}

// BreakerStateValue maps a breaker.State to the gauge value documented on
// BreakerState above.
func BreakerStateValue(state string) float64 {
	switch state {
	case "closed":
		return 0
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}
