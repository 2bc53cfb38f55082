package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// EstimateComputeTotal counts landed-cost calculations by trigger and outcome.
	EstimateComputeTotal *prometheus.CounterVec
	// EstimateComputeDuration records landed-cost calculation latency in milliseconds.
	EstimateComputeDuration prometheus.Histogram
	// ShipmentEventTotal counts shipment tracking events by resulting status.
	ShipmentEventTotal *prometheus.CounterVec
	// NotificationDeliveryTotal tracks notification dispatch outcomes.
	NotificationDeliveryTotal *prometheus.CounterVec
	// NotificationDLQTotal counts notification tasks moved to the dead-letter queue.
	NotificationDLQTotal prometheus.Counter
	// RateLookupTotal counts exchange-rate lookups by source (cache, provider, fallback).
	RateLookupTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific
// Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		EstimateComputeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimate_compute_total",
			Help:      "Count of landed-cost calculations by trigger and outcome.",
		}, []string{"trigger", "result"})
		EstimateComputeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "estimate_compute_duration_ms",
			Help:      "Latency of landed-cost calculations in milliseconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		})
		ShipmentEventTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipment_event_total",
			Help:      "Count of shipment tracking events by resulting status.",
		}, []string{"status"})
		NotificationDeliveryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_delivery_total",
			Help:      "Count of notification delivery outcomes.",
		}, []string{"channel", "result"})
		NotificationDLQTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_dlq_total",
			Help:      "Number of notification tasks moved to the dead-letter queue.",
		})
		RateLookupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_lookup_total",
			Help:      "Count of exchange-rate lookups by source.",
		}, []string{"source"})

		registerOrReuse(reg, EstimateComputeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				EstimateComputeTotal = v
			}
		})
		registerOrReuse(reg, EstimateComputeDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				EstimateComputeDuration = v
			}
		})
		registerOrReuse(reg, ShipmentEventTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ShipmentEventTotal = v
			}
		})
		registerOrReuse(reg, NotificationDeliveryTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				NotificationDeliveryTotal = v
			}
		})
		registerOrReuse(reg, NotificationDLQTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				NotificationDLQTotal = v
			}
		})
		registerOrReuse(reg, RateLookupTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RateLookupTotal = v
			}
		})
	})
}
