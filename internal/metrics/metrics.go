// Package metrics declares the Prometheus collectors exported by the
// collision engine, grounded on the teacher's promauto.NewGaugeVec /
// NewCounterVec idiom: package-level vars registered at init time via
// promauto, scraped through the cached handler in internal/middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveVehicles is the current count of vehicles with a live geo
	// index entry (i.e. within their telemetry TTL window).
	ActiveVehicles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collisionguard_active_vehicles",
		Help: "Current number of vehicles with a non-expired telemetry entry",
	})

	// OpenSessions is the current count of bound session channels.
	OpenSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collisionguard_open_sessions",
		Help: "Current number of open, bound session channels",
	})

	// TelemetryMessagesTotal counts every inbound telemetry message by
	// how the ingress pipeline disposed of it.
	TelemetryMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collisionguard_telemetry_messages_total",
		Help: "Total inbound telemetry messages by outcome",
	}, []string{"outcome"}) // outcome: received, invalid, dropped

	// ThreatsEmittedTotal counts every threat notification dispatched,
	// by predictor type.
	ThreatsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collisionguard_threats_emitted_total",
		Help: "Total threat notifications emitted by predictor type",
	}, []string{"type"})

	// NeighborsEvaluated is a histogram of how many neighbors the
	// predictor bank considered per processed message.
	NeighborsEvaluated = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "collisionguard_neighbors_evaluated",
		Help:    "Number of neighbor vehicles evaluated per processed telemetry message",
		Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 50},
	})

	// PipelineDuration is a histogram of per-message ingress pipeline
	// latency, end to end (validate through dispatch).
	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "collisionguard_pipeline_duration_seconds",
		Help:    "Wall-clock duration of the ingress pipeline per telemetry message",
		Buckets: prometheus.DefBuckets,
	})

	// DispatchFailuresTotal counts counterpart send failures swallowed
	// by the dispatcher (spec.md §4.7/§7: never propagated).
	DispatchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collisionguard_dispatch_failures_total",
		Help: "Total counterpart notification sends that failed and were dropped",
	})

	// StaleNeighborsSkippedTotal counts neighbors skipped for exceeding
	// STALE_MS (spec.md §4.8 step 8).
	StaleNeighborsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collisionguard_stale_neighbors_skipped_total",
		Help: "Total neighbor samples skipped for exceeding the staleness threshold",
	})

	// OutgoingLatency tracks the latency of outbound HTTP calls made by
	// app.NewPooledClient, labeled by target URL, method, and status.
	// Used by the optional auth-validation collaborator call.
	OutgoingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collisionguard_outgoing_request_duration_seconds",
		Help:    "Latency of outgoing HTTP requests made by the service",
		Buckets: prometheus.DefBuckets,
	}, []string{"url", "method", "status"})
)
