package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orchestrator_sessions_active",
		Help: "Currently live playback sessions",
	})

	PlaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orchestrator_plays_total",
		Help: "Total play requests accepted",
	})

	PlanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orchestrator_plan_build_duration_seconds",
		Help:    "Time to build a playback plan (segment + classify + map)",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
	})

	DispatchResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanout_dispatch_results_total",
		Help: "Device dispatch outcomes by status",
	}, []string{"status"})

	DispatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fanout_dispatch_latency_seconds",
		Help:    "Per-device dispatch latency including retries",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	DevicesOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "device_registry_online",
		Help: "Devices currently marked online",
	})

	ManifestRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_manifest_rebuilds_total",
		Help: "Manifest recomputations",
	})

	SyncSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sync_ws_subscribers",
		Help: "Connected sync push subscribers",
	})

	SyncLagDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_ws_lag_drops_total",
		Help: "Frames dropped from slow subscriber outboxes",
	})

	QuotaRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_quota_rejections_total",
		Help: "Requests rejected by daily quota, by route class",
	}, []string{"class"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_rate_limited_total",
		Help: "Requests rejected by the per-key token bucket",
	})

	EmotionPredictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emotion_predictions_total",
		Help: "Emotion readings by source and label",
	}, []string{"source", "label"})
)
