// Package metrics is the Prometheus catalog for detection, signal
// control, and HTTP concerns, all registered through promauto at
// package load.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FrameProcessedTotal counts frames a camera worker finished a
	// detection cycle on.
	FrameProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intersection_frame_processed_total",
			Help: "Total number of frames processed per camera",
		},
		[]string{"camera_id"},
	)

	// FrameProcessDuration measures detect+annotate latency per frame.
	FrameProcessDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intersection_frame_process_duration_seconds",
			Help:    "Time spent detecting and annotating a single frame",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"camera_id"},
	)

	// DetectionErrorsTotal counts detector/source errors per camera.
	DetectionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intersection_detection_errors_total",
			Help: "Total number of detection errors per camera",
		},
		[]string{"camera_id"},
	)

	// ClassDroppedTotal counts detections dropped by the normalizer for
	// having no known class mapping.
	ClassDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intersection_class_dropped_total",
			Help: "Total number of detections dropped for an unrecognized class label",
		},
		[]string{"camera_id"},
	)

	// CameraHealthy reports per-camera health (0=unhealthy, 1=healthy).
	CameraHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "intersection_camera_healthy",
			Help: "Whether a camera is currently producing fresh frames",
		},
		[]string{"camera_id"},
	)

	// WeightedTotal mirrors each camera's current weighted congestion
	// total as a gauge, for dashboards that want the raw number
	// instead of scraping /api/camera_data.
	WeightedTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "intersection_camera_weighted_total",
			Help: "Current weighted congestion total per camera",
		},
		[]string{"camera_id"},
	)

	// PhaseTransitionsTotal counts signal controller phase changes.
	PhaseTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intersection_phase_transitions_total",
			Help: "Total number of light phase transitions",
		},
		[]string{"group", "color"},
	)

	// EmergencyActivationsTotal counts ambulance pre-emption activations.
	EmergencyActivationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intersection_emergency_activations_total",
			Help: "Total number of ambulance pre-emption activations",
		},
	)

	// MJPEGSubscribers tracks active MJPEG subscribers per camera.
	MJPEGSubscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "intersection_mjpeg_subscribers",
			Help: "Current number of MJPEG subscribers per camera",
		},
		[]string{"camera_id"},
	)

	// MJPEGFramesDropped is a cumulative, monotonically-increasing count
	// of frames dropped for slow subscribers per camera. It is a gauge
	// rather than a counter because the broadcaster tracks the running
	// total itself and this just mirrors that value rather than
	// accumulating deltas.
	MJPEGFramesDropped = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "intersection_mjpeg_frames_dropped",
			Help: "Cumulative number of MJPEG frames dropped due to a slow subscriber",
		},
		[]string{"camera_id"},
	)

	// WebsocketSubscribers tracks connected /ws/semaphore clients.
	WebsocketSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intersection_websocket_subscribers",
			Help: "Current number of connected semaphore websocket clients",
		},
	)

	// HTTPRequestDuration measures HTTP request latency by path.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intersection_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsTotal counts HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intersection_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsInFlight tracks active HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intersection_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// CacheHits tracks HTTP cache hits (304 responses) by path.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intersection_http_cache_hits_total",
			Help: "Total number of HTTP cache hits (304 Not Modified responses)",
		},
		[]string{"path"},
	)

	// ResponseSizeBytes measures HTTP response sizes.
	ResponseSizeBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intersection_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 7),
		},
		[]string{"path"},
	)

	// MemoryUsageBytes tracks process memory usage, sampled by
	// RecordMemoryUsage from the TUI stats loop.
	MemoryUsageBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intersection_memory_usage_bytes",
			Help: "Process memory usage in bytes",
		},
	)
)
