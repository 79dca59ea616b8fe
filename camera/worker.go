// Package camera runs one detection loop per physical camera: pull a
// frame, detect vehicles, normalize and score them, annotate the
// frame, and publish both the frame and the resulting CameraState.
package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"github.com/stefanpenner/intersection-control/detect"
	"github.com/stefanpenner/intersection-control/state"
	"github.com/stefanpenner/intersection-control/vehicle"
)

// Config controls one worker's pacing and health thresholds.
type Config struct {
	// MinFrameInterval floors the loop rate so a CPU-bound detector
	// doesn't spin as fast as the source can hand it frames.
	MinFrameInterval time.Duration
	// StalenessWindow is how long a camera can go without a new frame
	// before CameraState.Healthy flips to false.
	StalenessWindow time.Duration
	// ConfidenceThreshold filters out low-confidence detections before
	// they're counted.
	ConfidenceThreshold float32
}

// DefaultConfig paces at ~30fps with a generous staleness window.
func DefaultConfig() Config {
	return Config{
		MinFrameInterval:    30 * time.Millisecond,
		StalenessWindow:     5 * time.Second,
		ConfidenceThreshold: 0.5,
	}
}

// Metrics is the set of callbacks a worker reports through; nil
// callbacks are skipped, so tests can construct a Worker without
// wiring real Prometheus collectors.
type Metrics struct {
	FrameProcessed func(cameraID int, duration time.Duration)
	DetectionError func(cameraID int, err error)
	ClassDropped   func(cameraID int, n int)
}

// Worker owns one camera's frame source, detector, mailbox, and the
// single CameraState row it is allowed to write.
type Worker struct {
	CameraID int

	source   FrameSource
	detector detect.Detector
	norm     vehicle.Normalizer
	mailbox  *Mailbox
	store    *state.Store
	cfg      Config
	metrics  Metrics

	seq           uint64
	wasProcessing bool
	sourceFails   int
}

// maxConsecutiveSourceFails is how many frame reads in a row may fail
// before the worker gives up on its source and terminates. The source
// has already done its own rewind-on-EOS by the time an error
// surfaces here.
const maxConsecutiveSourceFails = 3

// NewWorker builds a Worker for cameraID. store must already know
// about cameraID (via the group assignment passed to state.New).
func NewWorker(cameraID int, source FrameSource, detector detect.Detector, store *state.Store, cfg Config, metrics Metrics) *Worker {
	return &Worker{
		CameraID:      cameraID,
		source:        source,
		detector:      detector,
		norm:          vehicle.NewNormalizer(),
		mailbox:       NewMailbox(),
		store:         store,
		cfg:           cfg,
		metrics:       metrics,
		wasProcessing: true,
	}
}

// Mailbox exposes the worker's frame mailbox to the MJPEG broadcaster.
func (w *Worker) Mailbox() *Mailbox { return w.mailbox }

// Run drives the detect-publish loop until ctx is cancelled or the
// frame source fails repeatedly. A dead source terminates only this
// worker; its camera stays in the store marked unhealthy and the
// controller treats its counts as zero.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.MinFrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.step(ctx); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) step(ctx context.Context) error {
	frame, err := w.source.NextFrame(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.sourceFails++
		if w.metrics.DetectionError != nil {
			w.metrics.DetectionError(w.CameraID, err)
		}
		if w.sourceFails >= maxConsecutiveSourceFails {
			w.publishUnhealthy()
			return fmt.Errorf("camera %d: frame source failed %d reads in a row: %w", w.CameraID, w.sourceFails, err)
		}
		return nil
	}
	w.sourceFails = 0

	processing := w.store.ProcessingEnabled()
	resuming := processing && !w.wasProcessing
	w.wasProcessing = processing
	if resuming {
		w.seq = 0
	}

	if !processing {
		// Keep the stream alive with raw frames carrying a visible
		// "detection off" band, but stop publishing detection state so
		// the dashboard's counts freeze at their last values.
		w.publishFrame(annotateDisabled(frame))
		return nil
	}

	start := time.Now()
	detections, err := w.detector.Detect(frame)
	duration := time.Since(start)
	if err != nil {
		if w.metrics.DetectionError != nil {
			w.metrics.DetectionError(w.CameraID, err)
		}
		w.publishUnhealthy()
		return nil
	}

	raw := make(map[string]int, len(detections))
	for _, d := range detections {
		if d.Confidence < w.cfg.ConfidenceThreshold {
			continue
		}
		raw[d.Label]++
	}
	counts, dropped := w.norm.NormalizeCounts(raw)
	if dropped > 0 && w.metrics.ClassDropped != nil {
		w.metrics.ClassDropped(w.CameraID, dropped)
	}

	total := vehicle.WeightedTotal(counts)
	level := vehicle.Congestion(total, w.store.Thresholds())

	w.seq++
	cs := state.CameraState{
		CameraID:        w.CameraID,
		Counts:          counts,
		WeightedTotal:   total,
		CongestionLevel: level,
		LastFrameAt:     start,
		FrameSeq:        w.seq,
		Healthy:         true,
	}
	w.store.SetCameraState(w.CameraID, cs)

	w.publishFrame(annotate(frame, counts))

	if w.metrics.FrameProcessed != nil {
		w.metrics.FrameProcessed(w.CameraID, duration)
	}
	return nil
}

// publishFrame JPEG-encodes img into the mailbox. Encode failures skip
// the frame rather than stopping the loop.
func (w *Worker) publishFrame(img image.Image) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err == nil {
		w.mailbox.Publish(buf.Bytes())
	}
}

// publishUnhealthy marks the camera unhealthy without advancing its
// sequence or counts, so a transient detector error doesn't masquerade
// as "zero vehicles".
func (w *Worker) publishUnhealthy() {
	prev, ok := w.store.CameraState(w.CameraID)
	if !ok {
		prev = state.CameraState{CameraID: w.CameraID, Counts: map[vehicle.Class]int{}}
	}
	prev.Healthy = false
	w.store.SetCameraState(w.CameraID, prev)
}
