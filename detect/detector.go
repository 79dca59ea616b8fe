// Package detect defines the Detector contract a camera worker runs
// every frame through, plus a scripted implementation used by tests
// and by camera sources that have no real model attached.
package detect

import "image"

// Detection is a single classified object in a frame. Box is a
// normalized xyxy bounding box (0..1 on each axis); the camera worker
// does not read it, so it plays no part in congestion scoring or in
// the frame overlay.
type Detection struct {
	Label      string
	Confidence float32
	Box        [4]float32
}

// Detector classifies the vehicles present in a single frame. A
// Detector is expected to be stateless across calls; confidence
// filtering is the camera worker's job, not the Detector's, so
// implementations should return every detection they find.
type Detector interface {
	Detect(frame image.Image) ([]Detection, error)
}

// Func adapts a plain function to the Detector interface, the same way
// http.HandlerFunc adapts a function to http.Handler.
type Func func(frame image.Image) ([]Detection, error)

func (f Func) Detect(frame image.Image) ([]Detection, error) { return f(frame) }
