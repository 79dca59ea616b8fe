package camera

import (
	"context"
	"fmt"
	"image"
)

// FrameSource yields frames for a camera worker to run detection on.
// A real implementation wraps a video device or RTSP/file decoder;
// this module keeps the decoder behind the interface rather than
// binding to one.
type FrameSource interface {
	// NextFrame blocks until a frame is available or ctx is done. A
	// looping file source should rewind on end-of-stream rather than
	// returning an error.
	NextFrame(ctx context.Context) (image.Image, error)
}

// LoopingSource cycles through a fixed set of frames, rewinding to the
// start once exhausted. It stands in for rewind-on-EOS file playback
// and is also useful for deterministic worker tests.
type LoopingSource struct {
	frames []image.Image
	pos    int
}

// NewLoopingSource builds a LoopingSource over frames, which must be
// non-empty.
func NewLoopingSource(frames []image.Image) (*LoopingSource, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("camera: looping source needs at least one frame")
	}
	return &LoopingSource{frames: frames}, nil
}

func (s *LoopingSource) NextFrame(ctx context.Context) (image.Image, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f := s.frames[s.pos]
	s.pos = (s.pos + 1) % len(s.frames)
	return f, nil
}
