package detect

import (
	"image"
	"sync"
)

// Scripted replays a fixed sequence of detection sets, one per call to
// Detect, holding on the last entry once the sequence is exhausted.
// It exists so camera worker and signal controller tests can drive a
// specific, reproducible sequence of congestion/ambulance scenarios
// without decoding real video or running a real model.
type Scripted struct {
	mu     sync.Mutex
	frames [][]Detection
	pos    int
}

// NewScripted returns a Scripted detector that yields frames in order.
func NewScripted(frames ...[]Detection) *Scripted {
	return &Scripted{frames: frames}
}

func (s *Scripted) Detect(_ image.Image) ([]Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) == 0 {
		return nil, nil
	}
	idx := s.pos
	if idx >= len(s.frames) {
		idx = len(s.frames) - 1
	} else {
		s.pos++
	}
	out := make([]Detection, len(s.frames[idx]))
	copy(out, s.frames[idx])
	return out, nil
}

// Reset rewinds Scripted back to its first frame.
func (s *Scripted) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = 0
}
