package detect

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScripted_ReplaysThenHoldsLastFrame(t *testing.T) {
	frame1 := []Detection{{Label: "car", Confidence: 0.9}}
	frame2 := []Detection{{Label: "ambulance", Confidence: 0.95}}
	s := NewScripted(frame1, frame2)

	got1, err := s.Detect(nil)
	assert.NoError(t, err)
	assert.Equal(t, frame1, got1)

	got2, err := s.Detect(nil)
	assert.NoError(t, err)
	assert.Equal(t, frame2, got2)

	got3, err := s.Detect(nil)
	assert.NoError(t, err)
	assert.Equal(t, frame2, got3, "should hold on the last frame once exhausted")
}

func TestScripted_Reset(t *testing.T) {
	frame1 := []Detection{{Label: "car", Confidence: 0.9}}
	s := NewScripted(frame1)

	_, _ = s.Detect(nil)
	s.Reset()

	got, err := s.Detect(nil)
	assert.NoError(t, err)
	assert.Equal(t, frame1, got)
}

func TestScripted_EmptySequence(t *testing.T) {
	s := NewScripted()
	got, err := s.Detect(nil)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestFunc_AdaptsPlainFunction(t *testing.T) {
	var calls int
	var d Detector = Func(func(frame image.Image) ([]Detection, error) {
		calls++
		return []Detection{{Label: "car", Confidence: 1}}, nil
	})

	got, err := d.Detect(nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "car", got[0].Label)
}
