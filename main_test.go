package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stefanpenner/intersection-control/state"
)

func TestCameraGroupsCoverBothGroups(t *testing.T) {
	sawNorthSouth, sawEastWest := false, false
	for _, g := range cameraGroups {
		switch g {
		case state.NorthSouth:
			sawNorthSouth = true
		case state.EastWest:
			sawEastWest = true
		}
	}
	assert.True(t, sawNorthSouth, "expected at least one camera assigned to NorthSouth")
	assert.True(t, sawEastWest, "expected at least one camera assigned to EastWest")
}

func TestDemoDetectionsNonEmptyForEveryConfiguredCamera(t *testing.T) {
	for id := range cameraGroups {
		frames := demoDetections(id)
		assert.NotEmpty(t, frames, "camera %d should have a scripted detection sequence", id)
	}
}

func TestDemoFrameHasExpectedBounds(t *testing.T) {
	img := demoFrame()
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())
}
