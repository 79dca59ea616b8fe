// Package state is the intersection's concurrent State Store: the
// single place camera workers publish per-camera detection state and
// the signal controller publishes light/emergency state, and the only
// place HTTP handlers read any of it from.
package state

import (
	"time"

	"github.com/stefanpenner/intersection-control/vehicle"
)

// CameraState is an immutable snapshot of one camera's most recent
// detection cycle. Counts reflect the most recent frame only; there is
// no temporal smoothing.
type CameraState struct {
	CameraID        int                      `json:"camera_id"`
	Counts          map[vehicle.Class]int    `json:"counts"`
	WeightedTotal   float64                  `json:"weighted_total"`
	CongestionLevel vehicle.CongestionLevel  `json:"congestion_level"`
	LastFrameAt     time.Time                `json:"last_frame_at"`
	FrameSeq        uint64                   `json:"frame_seq"`
	Healthy         bool                     `json:"healthy"`
}

// LightGroup is one of the two traffic-light groups at the
// intersection.
type LightGroup string

const (
	NorthSouth LightGroup = "north_south"
	EastWest   LightGroup = "east_west"
)

// Opposite returns the other group, used when computing a green
// duration from both groups' congestion.
func (g LightGroup) Opposite() LightGroup {
	if g == NorthSouth {
		return EastWest
	}
	return NorthSouth
}

// LightColor is a single light's displayed color.
type LightColor string

const (
	Green  LightColor = "green"
	Yellow LightColor = "yellow"
	Red    LightColor = "red"
)

// LightState is an immutable snapshot of one light group's current
// phase.
type LightState struct {
	Group            LightGroup `json:"group"`
	Color            LightColor `json:"color"`
	DeadlineAt       time.Time  `json:"deadline_at"`
	GreenDurationSec float64    `json:"green_duration_sec"`
}

// EmergencyMode is an immutable snapshot of whether an ambulance
// pre-emption is currently in effect.
type EmergencyMode struct {
	Active   bool      `json:"active"`
	CameraID int       `json:"camera_id"`
	EndAt    time.Time `json:"end_at"`
}

// DashboardTotals aggregates state across every camera.
type DashboardTotals struct {
	Counts        map[vehicle.Class]int `json:"counts"`
	WeightedTotal float64               `json:"weighted_total"`
	CameraCount   int                   `json:"camera_count"`
	HealthyCount  int                   `json:"healthy_count"`
}

// SemaphoreData is the combined payload served by /api/semaphore_data:
// both light groups plus the current emergency mode.
type SemaphoreData struct {
	Lights    []LightState  `json:"lights"`
	Emergency EmergencyMode `json:"emergency"`
}
