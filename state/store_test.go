package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanpenner/intersection-control/vehicle"
)

func testGroups() map[int]LightGroup {
	return map[int]LightGroup{0: NorthSouth, 1: EastWest, 2: NorthSouth, 3: EastWest}
}

func TestCameraState_RoundTrip(t *testing.T) {
	s := New(testGroups())
	_, ok := s.CameraState(0)
	assert.False(t, ok, "unpublished camera should report not-ok")

	cs := CameraState{CameraID: 0, Counts: map[vehicle.Class]int{vehicle.Car: 3}, WeightedTotal: 3, LastFrameAt: time.Now()}
	s.SetCameraState(0, cs)

	got, ok := s.CameraState(0)
	require.True(t, ok)
	assert.Equal(t, cs.Counts, got.Counts)
	assert.Equal(t, cs.WeightedTotal, got.WeightedTotal)
}

func TestCameraState_UnknownIDIsNoOp(t *testing.T) {
	s := New(testGroups())
	s.SetCameraState(99, CameraState{CameraID: 99})
	_, ok := s.CameraState(99)
	assert.False(t, ok)
}

func TestCameraIDs_ReturnsAscendingOrder(t *testing.T) {
	s := New(testGroups())
	assert.Equal(t, []int{0, 1, 2, 3}, s.CameraIDs())
}

func TestGroupOf(t *testing.T) {
	s := New(testGroups())
	g, ok := s.GroupOf(1)
	require.True(t, ok)
	assert.Equal(t, EastWest, g)

	_, ok = s.GroupOf(42)
	assert.False(t, ok)
}

func TestLightState_DefaultsToRedBeforeFirstPublish(t *testing.T) {
	s := New(testGroups())
	ls := s.LightState(NorthSouth)
	assert.Equal(t, Red, ls.Color)
}

func TestSemaphoreData_BundlesLightsAndEmergency(t *testing.T) {
	s := New(testGroups())
	s.SetLightState(LightState{Group: NorthSouth, Color: Green})
	s.SetLightState(LightState{Group: EastWest, Color: Red})
	s.SetEmergencyMode(EmergencyMode{Active: true, CameraID: 2})

	data := s.SemaphoreData()
	require.Len(t, data.Lights, 2)
	assert.Equal(t, NorthSouth, data.Lights[0].Group)
	assert.Equal(t, EastWest, data.Lights[1].Group)
	assert.True(t, data.Emergency.Active)
	assert.Equal(t, 2, data.Emergency.CameraID)
}

func TestGroupCongestion_SumsWeightedTotalAcrossGroupCameras(t *testing.T) {
	s := New(testGroups())
	// Each camera individually reads as medium (20 < 25), but the
	// group sum (40) crosses into high.
	s.SetCameraState(0, CameraState{CameraID: 0, WeightedTotal: 20, CongestionLevel: vehicle.CongestionMedium})
	s.SetCameraState(2, CameraState{CameraID: 2, WeightedTotal: 20, CongestionLevel: vehicle.CongestionMedium})

	assert.Equal(t, vehicle.CongestionHigh, s.GroupCongestion(NorthSouth))
}

func TestGroupCongestion_UnreportedCameraTreatedAsLowNotExcluded(t *testing.T) {
	s := New(testGroups())
	// Neither camera 0 nor 2 (NorthSouth) has published yet.
	assert.Equal(t, vehicle.CongestionLow, s.GroupCongestion(NorthSouth))
}

func TestOverallCongestion_ScalesThresholdsByGroupCount(t *testing.T) {
	s := New(testGroups())
	// 30 is high for a single group (>=25) but only medium for the
	// whole intersection (two groups double the thresholds to 16/50).
	s.SetCameraState(0, CameraState{CameraID: 0, WeightedTotal: 30})

	assert.Equal(t, vehicle.CongestionMedium, s.OverallCongestion())
}

func TestDashboardTotals_SumsAcrossAllPublishedCameras(t *testing.T) {
	s := New(testGroups())
	s.SetCameraState(0, CameraState{CameraID: 0, Counts: map[vehicle.Class]int{vehicle.Car: 2}, WeightedTotal: 2, Healthy: true})
	s.SetCameraState(1, CameraState{CameraID: 1, Counts: map[vehicle.Class]int{vehicle.Car: 1, vehicle.Truck: 1}, WeightedTotal: 6, Healthy: false})

	totals := s.DashboardTotals()
	assert.Equal(t, 2, totals.CameraCount)
	assert.Equal(t, 1, totals.HealthyCount)
	assert.Equal(t, 8.0, totals.WeightedTotal)
	assert.Equal(t, 3, totals.Counts[vehicle.Car])
	assert.Equal(t, 1, totals.Counts[vehicle.Truck])
}

func TestDashboardTotals_SnapshotIsStableAcrossRepeatedCallsWithNoWriters(t *testing.T) {
	s := New(testGroups())
	s.SetCameraState(0, CameraState{CameraID: 0, Counts: map[vehicle.Class]int{vehicle.Car: 4}, WeightedTotal: 4})

	first := s.DashboardTotals()
	second := s.DashboardTotals()
	assert.Equal(t, first, second)
}

func TestSetProcessingEnabled_IsIdempotentAndReportsChange(t *testing.T) {
	s := New(testGroups())
	assert.True(t, s.ProcessingEnabled(), "processing starts enabled")

	changed := s.SetProcessingEnabled(false)
	assert.True(t, changed)
	assert.False(t, s.ProcessingEnabled())

	changed = s.SetProcessingEnabled(false)
	assert.False(t, changed, "setting the same value twice should report no change")

	changed = s.SetProcessingEnabled(true)
	assert.True(t, changed)
	assert.True(t, s.ProcessingEnabled())
}

func TestCameraState_NoTornReadsUnderConcurrentAccess(t *testing.T) {
	s := New(testGroups())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 500; i++ {
			s.SetCameraState(0, CameraState{
				CameraID:      0,
				Counts:        map[vehicle.Class]int{vehicle.Car: i},
				WeightedTotal: float64(i),
			})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			cs, ok := s.CameraState(0)
			if !ok {
				continue
			}
			assert.Equal(t, float64(cs.Counts[vehicle.Car]), cs.WeightedTotal,
				"counts and weighted total must always come from the same write")
		}
	}()

	wg.Wait()
}
