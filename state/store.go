package state

import (
	"sync"
	"sync/atomic"

	"github.com/stefanpenner/intersection-control/vehicle"
)

// cameraRow guards one CameraState behind its own lock so one camera's
// write never blocks a read of another camera, and so a reader never
// observes a state half-written by its worker. Readers get
// snapshot's return value, never a pointer into the row, so a later
// write can't mutate what a caller is still looking at.
type cameraRow struct {
	mu    sync.RWMutex
	state CameraState
	set   bool
}

func (r *cameraRow) snapshot() (CameraState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state, r.set
}

func (r *cameraRow) write(s CameraState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
	r.set = true
}

type lightRow struct {
	mu    sync.RWMutex
	state LightState
}

func (r *lightRow) snapshot() LightState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *lightRow) write(s LightState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

type emergencyRow struct {
	mu    sync.RWMutex
	state EmergencyMode
}

func (r *emergencyRow) snapshot() EmergencyMode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *emergencyRow) write(s EmergencyMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

// Store is the intersection's concurrent State Store. One cameraRow
// per camera, one lightRow per group, one emergencyRow, each
// independently lockable, each only ever written by its single owner
// (a camera worker for its row, the signal controller for the
// light/emergency rows).
type Store struct {
	cameras   map[int]*cameraRow
	groupOf   map[int]LightGroup
	lights    map[LightGroup]*lightRow
	emergency emergencyRow

	processingEnabled atomic.Bool
	thresholds        vehicle.Thresholds
}

// New builds a Store for the given camera IDs, each assigned to a
// light group. groupOf must cover every ID that SetCameraState will
// ever be called with.
func New(groupOf map[int]LightGroup) *Store {
	s := &Store{
		cameras: make(map[int]*cameraRow, len(groupOf)),
		groupOf: groupOf,
		lights: map[LightGroup]*lightRow{
			NorthSouth: {},
			EastWest:   {},
		},
		thresholds: vehicle.DefaultThresholds,
	}
	for id := range groupOf {
		s.cameras[id] = &cameraRow{}
	}
	s.processingEnabled.Store(true)
	return s
}

// SetCameraState publishes a new CameraState for cameraID. Counts must
// not be mutated by the caller after this call; the row takes
// ownership of the map.
func (s *Store) SetCameraState(cameraID int, cs CameraState) {
	row, ok := s.cameras[cameraID]
	if !ok {
		return
	}
	row.write(cs)
}

// CameraState returns the most recent snapshot for cameraID. The
// second return value is false if no state has ever been published.
func (s *Store) CameraState(cameraID int) (CameraState, bool) {
	row, ok := s.cameras[cameraID]
	if !ok {
		return CameraState{}, false
	}
	return row.snapshot()
}

// AllCameraStates returns a snapshot of every camera that has
// published at least once, ordered by camera ID.
func (s *Store) AllCameraStates() []CameraState {
	out := make([]CameraState, 0, len(s.cameras))
	for _, id := range s.CameraIDs() {
		if cs, set := s.cameras[id].snapshot(); set {
			out = append(out, cs)
		}
	}
	return out
}

// CameraIDs returns every camera ID the store was constructed with, in
// ascending order.
func (s *Store) CameraIDs() []int {
	ids := make([]int, 0, len(s.groupOf))
	for id := range s.groupOf {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

// GroupOf returns which light group a camera feeds into.
func (s *Store) GroupOf(cameraID int) (LightGroup, bool) {
	g, ok := s.groupOf[cameraID]
	return g, ok
}

// SetLightState publishes a new LightState for its group.
func (s *Store) SetLightState(ls LightState) {
	row, ok := s.lights[ls.Group]
	if !ok {
		return
	}
	row.write(ls)
}

// LightState returns the current snapshot for a group. A group that
// has never been published reads as red.
func (s *Store) LightState(group LightGroup) LightState {
	row := s.lights[group]
	if row == nil {
		return LightState{Group: group, Color: Red}
	}
	ls := row.snapshot()
	if ls.Color == "" {
		return LightState{Group: group, Color: Red}
	}
	return ls
}

// AllLights returns both groups' current state, North-South first.
func (s *Store) AllLights() []LightState {
	return []LightState{s.LightState(NorthSouth), s.LightState(EastWest)}
}

// SetEmergencyMode publishes a new EmergencyMode.
func (s *Store) SetEmergencyMode(em EmergencyMode) { s.emergency.write(em) }

// EmergencyMode returns the current snapshot.
func (s *Store) EmergencyMode() EmergencyMode { return s.emergency.snapshot() }

// SemaphoreData bundles AllLights and EmergencyMode for the combined
// JSON endpoint.
func (s *Store) SemaphoreData() SemaphoreData {
	return SemaphoreData{Lights: s.AllLights(), Emergency: s.EmergencyMode()}
}

// GroupCongestion sums weighted_total across every camera assigned to
// group and classifies the sum against the store's thresholds. Cameras
// that have never published contribute zero, not an exclusion, so a
// single unreported camera can't silently starve its group of green
// time.
func (s *Store) GroupCongestion(group LightGroup) vehicle.CongestionLevel {
	var total float64
	for id, g := range s.groupOf {
		if g != group {
			continue
		}
		cs, ok := s.cameras[id].snapshot()
		if !ok {
			continue
		}
		total += cs.WeightedTotal
	}
	return vehicle.Congestion(total, s.thresholds)
}

// DashboardTotals sums counts and weighted totals across every camera
// that has published state.
func (s *Store) DashboardTotals() DashboardTotals {
	totals := DashboardTotals{Counts: make(map[vehicle.Class]int)}
	for _, row := range s.cameras {
		cs, ok := row.snapshot()
		if !ok {
			continue
		}
		totals.CameraCount++
		if cs.Healthy {
			totals.HealthyCount++
		}
		totals.WeightedTotal += cs.WeightedTotal
		for class, n := range cs.Counts {
			totals.Counts[class] += n
		}
	}
	return totals
}

// OverallCongestion classifies the intersection-wide weighted total.
// The per-group thresholds are scaled by the number of groups so a
// fully loaded intersection reads high, not merely the sum of two
// mediums.
func (s *Store) OverallCongestion() vehicle.CongestionLevel {
	scaled := vehicle.Thresholds{
		LowMax:    s.thresholds.LowMax * float64(len(s.lights)),
		MediumMax: s.thresholds.MediumMax * float64(len(s.lights)),
	}
	return vehicle.Congestion(s.DashboardTotals().WeightedTotal, scaled)
}

// SetProcessingEnabled toggles detection processing on or off. It is
// idempotent: setting the same value twice is a no-op from the
// caller's perspective (changed reports whether this call actually changed
// the value, which callers may use to decide whether to reset
// counters).
func (s *Store) SetProcessingEnabled(enabled bool) (changed bool) {
	return s.processingEnabled.Swap(enabled) != enabled
}

// ProcessingEnabled reports whether camera workers should currently be
// publishing new detection state.
func (s *Store) ProcessingEnabled() bool { return s.processingEnabled.Load() }

// Thresholds returns the congestion thresholds new CameraState values
// should be classified against.
func (s *Store) Thresholds() vehicle.Thresholds { return s.thresholds }
