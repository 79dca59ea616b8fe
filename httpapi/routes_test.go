package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanpenner/intersection-control/broadcast"
	"github.com/stefanpenner/intersection-control/state"
	"github.com/stefanpenner/intersection-control/vehicle"
)

func newTestDeps() (Deps, *state.Store) {
	store := state.New(map[int]state.LightGroup{0: state.NorthSouth, 1: state.EastWest})
	return Deps{
		Store:           store,
		Broadcasters:    map[int]*broadcast.MJPEG{},
		Hub:             broadcast.NewHub(),
		StalenessWindow: time.Second,
		WriteTimeout:    time.Second,
		Ready:           func() bool { return true },
	}, store
}

func TestCameraDataRoute_ReturnsCameraState(t *testing.T) {
	deps, store := newTestDeps()
	store.SetCameraState(0, state.CameraState{CameraID: 0, WeightedTotal: 4, LastFrameAt: time.Now()})
	e := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/camera_data/0", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"camera_id":0`)
	assert.Contains(t, rec.Body.String(), `"detection_data"`)
	assert.Contains(t, rec.Body.String(), `"weighted_total":4`)
}

func TestCameraDataRoute_404ForOutOfRangeCamera(t *testing.T) {
	deps, _ := newTestDeps()
	e := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/camera_data/99", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCameraDataRoute_JSONSuffixIsAccepted(t *testing.T) {
	deps, store := newTestDeps()
	store.SetCameraState(0, state.CameraState{CameraID: 0})
	e := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/camera_data/0.json", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDashboardTotalsRoute(t *testing.T) {
	deps, store := newTestDeps()
	store.SetCameraState(0, state.CameraState{CameraID: 0, WeightedTotal: 3})
	e := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard_totals", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"weighted_total":3`)
}

func TestSemaphoreDataRoute(t *testing.T) {
	deps, store := newTestDeps()
	store.SetLightState(state.LightState{Group: state.NorthSouth, Color: state.Green})
	e := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/semaphore_data", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"group_1"`)
	assert.Contains(t, body, `"current_color":"green"`)
	assert.Contains(t, body, `"emergency_mode"`)
	assert.Contains(t, body, `"group_congestion"`)
}

func TestDetectionDataRoute_AggregatesCamerasAndGroups(t *testing.T) {
	deps, store := newTestDeps()
	store.SetCameraState(0, state.CameraState{
		CameraID:      0,
		Counts:        map[vehicle.Class]int{vehicle.Car: 3, vehicle.Truck: 1},
		WeightedTotal: 8,
		LastFrameAt:   time.Now(),
	})
	e := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/detection_data", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		DashboardTotals struct {
			TotalVehicles int                   `json:"total_vehicles"`
			TypeTotals    map[vehicle.Class]int `json:"type_totals"`
		} `json:"dashboard_totals"`
		CamerasData     map[string]state.CameraState `json:"cameras_data"`
		GroupCongestion map[string]string            `json:"group_congestion"`
		Processing      bool                         `json:"processing"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 4, resp.DashboardTotals.TotalVehicles)
	assert.Equal(t, 3, resp.DashboardTotals.TypeTotals[vehicle.Car])
	assert.Contains(t, resp.DashboardTotals.TypeTotals, vehicle.Ambulance, "every class appears even at zero")
	assert.Contains(t, resp.CamerasData, "camera_0")
	assert.Contains(t, resp.GroupCongestion, "group_1")
	assert.Contains(t, resp.GroupCongestion, "group_2")
	assert.True(t, resp.Processing)
}

func TestDetectionDataRoute_ReportsProcessingOff(t *testing.T) {
	deps, store := newTestDeps()
	store.SetProcessingEnabled(false)
	e := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/detection_data", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"processing":false`)
}

func TestToggleProcessingRoute_BareTogglesCurrentState(t *testing.T) {
	deps, store := newTestDeps()
	require.True(t, store.ProcessingEnabled())
	e := New(deps)

	req := httptest.NewRequest(http.MethodPost, "/api/toggle_processing", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"processing":false`)
	assert.False(t, store.ProcessingEnabled())
}

func TestToggleProcessingRoute_UnprefixedAliasWorks(t *testing.T) {
	deps, store := newTestDeps()
	e := New(deps)

	req := httptest.NewRequest(http.MethodPost, "/toggle_processing", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, store.ProcessingEnabled())
}

func TestToggleProcessingRoute_TwiceReturnsToOriginalState(t *testing.T) {
	deps, store := newTestDeps()
	e := New(deps)

	req1 := httptest.NewRequest(http.MethodPost, "/api/toggle_processing", nil)
	e.ServeHTTP(httptest.NewRecorder(), req1)
	req2 := httptest.NewRequest(http.MethodPost, "/api/toggle_processing", nil)
	e.ServeHTTP(httptest.NewRecorder(), req2)

	assert.True(t, store.ProcessingEnabled())
}

func TestToggleProcessingRoute_ExplicitBodySetsTargetState(t *testing.T) {
	deps, store := newTestDeps()
	e := New(deps)

	req := httptest.NewRequest(http.MethodPost, "/api/toggle_processing", strings.NewReader(`{"enabled":false}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, store.ProcessingEnabled())
}

func TestVideoFeedRoute_404ForUnknownCamera(t *testing.T) {
	deps, _ := newTestDeps()
	e := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/video_feed/7", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthzRoute_ServiceUnavailableWhenNotReady(t *testing.T) {
	deps, _ := newTestDeps()
	deps.Ready = func() bool { return false }
	e := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthzRoute_OKWhenAllCamerasHealthy(t *testing.T) {
	deps, store := newTestDeps()
	store.SetCameraState(0, state.CameraState{CameraID: 0, LastFrameAt: time.Now()})
	store.SetCameraState(1, state.CameraState{CameraID: 1, LastFrameAt: time.Now()})
	e := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthzRoute_UnavailableWhenACameraIsStale(t *testing.T) {
	deps, store := newTestDeps()
	store.SetCameraState(0, state.CameraState{CameraID: 0, LastFrameAt: time.Now().Add(-time.Hour)})
	store.SetCameraState(1, state.CameraState{CameraID: 1, LastFrameAt: time.Now()})
	e := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRoute_ExposesPrometheusFormat(t *testing.T) {
	deps, _ := newTestDeps()
	e := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# HELP")
}

func TestDebugRoute_OnlyRegisteredInDevMode(t *testing.T) {
	deps, _ := newTestDeps()
	e := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/debug", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	deps.DevMode = true
	e = New(deps)
	req = httptest.NewRequest(http.MethodGet, "/api/debug", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDashboardTotalsRoute_NotModifiedOnMatchingETag(t *testing.T) {
	deps, store := newTestDeps()
	store.SetCameraState(0, state.CameraState{CameraID: 0, WeightedTotal: 1})
	e := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard_totals", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req2 := httptest.NewRequest(http.MethodGet, "/api/dashboard_totals", nil)
	req2.Header.Set("If-None-Match", etag)
	rec2 := httptest.NewRecorder()
	e.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusNotModified, rec2.Code)
}
