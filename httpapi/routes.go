// Package httpapi is the intersection's read-only HTTP surface: live
// MJPEG feeds, JSON camera/dashboard/semaphore endpoints, a
// toggle-processing control, a websocket push of semaphore changes,
// healthcheck, and metrics.
package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stefanpenner/intersection-control/broadcast"
	"github.com/stefanpenner/intersection-control/metrics"
	"github.com/stefanpenner/intersection-control/state"
	"github.com/stefanpenner/intersection-control/vehicle"
)

// Deps bundles everything the HTTP surface reads from; it never
// writes to the store itself (ToggleProcessing goes through
// state.Store.SetProcessingEnabled, which is safe for any caller).
type Deps struct {
	Store           *state.Store
	Broadcasters    map[int]*broadcast.MJPEG
	Hub             *broadcast.Hub
	DevMode         bool
	StalenessWindow time.Duration
	WriteTimeout    time.Duration
	Ready           func() bool
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// New builds the echo.Echo serving this surface.
func New(deps Deps) *echo.Echo {
	if deps.WriteTimeout == 0 {
		deps.WriteTimeout = 3 * time.Second
	}
	e := echo.New()
	e.HideBanner = true
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	e.Use(MetricsMiddleware())

	e.GET("/video_feed/:camera_id", videoFeedRoute(deps))
	e.GET("/api/camera_data/*", cameraDataRoute(deps))
	e.GET("/api/detection_data", detectionDataRoute(deps))
	e.GET("/api/detection_data.json", detectionDataRoute(deps))
	e.GET("/api/dashboard_totals", dashboardTotalsRoute(deps))
	e.GET("/api/dashboard_totals.json", dashboardTotalsRoute(deps))
	e.GET("/api/semaphore_data", semaphoreDataRoute(deps))
	e.GET("/api/semaphore_data.json", semaphoreDataRoute(deps))
	e.POST("/toggle_processing", toggleProcessingRoute(deps))
	e.POST("/api/toggle_processing", toggleProcessingRoute(deps))
	e.GET("/ws/semaphore", wsSemaphoreRoute(deps))
	e.GET("/healthz", healthzRoute(deps))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if deps.DevMode {
		e.GET("/api/debug", debugRoute(deps))
	}

	return e
}

func videoFeedRoute(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		idStr := c.Param("camera_id")
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return c.String(http.StatusNotFound, "camera not found")
		}
		source, ok := deps.Broadcasters[id]
		if !ok {
			return c.String(http.StatusNotFound, "camera not found")
		}

		c.Response().Header().Set("Content-Type", broadcast.ContentType)
		c.Response().Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Response().WriteHeader(http.StatusOK)

		metrics.MJPEGSubscribers.WithLabelValues(idStr).Inc()
		defer metrics.MJPEGSubscribers.WithLabelValues(idStr).Dec()

		err = source.Serve(c.Request().Context(), c.Response(), deps.WriteTimeout)
		metrics.MJPEGFramesDropped.WithLabelValues(idStr).Set(float64(source.Dropped()))
		return err
	}
}

// groupKey is the stable JSON name for a light group: the North-South
// pair is group_1, East-West group_2.
func groupKey(g state.LightGroup) string {
	if g == state.NorthSouth {
		return "group_1"
	}
	return "group_2"
}

func epochMS(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

type cameraDataResponse struct {
	CameraID        int                     `json:"camera_id"`
	DetectionData   state.CameraState       `json:"detection_data"`
	CongestionLevel vehicle.CongestionLevel `json:"congestion_level"`
}

func cameraDataRoute(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Param("*")
		idStr := strings.TrimSuffix(path, ".json")
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return c.String(http.StatusNotFound, "camera not found")
		}
		cs, ok := deps.Store.CameraState(id)
		if !ok {
			return c.String(http.StatusNotFound, "camera not found")
		}
		cs.Healthy = isHealthy(cs.LastFrameAt, deps.StalenessWindow)
		resp := cameraDataResponse{CameraID: id, DetectionData: cs, CongestionLevel: cs.CongestionLevel}

		c.Response().Header().Set("Content-Type", "application/json; charset=UTF-8")
		_, notModified, err := SetCacheHeaders(c, CacheConfig{Components: []interface{}{resp}, DevMode: deps.DevMode})
		if err != nil {
			return err
		}
		if notModified {
			metrics.CacheHits.WithLabelValues(c.Path()).Inc()
			return c.NoContent(http.StatusNotModified)
		}
		return c.JSON(http.StatusOK, resp)
	}
}

type dashboardTotalsPayload struct {
	TotalVehicles   int                     `json:"total_vehicles"`
	TypeTotals      map[vehicle.Class]int   `json:"type_totals"`
	WeightedTotal   float64                 `json:"weighted_total"`
	CongestionLevel vehicle.CongestionLevel `json:"congestion_level"`
}

type detectionDataResponse struct {
	DashboardTotals dashboardTotalsPayload             `json:"dashboard_totals"`
	CamerasData     map[string]state.CameraState       `json:"cameras_data"`
	GroupCongestion map[string]vehicle.CongestionLevel `json:"group_congestion"`
	Processing      bool                               `json:"processing"`
}

func detectionDataRoute(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		totals := deps.Store.DashboardTotals()

		typeTotals := make(map[vehicle.Class]int, len(vehicle.Weight))
		totalVehicles := 0
		for class := range vehicle.Weight {
			typeTotals[class] = totals.Counts[class]
			totalVehicles += totals.Counts[class]
		}

		cameras := make(map[string]state.CameraState, len(deps.Store.CameraIDs()))
		for _, cs := range deps.Store.AllCameraStates() {
			cs.Healthy = isHealthy(cs.LastFrameAt, deps.StalenessWindow)
			cameras["camera_"+strconv.Itoa(cs.CameraID)] = cs
		}

		resp := detectionDataResponse{
			DashboardTotals: dashboardTotalsPayload{
				TotalVehicles:   totalVehicles,
				TypeTotals:      typeTotals,
				WeightedTotal:   totals.WeightedTotal,
				CongestionLevel: deps.Store.OverallCongestion(),
			},
			CamerasData: cameras,
			GroupCongestion: map[string]vehicle.CongestionLevel{
				groupKey(state.NorthSouth): deps.Store.GroupCongestion(state.NorthSouth),
				groupKey(state.EastWest):   deps.Store.GroupCongestion(state.EastWest),
			},
			Processing: deps.Store.ProcessingEnabled(),
		}

		c.Response().Header().Set("Content-Type", "application/json; charset=UTF-8")
		_, notModified, err := SetCacheHeaders(c, CacheConfig{Components: []interface{}{resp}, DevMode: deps.DevMode})
		if err != nil {
			return err
		}
		if notModified {
			metrics.CacheHits.WithLabelValues(c.Path()).Inc()
			return c.NoContent(http.StatusNotModified)
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func dashboardTotalsRoute(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		totals := deps.Store.DashboardTotals()
		c.Response().Header().Set("Content-Type", "application/json; charset=UTF-8")
		_, notModified, err := SetCacheHeaders(c, CacheConfig{Components: []interface{}{structHash{totals}}, DevMode: deps.DevMode})
		if err != nil {
			return err
		}
		if notModified {
			metrics.CacheHits.WithLabelValues(c.Path()).Inc()
			return c.NoContent(http.StatusNotModified)
		}
		return c.JSON(http.StatusOK, totals)
	}
}

type lightStatePayload struct {
	CurrentColor     state.LightColor `json:"current_color"`
	DeadlineEpochMS  int64            `json:"deadline_epoch_ms"`
	GreenDurationSec float64          `json:"green_duration_sec"`
}

type emergencyModePayload struct {
	Active          bool  `json:"active"`
	EmergencyCamera int   `json:"emergency_camera"`
	EndTimeEpochMS  int64 `json:"end_time_epoch_ms"`
}

type semaphoreDataResponse struct {
	SemaphoreStates map[string]lightStatePayload       `json:"semaphore_states"`
	EmergencyMode   emergencyModePayload               `json:"emergency_mode"`
	GroupCongestion map[string]vehicle.CongestionLevel `json:"group_congestion"`
}

func semaphoreDataRoute(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		data := deps.Store.SemaphoreData()

		states := make(map[string]lightStatePayload, len(data.Lights))
		for _, l := range data.Lights {
			states[groupKey(l.Group)] = lightStatePayload{
				CurrentColor:     l.Color,
				DeadlineEpochMS:  epochMS(l.DeadlineAt),
				GreenDurationSec: l.GreenDurationSec,
			}
		}

		resp := semaphoreDataResponse{
			SemaphoreStates: states,
			EmergencyMode: emergencyModePayload{
				Active:          data.Emergency.Active,
				EmergencyCamera: data.Emergency.CameraID,
				EndTimeEpochMS:  epochMS(data.Emergency.EndAt),
			},
			GroupCongestion: map[string]vehicle.CongestionLevel{
				groupKey(state.NorthSouth): deps.Store.GroupCongestion(state.NorthSouth),
				groupKey(state.EastWest):   deps.Store.GroupCongestion(state.EastWest),
			},
		}

		c.Response().Header().Set("Content-Type", "application/json; charset=UTF-8")
		_, notModified, err := SetCacheHeaders(c, CacheConfig{Components: []interface{}{resp}, DevMode: deps.DevMode})
		if err != nil {
			return err
		}
		if notModified {
			metrics.CacheHits.WithLabelValues(c.Path()).Inc()
			return c.NoContent(http.StatusNotModified)
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// toggleProcessingRequest/Response keep the request body optional: a
// bare POST flips the current state, a body with {"enabled": true|false}
// sets an explicit target state; only the explicit form is idempotent.
type toggleProcessingRequest struct {
	Enabled *bool `json:"enabled"`
}

type toggleProcessingResponse struct {
	Processing bool `json:"processing"`
	Changed    bool `json:"changed"`
}

func toggleProcessingRoute(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req toggleProcessingRequest
		_ = c.Bind(&req)

		target := !deps.Store.ProcessingEnabled()
		if req.Enabled != nil {
			target = *req.Enabled
		}
		changed := deps.Store.SetProcessingEnabled(target)
		return c.JSON(http.StatusOK, toggleProcessingResponse{Processing: target, Changed: changed})
	}
}

func wsSemaphoreRoute(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}
		defer conn.Close()
		metrics.WebsocketSubscribers.Inc()
		defer metrics.WebsocketSubscribers.Dec()
		deps.Hub.Register(conn)
		return nil
	}
}

type healthzResponse struct {
	Ready      bool  `json:"ready"`
	CameraIDs  []int `json:"camera_ids"`
	HealthyIDs []int `json:"healthy_camera_ids"`
}

func healthzRoute(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		ready := deps.Ready == nil || deps.Ready()
		resp := healthzResponse{Ready: ready, CameraIDs: deps.Store.CameraIDs()}
		for _, id := range resp.CameraIDs {
			cs, ok := deps.Store.CameraState(id)
			if ok && isHealthy(cs.LastFrameAt, deps.StalenessWindow) {
				resp.HealthyIDs = append(resp.HealthyIDs, id)
			}
		}
		if !ready || len(resp.HealthyIDs) != len(resp.CameraIDs) {
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
		return c.JSON(http.StatusOK, resp)
	}
}

type debugResponse struct {
	Cameras   []state.CameraState `json:"cameras"`
	Lights    []state.LightState  `json:"lights"`
	Emergency state.EmergencyMode `json:"emergency"`
	Version   VersionInfo         `json:"version"`
}

func debugRoute(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := debugResponse{
			Cameras:   deps.Store.AllCameraStates(),
			Lights:    deps.Store.AllLights(),
			Emergency: deps.Store.EmergencyMode(),
			Version:   GetVersionInfo(),
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func isHealthy(lastFrameAt time.Time, window time.Duration) bool {
	if lastFrameAt.IsZero() {
		return false
	}
	if window <= 0 {
		return true
	}
	return time.Since(lastFrameAt) <= window
}
