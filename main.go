// Package main is the entry point for the adaptive intersection
// controller: it wires camera workers, the signal controller, the HTTP
// surface, and the optional TUI together and runs them until told to
// stop.
package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/stefanpenner/intersection-control/broadcast"
	"github.com/stefanpenner/intersection-control/camera"
	"github.com/stefanpenner/intersection-control/config"
	"github.com/stefanpenner/intersection-control/control"
	"github.com/stefanpenner/intersection-control/detect"
	"github.com/stefanpenner/intersection-control/httpapi"
	"github.com/stefanpenner/intersection-control/logger"
	"github.com/stefanpenner/intersection-control/metrics"
	"github.com/stefanpenner/intersection-control/state"
	"github.com/stefanpenner/intersection-control/supervisor"
	"github.com/stefanpenner/intersection-control/ui"
)

// cameraGroups assigns each physical camera to the light group it feeds
// congestion readings for. Opposing approaches share a phase: cameras
// 0 and 2 face the North-South pair, 1 and 3 the East-West pair.
var cameraGroups = map[int]state.LightGroup{
	0: state.NorthSouth,
	1: state.EastWest,
	2: state.NorthSouth,
	3: state.EastWest,
}

// initSentry initializes Sentry if a DSN is configured and we're not in
// dev mode. Returns true if Sentry was initialized.
func initSentry(cfg config.Config) bool {
	if cfg.SentryDSN == "" || cfg.DevMode {
		return false
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      "production",
		Release:          httpapi.Version,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		AttachStacktrace: true,
	})
	if err != nil {
		logger.Fatal(err, "sentry.Init: %v", err)
	}

	logger.SetSentryCaptureException(func(err error) interface{} {
		return sentry.CaptureException(err)
	})

	return true
}

// demoFrame returns a single flat-colored frame. The binary ships
// with a scripted demo pipeline by default; a real deployment supplies
// its own camera.FrameSource and detect.Detector satisfying the same
// interfaces.
func demoFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	fill := color.RGBA{R: 40, G: 42, B: 54, A: 255}
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		for x := img.Rect.Min.X; x < img.Rect.Max.X; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	return img
}

// demoDetections returns a small scripted sequence of vehicle
// detections so the standalone demo binary shows varying congestion and
// an occasional ambulance pre-emption instead of sitting at zero
// forever.
func demoDetections(cameraID int) [][]detect.Detection {
	switch cameraID {
	case 0:
		return [][]detect.Detection{
			{{Label: "car", Confidence: 0.9}, {Label: "car", Confidence: 0.8}},
			{{Label: "car", Confidence: 0.9}, {Label: "truck", Confidence: 0.7}},
		}
	case 1:
		return [][]detect.Detection{
			{{Label: "car", Confidence: 0.9}},
		}
	case 2:
		return [][]detect.Detection{
			{{Label: "bus", Confidence: 0.85}, {Label: "car", Confidence: 0.7}, {Label: "car", Confidence: 0.6}},
			{{Label: "ambulance", Confidence: 0.95}, {Label: "car", Confidence: 0.7}},
		}
	default:
		return [][]detect.Detection{
			{{Label: "mototaxi", Confidence: 0.8}},
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err, "invalid configuration: %v", err)
	}

	if err := httpapi.InitErrorLogger(os.TempDir()); err != nil {
		logger.Error(err, "error logger init failed: %v", err)
	}
	defer httpapi.CloseErrorLogger()

	sentryEnabled := initSentry(cfg)
	if sentryEnabled {
		defer sentry.Flush(2 * time.Second)
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "help", "--help", "-h":
			fmt.Println("Adaptive Intersection Controller")
			fmt.Println("")
			fmt.Println("Usage:")
			fmt.Println("  intersection-control         Start the controller (default)")
			fmt.Println("  intersection-control help     Show this help message")
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	store := state.New(cameraGroups)

	hasUI := ui.Initialize(httpapi.Version, httpapi.BuildTime, cfg.Port, cfg.TickInterval, len(cameraGroups))
	if hasUI {
		logger.SetUIMode(true)
		logger.Log = ui.AddLog
	} else {
		logger.PrintBanner(httpapi.Version, httpapi.BuildTime)
	}

	if cfg.DevMode {
		logger.Info("DEV MODE: verbose logging enabled")
	}

	workerCfg := camera.DefaultConfig()
	workerCfg.ConfidenceThreshold = cfg.DetectionConfidenceThreshold
	workerCfg.StalenessWindow = time.Duration(cfg.CameraStalenessSec * float64(time.Second))

	workers := make([]*camera.Worker, 0, len(cameraGroups))
	broadcasters := make(map[int]*broadcast.MJPEG, len(cameraGroups))

	for id := 0; id < len(cameraGroups); id++ {
		start := time.Now()

		source, err := camera.NewLoopingSource([]image.Image{demoFrame()})
		if err != nil {
			logger.Fatal(err, "camera %d: failed to build frame source: %v", id, err)
		}
		detector := detect.NewScripted(demoDetections(id)...)

		cameraID := id
		wm := camera.Metrics{
			FrameProcessed: func(cameraID int, d time.Duration) {
				idStr := fmt.Sprintf("%d", cameraID)
				metrics.FrameProcessedTotal.WithLabelValues(idStr).Inc()
				metrics.FrameProcessDuration.WithLabelValues(idStr).Observe(d.Seconds())
				metrics.CameraHealthy.WithLabelValues(idStr).Set(1)
				if cs, ok := store.CameraState(cameraID); ok {
					metrics.WeightedTotal.WithLabelValues(idStr).Set(cs.WeightedTotal)
				}
			},
			DetectionError: func(cameraID int, err error) {
				idStr := fmt.Sprintf("%d", cameraID)
				metrics.DetectionErrorsTotal.WithLabelValues(idStr).Inc()
				metrics.CameraHealthy.WithLabelValues(idStr).Set(0)
			},
			ClassDropped: func(cameraID int, n int) {
				metrics.ClassDroppedTotal.WithLabelValues(fmt.Sprintf("%d", cameraID)).Add(float64(n))
			},
		}

		w := camera.NewWorker(cameraID, source, detector, store, workerCfg, wm)
		workers = append(workers, w)
		broadcasters[cameraID] = broadcast.NewMJPEG(w.Mailbox())

		logger.CycleSummary{CameraID: cameraID, Duration: time.Since(start), Healthy: true}.Print()
	}

	hub := broadcast.NewHub()

	controllerCfg := control.Config{
		TickInterval:         cfg.TickInterval,
		MinGreenSec:          cfg.MinGreenSec,
		MaxGreenSec:          cfg.MaxGreenSec,
		BaseGreenSec:         cfg.BaseGreenSec,
		YellowSec:            cfg.YellowSec,
		AllRedSec:            cfg.AllRedSec,
		EmergencyHoldSec:     cfg.EmergencyHoldSec,
		EmergencyMinGreenSec: cfg.EmergencyMinGreenSec,
		CongestionThresholds: store.Thresholds(),
	}

	var lastEmergencyActive bool
	controller := control.New(store, controllerCfg,
		control.WithChangeNotifier(func(data state.SemaphoreData) {
			hub.Publish(data)
			if data.Emergency.Active && !lastEmergencyActive {
				metrics.EmergencyActivationsTotal.Inc()
			}
			lastEmergencyActive = data.Emergency.Active
		}),
		control.WithPhaseObserver(func(group state.LightGroup, color state.LightColor) {
			metrics.PhaseTransitionsTotal.WithLabelValues(string(group), string(color)).Inc()
		}),
	)

	sup := supervisor.New(workers, controller, time.Duration(cfg.ShutdownTimeoutSec*float64(time.Second)),
		func(component string, err error) {
			logger.Error(err, "%s stopped: %v", component, err)
		})

	e := httpapi.New(httpapi.Deps{
		Store:           store,
		Broadcasters:    broadcasters,
		Hub:             hub,
		DevMode:         cfg.DevMode,
		StalenessWindow: workerCfg.StalenessWindow,
		WriteTimeout:    3 * time.Second,
		Ready:           sup.Ready,
	})

	go func() {
		if err := sup.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error(err, "supervisor stopped unexpectedly: %v", err)
		}
	}()

	logger.ControllerSummary{Port: cfg.Port, TickInterval: cfg.TickInterval, Cameras: len(cameraGroups)}.Print()

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Error(err, "server error: %v", err)
			cancel()
		}
	}()

	logger.Success("Controller listening on http://localhost:%s", cfg.Port)
	if hasUI {
		logger.Info("Press Ctrl+C or 'q' to stop")
		ui.SetReady()
	} else {
		logger.Info("Press Ctrl+C to stop")
	}

	if hasUI {
		go reportUIStats(ctx, store, hub, len(cameraGroups))
	}

	<-sigChan
	cancel()
	logger.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "error during HTTP shutdown: %v", err)
	}

	ui.Shutdown()
	time.Sleep(100 * time.Millisecond)

	if sentryEnabled {
		sentry.Flush(2 * time.Second)
	}

	logger.Success("Goodbye!")
	fmt.Println()
}

// reportUIStats feeds the TUI HUD with periodic store/runtime snapshots.
func reportUIStats(ctx context.Context, store *state.Store, hub *broadcast.Hub, cameras int) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ticks++
			data := store.SemaphoreData()
			var nsColor, ewColor string
			for _, l := range data.Lights {
				switch l.Group {
				case state.NorthSouth:
					nsColor = string(l.Color)
				case state.EastWest:
					ewColor = string(l.Color)
				}
			}

			metrics.RecordMemoryUsage()

			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			ui.UpdateStats(ui.Stats{
				Cameras:         cameras,
				NorthSouthColor: nsColor,
				EastWestColor:   ewColor,
				EmergencyActive: data.Emergency.Active,
				EmergencyCamera: data.Emergency.CameraID,
				TotalTicks:      ticks,
				RequestsTotal:   int(hub.Subscribers()),
				RequestsPerSec:  0,
				MemoryUsageMB:   float64(m.Alloc) / 1024 / 1024,
				CPUUsagePercent: 0,
				GoroutineCount:  runtime.NumGoroutine(),
			})
		}
	}
}
