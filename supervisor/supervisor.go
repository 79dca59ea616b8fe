// Package supervisor starts the camera workers and signal controller
// together, and tears them down within a bounded timeout on shutdown.
package supervisor

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stefanpenner/intersection-control/camera"
	"github.com/stefanpenner/intersection-control/control"
)

// Runnable is satisfied by both *camera.Worker and *control.Controller.
type Runnable interface {
	Run(ctx context.Context) error
}

// Supervisor owns the lifecycle of every camera worker plus the signal
// controller: start them all, watch readiness, and stop them all
// together.
type Supervisor struct {
	workers    []*camera.Worker
	controller *control.Controller

	shutdownTimeout time.Duration

	running atomic.Bool
	onError func(component string, err error)
}

// New builds a Supervisor over the given workers and controller.
func New(workers []*camera.Worker, controller *control.Controller, shutdownTimeout time.Duration, onError func(component string, err error)) *Supervisor {
	return &Supervisor{workers: workers, controller: controller, shutdownTimeout: shutdownTimeout, onError: onError}
}

// Run starts every worker and the controller, each in its own
// goroutine, and blocks until ctx is cancelled. On cancellation it
// waits up to shutdownTimeout for all components to exit before
// returning, mirroring main.go's graceful-shutdown-with-timeout
// pattern.
func (s *Supervisor) Run(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)

	var wg sync.WaitGroup
	runOne := func(name string, r Runnable) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Run(ctx); err != nil && ctx.Err() == nil && s.onError != nil {
				s.onError(name, err)
			}
		}()
	}

	for _, w := range s.workers {
		runOne(workerName(w.CameraID), w)
	}
	runOne("controller", s.controller)

	<-ctx.Done()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(s.shutdownTimeout):
		return context.DeadlineExceeded
	}
}

// Ready reports whether the supervisor's goroutines are currently
// running, for the HTTP surface's /healthz.
func (s *Supervisor) Ready() bool { return s.running.Load() }

func workerName(cameraID int) string {
	return "camera-worker-" + strconv.Itoa(cameraID)
}
