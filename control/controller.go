// Package control implements the intersection's Signal Controller: a
// single ticking scheduler that drives a two-group green/yellow/red
// state machine, extends or shortens green time based on relative
// congestion, and pre-empts for an ambulance without ever skipping the
// yellow/all-red safety sequence.
package control

import (
	"context"
	"time"

	"github.com/stefanpenner/intersection-control/state"
	"github.com/stefanpenner/intersection-control/vehicle"
)

// Config holds the controller's timing and congestion parameters.
type Config struct {
	TickInterval         time.Duration
	MinGreenSec          float64
	MaxGreenSec          float64
	BaseGreenSec         float64
	YellowSec            float64
	AllRedSec            float64
	EmergencyHoldSec     float64
	EmergencyMinGreenSec float64
	CongestionThresholds vehicle.Thresholds
}

// DefaultConfig holds the stock intersection timing: 10-60s green,
// 5s yellow, 3s all-red interlock, 15s emergency hold with a 10s
// minimum emergency green.
func DefaultConfig() Config {
	return Config{
		TickInterval:         time.Second,
		MinGreenSec:          10,
		MaxGreenSec:          60,
		BaseGreenSec:         20,
		YellowSec:            5,
		AllRedSec:            3,
		EmergencyHoldSec:     15,
		EmergencyMinGreenSec: 10,
		CongestionThresholds: vehicle.DefaultThresholds,
	}
}

type phase int

const (
	phaseGreen phase = iota
	phaseYellow
	phaseAllRed
)

// Controller owns the current phase/active-group/deadline triple. It
// is the sole writer of LightState and EmergencyMode in the store; no
// other goroutine should call Store.SetLightState or
// Store.SetEmergencyMode.
type Controller struct {
	store *state.Store
	cfg   Config

	active   state.LightGroup
	ph       phase
	deadline time.Time

	onChange func(state.SemaphoreData)
	onPhase  func(group state.LightGroup, color state.LightColor)
}

// Option configures optional Controller behavior.
type Option func(*Controller)

// WithChangeNotifier registers a callback invoked after every
// published light/emergency change, used to feed a websocket
// broadcaster without coupling this package to one.
func WithChangeNotifier(fn func(state.SemaphoreData)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithPhaseObserver registers a callback invoked on every phase
// transition, used for metrics/logging.
func WithPhaseObserver(fn func(group state.LightGroup, color state.LightColor)) Option {
	return func(c *Controller) { c.onPhase = fn }
}

// New builds a Controller. Call Run to start its tick loop; the
// controller publishes its bootstrap state immediately so readers
// never see a zero-value LightState before the first tick.
func New(store *state.Store, cfg Config, opts ...Option) *Controller {
	if cfg.EmergencyMinGreenSec <= 0 {
		cfg.EmergencyMinGreenSec = cfg.MinGreenSec
	}
	// East-West gets the bootstrap green, so the first group to cycle
	// through yellow is the one facing the secondary road.
	c := &Controller{store: store, cfg: cfg, active: state.EastWest, ph: phaseGreen}
	for _, opt := range opts {
		opt(c)
	}
	now := time.Now()
	greenSec := c.computeGreenTime(c.active)
	c.deadline = now.Add(durationOf(greenSec))
	c.publish(now, greenSec)
	return c
}

// Run drives the tick loop until ctx is cancelled, the same
// ticker-plus-select shape the camera poller uses.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.parkRed()
			return ctx.Err()
		case now := <-ticker.C:
			c.tick(now)
		}
	}
}

// parkRed leaves both groups red so a stopped controller never
// strands a stale green in the store.
func (c *Controller) parkRed() {
	c.ph = phaseAllRed
	c.deadline = time.Now()
	c.publish(time.Now(), 0)
}

func durationOf(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// tick runs exactly one scheduling decision. It is exported indirectly
// through Run but kept callable directly so tests can drive the
// controller with synthetic timestamps instead of real time.
func (c *Controller) tick(now time.Time) {
	c.checkEmergency(now)
	c.maybeCutShortForEmergency(now)

	if now.Before(c.deadline) {
		return
	}

	switch c.ph {
	case phaseGreen:
		c.ph = phaseYellow
		c.deadline = now.Add(durationOf(c.cfg.YellowSec))
		c.publish(now, 0)
	case phaseYellow:
		c.ph = phaseAllRed
		c.deadline = now.Add(durationOf(c.cfg.AllRedSec))
		c.publish(now, 0)
	case phaseAllRed:
		next, greenSec := c.chooseNextGreen()
		c.active = next
		c.ph = phaseGreen
		c.deadline = now.Add(durationOf(greenSec))
		c.publish(now, greenSec)
	}
}

// chooseNextGreen picks which group gets the next green phase and for
// how long. An active emergency always wins the group choice (but
// never the phase sequence — this is only ever consulted from the
// all-red step, after yellow and all-red have both already run).
func (c *Controller) chooseNextGreen() (state.LightGroup, float64) {
	em := c.store.EmergencyMode()
	if em.Active {
		if g, ok := c.store.GroupOf(em.CameraID); ok {
			return g, c.cfg.EmergencyMinGreenSec
		}
	}
	next := c.active.Opposite()
	greenSec := c.computeGreenTime(next)
	return next, greenSec
}

// computeGreenTime combines a group's congestion with its opposite
// group's congestion into a green duration between MinGreenSec and
// MaxGreenSec.
func (c *Controller) computeGreenTime(group state.LightGroup) float64 {
	groupCongestion := c.store.GroupCongestion(group)
	otherCongestion := c.store.GroupCongestion(group.Opposite())

	var greenSec float64
	switch {
	case groupCongestion == vehicle.CongestionHigh && otherCongestion == vehicle.CongestionLow:
		greenSec = c.cfg.MaxGreenSec
	case groupCongestion == vehicle.CongestionHigh && otherCongestion == vehicle.CongestionHigh:
		greenSec = c.cfg.MinGreenSec + 20
	case groupCongestion == vehicle.CongestionLow && otherCongestion == vehicle.CongestionHigh:
		greenSec = c.cfg.MinGreenSec
	default:
		greenSec = c.cfg.BaseGreenSec
	}

	if greenSec < c.cfg.MinGreenSec {
		greenSec = c.cfg.MinGreenSec
	}
	if greenSec > c.cfg.MaxGreenSec {
		greenSec = c.cfg.MaxGreenSec
	}
	return greenSec
}

// checkEmergency scans every camera for an ambulance detection. The
// first camera (by ID) reporting an ambulance activates emergency mode
// (once active, the triggering camera is kept), the hold window
// slides forward while any ambulance remains in view, and emergency
// mode clears once no camera reports one and the hold has elapsed.
func (c *Controller) checkEmergency(now time.Time) {
	em := c.store.EmergencyMode()

	for _, id := range c.store.CameraIDs() {
		cs, ok := c.store.CameraState(id)
		if !ok {
			continue
		}
		if cs.Counts[vehicle.Ambulance] > 0 {
			triggeredBy := id
			if em.Active {
				triggeredBy = em.CameraID
			}
			c.store.SetEmergencyMode(state.EmergencyMode{
				Active:   true,
				CameraID: triggeredBy,
				EndAt:    now.Add(durationOf(c.cfg.EmergencyHoldSec)),
			})
			if !em.Active {
				c.notify()
			}
			return
		}
	}

	if em.Active && !em.EndAt.IsZero() && now.After(em.EndAt) {
		c.store.SetEmergencyMode(state.EmergencyMode{})
		c.notify()
	}
}

// maybeCutShortForEmergency lets an active emergency end the current
// green phase early for a non-target group. It never skips a phase:
// shortening the deadline still forces the full yellow -> all-red ->
// green sequence on the next ticks, it only stops waiting out a long
// green for a group the ambulance isn't on.
func (c *Controller) maybeCutShortForEmergency(now time.Time) {
	if c.ph != phaseGreen {
		return
	}
	em := c.store.EmergencyMode()
	if !em.Active {
		return
	}
	targetGroup, ok := c.store.GroupOf(em.CameraID)
	if !ok {
		return
	}
	if targetGroup == c.active {
		// Emergency group is already green; hold it through the
		// emergency window instead of cutting it short.
		if c.deadline.Before(em.EndAt) {
			c.deadline = em.EndAt
		}
		return
	}
	if c.deadline.After(now) {
		c.deadline = now
	}
}

// publish writes the current phase to the store as both groups'
// LightState and notifies any registered change observer.
func (c *Controller) publish(now time.Time, activeGreenSec float64) {
	var activeColor, otherColor state.LightColor
	switch c.ph {
	case phaseGreen:
		activeColor, otherColor = state.Green, state.Red
	case phaseYellow:
		activeColor, otherColor = state.Yellow, state.Red
	case phaseAllRed:
		activeColor, otherColor = state.Red, state.Red
	}

	active := state.LightState{Group: c.active, Color: activeColor, DeadlineAt: c.deadline, GreenDurationSec: activeGreenSec}
	other := state.LightState{Group: c.active.Opposite(), Color: otherColor, DeadlineAt: c.deadline}
	c.store.SetLightState(active)
	c.store.SetLightState(other)

	if c.onPhase != nil {
		c.onPhase(active.Group, active.Color)
		c.onPhase(other.Group, other.Color)
	}
	c.notify()
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange(c.store.SemaphoreData())
	}
}
