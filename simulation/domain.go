// Package simulation ticks application state once per frame, before the
// frame is drawn.
package simulation

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devblok/tessera/core"
	"github.com/devblok/tessera/domain"
)

// NewSimulationDomain creates the simulation domain.
func NewSimulationDomain(log logrus.FieldLogger) *SimulationDomain {
	if log == nil {
		log = core.NopLogger()
	}
	d := &SimulationDomain{
		scale: 1,
		now:   time.Now,
	}
	d.Node = domain.NewNode(d, "simulation", log)
	return d
}

// SimulationDomain is synchronous. Its owner, normally the graphics domain
// in its pre pass, ticks it; every tick calls the animate callbacks with the
// seconds elapsed since the previous tick. The first tick after Initialize
// reports zero.
type SimulationDomain struct {
	*domain.Node

	mu        sync.Mutex
	onAnimate []func(dt float64)
	last      time.Time
	scale     float64
	paused    bool
	elapsed   float64
	now       func() time.Time
}

// OnAnimate appends fn to the animate callbacks.
func (d *SimulationDomain) OnAnimate(fn func(dt float64)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onAnimate = append(d.onAnimate, fn)
}

// SetTimeScale multiplies the dt handed to callbacks.
func (d *SimulationDomain) SetTimeScale(s float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scale = s
}

// SetPaused stops the animate callbacks. Time spent paused is not reported
// once resumed.
func (d *SimulationDomain) SetPaused(p bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = p
}

// Paused reports whether the simulation is paused.
func (d *SimulationDomain) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

// Elapsed returns the simulated seconds since Initialize.
func (d *SimulationDomain) Elapsed() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.elapsed
}

// Initialize implements domain.Domain
func (d *SimulationDomain) Initialize(domain.Domain) error {
	d.mu.Lock()
	d.last = time.Time{}
	d.elapsed = 0
	d.mu.Unlock()
	d.RunCallbacks(domain.PhaseInitialize)
	return d.Transition(domain.Initialized)
}

// Tick implements domain.Synchronous
func (d *SimulationDomain) Tick() error {
	d.mu.Lock()
	now := d.now()
	var dt float64
	if !d.last.IsZero() {
		dt = now.Sub(d.last).Seconds() * d.scale
	}
	d.last = now
	if d.paused {
		d.mu.Unlock()
		return nil
	}
	d.elapsed += dt
	fns := append(([]func(float64))(nil), d.onAnimate...)
	d.mu.Unlock()

	for _, fn := range fns {
		fn(dt)
	}
	return nil
}

// Cleanup implements domain.Domain
func (d *SimulationDomain) Cleanup(domain.Domain) error {
	d.RunCallbacks(domain.PhaseCleanup)
	return d.Transition(domain.CleanedUp)
}
