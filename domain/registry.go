// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package domain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/devblok/tessera/core"
)

// NewRegistry creates an empty top-level domain list.
func NewRegistry(log logrus.FieldLogger) *Registry {
	if log == nil {
		log = core.NopLogger()
	}
	return &Registry{
		log:      log.WithField("component", "domain.registry"),
		observer: nopObserver{},
	}
}

// Registry holds the top-level domains of an application. Domains are
// initialized and started in registration order, adjusted so that every
// domain comes after the ones it depends on, and stopped in reverse.
type Registry struct {
	mu       sync.Mutex
	domains  []Domain
	running  []Asynchronous
	observer Observer

	log logrus.FieldLogger
}

// SetObserver installs o on the registry and every registered domain.
func (r *Registry) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	r.mu.Lock()
	r.observer = o
	domains := append([]Domain(nil), r.domains...)
	r.mu.Unlock()
	for _, d := range domains {
		if so, ok := d.(interface{ SetObserver(Observer) }); ok {
			so.SetObserver(o)
		}
	}
}

// Add registers d. Names must be unique.
func (r *Registry) Add(d Domain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.domains {
		if existing.Name() == d.Name() {
			return fmt.Errorf("%s: %w", d.Name(), ErrDuplicateDomain)
		}
	}
	r.domains = append(r.domains, d)
	if so, ok := d.(interface{ SetObserver(Observer) }); ok {
		so.SetObserver(r.observer)
	}
	return nil
}

// Get returns the domain registered as name.
func (r *Registry) Get(name string) (Domain, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.domains {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}

// Domains lists the registered domains in registration order.
func (r *Registry) Domains() []Domain {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Domain(nil), r.domains...)
}

// Running lists the started asynchronous domains, most recent last.
func (r *Registry) Running() []Asynchronous {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Asynchronous(nil), r.running...)
}

// Order returns the domains sorted so that dependencies come first. Among
// independent domains registration order is kept.
func (r *Registry) Order() ([]Domain, error) {
	domains := r.Domains()
	index := make(map[string]int, len(domains))
	for i, d := range domains {
		index[d.Name()] = i
	}

	const (
		unvisited = iota
		visiting
		done
	)
	marks := make([]int, len(domains))
	ordered := make([]Domain, 0, len(domains))

	var visit func(i int) error
	visit = func(i int) error {
		switch marks[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%s: %w", domains[i].Name(), ErrDependencyCycle)
		}
		marks[i] = visiting
		if dep, ok := domains[i].(Dependent); ok {
			for _, name := range dep.DependsOn() {
				j, ok := index[name]
				if !ok {
					return fmt.Errorf("%s depends on %s: %w", domains[i].Name(), name, ErrUnknownDependency)
				}
				if err := visit(j); err != nil {
					return err
				}
			}
		}
		marks[i] = done
		ordered = append(ordered, domains[i])
		return nil
	}

	for i := range domains {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// Initialize initializes every domain in dependency order. Failures are
// logged and joined, remaining domains are still attempted.
func (r *Registry) Initialize() error {
	ordered, err := r.Order()
	if err != nil {
		return err
	}
	var errs []error
	for _, d := range ordered {
		if d.State() != Uninitialized {
			continue
		}
		if err := d.Initialize(nil); err != nil {
			r.fail(d, "initialize", err)
			errs = append(errs, fmt.Errorf("initialize %s: %w", d.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Start starts the initialized asynchronous domains in dependency order,
// pushing each on the running stack. A domain whose Start blocks, such as
// the graphics loop, should be registered last.
func (r *Registry) Start() error {
	ordered, err := r.Order()
	if err != nil {
		return err
	}
	var errs []error
	for _, d := range ordered {
		a, ok := d.(Asynchronous)
		if !ok {
			continue
		}
		if s := a.State(); s != Initialized && s != Stopped {
			continue
		}
		r.mu.Lock()
		r.running = append(r.running, a)
		r.mu.Unlock()
		if err := a.Start(); err != nil {
			r.fail(d, "start", err)
			errs = append(errs, fmt.Errorf("start %s: %w", d.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Stop pops the running stack, stopping domains in reverse start order.
func (r *Registry) Stop() error {
	var errs []error
	for {
		r.mu.Lock()
		if len(r.running) == 0 {
			r.mu.Unlock()
			break
		}
		a := r.running[len(r.running)-1]
		r.running = r.running[:len(r.running)-1]
		r.mu.Unlock()

		if a.State() != Running {
			continue
		}
		if err := a.Stop(); err != nil {
			r.fail(a, "stop", err)
			errs = append(errs, fmt.Errorf("stop %s: %w", a.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Cleanup cleans up every initialized or stopped domain in reverse
// dependency order.
func (r *Registry) Cleanup() error {
	ordered, err := r.Order()
	if err != nil {
		ordered = r.Domains()
	}
	var errs []error
	for i := len(ordered) - 1; i >= 0; i-- {
		d := ordered[i]
		switch d.State() {
		case Initialized, Stopped:
		default:
			continue
		}
		if err := d.Cleanup(nil); err != nil {
			r.fail(d, "cleanup", err)
			errs = append(errs, fmt.Errorf("cleanup %s: %w", d.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Run initializes and starts every domain, then stops and cleans them up
// once Start returns. Failures are joined, the sequence always completes.
func (r *Registry) Run() error {
	var errs []error
	if err := r.Initialize(); err != nil {
		errs = append(errs, err)
	}
	if err := r.Start(); err != nil {
		errs = append(errs, err)
	}
	if err := r.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := r.Cleanup(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Registry) fail(d Domain, op string, err error) {
	r.mu.Lock()
	obs := r.observer
	r.mu.Unlock()
	obs.LifecycleFailed(d.Name(), op, err)
	r.log.WithFields(logrus.Fields{"domain": d.Name(), "op": op}).WithError(err).Error("domain lifecycle failed")
}
