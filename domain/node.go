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

// Phase names a group of lifecycle callbacks.
type Phase int

// Callback phases
const (
	PhaseInitialize Phase = iota
	PhaseStart
	PhaseStop
	PhaseCleanup
)

func (p Phase) String() string {
	switch p {
	case PhaseInitialize:
		return "initialize"
	case PhaseStart:
		return "start"
	case PhaseStop:
		return "stop"
	case PhaseCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

type subdomain struct {
	d   Synchronous
	pre bool
}

// NewNode creates the shared base of a domain. owner is the domain
// embedding the node, it is handed to sub-domains as their parent.
func NewNode(owner Domain, name string, log logrus.FieldLogger) *Node {
	if log == nil {
		log = core.NopLogger()
	}
	return &Node{
		owner:    owner,
		name:     name,
		log:      log.WithField("domain", name),
		observer: nopObserver{},
	}
}

// Node carries what every domain has in common: its state, lifecycle
// callbacks and the tree of synchronous sub-domains. Concrete domains embed
// a *Node and implement the lifecycle operations on top of it.
//
// The sub-domain list is guarded by the frame lock. An owner holding the
// frame lock across its whole tick region guarantees the list does not change
// mid-frame; AddSubdomain and RemoveSubdomain block until the region ends,
// so they must not be called from inside it.
type Node struct {
	owner Domain
	name  string
	log   logrus.FieldLogger

	frame sync.Mutex

	mu         sync.Mutex
	state      State
	subdomains []subdomain
	callbacks  [4][]func()
	observer   Observer
}

// Name implements Domain
func (n *Node) Name() string {
	return n.name
}

// State implements Domain
func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Log returns the domain logger.
func (n *Node) Log() logrus.FieldLogger {
	return n.log
}

// SetObserver installs o on the node and its current sub-domains.
func (n *Node) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	n.mu.Lock()
	n.observer = o
	subs := append([]subdomain(nil), n.subdomains...)
	n.mu.Unlock()

	for _, s := range subs {
		if so, ok := s.d.(interface{ SetObserver(Observer) }); ok {
			so.SetObserver(o)
		}
	}
}

func (n *Node) currentObserver() Observer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.observer
}

// Transition moves the node to state to.
func (n *Node) Transition(to State) error {
	n.mu.Lock()
	from := n.state
	if !allowed(from, to) {
		n.mu.Unlock()
		return fmt.Errorf("%s: %s -> %s: %w", n.name, from, to, ErrInvalidTransition)
	}
	n.state = to
	obs := n.observer
	n.mu.Unlock()

	obs.StateChanged(n.name, to)
	n.log.WithFields(logrus.Fields{"from": from, "to": to}).Debug("state changed")
	return nil
}

// Fail records a failed lifecycle operation and returns err unchanged.
func (n *Node) Fail(op string, err error) error {
	if err == nil {
		return nil
	}
	n.currentObserver().LifecycleFailed(n.name, op, err)
	n.log.WithField("op", op).WithError(err).Warn("lifecycle operation failed")
	return err
}

// On appends fn to the callbacks of phase p. Callbacks run in the order
// they were added.
func (n *Node) On(p Phase, fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.callbacks[p] = append(n.callbacks[p], fn)
}

// OnInitialize appends an initialize callback.
func (n *Node) OnInitialize(fn func()) { n.On(PhaseInitialize, fn) }

// OnStart appends a start callback.
func (n *Node) OnStart(fn func()) { n.On(PhaseStart, fn) }

// OnStop appends a stop callback.
func (n *Node) OnStop(fn func()) { n.On(PhaseStop, fn) }

// OnCleanup appends a cleanup callback.
func (n *Node) OnCleanup(fn func()) { n.On(PhaseCleanup, fn) }

// RunCallbacks calls every callback of phase p.
func (n *Node) RunCallbacks(p Phase) {
	n.mu.Lock()
	fns := append([]func(){}, n.callbacks[p]...)
	n.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// LockFrame enters the frame's tick region.
func (n *Node) LockFrame() {
	n.frame.Lock()
}

// UnlockFrame leaves the frame's tick region.
func (n *Node) UnlockFrame() {
	n.frame.Unlock()
}

// AddSubdomain appends d to the pre or post list. It is not initialized
// here, the owner does that in InitializeSubdomains or explicitly.
func (n *Node) AddSubdomain(d Synchronous, pre bool) {
	n.frame.Lock()
	defer n.frame.Unlock()

	n.mu.Lock()
	n.subdomains = append(n.subdomains, subdomain{d: d, pre: pre})
	obs := n.observer
	n.mu.Unlock()

	if so, ok := d.(interface{ SetObserver(Observer) }); ok {
		so.SetObserver(obs)
	}
}

// RemoveSubdomain drops d from the tree. It is not cleaned up.
func (n *Node) RemoveSubdomain(d Synchronous) bool {
	n.frame.Lock()
	defer n.frame.Unlock()

	n.mu.Lock()
	defer n.mu.Unlock()
	for i, s := range n.subdomains {
		if s.d == d {
			n.subdomains = append(n.subdomains[:i], n.subdomains[i+1:]...)
			return true
		}
	}
	return false
}

// Subdomains lists the sub-domains of one pass in insertion order.
func (n *Node) Subdomains(pre bool) []Synchronous {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Synchronous
	for _, s := range n.subdomains {
		if s.pre == pre {
			out = append(out, s.d)
		}
	}
	return out
}

// InitializeSubdomains initializes every not yet initialized sub-domain of
// one pass. A failure does not stop the remaining ones, all failures are
// joined into the result.
func (n *Node) InitializeSubdomains(pre bool) error {
	var errs []error
	for _, d := range n.Subdomains(pre) {
		if d.State() != Uninitialized {
			continue
		}
		if err := d.Initialize(n.owner); err != nil {
			errs = append(errs, n.Fail("initialize "+d.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// TickSubdomains ticks every initialized sub-domain of one pass in order.
// The caller is expected to hold the frame lock.
func (n *Node) TickSubdomains(pre bool) error {
	var errs []error
	for _, d := range n.Subdomains(pre) {
		if d.State() != Initialized {
			continue
		}
		if err := d.Tick(); err != nil {
			n.log.WithField("subdomain", d.Name()).WithError(err).Warn("tick failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CleanupSubdomains cleans up every initialized or stopped sub-domain of
// one pass, best effort.
func (n *Node) CleanupSubdomains(pre bool) error {
	var errs []error
	for _, d := range n.Subdomains(pre) {
		switch d.State() {
		case Initialized, Stopped:
		default:
			continue
		}
		if err := d.Cleanup(n.owner); err != nil {
			errs = append(errs, n.Fail("cleanup "+d.Name(), err))
		}
	}
	return errors.Join(errs...)
}
