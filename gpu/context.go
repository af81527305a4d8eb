// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gpu

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/devblok/tessera/core"
)

// SwapPolicy decides what happens to bound resources when a context takes
// over the default identifier.
type SwapPolicy int

// Swap policies
const (
	// KeepBindings exchanges only the identifiers of the two contexts.
	// Resources stay bound to the number they were registered with, which
	// after the swap belongs to the other context.
	KeepBindings SwapPolicy = iota

	// MigrateBindings moves resources along with their context, so every
	// context keeps the objects it had before the swap.
	MigrateBindings
)

// NewContexts creates the live-context table over reg.
func NewContexts(reg *Registry, policy SwapPolicy, log logrus.FieldLogger) *Contexts {
	if log == nil {
		log = core.NopLogger()
	}
	return &Contexts{
		registry: reg,
		policy:   policy,
		next:     DefaultContext,
		live:     make(map[ContextID]*Context),
		log:      log.WithField("component", "gpu.contexts"),
	}
}

// Contexts is the table of live rendering contexts keyed by identifier.
type Contexts struct {
	mu       sync.Mutex
	registry *Registry
	policy   SwapPolicy
	next     ContextID
	live     map[ContextID]*Context
	current  *Context

	log logrus.FieldLogger
}

// Registry returns the resource registry the table drives.
func (t *Contexts) Registry() *Registry {
	return t.registry
}

// New creates a context with the next unused identifier.
func (t *Contexts) New() *Context {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := &Context{table: t, id: t.next}
	t.next++
	t.live[c.id] = c
	t.registry.currentObserver().ContextsChanged(len(t.live))

	t.log.WithField("context", c.id).Debug("context created")
	return c
}

// Lookup returns the live context holding id.
func (t *Contexts) Lookup(id ContextID) (*Context, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.live[id]
	return c, ok
}

// Len returns the number of live contexts.
func (t *Contexts) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

// Current returns the context most recently made current, or nil.
func (t *Contexts) Current() *Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// CurrentID returns the identifier of the current context, or
// InvalidContext when there is none.
func (t *Contexts) CurrentID() ContextID {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return InvalidContext
	}
	return t.current.id
}

// Context is one independent rendering context, usually one window's GPU
// state. It is created when the surface is realized and destroyed, for
// good, when the surface is torn down.
type Context struct {
	table     *Contexts
	id        ContextID
	destroyed bool
}

// ID returns the identifier the context currently holds.
func (c *Context) ID() ContextID {
	c.table.mu.Lock()
	defer c.table.mu.Unlock()
	return c.id
}

// Destroyed reports whether Destroy has run.
func (c *Context) Destroyed() bool {
	c.table.mu.Lock()
	defer c.table.mu.Unlock()
	return c.destroyed
}

// MakeCurrent marks c as the context resources are realized against.
func (c *Context) MakeCurrent() error {
	c.table.mu.Lock()
	defer c.table.mu.Unlock()
	if c.destroyed {
		return ErrContextDestroyed
	}
	c.table.current = c
	return nil
}

// Create realizes every resource bound to the context, e.g. after the
// underlying surface was recreated.
func (c *Context) Create() error {
	if c.Destroyed() {
		return ErrContextDestroyed
	}
	return c.table.registry.CreateAll(c.ID())
}

// Destroy destroys every resource bound to the context and removes it from
// the table. Calling it again does nothing. Resources are destroyed without
// the table locked, so their procedures may query the table.
func (c *Context) Destroy() {
	t := c.table
	t.mu.Lock()
	if c.destroyed || t.live[c.id] != c {
		t.mu.Unlock()
		return
	}
	id := c.id
	delete(t.live, id)
	c.destroyed = true
	if t.current == c {
		t.current = nil
	}
	live := len(t.live)
	t.mu.Unlock()

	t.registry.DestroyAll(id)
	t.registry.currentObserver().ContextsChanged(live)

	t.log.WithField("context", id).Debug("context destroyed")
}

// BecomeDefault makes c hold DefaultContext. If another live context holds
// it, the two exchange identifiers. Whether bound resources follow their
// context is decided by the table's SwapPolicy.
func (c *Context) BecomeDefault() error {
	t := c.table
	t.mu.Lock()
	defer t.mu.Unlock()

	if c.destroyed {
		return ErrContextDestroyed
	}
	mine := c.id
	if mine == DefaultContext {
		return nil
	}

	if other, ok := t.live[DefaultContext]; ok {
		if t.policy == MigrateBindings {
			t.registry.swap(DefaultContext, mine)
		}
		other.id = mine
		t.live[mine] = other
	} else {
		if t.policy == MigrateBindings {
			t.registry.swap(DefaultContext, mine)
		}
		delete(t.live, mine)
	}
	c.id = DefaultContext
	t.live[DefaultContext] = c

	t.log.WithFields(logrus.Fields{"from": mine, "to": DefaultContext, "policy": t.policy}).Debug("context became default")
	return nil
}
