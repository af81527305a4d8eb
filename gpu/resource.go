// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gpu

import "fmt"

// Procedure is the concrete realization of a resource variant.
type Procedure interface {
	// OnCreate allocates the device object and returns its handle.
	OnCreate() (Handle, error)

	// OnDestroy releases the device object behind h.
	OnDestroy(h Handle)
}

// Procedures adapts a pair of functions to a Procedure.
func Procedures(create func() (Handle, error), destroy func(Handle)) Procedure {
	return procedureFuncs{create: create, destroy: destroy}
}

type procedureFuncs struct {
	create  func() (Handle, error)
	destroy func(Handle)
}

func (p procedureFuncs) OnCreate() (Handle, error) { return p.create() }
func (p procedureFuncs) OnDestroy(h Handle)        { p.destroy(h) }

// NewResource creates an unrealized resource bound to ctx.
// Realization is deferred until Validate or Create.
func NewResource(reg *Registry, ctx ContextID, proc Procedure) *Resource {
	r := &Resource{
		id:       reg.NextResourceID(),
		registry: reg,
		proc:     proc,
	}
	reg.Register(r, ctx)
	return r
}

// NewResourceIn creates an unrealized resource bound to c.
func NewResourceIn(c *Context, proc Procedure) *Resource {
	return NewResource(c.table.registry, c.ID(), proc)
}

// Resource is the lazily created, invalidatable base of every GPU-backed
// object. It is meant to be embedded by the concrete variants.
//
// A Resource is confined to the goroutine that owns its context.
type Resource struct {
	id       ResourceID
	registry *Registry
	proc     Procedure

	handle   Handle
	resubmit bool
}

// ResourceID implements Object
func (r *Resource) ResourceID() ResourceID {
	return r.id
}

// Handle returns the device handle, zero when not created.
func (r *Resource) Handle() Handle {
	return r.handle
}

// Created reports whether the resource holds a device object.
func (r *Resource) Created() bool {
	return r.handle != 0
}

// Pending reports whether a resubmit was requested.
func (r *Resource) Pending() bool {
	return r.resubmit
}

// Context returns the context the resource is registered with.
func (r *Resource) Context() (ContextID, bool) {
	return r.registry.ContextOf(r.id)
}

// Rebind moves the resource to ctx.
func (r *Resource) Rebind(ctx ContextID) {
	r.registry.Register(r, ctx)
}

// Validate realizes the resource right before use: a pending resubmit is
// honoured by destroying first, then the resource is created if needed.
func (r *Resource) Validate() error {
	if r.resubmit {
		r.Destroy()
		r.resubmit = false
	}
	if !r.Created() {
		return r.Create()
	}
	return nil
}

// Invalidate requests re-creation at the next Validate. The device object
// is kept until then since it may still be in use this frame.
func (r *Resource) Invalidate() {
	r.resubmit = true
}

// Create implements Object. An existing device object is destroyed first.
// On failure the handle stays zero.
func (r *Resource) Create() error {
	if r.Created() {
		r.Destroy()
	}
	h, err := r.proc.OnCreate()
	if err != nil {
		r.handle = 0
		return fmt.Errorf("create resource %d: %w", r.id, err)
	}
	if h == 0 {
		return ErrNotCreated
	}
	r.handle = h
	return nil
}

// Destroy implements Object. It is idempotent.
func (r *Resource) Destroy() {
	if r.Created() {
		r.proc.OnDestroy(r.handle)
	}
	r.handle = 0
}

// Release unregisters the resource and destroys its device object. The
// resource must not be used afterwards.
func (r *Resource) Release() {
	r.registry.Unregister(r)
	r.Destroy()
}

// NewResourceCurrent creates an unrealized resource bound to the current
// context of t.
func NewResourceCurrent(t *Contexts, proc Procedure) (*Resource, error) {
	id := t.CurrentID()
	if id == InvalidContext {
		return nil, ErrNoCurrentContext
	}
	return NewResource(t.registry, id, proc), nil
}
