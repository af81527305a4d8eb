// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gpu

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/devblok/tessera/core"
)

// Object is what the Registry drives when a context is created or torn down.
type Object interface {
	ResourceID() ResourceID
	Create() error
	Destroy()
}

// Composite is an Object built over other objects of its context, such as a
// framebuffer over its attachments. CreateAll creates composites last.
type Composite interface {
	Object
	Parts() []Object
}

// NewRegistry creates an empty registry. A nil logger discards output.
func NewRegistry(log logrus.FieldLogger) *Registry {
	if log == nil {
		log = core.NopLogger()
	}
	return &Registry{
		contexts:  make(map[ContextID]map[ResourceID]Object),
		resources: make(map[ResourceID]ContextID),
		log:       log.WithField("component", "gpu.registry"),
		observer:  nopObserver{},
	}
}

// Registry maps context identifiers to the objects bound to them and every
// object back to its context. It never owns the objects: membership is
// dropped with Unregister, lifetime stays with whoever embeds the resource.
//
// Callbacks into objects run without the registry lock held, so a Create or
// Destroy may itself use the registry.
type Registry struct {
	mu        sync.Mutex
	nextID    ResourceID
	contexts  map[ContextID]map[ResourceID]Object
	resources map[ResourceID]ContextID

	log      logrus.FieldLogger
	observer Observer
}

// SetObserver installs o, nil restores the silent observer.
func (r *Registry) SetObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o == nil {
		o = nopObserver{}
	}
	r.observer = o
}

// NextResourceID generates a new, never reused, resource identifier.
func (r *Registry) NextResourceID() ResourceID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return r.nextID
}

// Register binds obj to ctx. Any previous binding is removed first, so an
// object is always a member of exactly one context set.
func (r *Registry) Register(obj Object, ctx ContextID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := obj.ResourceID()
	r.unregisterLocked(id)

	set, ok := r.contexts[ctx]
	if !ok {
		set = make(map[ResourceID]Object)
		r.contexts[ctx] = set
	}
	set[id] = obj
	r.resources[id] = ctx
	r.observer.ResourcesChanged(ctx, len(set))

	r.log.WithFields(logrus.Fields{"resource": id, "context": ctx}).Debug("resource registered")
}

// Unregister drops obj from its context. Unknown objects are ignored.
func (r *Registry) Unregister(obj Object) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregisterLocked(obj.ResourceID())
}

func (r *Registry) unregisterLocked(id ResourceID) {
	ctx, ok := r.resources[id]
	if !ok {
		return
	}
	if set, ok := r.contexts[ctx]; ok {
		delete(set, id)
		r.observer.ResourcesChanged(ctx, len(set))
		if len(set) == 0 {
			delete(r.contexts, ctx)
		}
	}
	delete(r.resources, id)
}

// ContextOf returns the context the resource is bound to.
func (r *Registry) ContextOf(id ResourceID) (ContextID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, ok := r.resources[id]
	return ctx, ok
}

// Members lists the resources bound to ctx in ascending order.
func (r *Registry) Members(ctx ContextID) []ResourceID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]ResourceID, 0, len(r.contexts[ctx]))
	for id := range r.contexts[ctx] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of resources bound to ctx.
func (r *Registry) Len(ctx ContextID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contexts[ctx])
}

func (r *Registry) snapshot(ctx ContextID) []Object {
	r.mu.Lock()
	defer r.mu.Unlock()
	objs := make([]Object, 0, len(r.contexts[ctx]))
	for _, obj := range r.contexts[ctx] {
		objs = append(objs, obj)
	}
	return objs
}

// DestroyAll destroys every resource bound to ctx. Order is unspecified.
// Membership is left untouched so a later CreateAll restores the set.
func (r *Registry) DestroyAll(ctx ContextID) {
	objs := r.snapshot(ctx)
	for _, obj := range objs {
		obj.Destroy()
	}
	r.log.WithFields(logrus.Fields{"context": ctx, "count": len(objs)}).Debug("context resources destroyed")
}

// CreateAll creates every resource bound to ctx, composites after the plain
// objects they are built from. Failures do not stop the remaining
// creations, they are joined into the returned error.
func (r *Registry) CreateAll(ctx ContextID) error {
	var errs []error
	objs := r.snapshot(ctx)
	sort.SliceStable(objs, func(i, j int) bool {
		_, ci := objs[i].(Composite)
		_, cj := objs[j].(Composite)
		return !ci && cj
	})
	for _, obj := range objs {
		if err := obj.Create(); err != nil {
			r.log.WithFields(logrus.Fields{"context": ctx, "resource": obj.ResourceID()}).WithError(err).Warn("resource creation failed")
			errs = append(errs, fmt.Errorf("resource %d: %w", obj.ResourceID(), err))
		}
	}
	return errors.Join(errs...)
}

// swap exchanges the complete membership of a and b.
func (r *Registry) swap(a, b ContextID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	setA, setB := r.contexts[a], r.contexts[b]
	delete(r.contexts, a)
	delete(r.contexts, b)
	if len(setB) > 0 {
		r.contexts[a] = setB
	}
	if len(setA) > 0 {
		r.contexts[b] = setA
	}
	for id := range setA {
		r.resources[id] = b
	}
	for id := range setB {
		r.resources[id] = a
	}
	r.observer.ResourcesChanged(a, len(setB))
	r.observer.ResourcesChanged(b, len(setA))
}

func (r *Registry) currentObserver() Observer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observer
}
