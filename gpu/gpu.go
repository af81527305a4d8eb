// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gpu keeps track of GPU-backed objects and the rendering contexts
// they belong to. Objects are lazily realized on the thread that owns their
// context and are torn down through the Registry when a context goes away,
// never one-by-one by the application.
//
// The Registry and the Contexts table are ordinary values: an application
// normally creates one of each at start-up and hands them to everything that
// creates resources. Tests build fresh instances instead of resetting state.
package gpu

import "errors"

// ContextID identifies the resource namespace of one rendering context.
type ContextID int

// Reserved context identifiers. Identifiers are handed out from
// DefaultContext upwards and are never reused.
const (
	InvalidContext ContextID = 0
	DefaultContext ContextID = 1
)

// ResourceID is the registry key of a resource. It is generated by the
// Registry and stays stable for the whole life of the resource.
type ResourceID uint64

// Handle is the opaque device handle of a realized resource.
// Zero means the resource has not been created.
type Handle uint64

// package errors
var (
	ErrNotCreated        = errors.New("gpu: creation procedure did not produce a handle")
	ErrContextDestroyed  = errors.New("gpu: rendering context destroyed")
	ErrNoCurrentContext  = errors.New("gpu: no current rendering context")
	ErrAttachmentMissing = errors.New("gpu: framebuffer attachment not created")
)

// Observer receives registry bookkeeping changes, used for telemetry.
type Observer interface {
	ResourcesChanged(ctx ContextID, count int)
	ContextsChanged(live int)
}

type nopObserver struct{}

func (nopObserver) ResourcesChanged(ContextID, int) {}
func (nopObserver) ContextsChanged(int)             {}
