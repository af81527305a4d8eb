// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package domain composes an application out of subsystems with their own
// lifecycle. Synchronous domains are ticked by a parent, asynchronous ones
// run their own loop. Any domain may own synchronous sub-domains, ticked
// before (pre) or after (post) the parent's own per-frame work.
package domain

import (
	"errors"
	"fmt"
)

// State is the lifecycle position of a domain.
type State int

// Domain states
const (
	Uninitialized State = iota
	Initialized
	Running
	Stopped
	CleanedUp
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case CleanedUp:
		return "cleaned up"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// package errors
var (
	ErrInvalidTransition = errors.New("domain: invalid state transition")
	ErrDependencyCycle   = errors.New("domain: dependency cycle")
	ErrUnknownDependency = errors.New("domain: unknown dependency")
	ErrDuplicateDomain   = errors.New("domain: name already registered")
)

// Domain is the capability set shared by every domain. The parent is nil
// for top-level domains.
type Domain interface {
	Name() string
	State() State
	Initialize(parent Domain) error
	Cleanup(parent Domain) error
}

// Synchronous domains have no thread of their own, their owner ticks them.
type Synchronous interface {
	Domain
	Tick() error
}

// Asynchronous domains own their run loop. Start may block until the loop
// ends, Stop must be safe to call after the loop has already ended.
type Asynchronous interface {
	Domain
	Start() error
	Stop() error
}

// Dependent domains are initialized and started after the named ones.
type Dependent interface {
	DependsOn() []string
}

// Observer receives lifecycle events, used for telemetry.
type Observer interface {
	StateChanged(domain string, state State)
	LifecycleFailed(domain string, op string, err error)
}

type nopObserver struct{}

func (nopObserver) StateChanged(string, State)            {}
func (nopObserver) LifecycleFailed(string, string, error) {}

var transitions = map[State][]State{
	Uninitialized: {Initialized},
	Initialized:   {Running, Stopped, CleanedUp},
	Running:       {Stopped},
	Stopped:       {Running, CleanedUp},
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
