// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devblok/tessera/domain"
)

type trace struct {
	events []string
}

func (t *trace) add(format string, args ...interface{}) {
	t.events = append(t.events, fmt.Sprintf(format, args...))
}

// child is a synchronous domain recording its lifecycle.
type child struct {
	*domain.Node
	trace   *trace
	initErr error
	parent  domain.Domain
	ticks   int
	cleaned int
}

func newChild(name string, tr *trace) *child {
	c := &child{trace: tr}
	c.Node = domain.NewNode(c, name, nil)
	return c
}

func (c *child) Initialize(parent domain.Domain) error {
	c.trace.add("init %s", c.Name())
	c.parent = parent
	if c.initErr != nil {
		return c.initErr
	}
	return c.Transition(domain.Initialized)
}

func (c *child) Tick() error {
	c.ticks++
	c.trace.add("tick %s", c.Name())
	return nil
}

func (c *child) Cleanup(domain.Domain) error {
	c.cleaned++
	c.trace.add("cleanup %s", c.Name())
	return c.Transition(domain.CleanedUp)
}

// root is an asynchronous domain running a fixed number of frames.
type root struct {
	*domain.Node
	trace  *trace
	frames int
	deps   []string
}

func newRoot(name string, frames int, tr *trace) *root {
	r := &root{trace: tr, frames: frames}
	r.Node = domain.NewNode(r, name, nil)
	return r
}

func (r *root) DependsOn() []string { return r.deps }

func (r *root) Initialize(domain.Domain) error {
	r.trace.add("init %s", r.Name())
	r.RunCallbacks(domain.PhaseInitialize)
	return r.Transition(domain.Initialized)
}

func (r *root) Start() error {
	if err := r.Transition(domain.Running); err != nil {
		return err
	}
	err := errors.Join(r.InitializeSubdomains(true), r.InitializeSubdomains(false))
	r.RunCallbacks(domain.PhaseStart)
	for i := 0; i < r.frames; i++ {
		r.LockFrame()
		r.TickSubdomains(true)
		r.trace.add("draw %s", r.Name())
		r.TickSubdomains(false)
		r.UnlockFrame()
	}
	return errors.Join(err, r.Stop())
}

func (r *root) Stop() error {
	if r.State() != domain.Running {
		return nil
	}
	r.RunCallbacks(domain.PhaseStop)
	r.trace.add("stop %s", r.Name())
	err := errors.Join(r.CleanupSubdomains(true), r.CleanupSubdomains(false))
	return errors.Join(err, r.Transition(domain.Stopped))
}

func (r *root) Cleanup(domain.Domain) error {
	r.RunCallbacks(domain.PhaseCleanup)
	r.trace.add("cleanup %s", r.Name())
	return r.Transition(domain.CleanedUp)
}

type recordingObserver struct {
	states   []string
	failures []string
}

func (o *recordingObserver) StateChanged(name string, s domain.State) {
	o.states = append(o.states, name+" "+s.String())
}

func (o *recordingObserver) LifecycleFailed(name, op string, err error) {
	o.failures = append(o.failures, name+" "+op)
}

func TestAsyncRootTicksChildrenInOrder(t *testing.T) {
	tr := &trace{}
	r := newRoot("graphics", 2, tr)
	pre := newChild("pre", tr)
	post := newChild("post", tr)
	r.AddSubdomain(post, false)
	r.AddSubdomain(pre, true)

	require.NoError(t, r.Initialize(nil))
	require.NoError(t, r.Start())

	assert.Equal(t, []string{
		"init graphics",
		"init pre",
		"init post",
		"tick pre", "draw graphics", "tick post",
		"tick pre", "draw graphics", "tick post",
		"stop graphics",
		"cleanup pre",
		"cleanup post",
	}, tr.events)
	assert.Equal(t, 2, pre.ticks)
	assert.Equal(t, 2, post.ticks)
	assert.Equal(t, 1, pre.cleaned)
	assert.Equal(t, 1, post.cleaned)
	assert.Same(t, r, pre.parent)

	// stopping again does not clean up twice
	require.NoError(t, r.Stop())
	assert.Equal(t, 1, pre.cleaned)
	assert.Equal(t, domain.Stopped, r.State())
}

func TestInitializeSubdomainsContinuesPastFailure(t *testing.T) {
	tr := &trace{}
	r := newRoot("root", 0, tr)
	failure := errors.New("no device")
	var children []*child
	for i := 0; i < 4; i++ {
		c := newChild(fmt.Sprintf("c%d", i), tr)
		if i == 1 {
			c.initErr = failure
		}
		r.AddSubdomain(c, true)
		children = append(children, c)
	}

	err := r.InitializeSubdomains(true)
	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, []string{"init c0", "init c1", "init c2", "init c3"}, tr.events)
	assert.Equal(t, domain.Uninitialized, children[1].State())
	assert.Equal(t, domain.Initialized, children[3].State())

	// the failed child is neither ticked nor cleaned up
	require.NoError(t, r.TickSubdomains(true))
	assert.Equal(t, 0, children[1].ticks)
	assert.Equal(t, 1, children[2].ticks)
	require.NoError(t, r.CleanupSubdomains(true))
	assert.Equal(t, 0, children[1].cleaned)
	assert.Equal(t, 1, children[0].cleaned)
}

func TestRemoveSubdomain(t *testing.T) {
	tr := &trace{}
	r := newRoot("root", 0, tr)
	a := newChild("a", tr)
	b := newChild("b", tr)
	r.AddSubdomain(a, true)
	r.AddSubdomain(b, true)

	assert.True(t, r.RemoveSubdomain(a))
	assert.False(t, r.RemoveSubdomain(a))
	assert.Equal(t, []domain.Synchronous{b}, r.Subdomains(true))
	assert.Empty(t, r.Subdomains(false))
}

func TestTransitions(t *testing.T) {
	c := newChild("c", &trace{})
	assert.ErrorIs(t, c.Transition(domain.Running), domain.ErrInvalidTransition)
	require.NoError(t, c.Transition(domain.Initialized))
	require.NoError(t, c.Transition(domain.Stopped))
	require.NoError(t, c.Transition(domain.CleanedUp))
	assert.ErrorIs(t, c.Transition(domain.Initialized), domain.ErrInvalidTransition)
	assert.ErrorIs(t, c.Transition(domain.Running), domain.ErrInvalidTransition)
}

func TestCallbacksRunInOrder(t *testing.T) {
	tr := &trace{}
	r := newRoot("root", 1, tr)
	r.OnInitialize(func() { tr.add("cb init 1") })
	r.OnInitialize(func() { tr.add("cb init 2") })
	r.OnStart(func() { tr.add("cb start") })
	r.OnStop(func() { tr.add("cb stop") })
	r.OnCleanup(func() { tr.add("cb cleanup") })

	require.NoError(t, r.Initialize(nil))
	require.NoError(t, r.Start())
	require.NoError(t, r.Cleanup(nil))

	assert.Equal(t, []string{
		"init root", "cb init 1", "cb init 2",
		"cb start",
		"draw root",
		"cb stop", "stop root",
		"cb cleanup", "cleanup root",
	}, tr.events)
}

func TestObserverSeesTransitionsAndFailures(t *testing.T) {
	tr := &trace{}
	obs := &recordingObserver{}
	r := newRoot("root", 0, tr)
	bad := newChild("bad", tr)
	bad.initErr = errors.New("boom")
	r.AddSubdomain(bad, true)
	r.SetObserver(obs)

	require.NoError(t, r.Initialize(nil))
	assert.Error(t, r.Start())

	assert.Equal(t, []string{"root initialized", "root running", "root stopped"}, obs.states)
	assert.Equal(t, []string{"root initialize bad"}, obs.failures)
}
