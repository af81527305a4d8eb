// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devblok/tessera/domain"
)

// failingInit is an asynchronous domain whose initialization fails.
type failingInit struct {
	*root
}

func (f *failingInit) Initialize(domain.Domain) error {
	f.trace.add("init %s", f.Name())
	return errors.New("no audio device")
}

func TestRegistryRunOrder(t *testing.T) {
	tr := &trace{}
	reg := domain.NewRegistry(nil)
	graphics := newRoot("graphics", 1, tr)
	graphics.deps = []string{"audio", "messages"}
	audio := newRoot("audio", 0, tr)
	messages := newRoot("messages", 0, tr)

	require.NoError(t, reg.Add(graphics))
	require.NoError(t, reg.Add(audio))
	require.NoError(t, reg.Add(messages))
	assert.ErrorIs(t, reg.Add(newRoot("audio", 0, tr)), domain.ErrDuplicateDomain)

	order, err := reg.Order()
	require.NoError(t, err)
	require.Len(t, order, 3)
	assert.Equal(t, "audio", order[0].Name())
	assert.Equal(t, "messages", order[1].Name())
	assert.Equal(t, "graphics", order[2].Name())

	require.NoError(t, reg.Run())
	assert.Equal(t, []string{
		"init audio", "init messages", "init graphics",
		"stop audio", "stop messages",
		"draw graphics", "stop graphics",
		"cleanup graphics", "cleanup messages", "cleanup audio",
	}, tr.events)
	assert.Empty(t, reg.Running())
	for _, d := range reg.Domains() {
		assert.Equal(t, domain.CleanedUp, d.State())
	}
}

func TestRegistryStopsInReverse(t *testing.T) {
	tr := &trace{}
	reg := domain.NewRegistry(nil)
	first := &longRunning{root: newRoot("first", 0, tr)}
	first.Node = domain.NewNode(first, "first", nil)
	second := &longRunning{root: newRoot("second", 0, tr)}
	second.Node = domain.NewNode(second, "second", nil)
	require.NoError(t, reg.Add(first))
	require.NoError(t, reg.Add(second))

	require.NoError(t, reg.Initialize())
	require.NoError(t, reg.Start())
	require.Len(t, reg.Running(), 2)

	require.NoError(t, reg.Stop())
	assert.Equal(t, []string{"init first", "init second", "stop second", "stop first"}, tr.events)
}

// longRunning returns from Start with the domain still running.
type longRunning struct {
	*root
}

func (l *longRunning) Start() error {
	return l.Transition(domain.Running)
}

func TestRegistryBestEffort(t *testing.T) {
	tr := &trace{}
	obs := &recordingObserver{}
	reg := domain.NewRegistry(nil)
	reg.SetObserver(obs)

	broken := &failingInit{root: newRoot("audio", 0, tr)}
	broken.Node = domain.NewNode(broken, "audio", nil)
	graphics := newRoot("graphics", 1, tr)
	require.NoError(t, reg.Add(broken))
	require.NoError(t, reg.Add(graphics))

	err := reg.Run()
	require.Error(t, err)
	assert.Contains(t, tr.events, "draw graphics")
	assert.NotContains(t, tr.events, "cleanup audio")
	assert.Equal(t, domain.Uninitialized, broken.State())
	assert.Equal(t, domain.CleanedUp, graphics.State())
	assert.Contains(t, obs.failures, "audio initialize")
}

func TestRegistryDependencyErrors(t *testing.T) {
	tr := &trace{}
	reg := domain.NewRegistry(nil)
	a := newRoot("a", 0, tr)
	a.deps = []string{"b"}
	b := newRoot("b", 0, tr)
	b.deps = []string{"a"}
	require.NoError(t, reg.Add(a))
	require.NoError(t, reg.Add(b))

	assert.ErrorIs(t, reg.Initialize(), domain.ErrDependencyCycle)
	assert.Empty(t, tr.events)

	reg = domain.NewRegistry(nil)
	c := newRoot("c", 0, tr)
	c.deps = []string{"missing"}
	require.NoError(t, reg.Add(c))
	_, err := reg.Order()
	assert.ErrorIs(t, err, domain.ErrUnknownDependency)
}

func TestRegistryGet(t *testing.T) {
	reg := domain.NewRegistry(nil)
	r := newRoot("graphics", 0, &trace{})
	require.NoError(t, reg.Add(r))

	got, ok := reg.Get("graphics")
	require.True(t, ok)
	assert.Same(t, r, got)
	_, ok = reg.Get("audio")
	assert.False(t, ok)
}
