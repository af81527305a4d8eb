// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gpu_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devblok/tessera/gpu"
)

func TestResourceLazyCreation(t *testing.T) {
	reg := gpu.NewRegistry(nil)
	proc := &countingProc{handle: 9}
	res := gpu.NewResource(reg, gpu.DefaultContext, proc)

	assert.False(t, res.Created())
	assert.Equal(t, 0, proc.created)

	require.NoError(t, res.Validate())
	require.NoError(t, res.Validate())
	assert.Equal(t, 1, proc.created)
	assert.Equal(t, gpu.Handle(9), res.Handle())
}

func TestResourceCreateOnCreated(t *testing.T) {
	var calls []string
	reg := gpu.NewRegistry(nil)
	res := gpu.NewResource(reg, gpu.DefaultContext, &countingProc{handle: 1, log: &calls})

	require.NoError(t, res.Create())
	require.NoError(t, res.Create())
	assert.Equal(t, []string{"create", "destroy", "create"}, calls)
}

func TestResourceInvalidateValidate(t *testing.T) {
	var calls []string
	reg := gpu.NewRegistry(nil)
	res := gpu.NewResource(reg, gpu.DefaultContext, &countingProc{handle: 1, log: &calls})
	require.NoError(t, res.Validate())

	res.Invalidate()
	assert.True(t, res.Pending())
	assert.True(t, res.Created(), "device object kept until the next validate")

	require.NoError(t, res.Validate())
	assert.False(t, res.Pending())
	assert.Equal(t, []string{"create", "destroy", "create"}, calls)
}

func TestResourceDestroyIdempotent(t *testing.T) {
	reg := gpu.NewRegistry(nil)
	proc := &countingProc{handle: 5}
	res := gpu.NewResource(reg, gpu.DefaultContext, proc)

	res.Destroy()
	assert.Equal(t, 0, proc.destroyed)

	require.NoError(t, res.Validate())
	res.Destroy()
	res.Destroy()
	assert.Equal(t, 1, proc.destroyed)
}

func TestResourceCreateFailure(t *testing.T) {
	reg := gpu.NewRegistry(nil)
	failure := errors.New("device lost")
	res := gpu.NewResource(reg, gpu.DefaultContext, &countingProc{err: failure})
	err := res.Validate()
	assert.ErrorIs(t, err, failure)
	assert.False(t, res.Created())

	zero := gpu.NewResource(reg, gpu.DefaultContext, &countingProc{})
	assert.ErrorIs(t, zero.Validate(), gpu.ErrNotCreated)
	assert.False(t, zero.Created())
}

func TestResourceRelease(t *testing.T) {
	reg := gpu.NewRegistry(nil)
	proc := &countingProc{handle: 2}
	res := gpu.NewResource(reg, gpu.DefaultContext, proc)
	require.NoError(t, res.Validate())

	res.Release()
	assert.Equal(t, 1, proc.destroyed)
	assert.Equal(t, 0, reg.Len(gpu.DefaultContext))

	// a released resource is no longer reached by context teardown
	reg.DestroyAll(gpu.DefaultContext)
	assert.Equal(t, 1, proc.destroyed)
}

func TestProcedures(t *testing.T) {
	var destroyed gpu.Handle
	reg := gpu.NewRegistry(nil)
	res := gpu.NewResource(reg, gpu.DefaultContext, gpu.Procedures(
		func() (gpu.Handle, error) { return 42, nil },
		func(h gpu.Handle) { destroyed = h },
	))
	require.NoError(t, res.Validate())
	res.Destroy()
	assert.Equal(t, gpu.Handle(42), destroyed)
}

func TestNewResourceCurrent(t *testing.T) {
	reg := gpu.NewRegistry(nil)
	contexts := gpu.NewContexts(reg, gpu.KeepBindings, nil)

	_, err := gpu.NewResourceCurrent(contexts, &countingProc{handle: 1})
	assert.ErrorIs(t, err, gpu.ErrNoCurrentContext)

	contexts.New()
	second := contexts.New()
	require.NoError(t, second.MakeCurrent())
	res, err := gpu.NewResourceCurrent(contexts, &countingProc{handle: 1})
	require.NoError(t, err)
	ctx, ok := res.Context()
	require.True(t, ok)
	assert.Equal(t, second.ID(), ctx)
}
