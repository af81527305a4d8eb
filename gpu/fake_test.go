// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gpu_test

import (
	"errors"
	"fmt"

	"github.com/devblok/tessera/gpu"
)

// fakeDevice hands out increasing handles and records every call.
type fakeDevice struct {
	next      gpu.Handle
	live      map[gpu.Handle]string
	calls     []string
	failOn    string
	lastFrame gpu.FramebufferDescriptor
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{live: make(map[gpu.Handle]string)}
}

func (d *fakeDevice) create(kind string) (gpu.Handle, error) {
	d.calls = append(d.calls, "create "+kind)
	if d.failOn == kind {
		return 0, errors.New("fake: " + kind + " failed")
	}
	d.next++
	d.live[d.next] = kind
	return d.next, nil
}

func (d *fakeDevice) destroy(kind string, h gpu.Handle) {
	d.calls = append(d.calls, fmt.Sprintf("destroy %s", kind))
	delete(d.live, h)
}

func (d *fakeDevice) CreateBuffer(gpu.BufferDescriptor) (gpu.Handle, error) {
	return d.create("buffer")
}
func (d *fakeDevice) DestroyBuffer(h gpu.Handle) { d.destroy("buffer", h) }

func (d *fakeDevice) CreateTexture(gpu.TextureDescriptor) (gpu.Handle, error) {
	return d.create("texture")
}
func (d *fakeDevice) DestroyTexture(h gpu.Handle) { d.destroy("texture", h) }

func (d *fakeDevice) CreateShader(gpu.ShaderDescriptor) (gpu.Handle, error) {
	return d.create("shader")
}
func (d *fakeDevice) DestroyShader(h gpu.Handle) { d.destroy("shader", h) }

func (d *fakeDevice) CreateFramebuffer(desc gpu.FramebufferDescriptor) (gpu.Handle, error) {
	d.lastFrame = desc
	return d.create("framebuffer")
}
func (d *fakeDevice) DestroyFramebuffer(h gpu.Handle) { d.destroy("framebuffer", h) }

// countingProc counts procedure invocations.
type countingProc struct {
	created   int
	destroyed int
	handle    gpu.Handle
	err       error
	log       *[]string
}

func (p *countingProc) OnCreate() (gpu.Handle, error) {
	p.created++
	if p.log != nil {
		*p.log = append(*p.log, "create")
	}
	if p.err != nil {
		return 0, p.err
	}
	return p.handle, nil
}

func (p *countingProc) OnDestroy(gpu.Handle) {
	p.destroyed++
	if p.log != nil {
		*p.log = append(*p.log, "destroy")
	}
}
