// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devblok/tessera/gpu"
)

func TestBufferSetData(t *testing.T) {
	dev := newFakeDevice()
	reg := gpu.NewRegistry(nil)
	buf := gpu.NewBuffer(reg, gpu.DefaultContext, dev, gpu.BufferDescriptor{Label: "vertices"})

	require.NoError(t, buf.Validate())
	buf.SetData([]byte{1, 2, 3})
	require.NoError(t, buf.Validate())

	assert.Equal(t, []string{"create buffer", "destroy buffer", "create buffer"}, dev.calls)
	assert.Equal(t, []byte{1, 2, 3}, buf.Descriptor().Data)
	assert.Len(t, dev.live, 1)
}

func TestTextureResize(t *testing.T) {
	dev := newFakeDevice()
	reg := gpu.NewRegistry(nil)
	tex := gpu.NewTexture(reg, gpu.DefaultContext, dev, gpu.TextureDescriptor{
		Width:  4,
		Height: 4,
		Pixels: make([]byte, 64),
	})
	require.NoError(t, tex.Validate())

	tex.Resize(4, 4)
	assert.False(t, tex.Pending())

	tex.Resize(8, 2)
	assert.True(t, tex.Pending())
	assert.Nil(t, tex.Descriptor().Pixels)
	require.NoError(t, tex.Validate())
	assert.Equal(t, uint32(8), tex.Descriptor().Width)
	assert.Len(t, dev.live, 1)
}

func TestShaderSetSource(t *testing.T) {
	dev := newFakeDevice()
	reg := gpu.NewRegistry(nil)
	sh := gpu.NewShader(reg, gpu.DefaultContext, dev, gpu.ShaderDescriptor{Name: "lit", Stage: gpu.FragmentStage})
	assert.Equal(t, "lit", sh.Name())

	sh.SetSource([]byte("void main() {}"))
	require.NoError(t, sh.Validate())
	assert.Equal(t, []string{"create shader"}, dev.calls)
}

func TestFramebufferValidatesAttachments(t *testing.T) {
	dev := newFakeDevice()
	reg := gpu.NewRegistry(nil)
	color := gpu.NewTexture(reg, gpu.DefaultContext, dev, gpu.TextureDescriptor{Width: 64, Height: 32})
	depth := gpu.NewTexture(reg, gpu.DefaultContext, dev, gpu.TextureDescriptor{Width: 32, Height: 48, Format: gpu.Depth32F})
	fb := gpu.NewFramebuffer(reg, gpu.DefaultContext, dev, "offscreen", color, depth)

	require.NoError(t, fb.Validate())
	assert.True(t, color.Created())
	assert.True(t, depth.Created())
	assert.Equal(t, uint32(64), dev.lastFrame.Width)
	assert.Equal(t, uint32(48), dev.lastFrame.Height)
	assert.Equal(t, []gpu.Handle{color.Handle(), depth.Handle()}, dev.lastFrame.Attachments)
	assert.Len(t, fb.Attachments(), 2)
}

func TestFramebufferAttachmentFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.failOn = "texture"
	reg := gpu.NewRegistry(nil)
	color := gpu.NewTexture(reg, gpu.DefaultContext, dev, gpu.TextureDescriptor{Width: 1, Height: 1})
	fb := gpu.NewFramebuffer(reg, gpu.DefaultContext, dev, "broken", color)

	require.Error(t, fb.Validate())
	assert.False(t, fb.Created())
	assert.NotContains(t, dev.calls, "create framebuffer")
}

func TestVariantsTornDownWithContext(t *testing.T) {
	dev := newFakeDevice()
	reg := gpu.NewRegistry(nil)
	contexts := gpu.NewContexts(reg, gpu.KeepBindings, nil)
	c := contexts.New()

	buf := gpu.NewBuffer(reg, c.ID(), dev, gpu.BufferDescriptor{})
	tex := gpu.NewTexture(reg, c.ID(), dev, gpu.TextureDescriptor{Width: 2, Height: 2})
	fb := gpu.NewFramebuffer(reg, c.ID(), dev, "fb", tex)
	require.NoError(t, buf.Validate())
	require.NoError(t, fb.Validate())
	require.Len(t, dev.live, 3)

	c.Destroy()
	assert.Empty(t, dev.live)
}

func TestFramebufferCreateAllUsesLiveAttachments(t *testing.T) {
	for i := 0; i < 50; i++ {
		dev := newFakeDevice()
		reg := gpu.NewRegistry(nil)
		color := gpu.NewTexture(reg, gpu.DefaultContext, dev, gpu.TextureDescriptor{Width: 4, Height: 4})
		depth := gpu.NewTexture(reg, gpu.DefaultContext, dev, gpu.TextureDescriptor{Width: 4, Height: 4, Format: gpu.Depth32F})
		fb := gpu.NewFramebuffer(reg, gpu.DefaultContext, dev, "fb", color, depth)

		require.NoError(t, reg.CreateAll(gpu.DefaultContext))
		require.True(t, fb.Created())
		for _, h := range dev.lastFrame.Attachments {
			require.Contains(t, dev.live, h)
		}
		require.Len(t, dev.live, 3)
	}
}

func TestFramebufferRebuiltAfterAttachmentChange(t *testing.T) {
	dev := newFakeDevice()
	reg := gpu.NewRegistry(nil)
	color := gpu.NewTexture(reg, gpu.DefaultContext, dev, gpu.TextureDescriptor{Width: 4, Height: 4})
	fb := gpu.NewFramebuffer(reg, gpu.DefaultContext, dev, "fb", color)
	require.NoError(t, fb.Validate())
	first := fb.Handle()

	color.Resize(16, 8)
	require.NoError(t, fb.Validate())
	assert.NotEqual(t, first, fb.Handle())
	assert.Equal(t, []gpu.Handle{color.Handle()}, dev.lastFrame.Attachments)
	assert.Equal(t, uint32(16), dev.lastFrame.Width)
	assert.Len(t, dev.live, 2)

	// unchanged attachments keep the framebuffer
	kept := fb.Handle()
	require.NoError(t, fb.Validate())
	assert.Equal(t, kept, fb.Handle())

	// a texture recreated on its own is picked up too
	require.NoError(t, color.Create())
	require.NoError(t, fb.Validate())
	assert.Equal(t, []gpu.Handle{color.Handle()}, dev.lastFrame.Attachments)
	assert.Len(t, dev.live, 2)
}

func TestTextureFormatBytesPerPixel(t *testing.T) {
	assert.Equal(t, 4, gpu.RGBA8.BytesPerPixel())
	assert.Equal(t, 4, gpu.Depth32F.BytesPerPixel())
	assert.Equal(t, 1, gpu.R8.BytesPerPixel())
}
