// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gpu

// Buffer is a device buffer, e.g. a mesh's vertex data.
type Buffer struct {
	*Resource

	device Device
	desc   BufferDescriptor
}

// NewBuffer creates an unrealized buffer bound to ctx.
func NewBuffer(reg *Registry, ctx ContextID, device Device, desc BufferDescriptor) *Buffer {
	b := &Buffer{device: device, desc: desc}
	b.Resource = NewResource(reg, ctx, Procedures(
		func() (Handle, error) { return b.device.CreateBuffer(b.desc) },
		func(h Handle) { b.device.DestroyBuffer(h) },
	))
	return b
}

// Descriptor returns the buffer description.
func (b *Buffer) Descriptor() BufferDescriptor {
	return b.desc
}

// SetData replaces the contents, uploaded at the next Validate.
func (b *Buffer) SetData(data []byte) {
	b.desc.Data = data
	b.Invalidate()
}

// Texture is a 2D image on the device.
type Texture struct {
	*Resource

	device Device
	desc   TextureDescriptor
}

// NewTexture creates an unrealized texture bound to ctx.
func NewTexture(reg *Registry, ctx ContextID, device Device, desc TextureDescriptor) *Texture {
	t := &Texture{device: device, desc: desc}
	t.Resource = NewResource(reg, ctx, Procedures(
		func() (Handle, error) { return t.device.CreateTexture(t.desc) },
		func(h Handle) { t.device.DestroyTexture(h) },
	))
	return t
}

// Descriptor returns the texture description.
func (t *Texture) Descriptor() TextureDescriptor {
	return t.desc
}

// Resize changes the dimensions and drops the pixel data. Nothing happens
// when the size is unchanged.
func (t *Texture) Resize(width, height uint32) {
	if t.desc.Width == width && t.desc.Height == height {
		return
	}
	t.desc.Width, t.desc.Height = width, height
	t.desc.Pixels = nil
	t.Invalidate()
}

// SetPixels replaces the pixel data, uploaded at the next Validate.
func (t *Texture) SetPixels(pixels []byte) {
	t.desc.Pixels = pixels
	t.Invalidate()
}

// Shader is a compiled shader module.
type Shader struct {
	*Resource

	device Device
	desc   ShaderDescriptor
}

// NewShader creates an unrealized shader bound to ctx.
func NewShader(reg *Registry, ctx ContextID, device Device, desc ShaderDescriptor) *Shader {
	s := &Shader{device: device, desc: desc}
	s.Resource = NewResource(reg, ctx, Procedures(
		func() (Handle, error) { return s.device.CreateShader(s.desc) },
		func(h Handle) { s.device.DestroyShader(h) },
	))
	return s
}

// Name returns the shader name.
func (s *Shader) Name() string {
	return s.desc.Name
}

// Descriptor returns the shader description.
func (s *Shader) Descriptor() ShaderDescriptor {
	return s.desc
}

// SetSource replaces the source, recompiled at the next Validate.
func (s *Shader) SetSource(src []byte) {
	s.desc.Source = src
	s.Invalidate()
}

// Framebuffer renders into a set of textures. Attachments are validated
// before the framebuffer itself is created, and the framebuffer is rebuilt
// once any attachment was recreated underneath it.
type Framebuffer struct {
	*Resource

	device      Device
	label       string
	attachments []*Texture
	built       []Handle
}

// NewFramebuffer creates an unrealized framebuffer bound to ctx.
func NewFramebuffer(reg *Registry, ctx ContextID, device Device, label string, attachments ...*Texture) *Framebuffer {
	f := &Framebuffer{device: device, label: label, attachments: attachments}
	f.Resource = NewResource(reg, ctx, Procedures(f.create, func(h Handle) { f.device.DestroyFramebuffer(h) }))
	reg.Register(f, ctx)
	return f
}

func (f *Framebuffer) create() (Handle, error) {
	desc := FramebufferDescriptor{Label: f.label}
	for _, a := range f.attachments {
		if err := a.Validate(); err != nil {
			return 0, err
		}
		if !a.Created() {
			return 0, ErrAttachmentMissing
		}
		d := a.Descriptor()
		if d.Width > desc.Width {
			desc.Width = d.Width
		}
		if d.Height > desc.Height {
			desc.Height = d.Height
		}
		desc.Attachments = append(desc.Attachments, a.Handle())
	}
	h, err := f.device.CreateFramebuffer(desc)
	if err != nil {
		return 0, err
	}
	f.built = desc.Attachments
	return h, nil
}

// Validate realizes the attachments, then the framebuffer, recreating it
// when it refers to attachment handles that no longer exist.
func (f *Framebuffer) Validate() error {
	for _, a := range f.attachments {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	if f.Created() && f.stale() {
		f.Invalidate()
	}
	return f.Resource.Validate()
}

func (f *Framebuffer) stale() bool {
	if len(f.built) != len(f.attachments) {
		return true
	}
	for i, a := range f.attachments {
		if a.Handle() != f.built[i] {
			return true
		}
	}
	return false
}

// Parts implements Composite
func (f *Framebuffer) Parts() []Object {
	parts := make([]Object, len(f.attachments))
	for i, a := range f.attachments {
		parts[i] = a
	}
	return parts
}

// Attachments returns the attached textures.
func (f *Framebuffer) Attachments() []*Texture {
	return f.attachments
}
