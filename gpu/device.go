// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gpu

// Device creates and destroys the device objects behind resource variants.
// Implementations are confined to the goroutine owning the context, same
// as the resources they serve.
type Device interface {
	CreateBuffer(BufferDescriptor) (Handle, error)
	DestroyBuffer(Handle)

	CreateTexture(TextureDescriptor) (Handle, error)
	DestroyTexture(Handle)

	CreateShader(ShaderDescriptor) (Handle, error)
	DestroyShader(Handle)

	CreateFramebuffer(FramebufferDescriptor) (Handle, error)
	DestroyFramebuffer(Handle)
}

// BufferUsage says what a buffer is bound as.
type BufferUsage int

// Buffer usages
const (
	VertexBuffer BufferUsage = iota
	IndexBuffer
	UniformBuffer
	StorageBuffer
)

// BufferDescriptor describes a buffer object.
type BufferDescriptor struct {
	Label string
	Usage BufferUsage
	Data  []byte
}

// TextureFormat is the pixel layout of a texture.
type TextureFormat int

// Texture formats
const (
	RGBA8 TextureFormat = iota
	BGRA8
	R8
	Depth32F
)

// BytesPerPixel returns the pixel stride of f.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case R8:
		return 1
	default:
		return 4
	}
}

// TextureDescriptor describes a 2D texture. Pixels may be nil for
// render targets.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format TextureFormat
	Pixels []byte
}

// ShaderStage identifies the pipeline stage of a shader module.
type ShaderStage int

// Shader stages
const (
	VertexStage ShaderStage = iota
	FragmentStage
)

// ShaderDescriptor describes one shader module.
type ShaderDescriptor struct {
	Name   string
	Stage  ShaderStage
	Source []byte
}

// FramebufferDescriptor describes a framebuffer over created textures.
type FramebufferDescriptor struct {
	Label       string
	Width       uint32
	Height      uint32
	Attachments []Handle
}
