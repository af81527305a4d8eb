package graphics

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/devblok/tessera/core"
	"github.com/devblok/tessera/gpu"
)

// ErrNoShader is returned when uniforms are set with no shader in use.
var ErrNoShader = errors.New("graphics: no shader in use")

// program is a vertex and fragment shader pair.
type program struct {
	vertex   *gpu.Shader
	fragment *gpu.Shader
}

func (p *program) validate() error {
	return errors.Join(p.vertex.Validate(), p.fragment.Validate())
}

func (p *program) release() {
	p.vertex.Release()
	p.fragment.Release()
}

// NewResourceStateProvider creates a StateProvider keeping its shaders as
// gpu resources of the context current when they are compiled.
func NewResourceStateProvider(contexts *gpu.Contexts, device gpu.Device, library *ShaderLibrary, log logrus.FieldLogger) *ResourceStateProvider {
	if log == nil {
		log = core.NopLogger()
	}
	if library == nil {
		library = NewShaderLibrary("", nil, log)
	}
	return &ResourceStateProvider{
		contexts: contexts,
		device:   device,
		library:  library,
		programs: make(map[string]*program),
		uniforms: make(map[string]interface{}),
		textures: make(map[int]*gpu.Texture),
		log:      log.WithField("component", "graphics.provider"),
	}
}

// ResourceStateProvider implements StateProvider over gpu resources.
// Uniform values and texture bindings are recorded for the draw calls
// that follow. It belongs to the render thread.
type ResourceStateProvider struct {
	contexts *gpu.Contexts
	device   gpu.Device
	library  *ShaderLibrary

	programs map[string]*program
	current  string
	uniforms map[string]interface{}
	textures map[int]*gpu.Texture

	log logrus.FieldLogger
}

// CompileDefault implements StateProvider
func (p *ResourceStateProvider) CompileDefault(name string) error {
	src, err := p.library.Load(name)
	if err != nil {
		return err
	}
	p.log.WithFields(logrus.Fields{"shader": name, "origin": src.Origin}).Debug("compiling shader")
	return p.AddShader(name, src.Vertex, src.Fragment)
}

// AddShader compiles a program from vertex and fragment sources on the
// current context, replacing any program of the same name.
func (p *ResourceStateProvider) AddShader(name string, vertex, fragment []byte) error {
	ctx := p.contexts.CurrentID()
	if ctx == gpu.InvalidContext {
		return gpu.ErrNoCurrentContext
	}
	reg := p.contexts.Registry()
	prog := &program{
		vertex:   gpu.NewShader(reg, ctx, p.device, gpu.ShaderDescriptor{Name: name, Stage: gpu.VertexStage, Source: vertex}),
		fragment: gpu.NewShader(reg, ctx, p.device, gpu.ShaderDescriptor{Name: name, Stage: gpu.FragmentStage, Source: fragment}),
	}
	if err := prog.validate(); err != nil {
		prog.release()
		return fmt.Errorf("%s: %w", name, err)
	}
	if old, ok := p.programs[name]; ok {
		old.release()
	}
	p.programs[name] = prog
	return nil
}

// UseShader implements StateProvider
func (p *ResourceStateProvider) UseShader(name string) error {
	prog, ok := p.programs[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrUnknownShader)
	}
	if err := prog.validate(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if p.current != name {
		p.uniforms = make(map[string]interface{})
	}
	p.current = name
	return nil
}

// SetUniform implements StateProvider
func (p *ResourceStateProvider) SetUniform(name string, value interface{}) error {
	if p.current == "" {
		return ErrNoShader
	}
	p.uniforms[name] = value
	return nil
}

// BindTexture implements StateProvider
func (p *ResourceStateProvider) BindTexture(unit int, tex *gpu.Texture) error {
	if tex == nil {
		delete(p.textures, unit)
		return nil
	}
	if err := tex.Validate(); err != nil {
		return err
	}
	p.textures[unit] = tex
	return nil
}

// Current returns the shader in use.
func (p *ResourceStateProvider) Current() string {
	return p.current
}

// Uniform returns the last value set for name on the current shader.
func (p *ResourceStateProvider) Uniform(name string) (interface{}, bool) {
	v, ok := p.uniforms[name]
	return v, ok
}

// Texture returns the texture bound to unit.
func (p *ResourceStateProvider) Texture(unit int) *gpu.Texture {
	return p.textures[unit]
}

// Release releases every program.
func (p *ResourceStateProvider) Release() {
	for name, prog := range p.programs {
		prog.release()
		delete(p.programs, name)
	}
	p.current = ""
}
