package graphics

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"

	"github.com/devblok/tessera/core"
	"github.com/devblok/tessera/gpu"
)

// StateProvider is the shader and pipeline state backend the render state
// dispatches to.
type StateProvider interface {
	// CompileDefault compiles one of the built-in shaders by name.
	CompileDefault(name string) error
	UseShader(name string) error
	SetUniform(name string, value interface{}) error
	BindTexture(unit int, tex *gpu.Texture) error
}

// ColoringMode selects where fragment colors come from.
type ColoringMode int

// Coloring modes
const (
	ColoringUniform ColoringMode = iota
	ColoringMesh
	ColoringTexture
	ColoringMaterial
	ColoringCustom
)

// Default shader names
const (
	ShaderColor            = "color"
	ShaderMesh             = "mesh"
	ShaderTexture          = "tex"
	ShaderLightingColor    = "lighting_color"
	ShaderLightingMesh     = "lighting_mesh"
	ShaderLightingTexture  = "lighting_tex"
	ShaderLightingMaterial = "lighting_material"
)

// DefaultShaders lists every built-in shader.
var DefaultShaders = []string{
	ShaderColor,
	ShaderMesh,
	ShaderTexture,
	ShaderLightingColor,
	ShaderLightingMesh,
	ShaderLightingTexture,
	ShaderLightingMaterial,
}

// Light is a single point light.
type Light struct {
	Pos     mgl32.Vec3
	Ambient mgl32.Vec4
	Diffuse mgl32.Vec4
}

// Material is a simple surface description for material coloring.
type Material struct {
	Ambient   mgl32.Vec4
	Diffuse   mgl32.Vec4
	Specular  mgl32.Vec4
	Shininess float32
}

// MatrixStack is a push/pop stack of 4x4 matrices.
type MatrixStack struct {
	stack []mgl32.Mat4
}

// NewMatrixStack creates a stack holding the identity.
func NewMatrixStack() *MatrixStack {
	return &MatrixStack{stack: []mgl32.Mat4{mgl32.Ident4()}}
}

// Top returns the current matrix.
func (s *MatrixStack) Top() mgl32.Mat4 {
	return s.stack[len(s.stack)-1]
}

// Set replaces the current matrix.
func (s *MatrixStack) Set(m mgl32.Mat4) {
	s.stack[len(s.stack)-1] = m
}

// Mul post-multiplies the current matrix by m.
func (s *MatrixStack) Mul(m mgl32.Mat4) {
	s.Set(s.Top().Mul4(m))
}

// Push duplicates the current matrix.
func (s *MatrixStack) Push() {
	s.stack = append(s.stack, s.Top())
}

// Pop restores the previous matrix. The bottom matrix is never popped.
func (s *MatrixStack) Pop() {
	if len(s.stack) > 1 {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

// Depth returns the number of matrices on the stack.
func (s *MatrixStack) Depth() int {
	return len(s.stack)
}

// Reset leaves only the identity.
func (s *MatrixStack) Reset() {
	s.stack = s.stack[:1]
	s.stack[0] = mgl32.Ident4()
}

// NewGraphics creates the render state over provider. A nil provider is
// allowed, Update then only tracks state.
func NewGraphics(provider StateProvider, log logrus.FieldLogger) *Graphics {
	if log == nil {
		log = core.NopLogger()
	}
	return &Graphics{
		provider:      provider,
		projection:    NewMatrixStack(),
		view:          NewMatrixStack(),
		model:         NewMatrixStack(),
		color:         mgl32.Vec4{1, 1, 1, 1},
		tint:          mgl32.Vec4{1, 1, 1, 1},
		clearColor:    mgl32.Vec4{0, 0, 0, 1},
		modeChanged:   true,
		uniformDirty:  true,
		matrixChanged: true,
		log:           log.WithField("component", "graphics.state"),
	}
}

// Graphics is the render state handed to draw callbacks. It tracks the
// matrix stacks, viewport, colors and coloring mode, and pushes changes to
// the StateProvider lazily in Update. It belongs to the render thread.
type Graphics struct {
	provider StateProvider

	projection *MatrixStack
	view       *MatrixStack
	model      *MatrixStack

	viewport    [4]int
	framebuffer *gpu.Framebuffer

	color      mgl32.Vec4
	tint       mgl32.Vec4
	clearColor mgl32.Vec4
	mode       ColoringMode
	lighting   bool
	light      Light
	material   Material
	shader     string

	initialized   bool
	modeChanged   bool
	uniformDirty  bool
	matrixChanged bool

	log logrus.FieldLogger
}

// Init compiles the default shaders once. Failures are joined, shaders that
// compiled stay usable.
func (g *Graphics) Init() error {
	if g.initialized || g.provider == nil {
		return nil
	}
	var errs []error
	for _, name := range DefaultShaders {
		if err := g.provider.CompileDefault(name); err != nil {
			errs = append(errs, fmt.Errorf("compile %s: %w", name, err))
		}
	}
	g.initialized = true
	return errors.Join(errs...)
}

// Projection returns the projection matrix stack.
func (g *Graphics) Projection() *MatrixStack { return g.projection }

// View returns the view matrix stack.
func (g *Graphics) View() *MatrixStack { return g.view }

// Model returns the model matrix stack.
func (g *Graphics) Model() *MatrixStack { return g.model }

// PushMatrix saves the model matrix.
func (g *Graphics) PushMatrix() {
	g.model.Push()
}

// PopMatrix restores the model matrix.
func (g *Graphics) PopMatrix() {
	g.model.Pop()
	g.matrixChanged = true
}

// Translate moves the model matrix.
func (g *Graphics) Translate(x, y, z float32) {
	g.model.Mul(mgl32.Translate3D(x, y, z))
	g.matrixChanged = true
}

// Rotate rotates the model matrix by angle radians about axis.
func (g *Graphics) Rotate(angle float32, axis mgl32.Vec3) {
	g.model.Mul(mgl32.HomogRotate3D(angle, axis))
	g.matrixChanged = true
}

// Scale scales the model matrix.
func (g *Graphics) Scale(x, y, z float32) {
	g.model.Mul(mgl32.Scale3D(x, y, z))
	g.matrixChanged = true
}

// ResetMatrixStack clears all three stacks to identity.
func (g *Graphics) ResetMatrixStack() {
	g.projection.Reset()
	g.view.Reset()
	g.model.Reset()
	g.matrixChanged = true
}

// Viewport sets the drawing rectangle.
func (g *Graphics) Viewport(x, y, w, h int) {
	g.viewport = [4]int{x, y, w, h}
}

// ViewportRect returns x, y, width, height of the viewport.
func (g *Graphics) ViewportRect() (int, int, int, int) {
	return g.viewport[0], g.viewport[1], g.viewport[2], g.viewport[3]
}

// Framebuffer selects the render target, nil is the window.
func (g *Graphics) Framebuffer(fb *gpu.Framebuffer) {
	g.framebuffer = fb
}

// Target returns the current render target, nil for the window.
func (g *Graphics) Target() *gpu.Framebuffer {
	return g.framebuffer
}

// Camera loads v's view and projection matrices.
func (g *Graphics) Camera(v *Viewpoint) {
	aspect := 1.0
	if g.viewport[3] > 0 {
		aspect = float64(g.viewport[2]) / float64(g.viewport[3])
	}
	g.projection.Set(v.Projection(aspect))
	g.view.Set(v.View())
	g.matrixChanged = true
}

// Color sets a uniform color and switches to uniform coloring.
func (g *Graphics) Color(r, gr, b, a float32) {
	g.color = mgl32.Vec4{r, gr, b, a}
	g.SetColoringMode(ColoringUniform)
	g.uniformDirty = true
}

// CurrentColor returns the uniform color.
func (g *Graphics) CurrentColor() mgl32.Vec4 { return g.color }

// Tint sets the color every mode is multiplied by.
func (g *Graphics) Tint(r, gr, b, a float32) {
	g.tint = mgl32.Vec4{r, gr, b, a}
	g.uniformDirty = true
}

// ClearColor sets the color a frame is cleared with.
func (g *Graphics) ClearColor(r, gr, b, a float32) {
	g.clearColor = mgl32.Vec4{r, gr, b, a}
}

// CurrentClearColor returns the clear color.
func (g *Graphics) CurrentClearColor() mgl32.Vec4 { return g.clearColor }

// MeshColor colors by vertex colors.
func (g *Graphics) MeshColor() { g.SetColoringMode(ColoringMesh) }

// Texture colors by the texture bound to unit 0.
func (g *Graphics) Texture(tex *gpu.Texture) error {
	g.SetColoringMode(ColoringTexture)
	if g.provider == nil || tex == nil {
		return nil
	}
	if err := tex.Validate(); err != nil {
		return err
	}
	return g.provider.BindTexture(0, tex)
}

// SetMaterial sets the material and switches to material coloring.
func (g *Graphics) SetMaterial(m Material) {
	g.material = m
	g.SetColoringMode(ColoringMaterial)
	g.uniformDirty = true
}

// SetLight sets the light and enables lighting.
func (g *Graphics) SetLight(l Light) {
	g.light = l
	g.Lighting(true)
	g.uniformDirty = true
}

// Lighting toggles lighting.
func (g *Graphics) Lighting(on bool) {
	if g.lighting != on {
		g.lighting = on
		g.modeChanged = true
	}
}

// SetColoringMode switches the coloring mode.
func (g *Graphics) SetColoringMode(m ColoringMode) {
	if g.mode != m {
		g.mode = m
		g.modeChanged = true
	}
}

// ColoringMode returns the current coloring mode.
func (g *Graphics) ColoringMode() ColoringMode { return g.mode }

// Shader uses a custom shader and switches to custom coloring.
func (g *Graphics) Shader(name string) error {
	g.SetColoringMode(ColoringCustom)
	g.modeChanged = false
	g.shader = name
	if g.provider == nil {
		return nil
	}
	return g.provider.UseShader(name)
}

// CurrentShader returns the shader selected by the last Update.
func (g *Graphics) CurrentShader() string { return g.shader }

func (g *Graphics) shaderFor() string {
	switch g.mode {
	case ColoringMesh:
		if g.lighting {
			return ShaderLightingMesh
		}
		return ShaderMesh
	case ColoringTexture:
		if g.lighting {
			return ShaderLightingTexture
		}
		return ShaderTexture
	case ColoringMaterial:
		if g.lighting {
			return ShaderLightingMaterial
		}
		return ShaderColor
	case ColoringCustom:
		return g.shader
	default:
		if g.lighting {
			return ShaderLightingColor
		}
		return ShaderColor
	}
}

// Update pushes pending state to the provider right before a draw: the
// shader for the coloring mode when it changed, then the uniforms it needs
// when any changed.
func (g *Graphics) Update() error {
	var errs []error
	if g.modeChanged {
		g.shader = g.shaderFor()
		if g.provider != nil && g.mode != ColoringCustom {
			if err := g.provider.UseShader(g.shader); err != nil {
				errs = append(errs, err)
			}
		}
		g.modeChanged = false
		g.uniformDirty = true
		g.matrixChanged = true
	}

	if g.provider == nil {
		g.uniformDirty, g.matrixChanged = false, false
		return nil
	}

	if g.uniformDirty && g.mode != ColoringCustom {
		set := func(name string, v interface{}) {
			if err := g.provider.SetUniform(name, v); err != nil {
				errs = append(errs, err)
			}
		}
		if g.lighting {
			set("light_pos", g.light.Pos)
			set("light_ambient", g.light.Ambient)
			set("light_diffuse", g.light.Diffuse)
		}
		switch g.mode {
		case ColoringUniform:
			set("col0", g.color)
		case ColoringMaterial:
			if g.lighting {
				set("mat_ambient", g.material.Ambient)
				set("mat_diffuse", g.material.Diffuse)
				set("mat_specular", g.material.Specular)
				set("mat_shininess", g.material.Shininess)
			} else {
				set("col0", g.color)
			}
		case ColoringTexture:
			set("tex0", 0)
		}
		set("tint", g.tint)
		g.uniformDirty = false
	}

	if g.matrixChanged {
		if err := g.provider.SetUniform("MV", g.view.Top().Mul4(g.model.Top())); err != nil {
			errs = append(errs, err)
		}
		if err := g.provider.SetUniform("P", g.projection.Top()); err != nil {
			errs = append(errs, err)
		}
		g.matrixChanged = false
	}

	if err := errors.Join(errs...); err != nil {
		g.log.WithError(err).Warn("render state update failed")
		return err
	}
	return nil
}
