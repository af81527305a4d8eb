package graphics_test

import (
	"errors"
	"fmt"

	"github.com/devblok/tessera/core"
	"github.com/devblok/tessera/graphics"
	"github.com/devblok/tessera/gpu"
)

type recorder struct {
	events []string
}

func (r *recorder) add(format string, args ...interface{}) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

// fakeWindow is a Window recording what the domain does with it.
type fakeWindow struct {
	rec        *recorder
	title      string
	created    bool
	createErr  error
	fullscreen bool
	hidden     bool
	width      int
	height     int
	destroyed  int
	refreshed  int
}

func (w *fakeWindow) Create() error {
	if w.createErr != nil {
		return w.createErr
	}
	w.created = true
	w.rec.add("create %s", w.title)
	return nil
}

func (w *fakeWindow) Destroy() {
	w.created = false
	w.destroyed++
	w.rec.add("destroy %s", w.title)
}

func (w *fakeWindow) Created() bool      { return w.created }
func (w *fakeWindow) MakeCurrent() error { return nil }
func (w *fakeWindow) Refresh()           { w.refreshed++; w.rec.add("refresh %s", w.title) }
func (w *fakeWindow) Size() (int, int)   { return w.width, w.height }
func (w *fakeWindow) FullScreen() bool   { return w.fullscreen }
func (w *fakeWindow) CursorHidden() bool { return w.hidden }
func (w *fakeWindow) Title() string      { return w.title }
func (w *fakeWindow) SetTitle(t string)  { w.title = t }
func (w *fakeWindow) SetFullScreen(on bool) error {
	w.fullscreen = on
	return nil
}
func (w *fakeWindow) SetCursorHide(on bool) error {
	w.hidden = on
	return nil
}

// windowFactory builds fake windows and remembers them by title.
type windowFactory struct {
	rec       *recorder
	windows   map[string]*fakeWindow
	createErr error
}

func newWindowFactory(rec *recorder) *windowFactory {
	return &windowFactory{rec: rec, windows: make(map[string]*fakeWindow)}
}

func (f *windowFactory) build(cfg core.WindowConfiguration) graphics.Window {
	w := &fakeWindow{rec: f.rec, title: cfg.Title, width: cfg.Width, height: cfg.Height, createErr: f.createErr}
	f.windows[cfg.Title] = w
	return w
}

// scriptedEvents feeds one batch of input per frame.
type scriptedEvents struct {
	frames [][]graphics.Key
	quitAt int
	polled int
}

func (s *scriptedEvents) Poll(h *graphics.Handlers) bool {
	if s.polled < len(s.frames) {
		for _, k := range s.frames[s.polled] {
			h.KeyDown(k)
		}
	}
	s.polled++
	return s.quitAt > 0 && s.polled >= s.quitAt
}

// fakeProvider records the state pushed by Graphics.
type fakeProvider struct {
	compiled []string
	used     []string
	uniforms map[string]interface{}
	textures map[int]*gpu.Texture
	failUse  string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{uniforms: make(map[string]interface{}), textures: make(map[int]*gpu.Texture)}
}

func (p *fakeProvider) CompileDefault(name string) error {
	p.compiled = append(p.compiled, name)
	return nil
}

func (p *fakeProvider) UseShader(name string) error {
	if name == p.failUse {
		return errors.New("fake: cannot use " + name)
	}
	p.used = append(p.used, name)
	return nil
}

func (p *fakeProvider) SetUniform(name string, v interface{}) error {
	p.uniforms[name] = v
	return nil
}

func (p *fakeProvider) BindTexture(unit int, tex *gpu.Texture) error {
	p.textures[unit] = tex
	return nil
}

func (p *fakeProvider) lastUsed() string {
	if len(p.used) == 0 {
		return ""
	}
	return p.used[len(p.used)-1]
}

// fakeDevice hands out handles and tracks live ones.
type fakeDevice struct {
	next gpu.Handle
	live map[gpu.Handle]string
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{live: make(map[gpu.Handle]string)}
}

func (d *fakeDevice) create(kind string) (gpu.Handle, error) {
	d.next++
	d.live[d.next] = kind
	return d.next, nil
}

func (d *fakeDevice) count(kind string) int {
	n := 0
	for _, k := range d.live {
		if k == kind {
			n++
		}
	}
	return n
}

func (d *fakeDevice) CreateBuffer(gpu.BufferDescriptor) (gpu.Handle, error) { return d.create("buffer") }
func (d *fakeDevice) DestroyBuffer(h gpu.Handle)                            { delete(d.live, h) }
func (d *fakeDevice) CreateTexture(gpu.TextureDescriptor) (gpu.Handle, error) {
	return d.create("texture")
}
func (d *fakeDevice) DestroyTexture(h gpu.Handle)                           { delete(d.live, h) }
func (d *fakeDevice) CreateShader(gpu.ShaderDescriptor) (gpu.Handle, error) { return d.create("shader") }
func (d *fakeDevice) DestroyShader(h gpu.Handle)                            { delete(d.live, h) }
func (d *fakeDevice) CreateFramebuffer(gpu.FramebufferDescriptor) (gpu.Handle, error) {
	return d.create("framebuffer")
}
func (d *fakeDevice) DestroyFramebuffer(h gpu.Handle) { delete(d.live, h) }

func testConfiguration() core.Configuration {
	cfg := core.DefaultConfiguration()
	cfg.Time.FramesPerSecond = 0
	cfg.Window.Title = "main"
	return cfg
}
