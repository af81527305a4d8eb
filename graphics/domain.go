package graphics

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devblok/tessera/core"
	"github.com/devblok/tessera/domain"
	"github.com/devblok/tessera/gpu"
)

// FrameObserver is told about every finished frame.
type FrameObserver interface {
	FrameCompleted(dt time.Duration)
}

// Options are the collaborators of a GraphicsDomain. Windows and Events
// are required, a nil Provider with a Device builds a
// ResourceStateProvider, with neither the render state only tracks state.
type Options struct {
	Windows  WindowFactory
	Events   EventSource
	Device   gpu.Device
	Provider StateProvider
	Shaders  *ShaderLibrary
	Registry *gpu.Registry
}

// NewGraphicsDomain creates the graphics domain.
func NewGraphicsDomain(cfg core.Configuration, opts Options, log logrus.FieldLogger) *GraphicsDomain {
	if log == nil {
		log = core.NopLogger()
	}
	reg := opts.Registry
	if reg == nil {
		reg = gpu.NewRegistry(log)
	}
	policy := gpu.KeepBindings
	if cfg.Context.MigrateOnSwap {
		policy = gpu.MigrateBindings
	}

	nav := NewNav()
	g := &GraphicsDomain{
		cfg:        cfg,
		windows:    opts.Windows,
		events:     opts.Events,
		device:     opts.Device,
		contexts:   gpu.NewContexts(reg, policy, log),
		time:       core.NewTime(cfg.Time),
		nav:        nav,
		viewpoint:  NewViewpoint(nav),
		navControl: NewNavInputControl(nav),
		handlers:   &Handlers{},
	}
	g.Node = domain.NewNode(g, "graphics", log)

	provider := opts.Provider
	if provider == nil && opts.Device != nil {
		provider = NewResourceStateProvider(g.contexts, opts.Device, opts.Shaders, log)
	}
	g.provider = provider
	g.graphics = NewGraphics(provider, log)
	return g
}

// GraphicsDomain owns the main frame loop. It realizes the main window and
// its rendering context, ticks its synchronous sub-domains around the draw
// callbacks and keeps going until quit is requested.
type GraphicsDomain struct {
	*domain.Node

	cfg      core.Configuration
	windows  WindowFactory
	events   EventSource
	device   gpu.Device
	provider StateProvider
	contexts *gpu.Contexts
	time     *core.Time

	nav        *Nav
	viewpoint  *Viewpoint
	navControl *NavInputControl
	handlers   *Handlers
	graphics   *Graphics
	window     *WindowDomain

	quit atomic.Bool

	mu         sync.Mutex
	looping    bool
	pending    []func()
	onCreate   []func()
	onDraw     []func(*Graphics)
	onExit     []func()
	onNewFrame []func(dt float64)
	frames     FrameObserver
}

// Graphics returns the render state.
func (g *GraphicsDomain) Graphics() *Graphics { return g.graphics }

// Contexts returns the rendering context table.
func (g *GraphicsDomain) Contexts() *gpu.Contexts { return g.contexts }

// Device returns the device resources are created on, may be nil.
func (g *GraphicsDomain) Device() gpu.Device { return g.device }

// Time returns the frame time service.
func (g *GraphicsDomain) Time() *core.Time { return g.time }

// Nav returns the navigator of the main camera.
func (g *GraphicsDomain) Nav() *Nav { return g.nav }

// Viewpoint returns the main camera.
func (g *GraphicsDomain) Viewpoint() *Viewpoint { return g.viewpoint }

// NavControl returns the keyboard and mouse navigation handler.
func (g *GraphicsDomain) NavControl() *NavInputControl { return g.navControl }

// Handlers returns the input chain of the main window.
func (g *GraphicsDomain) Handlers() *Handlers { return g.handlers }

// Window returns the main window, nil before Start.
func (g *GraphicsDomain) Window() Window {
	if g.window == nil {
		return nil
	}
	return g.window.Window()
}

// MainWindow returns the main window domain, nil before Start.
func (g *GraphicsDomain) MainWindow() *WindowDomain { return g.window }

// SetFrameObserver installs o, nil removes it.
func (g *GraphicsDomain) SetFrameObserver(o FrameObserver) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.frames = o
}

// OnCreate appends fn, called once the main window exists.
func (g *GraphicsDomain) OnCreate(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onCreate = append(g.onCreate, fn)
}

// OnDraw appends fn, called every frame with the render state.
func (g *GraphicsDomain) OnDraw(fn func(*Graphics)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onDraw = append(g.onDraw, fn)
}

// OnExit appends fn, called when the loop has ended.
func (g *GraphicsDomain) OnExit(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onExit = append(g.onExit, fn)
}

// OnNewFrame appends fn, called at the start of every frame with the
// previous frame's duration in seconds.
func (g *GraphicsDomain) OnNewFrame(fn func(dt float64)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onNewFrame = append(g.onNewFrame, fn)
}

// Quit asks the loop to end after the current frame.
func (g *GraphicsDomain) Quit() {
	g.quit.Store(true)
}

// ShouldQuit reports whether quit was requested.
func (g *GraphicsDomain) ShouldQuit() bool {
	return g.quit.Load()
}

// Initialize implements domain.Domain
func (g *GraphicsDomain) Initialize(domain.Domain) error {
	if g.windows == nil {
		return g.Fail("initialize", fmt.Errorf("no window factory: %w", ErrWindowCreate))
	}
	g.RunCallbacks(domain.PhaseInitialize)
	return g.Transition(domain.Initialized)
}

// Start implements domain.Asynchronous. It blocks running the frame loop
// and stops the domain when the loop ends. Failing to realize the main
// window aborts before the loop starts.
func (g *GraphicsDomain) Start() error {
	if s := g.State(); s != domain.Initialized && s != domain.Stopped {
		return fmt.Errorf("%s: start from %s: %w", g.Name(), s, domain.ErrInvalidTransition)
	}
	if err := g.InitializeSubdomains(true); err != nil {
		g.Log().WithError(err).Warn("pre sub-domains failed to initialize")
	}
	g.quit.Store(false)
	g.time.Start()

	if err := g.createWindow(); err != nil {
		g.time.Stop()
		if cerr := g.CleanupSubdomains(true); cerr != nil {
			g.Log().WithError(cerr).Warn("pre sub-domains failed to clean up")
		}
		return g.Fail("start", err)
	}
	if err := g.InitializeSubdomains(false); err != nil {
		g.Log().WithError(err).Warn("post sub-domains failed to initialize")
	}

	g.preOnCreate()
	for _, fn := range g.callbacks(func() []func() { return g.onCreate }) {
		fn()
	}

	if err := g.Transition(domain.Running); err != nil {
		return err
	}
	g.RunCallbacks(domain.PhaseStart)

	g.setLooping(true)
	for !g.ShouldQuit() {
		g.Frame()
	}
	g.setLooping(false)
	g.applyPending()

	return g.Stop()
}

func (g *GraphicsDomain) createWindow() error {
	w := newWindowDomain("window", g.windows(g.cfg.Window), g.Log())
	if err := w.Initialize(g); err != nil {
		return err
	}
	if err := w.Context().BecomeDefault(); err != nil {
		w.Cleanup(g)
		return err
	}
	g.window = w
	return nil
}

func (g *GraphicsDomain) preOnCreate() {
	g.handlers.Remove(g.navControl)
	g.handlers.Append(g.navControl)
	if err := g.window.Context().MakeCurrent(); err != nil {
		g.Log().WithError(err).Error("main context unusable")
	}
	if err := g.graphics.Init(); err != nil {
		g.Log().WithError(err).Warn("default shaders failed to compile")
	}
}

func (g *GraphicsDomain) callbacks(list func() []func()) []func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]func(){}, list()...)
}

// Frame runs a single iteration of the loop. It does nothing before the
// main window exists.
func (g *GraphicsDomain) Frame() {
	if g.window == nil {
		return
	}
	dt := g.time.NewFrame()
	seconds := dt.Seconds()

	g.mu.Lock()
	newFrame := append([]func(float64){}, g.onNewFrame...)
	draw := append([]func(*Graphics){}, g.onDraw...)
	frames := g.frames
	g.mu.Unlock()

	g.nav.SmoothForFrame(seconds)
	steps := 1.0
	if fps := g.time.Fps(); fps > 0 {
		steps = seconds * float64(fps)
	}
	g.nav.Step(steps)
	for _, fn := range newFrame {
		fn(seconds)
	}

	if g.events != nil && g.events.Poll(g.handlers) {
		g.Quit()
	}

	g.LockFrame()
	g.TickSubdomains(true)
	if err := g.window.MakeCurrent(); err != nil {
		g.Log().WithError(err).Error("main window not current")
	}
	g.preOnDraw()
	for _, fn := range draw {
		fn(g.graphics)
	}
	g.window.Window().Refresh()
	g.TickSubdomains(false)
	g.UnlockFrame()

	g.applyPending()
	g.time.Tick()
	if frames != nil {
		frames.FrameCompleted(dt)
	}
}

func (g *GraphicsDomain) preOnDraw() {
	w, h := g.window.Window().Size()
	g.graphics.Framebuffer(nil)
	g.graphics.Viewport(0, 0, w, h)
	g.graphics.ResetMatrixStack()
	g.graphics.Camera(g.viewpoint)
	g.graphics.Color(1, 1, 1, 1)
}

// NewWindow creates another window ticked in the post pass. While the loop
// runs it is added at the end of the current frame.
func (g *GraphicsDomain) NewWindow(cfg core.WindowConfiguration) *WindowDomain {
	w := newWindowDomain(fmt.Sprintf("window:%s", cfg.Title), g.windows(cfg), g.Log())
	g.later(func() {
		g.AddSubdomain(w, false)
		if g.State() == domain.Running {
			if err := w.Initialize(g); err != nil {
				g.Fail("initialize "+w.Name(), err)
			}
		}
	})
	return w
}

// CloseWindow removes w and destroys it with its context. While the loop
// runs this happens at the end of the current frame.
func (g *GraphicsDomain) CloseWindow(w *WindowDomain) {
	g.later(func() {
		if !g.RemoveSubdomain(w) {
			return
		}
		switch w.State() {
		case domain.Initialized, domain.Stopped:
			if err := w.Cleanup(g); err != nil {
				g.Fail("cleanup "+w.Name(), err)
			}
		}
	})
}

func (g *GraphicsDomain) setLooping(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.looping = on
}

// later defers fn to the end of the frame while the loop runs. Pending
// functions are applied once more after the loop ends, so none is lost.
func (g *GraphicsDomain) later(fn func()) {
	g.mu.Lock()
	if g.looping {
		g.pending = append(g.pending, fn)
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	fn()
}

func (g *GraphicsDomain) applyPending() {
	g.mu.Lock()
	pending := g.pending
	g.pending = nil
	g.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

// Stop implements domain.Asynchronous. The loop calls it when it ends, so
// stopping a domain that is not running does nothing.
func (g *GraphicsDomain) Stop() error {
	if g.State() != domain.Running {
		return nil
	}
	g.Quit()
	g.RunCallbacks(domain.PhaseStop)

	var errs []error
	if err := g.CleanupSubdomains(true); err != nil {
		errs = append(errs, err)
	}
	for _, fn := range g.callbacks(func() []func() { return g.onExit }) {
		fn()
	}
	if r, ok := g.provider.(*ResourceStateProvider); ok {
		r.Release()
	}
	if g.window != nil {
		if err := g.window.Cleanup(g); err != nil {
			errs = append(errs, g.Fail("cleanup "+g.window.Name(), err))
		}
		g.window = nil
	}
	if err := g.CleanupSubdomains(false); err != nil {
		errs = append(errs, err)
	}
	g.time.Stop()

	if err := g.Transition(domain.Stopped); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Cleanup implements domain.Domain. Sub-domains left initialized, e.g. by
// an aborted start, are cleaned up first.
func (g *GraphicsDomain) Cleanup(domain.Domain) error {
	errs := []error{g.CleanupSubdomains(true), g.CleanupSubdomains(false)}
	g.RunCallbacks(domain.PhaseCleanup)
	errs = append(errs, g.Transition(domain.CleanedUp))
	return errors.Join(errs...)
}

func newWindowDomain(name string, w Window, log logrus.FieldLogger) *WindowDomain {
	d := &WindowDomain{window: w, handlers: &Handlers{}}
	d.Node = domain.NewNode(d, name, log)
	return d
}

// WindowDomain is a window with its own rendering context, ticked by its
// parent graphics domain.
type WindowDomain struct {
	*domain.Node

	window   Window
	contexts *gpu.Contexts
	context  *gpu.Context
	graphics *Graphics
	handlers *Handlers

	mu     sync.Mutex
	onDraw []func(*Graphics)
}

// Window returns the surface.
func (w *WindowDomain) Window() Window { return w.window }

// Context returns the rendering context, nil until initialized.
func (w *WindowDomain) Context() *gpu.Context { return w.context }

// Handlers returns the input chain of the window.
func (w *WindowDomain) Handlers() *Handlers { return w.handlers }

// OnDraw appends fn, called every tick.
func (w *WindowDomain) OnDraw(fn func(*Graphics)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onDraw = append(w.onDraw, fn)
}

// Initialize implements domain.Domain. parent must be the graphics domain.
func (w *WindowDomain) Initialize(parent domain.Domain) error {
	g, ok := parent.(*GraphicsDomain)
	if !ok {
		return w.Fail("initialize", fmt.Errorf("%s needs a graphics parent: %w", w.Name(), ErrWindowCreate))
	}
	w.graphics = g.Graphics()
	w.contexts = g.Contexts()

	if err := w.window.Create(); err != nil {
		return w.Fail("initialize", fmt.Errorf("%w: %s", ErrWindowCreate, err))
	}
	w.context = w.contexts.New()
	w.Log().WithField("context", w.context.ID()).Debug("window created")
	return w.Transition(domain.Initialized)
}

// MakeCurrent makes the window and its context the render target.
func (w *WindowDomain) MakeCurrent() error {
	if w.context == nil || !w.window.Created() {
		return ErrWindowNotReady
	}
	return errors.Join(w.window.MakeCurrent(), w.context.MakeCurrent())
}

// Tick implements domain.Synchronous
func (w *WindowDomain) Tick() error {
	if err := w.MakeCurrent(); err != nil {
		return err
	}
	width, height := w.window.Size()
	w.graphics.Viewport(0, 0, width, height)

	w.mu.Lock()
	draw := append([]func(*Graphics){}, w.onDraw...)
	w.mu.Unlock()
	for _, fn := range draw {
		fn(w.graphics)
	}
	w.window.Refresh()
	return nil
}

// Cleanup implements domain.Domain. Every resource bound to the window's
// context is destroyed with it.
func (w *WindowDomain) Cleanup(domain.Domain) error {
	if w.context != nil {
		w.context.Destroy()
	}
	w.window.Destroy()
	return w.Transition(domain.CleanedUp)
}
