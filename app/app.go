// Package app assembles the domains into an application: a graphics loop
// with a simulation tick, an audio stream and a network message pump, all
// driven through one set of callbacks.
package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/devblok/tessera/audio"
	"github.com/devblok/tessera/core"
	"github.com/devblok/tessera/domain"
	"github.com/devblok/tessera/gpu"
	"github.com/devblok/tessera/graphics"
	"github.com/devblok/tessera/message"
	"github.com/devblok/tessera/metrics"
	"github.com/devblok/tessera/simulation"
)

// AllChannels asks ConfigureAudio for every channel the device has.
const AllChannels = -1

// Options are the platform collaborators. Nil windows, events and audio
// backend default to SDL.
type Options struct {
	Windows      graphics.WindowFactory
	Events       graphics.EventSource
	Device       gpu.Device
	Shaders      *graphics.ShaderLibrary
	AudioBackend audio.Backend
}

// New creates an application. Nothing is opened until Start.
func New(cfg core.Configuration, opts Options, log logrus.FieldLogger) *App {
	if log == nil {
		log = core.NopLogger()
	}
	if opts.Windows == nil {
		opts.Windows = graphics.SDLWindowFactory(log)
	}
	if opts.Events == nil {
		opts.Events = &graphics.SDLEvents{}
	}
	if opts.AudioBackend == nil {
		opts.AudioBackend = audio.NewSDLBackend(log)
	}

	a := &App{
		cfg:       cfg,
		log:       log.WithField("component", "app"),
		registry:  domain.NewRegistry(log),
		resources: gpu.NewRegistry(log),
		input:     &graphics.InputFuncs{},
	}
	a.graphics = graphics.NewGraphicsDomain(cfg, graphics.Options{
		Windows:  opts.Windows,
		Events:   opts.Events,
		Device:   opts.Device,
		Shaders:  opts.Shaders,
		Registry: a.resources,
	}, log)
	a.simulation = simulation.NewSimulationDomain(log)
	a.audio = audio.NewAudioDomain(cfg.Audio, opts.AudioBackend, log)
	if cfg.Messages.Enabled {
		a.messages = message.NewMessageDomain(cfg.Messages, log)
	}
	a.controls = NewStandardKeyControls(a.Quit, a.graphics.Window, a.log)

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewCollector(cfg.Metrics.Namespace)
		a.registry.SetObserver(a.metrics)
		a.resources.SetObserver(a.metrics)
		a.graphics.SetFrameObserver(a.metrics)
		a.audio.IO().SetObserver(a.metrics)
		if a.messages != nil {
			a.messages.Handle(cfg.Metrics.Path, a.metrics.Handler())
		}
	}
	return a
}

// App owns every domain of an application. Callbacks are registered with
// the On methods before Start.
type App struct {
	cfg core.Configuration
	log logrus.FieldLogger

	registry   *domain.Registry
	resources  *gpu.Registry
	graphics   *graphics.GraphicsDomain
	simulation *simulation.SimulationDomain
	audio      *audio.AudioDomain
	messages   *message.MessageDomain
	metrics    *metrics.Collector
	controls   *StandardKeyControls
	input      *graphics.InputFuncs

	mu     sync.Mutex
	onInit []func()
	owned  []core.Destroyable
}

// Config returns the configuration the application was created with.
func (a *App) Config() core.Configuration { return a.cfg }

// Registry returns the top-level domain list.
func (a *App) Registry() *domain.Registry { return a.registry }

// Resources returns the gpu resource registry.
func (a *App) Resources() *gpu.Registry { return a.resources }

// Graphics returns the graphics domain.
func (a *App) Graphics() *graphics.GraphicsDomain { return a.graphics }

// Simulation returns the simulation domain.
func (a *App) Simulation() *simulation.SimulationDomain { return a.simulation }

// Audio returns the audio domain.
func (a *App) Audio() *audio.AudioDomain { return a.audio }

// Messages returns the message domain, nil when messages are disabled.
func (a *App) Messages() *message.MessageDomain { return a.messages }

// Metrics returns the telemetry collector, nil when metrics are disabled.
func (a *App) Metrics() *metrics.Collector { return a.metrics }

// Nav returns the main camera's navigator.
func (a *App) Nav() *graphics.Nav { return a.graphics.Nav() }

// Window returns the main window, nil before Start.
func (a *App) Window() graphics.Window { return a.graphics.Window() }

// Input returns the application's input handler. Set its functions to
// receive events; returning false stops propagation to navigation.
func (a *App) Input() *graphics.InputFuncs { return a.input }

// OnInit appends fn, called once the domains are initialized.
func (a *App) OnInit(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onInit = append(a.onInit, fn)
}

// OnCreate appends fn, called once the main window and context exist.
func (a *App) OnCreate(fn func()) { a.graphics.OnCreate(fn) }

// OnAnimate appends fn, called every frame before drawing.
func (a *App) OnAnimate(fn func(dt float64)) { a.simulation.OnAnimate(fn) }

// OnDraw appends fn, called every frame with the render state.
func (a *App) OnDraw(fn func(*graphics.Graphics)) { a.graphics.OnDraw(fn) }

// OnSound appends fn, called on the audio thread for every block.
func (a *App) OnSound(fn func(*audio.Buffer)) { a.audio.OnSound(fn) }

// OnMessage appends fn, called on the message pump for every message. It
// does nothing when messages are disabled.
func (a *App) OnMessage(fn func(message.Message)) {
	if a.messages == nil {
		a.log.Warn("messages are disabled, OnMessage ignored")
		return
	}
	a.messages.OnMessage(fn)
}

// OnExit appends fn, called when the frame loop has ended.
func (a *App) OnExit(fn func()) { a.graphics.OnExit(fn) }

// Own hands d to the application, it is destroyed after every domain is
// cleaned up. Owned objects are destroyed in reverse order.
func (a *App) Own(d core.Destroyable) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.owned = append(a.owned, d)
}

// ConfigureAudio enables audio with the given format. Pass AllChannels to
// open every channel of the device.
func (a *App) ConfigureAudio(rate float64, block, outs, ins int) error {
	if err := a.audio.Configure(rate, block, outs, ins); err != nil {
		return err
	}
	a.cfg.Audio.Enabled = true
	return nil
}

// Quit asks the frame loop to end.
func (a *App) Quit() { a.graphics.Quit() }

// ShouldQuit reports whether quit was requested.
func (a *App) ShouldQuit() bool { return a.graphics.ShouldQuit() }

func (a *App) register() error {
	if a.messages != nil {
		if err := a.registry.Add(a.messages); err != nil {
			return err
		}
	}
	if a.cfg.Audio.Enabled {
		if err := a.registry.Add(a.audio); err != nil {
			return err
		}
	}
	a.graphics.AddSubdomain(a.simulation, true)
	// graphics blocks in Start, it goes last
	return a.registry.Add(a.graphics)
}

// Start runs the application on the calling goroutine, which should be the
// main thread, until quit. A domain other than graphics failing to
// initialize is logged and left out.
func (a *App) Start() error {
	if err := a.register(); err != nil {
		return err
	}
	h := a.graphics.Handlers()
	h.Append(a.controls)
	h.Append(a.input)

	if err := a.registry.Initialize(); err != nil {
		a.log.WithError(err).Warn("some domains failed to initialize")
	}
	if a.graphics.State() != domain.Initialized {
		err := fmt.Errorf("graphics not initialized: %w", graphics.ErrWindowCreate)
		return errors.Join(err, a.shutdown())
	}

	a.mu.Lock()
	onInit := append([]func(){}, a.onInit...)
	a.mu.Unlock()
	for _, fn := range onInit {
		fn()
	}

	err := a.registry.Start()
	return errors.Join(err, a.shutdown())
}

func (a *App) shutdown() error {
	err := errors.Join(a.registry.Stop(), a.registry.Cleanup())

	a.mu.Lock()
	owned := a.owned
	a.owned = nil
	a.mu.Unlock()
	for i := len(owned) - 1; i >= 0; i-- {
		owned[i].Destroy()
	}
	return err
}
