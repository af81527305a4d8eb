package main

import (
	"flag"
	"math"
	"runtime"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/tessera/app"
	"github.com/devblok/tessera/assets"
	"github.com/devblok/tessera/audio"
	"github.com/devblok/tessera/core"
	"github.com/devblok/tessera/device"
	"github.com/devblok/tessera/graphics"
	"github.com/devblok/tessera/message"
)

func init() {
	runtime.LockOSThread()
}

var envFile = flag.String("env", ".env", "environment file to load configuration from")

func main() {
	flag.Parse()

	cfg := core.LoadConfiguration(*envFile)
	logger := core.NewLogger(cfg.Log)
	var err error

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		logger.WithError(err).Fatal("sdl init")
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		logger.WithError(err).Fatal("vulkan library")
	}
	defer sdl.VulkanUnloadLibrary()

	var pack *assets.Archive
	if cfg.Renderer.AssetPack != "" {
		if pack, err = assets.OpenFile(cfg.Renderer.AssetPack); err != nil {
			logger.WithError(err).Warn("asset pack unavailable")
		} else {
			defer pack.Close()
		}
	}

	opts := app.Options{
		Windows:      graphics.SDLWindowFactory(logger),
		Events:       &graphics.SDLEvents{},
		Shaders:      graphics.NewShaderLibrary(cfg.Renderer.ShaderDirectory, pack, logger),
		AudioBackend: audio.NewSDLBackend(logger),
	}
	dev, err := newDevice(cfg, logger)
	if err != nil {
		logger.WithError(err).Warn("no gpu device, render state is tracked only")
	} else {
		opts.Device = dev
	}

	a := app.New(cfg, opts, logger)
	if dev != nil {
		a.Own(dev)
	}
	setup(a, logger)
	if dev != nil {
		a.OnCreate(func() { attachSurface(a, dev, logger) })
	}

	if err := a.Start(); err != nil {
		logger.WithError(err).Fatal("application")
	}
}

// newDevice creates the Vulkan device with the instance extensions an SDL
// window needs, probed on a hidden window.
func newDevice(cfg core.Configuration, logger *log.Logger) (*device.Vulkan, error) {
	probe := graphics.NewSDLWindow(core.WindowConfiguration{Title: "probe", Width: 1, Height: 1}, logger)
	if err := probe.Create(); err != nil {
		return nil, err
	}
	extensions := probe.VulkanExtensions()
	probe.Destroy()

	return device.NewVulkanDevice(device.DefaultVulkanApplicationInfo,
		sdl.VulkanGetVkGetInstanceProcAddr(),
		device.InstanceConfiguration{
			DebugMode:        cfg.Renderer.DebugMode,
			Extensions:       extensions,
			DeviceExtensions: cfg.Renderer.DeviceExtensions,
		}, false, logger)
}

// attachSurface hands the main window's surface to the device.
func attachSurface(a *app.App, dev *device.Vulkan, logger *log.Logger) {
	w, ok := a.Window().(*graphics.SDLWindow)
	if !ok {
		return
	}
	surface, err := w.VulkanSurface(dev.Instance())
	if err != nil {
		logger.WithError(err).Warn("no window surface")
		return
	}
	ok, err = dev.AttachSurface(surface)
	if err != nil {
		logger.WithError(err).Warn("surface not attached")
		return
	}
	logger.WithField("present", ok).Debug("window surface attached")
}

// setup wires a small demo: a sine tone whose pitch follows /freq messages
// and a color that pulses with it.
func setup(a *app.App, logger *log.Logger) {
	var freq atomic.Uint64
	freq.Store(math.Float64bits(220))
	var phase, pulse float64

	a.OnCreate(func() {
		a.Nav().SetPose(graphics.NewPose(mgl64.Vec3{0, 0, 4}))
		logger.WithField("window", a.Window().Title()).Info("window created")
	})
	a.OnAnimate(func(dt float64) {
		pulse += dt * math.Float64frombits(freq.Load()) / 220
	})
	a.OnDraw(func(g *graphics.Graphics) {
		v := float32(0.5 + 0.5*math.Sin(pulse))
		g.ClearColor(0.1, 0.1, 0.1, 1)
		g.Color(v, 0.3, 1-v, 1)
		if err := g.Update(); err != nil {
			logger.WithError(err).Debug("render state not sent")
		}
	})
	a.OnSound(func(b *audio.Buffer) {
		step := 2 * math.Pi * math.Float64frombits(freq.Load()) / b.FramesPerSecond()
		for i := 0; i < b.Frames(); i++ {
			s := float32(0.2 * math.Sin(phase))
			phase = math.Mod(phase+step, 2*math.Pi)
			for ch := 0; ch < b.ChannelsOut(); ch++ {
				b.Out(ch)[i] += s
			}
		}
	})
	a.OnMessage(func(m message.Message) {
		if m.Address != "/freq" {
			return
		}
		if f, ok := m.Float(0); ok && f > 0 {
			freq.Store(math.Float64bits(f))
		}
	})
	a.OnExit(func() {
		logger.WithField("fps", a.Graphics().Time().MeasuredFps()).Info("bye")
	})
}
