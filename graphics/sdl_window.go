package graphics

import (
	"fmt"
	"unsafe"

	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/tessera/core"
)

// NewSDLWindow creates an unrealized Vulkan capable SDL window.
func NewSDLWindow(cfg core.WindowConfiguration, log logrus.FieldLogger) *SDLWindow {
	if log == nil {
		log = core.NopLogger()
	}
	return &SDLWindow{
		cfg: cfg,
		log: log.WithField("component", "graphics.window"),
	}
}

// SDLWindowFactory returns a WindowFactory building SDL windows.
func SDLWindowFactory(log logrus.FieldLogger) WindowFactory {
	return func(cfg core.WindowConfiguration) Window {
		return NewSDLWindow(cfg, log)
	}
}

// SDLWindow is a Window backed by SDL. All calls must come from the
// thread that initialized SDL video.
type SDLWindow struct {
	cfg     core.WindowConfiguration
	window  *sdl.Window
	present func() error

	log logrus.FieldLogger
}

// SetPresenter installs the function presenting a finished frame,
// e.g. a swapchain present.
func (w *SDLWindow) SetPresenter(fn func() error) {
	w.present = fn
}

// Create implements Window
func (w *SDLWindow) Create() error {
	if w.window != nil {
		return nil
	}
	flags := uint32(sdl.WINDOW_VULKAN | sdl.WINDOW_RESIZABLE)
	if !w.cfg.Decorated {
		flags |= uint32(sdl.WINDOW_BORDERLESS)
	}
	if w.cfg.FullScreen {
		flags |= uint32(sdl.WINDOW_FULLSCREEN_DESKTOP)
	}
	window, err := sdl.CreateWindow(w.cfg.Title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(w.cfg.Width),
		int32(w.cfg.Height),
		flags)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrWindowCreate, err)
	}
	w.window = window
	if w.cfg.CursorHide {
		if err := w.SetCursorHide(true); err != nil {
			w.log.WithError(err).Warn("cursor could not be hidden")
		}
	}
	return nil
}

// Destroy implements Window
func (w *SDLWindow) Destroy() {
	if w.window == nil {
		return
	}
	if err := w.window.Destroy(); err != nil {
		w.log.WithError(err).Error("window destroy failed")
	}
	w.window = nil
}

// Created implements Window
func (w *SDLWindow) Created() bool {
	return w.window != nil
}

// MakeCurrent implements Window. With Vulkan there is no context to bind,
// it only checks the window is alive.
func (w *SDLWindow) MakeCurrent() error {
	if w.window == nil {
		return ErrWindowNotReady
	}
	return nil
}

// Refresh implements Window
func (w *SDLWindow) Refresh() {
	if w.window == nil || w.present == nil {
		return
	}
	if err := w.present(); err != nil {
		w.log.WithError(err).WithField("sdl", sdl.GetError()).Error("present failed")
	}
}

// Size implements Window
func (w *SDLWindow) Size() (int, int) {
	if w.window == nil {
		return w.cfg.Width, w.cfg.Height
	}
	width, height := w.window.VulkanGetDrawableSize()
	return int(width), int(height)
}

// FullScreen implements Window
func (w *SDLWindow) FullScreen() bool {
	return w.cfg.FullScreen
}

// SetFullScreen implements Window
func (w *SDLWindow) SetFullScreen(on bool) error {
	w.cfg.FullScreen = on
	if w.window == nil {
		return nil
	}
	var flags uint32
	if on {
		flags = uint32(sdl.WINDOW_FULLSCREEN_DESKTOP)
	}
	return w.window.SetFullscreen(flags)
}

// CursorHidden implements Window
func (w *SDLWindow) CursorHidden() bool {
	return w.cfg.CursorHide
}

// SetCursorHide implements Window
func (w *SDLWindow) SetCursorHide(hide bool) error {
	w.cfg.CursorHide = hide
	if w.window == nil {
		return nil
	}
	toggle := sdl.ENABLE
	if hide {
		toggle = sdl.DISABLE
	}
	_, err := sdl.ShowCursor(toggle)
	return err
}

// Title implements Window
func (w *SDLWindow) Title() string {
	return w.cfg.Title
}

// SetTitle implements Window
func (w *SDLWindow) SetTitle(title string) {
	w.cfg.Title = title
	if w.window != nil {
		w.window.SetTitle(title)
	}
}

// VulkanExtensions returns the instance extensions the window needs.
func (w *SDLWindow) VulkanExtensions() []string {
	if w.window == nil {
		return nil
	}
	return w.window.VulkanGetInstanceExtensions()
}

// VulkanSurface creates a presentation surface on instance.
func (w *SDLWindow) VulkanSurface(instance interface{}) (unsafe.Pointer, error) {
	if w.window == nil {
		return nil, ErrWindowNotReady
	}
	return w.window.VulkanCreateSurface(instance)
}
