// Package graphics runs the interactive frame loop: windows, input,
// camera navigation and the per-frame render state handed to draw callbacks.
package graphics

import (
	"errors"

	"github.com/devblok/tessera/core"
)

// package errors
var (
	ErrWindowCreate   = errors.New("graphics: window could not be created")
	ErrWindowNotReady = errors.New("graphics: window not created")
)

// Window is the surface provider of one rendering context. The graphics
// domain drives it, it does not implement windowing itself.
type Window interface {
	Create() error
	Destroy()
	Created() bool

	// MakeCurrent binds the window's surface for rendering.
	MakeCurrent() error

	// Refresh presents the finished frame.
	Refresh()

	Size() (width, height int)
	FullScreen() bool
	SetFullScreen(bool) error
	CursorHidden() bool
	SetCursorHide(bool) error
	Title() string
	SetTitle(string)
}

// WindowFactory builds windows for the graphics domain.
type WindowFactory func(cfg core.WindowConfiguration) Window

// FullScreenToggle flips the fullscreen state of w.
func FullScreenToggle(w Window) error {
	return w.SetFullScreen(!w.FullScreen())
}

// CursorHideToggle flips the cursor visibility of w.
func CursorHideToggle(w Window) error {
	return w.SetCursorHide(!w.CursorHidden())
}

// Aspect returns width over height, 1 for a degenerate window.
func Aspect(w Window) float64 {
	width, height := w.Size()
	if width <= 0 || height <= 0 {
		return 1
	}
	return float64(width) / float64(height)
}
