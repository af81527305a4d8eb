package graphics

import (
	"github.com/veandco/go-sdl2/sdl"
)

// EventSource pumps window system events into an input chain once per
// frame. It reports true when the user asked to quit.
type EventSource interface {
	Poll(h *Handlers) (quit bool)
}

// SDLEvents is the SDL event pump.
type SDLEvents struct {
	buttons uint32
}

var sdlKeys = map[sdl.Keycode]int{
	sdl.K_ESCAPE:    KeyEscape,
	sdl.K_RETURN:    KeyEnter,
	sdl.K_TAB:       KeyTab,
	sdl.K_BACKSPACE: KeyBackspace,
	sdl.K_UP:        KeyUp,
	sdl.K_DOWN:      KeyDown,
	sdl.K_LEFT:      KeyLeft,
	sdl.K_RIGHT:     KeyRight,
	sdl.K_PAGEUP:    KeyPageUp,
	sdl.K_PAGEDOWN:  KeyPageDown,
	sdl.K_HOME:      KeyHome,
	sdl.K_END:       KeyEnd,
}

func translateKey(ks sdl.Keysym, down bool) Key {
	code, ok := sdlKeys[ks.Sym]
	if !ok {
		code = int(ks.Sym)
	}
	return Key{
		Code:  code,
		Ctrl:  ks.Mod&sdl.KMOD_CTRL != 0,
		Shift: ks.Mod&sdl.KMOD_SHIFT != 0,
		Alt:   ks.Mod&sdl.KMOD_ALT != 0,
		Meta:  ks.Mod&sdl.KMOD_GUI != 0,
		Down:  down,
	}
}

func translateButton(b uint8) int {
	switch b {
	case sdl.BUTTON_MIDDLE:
		return MouseMiddle
	case sdl.BUTTON_RIGHT:
		return MouseRight
	default:
		return MouseLeft
	}
}

// Poll implements EventSource
func (s *SDLEvents) Poll(h *Handlers) bool {
	quit := false
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch et := event.(type) {
		case *sdl.QuitEvent:
			quit = true
		case *sdl.KeyboardEvent:
			if et.Type == sdl.KEYDOWN {
				h.KeyDown(translateKey(et.Keysym, true))
			} else {
				h.KeyUp(translateKey(et.Keysym, false))
			}
		case *sdl.MouseButtonEvent:
			m := Mouse{X: int(et.X), Y: int(et.Y), Button: translateButton(et.Button)}
			if et.Type == sdl.MOUSEBUTTONDOWN {
				m.Pressed = true
				s.buttons |= 1 << uint(m.Button)
				h.MouseDown(m)
			} else {
				s.buttons &^= 1 << uint(m.Button)
				h.MouseUp(m)
			}
		case *sdl.MouseMotionEvent:
			m := Mouse{X: int(et.X), Y: int(et.Y), DX: int(et.XRel), DY: int(et.YRel)}
			if s.buttons != 0 {
				m.Pressed = true
				h.MouseDrag(m)
			} else {
				h.MouseMove(m)
			}
		case *sdl.MouseWheelEvent:
			h.MouseScroll(Mouse{ScrollX: float64(et.X), ScrollY: float64(et.Y)})
		case *sdl.WindowEvent:
			if et.Event == sdl.WINDOWEVENT_RESIZED {
				h.Resize(int(et.Data1), int(et.Data2))
			}
		}
	}
	return quit
}
