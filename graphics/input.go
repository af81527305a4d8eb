package graphics

import "sync"

// Key codes for keys without a printable character. Printable keys use
// their lower-case rune.
const (
	KeyEscape = 256 + iota
	KeyEnter
	KeyTab
	KeyBackspace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyPageUp
	KeyPageDown
	KeyHome
	KeyEnd
)

// Key is a keyboard event.
type Key struct {
	Code  int
	Ctrl  bool
	Shift bool
	Alt   bool
	Meta  bool
	Down  bool
}

// Mouse buttons
const (
	MouseLeft = iota
	MouseMiddle
	MouseRight
)

// Mouse is a mouse event in window coordinates.
type Mouse struct {
	X, Y    int
	DX, DY  int
	Button  int
	Pressed bool
	ScrollX float64
	ScrollY float64
}

// InputHandler receives window input. Every method reports whether the
// event should propagate to the next handler.
type InputHandler interface {
	OnKeyDown(Key) bool
	OnKeyUp(Key) bool
	OnMouseDown(Mouse) bool
	OnMouseUp(Mouse) bool
	OnMouseDrag(Mouse) bool
	OnMouseMove(Mouse) bool
	OnMouseScroll(Mouse) bool
	OnResize(width, height int) bool
}

// InputFuncs implements InputHandler with optional functions. A nil
// function lets the event through.
type InputFuncs struct {
	KeyDown     func(Key) bool
	KeyUp       func(Key) bool
	MouseDown   func(Mouse) bool
	MouseUp     func(Mouse) bool
	MouseDrag   func(Mouse) bool
	MouseMove   func(Mouse) bool
	MouseScroll func(Mouse) bool
	Resize      func(w, h int) bool
}

// OnKeyDown implements InputHandler
func (f *InputFuncs) OnKeyDown(k Key) bool { return f.KeyDown == nil || f.KeyDown(k) }

// OnKeyUp implements InputHandler
func (f *InputFuncs) OnKeyUp(k Key) bool { return f.KeyUp == nil || f.KeyUp(k) }

// OnMouseDown implements InputHandler
func (f *InputFuncs) OnMouseDown(m Mouse) bool { return f.MouseDown == nil || f.MouseDown(m) }

// OnMouseUp implements InputHandler
func (f *InputFuncs) OnMouseUp(m Mouse) bool { return f.MouseUp == nil || f.MouseUp(m) }

// OnMouseDrag implements InputHandler
func (f *InputFuncs) OnMouseDrag(m Mouse) bool { return f.MouseDrag == nil || f.MouseDrag(m) }

// OnMouseMove implements InputHandler
func (f *InputFuncs) OnMouseMove(m Mouse) bool { return f.MouseMove == nil || f.MouseMove(m) }

// OnMouseScroll implements InputHandler
func (f *InputFuncs) OnMouseScroll(m Mouse) bool { return f.MouseScroll == nil || f.MouseScroll(m) }

// OnResize implements InputHandler
func (f *InputFuncs) OnResize(w, h int) bool { return f.Resize == nil || f.Resize(w, h) }

// Handlers is an ordered chain of input handlers. Events walk the chain
// until a handler stops them.
type Handlers struct {
	mu       sync.Mutex
	handlers []InputHandler
}

// Append adds h at the end of the chain.
func (c *Handlers) Append(h InputHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// Prepend adds h at the front of the chain.
func (c *Handlers) Prepend(h InputHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append([]InputHandler{h}, c.handlers...)
}

// Remove drops every occurrence of h.
func (c *Handlers) Remove(h InputHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.handlers[:0]
	for _, existing := range c.handlers {
		if existing != h {
			kept = append(kept, existing)
		}
	}
	c.handlers = kept
}

// Len returns the chain length.
func (c *Handlers) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers)
}

func (c *Handlers) each(fn func(InputHandler) bool) bool {
	c.mu.Lock()
	hs := append([]InputHandler(nil), c.handlers...)
	c.mu.Unlock()
	for _, h := range hs {
		if !fn(h) {
			return false
		}
	}
	return true
}

// KeyDown dispatches a key press, returns false if a handler stopped it.
func (c *Handlers) KeyDown(k Key) bool {
	return c.each(func(h InputHandler) bool { return h.OnKeyDown(k) })
}

// KeyUp dispatches a key release.
func (c *Handlers) KeyUp(k Key) bool {
	return c.each(func(h InputHandler) bool { return h.OnKeyUp(k) })
}

// MouseDown dispatches a button press.
func (c *Handlers) MouseDown(m Mouse) bool {
	return c.each(func(h InputHandler) bool { return h.OnMouseDown(m) })
}

// MouseUp dispatches a button release.
func (c *Handlers) MouseUp(m Mouse) bool {
	return c.each(func(h InputHandler) bool { return h.OnMouseUp(m) })
}

// MouseDrag dispatches a move with a button held.
func (c *Handlers) MouseDrag(m Mouse) bool {
	return c.each(func(h InputHandler) bool { return h.OnMouseDrag(m) })
}

// MouseMove dispatches a move.
func (c *Handlers) MouseMove(m Mouse) bool {
	return c.each(func(h InputHandler) bool { return h.OnMouseMove(m) })
}

// MouseScroll dispatches a wheel event.
func (c *Handlers) MouseScroll(m Mouse) bool {
	return c.each(func(h InputHandler) bool { return h.OnMouseScroll(m) })
}

// Resize dispatches a window resize.
func (c *Handlers) Resize(w, h int) bool {
	return c.each(func(ih InputHandler) bool { return ih.OnResize(w, h) })
}
