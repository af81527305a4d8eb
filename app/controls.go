package app

import (
	"github.com/sirupsen/logrus"

	"github.com/devblok/tessera/graphics"
)

// StandardKeyControls is the key handler every application window gets:
// ctrl+q quits, ctrl+u toggles the cursor and escape toggles fullscreen.
// Handled keys do not propagate.
type StandardKeyControls struct {
	graphics.InputFuncs

	quit   func()
	window func() graphics.Window
	log    logrus.FieldLogger
}

// NewStandardKeyControls creates the controls. window is looked up at key
// time since the main window only exists once the loop starts.
func NewStandardKeyControls(quit func(), window func() graphics.Window, log logrus.FieldLogger) *StandardKeyControls {
	c := &StandardKeyControls{quit: quit, window: window, log: log}
	c.KeyDown = c.keyDown
	return c
}

func (c *StandardKeyControls) keyDown(k graphics.Key) bool {
	switch {
	case k.Ctrl && k.Code == 'q':
		c.quit()
		return false
	case k.Ctrl && k.Code == 'u':
		if w := c.window(); w != nil {
			c.report(graphics.CursorHideToggle(w))
		}
		return false
	case k.Code == graphics.KeyEscape:
		if w := c.window(); w != nil {
			c.report(graphics.FullScreenToggle(w))
		}
		return false
	}
	return true
}

func (c *StandardKeyControls) report(err error) {
	if err != nil && c.log != nil {
		c.log.WithError(err).Warn("window toggle failed")
	}
}
