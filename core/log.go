package core

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the toolkit logger from cfg. Unknown levels fall back
// to info.
func NewLogger(cfg LogConfiguration) *logrus.Logger {
	l := logrus.New()
	l.Out = os.Stderr
	if cfg.JSON {
		l.Formatter = &logrus.JSONFormatter{}
	} else {
		l.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return l
}

// NopLogger returns a logger that discards everything
func NopLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	l.SetLevel(logrus.PanicLevel)
	return l
}
