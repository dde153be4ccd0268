// Package logging wraps the shared application logger.  Callers use the
// package helpers; components that want a scoped logger take a *log.Logger
// in their dependencies instead.
package logging

import (
	"os"

	"github.com/charmbracelet/log"
)

// L is the package-level logger.
var L = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "attendrix",
})

// SetDebug enables or disables debug-level output.
func SetDebug(enabled bool) {
	if enabled {
		L.SetLevel(log.DebugLevel)
	} else {
		L.SetLevel(log.InfoLevel)
	}
}

// Debugf logs a debug-level formatted message.
func Debugf(format string, v ...any) { L.Debugf(format, v...) }

// Infof logs an info-level formatted message.
func Infof(format string, v ...any) { L.Infof(format, v...) }

// Warnf logs a warning-level formatted message.
func Warnf(format string, v ...any) { L.Warnf(format, v...) }

// Errorf logs an error-level formatted message.
func Errorf(format string, v ...any) { L.Errorf(format, v...) }
