// Package monitoring holds the package-level diagnostic logger shared by the
// recorder and its collaborators.
package monitoring

import "log"

// Logf is the diagnostic logger. It defaults to log.Printf but may be
// replaced by SetLogger; tests or embedders can redirect or mute it.
var Logf func(format string, v ...any) = log.Printf

// Debugf is like Logf but only emits when verbose logging is enabled.
func Debugf(format string, v ...any) {
	if Verbose {
		Logf(format, v...)
	}
}

// Verbose gates Debugf output.
var Verbose bool

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}
