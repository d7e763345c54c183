// Package logging wraps github.com/sirupsen/logrus behind one
// package-level logger, the way Consensys-go-corset wires a single
// logger into its own compiler/VM pipeline rather than constructing one
// per call site. hetu.Engine logs through it; the module loader, VM and
// modcache call logrus's standard logger directly, which is the same
// logger std wraps, so SetLevel governs them too. The compiler does not
// log.
package logging

import (
	log "github.com/sirupsen/logrus"
)

// Logger is the subset of *logrus.Logger the pipeline actually uses,
// kept narrow so a host embedding this module can substitute their own
// logrus-compatible logger (or a no-op one in a test) without pulling
// in the rest of logrus's surface.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// std is the package-wide default, a plain logrus.Logger at Info level
// writing to stderr - logrus's own defaults.
var std = log.StandardLogger()

// Default returns the shared package-level logger.
func Default() Logger {
	return std
}

// SetLevel adjusts the default logger's verbosity, exposed for
// cmd/hetu's HETU_LOG_LEVEL environment variable and test setup that
// wants to quiet debug noise.
func SetLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	std.SetLevel(lvl)
	return nil
}

// For returns a logger scoped to component, so log lines can be
// attributed to the component that emitted them (hetu.Engine uses
// For("hetu")) without every package formatting its own prefix.
func For(component string) Logger {
	return std.WithField("component", component)
}
