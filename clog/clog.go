// Package clog is the internal enable/disable log gate shared by registry,
// calseg, daq, xcp and transport. It wraps a pluggable LogProvider behind an
// atomic enable bit so that logging cost in hot paths (capture, trigger,
// calibration read/write) is a single atomic load when disabled.
package clog

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// LogProvider are the four levels the runtime logs at: duplicate
// registration, freeze violations, A2L write failures, segment init.
type LogProvider interface {
	Critical(format string, v ...interface{})
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// Clog gates calls to a LogProvider behind an atomic enable bit.
type Clog struct {
	provider LogProvider
	has      uint32 // 1: enabled, 0: disabled
}

// NewLogger creates a Clog backed by a logrus.Logger tagged with prefix.
func NewLogger(prefix string) Clog {
	l := logrus.New()
	return Clog{
		provider: logrusProvider{l.WithField("component", prefix)},
		has:      0,
	}
}

// LogMode enables or disables log output.
func (sf *Clog) LogMode(enable bool) {
	if enable {
		atomic.StoreUint32(&sf.has, 1)
	} else {
		atomic.StoreUint32(&sf.has, 0)
	}
}

// SetLogProvider swaps the backing provider, e.g. to route into the host
// application's own logrus instance.
func (sf *Clog) SetLogProvider(p LogProvider) {
	if p != nil {
		sf.provider = p
	}
}

// Critical logs a CRITICAL level message.
func (sf Clog) Critical(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Critical(format, v...)
	}
}

// Error logs an ERROR level message.
func (sf Clog) Error(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Error(format, v...)
	}
}

// Warn logs a WARN level message.
func (sf Clog) Warn(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Warn(format, v...)
	}
}

// Debug logs a DEBUG level message.
func (sf Clog) Debug(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Debug(format, v...)
	}
}

// logrusProvider is the default LogProvider, backed by a logrus.Entry.
type logrusProvider struct {
	entry *logrus.Entry
}

var _ LogProvider = logrusProvider{}

func (sf logrusProvider) Critical(format string, v ...interface{}) {
	sf.entry.WithField("level", "critical").Errorf(format, v...)
}

func (sf logrusProvider) Error(format string, v ...interface{}) {
	sf.entry.Errorf(format, v...)
}

func (sf logrusProvider) Warn(format string, v ...interface{}) {
	sf.entry.Warnf(format, v...)
}

func (sf logrusProvider) Debug(format string, v ...interface{}) {
	sf.entry.Debugf(format, v...)
}
