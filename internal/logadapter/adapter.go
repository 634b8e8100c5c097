// Package logadapter bridges a zap.SugaredLogger into the btclog.Logger
// interface every subsystem package's UseLogger expects, so cmd/relayd can
// wire one structured logging backend into all of them (SPEC_FULL.md
// §10.1).
package logadapter

import (
	"github.com/btcsuite/btclog"
	"go.uber.org/zap"
)

// Adapter implements btclog.Logger on top of a zap.SugaredLogger. Each
// subsystem gets its own Adapter (via New(subsystem)) so per-package level
// filtering (SetLevel) works the way btcd-style subsystems expect, even
// though all of them share one zap core underneath.
type Adapter struct {
	sugar *zap.SugaredLogger
	level btclog.Level
}

// New returns an Adapter for subsystem, tagged on every log line.
func New(base *zap.Logger, subsystem string) *Adapter {
	return &Adapter{
		sugar: base.Sugar().Named(subsystem),
		level: btclog.LevelInfo,
	}
}

func (a *Adapter) Tracef(format string, params ...interface{}) {
	if a.level <= btclog.LevelTrace {
		a.sugar.Debugf(format, params...)
	}
}

func (a *Adapter) Debugf(format string, params ...interface{}) {
	if a.level <= btclog.LevelDebug {
		a.sugar.Debugf(format, params...)
	}
}

func (a *Adapter) Infof(format string, params ...interface{}) {
	if a.level <= btclog.LevelInfo {
		a.sugar.Infof(format, params...)
	}
}

func (a *Adapter) Warnf(format string, params ...interface{}) {
	if a.level <= btclog.LevelWarn {
		a.sugar.Warnf(format, params...)
	}
}

func (a *Adapter) Errorf(format string, params ...interface{}) {
	if a.level <= btclog.LevelError {
		a.sugar.Errorf(format, params...)
	}
}

func (a *Adapter) Criticalf(format string, params ...interface{}) {
	if a.level <= btclog.LevelCritical {
		a.sugar.Errorf(format, params...)
	}
}

func (a *Adapter) Trace(v ...interface{}) {
	if a.level <= btclog.LevelTrace {
		a.sugar.Debug(v...)
	}
}

func (a *Adapter) Debug(v ...interface{}) {
	if a.level <= btclog.LevelDebug {
		a.sugar.Debug(v...)
	}
}

func (a *Adapter) Info(v ...interface{}) {
	if a.level <= btclog.LevelInfo {
		a.sugar.Info(v...)
	}
}

func (a *Adapter) Warn(v ...interface{}) {
	if a.level <= btclog.LevelWarn {
		a.sugar.Warn(v...)
	}
}

func (a *Adapter) Error(v ...interface{}) {
	if a.level <= btclog.LevelError {
		a.sugar.Error(v...)
	}
}

func (a *Adapter) Critical(v ...interface{}) {
	if a.level <= btclog.LevelCritical {
		a.sugar.Error(v...)
	}
}

func (a *Adapter) Level() btclog.Level { return a.level }

func (a *Adapter) SetLevel(level btclog.Level) { a.level = level }

var _ btclog.Logger = (*Adapter)(nil)
