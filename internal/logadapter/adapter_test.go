package logadapter

import (
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*Adapter, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)
	return New(base, "test"), logs
}

func TestDefaultLevelIsInfo(t *testing.T) {
	a, _ := newObserved()
	require.Equal(t, btclog.LevelInfo, a.Level())
}

func TestDebugfSuppressedBelowLevel(t *testing.T) {
	a, logs := newObserved()
	a.Debugf("should not appear")
	require.Equal(t, 0, logs.Len())
}

func TestInfofPassesAtDefaultLevel(t *testing.T) {
	a, logs := newObserved()
	a.Infof("hello %s", "world")
	require.Equal(t, 1, logs.Len())
}

func TestSetLevelLowersThreshold(t *testing.T) {
	a, logs := newObserved()
	a.SetLevel(btclog.LevelDebug)
	a.Debugf("now visible")
	require.Equal(t, 1, logs.Len())
}

func TestSetLevelRaisesThreshold(t *testing.T) {
	a, logs := newObserved()
	a.SetLevel(btclog.LevelError)
	a.Warnf("suppressed")
	require.Equal(t, 0, logs.Len())
	a.Errorf("shown")
	require.Equal(t, 1, logs.Len())
}
