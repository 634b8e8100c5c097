package hub

import "github.com/btcsuite/btclog"

var log = btclog.Disabled

// UseLogger sets the subsystem logger used by this package.
func UseLogger(logger btclog.Logger) { log = logger }

// DisableLog disables all logging output for this package.
func DisableLog() { log = btclog.Disabled }
