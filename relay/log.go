package relay

import "github.com/btcsuite/btclog"

// log is the package-level logging facade, disabled until UseLogger is
// called. This mirrors how btcsuite subsystems (btcd, btcwallet) wire
// per-package logging: silent by default, bridged to a concrete backend
// by the process entrypoint (cmd/relayd, via internal/logadapter).
var log = btclog.Disabled

// UseLogger sets the subsystem logger used by this package.
func UseLogger(logger btclog.Logger) { log = logger }

// DisableLog disables all logging output for this package.
func DisableLog() { log = btclog.Disabled }
