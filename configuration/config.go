// Package configuration assembles the process-level Config relayd is
// wired from: store location, listen address, Bloom filter sizing, API
// key, CORS policy, and the network the Chain collaborator belongs to.
// Config parsing, wiring, and validation are ambient plumbing (spec §1
// names "config parsing" as out of scope for the core), carried here in
// the teacher's own configuration-package shape (its
// services/construction_service_test.go constructs a
// configuration.Configuration the same way).
package configuration

import "github.com/RelayProject/btcrelay/filter"

// Mode mirrors the teacher's Online/Offline distinction: whether this
// process talks to a live Chain collaborator or only serves lookups
// against an already-populated store.
type Mode string

const (
	Online  Mode = "ONLINE"
	Offline Mode = "OFFLINE"
)

// Config is the fully resolved process configuration.
type Config struct {
	Mode Mode

	// Network identifies the chain this relay instance is watching.
	Network *NetworkParams

	// StorePath is the Badger data directory. Empty selects the in-memory
	// backend (tests, ephemeral instances).
	StorePath string

	// ListenAddr is the HTTP/WebSocket bind address.
	ListenAddr string

	// BloomN and BloomFP parameterize the Filter (spec §9 Open Question:
	// configurable Bloom parameters, resolved yes). Zero values fall back
	// to filter.DefaultElements / filter.DefaultFP.
	BloomN  uint64
	BloomFP float64

	// APIKeyHash is the bcrypt hash API requests must satisfy (spec §6:
	// "authenticated by API key"). Empty disables authentication.
	APIKeyHash string

	// CORSOrigins is the allowed-origins list for the HTTP/WS surface
	// (spec §1 names CORS wiring as plumbing; the middleware itself is
	// ambient stack we still carry — SPEC_FULL.md §11).
	CORSOrigins []string
}

// BloomParams returns the Filter-sizing parameters this Config selects,
// falling back to filter's documented defaults.
func (c *Config) BloomParams() (uint64, float64) {
	n, p := c.BloomN, c.BloomFP
	if n == 0 {
		n = filter.DefaultElements
	}
	if p == 0 {
		p = filter.DefaultFP
	}
	return n, p
}
