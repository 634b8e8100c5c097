package hub

import "github.com/RelayProject/btcrelay/relay"

// SatisfiedEvent is emitted once per transaction that satisfies one or more
// Requests (spec §4.E step 2c / §6 "relay requests satisfied"). Satisfied
// is sorted and deduplicated per-transaction before emission.
type SatisfiedEvent struct {
	TxID      relay.ID
	Height    uint32
	Satisfied []relay.ID
}
