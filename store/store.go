// Package store provides ordered key-value persistence with atomic
// batched writes and prefix range scans (spec §4.B). It is the single
// storage layer shared by the Indices (§4.C), the Request Manager (§4.F),
// and the Match Engine's nextout write path (§4.E).
package store

import (
	"errors"

	"github.com/RelayProject/btcrelay/relay"
)

// KV is the ordered key-value store contract. Keys sort lexicographically
// by byte value; IteratePrefix walks keys in that order.
type KV interface {
	// Get returns the value for key, or a *relay.Error of KindNotFound if
	// it doesn't exist.
	Get(key []byte) ([]byte, error)

	// Put writes key/value outside of any batch (used by callers that
	// don't need atomicity across multiple keys).
	Put(key, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key []byte) error

	// IteratePrefix calls fn for every key with the given prefix, in
	// ascending lexicographic key order, until fn returns an error or
	// every matching key has been visited. A non-nil return from fn
	// stops iteration and is propagated to the caller, except for the
	// sentinel ErrStopIteration, which stops iteration without error.
	IteratePrefix(prefix []byte, fn func(key, value []byte) error) error

	// NewBatch opens a write batch. Only one batch may be active per
	// writer at a time (spec §4.B "batch discipline").
	NewBatch() Batch

	// Close releases the store's resources.
	Close() error
}

// Batch buffers put/delete operations for atomic commit. start() is
// implicit in NewBatch; put/del buffer; commit() flushes atomically;
// abort() discards (spec §4.B).
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Commit() error
	Abort()
}

// ErrStopIteration, returned by an IteratePrefix callback, stops the scan
// early without being surfaced as an error to the scan's caller.
var ErrStopIteration = errors.New("store: stop iteration")

// notFound builds the KindNotFound error Get returns for absent keys.
func notFound(op string) error {
	return relay.NewError(op, relay.KindNotFound, nil)
}
