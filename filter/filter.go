// Package filter wraps an in-memory Bloom filter in front of the
// index-backed lookups, per spec §4.D: a cheap membership pre-check that
// keeps hot-path block scanning out of the database for the overwhelming
// majority of transaction inputs and outputs.
package filter

import (
	"hash"
	"hash/fnv"
	"sync"

	bloomfilter "github.com/holiman/bloomfilter/v2"

	"github.com/RelayProject/btcrelay/index"
	"github.com/RelayProject/btcrelay/relay"
)

// Default parameters per spec §4.D: ~20,000 items at a 0.001 false
// positive rate. Both are configurable (spec §9 Open Question: configurable
// Bloom parameters, decided yes — see DESIGN.md).
const (
	DefaultElements = 20000
	DefaultFP       = 0.001
)

// Filter is the membership pre-check in front of the Script/Outpoint
// indices. It is never authoritative: a hit must still be confirmed
// against the index, and false positives are expected by design.
type Filter struct {
	mu sync.RWMutex
	bf *bloomfilter.Filter
	n  uint64
	p  float64
}

// New constructs an empty Filter sized for n elements at false-positive
// rate p.
func New(n uint64, p float64) (*Filter, error) {
	if n == 0 {
		n = DefaultElements
	}
	if p <= 0 {
		p = DefaultFP
	}
	bf, err := bloomfilter.NewOptimal(n, p)
	if err != nil {
		return nil, relay.NewError("filter.New", relay.KindInvariant, err)
	}
	return &Filter{bf: bf, n: n, p: p}, nil
}

// Open rebuilds a Filter from scratch by iterating every persisted
// ScriptRecord and OutpointRecord, per spec §4.D's "rebuilt on open"
// lifecycle (§3).
func Open(ix *index.Indices, n uint64, p float64) (*Filter, error) {
	f, err := New(n, p)
	if err != nil {
		return nil, err
	}
	if err := f.rebuild(ix); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Filter) rebuild(ix *index.Indices) error {
	count := 0
	if err := ix.IterScripts(func(rec *relay.ScriptRecord) error {
		f.addLocked(rec.Script)
		count++
		return nil
	}); err != nil {
		return relay.NewError("filter.rebuild", relay.KindStorage, err)
	}
	if err := ix.IterOutpoints(func(rec *relay.OutpointRecord) error {
		f.addLocked(relay.OutpointKey(rec.Prevout.Hash, rec.Prevout.Index))
		count++
		return nil
	}); err != nil {
		return relay.NewError("filter.rebuild", relay.KindStorage, err)
	}
	log.Debugf("filter: rebuilt from %d index entries", count)
	return nil
}

// Add inserts the membership item for a script (the raw script bytes, no
// length prefix) or an outpoint (the 36-byte txid||index key, the same
// bytes used to key the outpoint index — spec §4.D).
func (f *Filter) Add(item []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addLocked(item)
}

func (f *Filter) addLocked(item []byte) {
	f.bf.Add(itemHash(item))
}

// Test reports whether item may be a member. A false result is
// authoritative (definitely absent); a true result must be confirmed
// against the index, since Bloom filters admit false positives.
func (f *Filter) Test(item []byte) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.bf.Contains(itemHash(item))
}

// Reset discards all entries and rebuilds the filter from ix, used after
// spec §4.F's wipe operation clears the indices.
func (f *Filter) Reset(ix *index.Indices) error {
	f.mu.Lock()
	bf, err := bloomfilter.NewOptimal(f.n, f.p)
	if err != nil {
		f.mu.Unlock()
		return relay.NewError("filter.Reset", relay.KindInvariant, err)
	}
	f.bf = bf
	f.mu.Unlock()
	return f.rebuild(ix)
}

// itemHash adapts a raw byte slice to the hash.Hash64 the bloomfilter
// library hashes against. FNV-1a is a plain non-cryptographic mix; the
// Bloom filter's own k hash functions derive from the bits it produces, so
// collision resistance here doesn't matter.
func itemHash(item []byte) hash.Hash64 {
	h := fnv.New64a()
	_, _ = h.Write(item)
	return h
}
