// Package relay defines the on-disk record types, their deterministic
// binary codec, and the shared key-space layout of the subscription and
// notification engine (spec §§3-4.A).
package relay

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// MaxScriptSize bounds the size of a scriptPubKey accepted into a Request
// or ScriptRecord. Bitcoin's own standardness rules cap scripts well below
// this; we use the same ceiling btcd uses for a serialized TxOut's script.
const MaxScriptSize = 10000

// ID is a 32-byte opaque identifier, used for both Request ids and script
// hashes. chainhash.Hash already implements the display-endian (reversed
// hex) <-> internal little-endian conversion spec §6 requires at the wire
// boundary, via String()/NewHashFromStr, so we reuse it rather than
// hand-roll a second 32-byte array type.
type ID = chainhash.Hash

// IDFromString parses the display-endian (reversed hex) form used at the
// wire boundary (spec §6) into the internal little-endian ID.
func IDFromString(s string) (ID, error) {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return ID{}, NewError("IDFromString", KindValidation, err)
	}
	return *h, nil
}

// Address is the 20-byte opaque payload a Request echoes back in its
// notifications. Unlike ID it is not a chain hash, so it is not subject to
// the display-endian reversal and is hex-encoded in wire-order.
type Address [20]byte

// Script is a raw scriptPubKey byte string.
type Script []byte

// Hash returns the SHA-256 of the script — spec §4.A specifies a single
// SHA-256, not Bitcoin's usual double hash, so chainhash.HashH (single
// round) is the correct primitive here.
func (s Script) Hash() ID { return chainhash.HashH(s) }

// Outpoint identifies a specific transaction output.
type Outpoint struct {
	Hash  ID
	Index uint32
}

// IsZero reports whether o is the zero-outpoint, used as the "no nextout
// observed yet" sentinel on OutpointRecord.
func (o Outpoint) IsZero() bool {
	var zero ID
	return o.Hash == zero && o.Index == 0
}

// Request is the client-visible subscription (spec §3).
type Request struct {
	ID        ID
	Address   Address
	Value     uint64
	Spends    *Outpoint // optional
	Pays      Script    // optional, may be empty
	Timestamp uint32    // seconds since epoch, assigned at persistence
}

// Validate checks the Request invariant from spec §3: at least one of
// Spends/Pays must be present, and Pays must not exceed MaxScriptSize.
func (r *Request) Validate() error {
	if r.Spends == nil && len(r.Pays) == 0 {
		return NewError("Request.Validate", KindValidation, nil)
	}
	if len(r.Pays) > MaxScriptSize {
		return NewError("Request.Validate", KindValidation, nil)
	}
	return nil
}

// ScriptRecord is the reverse index from a scriptPubKey to the Requests
// referencing it (spec §3).
type ScriptRecord struct {
	Hash     ID // SHA256(Script) — the storage key
	Script   Script
	Requests []ID // ordered, non-empty for a persisted record
}

// Validate checks the ScriptRecord invariants from spec §3.
func (s *ScriptRecord) Validate() error {
	if s.Hash != s.Script.Hash() {
		return NewError("ScriptRecord.Validate", KindInvariant, nil)
	}
	if len(s.Requests) == 0 {
		return NewError("ScriptRecord.Validate", KindInvariant, nil)
	}
	return nil
}

// OutpointRecord is the reverse index from an outpoint to the Requests
// referencing it (spec §3).
type OutpointRecord struct {
	Prevout  Outpoint // the storage key
	Nextout  Outpoint // the spending outpoint, if observed; else zero
	Requests []ID     // ordered, non-empty for a persisted record
}

// Validate checks the OutpointRecord invariant from spec §3.
func (o *OutpointRecord) Validate() error {
	if len(o.Requests) == 0 {
		return NewError("OutpointRecord.Validate", KindInvariant, nil)
	}
	return nil
}

// UnionRequests appends id to ids if not already present, preserving order
// — this is the "union semantics" spec §4.C requires of put_script/
// put_outpoint, and is idempotent when the same id is supplied twice.
func UnionRequests(ids []ID, id ID) []ID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// equalIDs reports whether two ID slices contain exactly the same members,
// order-insensitive. Used by tests asserting fan-out union semantics.
func equalIDs(a, b []ID) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[ID]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}
