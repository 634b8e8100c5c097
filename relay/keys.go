package relay

import (
	"encoding/binary"
	"fmt"
)

// Key-space prefixes shared with the host node's indexer namespace
// (spec §4.A). These are the on-disk contract: existing data with these
// prefixes in a host-node namespace must round-trip.
const (
	PrefixScript   byte = 's'
	PrefixOutpoint byte = 'o'
	PrefixRequest  byte = 'i'
	PrefixVersion  byte = 'V'
)

// SchemaVersion is the value stored under the lone PrefixVersion key.
const SchemaVersion uint32 = 1

// ScriptKeySize, OutpointKeySize, RequestKeySize are the fixed encoded
// sizes of each prefix's key (prefix byte + payload).
const (
	ScriptKeySize   = 1 + 32
	OutpointKeySize = 1 + 32 + 4
	RequestKeySize  = 1 + 32
)

// ScriptKey encodes the key for the `s` prefix: the script's 32-byte hash.
func ScriptKey(hash ID) []byte {
	k := make([]byte, ScriptKeySize)
	k[0] = PrefixScript
	copy(k[1:], hash[:])
	return k
}

// OutpointKey encodes the key for the `o` prefix: txid || big-endian
// index, so that outpoints sharing a txid sort together by index.
func OutpointKey(txid ID, index uint32) []byte {
	k := make([]byte, OutpointKeySize)
	k[0] = PrefixOutpoint
	copy(k[1:33], txid[:])
	binary.BigEndian.PutUint32(k[33:37], index)
	return k
}

// RequestKey encodes the key for the `i` prefix: the 32-byte request id.
func RequestKey(id ID) []byte {
	k := make([]byte, RequestKeySize)
	k[0] = PrefixRequest
	copy(k[1:], id[:])
	return k
}

// VersionKey encodes the lone schema-version key.
func VersionKey() []byte { return []byte{PrefixVersion} }

// DecodeScriptKey extracts the hash from an `s`-prefixed key.
func DecodeScriptKey(key []byte) (ID, error) {
	var id ID
	if len(key) != ScriptKeySize || key[0] != PrefixScript {
		return id, fmt.Errorf("relay: malformed script key (len=%d)", len(key))
	}
	copy(id[:], key[1:])
	return id, nil
}

// DecodeOutpointKey extracts the txid and index from an `o`-prefixed key.
func DecodeOutpointKey(key []byte) (Outpoint, error) {
	if len(key) != OutpointKeySize || key[0] != PrefixOutpoint {
		return Outpoint{}, fmt.Errorf("relay: malformed outpoint key (len=%d)", len(key))
	}
	var txid ID
	copy(txid[:], key[1:33])
	index := binary.BigEndian.Uint32(key[33:37])
	return Outpoint{Hash: txid, Index: index}, nil
}

// DecodeRequestKey extracts the request id from an `i`-prefixed key.
func DecodeRequestKey(key []byte) (ID, error) {
	var id ID
	if len(key) != RequestKeySize || key[0] != PrefixRequest {
		return id, fmt.Errorf("relay: malformed request key (len=%d)", len(key))
	}
	copy(id[:], key[1:])
	return id, nil
}
