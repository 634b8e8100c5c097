// Package index layers typed accessors over store.KV for scripts,
// outpoints, and requests (spec §4.C).
package index

import (
	"bytes"

	"github.com/RelayProject/btcrelay/relay"
	"github.com/RelayProject/btcrelay/store"
)

// Indices is the typed view over a store.KV.
type Indices struct {
	kv store.KV
}

// New wraps kv with the typed script/outpoint/request accessors.
func New(kv store.KV) *Indices { return &Indices{kv: kv} }

// writer is the common shape a put needs; it lets every method below run
// either directly against the KV or buffered inside a caller-supplied
// batch (spec §4.F opens a batch and calls these same put paths against
// it). store.KV.Put and store.Batch.Put differ only in whether the write
// is observable immediately or deferred to commit, so we adapt both to
// this single signature.
type writer interface {
	Put(key, value []byte) error
}

type kvWriter struct{ kv store.KV }

func (w kvWriter) Put(key, value []byte) error { return w.kv.Put(key, value) }

type batchWriter struct{ b store.Batch }

func (w batchWriter) Put(key, value []byte) error {
	w.b.Put(key, value)
	return nil
}

// --- scripts ---

// GetScript returns the ScriptRecord stored under hash, or a KindNotFound
// error.
func (ix *Indices) GetScript(hash relay.ID) (*relay.ScriptRecord, error) {
	data, err := ix.kv.Get(relay.ScriptKey(hash))
	if err != nil {
		return nil, err
	}
	return relay.DecodeScriptRecord(hash, data)
}

// HasScript reports whether a ScriptRecord exists for hash.
func (ix *Indices) HasScript(hash relay.ID) (bool, error) {
	_, err := ix.GetScript(hash)
	if err == nil {
		return true, nil
	}
	if relay.IsKind(err, relay.KindNotFound) {
		return false, nil
	}
	return false, err
}

// PutScript implements spec §4.C's union semantics: if a record already
// exists under rec.Hash, its Requests set is extended with rec.Requests
// (idempotent on repeat); otherwise rec is written as-is.
func (ix *Indices) PutScript(rec *relay.ScriptRecord) error {
	return ix.putScript(kvWriter{ix.kv}, rec)
}

// PutScriptBatch is PutScript's batch-buffered counterpart, used by the
// Request Manager inside its atomic add (spec §4.F step 5).
func (ix *Indices) PutScriptBatch(b store.Batch, rec *relay.ScriptRecord) error {
	return ix.putScript(batchWriter{b}, rec)
}

func (ix *Indices) putScript(w writer, rec *relay.ScriptRecord) error {
	existing, err := ix.GetScript(rec.Hash)
	merged := rec
	if err == nil {
		for _, id := range rec.Requests {
			existing.Requests = relay.UnionRequests(existing.Requests, id)
		}
		merged = existing
	} else if !relay.IsKind(err, relay.KindNotFound) {
		return err
	}
	if err := merged.Validate(); err != nil {
		return err
	}
	data, err := merged.Encode()
	if err != nil {
		return err
	}
	if err := w.Put(relay.ScriptKey(merged.Hash), data); err != nil {
		return relay.NewError("Indices.PutScript", relay.KindStorage, err)
	}
	return nil
}

// DeleteScript removes the ScriptRecord for hash.
func (ix *Indices) DeleteScript(hash relay.ID) error {
	return wrapDelete("Indices.DeleteScript", ix.kv.Delete(relay.ScriptKey(hash)))
}

// IterScripts calls fn for every persisted ScriptRecord.
func (ix *Indices) IterScripts(fn func(*relay.ScriptRecord) error) error {
	return ix.kv.IteratePrefix([]byte{relay.PrefixScript}, func(key, value []byte) error {
		hash, err := relay.DecodeScriptKey(key)
		if err != nil {
			log.Errorf("IterScripts: %v", err)
			return nil
		}
		rec, err := relay.DecodeScriptRecord(hash, value)
		if err != nil {
			log.Errorf("IterScripts: %v", err)
			return nil
		}
		return fn(rec)
	})
}

// --- outpoints ---

// GetOutpoint returns the OutpointRecord stored under op, or a
// KindNotFound error.
func (ix *Indices) GetOutpoint(op relay.Outpoint) (*relay.OutpointRecord, error) {
	data, err := ix.kv.Get(relay.OutpointKey(op.Hash, op.Index))
	if err != nil {
		return nil, err
	}
	return relay.DecodeOutpointRecord(op, data)
}

// HasOutpoint reports whether an OutpointRecord exists for op.
func (ix *Indices) HasOutpoint(op relay.Outpoint) (bool, error) {
	_, err := ix.GetOutpoint(op)
	if err == nil {
		return true, nil
	}
	if relay.IsKind(err, relay.KindNotFound) {
		return false, nil
	}
	return false, err
}

// PutOutpoint implements spec §4.C's union semantics for outpoints.
func (ix *Indices) PutOutpoint(rec *relay.OutpointRecord) error {
	return ix.putOutpoint(kvWriter{ix.kv}, rec)
}

// PutOutpointBatch is PutOutpoint's batch-buffered counterpart.
func (ix *Indices) PutOutpointBatch(b store.Batch, rec *relay.OutpointRecord) error {
	return ix.putOutpoint(batchWriter{b}, rec)
}

func (ix *Indices) putOutpoint(w writer, rec *relay.OutpointRecord) error {
	existing, err := ix.GetOutpoint(rec.Prevout)
	merged := rec
	if err == nil {
		for _, id := range rec.Requests {
			existing.Requests = relay.UnionRequests(existing.Requests, id)
		}
		if !rec.Nextout.IsZero() {
			existing.Nextout = rec.Nextout
		}
		merged = existing
	} else if !relay.IsKind(err, relay.KindNotFound) {
		return err
	}
	if err := merged.Validate(); err != nil {
		return err
	}
	data, err := merged.Encode()
	if err != nil {
		return err
	}
	if err := w.Put(relay.OutpointKey(merged.Prevout.Hash, merged.Prevout.Index), data); err != nil {
		return relay.NewError("Indices.PutOutpoint", relay.KindStorage, err)
	}
	return nil
}

// DeleteOutpoint removes the OutpointRecord for op.
func (ix *Indices) DeleteOutpoint(op relay.Outpoint) error {
	return wrapDelete("Indices.DeleteOutpoint", ix.kv.Delete(relay.OutpointKey(op.Hash, op.Index)))
}

// IterOutpoints calls fn for every persisted OutpointRecord.
func (ix *Indices) IterOutpoints(fn func(*relay.OutpointRecord) error) error {
	return ix.kv.IteratePrefix([]byte{relay.PrefixOutpoint}, func(key, value []byte) error {
		op, err := relay.DecodeOutpointKey(key)
		if err != nil {
			log.Errorf("IterOutpoints: %v", err)
			return nil
		}
		rec, err := relay.DecodeOutpointRecord(op, value)
		if err != nil {
			log.Errorf("IterOutpoints: %v", err)
			return nil
		}
		return fn(rec)
	})
}

// --- requests ---

// GetRequest returns the Request stored under id, or a KindNotFound error.
func (ix *Indices) GetRequest(id relay.ID) (*relay.Request, error) {
	data, err := ix.kv.Get(relay.RequestKey(id))
	if err != nil {
		return nil, err
	}
	return relay.DecodeRequest(id, data)
}

// HasRequest reports whether a Request exists for id.
func (ix *Indices) HasRequest(id relay.ID) (bool, error) {
	_, err := ix.GetRequest(id)
	if err == nil {
		return true, nil
	}
	if relay.IsKind(err, relay.KindNotFound) {
		return false, nil
	}
	return false, err
}

// PutRequest writes req as-is (Requests don't have union semantics — a
// given id names exactly one Request, spec §3).
func (ix *Indices) PutRequest(req *relay.Request) error {
	return ix.putRequest(kvWriter{ix.kv}, req)
}

// PutRequestBatch is PutRequest's batch-buffered counterpart.
func (ix *Indices) PutRequestBatch(b store.Batch, req *relay.Request) error {
	return ix.putRequest(batchWriter{b}, req)
}

func (ix *Indices) putRequest(w writer, req *relay.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	data, err := req.Encode()
	if err != nil {
		return err
	}
	if err := w.Put(relay.RequestKey(req.ID), data); err != nil {
		return relay.NewError("Indices.PutRequest", relay.KindStorage, err)
	}
	return nil
}

// DeleteRequest removes the Request for id. Per spec §4.F, the reverse
// index entries (s/o) are not reconciled — see DESIGN.md Open Question 1.
func (ix *Indices) DeleteRequest(id relay.ID) error {
	return wrapDelete("Indices.DeleteRequest", ix.kv.Delete(relay.RequestKey(id)))
}

// DeleteRequestBatch is DeleteRequest's batch-buffered counterpart.
func (ix *Indices) DeleteRequestBatch(b store.Batch, id relay.ID) {
	b.Delete(relay.RequestKey(id))
}

// IterRequests calls fn for every persisted Request, in ascending id
// order.
func (ix *Indices) IterRequests(fn func(*relay.Request) error) error {
	return ix.kv.IteratePrefix([]byte{relay.PrefixRequest}, func(key, value []byte) error {
		id, err := relay.DecodeRequestKey(key)
		if err != nil {
			log.Errorf("IterRequests: %v", err)
			return nil
		}
		req, err := relay.DecodeRequest(id, value)
		if err != nil {
			log.Errorf("IterRequests: %v", err)
			return nil
		}
		return fn(req)
	})
}

// LatestRequest returns the Request with the greatest id, or a
// KindNotFound error if none are persisted.
func (ix *Indices) LatestRequest() (*relay.Request, error) {
	var latest *relay.Request
	err := ix.IterRequests(func(req *relay.Request) error {
		r := req
		latest = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, relay.NewError("Indices.LatestRequest", relay.KindNotFound, nil)
	}
	return latest, nil
}

// LatestRequestUnder returns the Request with the greatest id <= idMax, by
// lexicographic order on the 32-byte id (spec §4.C).
func (ix *Indices) LatestRequestUnder(idMax relay.ID) (*relay.Request, error) {
	var latest *relay.Request
	err := ix.kv.IteratePrefix([]byte{relay.PrefixRequest}, func(key, value []byte) error {
		id, err := relay.DecodeRequestKey(key)
		if err != nil {
			log.Errorf("LatestRequestUnder: %v", err)
			return nil
		}
		if bytes.Compare(id[:], idMax[:]) > 0 {
			return store.ErrStopIteration
		}
		req, err := relay.DecodeRequest(id, value)
		if err != nil {
			log.Errorf("LatestRequestUnder: %v", err)
			return nil
		}
		latest = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, relay.NewError("Indices.LatestRequestUnder", relay.KindNotFound, nil)
	}
	return latest, nil
}

func wrapDelete(op string, err error) error {
	if err != nil {
		return relay.NewError(op, relay.KindStorage, err)
	}
	return nil
}
