// Package manager implements the single write-entry-point for mutating
// Requests and their reverse indices (spec §4.F), serialized behind one
// process-wide write-lock (spec §5).
package manager

import (
	"sync"
	"time"

	"github.com/RelayProject/btcrelay/filter"
	"github.com/RelayProject/btcrelay/index"
	"github.com/RelayProject/btcrelay/relay"
	"github.com/RelayProject/btcrelay/store"
)

// Manager serializes every write entry point behind a single mutex (spec
// §5: "cooperative single-writer, multi-reader"). Reads go straight to the
// Indices and never take this lock.
//
// The lock is injected rather than owned, because spec §5 requires it to
// be the *same* process-wide write-lock the Engine's nextout writes
// serialize behind (see engine.New) — Manager and Engine share one
// sync.Locker rather than each holding their own.
type Manager struct {
	mu sync.Locker
	kv store.KV
	ix *index.Indices
	f  *filter.Filter
}

// New wires a Manager over the given backing store, typed indices, Bloom
// filter, and the process-wide write-lock shared with the Engine.
func New(kv store.KV, ix *index.Indices, f *filter.Filter, mu sync.Locker) *Manager {
	return &Manager{kv: kv, ix: ix, f: f, mu: mu}
}

// AddRequest implements spec §4.F's addRequest: assigns a fresh timestamp,
// writes the Request plus any OutpointRecord/ScriptRecord it implies in a
// single atomic batch, then updates the Filter only after a successful
// commit so it never advertises a record that isn't yet on disk.
func (m *Manager) AddRequest(req *relay.Request) (*relay.Request, *relay.OutpointRecord, *relay.ScriptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	assigned := *req
	assigned.Timestamp = uint32(time.Now().Unix())
	if err := assigned.Validate(); err != nil {
		return nil, nil, nil, err
	}

	b := m.kv.NewBatch()

	if err := m.ix.PutRequestBatch(b, &assigned); err != nil {
		b.Abort()
		return nil, nil, nil, err
	}

	var opRec *relay.OutpointRecord
	if assigned.Spends != nil {
		opRec = &relay.OutpointRecord{Prevout: *assigned.Spends, Requests: []relay.ID{assigned.ID}}
		if err := m.ix.PutOutpointBatch(b, opRec); err != nil {
			b.Abort()
			return nil, nil, nil, err
		}
	}

	var scriptRec *relay.ScriptRecord
	if len(assigned.Pays) > 0 {
		scriptRec = &relay.ScriptRecord{Hash: assigned.Pays.Hash(), Script: assigned.Pays, Requests: []relay.ID{assigned.ID}}
		if err := m.ix.PutScriptBatch(b, scriptRec); err != nil {
			b.Abort()
			return nil, nil, nil, err
		}
	}

	if err := b.Commit(); err != nil {
		return nil, nil, nil, relay.NewError("Manager.AddRequest", relay.KindStorage, err)
	}

	// The just-committed record may have unioned into an existing one; read
	// it back so the Filter entry and the caller's return value reflect
	// what's actually on disk.
	if opRec != nil {
		if rec, err := m.ix.GetOutpoint(*assigned.Spends); err == nil {
			opRec = rec
		}
		m.f.Add(relay.OutpointKey(assigned.Spends.Hash, assigned.Spends.Index))
	}
	if scriptRec != nil {
		if rec, err := m.ix.GetScript(assigned.Pays.Hash()); err == nil {
			scriptRec = rec
		}
		m.f.Add(assigned.Pays)
	}

	log.Debugf("manager: added request %s", assigned.ID)
	return &assigned, opRec, scriptRec, nil
}

// DeleteRequest removes the Request row for id. Per spec §4.F / §9 Open
// Question 1, the reverse-index (s/o) entries are not reconciled; see
// GCDanglingReferences for an explicit, separately-invoked repair.
func (m *Manager) DeleteRequest(id relay.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ix.DeleteRequest(id); err != nil {
		return err
	}
	log.Debugf("manager: deleted request %s", id)
	return nil
}

// Wipe deletes every key under the s/o/i prefixes in a single batch (spec
// §4.F). The Filter is left stale; the caller is responsible for rebuilding
// it (filter.Filter.Reset) or restarting before relying on membership tests
// again.
func (m *Manager) Wipe() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.kv.NewBatch()
	for _, prefix := range [][]byte{{relay.PrefixScript}, {relay.PrefixOutpoint}, {relay.PrefixRequest}} {
		if err := m.kv.IteratePrefix(prefix, func(key, _ []byte) error {
			b.Delete(append([]byte(nil), key...))
			return nil
		}); err != nil {
			b.Abort()
			return relay.NewError("Manager.Wipe", relay.KindStorage, err)
		}
	}
	if err := b.Commit(); err != nil {
		return relay.NewError("Manager.Wipe", relay.KindStorage, err)
	}
	log.Infof("manager: wiped all requests/outpoints/scripts")
	return nil
}
