package engine

import (
	"bytes"
	"sort"
	"sync"

	"github.com/RelayProject/btcrelay/filter"
	"github.com/RelayProject/btcrelay/hub"
	"github.com/RelayProject/btcrelay/index"
	"github.com/RelayProject/btcrelay/relay"
)

// Publisher is the event sink the engine emits satisfied-Request events
// to; *hub.Hub satisfies it.
type Publisher interface {
	Publish(hub.SatisfiedEvent)
}

// BlockIndexer is the contract the host node drives the engine through on
// every chain-tip change: OnConnect for a newly-connected block,
// OnDisconnect when a reorg undoes one.
type BlockIndexer interface {
	OnConnect(meta BlockMeta, block Block, view View) error
	OnDisconnect(meta BlockMeta, block Block, view View) error
}

// Engine is the hot-path match scanner (spec §4.E): per connected block it
// checks every input against the outpoint index and every output against
// the script index, using Filter as a pre-check to skip the database in
// the common no-match case.
//
// mu is the same process-wide write-lock passed to manager.New: spec §5
// names the ingest path's put_outpoint nextout write as one of the public
// write entry points that must be serialized, alongside Manager's
// AddRequest/DeleteRequest/Wipe. Without a shared lock a concurrent
// AddRequest and a nextout write can race on the same OutpointRecord.
type Engine struct {
	ix  *index.Indices
	f   *filter.Filter
	pub Publisher
	mu  sync.Locker
}

// New constructs an Engine over the given indices, filter, event
// publisher, and the process-wide write-lock shared with the Manager.
func New(ix *index.Indices, f *filter.Filter, pub Publisher, mu sync.Locker) *Engine {
	return &Engine{ix: ix, f: f, pub: pub, mu: mu}
}

var _ BlockIndexer = (*Engine)(nil)

// MatchFunc reports whether an item (a script's raw bytes, or a 36-byte
// outpoint key) may be indexed. OnConnect uses the Engine's own Filter;
// a Rescan may install a narrower predicate so historical replay only
// surfaces the newly added Request instead of every Request ever matched
// in that height range (spec §4.G).
type MatchFunc func(item []byte) bool

// OnConnect implements spec §4.E's per-block scan. Transactions are
// processed in block order, inputs before outputs within a transaction,
// and the satisfied set is deduplicated per-transaction (not per-block).
func (e *Engine) OnConnect(meta BlockMeta, block Block, _ View) error {
	return e.ScanBlock(block, meta, e.f.Test)
}

// ScanBlock runs the spec §4.E match loop against block using match as the
// membership pre-check, publishing a SatisfiedEvent per transaction that
// matches. OnConnect is ScanBlock with the Engine's own Filter; Rescan
// calls it directly with an override predicate.
func (e *Engine) ScanBlock(block Block, meta BlockMeta, match MatchFunc) error {
	for _, tx := range block.Transactions() {
		satisfied, err := e.scanTx(tx, meta, match, true)
		if err != nil {
			return err
		}
		if len(satisfied) > 0 && e.pub != nil {
			sort.Slice(satisfied, func(i, k int) bool {
				return bytes.Compare(satisfied[i][:], satisfied[k][:]) < 0
			})
			e.pub.Publish(hub.SatisfiedEvent{TxID: tx.Hash(), Height: meta.Height, Satisfied: satisfied})
		}
	}
	return nil
}

// OnDisconnect implements the minimal reorg contract spec §4.E and §9
// leave as an open question, resolved here (see DESIGN.md): it does not
// retract already-delivered client notifications, but it does roll back
// the nextout edges OnConnect wrote for the disconnected block's spends,
// so a later re-connect of a different block sees a consistent index.
func (e *Engine) OnDisconnect(meta BlockMeta, block Block, _ View) error {
	for _, tx := range block.Transactions() {
		for _, in := range tx.Inputs() {
			prevout := in.Prevout()

			e.mu.Lock()
			rec, err := e.ix.GetOutpoint(prevout)
			if err != nil {
				e.mu.Unlock()
				if relay.IsKind(err, relay.KindNotFound) {
					continue
				}
				log.Errorf("OnDisconnect: get outpoint: %v", err)
				continue
			}
			rec.Nextout = relay.Outpoint{}
			// PutOutpoint keeps an existing non-zero Nextout, so the old
			// record is removed before the cleared one is written.
			if err := e.ix.DeleteOutpoint(prevout); err != nil {
				log.Errorf("OnDisconnect: unwind nextout: %v", err)
			} else if err := e.ix.PutOutpoint(rec); err != nil {
				log.Errorf("OnDisconnect: unwind nextout: %v", err)
			}
			e.mu.Unlock()
		}
	}
	return nil
}

// scanTx implements spec §4.E steps 2a-2c for a single transaction. When
// recordSpend is true, a matched input also updates the spent outpoint's
// nextout edge (resolving Open Question 5). ScanBlock always passes true,
// so both OnConnect and a Rescan record nextout.
func (e *Engine) scanTx(tx Tx, meta BlockMeta, match MatchFunc, recordSpend bool) ([]relay.ID, error) {
	var satisfied []relay.ID

	for j, in := range tx.Inputs() {
		prevout := in.Prevout()
		key := relay.OutpointKey(prevout.Hash, prevout.Index)
		if !match(key) {
			continue
		}
		rec, err := e.ix.GetOutpoint(prevout)
		if err != nil {
			if relay.IsKind(err, relay.KindNotFound) {
				continue // Bloom false positive
			}
			log.Errorf("scanTx: get outpoint: %v", err)
			continue
		}
		for _, id := range rec.Requests {
			satisfied = relay.UnionRequests(satisfied, id)
		}
		if recordSpend {
			// Re-fetch under the shared write-lock: the unlocked read above
			// may be stale against a concurrent Manager write to the same
			// OutpointRecord (spec §5).
			e.mu.Lock()
			rec, err := e.ix.GetOutpoint(prevout)
			if err != nil {
				e.mu.Unlock()
				if !relay.IsKind(err, relay.KindNotFound) {
					log.Errorf("scanTx: re-get outpoint: %v", err)
				}
				continue
			}
			rec.Nextout = relay.Outpoint{Hash: tx.Hash(), Index: uint32(j)}
			if err := e.ix.PutOutpoint(rec); err != nil {
				log.Errorf("scanTx: record nextout: %v", err)
			}
			e.mu.Unlock()
		}
	}

	for _, out := range tx.Outputs() {
		script := out.Script()
		if !match(script) {
			continue
		}
		rec, err := e.ix.GetScript(script.Hash())
		if err != nil {
			if relay.IsKind(err, relay.KindNotFound) {
				continue // Bloom false positive
			}
			log.Errorf("scanTx: get script: %v", err)
			continue
		}
		for _, id := range rec.Requests {
			satisfied = relay.UnionRequests(satisfied, id)
		}
	}

	return satisfied, nil
}
