package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RelayProject/btcrelay/filter"
	"github.com/RelayProject/btcrelay/hub"
	"github.com/RelayProject/btcrelay/index"
	"github.com/RelayProject/btcrelay/relay"
	"github.com/RelayProject/btcrelay/store"
)

type fakeTxIn struct{ prevout relay.Outpoint }

func (f fakeTxIn) Prevout() relay.Outpoint { return f.prevout }

type fakeTxOut struct{ script relay.Script }

func (f fakeTxOut) Script() relay.Script { return f.script }

type fakeTx struct {
	hash    relay.ID
	inputs  []TxIn
	outputs []TxOut
}

func (f fakeTx) Hash() relay.ID   { return f.hash }
func (f fakeTx) Inputs() []TxIn   { return f.inputs }
func (f fakeTx) Outputs() []TxOut { return f.outputs }

type fakeBlock struct{ txs []Tx }

func (f fakeBlock) Transactions() []Tx { return f.txs }

type recordingPublisher struct{ events []hub.SatisfiedEvent }

func (p *recordingPublisher) Publish(ev hub.SatisfiedEvent) { p.events = append(p.events, ev) }

func setup(t *testing.T) (*Engine, *index.Indices, *filter.Filter, *recordingPublisher) {
	t.Helper()
	ix := index.New(store.NewMemory())
	f, err := filter.New(100, 0.001)
	require.NoError(t, err)
	pub := &recordingPublisher{}
	return New(ix, f, pub, &sync.Mutex{}), ix, f, pub
}

func TestOnConnectMatchesScriptOutput(t *testing.T) {
	e, ix, f, pub := setup(t)

	reqID := relay.ID{1}
	script := relay.Script("pay to this")
	require.NoError(t, ix.PutScript(&relay.ScriptRecord{Hash: script.Hash(), Script: script, Requests: []relay.ID{reqID}}))
	f.Add(script)

	txHash := relay.ID{2}
	block := fakeBlock{txs: []Tx{fakeTx{hash: txHash, outputs: []TxOut{fakeTxOut{script: script}}}}}

	require.NoError(t, e.OnConnect(BlockMeta{Height: 10}, block, nil))
	require.Len(t, pub.events, 1)
	require.Equal(t, txHash, pub.events[0].TxID)
	require.Equal(t, []relay.ID{reqID}, pub.events[0].Satisfied)
}

func TestOnConnectMatchesSpentOutpointAndRecordsNextout(t *testing.T) {
	e, ix, f, pub := setup(t)

	reqID := relay.ID{1}
	prevout := relay.Outpoint{Hash: relay.ID{5}, Index: 0}
	require.NoError(t, ix.PutOutpoint(&relay.OutpointRecord{Prevout: prevout, Requests: []relay.ID{reqID}}))
	f.Add(relay.OutpointKey(prevout.Hash, prevout.Index))

	txHash := relay.ID{2}
	block := fakeBlock{txs: []Tx{fakeTx{hash: txHash, inputs: []TxIn{fakeTxIn{prevout: prevout}}}}}

	require.NoError(t, e.OnConnect(BlockMeta{Height: 10}, block, nil))
	require.Len(t, pub.events, 1)
	require.Equal(t, []relay.ID{reqID}, pub.events[0].Satisfied)

	rec, err := ix.GetOutpoint(prevout)
	require.NoError(t, err)
	require.Equal(t, relay.Outpoint{Hash: txHash, Index: 0}, rec.Nextout)
}

func TestOnConnectDedupsPerTransaction(t *testing.T) {
	e, ix, f, pub := setup(t)

	reqID := relay.ID{1}
	prevout := relay.Outpoint{Hash: relay.ID{5}, Index: 0}
	script := relay.Script("same request again")
	require.NoError(t, ix.PutOutpoint(&relay.OutpointRecord{Prevout: prevout, Requests: []relay.ID{reqID}}))
	require.NoError(t, ix.PutScript(&relay.ScriptRecord{Hash: script.Hash(), Script: script, Requests: []relay.ID{reqID}}))
	f.Add(relay.OutpointKey(prevout.Hash, prevout.Index))
	f.Add(script)

	block := fakeBlock{txs: []Tx{fakeTx{
		hash:    relay.ID{9},
		inputs:  []TxIn{fakeTxIn{prevout: prevout}},
		outputs: []TxOut{fakeTxOut{script: script}},
	}}}

	require.NoError(t, e.OnConnect(BlockMeta{Height: 1}, block, nil))
	require.Len(t, pub.events, 1)
	require.Equal(t, []relay.ID{reqID}, pub.events[0].Satisfied)
}

func TestOnConnectFilterMissSkipsLookup(t *testing.T) {
	e, _, _, pub := setup(t)
	block := fakeBlock{txs: []Tx{fakeTx{
		hash:    relay.ID{1},
		outputs: []TxOut{fakeTxOut{script: relay.Script("never indexed")}},
	}}}
	require.NoError(t, e.OnConnect(BlockMeta{Height: 1}, block, nil))
	require.Empty(t, pub.events)
}

// TestScanTxFilterHitWithoutBackingRecordIsNotAMatch exercises spec's
// end-to-end scenario (e): a Bloom hit that is actually a false
// positive. Adding the items to the Filter without a backing
// OutpointRecord/ScriptRecord forces scanTx down its "continue // Bloom
// false positive" branches; the result should look identical to a
// request with no matches at all.
func TestScanTxFilterHitWithoutBackingRecordIsNotAMatch(t *testing.T) {
	e, _, f, _ := setup(t)

	prevout := relay.Outpoint{Hash: relay.ID{6}, Index: 2}
	script := relay.Script("bloom false positive, never indexed")

	f.Add(relay.OutpointKey(prevout.Hash, prevout.Index))
	f.Add(script)

	tx := fakeTx{
		hash:    relay.ID{11},
		inputs:  []TxIn{fakeTxIn{prevout: prevout}},
		outputs: []TxOut{fakeTxOut{script: script}},
	}

	satisfied, err := e.scanTx(tx, BlockMeta{Height: 1}, f.Test, true)
	require.NoError(t, err)
	require.Empty(t, satisfied)
}

func TestOnDisconnectUnwindsNextout(t *testing.T) {
	e, ix, _, _ := setup(t)
	prevout := relay.Outpoint{Hash: relay.ID{5}, Index: 0}
	nextout := relay.Outpoint{Hash: relay.ID{9}, Index: 0}
	require.NoError(t, ix.PutOutpoint(&relay.OutpointRecord{Prevout: prevout, Nextout: nextout, Requests: []relay.ID{{1}}}))

	block := fakeBlock{txs: []Tx{fakeTx{hash: nextout.Hash, inputs: []TxIn{fakeTxIn{prevout: prevout}}}}}
	require.NoError(t, e.OnDisconnect(BlockMeta{Height: 1}, block, nil))

	rec, err := ix.GetOutpoint(prevout)
	require.NoError(t, err)
	require.True(t, rec.Nextout.IsZero())
}
