package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RelayProject/btcrelay/relay"
	"github.com/RelayProject/btcrelay/store"
)

func mkID(b byte) relay.ID {
	var id relay.ID
	id[0], id[31] = b, b
	return id
}

func newIndices(t *testing.T) *Indices {
	t.Helper()
	return New(store.NewMemory())
}

func TestPutScriptUnionSemantics(t *testing.T) {
	ix := newIndices(t)
	script := relay.Script("a script")
	hash := script.Hash()

	require.NoError(t, ix.PutScript(&relay.ScriptRecord{Hash: hash, Script: script, Requests: []relay.ID{mkID(1)}}))
	require.NoError(t, ix.PutScript(&relay.ScriptRecord{Hash: hash, Script: script, Requests: []relay.ID{mkID(2)}}))
	// Repeat of an already-unioned id is idempotent.
	require.NoError(t, ix.PutScript(&relay.ScriptRecord{Hash: hash, Script: script, Requests: []relay.ID{mkID(2)}}))

	rec, err := ix.GetScript(hash)
	require.NoError(t, err)
	require.ElementsMatch(t, []relay.ID{mkID(1), mkID(2)}, rec.Requests)
}

func TestPutScriptUnionOrderIndependent(t *testing.T) {
	script := relay.Script("order independence")
	hash := script.Hash()

	ixA := newIndices(t)
	require.NoError(t, ixA.PutScript(&relay.ScriptRecord{Hash: hash, Script: script, Requests: []relay.ID{mkID(1)}}))
	require.NoError(t, ixA.PutScript(&relay.ScriptRecord{Hash: hash, Script: script, Requests: []relay.ID{mkID(2)}}))

	ixB := newIndices(t)
	require.NoError(t, ixB.PutScript(&relay.ScriptRecord{Hash: hash, Script: script, Requests: []relay.ID{mkID(2)}}))
	require.NoError(t, ixB.PutScript(&relay.ScriptRecord{Hash: hash, Script: script, Requests: []relay.ID{mkID(1)}}))

	recA, err := ixA.GetScript(hash)
	require.NoError(t, err)
	recB, err := ixB.GetScript(hash)
	require.NoError(t, err)
	require.ElementsMatch(t, recA.Requests, recB.Requests)
}

func TestPutOutpointUnionSemantics(t *testing.T) {
	ix := newIndices(t)
	op := relay.Outpoint{Hash: mkID(9), Index: 0}

	require.NoError(t, ix.PutOutpoint(&relay.OutpointRecord{Prevout: op, Requests: []relay.ID{mkID(1)}}))
	require.NoError(t, ix.PutOutpoint(&relay.OutpointRecord{Prevout: op, Requests: []relay.ID{mkID(2)}}))

	rec, err := ix.GetOutpoint(op)
	require.NoError(t, err)
	require.ElementsMatch(t, []relay.ID{mkID(1), mkID(2)}, rec.Requests)
}

func TestPutOutpointPreservesNextoutUnlessOverwritten(t *testing.T) {
	ix := newIndices(t)
	op := relay.Outpoint{Hash: mkID(9), Index: 0}
	nextout := relay.Outpoint{Hash: mkID(5), Index: 1}

	require.NoError(t, ix.PutOutpoint(&relay.OutpointRecord{Prevout: op, Nextout: nextout, Requests: []relay.ID{mkID(1)}}))
	// A second put with zero Nextout (e.g. a fresh Request referencing the
	// same outpoint) must not clobber the nextout evidence already
	// recorded by the match engine.
	require.NoError(t, ix.PutOutpoint(&relay.OutpointRecord{Prevout: op, Requests: []relay.ID{mkID(2)}}))

	rec, err := ix.GetOutpoint(op)
	require.NoError(t, err)
	require.Equal(t, nextout, rec.Nextout)
}

func TestDeleteScript(t *testing.T) {
	ix := newIndices(t)
	script := relay.Script("to delete")
	hash := script.Hash()
	require.NoError(t, ix.PutScript(&relay.ScriptRecord{Hash: hash, Script: script, Requests: []relay.ID{mkID(1)}}))
	require.NoError(t, ix.DeleteScript(hash))

	has, err := ix.HasScript(hash)
	require.NoError(t, err)
	require.False(t, has)
}

func TestIterScripts(t *testing.T) {
	ix := newIndices(t)
	var scripts []relay.Script
	for i := byte(0); i < 3; i++ {
		s := relay.Script{i, i, i}
		scripts = append(scripts, s)
		require.NoError(t, ix.PutScript(&relay.ScriptRecord{Hash: s.Hash(), Script: s, Requests: []relay.ID{mkID(i + 1)}}))
	}
	count := 0
	require.NoError(t, ix.IterScripts(func(rec *relay.ScriptRecord) error {
		count++
		return nil
	}))
	require.Equal(t, 3, count)
}

func TestRequestCRUD(t *testing.T) {
	ix := newIndices(t)
	req := &relay.Request{ID: mkID(1), Pays: relay.Script("x")}
	require.NoError(t, ix.PutRequest(req))

	got, err := ix.GetRequest(req.ID)
	require.NoError(t, err)
	require.Equal(t, req, got)

	require.NoError(t, ix.DeleteRequest(req.ID))
	has, err := ix.HasRequest(req.ID)
	require.NoError(t, err)
	require.False(t, has)
}

func TestLatestRequest(t *testing.T) {
	ix := newIndices(t)
	_, err := ix.LatestRequest()
	require.True(t, relay.IsKind(err, relay.KindNotFound))

	for _, b := range []byte{1, 5, 3} {
		require.NoError(t, ix.PutRequest(&relay.Request{ID: mkID(b), Pays: relay.Script("x")}))
	}
	latest, err := ix.LatestRequest()
	require.NoError(t, err)
	require.Equal(t, mkID(5), latest.ID)
}

func TestLatestRequestUnder(t *testing.T) {
	ix := newIndices(t)
	for _, b := range []byte{1, 3, 5, 9} {
		require.NoError(t, ix.PutRequest(&relay.Request{ID: mkID(b), Pays: relay.Script("x")}))
	}

	got, err := ix.LatestRequestUnder(mkID(6))
	require.NoError(t, err)
	require.Equal(t, mkID(5), got.ID)

	got, err = ix.LatestRequestUnder(mkID(9))
	require.NoError(t, err)
	require.Equal(t, mkID(9), got.ID)

	_, err = ix.LatestRequestUnder(mkID(0))
	require.True(t, relay.IsKind(err, relay.KindNotFound))
}

func TestPutBatchedThroughManagerStyleBatch(t *testing.T) {
	kv := store.NewMemory()
	ix := New(kv)
	b := kv.NewBatch()
	script := relay.Script("batched")
	require.NoError(t, ix.PutScriptBatch(b, &relay.ScriptRecord{Hash: script.Hash(), Script: script, Requests: []relay.ID{mkID(1)}}))
	// Not yet visible outside the batch.
	has, err := ix.HasScript(script.Hash())
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, b.Commit())
	has, err = ix.HasScript(script.Hash())
	require.NoError(t, err)
	require.True(t, has)
}
