package filter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RelayProject/btcrelay/index"
	"github.com/RelayProject/btcrelay/relay"
	"github.com/RelayProject/btcrelay/store"
)

func TestAddTest(t *testing.T) {
	f, err := New(100, 0.001)
	require.NoError(t, err)

	script := []byte("a watched script")
	require.False(t, f.Test(script))
	f.Add(script)
	require.True(t, f.Test(script))
}

func TestTestOnEmptyFilterIsFalse(t *testing.T) {
	f, err := New(100, 0.001)
	require.NoError(t, err)
	require.False(t, f.Test([]byte("anything")))
}

func TestOpenRebuildsFromIndices(t *testing.T) {
	ix := index.New(store.NewMemory())
	script := relay.Script("rebuilt script")
	id := relay.ID{1}
	require.NoError(t, ix.PutScript(&relay.ScriptRecord{Hash: script.Hash(), Script: script, Requests: []relay.ID{id}}))

	op := relay.Outpoint{Hash: relay.ID{2}, Index: 3}
	require.NoError(t, ix.PutOutpoint(&relay.OutpointRecord{Prevout: op, Requests: []relay.ID{id}}))

	f, err := Open(ix, 0, 0)
	require.NoError(t, err)

	require.True(t, f.Test(script))
	require.True(t, f.Test(relay.OutpointKey(op.Hash, op.Index)))
	require.False(t, f.Test([]byte("never added")))
}

func TestResetClearsAndRebuilds(t *testing.T) {
	ix := index.New(store.NewMemory())
	script := relay.Script("survivor")
	id := relay.ID{1}
	require.NoError(t, ix.PutScript(&relay.ScriptRecord{Hash: script.Hash(), Script: script, Requests: []relay.ID{id}}))

	f, err := Open(ix, 0, 0)
	require.NoError(t, err)

	f.Add([]byte("transient, not in the index"))
	require.NoError(t, f.Reset(ix))

	require.True(t, f.Test(script))
}
