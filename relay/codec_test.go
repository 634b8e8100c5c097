package relay

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

func mkID(b byte) ID {
	var id ID
	id[0] = b
	id[31] = b
	return id
}

func TestScriptRecordRoundTrip(t *testing.T) {
	script := Script([]byte{0x76, 0xa9, 0x14, 0x01, 0x02, 0x03, 0x88, 0xac})
	rec := &ScriptRecord{
		Hash:     script.Hash(),
		Script:   script,
		Requests: []ID{mkID(1), mkID(2)},
	}
	require.NoError(t, rec.Validate())

	data, err := rec.Encode()
	require.NoError(t, err)

	got, err := DecodeScriptRecord(rec.Hash, data)
	require.NoError(t, err)
	require.Equal(t, rec, got, spew.Sdump(rec, got))
}

func TestOutpointRecordRoundTrip(t *testing.T) {
	prevout := Outpoint{Hash: mkID(7), Index: 3}
	rec := &OutpointRecord{
		Prevout:  prevout,
		Nextout:  Outpoint{Hash: mkID(9), Index: 1},
		Requests: []ID{mkID(1)},
	}
	require.NoError(t, rec.Validate())

	data, err := rec.Encode()
	require.NoError(t, err)

	got, err := DecodeOutpointRecord(prevout, data)
	require.NoError(t, err)
	require.Equal(t, rec, got)
}

func TestOutpointRecordRoundTripZeroNextout(t *testing.T) {
	prevout := Outpoint{Hash: mkID(7), Index: 3}
	rec := &OutpointRecord{Prevout: prevout, Requests: []ID{mkID(1)}}

	data, err := rec.Encode()
	require.NoError(t, err)

	got, err := DecodeOutpointRecord(prevout, data)
	require.NoError(t, err)
	require.True(t, got.Nextout.IsZero())
}

func TestRequestRoundTripSpendsOnly(t *testing.T) {
	req := &Request{
		ID:        mkID(5),
		Address:   Address{1, 2, 3},
		Value:     42,
		Spends:    &Outpoint{Hash: mkID(6), Index: 7},
		Timestamp: 1234,
	}
	data, err := req.Encode()
	require.NoError(t, err)

	got, err := DecodeRequest(req.ID, data)
	require.NoError(t, err)
	require.Equal(t, req, got)
}

func TestRequestRoundTripPaysOnly(t *testing.T) {
	req := &Request{
		ID:        mkID(5),
		Address:   Address{9},
		Value:     0,
		Pays:      Script{0x00, 0x14, 0xaa, 0xbb},
		Timestamp: 99,
	}
	data, err := req.Encode()
	require.NoError(t, err)

	got, err := DecodeRequest(req.ID, data)
	require.NoError(t, err)
	require.Equal(t, req, got)
	require.Nil(t, got.Spends)
}

func TestRequestValidateRequiresSpendsOrPays(t *testing.T) {
	req := &Request{ID: mkID(1)}
	err := req.Validate()
	require.Error(t, err)
	require.True(t, IsKind(err, KindValidation))
}

func TestRequestValidateRejectsOversizedScript(t *testing.T) {
	req := &Request{ID: mkID(1), Pays: make(Script, MaxScriptSize+1)}
	err := req.Validate()
	require.Error(t, err)
	require.True(t, IsKind(err, KindValidation))
}

func TestScriptHashBinding(t *testing.T) {
	script := Script("hello")
	rec := &ScriptRecord{Hash: mkID(0), Script: script, Requests: []ID{mkID(1)}}
	require.Error(t, rec.Validate())
}

func TestUnionRequestsIdempotent(t *testing.T) {
	ids := []ID{mkID(1)}
	ids = UnionRequests(ids, mkID(2))
	ids = UnionRequests(ids, mkID(2))
	require.True(t, equalIDs(ids, []ID{mkID(1), mkID(2)}))
}

func TestKeyRoundTrip(t *testing.T) {
	hash := mkID(3)
	sk := ScriptKey(hash)
	gotHash, err := DecodeScriptKey(sk)
	require.NoError(t, err)
	require.Equal(t, hash, gotHash)

	txid := mkID(4)
	ok := OutpointKey(txid, 11)
	gotOut, err := DecodeOutpointKey(ok)
	require.NoError(t, err)
	require.Equal(t, Outpoint{Hash: txid, Index: 11}, gotOut)

	id := mkID(5)
	rk := RequestKey(id)
	gotID, err := DecodeRequestKey(rk)
	require.NoError(t, err)
	require.Equal(t, id, gotID)
}

func TestOutpointKeyOrdersByIndexBigEndian(t *testing.T) {
	txid := mkID(1)
	low := OutpointKey(txid, 1)
	high := OutpointKey(txid, 2)
	require.True(t, string(low) < string(high))
}
