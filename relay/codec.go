package relay

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/wire"
)

// codecPVer is passed to wire.ReadVarInt/WriteVarInt. Our varint usage
// doesn't depend on protocol version negotiation the way a P2P message
// would, but the btcd wire helpers require one; 0 is the convention btcd
// itself uses for version-independent encodings (see wire.ReadVarBytes
// call sites that pass a fixed pver).
const codecPVer uint32 = 0

// writeElement/readElement mirror the teacher's own message-codec idiom
// (ravencoin/wire/msgsendcmpct.go's readElement/writeElement calls): a
// single-pass, little-endian binary.Write/Read per field, in field order.
func writeElement(w io.Writer, element interface{}) error {
	return binary.Write(w, binary.LittleEndian, element)
}

func readElement(r io.Reader, element interface{}) error {
	return binary.Read(r, binary.LittleEndian, element)
}

// Encode serializes a ScriptRecord per spec §4.A:
// u32 count || count*(32-byte request-id) || varint len || len*u8 script.
func (s *ScriptRecord) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeElement(&buf, uint32(len(s.Requests))); err != nil {
		return nil, NewError("ScriptRecord.Encode", KindCodec, err)
	}
	for _, id := range s.Requests {
		if _, err := buf.Write(id[:]); err != nil {
			return nil, NewError("ScriptRecord.Encode", KindCodec, err)
		}
	}
	if err := wire.WriteVarInt(&buf, codecPVer, uint64(len(s.Script))); err != nil {
		return nil, NewError("ScriptRecord.Encode", KindCodec, err)
	}
	if _, err := buf.Write(s.Script); err != nil {
		return nil, NewError("ScriptRecord.Encode", KindCodec, err)
	}
	return buf.Bytes(), nil
}

// DecodeScriptRecord decodes bytes produced by ScriptRecord.Encode. hash is
// the key the record was stored under (not re-derived from the payload),
// per spec §4.A.
func DecodeScriptRecord(hash ID, data []byte) (*ScriptRecord, error) {
	r := bytes.NewReader(data)
	var count uint32
	if err := readElement(r, &count); err != nil {
		return nil, NewError("DecodeScriptRecord", KindCodec, err)
	}
	ids := make([]ID, count)
	for i := range ids {
		if _, err := io.ReadFull(r, ids[i][:]); err != nil {
			return nil, NewError("DecodeScriptRecord", KindCodec, err)
		}
	}
	length, err := wire.ReadVarInt(r, codecPVer)
	if err != nil {
		return nil, NewError("DecodeScriptRecord", KindCodec, err)
	}
	script := make([]byte, length)
	if _, err := io.ReadFull(r, script); err != nil {
		return nil, NewError("DecodeScriptRecord", KindCodec, err)
	}
	return &ScriptRecord{Hash: hash, Script: script, Requests: ids}, nil
}

// Encode serializes an OutpointRecord per spec §4.A:
// 32-byte nextout.hash || u32 nextout.index || u32 count || count*(32-byte
// request-id). The prevout is carried in the key, not the value.
func (o *OutpointRecord) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.Write(o.Nextout.Hash[:]); err != nil {
		return nil, NewError("OutpointRecord.Encode", KindCodec, err)
	}
	if err := writeElement(&buf, o.Nextout.Index); err != nil {
		return nil, NewError("OutpointRecord.Encode", KindCodec, err)
	}
	if err := writeElement(&buf, uint32(len(o.Requests))); err != nil {
		return nil, NewError("OutpointRecord.Encode", KindCodec, err)
	}
	for _, id := range o.Requests {
		if _, err := buf.Write(id[:]); err != nil {
			return nil, NewError("OutpointRecord.Encode", KindCodec, err)
		}
	}
	return buf.Bytes(), nil
}

// DecodeOutpointRecord decodes bytes produced by OutpointRecord.Encode.
// prevout is the key the record was stored under.
func DecodeOutpointRecord(prevout Outpoint, data []byte) (*OutpointRecord, error) {
	r := bytes.NewReader(data)
	rec := &OutpointRecord{Prevout: prevout}
	if _, err := io.ReadFull(r, rec.Nextout.Hash[:]); err != nil {
		return nil, NewError("DecodeOutpointRecord", KindCodec, err)
	}
	if err := readElement(r, &rec.Nextout.Index); err != nil {
		return nil, NewError("DecodeOutpointRecord", KindCodec, err)
	}
	var count uint32
	if err := readElement(r, &count); err != nil {
		return nil, NewError("DecodeOutpointRecord", KindCodec, err)
	}
	rec.Requests = make([]ID, count)
	for i := range rec.Requests {
		if _, err := io.ReadFull(r, rec.Requests[i][:]); err != nil {
			return nil, NewError("DecodeOutpointRecord", KindCodec, err)
		}
	}
	return rec, nil
}

// Encode serializes a Request per spec §4.A:
// 20-byte address || u64 value || 32-byte spends.hash || u32 spends.index
// || u32 timestamp || varint len || len*u8 pays. A nil Spends encodes as
// the zero-outpoint.
func (req *Request) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.Write(req.Address[:]); err != nil {
		return nil, NewError("Request.Encode", KindCodec, err)
	}
	if err := writeElement(&buf, req.Value); err != nil {
		return nil, NewError("Request.Encode", KindCodec, err)
	}
	spends := req.Spends
	if spends == nil {
		spends = &Outpoint{}
	}
	if _, err := buf.Write(spends.Hash[:]); err != nil {
		return nil, NewError("Request.Encode", KindCodec, err)
	}
	if err := writeElement(&buf, spends.Index); err != nil {
		return nil, NewError("Request.Encode", KindCodec, err)
	}
	if err := writeElement(&buf, req.Timestamp); err != nil {
		return nil, NewError("Request.Encode", KindCodec, err)
	}
	if err := wire.WriteVarInt(&buf, codecPVer, uint64(len(req.Pays))); err != nil {
		return nil, NewError("Request.Encode", KindCodec, err)
	}
	if _, err := buf.Write(req.Pays); err != nil {
		return nil, NewError("Request.Encode", KindCodec, err)
	}
	return buf.Bytes(), nil
}

// DecodeRequest decodes bytes produced by Request.Encode. id is the key
// the record was stored under (not re-derived from the payload).
func DecodeRequest(id ID, data []byte) (*Request, error) {
	r := bytes.NewReader(data)
	req := &Request{ID: id}
	if _, err := io.ReadFull(r, req.Address[:]); err != nil {
		return nil, NewError("DecodeRequest", KindCodec, err)
	}
	if err := readElement(r, &req.Value); err != nil {
		return nil, NewError("DecodeRequest", KindCodec, err)
	}
	var spends Outpoint
	if _, err := io.ReadFull(r, spends.Hash[:]); err != nil {
		return nil, NewError("DecodeRequest", KindCodec, err)
	}
	if err := readElement(r, &spends.Index); err != nil {
		return nil, NewError("DecodeRequest", KindCodec, err)
	}
	if err := readElement(r, &req.Timestamp); err != nil {
		return nil, NewError("DecodeRequest", KindCodec, err)
	}
	length, err := wire.ReadVarInt(r, codecPVer)
	if err != nil {
		return nil, NewError("DecodeRequest", KindCodec, err)
	}
	pays := make([]byte, length)
	if _, err := io.ReadFull(r, pays); err != nil {
		return nil, NewError("DecodeRequest", KindCodec, err)
	}
	if !spends.IsZero() {
		req.Spends = &spends
	}
	if length > 0 {
		req.Pays = pays
	}
	return req, nil
}
