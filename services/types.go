// Package services is the boundary adapter (spec §4.I / §6): it maps HTTP
// verbs onto core operations and WebSocket auth/watch/unwatch hooks onto
// the Hub, translating between display-endian wire hex and the internal
// little-endian storage form at every crossing.
package services

import (
	"encoding/hex"

	"github.com/RelayProject/btcrelay/relay"
)

// RequestDTO is the wire shape of a Request (spec §6's PUT /relay/request
// body and the Request JSON GET routes return). ID/Spends hashes are
// display-endian hex; Address/Pays are plain hex in wire byte order.
type RequestDTO struct {
	ID        string `json:"id,omitempty"`
	Address   string `json:"address"`
	Value     uint64 `json:"value"`
	Spends    *OutpointDTO `json:"spends,omitempty"`
	Pays      string `json:"pays,omitempty"`
	Timestamp uint32 `json:"timestamp,omitempty"`
	Height    *uint32 `json:"height,omitempty"`
}

// OutpointDTO is the wire shape of an Outpoint.
type OutpointDTO struct {
	Hash  string `json:"hash"`
	Index uint32 `json:"index"`
}

// ScriptRecordDTO is the wire shape of a ScriptRecord.
type ScriptRecordDTO struct {
	Hash     string   `json:"hash"`
	Script   string   `json:"script"`
	Requests []string `json:"requests"`
}

// OutpointRecordDTO is the wire shape of an OutpointRecord.
type OutpointRecordDTO struct {
	Prevout  OutpointDTO  `json:"prevout"`
	Nextout  *OutpointDTO `json:"nextout,omitempty"`
	Requests []string     `json:"requests"`
}

// SatisfiedEventDTO is the wire shape of the WebSocket
// "relay requests satisfied" payload (spec §6).
type SatisfiedEventDTO struct {
	TxID      string   `json:"txid"`
	Height    uint32   `json:"height"`
	Satisfied []string `json:"satisfied"`
}

func encodeOutpoint(o relay.Outpoint) OutpointDTO {
	return OutpointDTO{Hash: o.Hash.String(), Index: o.Index}
}

func decodeOutpoint(dto OutpointDTO) (relay.Outpoint, error) {
	id, err := relay.IDFromString(dto.Hash)
	if err != nil {
		return relay.Outpoint{}, err
	}
	return relay.Outpoint{Hash: id, Index: dto.Index}, nil
}

func encodeRequest(req *relay.Request) RequestDTO {
	dto := RequestDTO{
		ID:        req.ID.String(),
		Address:   hex.EncodeToString(req.Address[:]),
		Value:     req.Value,
		Pays:      hex.EncodeToString(req.Pays),
		Timestamp: req.Timestamp,
	}
	if req.Spends != nil {
		op := encodeOutpoint(*req.Spends)
		dto.Spends = &op
	}
	return dto
}

func decodeRequest(dto RequestDTO) (*relay.Request, error) {
	if dto.ID == "" {
		return nil, relay.NewError("decodeRequest", relay.KindValidation, nil)
	}
	id, err := relay.IDFromString(dto.ID)
	if err != nil {
		return nil, err
	}
	req := &relay.Request{ID: id, Value: dto.Value}

	addr, err := hex.DecodeString(dto.Address)
	if err != nil {
		return nil, relay.NewError("decodeRequest", relay.KindValidation, err)
	}
	if len(addr) > 0 {
		if len(addr) != len(req.Address) {
			return nil, relay.NewError("decodeRequest", relay.KindValidation, nil)
		}
		copy(req.Address[:], addr)
	}

	if dto.Pays != "" {
		pays, err := hex.DecodeString(dto.Pays)
		if err != nil {
			return nil, relay.NewError("decodeRequest", relay.KindValidation, err)
		}
		req.Pays = pays
	}

	if dto.Spends != nil {
		op, err := decodeOutpoint(*dto.Spends)
		if err != nil {
			return nil, err
		}
		req.Spends = &op
	}

	return req, nil
}

func encodeScriptRecord(rec *relay.ScriptRecord) ScriptRecordDTO {
	dto := ScriptRecordDTO{Hash: rec.Hash.String(), Script: hex.EncodeToString(rec.Script)}
	for _, id := range rec.Requests {
		dto.Requests = append(dto.Requests, id.String())
	}
	return dto
}

func encodeOutpointRecord(rec *relay.OutpointRecord) OutpointRecordDTO {
	dto := OutpointRecordDTO{Prevout: encodeOutpoint(rec.Prevout)}
	if !rec.Nextout.IsZero() {
		next := encodeOutpoint(rec.Nextout)
		dto.Nextout = &next
	}
	for _, id := range rec.Requests {
		dto.Requests = append(dto.Requests, id.String())
	}
	return dto
}
