// Package engine implements the per-block match scan (spec §4.E): the hot
// path that turns a connected block into satisfied-Request events.
package engine

import "github.com/RelayProject/btcrelay/relay"

// TxIn is a transaction input, carrying the 36-byte outpoint it spends.
type TxIn interface {
	Prevout() relay.Outpoint
}

// TxOut is a transaction output, carrying its raw script.
type TxOut interface {
	Script() relay.Script
}

// Tx is a single transaction: an ordered sequence of inputs, then an
// ordered sequence of outputs (spec §4.E: "inputs before outputs within a
// transaction").
type Tx interface {
	Hash() relay.ID
	Inputs() []TxIn
	Outputs() []TxOut
}

// Block yields its transactions in block order.
type Block interface {
	Transactions() []Tx
}

// BlockMeta carries the height of a connected or disconnected block.
type BlockMeta struct {
	Height uint32
	Hash   relay.ID
}

// View is the chain-state snapshot the host node hands the engine
// alongside a block; the core treats it as an opaque token it never reads
// itself (spec §6 lists getBlockView(block) -> view as a collaborator
// method without specifying its shape beyond that).
type View interface{}

// Tip identifies the chain's current best block.
type Tip struct {
	Height uint32
	Hash   relay.ID
}

// Chain is the external collaborator the engine consumes (spec §6): block
// storage, chain view, and connect/disconnect events live entirely on the
// other side of this interface. The core never dials a peer or validates a
// block; it only asks this interface for data it has already been given.
type Chain interface {
	Tip() (Tip, error)
	GetBlock(height uint32) (Block, BlockMeta, error)
	GetEntry(hash relay.ID) (BlockMeta, error)
	GetBlockView(b Block) (View, error)
}
