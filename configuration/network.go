package configuration

import "github.com/RelayProject/btcrelay/relay"

// NetworkParams identifies the chain a relay instance watches. This is a
// trimmed adaptation of the teacher's ravencoin/chaincfg.Params: the
// difficulty-retarget constants, checkpoints, DNS seeds, and consensus
// deployment bit assignments that made up the bulk of that file have no
// consumer here (full-node consensus bootstrap is a spec Non-goal) and
// were not carried forward — only the identity fields a relay boundary
// adapter needs to label a NetworkIdentifier survive.
type NetworkParams struct {
	// Name is a human-readable identifier for the network.
	Name string

	// Net is the network's magic bytes, as used in the wire protocol's
	// version handshake.
	Net uint32

	// GenesisHash is the starting block hash, canonical internal
	// (little-endian) form.
	GenesisHash relay.ID

	// CurrencySymbol labels amounts reported at the HTTP boundary; it has
	// no bearing on the core's opaque uint64 Request.Value.
	CurrencySymbol   string
	CurrencyDecimals int32
}

func mustHash(s string) relay.ID {
	h, err := relay.IDFromString(s)
	if err != nil {
		panic(err)
	}
	return h
}

var (
	MainNetParams = NetworkParams{
		Name:             "mainnet",
		Net:              0xd9b4bef9,
		GenesisHash:      mustHash("000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f"),
		CurrencySymbol:   "BTC",
		CurrencyDecimals: 8,
	}

	TestNetParams = NetworkParams{
		Name:             "testnet3",
		Net:              0x0709110b,
		GenesisHash:      mustHash("000000000933ea01ad0ee984209779baaec3ced90fa3f408719526f8d77f4943"),
		CurrencySymbol:   "tBTC",
		CurrencyDecimals: 8,
	}
)
