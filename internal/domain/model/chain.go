package model

import "regexp"

// Chain identifies the network a payment settles on. Every intent and
// purchase carries an explicit chain; there is no implicit default.
type Chain string

const (
	ChainSolana    Chain = "solana"
	ChainEthereum  Chain = "ethereum"
	ChainPolygon   Chain = "polygon"
	ChainBase      Chain = "base"
	ChainArbitrum  Chain = "arbitrum"
	ChainOptimism  Chain = "optimism"
	ChainBNB       Chain = "bnb"
	ChainAvalanche Chain = "avalanche"
)

// evmChainIDs maps EVM chain names to their canonical numeric chain id,
// used in EIP-681 payment URLs and for sender recovery.
var evmChainIDs = map[Chain]int64{
	ChainEthereum:  1,
	ChainPolygon:   137,
	ChainBase:      8453,
	ChainArbitrum:  42161,
	ChainOptimism:  10,
	ChainBNB:       56,
	ChainAvalanche: 43114,
}

func (c Chain) Valid() bool {
	if c == ChainSolana {
		return true
	}
	_, ok := evmChainIDs[c]
	return ok
}

func (c Chain) IsEVM() bool {
	_, ok := evmChainIDs[c]
	return ok
}

// EVMChainID returns the numeric chain id for EVM chains, 0 otherwise.
func (c Chain) EVMChainID() int64 {
	return evmChainIDs[c]
}

// NativeCurrency returns the chain's native coin symbol.
func (c Chain) NativeCurrency() string {
	switch c {
	case ChainSolana:
		return "SOL"
	case ChainPolygon:
		return "POL"
	case ChainBNB:
		return "BNB"
	case ChainAvalanche:
		return "AVAX"
	case ChainEthereum, ChainBase, ChainArbitrum, ChainOptimism:
		return "ETH"
	default:
		return ""
	}
}

// EVMChains lists every supported EVM chain in registration order.
func EVMChains() []Chain {
	return []Chain{
		ChainEthereum, ChainPolygon, ChainBase, ChainArbitrum,
		ChainOptimism, ChainBNB, ChainAvalanche,
	}
}

var (
	base58AddressRe = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
	evmAddressRe    = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// ValidAddress reports whether addr is well-formed for the chain's native
// address representation: base58 for Solana, 0x-prefixed hex for EVM chains.
func (c Chain) ValidAddress(addr string) bool {
	switch {
	case c == ChainSolana:
		return base58AddressRe.MatchString(addr)
	case c.IsEVM():
		return evmAddressRe.MatchString(addr)
	default:
		return false
	}
}
