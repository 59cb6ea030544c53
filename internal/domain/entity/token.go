package entity

import "math/big"

// Token is a trackable asset on one chain: an ERC-20 contract, an SPL mint or a jetton master.
type Token struct {
	ChainID    string `json:"chainId"`
	Address    string `json:"address"`
	Symbol     string `json:"symbol"`
	Decimals   uint8  `json:"decimals"`
	Discovered bool   `json:"discovered,omitempty"`
}

// TokenRef is token metadata as reported by a chain or a discovery call.
type TokenRef struct {
	Address  string
	Symbol   string
	Decimals uint8
}

// DiscoveredBalance is a holding the chain returned for a token nobody tracks yet.
type DiscoveredBalance struct {
	Token  TokenRef
	Amount *big.Int
}

// TokenBalances is the result of one token-balances call.
// Tokens that failed individually are listed in Failed instead of aborting the call.
type TokenBalances struct {
	Amounts map[string]*big.Int
	Failed  map[string]error
	Extra   []DiscoveredBalance
}

// NewTokenBalances returns an empty result ready to be filled.
func NewTokenBalances() TokenBalances {
	return TokenBalances{
		Amounts: make(map[string]*big.Int),
		Failed:  make(map[string]error),
	}
}
