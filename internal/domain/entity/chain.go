package entity

import (
	"fmt"
	"net/url"
	"strings"
)

// ChainFamily groups networks that share an RPC dialect and an address format.
type ChainFamily string

const (
	FamilyEVM    ChainFamily = "evm"
	FamilySolana ChainFamily = "sol"
	FamilyTON    ChainFamily = "ton"
)

// Families lists the supported families in display order.
var Families = []ChainFamily{FamilyTON, FamilySolana, FamilyEVM}

// ParseChainFamily accepts the short family names used on the command line.
func ParseChainFamily(s string) (ChainFamily, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "evm":
		return FamilyEVM, nil
	case "sol", "solana":
		return FamilySolana, nil
	case "ton":
		return FamilyTON, nil
	}
	return "", &ValidationError{Field: "family", Value: s, Reason: "expected one of evm, sol, ton"}
}

// NativeCurrency describes the base currency of a chain and where its USD price is listed.
type NativeCurrency struct {
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	// PriceChainID and PriceAddress point at the DEXScreener listing of the wrapped native token.
	PriceChainID string `json:"priceChainId"`
	PriceAddress string `json:"priceAddress"`
}

// Endpoint is what a chain adapter needs to reach a network.
type Endpoint struct {
	URL    string
	APIKey string
}

// Chain holds the configuration of a single network.
type Chain struct {
	ID            string         `json:"id"`
	Family        ChainFamily    `json:"family"`
	Name          string         `json:"name"`
	RPCURL        string         `json:"rpcUrl"`
	APIKey        string         `json:"apiKey,omitempty"`
	Enabled       bool           `json:"enabled"`
	DEXScreenerID string         `json:"dexScreenerId"`
	Native        NativeCurrency `json:"native"`
}

// ChainIDFromName derives the identifier used on the command line: lowercase, no spaces.
func ChainIDFromName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
}

// Endpoint returns the transport endpoint for the chain.
func (c Chain) Endpoint() Endpoint {
	return Endpoint{URL: c.RPCURL, APIKey: c.APIKey}
}

func (c Chain) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Native.Symbol)
}

// Validate checks the invariants that must hold before the chain is persisted.
func (c Chain) Validate() error {
	if c.ID == "" {
		return &ValidationError{Field: "chain.id", Value: c.Name, Reason: "empty identifier"}
	}
	switch c.Family {
	case FamilyEVM, FamilySolana, FamilyTON:
	default:
		return &ValidationError{Field: "chain.family", Value: string(c.Family), Reason: "unknown family"}
	}
	if c.Native.Symbol == "" {
		return &ValidationError{Field: "chain.native", Value: c.ID, Reason: "native currency symbol is missing"}
	}
	return ValidateRPCURL(c.RPCURL)
}

// ValidateRPCURL requires an absolute http(s) URL with a host.
func ValidateRPCURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return &ValidationError{Field: "rpc", Value: raw, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "rpc", Value: raw, Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return &ValidationError{Field: "rpc", Value: raw, Reason: "missing host"}
	}
	return nil
}
