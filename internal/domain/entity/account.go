package entity

import (
	"regexp"
	"strings"

	"portfolio_tracker/internal/pkg/codec"
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,32}$`)

// Account is a tracked wallet.
// An empty ChainID tracks the address on every chain of its family.
type Account struct {
	Family  ChainFamily `json:"family"`
	ChainID string      `json:"chainId,omitempty"`
	Address string      `json:"address"`
	Alias   string      `json:"alias,omitempty"`
}

// AppliesTo reports whether the account should be queried on the given chain.
func (a Account) AppliesTo(c Chain) bool {
	return a.Family == c.Family && (a.ChainID == "" || a.ChainID == c.ID)
}

// Scope is the chain id for chain-bound accounts and the family name otherwise.
func (a Account) Scope() string {
	if a.ChainID != "" {
		return a.ChainID
	}
	return string(a.Family)
}

// Label is the alias when present, else the address.
func (a Account) Label() string {
	if a.Alias != "" {
		return a.Alias
	}
	return a.Address
}

// ValidateAlias checks an optional human alias.
func ValidateAlias(alias string) error {
	if alias == "" {
		return nil
	}
	if !aliasPattern.MatchString(alias) {
		return &ValidationError{Field: "alias", Value: alias, Reason: "use 1-32 letters, digits, '.', '_' or '-'"}
	}
	if strings.HasPrefix(strings.ToLower(alias), "0x") {
		return &ValidationError{Field: "alias", Value: alias, Reason: "must not look like an address"}
	}
	return nil
}

// SameAddress compares two addresses of the given family.
// EVM hex is case-insensitive, TON matches any encoding of the same workchain and hash,
// base58 is compared as stored.
func SameAddress(family ChainFamily, a, b string) bool {
	switch family {
	case FamilyEVM:
		return strings.EqualFold(a, b)
	case FamilyTON:
		return a == b || codec.SameTONAccount(a, b)
	default:
		return a == b
	}
}
