package entity

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChains() []Chain {
	return []Chain{
		{ID: "ethereum", Family: FamilyEVM, Name: "Ethereum", RPCURL: "https://eth.example", Enabled: true, Native: NativeCurrency{Symbol: "ETH", Decimals: 18}},
		{ID: "base", Family: FamilyEVM, Name: "Base", RPCURL: "https://base.example", Enabled: true, Native: NativeCurrency{Symbol: "ETH", Decimals: 18}},
		{ID: "solana", Family: FamilySolana, Name: "Solana", RPCURL: "https://sol.example", Enabled: true, Native: NativeCurrency{Symbol: "SOL", Decimals: 9}},
		{ID: "ton", Family: FamilyTON, Name: "TON", RPCURL: "https://tonapi.example/v2", Enabled: true, Native: NativeCurrency{Symbol: "TON", Decimals: 9}},
	}
}

func TestAddAccountRejectsDuplicates(t *testing.T) {
	s := NewState(testChains())
	first := Account{Family: FamilyEVM, Address: "0x000000000000000000000000000000000000dEaD", Alias: "burn"}
	require.NoError(t, s.AddAccount(first))

	tests := []struct {
		name string
		acc  Account
	}{
		{"same address family-wide", Account{Family: FamilyEVM, Address: "0x000000000000000000000000000000000000dead"}},
		{"chain-bound overlaps family-wide", Account{Family: FamilyEVM, ChainID: "base", Address: "0x000000000000000000000000000000000000dEaD"}},
		{"alias reused", Account{Family: FamilySolana, Address: "11111111111111111111111111111111", Alias: "BURN"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.AddAccount(tt.acc)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDuplicate))
			require.Len(t, s.Accounts, 1)
			assert.Equal(t, first, s.Accounts[0])
		})
	}
}

func TestAddAccountChainScopes(t *testing.T) {
	s := NewState(testChains())
	addr := "0x000000000000000000000000000000000000dEaD"
	require.NoError(t, s.AddAccount(Account{Family: FamilyEVM, ChainID: "ethereum", Address: addr}))
	require.NoError(t, s.AddAccount(Account{Family: FamilyEVM, ChainID: "base", Address: addr}))

	err := s.AddAccount(Account{Family: FamilyEVM, ChainID: "solana", Address: addr})
	assert.True(t, errors.Is(err, ErrValidation))

	eth, _ := s.Chain("ethereum")
	assert.Len(t, s.AccountsFor(*eth), 1)
}

func TestTokensAndChains(t *testing.T) {
	s := NewState(testChains())
	usdc := Token{ChainID: "ethereum", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6}
	require.NoError(t, s.AddToken(usdc))
	err := s.AddToken(Token{ChainID: "ethereum", Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Symbol: "X"})
	assert.True(t, errors.Is(err, ErrDuplicate))

	removed, err := s.RemoveToken("ethereum", "usdc")
	require.NoError(t, err)
	assert.Equal(t, usdc, removed)
	assert.Empty(t, s.Tokens)

	require.Error(t, s.SetChainRPC("ethereum", "not a url"))
	require.NoError(t, s.SetChainRPC("Ethereum", "https://rpc.example/v1"))
	c, _ := s.Chain("ethereum")
	assert.Equal(t, "https://rpc.example/v1", c.RPCURL)

	assert.Equal(t, 2, s.SetFamilyEnabled(FamilyEVM, false))
	assert.Len(t, s.EnabledChains(), 1)
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewState(testChains())
	require.NoError(t, s.AddAccount(Account{Family: FamilySolana, Address: "So1", Alias: "main"}))
	c := s.Clone()
	c.Chains[0].Enabled = false
	c.Accounts[0].Alias = "other"
	assert.True(t, s.Chains[0].Enabled)
	assert.Equal(t, "main", s.Accounts[0].Alias)
}

func TestMergeCatalogKeepsUserSettings(t *testing.T) {
	s := NewState(testChains()[:1])
	require.NoError(t, s.SetChainRPC("ethereum", "https://custom.example"))
	s.MergeCatalog(testChains())
	require.Len(t, s.Chains, 4)
	assert.Equal(t, "https://custom.example", s.Chains[0].RPCURL)
}

func TestValidate(t *testing.T) {
	s := NewState(testChains())
	require.NoError(t, s.Validate())

	s.Chains[1].RPCURL = "ftp://nope"
	assert.True(t, errors.Is(s.Validate(), ErrValidation))
}

func TestValidateRejectsDuplicateEntries(t *testing.T) {
	burn := "0x000000000000000000000000000000000000dEaD"
	tests := []struct {
		name     string
		accounts []Account
		tokens   []Token
	}{
		{"same account twice", []Account{{Family: FamilyEVM, Address: burn}, {Family: FamilyEVM, Address: strings.ToLower(burn)}}, nil},
		{"chain-bound under family-wide", []Account{{Family: FamilyEVM, Address: burn}, {Family: FamilyEVM, ChainID: "base", Address: burn}}, nil},
		{"ton forms of one wallet", []Account{
			{Family: FamilyTON, Address: "UQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqEBI"},
			{Family: FamilyTON, Address: "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"},
		}, nil},
		{"same token twice", nil, []Token{
			{ChainID: "ethereum", Address: burn, Symbol: "A"},
			{ChainID: "ethereum", Address: strings.ToLower(burn), Symbol: "B"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(testChains())
			s.Accounts = append(s.Accounts, tt.accounts...)
			s.Tokens = append(s.Tokens, tt.tokens...)
			assert.True(t, errors.Is(s.Validate(), ErrDuplicate))
		})
	}

	s := NewState(testChains())
	s.Accounts = []Account{{Family: FamilyEVM, ChainID: "ethereum", Address: burn}, {Family: FamilyEVM, ChainID: "base", Address: burn}}
	s.Tokens = []Token{{ChainID: "ethereum", Address: burn, Symbol: "A"}, {ChainID: "base", Address: burn, Symbol: "A"}}
	assert.NoError(t, s.Validate())
}

func TestSameAddress(t *testing.T) {
	assert.True(t, SameAddress(FamilyEVM, "0xAbC", "0xabc"))
	assert.True(t, SameAddress(FamilyTON, "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N", "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"))
	assert.False(t, SameAddress(FamilyTON, "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N", "0:"+strings.Repeat("11", 32)))
	assert.False(t, SameAddress(FamilySolana, "So1", "so1"))
}

func TestChainIDFromName(t *testing.T) {
	assert.Equal(t, "polygonzkevm", ChainIDFromName("Polygon zkEVM"))
	assert.Equal(t, "bsc", ChainIDFromName(" BSC "))
}
