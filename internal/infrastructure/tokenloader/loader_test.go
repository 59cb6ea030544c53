package tokenloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/network/client"
	"portfolio_tracker/internal/pkg/logger"
)

var ethereum = entity.Chain{ID: "ethereum", Family: entity.FamilyEVM, Name: "Ethereum"}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadTokens(t *testing.T) {
	path := writeFile(t, `[
  {"address": "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "symbol": "USDC", "decimals": 6},
  {"chain": "Ethereum", "address": "0xdAC17F958D2ee523a2206206994597C13D831ec7", "symbol": " USDT ", "decimals": 6},
  {"chain": "bsc", "address": "0x55d398326f99059fF775485246999027B3197955", "symbol": "USDT", "decimals": 18},
  {"address": "0x1234", "symbol": "BAD", "decimals": 18},
  {"address": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "symbol": "WETH"},
  {"address": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "symbol": "USDC", "decimals": 6}
]`)

	var warnings int
	l := NewTokenLoader(nil, func(string, ...any) { warnings++ })
	tokens, skipped, err := l.LoadTokens(path, ethereum, client.NewEVMClient(nil, logger.NewSlogAdapter()))
	require.NoError(t, err)

	require.Len(t, tokens, 2)
	assert.Equal(t, entity.Token{ChainID: "ethereum", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6}, tokens[0])
	assert.Equal(t, "USDT", tokens[1].Symbol)
	assert.Equal(t, 4, skipped)
	assert.Equal(t, 3, warnings)
}

func TestLoadTokensRejectsBadFile(t *testing.T) {
	l := NewTokenLoader(nil, nil)
	adapter := client.NewEVMClient(nil, logger.NewSlogAdapter())

	_, _, err := l.LoadTokens(writeFile(t, `{"not": "a list"}`), ethereum, adapter)
	assert.ErrorIs(t, err, entity.ErrValidation)

	_, _, err = l.LoadTokens(filepath.Join(t.TempDir(), "absent.json"), ethereum, adapter)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
