package tokenloader

import (
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TokenListEntry is one element of an imported token list file.
// Chain is optional; when present it must name the chain the list is imported into.
type TokenListEntry struct {
	Chain    string `json:"chain,omitempty"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals *uint8 `json:"decimals"`
}

// TokenFileLoader reads token lists for `token import`.
type TokenFileLoader struct {
	loggerInfo func(msg string, args ...any)
	loggerWarn func(msg string, args ...any)
}

// NewTokenLoader creates a new TokenFileLoader.
func NewTokenLoader(loggerInfo func(msg string, args ...any), loggerWarn func(msg string, args ...any)) *TokenFileLoader {
	return &TokenFileLoader{
		loggerInfo: loggerInfo,
		loggerWarn: loggerWarn,
	}
}

// LoadTokens parses a JSON array of tokens for one chain. Entries for another chain,
// with an invalid address or without symbol/decimals are skipped; the count is returned.
// Addresses come back in the adapter's canonical form and duplicates inside the file are dropped.
func (l *TokenFileLoader) LoadTokens(path string, chain entity.Chain, adapter port.ChainAdapter) ([]entity.Token, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read token file %s: %w", path, err)
	}

	var entries []TokenListEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, 0, &entity.ValidationError{Field: "token file", Value: path, Reason: err.Error()}
	}

	tokens := make([]entity.Token, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	skipped := 0
	for i, e := range entries {
		if e.Chain != "" && entity.ChainIDFromName(e.Chain) != chain.ID {
			l.warn("Token belongs to another chain, skipping token.", "file", path, "index", i, "token_chain", e.Chain, "expected_chain", chain.ID)
			skipped++
			continue
		}
		addr, err := adapter.NormalizeTokenAddress(e.Address)
		if err != nil {
			l.warn("Skipping invalid token address", "file", path, "index", i, "address", e.Address, "error", err)
			skipped++
			continue
		}
		symbol := strings.TrimSpace(e.Symbol)
		if symbol == "" || e.Decimals == nil {
			l.warn("Token has no symbol or decimals, skipping token.", "file", path, "index", i, "address", addr)
			skipped++
			continue
		}
		key := strings.ToLower(addr)
		if _, dup := seen[key]; dup {
			skipped++
			continue
		}
		seen[key] = struct{}{}
		tokens = append(tokens, entity.Token{ChainID: chain.ID, Address: addr, Symbol: symbol, Decimals: *e.Decimals})
	}

	if l.loggerInfo != nil {
		l.loggerInfo("Token list loaded", "file", path, "chain", chain.ID, "count", len(tokens), "skipped", skipped)
	}
	return tokens, skipped, nil
}

func (l *TokenFileLoader) warn(msg string, args ...any) {
	if l.loggerWarn != nil {
		l.loggerWarn(msg, args...)
	}
}
