package port

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceLookup resolves USD unit prices of tokens. chainID is the price source's chain id.
type PriceLookup interface {
	// GetPrice returns entity.ErrPriceUnavailable when no usable price exists.
	GetPrice(ctx context.Context, chainID, tokenAddress string) (decimal.Decimal, error)
	// GetPrices prices many tokens of one chain at once. Missing keys are unavailable.
	GetPrices(ctx context.Context, chainID string, tokenAddresses []string) (map[string]decimal.Decimal, error)
	// LookupSymbol returns the symbol the price source lists for a token.
	LookupSymbol(ctx context.Context, chainID, tokenAddress string) (string, error)
}
