package port

import (
	"context"
	"math/big"

	"portfolio_tracker/internal/domain/entity"
)

// ChainAdapter speaks one chain family's RPC dialect behind a uniform call surface.
// Implementations never retry; transient failures are handled by the Transport.
type ChainAdapter interface {
	Family() entity.ChainFamily

	// GetNativeBalance returns the base-currency balance in the smallest unit.
	GetNativeBalance(ctx context.Context, ep entity.Endpoint, address string) (*big.Int, error)

	// GetTokenBalances returns balances for tokens; per-token failures are reported in
	// TokenBalances.Failed instead of failing the call.
	GetTokenBalances(ctx context.Context, ep entity.Endpoint, address string, tokens []entity.Token) (entity.TokenBalances, error)

	// DiscoverTokens lists the tokens an address holds. EVM returns entity.ErrUnsupported.
	DiscoverTokens(ctx context.Context, ep entity.Endpoint, address string) ([]entity.TokenRef, error)

	// ResolveToken fetches on-chain metadata of a token. Symbol may be empty.
	ResolveToken(ctx context.Context, ep entity.Endpoint, tokenAddress string) (entity.TokenRef, error)

	ValidateAddress(address string) bool
	ValidateTokenAddress(address string) bool

	// NormalizeAddress returns the canonical stored form of a wallet address.
	NormalizeAddress(address string) (string, error)
	// NormalizeTokenAddress returns the canonical stored form of a token address.
	NormalizeTokenAddress(address string) (string, error)
}

// AdapterRegistry selects the adapter for a chain family.
type AdapterRegistry interface {
	For(family entity.ChainFamily) (ChainAdapter, error)
}
