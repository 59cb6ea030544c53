package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/codec"
	"portfolio_tracker/internal/pkg/utils"
)

const (
	splTokenProgram  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	token2022Program = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
)

var solanaTokenPrograms = []string{splTokenProgram, token2022Program}

type solanaBalanceResult struct {
	Value uint64 `json:"value"`
}

type solanaTokenAccounts struct {
	Value []struct {
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						Mint        string `json:"mint"`
						TokenAmount struct {
							Amount   string `json:"amount"`
							Decimals uint8  `json:"decimals"`
						} `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

type solanaMintInfo struct {
	Value *struct {
		Data struct {
			Parsed struct {
				Type string `json:"type"`
				Info struct {
					Decimals uint8 `json:"decimals"`
				} `json:"info"`
			} `json:"parsed"`
		} `json:"data"`
	} `json:"value"`
}

// solanaHolding is the sum of every token account of one mint.
type solanaHolding struct {
	amount   *big.Int
	decimals uint8
}

// SolanaClient implements port.ChainAdapter over the Solana JSON-RPC API.
type SolanaClient struct {
	transport port.Transport
	logger    port.Logger
}

// NewSolanaClient creates the Solana adapter.
func NewSolanaClient(t port.Transport, logger port.Logger) *SolanaClient {
	return &SolanaClient{transport: t, logger: logger}
}

var _ port.ChainAdapter = (*SolanaClient)(nil)

// Family implements port.ChainAdapter.
func (c *SolanaClient) Family() entity.ChainFamily { return entity.FamilySolana }

// GetNativeBalance returns the lamports held by address.
func (c *SolanaClient) GetNativeBalance(ctx context.Context, ep entity.Endpoint, address string) (*big.Int, error) {
	var res solanaBalanceResult
	if err := c.transport.CallJSONRPC(ctx, ep, &res, "getBalance", address, map[string]any{"commitment": "confirmed"}); err != nil {
		return nil, &entity.ChainError{Method: "getBalance", Err: err}
	}
	return new(big.Int).SetUint64(res.Value), nil
}

// holdings lists the token accounts of owner under both token programs in one batch.
// A program whose call failed is returned in failed.
func (c *SolanaClient) holdings(ctx context.Context, ep entity.Endpoint, owner string) (map[string]solanaHolding, []error, error) {
	calls := make([]port.RPCCall, len(solanaTokenPrograms))
	for i, program := range solanaTokenPrograms {
		calls[i] = port.RPCCall{
			Method: "getTokenAccountsByOwner",
			Params: []any{
				owner,
				map[string]any{"programId": program},
				map[string]any{"encoding": "jsonParsed", "commitment": "confirmed"},
			},
			Result: new(solanaTokenAccounts),
		}
	}
	if err := c.transport.BatchJSONRPC(ctx, ep, calls); err != nil {
		return nil, nil, &entity.ChainError{Method: "getTokenAccountsByOwner", Err: err}
	}

	held := make(map[string]solanaHolding)
	var failed []error
	for i, call := range calls {
		if call.Error != nil {
			failed = append(failed, fmt.Errorf("program %s: %w", solanaTokenPrograms[i], call.Error))
			continue
		}
		for _, acc := range call.Result.(*solanaTokenAccounts).Value {
			info := acc.Account.Data.Parsed.Info
			if info.Mint == "" {
				continue
			}
			amount, err := utils.ParseBigInt(info.TokenAmount.Amount)
			if err != nil {
				c.logger.Warn("Skipping token account with malformed amount", "mint", info.Mint, "amount", info.TokenAmount.Amount)
				continue
			}
			h, ok := held[info.Mint]
			if !ok {
				h = solanaHolding{amount: new(big.Int), decimals: info.TokenAmount.Decimals}
			}
			h.amount.Add(h.amount, amount)
			held[info.Mint] = h
		}
	}
	if len(failed) == len(calls) {
		return nil, nil, &entity.ChainError{Method: "getTokenAccountsByOwner", Err: errors.Join(failed...)}
	}
	return held, failed, nil
}

// GetTokenBalances returns tracked mints in Amounts and every other non-zero mint in Extra.
func (c *SolanaClient) GetTokenBalances(ctx context.Context, ep entity.Endpoint, address string, tokens []entity.Token) (entity.TokenBalances, error) {
	out := entity.NewTokenBalances()
	held, failed, err := c.holdings(ctx, ep, address)
	if err != nil {
		return out, err
	}

	tracked := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		tracked[token.Address] = struct{}{}
		if h, ok := held[token.Address]; ok {
			out.Amounts[token.Address] = h.amount
			continue
		}
		// a failed program may hold this mint, so zero is not known
		if len(failed) > 0 {
			out.Failed[token.Address] = &entity.ChainError{Method: "getTokenAccountsByOwner", Err: errors.Join(failed...)}
			continue
		}
		out.Amounts[token.Address] = big.NewInt(0)
	}

	for _, mint := range sortedMints(held) {
		h := held[mint]
		if _, ok := tracked[mint]; ok || h.amount.Sign() == 0 {
			continue
		}
		out.Extra = append(out.Extra, entity.DiscoveredBalance{
			Token:  entity.TokenRef{Address: mint, Decimals: h.decimals},
			Amount: h.amount,
		})
	}
	return out, nil
}

// DiscoverTokens lists the mints with a non-zero balance.
func (c *SolanaClient) DiscoverTokens(ctx context.Context, ep entity.Endpoint, address string) ([]entity.TokenRef, error) {
	held, _, err := c.holdings(ctx, ep, address)
	if err != nil {
		return nil, err
	}
	var refs []entity.TokenRef
	for _, mint := range sortedMints(held) {
		if held[mint].amount.Sign() == 0 {
			continue
		}
		refs = append(refs, entity.TokenRef{Address: mint, Decimals: held[mint].decimals})
	}
	return refs, nil
}

// ResolveToken reads the decimals of a mint account. Solana keeps no symbol on chain.
func (c *SolanaClient) ResolveToken(ctx context.Context, ep entity.Endpoint, tokenAddress string) (entity.TokenRef, error) {
	var res solanaMintInfo
	params := map[string]any{"encoding": "jsonParsed", "commitment": "confirmed"}
	if err := c.transport.CallJSONRPC(ctx, ep, &res, "getAccountInfo", tokenAddress, params); err != nil {
		return entity.TokenRef{}, &entity.ChainError{Method: "getAccountInfo", Err: err}
	}
	if res.Value == nil {
		return entity.TokenRef{}, &entity.ChainError{Method: "getAccountInfo", Err: fmt.Errorf("account %s not found", tokenAddress)}
	}
	if res.Value.Data.Parsed.Type != "mint" {
		return entity.TokenRef{}, &entity.ChainError{Method: "getAccountInfo", Err: fmt.Errorf("account %s is not a token mint", tokenAddress)}
	}
	return entity.TokenRef{Address: tokenAddress, Decimals: res.Value.Data.Parsed.Info.Decimals}, nil
}

// ValidateAddress accepts 32-byte keys on the ed25519 curve.
func (c *SolanaClient) ValidateAddress(address string) bool {
	return codec.ValidateSolanaAddress(address)
}

// ValidateTokenAddress accepts any 32-byte key; mints may be program derived.
func (c *SolanaClient) ValidateTokenAddress(address string) bool {
	return codec.ValidateSolanaMint(address)
}

// NormalizeAddress implements port.ChainAdapter. Base58 has a single encoding.
func (c *SolanaClient) NormalizeAddress(address string) (string, error) {
	if !c.ValidateAddress(address) {
		return "", &entity.ValidationError{Field: "address", Value: address, Reason: "not a base58 ed25519 public key"}
	}
	return address, nil
}

// NormalizeTokenAddress implements port.ChainAdapter.
func (c *SolanaClient) NormalizeTokenAddress(address string) (string, error) {
	if !c.ValidateTokenAddress(address) {
		return "", &entity.ValidationError{Field: "token", Value: address, Reason: "not a 32-byte base58 key"}
	}
	return address, nil
}

func sortedMints(held map[string]solanaHolding) []string {
	mints := make([]string, 0, len(held))
	for mint := range held {
		mints = append(mints, mint)
	}
	sort.Strings(mints)
	return mints
}
