package client

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/codec"
	"portfolio_tracker/internal/pkg/utils"
)

// tonapi returns some integers as JSON numbers and others as strings.
type tonAccount struct {
	Address string             `json:"address"`
	Balance jsoniter.RawMessage `json:"balance"`
	Status  string             `json:"status"`
}

type tonJettonBalances struct {
	Balances []struct {
		Balance jsoniter.RawMessage `json:"balance"`
		Jetton  struct {
			Address  string             `json:"address"`
			Name     string             `json:"name"`
			Symbol   string             `json:"symbol"`
			Decimals jsoniter.RawMessage `json:"decimals"`
		} `json:"jetton"`
	} `json:"balances"`
}

type tonJettonInfo struct {
	Metadata struct {
		Address  string             `json:"address"`
		Name     string             `json:"name"`
		Symbol   string             `json:"symbol"`
		Decimals jsoniter.RawMessage `json:"decimals"`
	} `json:"metadata"`
}

// TONClient implements port.ChainAdapter over the tonapi.io v2 REST API.
type TONClient struct {
	transport port.Transport
	logger    port.Logger
}

// NewTONClient creates the TON adapter.
func NewTONClient(t port.Transport, logger port.Logger) *TONClient {
	return &TONClient{transport: t, logger: logger}
}

var _ port.ChainAdapter = (*TONClient)(nil)

// Family implements port.ChainAdapter.
func (c *TONClient) Family() entity.ChainFamily { return entity.FamilyTON }

// GetNativeBalance returns the nanotons held by address.
func (c *TONClient) GetNativeBalance(ctx context.Context, ep entity.Endpoint, address string) (*big.Int, error) {
	var acc tonAccount
	if err := c.transport.GetJSON(ctx, ep, "/accounts/"+url.PathEscape(address), &acc); err != nil {
		return nil, &entity.ChainError{Method: "accounts", Err: err}
	}
	balance, err := jsonInteger(acc.Balance)
	if err != nil {
		return nil, &entity.ChainError{Method: "accounts", Err: fmt.Errorf("balance: %w", err)}
	}
	return balance, nil
}

func (c *TONClient) jettons(ctx context.Context, ep entity.Endpoint, address string) (tonJettonBalances, error) {
	var res tonJettonBalances
	if err := c.transport.GetJSON(ctx, ep, "/accounts/"+url.PathEscape(address)+"/jettons", &res); err != nil {
		return res, &entity.ChainError{Method: "accounts/jettons", Err: err}
	}
	return res, nil
}

// GetTokenBalances matches the jetton list of address against tokens by master address.
// Unmatched non-zero jettons are returned in Extra with their tonapi metadata.
func (c *TONClient) GetTokenBalances(ctx context.Context, ep entity.Endpoint, address string, tokens []entity.Token) (entity.TokenBalances, error) {
	out := entity.NewTokenBalances()
	res, err := c.jettons(ctx, ep, address)
	if err != nil {
		return out, err
	}

	// raw master address -> tracked token address
	tracked := make(map[string]string, len(tokens))
	for _, token := range tokens {
		a, err := codec.ParseTONAddress(token.Address)
		if err != nil {
			out.Failed[token.Address] = &entity.ValidationError{Field: "token", Value: token.Address, Reason: err.Error()}
			continue
		}
		tracked[a.Raw()] = token.Address
		out.Amounts[token.Address] = big.NewInt(0)
	}

	for _, b := range res.Balances {
		master, err := codec.ParseTONAddress(b.Jetton.Address)
		if err != nil {
			c.logger.Warn("Skipping jetton with malformed master address", "address", b.Jetton.Address)
			continue
		}
		amount, err := jsonInteger(b.Balance)
		if err != nil {
			if tokenAddr, ok := tracked[master.Raw()]; ok {
				delete(out.Amounts, tokenAddr)
				out.Failed[tokenAddr] = &entity.ChainError{Method: "accounts/jettons", Err: fmt.Errorf("balance: %w", err)}
			}
			continue
		}
		if tokenAddr, ok := tracked[master.Raw()]; ok {
			out.Amounts[tokenAddr] = amount
			continue
		}
		if amount.Sign() == 0 {
			continue
		}
		decimals, err := jsonDecimals(b.Jetton.Decimals)
		if err != nil {
			c.logger.Warn("Skipping jetton with malformed decimals", "address", b.Jetton.Address)
			continue
		}
		out.Extra = append(out.Extra, entity.DiscoveredBalance{
			Token: entity.TokenRef{
				Address:  master.WithBounce(true).String(),
				Symbol:   strings.TrimSpace(b.Jetton.Symbol),
				Decimals: decimals,
			},
			Amount: amount,
		})
	}
	return out, nil
}

// DiscoverTokens lists jettons held with a non-zero balance.
func (c *TONClient) DiscoverTokens(ctx context.Context, ep entity.Endpoint, address string) ([]entity.TokenRef, error) {
	balances, err := c.GetTokenBalances(ctx, ep, address, nil)
	if err != nil {
		return nil, err
	}
	refs := make([]entity.TokenRef, 0, len(balances.Extra))
	for _, e := range balances.Extra {
		refs = append(refs, e.Token)
	}
	return refs, nil
}

// ResolveToken reads the jetton master metadata.
func (c *TONClient) ResolveToken(ctx context.Context, ep entity.Endpoint, tokenAddress string) (entity.TokenRef, error) {
	var info tonJettonInfo
	if err := c.transport.GetJSON(ctx, ep, "/jettons/"+url.PathEscape(tokenAddress), &info); err != nil {
		return entity.TokenRef{}, &entity.ChainError{Method: "jettons", Err: err}
	}
	decimals, err := jsonDecimals(info.Metadata.Decimals)
	if err != nil {
		return entity.TokenRef{}, &entity.ChainError{Method: "jettons", Err: fmt.Errorf("decimals: %w", err)}
	}
	return entity.TokenRef{
		Address:  tokenAddress,
		Symbol:   strings.TrimSpace(info.Metadata.Symbol),
		Decimals: decimals,
	}, nil
}

// ValidateAddress implements port.ChainAdapter.
func (c *TONClient) ValidateAddress(address string) bool {
	return codec.ValidateTONAddress(address)
}

// ValidateTokenAddress implements port.ChainAdapter.
func (c *TONClient) ValidateTokenAddress(address string) bool {
	return codec.ValidateTONAddress(address)
}

// NormalizeAddress stores wallets in the non-bounceable user-friendly form.
func (c *TONClient) NormalizeAddress(address string) (string, error) {
	a, err := codec.ParseTONAddress(address)
	if err != nil {
		return "", &entity.ValidationError{Field: "address", Value: address, Reason: err.Error()}
	}
	a.Testnet = false
	return a.WithBounce(false).String(), nil
}

// NormalizeTokenAddress stores jetton masters in the bounceable user-friendly form.
func (c *TONClient) NormalizeTokenAddress(address string) (string, error) {
	a, err := codec.ParseTONAddress(address)
	if err != nil {
		return "", &entity.ValidationError{Field: "token", Value: address, Reason: err.Error()}
	}
	a.Testnet = false
	return a.WithBounce(true).String(), nil
}

func jsonInteger(raw jsoniter.RawMessage) (*big.Int, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return nil, fmt.Errorf("missing value")
	}
	return utils.ParseBigInt(s)
}

func jsonDecimals(raw jsoniter.RawMessage) (uint8, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, fmt.Errorf("missing decimals")
	}
	d, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid decimals %q: %w", s, err)
	}
	return uint8(d), nil
}
