package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"portfolio_tracker/internal/app/port"
	domain "portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/entity"
)

// DEXScreenerClient defines the interface for interacting with the DEX Screener API.
type DEXScreenerClient interface {
	GetTokenPairsByAddresses(ctx context.Context, dexscreenerChainID string, tokenAddresses []string) ([]entity.PairData, error)
}

// dexScreenerClientImpl is the implementation of DEXScreenerClient.
type dexScreenerClientImpl struct {
	transport           port.Transport
	endpoint            domain.Endpoint
	timeout             time.Duration
	logger              *zap.Logger
	maxTokensPerRequest int
}

// NewDEXScreenerClient creates a new instance of dexScreenerClientImpl.
// Requests go through t, which owns rate limiting and retries.
func NewDEXScreenerClient(t port.Transport, baseURL string, timeout time.Duration, logger *zap.Logger, maxTokensPerRequest int) DEXScreenerClient {
	return &dexScreenerClientImpl{
		transport:           t,
		endpoint:            domain.Endpoint{URL: strings.TrimRight(baseURL, "/")},
		timeout:             timeout,
		logger:              logger.Named("DEXScreenerClient"),
		maxTokensPerRequest: maxTokensPerRequest,
	}
}

// GetTokenPairsByAddresses implements the DEXScreenerClient interface.
func (c *dexScreenerClientImpl) GetTokenPairsByAddresses(ctx context.Context, dexscreenerChainID string, tokenAddresses []string) ([]entity.PairData, error) {
	if len(tokenAddresses) == 0 {
		return nil, fmt.Errorf("tokenAddresses cannot be empty")
	}
	if len(tokenAddresses) > c.maxTokensPerRequest {
		c.logger.Warn("Number of token addresses exceeds maxTokensPerRequest",
			zap.Int("requestedCount", len(tokenAddresses)),
			zap.Int("maxAllowed", c.maxTokensPerRequest))
		return nil, fmt.Errorf("number of token addresses (%d) exceeds max tokens per request (%d)", len(tokenAddresses), c.maxTokensPerRequest)
	}

	escaped := make([]string, len(tokenAddresses))
	for i, addr := range tokenAddresses {
		escaped[i] = url.PathEscape(addr)
	}
	path := fmt.Sprintf("/tokens/v1/%s/%s", url.PathEscape(dexscreenerChainID), strings.Join(escaped, ","))

	c.logger.Debug("Requesting token pairs from DEX Screener", zap.String("path", path))

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var resp entity.DEXTokenPairs
	if err := c.transport.GetJSON(ctx, c.endpoint, path, &resp); err != nil {
		c.logger.Warn("DEX Screener request failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("dexscreener %s: %w", dexscreenerChainID, err)
	}

	if len(resp.Pairs) == 0 {
		c.logger.Debug("DEXScreener returned no pairs",
			zap.String("dexscreenerChainID", dexscreenerChainID),
			zap.Int("tokenCount", len(tokenAddresses)))
	}
	return resp.Pairs, nil
}
