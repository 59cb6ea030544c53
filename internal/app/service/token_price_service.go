package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/client"
	"portfolio_tracker/internal/domain/entity"
	dex_types "portfolio_tracker/internal/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
	"portfolio_tracker/internal/infrastructure/metrics"
	"portfolio_tracker/internal/pkg/utils"
)

const (
	stablecoinUSDCSymbol = "USDC"
	stablecoinUSDTSymbol = "USDT"
	stablecoinDAISymbol  = "DAI"
)

var stablecoinSymbols = map[string]struct{}{
	stablecoinUSDCSymbol: {},
	stablecoinUSDTSymbol: {},
	stablecoinDAISymbol:  {},
}

var oneUSD = decimal.NewFromInt(1)

// TokenPriceServiceImpl implements port.PriceLookup on top of DEXScreener.
// It keeps no cache between calls; the engine prices every pass afresh.
type TokenPriceServiceImpl struct {
	dexscreenerClient client.DEXScreenerClient
	logger            port.Logger
	metrics           *metrics.Metrics
	batchSize         int
	concurrency       int
	// stable[chainID][lowercased address] is priced at 1 USD without a request
	stable map[string]map[string]struct{}
}

// NewTokenPriceService creates a new instance of TokenPriceServiceImpl. m may be nil.
func NewTokenPriceService(dsc client.DEXScreenerClient, l port.Logger, cfg configloader.PriceConfig, m *metrics.Metrics) *TokenPriceServiceImpl {
	s := &TokenPriceServiceImpl{
		dexscreenerClient: dsc,
		logger:            l,
		metrics:           m,
		batchSize:         cfg.MaxTokensPerRequest,
		concurrency:       cfg.MaxConcurrency,
		stable:            make(map[string]map[string]struct{}),
	}
	if s.batchSize <= 0 {
		s.batchSize = 30
	}
	if s.concurrency <= 0 {
		s.concurrency = 4
	}
	for chainID, addrs := range cfg.StableTokens {
		set := make(map[string]struct{}, len(addrs))
		for _, a := range addrs {
			set[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
		}
		s.stable[chainID] = set
	}
	return s
}

var _ port.PriceLookup = (*TokenPriceServiceImpl)(nil)

func (s *TokenPriceServiceImpl) isStable(chainID, tokenAddress string) bool {
	_, ok := s.stable[chainID][strings.ToLower(tokenAddress)]
	return ok
}

// GetPrice implements port.PriceLookup.
func (s *TokenPriceServiceImpl) GetPrice(ctx context.Context, chainID, tokenAddress string) (decimal.Decimal, error) {
	prices, err := s.GetPrices(ctx, chainID, []string{tokenAddress})
	if err != nil {
		return decimal.Zero, err
	}
	price, ok := prices[tokenAddress]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s on %s: %w", tokenAddress, chainID, entity.ErrPriceUnavailable)
	}
	return price, nil
}

// GetPrices prices tokenAddresses in batches of at most batchSize, fetched concurrently.
// A failed batch only leaves its tokens out of the result; the error is returned only
// when ctx is done.
func (s *TokenPriceServiceImpl) GetPrices(ctx context.Context, chainID string, tokenAddresses []string) (map[string]decimal.Decimal, error) {
	result := make(map[string]decimal.Decimal, len(tokenAddresses))
	var mu sync.Mutex

	var toFetch []string
	seen := make(map[string]struct{}, len(tokenAddresses))
	stableCount := 0
	for _, addr := range tokenAddresses {
		if _, dup := seen[addr]; dup || addr == "" {
			continue
		}
		seen[addr] = struct{}{}
		if s.isStable(chainID, addr) {
			result[addr] = oneUSD
			stableCount++
			continue
		}
		toFetch = append(toFetch, addr)
	}
	s.metrics.CountPrice("stable", stableCount)

	if len(toFetch) == 0 {
		return result, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, batch := range utils.BatchStrings(toFetch, s.batchSize) {
		batch := batch
		g.Go(func() error {
			pairs, err := s.dexscreenerClient.GetTokenPairsByAddresses(gctx, chainID, batch)
			if err != nil {
				s.logger.Warn("Failed to get token pairs from DEXScreener",
					"dexScreenerID", chainID,
					"token_addresses_count", len(batch),
					"error", err)
				s.metrics.CountPrice("error", len(batch))
				return nil
			}

			found := 0
			for _, addr := range batch {
				pair := s.selectBestPriceFromPairs(pairs, addr)
				if pair == nil {
					continue
				}
				price, err := decimal.NewFromString(pair.PriceUsd)
				if err != nil || !price.IsPositive() {
					s.logger.Warn("Failed to parse token price from DEXScreener",
						"dexScreenerID", chainID,
						"tokenAddress", addr,
						"price_string", pair.PriceUsd)
					continue
				}
				mu.Lock()
				result[addr] = price
				mu.Unlock()
				found++
			}
			s.metrics.CountPrice("found", found)
			s.metrics.CountPrice("missing", len(batch)-found)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// LookupSymbol returns the base token symbol of the best listed pair.
func (s *TokenPriceServiceImpl) LookupSymbol(ctx context.Context, chainID, tokenAddress string) (string, error) {
	pairs, err := s.dexscreenerClient.GetTokenPairsByAddresses(ctx, chainID, []string{tokenAddress})
	if err != nil {
		return "", err
	}
	pair := s.selectBestPriceFromPairs(pairs, tokenAddress)
	if pair == nil || strings.TrimSpace(pair.BaseToken.Symbol) == "" {
		return "", fmt.Errorf("no listing for %s on %s: %w", tokenAddress, chainID, entity.ErrPriceUnavailable)
	}
	return strings.TrimSpace(pair.BaseToken.Symbol), nil
}

// selectBestPriceFromPairs prefers the most liquid pair quoted in a stablecoin,
// then the most liquid pair overall.
func (s *TokenPriceServiceImpl) selectBestPriceFromPairs(pairs []dex_types.PairData, baseTokenAddress string) *dex_types.PairData {
	if len(pairs) == 0 {
		return nil
	}

	var bestOverallPair *dex_types.PairData
	var bestStablecoinPair *dex_types.PairData

	for i := range pairs {
		pair := &pairs[i]
		if !strings.EqualFold(pair.BaseToken.Address, baseTokenAddress) {
			continue
		}
		if pair.PriceUsd == "" || pair.PriceUsd == "0" {
			continue
		}

		_, isStablecoin := stablecoinSymbols[strings.ToUpper(pair.QuoteToken.Symbol)]

		if isStablecoin {
			if bestStablecoinPair == nil || pair.LiquidityUSD() > bestStablecoinPair.LiquidityUSD() {
				bestStablecoinPair = pair
			}
		}
		if bestOverallPair == nil || pair.LiquidityUSD() > bestOverallPair.LiquidityUSD() {
			bestOverallPair = pair
		}
	}

	if bestStablecoinPair != nil {
		s.logger.Debug("Selected best price from stablecoin pair",
			"baseTokenAddress", baseTokenAddress,
			"pairAddress", bestStablecoinPair.PairAddress,
			"priceUsd", bestStablecoinPair.PriceUsd,
			"liquidityUsd", utils.SafeDeref(bestStablecoinPair.Liquidity, dex_types.DEXLiquidity{}).Usd,
			"quoteToken", bestStablecoinPair.QuoteToken.Symbol)
		return bestStablecoinPair
	}

	if bestOverallPair != nil {
		s.logger.Debug("Selected best price from overall highest liquidity pair",
			"baseTokenAddress", baseTokenAddress,
			"pairAddress", bestOverallPair.PairAddress,
			"priceUsd", bestOverallPair.PriceUsd,
			"liquidityUsd", utils.SafeDeref(bestOverallPair.Liquidity, dex_types.DEXLiquidity{}).Usd,
			"quoteToken", bestOverallPair.QuoteToken.Symbol)
		return bestOverallPair
	}

	s.logger.Debug("No suitable price found from pairs",
		"baseTokenAddress", baseTokenAddress,
		"evaluatedPairCount", len(pairs))
	return nil
}
