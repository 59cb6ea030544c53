package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
	"portfolio_tracker/internal/infrastructure/metrics"
	"portfolio_tracker/internal/pkg/utils"
)

// pairTask is one (chain, account) pair of a pass. Goroutines write only into their own task.
type pairTask struct {
	chain   entity.Chain
	account entity.Account
	adapter port.ChainAdapter
	tokens  []entity.Token

	adapterErr error
	native     *big.Int
	nativeErr  error
	balances   entity.TokenBalances
	tokensErr  error
	tokensDone bool
}

// priceKey identifies a price listing: DEXScreener chain id and token address.
type priceKey struct {
	chainID string
	address string
}

// PortfolioServiceImpl implements port.Aggregator and port.SnapshotSource.
type PortfolioServiceImpl struct {
	adapters              port.AdapterRegistry
	prices                port.PriceLookup
	logger                port.Logger
	metrics               *metrics.Metrics
	maxConcurrentRoutines int
	excludeDiscovered     bool
	includeZeroBalances   bool

	mu   sync.RWMutex
	last *entity.PortfolioSnapshot
}

// NewPortfolioService creates a new instance of PortfolioServiceImpl. m may be nil.
func NewPortfolioService(
	adapters port.AdapterRegistry,
	prices port.PriceLookup,
	l port.Logger,
	cfg configloader.EngineConfig,
	m *metrics.Metrics,
) *PortfolioServiceImpl {
	maxRoutines := cfg.MaxConcurrency
	if maxRoutines <= 0 {
		maxRoutines = 1
	}
	return &PortfolioServiceImpl{
		adapters:              adapters,
		prices:                prices,
		logger:                l,
		metrics:               m,
		maxConcurrentRoutines: maxRoutines,
		excludeDiscovered:     cfg.ExcludeDiscovered,
		includeZeroBalances:   cfg.IncludeZeroBalances,
	}
}

var (
	_ port.Aggregator     = (*PortfolioServiceImpl)(nil)
	_ port.SnapshotSource = (*PortfolioServiceImpl)(nil)
)

// Aggregate runs one pass: balances for every enabled chain and applicable account,
// then prices for every distinct listing, then valuation. Failures of single calls
// end up in the snapshot's Errors and never abort the pass. state is not modified.
func (s *PortfolioServiceImpl) Aggregate(ctx context.Context, state *entity.State) entity.PortfolioSnapshot {
	started := time.Now()
	st := state.Clone()

	tasks := s.buildTasks(st)
	s.logger.Debug("Starting aggregation", "pairs", len(tasks), "maxConcurrency", s.maxConcurrentRoutines)

	s.fetchBalances(ctx, tasks)
	prices := s.fetchPrices(ctx, s.priceKeys(tasks))

	snapshot := entity.PortfolioSnapshot{
		ID:       uuid.New(),
		TakenAt:  time.Now().UTC(),
		Holdings: []entity.Holding{},
		Errors:   []entity.EntryError{},
		Total:    decimal.Zero,
	}
	for _, task := range tasks {
		s.collect(&snapshot, task, prices)
	}

	s.metrics.ObserveAggregation(time.Since(started), len(snapshot.Holdings), len(snapshot.Errors))
	s.logger.Info("Aggregation finished",
		"holdings", len(snapshot.Holdings),
		"errors", len(snapshot.Errors),
		"unpriced", snapshot.Unpriced,
		"totalUsd", snapshot.Total.StringFixed(2),
		"took", time.Since(started).String())

	s.mu.Lock()
	stored := snapshot
	s.last = &stored
	s.mu.Unlock()
	return snapshot
}

// LastSnapshot implements port.SnapshotSource.
func (s *PortfolioServiceImpl) LastSnapshot() (entity.PortfolioSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return entity.PortfolioSnapshot{}, false
	}
	return *s.last, true
}

func (s *PortfolioServiceImpl) buildTasks(st *entity.State) []*pairTask {
	var tasks []*pairTask
	for _, chain := range st.EnabledChains() {
		accounts := st.AccountsFor(chain)
		if len(accounts) == 0 {
			continue
		}
		adapter, adapterErr := s.adapters.For(chain.Family)
		tokens := st.TokensForChain(chain.ID)
		for _, account := range accounts {
			tasks = append(tasks, &pairTask{
				chain:      chain,
				account:    account,
				adapter:    adapter,
				adapterErr: adapterErr,
				tokens:     tokens,
			})
		}
	}
	return tasks
}

// fetchBalances issues the native and token calls of every pair and waits for all of them.
func (s *PortfolioServiceImpl) fetchBalances(ctx context.Context, tasks []*pairTask) {
	var g errgroup.Group
	g.SetLimit(s.maxConcurrentRoutines)

	for _, task := range tasks {
		task := task
		if task.adapterErr != nil {
			continue
		}
		ep := task.chain.Endpoint()
		address := task.account.Address

		g.Go(func() error {
			task.native, task.nativeErr = task.adapter.GetNativeBalance(ctx, ep, address)
			return nil
		})
		if len(task.tokens) == 0 && s.excludeDiscovered {
			continue
		}
		g.Go(func() error {
			task.balances, task.tokensErr = task.adapter.GetTokenBalances(ctx, ep, address, task.tokens)
			task.tokensDone = true
			return nil
		})
	}
	_ = g.Wait()
}

func (s *PortfolioServiceImpl) includeAmount(amount *big.Int) bool {
	return amount != nil && (s.includeZeroBalances || amount.Sign() != 0)
}

// priceKeys lists the distinct listings needed to value the pass.
func (s *PortfolioServiceImpl) priceKeys(tasks []*pairTask) map[string][]string {
	seen := make(map[priceKey]struct{})
	byChain := make(map[string][]string)
	add := func(chainID, address string) {
		if chainID == "" || address == "" {
			return
		}
		k := priceKey{chainID: chainID, address: address}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		byChain[chainID] = append(byChain[chainID], address)
	}

	for _, task := range tasks {
		if task.nativeErr == nil && s.includeAmount(task.native) {
			add(task.chain.Native.PriceChainID, task.chain.Native.PriceAddress)
		}
		if !task.tokensDone || task.tokensErr != nil {
			continue
		}
		for _, token := range task.tokens {
			if s.includeAmount(task.balances.Amounts[token.Address]) {
				add(task.chain.DEXScreenerID, token.Address)
			}
		}
		if s.excludeDiscovered {
			continue
		}
		for _, extra := range task.balances.Extra {
			if s.includeAmount(extra.Amount) {
				add(task.chain.DEXScreenerID, extra.Token.Address)
			}
		}
	}
	return byChain
}

// fetchPrices resolves every listing once, one price chain per goroutine.
func (s *PortfolioServiceImpl) fetchPrices(ctx context.Context, byChain map[string][]string) map[priceKey]decimal.Decimal {
	out := make(map[priceKey]decimal.Decimal)
	if len(byChain) == 0 {
		return out
	}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.maxConcurrentRoutines)

	for chainID, addresses := range byChain {
		chainID, addresses := chainID, addresses
		g.Go(func() error {
			prices, err := s.prices.GetPrices(ctx, chainID, addresses)
			if err != nil {
				s.logger.Warn("Price lookup incomplete", "dexScreenerID", chainID, "error", err)
			}
			mu.Lock()
			defer mu.Unlock()
			for addr, price := range prices {
				out[priceKey{chainID: chainID, address: addr}] = price
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// collect appends the holdings and errors of one pair in display order:
// native, tracked tokens in state order, discovered tokens by address.
func (s *PortfolioServiceImpl) collect(snap *entity.PortfolioSnapshot, task *pairTask, prices map[priceKey]decimal.Decimal) {
	chainID := task.chain.ID
	account := task.account.Address

	if task.adapterErr != nil {
		snap.Errors = append(snap.Errors, entity.NewEntryError(chainID, account, entity.EntryNative, "", task.adapterErr))
		return
	}

	if task.nativeErr != nil {
		snap.Errors = append(snap.Errors, entity.NewEntryError(chainID, account, entity.EntryNative, "", wrapChainErr(chainID, task.nativeErr)))
	} else if s.includeAmount(task.native) {
		h := s.holding(task, true, "", task.chain.Native.Symbol, task.chain.Native.Decimals, task.native, false)
		s.value(snap, &h, prices, priceKey{chainID: task.chain.Native.PriceChainID, address: task.chain.Native.PriceAddress})
	}

	if !task.tokensDone {
		return
	}
	if task.tokensErr != nil {
		snap.Errors = append(snap.Errors, entity.NewEntryError(chainID, account, entity.EntryTokens, "", wrapChainErr(chainID, task.tokensErr)))
		return
	}

	for _, token := range task.tokens {
		if err, failed := task.balances.Failed[token.Address]; failed {
			snap.Errors = append(snap.Errors, entity.NewEntryError(chainID, account, entity.EntryToken, token.Address, wrapChainErr(chainID, err)))
			continue
		}
		amount, ok := task.balances.Amounts[token.Address]
		if !ok || !s.includeAmount(amount) {
			continue
		}
		h := s.holding(task, false, token.Address, token.Symbol, token.Decimals, amount, token.Discovered)
		s.value(snap, &h, prices, priceKey{chainID: task.chain.DEXScreenerID, address: token.Address})
	}

	if s.excludeDiscovered {
		return
	}
	extras := append([]entity.DiscoveredBalance(nil), task.balances.Extra...)
	sort.Slice(extras, func(i, j int) bool { return extras[i].Token.Address < extras[j].Token.Address })
	for _, extra := range extras {
		if !s.includeAmount(extra.Amount) {
			continue
		}
		symbol := extra.Token.Symbol
		if symbol == "" {
			symbol = utils.ShortAddress(extra.Token.Address)
		}
		h := s.holding(task, false, extra.Token.Address, symbol, extra.Token.Decimals, extra.Amount, true)
		s.value(snap, &h, prices, priceKey{chainID: task.chain.DEXScreenerID, address: extra.Token.Address})
	}
}

func (s *PortfolioServiceImpl) holding(task *pairTask, native bool, tokenAddress, symbol string, decimals uint8, amount *big.Int, discovered bool) entity.Holding {
	return entity.Holding{
		ChainID:      task.chain.ID,
		ChainName:    task.chain.Name,
		Account:      task.account.Address,
		AccountAlias: task.account.Alias,
		Native:       native,
		TokenAddress: tokenAddress,
		Symbol:       symbol,
		Decimals:     decimals,
		Amount:       new(big.Int).Set(amount),
		Discovered:   discovered,
	}
}

// value prices h, appends it and keeps the totals. The amount is scaled exactly before the multiplication.
func (s *PortfolioServiceImpl) value(snap *entity.PortfolioSnapshot, h *entity.Holding, prices map[priceKey]decimal.Decimal, key priceKey) {
	price, ok := prices[key]
	if ok {
		value := decimal.NewFromBigInt(h.Amount, -int32(h.Decimals)).Mul(price)
		h.Price = &price
		h.Value = &value
		snap.Total = snap.Total.Add(value)
	} else {
		snap.Unpriced++
		err := fmt.Errorf("%s: %w", h.Symbol, entity.ErrPriceUnavailable)
		snap.Errors = append(snap.Errors, entity.NewEntryError(h.ChainID, h.Account, entity.EntryPrice, h.TokenAddress, err))
	}
	snap.Holdings = append(snap.Holdings, *h)
}

func wrapChainErr(chainID string, err error) error {
	var ce *entity.ChainError
	if errors.As(err, &ce) && ce.ChainID == "" {
		tagged := *ce
		tagged.ChainID = chainID
		return &tagged
	}
	return err
}
