package session

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
	"portfolio_tracker/internal/infrastructure/console"
	"portfolio_tracker/internal/infrastructure/network/client"
	networkdefinition "portfolio_tracker/internal/infrastructure/network/definition"
	"portfolio_tracker/internal/infrastructure/store"
	"portfolio_tracker/internal/infrastructure/tokenloader"
	"portfolio_tracker/internal/infrastructure/walletloader"
	"portfolio_tracker/internal/pkg/logger"
)

const (
	burnAddr = "0x000000000000000000000000000000000000dEaD"
	usdcAddr = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	solOwner = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	bonkMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	anonMint = "7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs"

	tonWalletBounceable    = "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N"
	tonWalletNonBounceable = "UQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqEBI"
	tonWalletRaw           = "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"
)

// fakeAdapter lowercases EVM hex and keeps base58 as is.
type fakeAdapter struct {
	family      entity.ChainFamily
	resolve     map[string]entity.TokenRef
	discovered  []entity.TokenRef
	discoverErr error
}

func (f *fakeAdapter) Family() entity.ChainFamily { return f.family }

func (f *fakeAdapter) GetNativeBalance(context.Context, entity.Endpoint, string) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeAdapter) GetTokenBalances(context.Context, entity.Endpoint, string, []entity.Token) (entity.TokenBalances, error) {
	return entity.NewTokenBalances(), nil
}

func (f *fakeAdapter) DiscoverTokens(context.Context, entity.Endpoint, string) ([]entity.TokenRef, error) {
	return f.discovered, f.discoverErr
}

func (f *fakeAdapter) ResolveToken(_ context.Context, _ entity.Endpoint, addr string) (entity.TokenRef, error) {
	ref, ok := f.resolve[addr]
	if !ok {
		return entity.TokenRef{}, &entity.ChainError{Method: "resolve", Err: fmt.Errorf("no such token")}
	}
	ref.Address = addr
	return ref, nil
}

func (f *fakeAdapter) ValidateAddress(a string) bool {
	_, err := f.NormalizeAddress(a)
	return err == nil
}

func (f *fakeAdapter) ValidateTokenAddress(a string) bool { return f.ValidateAddress(a) }

func (f *fakeAdapter) NormalizeAddress(a string) (string, error) {
	if f.family == entity.FamilyEVM {
		if !strings.HasPrefix(a, "0x") || len(a) != 42 {
			return "", &entity.ValidationError{Field: "address", Value: a, Reason: "bad hex"}
		}
		return strings.ToLower(a), nil
	}
	if len(a) < 32 || len(a) > 44 {
		return "", &entity.ValidationError{Field: "address", Value: a, Reason: "bad base58"}
	}
	return a, nil
}

func (f *fakeAdapter) NormalizeTokenAddress(a string) (string, error) { return f.NormalizeAddress(a) }

type fakePrices struct {
	symbols map[string]string
}

func (f *fakePrices) GetPrice(context.Context, string, string) (decimal.Decimal, error) {
	return decimal.Zero, entity.ErrPriceUnavailable
}

func (f *fakePrices) GetPrices(context.Context, string, []string) (map[string]decimal.Decimal, error) {
	return map[string]decimal.Decimal{}, nil
}

func (f *fakePrices) LookupSymbol(_ context.Context, _ string, addr string) (string, error) {
	if sym, ok := f.symbols[addr]; ok {
		return sym, nil
	}
	return "", entity.ErrPriceUnavailable
}

type fakeEngine struct {
	snap  entity.PortfolioSnapshot
	calls int
	seen  *entity.State
}

func (f *fakeEngine) Aggregate(_ context.Context, st *entity.State) entity.PortfolioSnapshot {
	f.calls++
	f.seen = st
	return f.snap
}

type fixture struct {
	session *Session
	out     *bytes.Buffer
	store   *store.FileStore
	engine  *fakeEngine
	evm     *fakeAdapter
	sol     *fakeAdapter
	path    string
}

// newFixture builds a session whose console reads input line by line; passwords come from the same stream.
func newFixture(t *testing.T, path, input string) *fixture {
	t.Helper()
	if path == "" {
		path = filepath.Join(t.TempDir(), configloader.DataFileName)
	}
	out := &bytes.Buffer{}
	con := console.NewStream(strings.NewReader(input), out, "> ")
	log := logger.NewSlogAdapter()
	fs := store.New(configloader.StoreConfig{ScryptN: keystore.LightScryptN, ScryptP: keystore.LightScryptP}, log)

	f := &fixture{
		out:    out,
		store:  fs,
		engine: &fakeEngine{},
		evm:    &fakeAdapter{family: entity.FamilyEVM, discoverErr: entity.ErrUnsupported, resolve: map[string]entity.TokenRef{}},
		sol:    &fakeAdapter{family: entity.FamilySolana, resolve: map[string]entity.TokenRef{}},
		path:   path,
	}
	f.session = New(Deps{
		Console:   con,
		Store:     fs,
		Engine:    f.engine,
		Adapters:  client.NewRegistry(f.evm, f.sol, client.NewTONClient(nil, log)),
		Prices:    &fakePrices{symbols: map[string]string{strings.ToLower(usdcAddr): "USDC"}},
		Passwords: console.NewPasswordSource("", con),
		Tokens:    tokenloader.NewTokenLoader(nil, nil),
		Accounts:  walletloader.NewAccountFileLoader(nil),
		Logger:    log,
		Catalog:   networkdefinition.DefaultChains(),
		Config:    configloader.SessionConfig{Prompt: "> ", MinDisplayValue: 0.1},
		Path:      path,
	})
	return f
}

func (f *fixture) exec(t *testing.T, line string) error {
	t.Helper()
	_, err := f.session.Execute(context.Background(), line)
	return err
}
