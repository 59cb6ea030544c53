package client

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/codec"
)

// ERC20 ABI minimal part: balanceOf, decimals, symbol
const erc20ABI = `[
{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"payable":false,"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"}
]`

var (
	parsedERC20ABI  abi.ABI
	parsedERC20Once sync.Once
)

func initParsedERC20ABI() {
	parsedERC20Once.Do(func() {
		var err error
		parsedERC20ABI, err = abi.JSON(strings.NewReader(erc20ABI))
		if err != nil {
			// This is a critical error during initialization, panic is appropriate
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
	})
}

// EVMClient implements port.ChainAdapter for EVM-compatible chains.
type EVMClient struct {
	transport port.Transport
	logger    port.Logger
}

// NewEVMClient creates the EVM adapter.
func NewEVMClient(t port.Transport, logger port.Logger) *EVMClient {
	initParsedERC20ABI()
	return &EVMClient{transport: t, logger: logger}
}

var _ port.ChainAdapter = (*EVMClient)(nil)

// Family implements port.ChainAdapter.
func (c *EVMClient) Family() entity.ChainFamily { return entity.FamilyEVM }

// GetNativeBalance implements port.ChainAdapter.
func (c *EVMClient) GetNativeBalance(ctx context.Context, ep entity.Endpoint, address string) (*big.Int, error) {
	var balance hexutil.Big
	if err := c.transport.CallJSONRPC(ctx, ep, &balance, "eth_getBalance", common.HexToAddress(address), "latest"); err != nil {
		return nil, &entity.ChainError{Method: "eth_getBalance", Err: err}
	}
	return balance.ToInt(), nil
}

// GetTokenBalances fetches every token balance in one JSON-RPC batch of balanceOf calls.
func (c *EVMClient) GetTokenBalances(ctx context.Context, ep entity.Endpoint, address string, tokens []entity.Token) (entity.TokenBalances, error) {
	out := entity.NewTokenBalances()
	if len(tokens) == 0 {
		return out, nil
	}

	callData, err := parsedERC20ABI.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return out, &entity.ChainError{Method: "balanceOf", Err: err}
	}

	requests := make([]entity.BalanceRequestItem, len(tokens))
	calls := make([]port.RPCCall, len(tokens))
	for i, token := range tokens {
		requests[i] = entity.BalanceRequestItem{
			WalletAddress: address,
			TokenAddress:  token.Address,
		}
		calls[i] = port.RPCCall{
			Method: "eth_call",
			Params: []any{ethCallArgs(token.Address, callData), "latest"},
			Result: new(hexutil.Bytes),
		}
	}

	if err := c.transport.BatchJSONRPC(ctx, ep, calls); err != nil {
		return out, &entity.ChainError{Method: "eth_call batch", Err: err}
	}

	for i, call := range calls {
		res := c.decodeBalance(requests[i], call)
		if res.Error != nil {
			out.Failed[res.Request.TokenAddress] = res.Error
			c.logger.Debug("Token balance failed", "token", res.Request.TokenAddress, "wallet", address, "error", res.Error)
			continue
		}
		out.Amounts[res.Request.TokenAddress] = res.Balance
	}
	return out, nil
}

func (c *EVMClient) decodeBalance(req entity.BalanceRequestItem, call port.RPCCall) entity.BalanceResultItem {
	res := entity.BalanceResultItem{Request: req}
	if call.Error != nil {
		res.Error = &entity.ChainError{Method: "balanceOf", Err: call.Error}
		return res
	}
	raw, ok := call.Result.(*hexutil.Bytes)
	if !ok || raw == nil {
		res.Error = &entity.ChainError{Method: "balanceOf", Err: fmt.Errorf("unexpected result type %T", call.Result)}
		return res
	}
	// пустой ответ: по адресу нет контракта
	if len(*raw) == 0 {
		res.Balance = big.NewInt(0)
		return res
	}
	unpacked, err := parsedERC20ABI.Unpack("balanceOf", *raw)
	if err != nil || len(unpacked) == 0 {
		res.Error = &entity.ChainError{Method: "balanceOf", Err: fmt.Errorf("failed to unpack result %s: %v", hexutil.Encode(*raw), err)}
		return res
	}
	balance, ok := unpacked[0].(*big.Int)
	if !ok {
		res.Error = &entity.ChainError{Method: "balanceOf", Err: fmt.Errorf("unexpected unpacked type %T", unpacked[0])}
		return res
	}
	res.Balance = balance
	return res
}

// DiscoverTokens implements port.ChainAdapter. EVM chains have no token enumeration without an indexer.
func (c *EVMClient) DiscoverTokens(context.Context, entity.Endpoint, string) ([]entity.TokenRef, error) {
	return nil, entity.ErrUnsupported
}

// ResolveToken reads decimals() and symbol() of an ERC-20 contract in one batch.
func (c *EVMClient) ResolveToken(ctx context.Context, ep entity.Endpoint, tokenAddress string) (entity.TokenRef, error) {
	decimalsData, _ := parsedERC20ABI.Pack("decimals")
	symbolData, _ := parsedERC20ABI.Pack("symbol")

	calls := []port.RPCCall{
		{Method: "eth_call", Params: []any{ethCallArgs(tokenAddress, decimalsData), "latest"}, Result: new(hexutil.Bytes)},
		{Method: "eth_call", Params: []any{ethCallArgs(tokenAddress, symbolData), "latest"}, Result: new(hexutil.Bytes)},
	}
	if err := c.transport.BatchJSONRPC(ctx, ep, calls); err != nil {
		return entity.TokenRef{}, &entity.ChainError{Method: "eth_call batch", Err: err}
	}
	if calls[0].Error != nil {
		return entity.TokenRef{}, &entity.ChainError{Method: "decimals", Err: calls[0].Error}
	}
	decRaw := *calls[0].Result.(*hexutil.Bytes)
	if len(decRaw) == 0 {
		return entity.TokenRef{}, &entity.ChainError{Method: "decimals", Err: fmt.Errorf("no contract at %s", tokenAddress)}
	}
	unpacked, err := parsedERC20ABI.Unpack("decimals", decRaw)
	if err != nil || len(unpacked) == 0 {
		return entity.TokenRef{}, &entity.ChainError{Method: "decimals", Err: fmt.Errorf("failed to unpack %s: %v", hexutil.Encode(decRaw), err)}
	}
	decimals, ok := unpacked[0].(uint8)
	if !ok {
		return entity.TokenRef{}, &entity.ChainError{Method: "decimals", Err: fmt.Errorf("unexpected type %T", unpacked[0])}
	}

	ref := entity.TokenRef{Address: tokenAddress, Decimals: decimals}
	if calls[1].Error == nil {
		ref.Symbol = decodeSymbol(*calls[1].Result.(*hexutil.Bytes))
	}
	return ref, nil
}

// decodeSymbol handles the ABI string form and the legacy bytes32 form (e.g. MKR).
func decodeSymbol(raw []byte) string {
	if unpacked, err := parsedERC20ABI.Unpack("symbol", raw); err == nil && len(unpacked) > 0 {
		if s, ok := unpacked[0].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	if len(raw) == 32 {
		return strings.TrimSpace(string(bytes.TrimRight(raw, "\x00")))
	}
	return ""
}

func ethCallArgs(to string, data []byte) map[string]any {
	return map[string]any{
		"to":   common.HexToAddress(to),
		"data": hexutil.Bytes(data),
	}
}

// ValidateAddress implements port.ChainAdapter.
func (c *EVMClient) ValidateAddress(address string) bool {
	return codec.ValidateEVMAddress(address)
}

// ValidateTokenAddress implements port.ChainAdapter.
func (c *EVMClient) ValidateTokenAddress(address string) bool {
	return codec.ValidateEVMAddress(address)
}

// NormalizeAddress returns the EIP-55 form.
func (c *EVMClient) NormalizeAddress(address string) (string, error) {
	normalized, err := codec.ChecksumEVMAddress(address)
	if err != nil {
		return "", &entity.ValidationError{Field: "address", Value: address, Reason: "not a 20-byte hex address with valid checksum"}
	}
	return normalized, nil
}

// NormalizeTokenAddress returns the EIP-55 form.
func (c *EVMClient) NormalizeTokenAddress(address string) (string, error) {
	return c.NormalizeAddress(address)
}
