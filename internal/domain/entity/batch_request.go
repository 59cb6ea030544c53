package entity

import "math/big"

// BalanceRequestItem is a single balanceOf call of a batched token balance request.
type BalanceRequestItem struct {
	WalletAddress string
	TokenAddress  string
}

// BalanceResultItem is the outcome of one batch item. Exactly one of Balance and Error is set.
type BalanceResultItem struct {
	Request BalanceRequestItem
	Balance *big.Int
	Error   error
}
