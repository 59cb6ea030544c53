package entity

import (
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/pkg/utils"
)

// Holding is one (account, asset) balance produced by an aggregation pass. It is never persisted.
type Holding struct {
	ChainID      string           `json:"chainId"`
	ChainName    string           `json:"chainName"`
	Account      string           `json:"account"`
	AccountAlias string           `json:"accountAlias,omitempty"`
	Native       bool             `json:"native"`
	TokenAddress string           `json:"tokenAddress,omitempty"`
	Symbol       string           `json:"symbol"`
	Decimals     uint8            `json:"decimals"`
	Amount       *big.Int         `json:"amount"`
	Price        *decimal.Decimal `json:"priceUsd"`
	Value        *decimal.Decimal `json:"valueUsd"`
	Discovered   bool             `json:"discovered,omitempty"`
}

// FormattedAmount renders the raw amount with its decimals applied.
func (h Holding) FormattedAmount() string {
	s, err := utils.FormatBigInt(h.Amount, h.Decimals)
	if err != nil {
		return h.Amount.String()
	}
	return s
}

// Priced reports whether the holding has a valuation.
func (h Holding) Priced() bool { return h.Value != nil }

// EntryKind tells which call produced an EntryError.
type EntryKind string

const (
	EntryNative EntryKind = "native"
	EntryTokens EntryKind = "tokens"
	EntryToken  EntryKind = "token"
	EntryPrice  EntryKind = "price"
)

// EntryError is a failure isolated to one entry of the snapshot.
type EntryError struct {
	ChainID      string    `json:"chainId"`
	Account      string    `json:"account"`
	Kind         EntryKind `json:"kind"`
	TokenAddress string    `json:"tokenAddress,omitempty"`
	Err          error     `json:"-"`
	Message      string    `json:"message"`
}

func (e EntryError) Error() string { return e.Message }

func (e EntryError) Unwrap() error { return e.Err }

// NewEntryError fills Message from err so the entry survives JSON encoding.
func NewEntryError(chainID, account string, kind EntryKind, token string, err error) EntryError {
	return EntryError{ChainID: chainID, Account: account, Kind: kind, TokenAddress: token, Err: err, Message: err.Error()}
}

// PortfolioSnapshot is the result of one aggregation pass.
type PortfolioSnapshot struct {
	ID       uuid.UUID       `json:"id"`
	TakenAt  time.Time       `json:"takenAt"`
	Holdings []Holding       `json:"holdings"`
	Errors   []EntryError    `json:"errors"`
	Total    decimal.Decimal `json:"totalUsd"`
	// Unpriced counts holdings left out of Total, which then is a lower bound.
	Unpriced int `json:"unpriced"`
}
