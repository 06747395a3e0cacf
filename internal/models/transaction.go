package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a position change.
type TransactionType string

const (
	Buy  TransactionType = "BUY"
	Sell TransactionType = "SELL"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == Buy || t == Sell
}

// Transaction is an immutable record of one position change.
// PricePerUnit is captured from the price oracle at execution time.
type Transaction struct {
	ID           int64           `json:"id"`
	AssetID      int64           `json:"asset_id"`
	Type         TransactionType `json:"transaction_type"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	TotalValue   decimal.Decimal `json:"total_value"`
	CreatedAt    time.Time       `json:"created_at"`

	// Asset is the loaded parent, used to resolve ownership.
	Asset Asset `json:"-"`
}

func (t Transaction) OwningAccount() int64 { return t.Asset.OwningAccount() }
