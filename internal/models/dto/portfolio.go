package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/coinfolio-be/internal/models"
)

type PortfolioRequest struct {
	Name string `json:"name"`
}

type AssetRequest struct {
	CoinID string `json:"coin_id"`
}

// AssetResponse is an asset enriched with its derived, read-time valuation.
type AssetResponse struct {
	models.Asset
	CurrentPrice         decimal.Decimal `json:"current_price"`
	CurrentValue         decimal.Decimal `json:"current_value"`
	UnrealizedProfitLoss decimal.Decimal `json:"unrealized_profit_loss"`
	PriceAvailable       bool            `json:"price_available"`
}

// TransactionRequest is the body of a transaction post. PricePerUnit and TotalValue are
// server computed; they are decoded only so a client-supplied value can be rejected.
type TransactionRequest struct {
	Type         string           `json:"transaction_type"`
	Quantity     *decimal.Decimal `json:"quantity"`
	PricePerUnit json.RawMessage  `json:"price_per_unit,omitempty"`
	TotalValue   json.RawMessage  `json:"total_value,omitempty"`
}

// Page is a cursor-paginated result set.
type Page[T any] struct {
	Results    []T    `json:"results"`
	NextCursor string `json:"next_cursor,omitempty"`
}
