package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is a running position in one coin inside a portfolio.
//
// Quantity is never negative. AverageBuyPrice is only meaningful while Quantity > 0.
// RealizedProfitLoss accumulates across sells.
type Asset struct {
	ID                 int64           `json:"id"`
	PortfolioID        int64           `json:"portfolio_id"`
	CoinID             string          `json:"coin_id"`
	Quantity           decimal.Decimal `json:"quantity"`
	AverageBuyPrice    decimal.Decimal `json:"average_buy_price"`
	RealizedProfitLoss decimal.Decimal `json:"realized_profit_loss"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	// Portfolio is the loaded parent, used to resolve ownership.
	Portfolio Portfolio `json:"-"`
}

func (a Asset) OwningAccount() int64 { return a.Portfolio.OwningAccount() }
