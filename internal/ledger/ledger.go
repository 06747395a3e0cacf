// Package ledger posts BUY and SELL transactions against assets and keeps each
// asset's quantity, average buy price and realized profit/loss consistent.
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/coinfolio-be/internal/models"
)

const (
	// QuantityScale is the number of fractional digits a quantity may carry.
	QuantityScale = 8
	// QuantityDigits bounds the total significant digits of a quantity.
	QuantityDigits = 20
	// AverageScale is the rounding scale applied to a recomputed average buy price.
	AverageScale = 10

	// maxCoefficientBits bounds the unscaled value of an accepted quantity before any
	// rescaling; 160 bits covers every 48-digit coefficient.
	maxCoefficientBits = 160
)

// MaxHolding is the exclusive upper bound of an asset's quantity, the integer range
// of a NUMERIC(28,8) column.
var MaxHolding = decimal.New(1, QuantityDigits)

var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPriceUnavailable    = errors.New("price unavailable")
)

// ValidateQuantity checks that q is positive and fits the stored precision.
func ValidateQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidArgument)
	}
	// Exponent and coefficient come straight from the input, so reject outliers
	// before Truncate or String can materialise them.
	if exp := q.Exponent(); exp > QuantityDigits || exp < -(QuantityScale+QuantityDigits) ||
		q.Coefficient().BitLen() > maxCoefficientBits {
		return fmt.Errorf("%w: quantity supports at most %d digits", ErrInvalidArgument, QuantityDigits)
	}
	if -q.Exponent() > QuantityScale && !q.Equal(q.Truncate(QuantityScale)) {
		return fmt.Errorf("%w: quantity supports at most %d decimal places", ErrInvalidArgument, QuantityScale)
	}
	if digits(q) > QuantityDigits {
		return fmt.Errorf("%w: quantity supports at most %d digits", ErrInvalidArgument, QuantityDigits)
	}
	return nil
}

// digits counts significant integer and fractional digits of a positive decimal.
func digits(q decimal.Decimal) int {
	s := q.Truncate(QuantityScale).String()
	n := 0
	leading := true
	for _, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		if leading && r == '0' {
			continue
		}
		leading = false
		n++
	}
	return n
}

// Apply is the pure accounting step of a post. It returns the updated asset and the
// draft transaction; asset is not modified.
//
// A BUY blends price into the average weighted by quantity. A SELL realizes
// (price - average) * quantity and leaves the average as it was.
func Apply(asset models.Asset, txType models.TransactionType, quantity, price decimal.Decimal) (models.Asset, models.Transaction, error) {
	if !txType.Valid() {
		return asset, models.Transaction{}, fmt.Errorf("%w: transaction type must be BUY or SELL", ErrInvalidArgument)
	}
	if err := ValidateQuantity(quantity); err != nil {
		return asset, models.Transaction{}, err
	}
	if !price.IsPositive() {
		return asset, models.Transaction{}, fmt.Errorf("%w: non-positive price %s", ErrPriceUnavailable, price)
	}

	next := asset
	switch txType {
	case models.Buy:
		newQty := asset.Quantity.Add(quantity)
		if newQty.GreaterThanOrEqual(MaxHolding) {
			return asset, models.Transaction{}, fmt.Errorf("%w: holding would exceed %d integer digits", ErrInvalidArgument, QuantityDigits)
		}
		if newQty.IsPositive() {
			cost := asset.AverageBuyPrice.Mul(asset.Quantity).Add(price.Mul(quantity))
			next.AverageBuyPrice = cost.DivRound(newQty, AverageScale)
		}
		next.Quantity = newQty
	case models.Sell:
		if quantity.GreaterThan(asset.Quantity) {
			return asset, models.Transaction{}, fmt.Errorf("%w: cannot sell %s, holding %s", ErrInsufficientBalance, quantity, asset.Quantity)
		}
		gain := price.Sub(asset.AverageBuyPrice).Mul(quantity)
		next.RealizedProfitLoss = asset.RealizedProfitLoss.Add(gain)
		next.Quantity = asset.Quantity.Sub(quantity)
	}

	tx := models.Transaction{
		AssetID:      asset.ID,
		Type:         txType,
		Quantity:     quantity,
		PricePerUnit: price,
		TotalValue:   price.Mul(quantity),
		Asset:        next,
	}
	return next, tx, nil
}
