package ledger

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/coinfolio-be/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestApplyBuySequenceAverages(t *testing.T) {
	legs := []struct{ qty, price string }{
		{"0.5", "30000"},
		{"1.25", "42000.5"},
		{"0.00000001", "65000"},
		{"3", "18000"},
	}

	var asset models.Asset
	sumQty, sumCost := decimal.Zero, decimal.Zero
	for _, leg := range legs {
		next, tx, err := Apply(asset, models.Buy, d(leg.qty), d(leg.price))
		require.NoError(t, err)
		assert.True(t, d(leg.price).Mul(d(leg.qty)).Equal(tx.TotalValue))
		assert.True(t, tx.PricePerUnit.Equal(d(leg.price)))
		asset = next
		sumQty = sumQty.Add(d(leg.qty))
		sumCost = sumCost.Add(d(leg.qty).Mul(d(leg.price)))
	}

	want := sumCost.Div(sumQty)
	tolerance := decimal.New(1, -(AverageScale - 2))
	assert.True(t, asset.Quantity.Equal(sumQty))
	assert.True(t, asset.AverageBuyPrice.Sub(want).Abs().LessThan(tolerance), "avg %s want %s", asset.AverageBuyPrice, want)
	assert.True(t, asset.RealizedProfitLoss.IsZero())
}

func TestApplySell(t *testing.T) {
	asset := models.Asset{ID: 3, Quantity: d("2"), AverageBuyPrice: d("30000"), RealizedProfitLoss: d("-10")}

	next, tx, err := Apply(asset, models.Sell, d("0.75"), d("40000"))
	require.NoError(t, err)
	assert.Equal(t, "1.25", next.Quantity.String())
	assert.Equal(t, "30000", next.AverageBuyPrice.String())
	assert.Equal(t, "7490", next.RealizedProfitLoss.String())
	assert.Equal(t, "30000", tx.TotalValue.String())
	assert.Equal(t, int64(3), tx.AssetID)
	assert.Equal(t, models.Sell, tx.Type)

	// Input is not mutated.
	assert.Equal(t, "2", asset.Quantity.String())
}

func TestApplySellAtLossAndToZero(t *testing.T) {
	asset := models.Asset{Quantity: d("1.5"), AverageBuyPrice: d("100")}
	next, _, err := Apply(asset, models.Sell, d("1.5"), d("80"))
	require.NoError(t, err)
	assert.True(t, next.Quantity.IsZero())
	assert.Equal(t, "-30", next.RealizedProfitLoss.String())
	assert.Equal(t, "100", next.AverageBuyPrice.String())
}

func TestApplyOversell(t *testing.T) {
	asset := models.Asset{Quantity: d("1"), AverageBuyPrice: d("100")}
	next, _, err := Apply(asset, models.Sell, d("1.00000001"), d("120"))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, asset, next)
}

func TestApplyRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name   string
		txType models.TransactionType
		qty    string
		price  string
		want   error
	}{
		{"unknown type", "HOLD", "1", "1", ErrInvalidArgument},
		{"zero quantity", models.Buy, "0", "1", ErrInvalidArgument},
		{"negative quantity", models.Buy, "-1", "1", ErrInvalidArgument},
		{"too many decimals", models.Buy, "0.000000001", "1", ErrInvalidArgument},
		{"too many digits", models.Buy, "1234567890123.12345678", "1", ErrInvalidArgument},
		{"zero price", models.Buy, "1", "0", ErrPriceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Apply(models.Asset{}, tc.txType, d(tc.qty), d(tc.price))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestValidateQuantityRejectsExtremeExponents(t *testing.T) {
	for _, raw := range []string{"1e20000000", "1e-2000000", "1e21", "1e-29", "1" + strings.Repeat("0", 5000) + "e-5000"} {
		t.Run(raw[:min(len(raw), 16)], func(t *testing.T) {
			var q decimal.Decimal
			require.NoError(t, json.Unmarshal([]byte(`"`+raw+`"`), &q))

			start := time.Now()
			err := ValidateQuantity(q)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.Less(t, time.Since(start), 100*time.Millisecond)
		})
	}
}

func TestApplyBuyRejectsHoldingOverflow(t *testing.T) {
	huge := d("99999999999999999999")
	asset, _, err := Apply(models.Asset{}, models.Buy, huge, d("1"))
	require.NoError(t, err)

	_, _, err = Apply(asset, models.Buy, huge, d("1"))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, _, err = Apply(asset, models.Sell, huge, d("1"))
	assert.NoError(t, err)
}

func TestValidateQuantityAcceptsTrailingZeros(t *testing.T) {
	assert.NoError(t, ValidateQuantity(d("1.5000000000")))
	assert.NoError(t, ValidateQuantity(d("123456789012.12345678")))
}

func TestValue(t *testing.T) {
	v := Value(models.Asset{Quantity: d("1.5"), AverageBuyPrice: d("30000")}, d("40000"))
	assert.True(t, v.PriceAvailable)
	assert.Equal(t, "60000", v.CurrentValue.String())
	assert.Equal(t, "15000", v.UnrealizedProfitLoss.String())
}
