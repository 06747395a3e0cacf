package ledger

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/hongminglow/coinfolio-be/internal/models"
)

// Valuation is the read-time view of an asset at the current market price.
type Valuation struct {
	CurrentPrice         decimal.Decimal
	CurrentValue         decimal.Decimal
	UnrealizedProfitLoss decimal.Decimal
	PriceAvailable       bool
}

// Value prices asset at price. It never touches persisted state.
func Value(asset models.Asset, price decimal.Decimal) Valuation {
	return Valuation{
		CurrentPrice:         price,
		CurrentValue:         price.Mul(asset.Quantity),
		UnrealizedProfitLoss: price.Sub(asset.AverageBuyPrice).Mul(asset.Quantity),
		PriceAvailable:       true,
	}
}

// valuateWorkers caps concurrent oracle lookups per page.
const valuateWorkers = 8

// ValuateAll values a page of assets under one shared deadline, so a page never takes
// longer than a single lookup. Assets still waiting when the deadline passes are
// valued neutrally without calling the oracle.
func (s *Service) ValuateAll(ctx context.Context, assets []models.Asset) []Valuation {
	out := make([]Valuation, len(assets))
	if len(assets) == 0 {
		return out
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(valuateWorkers)
	for i, asset := range assets {
		g.Go(func() error {
			if ctx.Err() != nil {
				out[i] = unavailable()
				return nil
			}
			out[i] = s.Valuate(ctx, asset)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func unavailable() Valuation {
	return Valuation{
		CurrentPrice:         decimal.Zero,
		CurrentValue:         decimal.Zero,
		UnrealizedProfitLoss: decimal.Zero,
	}
}

// Valuate looks up the current price of asset. If the oracle fails the valuation is
// zero with PriceAvailable false; reads never fail on pricing.
func (s *Service) Valuate(ctx context.Context, asset models.Asset) Valuation {
	price, err := s.price(ctx, asset.CoinID)
	if err != nil {
		return unavailable()
	}
	return Value(asset, price)
}
