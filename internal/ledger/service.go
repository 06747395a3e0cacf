package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/coinfolio-be/internal/auth"
	"github.com/hongminglow/coinfolio-be/internal/log"
	"github.com/hongminglow/coinfolio-be/internal/models"
	"github.com/hongminglow/coinfolio-be/internal/pricing"
	"github.com/hongminglow/coinfolio-be/internal/storage"
)

// Service runs transaction posts and asset valuations.
type Service struct {
	store    storage.TransactionStore
	oracle   pricing.Oracle
	currency string
	timeout  time.Duration
}

// NewService wires a ledger over store and oracle. currency is the settlement
// currency passed to the oracle; timeout bounds each oracle call.
func NewService(store storage.TransactionStore, oracle pricing.Oracle, currency string, timeout time.Duration) *Service {
	return &Service{
		store:    store,
		oracle:   oracle,
		currency: strings.ToLower(currency),
		timeout:  timeout,
	}
}

// Currency returns the settlement currency prices are quoted in.
func (s *Service) Currency() string { return s.currency }

// Post records a BUY or SELL of quantity units against assetID on behalf of accountID.
//
// The asset stays locked from the ownership check until commit, so concurrent posts to
// the same asset apply one after another. On any error nothing is written.
func (s *Service) Post(ctx context.Context, accountID, assetID int64, txType models.TransactionType, quantity decimal.Decimal) (models.Transaction, error) {
	if !txType.Valid() {
		return models.Transaction{}, fmt.Errorf("%w: transaction type must be BUY or SELL", ErrInvalidArgument)
	}
	if err := ValidateQuantity(quantity); err != nil {
		return models.Transaction{}, err
	}

	tx, err := s.store.PostTransaction(ctx, assetID, func(locked models.Asset) (models.Asset, models.Transaction, error) {
		if err := auth.Authorize(accountID, locked); err != nil {
			return locked, models.Transaction{}, err
		}
		price, err := s.price(ctx, locked.CoinID)
		if err != nil {
			return locked, models.Transaction{}, err
		}
		return Apply(locked, txType, quantity, price)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return models.Transaction{}, auth.ErrNotAuthorized
	}
	if err != nil {
		return models.Transaction{}, err
	}

	log.Debugf("ledger: account %d posted %s %s of asset %d at %s", accountID, txType, quantity, assetID, tx.PricePerUnit)
	return tx, nil
}

func (s *Service) price(ctx context.Context, coinID string) (decimal.Decimal, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	price, err := s.oracle.Price(ctx, coinID, s.currency)
	if err != nil {
		log.Warnf("ledger: price lookup for %s failed: %v", coinID, err)
		return decimal.Zero, fmt.Errorf("%w: %s", ErrPriceUnavailable, coinID)
	}
	return price, nil
}
