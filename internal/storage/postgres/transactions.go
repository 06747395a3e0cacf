package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/coinfolio-be/internal/models"
	"github.com/hongminglow/coinfolio-be/internal/storage"
)

func selectTransactions() sq.SelectBuilder {
	cols := append([]string{
		"t.id", "t.asset_id", "t.transaction_type",
		"t.quantity::text", "t.price_per_unit::text", "t.total_value::text",
		"t.created_at",
	}, assetColumns...)
	return psql.Select(cols...).
		From("transactions t").
		Join("assets a ON a.id = t.asset_id").
		Join("portfolios p ON p.id = a.portfolio_id")
}

// PostTransaction holds SELECT ... FOR UPDATE on the asset row while fn runs, so posts
// to one asset serialise while posts to different assets proceed in parallel.
func (s *Store) PostTransaction(ctx context.Context, assetID int64, fn storage.PostFunc) (models.Transaction, error) {
	var posted models.Transaction
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		row, err := queryRow(ctx, tx, selectAssets().Where(sq.Eq{"a.id": assetID}).Suffix("FOR UPDATE OF a"))
		if err != nil {
			return err
		}
		locked, err := scanAsset(row)
		if err != nil {
			return err
		}

		updated, draft, err := fn(locked)
		if err != nil {
			return err
		}

		stored := locked
		stored.Quantity = updated.Quantity
		stored.AverageBuyPrice = updated.AverageBuyPrice
		stored.RealizedProfitLoss = updated.RealizedProfitLoss
		err = tx.QueryRow(ctx, `
			UPDATE assets
			SET quantity = $1::numeric, average_buy_price = $2::numeric, realized_profit_loss = $3::numeric, updated_at = NOW()
			WHERE id = $4
			RETURNING updated_at`,
			stored.Quantity.String(), stored.AverageBuyPrice.String(), stored.RealizedProfitLoss.String(), assetID,
		).Scan(&stored.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update asset: %w", err)
		}

		draft.AssetID = assetID
		err = tx.QueryRow(ctx, `
			INSERT INTO transactions (asset_id, transaction_type, quantity, price_per_unit, total_value)
			VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric)
			RETURNING id, created_at`,
			assetID, string(draft.Type), draft.Quantity.String(), draft.PricePerUnit.String(), draft.TotalValue.String(),
		).Scan(&draft.ID, &draft.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		draft.Asset = stored
		posted = draft
		return nil
	})
	if err != nil {
		return models.Transaction{}, mapError(err)
	}
	return posted, nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (models.Transaction, error) {
	row, err := queryRow(ctx, s.pool, selectTransactions().Where(sq.Eq{"t.id": id}))
	if err != nil {
		return models.Transaction{}, err
	}
	return scanTransaction(row)
}

func (s *Store) ListTransactions(ctx context.Context, filter storage.TransactionFilter, page storage.PageRequest) ([]models.Transaction, error) {
	b := selectTransactions().OrderBy("t.created_at DESC", "t.id DESC")
	if filter.AssetID != 0 {
		b = b.Where(sq.Eq{"t.asset_id": filter.AssetID})
	}
	if filter.PortfolioID != 0 {
		b = b.Where(sq.Eq{"a.portfolio_id": filter.PortfolioID})
	}
	if filter.OwnerID != 0 {
		b = b.Where(sq.Eq{"p.owner_id": filter.OwnerID})
	}
	if page.After != nil {
		b = b.Where(sq.Expr("(t.created_at, t.id) < (?, ?)", page.After.CreatedAt, page.After.ID))
	}
	if page.Limit > 0 {
		b = b.Limit(uint64(page.Limit))
	}

	rows, err := query(ctx, s.pool, b)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	var txType string
	a := &t.Asset
	err := row.Scan(
		&t.ID, &t.AssetID, &txType,
		&t.Quantity, &t.PricePerUnit, &t.TotalValue,
		&t.CreatedAt,
		&a.ID, &a.PortfolioID, &a.CoinID,
		&a.Quantity, &a.AverageBuyPrice, &a.RealizedProfitLoss,
		&a.CreatedAt, &a.UpdatedAt,
		&a.Portfolio.ID, &a.Portfolio.OwnerID, &a.Portfolio.Name, &a.Portfolio.CreatedAt,
	)
	if err != nil {
		return models.Transaction{}, mapError(err)
	}
	t.Type = models.TransactionType(txType)
	return t, nil
}
