package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/coinfolio-be/internal/models"
	"github.com/hongminglow/coinfolio-be/internal/storage"
)

// Numeric columns are read as text so decimals round-trip exactly.
var assetColumns = []string{
	"a.id", "a.portfolio_id", "a.coin_id",
	"a.quantity::text", "a.average_buy_price::text", "a.realized_profit_loss::text",
	"a.created_at", "a.updated_at",
	"p.id", "p.owner_id", "p.name", "p.created_at",
}

func selectAssets() sq.SelectBuilder {
	return psql.Select(assetColumns...).
		From("assets a").
		Join("portfolios p ON p.id = a.portfolio_id")
}

// CreateAsset inserts an empty position; accounting fields start at zero.
func (s *Store) CreateAsset(ctx context.Context, asset models.Asset) (models.Asset, error) {
	var id int64
	row, err := queryRow(ctx, s.pool, psql.Insert("assets").
		Columns("portfolio_id", "coin_id").
		Values(asset.PortfolioID, asset.CoinID).
		Suffix("RETURNING id"))
	if err != nil {
		return models.Asset{}, err
	}
	if err := row.Scan(&id); err != nil {
		return models.Asset{}, mapError(err)
	}
	return s.GetAsset(ctx, id)
}

func (s *Store) GetAsset(ctx context.Context, id int64) (models.Asset, error) {
	row, err := queryRow(ctx, s.pool, selectAssets().Where(sq.Eq{"a.id": id}))
	if err != nil {
		return models.Asset{}, err
	}
	return scanAsset(row)
}

func (s *Store) ListAssets(ctx context.Context, portfolioID int64, page storage.PageRequest) ([]models.Asset, error) {
	b := selectAssets().Where(sq.Eq{"a.portfolio_id": portfolioID}).OrderBy("a.id")
	if page.After != nil {
		b = b.Where(sq.Gt{"a.id": page.After.ID})
	}
	if page.Limit > 0 {
		b = b.Limit(uint64(page.Limit))
	}

	rows, err := query(ctx, s.pool, b)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	out := []models.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAsset(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanAsset(row pgx.Row) (models.Asset, error) {
	var a models.Asset
	err := row.Scan(
		&a.ID, &a.PortfolioID, &a.CoinID,
		&a.Quantity, &a.AverageBuyPrice, &a.RealizedProfitLoss,
		&a.CreatedAt, &a.UpdatedAt,
		&a.Portfolio.ID, &a.Portfolio.OwnerID, &a.Portfolio.Name, &a.Portfolio.CreatedAt,
	)
	if err != nil {
		return models.Asset{}, mapError(err)
	}
	return a, nil
}
