package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/coinfolio-be/internal/models"
	"github.com/hongminglow/coinfolio-be/internal/storage"
)

var portfolioColumns = []string{"id", "owner_id", "name", "created_at"}

func (s *Store) CreatePortfolio(ctx context.Context, portfolio models.Portfolio) (models.Portfolio, error) {
	row, err := queryRow(ctx, s.pool, psql.Insert("portfolios").
		Columns("owner_id", "name").
		Values(portfolio.OwnerID, portfolio.Name).
		Suffix("RETURNING "+joinColumns(portfolioColumns)))
	if err != nil {
		return models.Portfolio{}, err
	}
	return scanPortfolio(row)
}

func (s *Store) GetPortfolio(ctx context.Context, id int64) (models.Portfolio, error) {
	row, err := queryRow(ctx, s.pool, psql.Select(portfolioColumns...).From("portfolios").Where(sq.Eq{"id": id}))
	if err != nil {
		return models.Portfolio{}, err
	}
	return scanPortfolio(row)
}

// ListPortfolios returns every portfolio of ownerID, oldest first.
func (s *Store) ListPortfolios(ctx context.Context, ownerID int64) ([]models.Portfolio, error) {
	rows, err := query(ctx, s.pool, psql.Select(portfolioColumns...).From("portfolios").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}
	defer rows.Close()

	out := []models.Portfolio{}
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) RenamePortfolio(ctx context.Context, id int64, name string) (models.Portfolio, error) {
	row, err := queryRow(ctx, s.pool, psql.Update("portfolios").
		Set("name", name).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING "+joinColumns(portfolioColumns)))
	if err != nil {
		return models.Portfolio{}, err
	}
	return scanPortfolio(row)
}

// DeletePortfolio relies on ON DELETE CASCADE for assets and transactions.
func (s *Store) DeletePortfolio(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM portfolios WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete portfolio: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanPortfolio(row pgx.Row) (models.Portfolio, error) {
	var p models.Portfolio
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.CreatedAt); err != nil {
		return models.Portfolio{}, mapError(err)
	}
	return p, nil
}
