package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/coinfolio-be/internal/models"
	"github.com/hongminglow/coinfolio-be/internal/storage"
)

var (
	accountColumns = []string{"id", "username", "email", "password_hash", "is_superuser", "created_at"}
	profileColumns = []string{"user_id", "phone_number", "bio", "avatar_url", "preferred_currency", "updated_at"}
)

// CreateAccount inserts the account and its profile in one transaction.
func (s *Store) CreateAccount(ctx context.Context, account models.Account, profile models.Profile) (models.Account, error) {
	if profile.PreferredCurrency == "" {
		profile.PreferredCurrency = models.DefaultCurrency
	}

	var created models.Account
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		row, err := queryRow(ctx, tx, psql.Insert("users").
			Columns("username", "email", "password_hash", "is_superuser").
			Values(account.Username, account.Email, account.PasswordHash, account.IsSuperuser).
			Suffix("RETURNING " + joinColumns(accountColumns)))
		if err != nil {
			return err
		}
		if created, err = scanAccount(row); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO profiles (user_id, phone_number, bio, avatar_url, preferred_currency) VALUES ($1, $2, $3, $4, $5)`,
			created.ID, profile.PhoneNumber, profile.Bio, profile.AvatarURL, profile.PreferredCurrency)
		if err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Account{}, mapError(err)
	}
	return created, nil
}

// FindAccountByID fetches an account by primary key.
func (s *Store) FindAccountByID(ctx context.Context, id int64) (models.Account, error) {
	row, err := queryRow(ctx, s.pool, psql.Select(accountColumns...).From("users").Where(sq.Eq{"id": id}))
	if err != nil {
		return models.Account{}, err
	}
	return scanAccount(row)
}

// FindByUsernameOrEmail fetches the first account matching the identifier as username or email.
func (s *Store) FindByUsernameOrEmail(ctx context.Context, identifier string) (models.Account, error) {
	row, err := queryRow(ctx, s.pool, psql.Select(accountColumns...).From("users").
		Where(sq.Or{sq.Eq{"username": identifier}, sq.Eq{"email": identifier}}).
		OrderBy("id").
		Limit(1))
	if err != nil {
		return models.Account{}, err
	}
	return scanAccount(row)
}

func (s *Store) GetProfile(ctx context.Context, accountID int64) (models.Profile, error) {
	row, err := queryRow(ctx, s.pool, psql.Select(profileColumns...).From("profiles").Where(sq.Eq{"user_id": accountID}))
	if err != nil {
		return models.Profile{}, err
	}
	return scanProfile(row)
}

// UpdateProfile applies the non-nil fields of patch.
func (s *Store) UpdateProfile(ctx context.Context, accountID int64, patch storage.ProfilePatch) (models.Profile, error) {
	if patch.Empty() {
		return s.GetProfile(ctx, accountID)
	}

	b := psql.Update("profiles").Set("updated_at", sq.Expr("NOW()")).Where(sq.Eq{"user_id": accountID})
	if patch.PhoneNumber != nil {
		b = b.Set("phone_number", *patch.PhoneNumber)
	}
	if patch.Bio != nil {
		b = b.Set("bio", *patch.Bio)
	}
	if patch.AvatarURL != nil {
		b = b.Set("avatar_url", *patch.AvatarURL)
	}
	if patch.PreferredCurrency != nil {
		b = b.Set("preferred_currency", *patch.PreferredCurrency)
	}

	row, err := queryRow(ctx, s.pool, b.Suffix("RETURNING "+joinColumns(profileColumns)))
	if err != nil {
		return models.Profile{}, err
	}
	return scanProfile(row)
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.IsSuperuser, &a.CreatedAt); err != nil {
		return models.Account{}, mapError(err)
	}
	return a, nil
}

func scanProfile(row pgx.Row) (models.Profile, error) {
	var p models.Profile
	if err := row.Scan(&p.AccountID, &p.PhoneNumber, &p.Bio, &p.AvatarURL, &p.PreferredCurrency, &p.UpdatedAt); err != nil {
		return models.Profile{}, mapError(err)
	}
	return p, nil
}
