package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hongminglow/coinfolio-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// AccountStore persists accounts and their 1:1 profiles.
type AccountStore interface {
	// CreateAccount inserts the account and its profile atomically.
	CreateAccount(ctx context.Context, account models.Account, profile models.Profile) (models.Account, error)
	FindAccountByID(ctx context.Context, id int64) (models.Account, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (models.Account, error)
	GetProfile(ctx context.Context, accountID int64) (models.Profile, error)
	UpdateProfile(ctx context.Context, accountID int64, patch ProfilePatch) (models.Profile, error)
}

// ProfilePatch is a partial profile update; nil fields are left untouched.
type ProfilePatch struct {
	PhoneNumber       *string
	Bio               *string
	AvatarURL         *string
	PreferredCurrency *string
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.PhoneNumber == nil && p.Bio == nil && p.AvatarURL == nil && p.PreferredCurrency == nil
}

// TokenStore tracks revoked token ids until they would have expired anyway.
type TokenStore interface {
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

type PortfolioStore interface {
	CreatePortfolio(ctx context.Context, portfolio models.Portfolio) (models.Portfolio, error)
	GetPortfolio(ctx context.Context, id int64) (models.Portfolio, error)
	ListPortfolios(ctx context.Context, ownerID int64) ([]models.Portfolio, error)
	RenamePortfolio(ctx context.Context, id int64, name string) (models.Portfolio, error)
	// DeletePortfolio removes the portfolio with its assets and their transactions.
	DeletePortfolio(ctx context.Context, id int64) error
}

// AssetStore persists assets. Returned assets carry their parent Portfolio.
//
// Accounting fields are only written through TransactionStore.PostTransaction.
type AssetStore interface {
	CreateAsset(ctx context.Context, asset models.Asset) (models.Asset, error)
	GetAsset(ctx context.Context, id int64) (models.Asset, error)
	// ListAssets returns assets of a portfolio ordered by id ascending.
	ListAssets(ctx context.Context, portfolioID int64, page PageRequest) ([]models.Asset, error)
	DeleteAsset(ctx context.Context, id int64) error
}

// PostFunc computes the new state of a locked asset and the transaction recording the change.
// Returning an error aborts the post and leaves nothing behind.
type PostFunc func(locked models.Asset) (models.Asset, models.Transaction, error)

// TransactionStore persists the immutable transaction log.
type TransactionStore interface {
	// PostTransaction locks the asset for the duration of fn, then writes the asset
	// returned by fn and inserts its transaction in the same unit of work.
	// An unknown asset yields ErrNotFound without calling fn.
	PostTransaction(ctx context.Context, assetID int64, fn PostFunc) (models.Transaction, error)
	// GetTransaction returns a transaction with its Asset and Portfolio chain loaded.
	GetTransaction(ctx context.Context, id int64) (models.Transaction, error)
	// ListTransactions returns transactions newest first (created_at, then id, descending).
	ListTransactions(ctx context.Context, filter TransactionFilter, page PageRequest) ([]models.Transaction, error)
}

// TransactionFilter narrows a listing; zero fields are ignored.
type TransactionFilter struct {
	OwnerID     int64
	PortfolioID int64
	AssetID     int64
}

// Store is the full persistence surface used by the service.
type Store interface {
	AccountStore
	TokenStore
	PortfolioStore
	AssetStore
	TransactionStore
	Close()
}
