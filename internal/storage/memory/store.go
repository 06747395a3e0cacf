// Package memory is an in-process storage.Store for tests and local development.
// Data does not survive a restart.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hongminglow/coinfolio-be/internal/models"
	"github.com/hongminglow/coinfolio-be/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps every table in maps guarded by one RWMutex. Posting transactions
// additionally holds a per-asset mutex, mirroring the row lock of the SQL store.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	seq          int64
	accounts     map[int64]models.Account
	profiles     map[int64]models.Profile
	revoked      map[string]time.Time
	portfolios   map[int64]models.Portfolio
	assets       map[int64]models.Asset
	transactions map[int64]models.Transaction

	lockMu     sync.Mutex
	assetLocks map[int64]*sync.Mutex
}

func New() *Store {
	return &Store{
		now:          func() time.Time { return time.Now().UTC() },
		accounts:     make(map[int64]models.Account),
		profiles:     make(map[int64]models.Profile),
		revoked:      make(map[string]time.Time),
		portfolios:   make(map[int64]models.Portfolio),
		assets:       make(map[int64]models.Asset),
		transactions: make(map[int64]models.Transaction),
		assetLocks:   make(map[int64]*sync.Mutex),
	}
}

func (s *Store) Close() {}

// nextID must be called with mu held for writing.
func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Store) CreateAccount(ctx context.Context, account models.Account, profile models.Profile) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Username, account.Username) || strings.EqualFold(existing.Email, account.Email) {
			return models.Account{}, storage.ErrAlreadyExists
		}
	}
	account.ID = s.nextID()
	account.CreatedAt = s.now()
	s.accounts[account.ID] = account

	profile.AccountID = account.ID
	if profile.PreferredCurrency == "" {
		profile.PreferredCurrency = models.DefaultCurrency
	}
	profile.UpdatedAt = account.CreatedAt
	s.profiles[account.ID] = profile
	return account, nil
}

func (s *Store) FindAccountByID(ctx context.Context, id int64) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, storage.ErrNotFound
	}
	return account, nil
}

func (s *Store) FindByUsernameOrEmail(ctx context.Context, identifier string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if account.Username == identifier || account.Email == identifier {
			return account, nil
		}
	}
	return models.Account{}, storage.ErrNotFound
}

func (s *Store) GetProfile(ctx context.Context, accountID int64) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[accountID]
	if !ok {
		return models.Profile{}, storage.ErrNotFound
	}
	return profile, nil
}

func (s *Store) UpdateProfile(ctx context.Context, accountID int64, patch storage.ProfilePatch) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[accountID]
	if !ok {
		return models.Profile{}, storage.ErrNotFound
	}
	if patch.Empty() {
		return profile, nil
	}
	if patch.PhoneNumber != nil {
		profile.PhoneNumber = *patch.PhoneNumber
	}
	if patch.Bio != nil {
		profile.Bio = *patch.Bio
	}
	if patch.AvatarURL != nil {
		profile.AvatarURL = *patch.AvatarURL
	}
	if patch.PreferredCurrency != nil {
		profile.PreferredCurrency = *patch.PreferredCurrency
	}
	profile.UpdatedAt = s.now()
	s.profiles[accountID] = profile
	return profile, nil
}

func (s *Store) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[tokenID] = expiresAt
	return nil
}

func (s *Store) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[tokenID]
	return ok, nil
}

func (s *Store) CreatePortfolio(ctx context.Context, portfolio models.Portfolio) (models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[portfolio.OwnerID]; !ok {
		return models.Portfolio{}, storage.ErrNotFound
	}
	portfolio.ID = s.nextID()
	portfolio.CreatedAt = s.now()
	s.portfolios[portfolio.ID] = portfolio
	return portfolio, nil
}

func (s *Store) GetPortfolio(ctx context.Context, id int64) (models.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	portfolio, ok := s.portfolios[id]
	if !ok {
		return models.Portfolio{}, storage.ErrNotFound
	}
	return portfolio, nil
}

func (s *Store) ListPortfolios(ctx context.Context, ownerID int64) ([]models.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Portfolio{}
	for _, p := range s.portfolios {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b models.Portfolio) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) RenamePortfolio(ctx context.Context, id int64, name string) (models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	portfolio, ok := s.portfolios[id]
	if !ok {
		return models.Portfolio{}, storage.ErrNotFound
	}
	portfolio.Name = name
	s.portfolios[id] = portfolio
	for assetID, asset := range s.assets {
		if asset.PortfolioID == id {
			asset.Portfolio = portfolio
			s.assets[assetID] = asset
		}
	}
	return portfolio, nil
}

func (s *Store) DeletePortfolio(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.portfolios[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.portfolios, id)
	for assetID, asset := range s.assets {
		if asset.PortfolioID == id {
			s.deleteAssetLocked(assetID)
		}
	}
	return nil
}

func (s *Store) CreateAsset(ctx context.Context, asset models.Asset) (models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	portfolio, ok := s.portfolios[asset.PortfolioID]
	if !ok {
		return models.Asset{}, storage.ErrNotFound
	}
	for _, existing := range s.assets {
		if existing.PortfolioID == asset.PortfolioID && existing.CoinID == asset.CoinID {
			return models.Asset{}, storage.ErrAlreadyExists
		}
	}
	asset.ID = s.nextID()
	asset.CreatedAt = s.now()
	asset.UpdatedAt = asset.CreatedAt
	asset.Portfolio = portfolio
	s.assets[asset.ID] = asset
	return asset, nil
}

func (s *Store) GetAsset(ctx context.Context, id int64) (models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assets[id]
	if !ok {
		return models.Asset{}, storage.ErrNotFound
	}
	return asset, nil
}

func (s *Store) ListAssets(ctx context.Context, portfolioID int64, page storage.PageRequest) ([]models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Asset{}
	for _, asset := range s.assets {
		if asset.PortfolioID != portfolioID {
			continue
		}
		if page.After != nil && asset.ID <= page.After.ID {
			continue
		}
		out = append(out, asset)
	}
	slices.SortFunc(out, func(a, b models.Asset) int { return cmp.Compare(a.ID, b.ID) })
	return limit(out, page.Limit), nil
}

func (s *Store) DeleteAsset(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[id]; !ok {
		return storage.ErrNotFound
	}
	s.deleteAssetLocked(id)
	return nil
}

func (s *Store) deleteAssetLocked(id int64) {
	delete(s.assets, id)
	s.lockMu.Lock()
	delete(s.assetLocks, id)
	s.lockMu.Unlock()
	for txID, tx := range s.transactions {
		if tx.AssetID == id {
			delete(s.transactions, txID)
		}
	}
}

func (s *Store) assetLock(id int64) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.assetLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.assetLocks[id] = l
	}
	return l
}

func (s *Store) PostTransaction(ctx context.Context, assetID int64, fn storage.PostFunc) (models.Transaction, error) {
	lock := s.assetLock(assetID)
	lock.Lock()
	defer lock.Unlock()

	locked, err := s.GetAsset(ctx, assetID)
	if err != nil {
		return models.Transaction{}, err
	}

	updated, tx, err := fn(locked)
	if err != nil {
		return models.Transaction{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-read so a portfolio rename during fn is kept; only accounting fields change here.
	stored, ok := s.assets[assetID]
	if !ok {
		return models.Transaction{}, storage.ErrNotFound
	}
	now := s.now()
	stored.Quantity = updated.Quantity
	stored.AverageBuyPrice = updated.AverageBuyPrice
	stored.RealizedProfitLoss = updated.RealizedProfitLoss
	stored.UpdatedAt = now
	s.assets[assetID] = stored

	tx.ID = s.nextID()
	tx.AssetID = assetID
	tx.CreatedAt = now
	tx.Asset = stored
	s.transactions[tx.ID] = tx
	return tx, nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return models.Transaction{}, storage.ErrNotFound
	}
	if asset, ok := s.assets[tx.AssetID]; ok {
		tx.Asset = asset
	}
	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter storage.TransactionFilter, page storage.PageRequest) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Transaction{}
	for _, tx := range s.transactions {
		asset, ok := s.assets[tx.AssetID]
		if !ok {
			continue
		}
		tx.Asset = asset
		if filter.AssetID != 0 && tx.AssetID != filter.AssetID {
			continue
		}
		if filter.PortfolioID != 0 && asset.PortfolioID != filter.PortfolioID {
			continue
		}
		if filter.OwnerID != 0 && asset.Portfolio.OwnerID != filter.OwnerID {
			continue
		}
		if page.After != nil && !before(tx, *page.After) {
			continue
		}
		out = append(out, tx)
	}
	slices.SortFunc(out, func(a, b models.Transaction) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return limit(out, page.Limit), nil
}

// before reports whether tx sorts after the cursor in newest-first order.
func before(tx models.Transaction, c storage.Cursor) bool {
	if tx.CreatedAt.Equal(c.CreatedAt) {
		return tx.ID < c.ID
	}
	return tx.CreatedAt.Before(c.CreatedAt)
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
