package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/coinfolio-be/internal/auth"
	"github.com/hongminglow/coinfolio-be/internal/ledger"
	"github.com/hongminglow/coinfolio-be/internal/log"
	"github.com/hongminglow/coinfolio-be/internal/middleware"
	"github.com/hongminglow/coinfolio-be/internal/models"
	"github.com/hongminglow/coinfolio-be/internal/models/dto"
	"github.com/hongminglow/coinfolio-be/internal/pricing"
	"github.com/hongminglow/coinfolio-be/internal/storage"
	"github.com/hongminglow/coinfolio-be/internal/storage/memory"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	m.Run()
}

type fakeOracle struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	down   bool
	hang   bool
}

func (o *fakeOracle) Price(ctx context.Context, coinID, _ string) (decimal.Decimal, error) {
	o.mu.Lock()
	hang := o.hang
	o.mu.Unlock()
	if hang {
		<-ctx.Done()
		return decimal.Zero, ctx.Err()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.prices[coinID]
	if o.down || !ok {
		return decimal.Zero, pricing.ErrPriceUnavailable
	}
	return p, nil
}

func (o *fakeOracle) set(coinID, price string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[coinID] = decimal.RequireFromString(price)
}

func (o *fakeOracle) setDown(down bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.down = down
}

func (o *fakeOracle) setHang(hang bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hang = hang
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	t      *testing.T
	url    string
	store  *memory.Store
	oracle *fakeOracle
}

func newHarness(t *testing.T, pageSize int) *harness {
	t.Helper()
	store := memory.New()
	oracle := &fakeOracle{prices: map[string]decimal.Decimal{"bitcoin": decimal.NewFromInt(30000)}}
	tokens := auth.NewTokenManager("test-secret", "coinfolio-test", time.Hour)
	svc := ledger.NewService(store, oracle, "usd", time.Second)
	protect := func(next http.Handler) http.Handler { return middleware.RequireAuth(tokens, store, next) }

	mux := http.NewServeMux()
	NewHealthHandler(time.Now()).Register(mux)
	NewAuthHandler(store, store, tokens).Register(mux, protect)
	NewProfileHandler(store).Register(mux, protect)
	NewPortfolioHandler(store).Register(mux, protect)
	NewAssetHandler(store, svc, pageSize).Register(mux, protect)
	NewTransactionHandler(store, svc, pageSize).Register(mux, protect)
	NewPriceHandler(oracle, "usd").Register(mux, protect)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &harness{t: t, url: srv.URL, store: store, oracle: oracle}
}

func (h *harness) do(method, path, token string, body any) (int, envelope) {
	h.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, h.url+path, reader)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(h.t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(h.t, resp.StatusCode, env.Code)
	return resp.StatusCode, env
}

// signup registers and logs in a fresh account, returning its token.
func (h *harness) signup(username string) string {
	h.t.Helper()
	status, _ := h.do(http.MethodPost, "/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct-horse",
	})
	require.Equal(h.t, http.StatusCreated, status)
	status, env := h.do(http.MethodPost, "/login", "", map[string]string{"identifier": username, "password": "correct-horse"})
	require.Equal(h.t, http.StatusOK, status)
	var login dto.LoginResponse
	decode(h.t, env, &login)
	return login.Token
}

func (h *harness) createPortfolio(token, name string) models.Portfolio {
	h.t.Helper()
	status, env := h.do(http.MethodPost, "/portfolios", token, map[string]string{"name": name})
	require.Equal(h.t, http.StatusCreated, status)
	var p models.Portfolio
	decode(h.t, env, &p)
	return p
}

func (h *harness) createAsset(token string, portfolioID int64, coin string) dto.AssetResponse {
	h.t.Helper()
	status, env := h.do(http.MethodPost, fmt.Sprintf("/portfolios/%d/assets", portfolioID), token, map[string]string{"coin_id": coin})
	require.Equal(h.t, http.StatusCreated, status, env.Message)
	var a dto.AssetResponse
	decode(h.t, env, &a)
	return a
}

func decode(t *testing.T, env envelope, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func txPath(portfolioID, assetID int64) string {
	return fmt.Sprintf("/portfolios/%d/assets/%d/transactions", portfolioID, assetID)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, 10)
	status, env := h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"status":"ok"`)
}

func TestRegisterLoginLogout(t *testing.T) {
	h := newHarness(t, 10)
	token := h.signup("alice")

	status, env := h.do(http.MethodPost, "/register", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_exists", env.Error)

	status, env = h.do(http.MethodPost, "/login", "", map[string]string{"identifier": "alice", "password": "wrong-horse"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthenticated", env.Error)

	status, env = h.do(http.MethodGet, "/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	var profile models.Profile
	decode(t, env, &profile)
	assert.Equal(t, "USD", profile.PreferredCurrency)

	status, _ = h.do(http.MethodPost, "/logout", token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, env = h.do(http.MethodGet, "/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthenticated", env.Error)
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t, 10)
	cases := map[string]any{
		"bad json":       "{",
		"missing email":  map[string]string{"username": "x", "password": "long-enough"},
		"bad email":      map[string]string{"username": "x", "email": "not-an-email", "password": "long-enough"},
		"short password": map[string]string{"username": "x", "email": "x@example.com", "password": "short"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			status, env := h.do(http.MethodPost, "/register", "", body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "invalid_argument", env.Error)
		})
	}
}

func TestProfileUpdate(t *testing.T) {
	h := newHarness(t, 10)
	token := h.signup("dana")

	status, env := h.do(http.MethodPatch, "/profile", token, map[string]string{"preferred_currency": "eur", "bio": "long only"})
	require.Equal(t, http.StatusOK, status)
	var profile models.Profile
	decode(t, env, &profile)
	assert.Equal(t, "EUR", profile.PreferredCurrency)
	assert.Equal(t, "long only", profile.Bio)

	for _, body := range []map[string]string{
		{"preferred_currency": "ZZZ"},
		{"bio": strings.Repeat("x", 501)},
		{"avatar_url": "ftp://example.com/a.png"},
	} {
		status, env = h.do(http.MethodPatch, "/profile", token, body)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "invalid_argument", env.Error)
	}
}

func TestOwnershipDoesNotRevealExistence(t *testing.T) {
	h := newHarness(t, 10)
	alice := h.signup("alice")
	bob := h.signup("bob")
	portfolio := h.createPortfolio(alice, "alice main")
	asset := h.createAsset(alice, portfolio.ID, "bitcoin")

	foreign := []string{
		fmt.Sprintf("/portfolios/%d", portfolio.ID),
		fmt.Sprintf("/portfolios/%d/assets", portfolio.ID),
		fmt.Sprintf("/portfolios/%d/assets/%d", portfolio.ID, asset.ID),
		fmt.Sprintf("/portfolios/%d/transactions", portfolio.ID),
		txPath(portfolio.ID, asset.ID),
	}
	_, missing := h.do(http.MethodGet, "/portfolios/999999", bob, nil)
	for _, path := range foreign {
		status, env := h.do(http.MethodGet, path, bob, nil)
		assert.Equal(t, http.StatusForbidden, status, path)
		assert.Equal(t, "not_authorized", env.Error, path)
		assert.Equal(t, missing.Message, env.Message, path)
	}

	status, env := h.do(http.MethodPost, txPath(portfolio.ID, asset.ID), bob, map[string]string{"transaction_type": "BUY", "quantity": "1"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "not_authorized", env.Error)

	status, _ = h.do(http.MethodDelete, fmt.Sprintf("/portfolios/%d", portfolio.ID), bob, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = h.do(http.MethodGet, "/portfolios", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(env.Data))

	// An asset id under the wrong portfolio path is rejected too.
	other := h.createPortfolio(alice, "alice other")
	status, _ = h.do(http.MethodGet, fmt.Sprintf("/portfolios/%d/assets/%d", other.ID, asset.ID), alice, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestTransactionFlow(t *testing.T) {
	h := newHarness(t, 10)
	token := h.signup("erin")
	portfolio := h.createPortfolio(token, "main")
	asset := h.createAsset(token, portfolio.ID, " Bitcoin ")
	assert.Equal(t, "bitcoin", asset.CoinID)
	assert.True(t, asset.PriceAvailable)

	status, env := h.do(http.MethodPost, fmt.Sprintf("/portfolios/%d/assets", portfolio.ID), token, map[string]string{"coin_id": "bitcoin"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_exists", env.Error)

	path := txPath(portfolio.ID, asset.ID)
	status, env = h.do(http.MethodPost, path, token, map[string]string{"transaction_type": "BUY", "quantity": "0.5"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var first models.Transaction
	decode(t, env, &first)
	assert.Equal(t, "30000", first.PricePerUnit.String())
	assert.Equal(t, "15000", first.TotalValue.String())

	h.oracle.set("bitcoin", "35000")
	status, _ = h.do(http.MethodPost, path, token, map[string]any{"transaction_type": "BUY", "quantity": 1.0})
	require.Equal(t, http.StatusCreated, status)

	status, env = h.do(http.MethodGet, fmt.Sprintf("/portfolios/%d/assets/%d", portfolio.ID, asset.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	var got dto.AssetResponse
	decode(t, env, &got)
	assert.Equal(t, "1.5", got.Quantity.String())
	assert.Equal(t, "33333.3333333333", got.AverageBuyPrice.String())
	assert.Equal(t, "52500", got.CurrentValue.String())
	assert.True(t, got.PriceAvailable)

	status, env = h.do(http.MethodPost, path, token, map[string]string{"transaction_type": "SELL", "quantity": "2"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "insufficient_balance", env.Error)

	status, env = h.do(http.MethodPost, path, token, map[string]string{"transaction_type": "SELL", "quantity": "0.5"})
	require.Equal(t, http.StatusCreated, status)
	var sell models.Transaction
	decode(t, env, &sell)
	assert.Equal(t, models.Sell, sell.Type)

	asset2, err := h.store.GetAsset(t.Context(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", asset2.Quantity.String())
	assert.Equal(t, "833.33333333335", asset2.RealizedProfitLoss.String())
	assert.Equal(t, "33333.3333333333", asset2.AverageBuyPrice.String())
}

func TestTransactionRequestValidation(t *testing.T) {
	h := newHarness(t, 10)
	token := h.signup("frank")
	portfolio := h.createPortfolio(token, "main")
	asset := h.createAsset(token, portfolio.ID, "bitcoin")
	path := txPath(portfolio.ID, asset.ID)

	cases := map[string]any{
		"client price":      map[string]any{"transaction_type": "BUY", "quantity": "1", "price_per_unit": "1"},
		"client total":      map[string]any{"transaction_type": "BUY", "quantity": "1", "total_value": 5},
		"missing quantity":  map[string]any{"transaction_type": "BUY"},
		"null quantity":     map[string]any{"transaction_type": "BUY", "quantity": nil},
		"zero quantity":     map[string]any{"transaction_type": "BUY", "quantity": "0"},
		"too precise":       map[string]any{"transaction_type": "BUY", "quantity": "0.000000001"},
		"unknown type":      map[string]any{"transaction_type": "HOLD", "quantity": "1"},
		"lowercase type":    map[string]any{"transaction_type": "buy", "quantity": "1"},
		"malformed payload": "not json",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			status, env := h.do(http.MethodPost, path, token, body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "invalid_argument", env.Error)
		})
	}

	txs, err := h.store.ListTransactions(t.Context(), storage.TransactionFilter{}, storage.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestPriceOutage(t *testing.T) {
	h := newHarness(t, 10)
	token := h.signup("gina")
	portfolio := h.createPortfolio(token, "main")
	asset := h.createAsset(token, portfolio.ID, "bitcoin")
	path := txPath(portfolio.ID, asset.ID)

	h.oracle.setDown(true)
	status, env := h.do(http.MethodPost, path, token, map[string]string{"transaction_type": "BUY", "quantity": "1"})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "price_unavailable", env.Error)

	status, env = h.do(http.MethodGet, fmt.Sprintf("/portfolios/%d/assets/%d", portfolio.ID, asset.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	var got dto.AssetResponse
	decode(t, env, &got)
	assert.False(t, got.PriceAvailable)
	assert.True(t, got.CurrentValue.IsZero())
	assert.True(t, got.Quantity.IsZero())

	status, env = h.do(http.MethodGet, "/prices/bitcoin", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "price_unavailable", env.Error)
}

func TestAssetListDuringHangingOutage(t *testing.T) {
	h := newHarness(t, 10)
	token := h.signup("hugo")
	portfolio := h.createPortfolio(token, "main")
	for i := range 10 {
		h.createAsset(token, portfolio.ID, fmt.Sprintf("coin-%d", i))
	}

	h.oracle.setHang(true)
	start := time.Now()
	status, env := h.do(http.MethodGet, fmt.Sprintf("/portfolios/%d/assets", portfolio.ID), token, nil)
	elapsed := time.Since(start)

	require.Equal(t, http.StatusOK, status)
	assert.Less(t, elapsed, 3*time.Second)
	var page dto.Page[dto.AssetResponse]
	decode(t, env, &page)
	require.Len(t, page.Results, 10)
	for _, a := range page.Results {
		assert.False(t, a.PriceAvailable)
		assert.True(t, a.CurrentValue.IsZero())
	}
}

func TestListingsPaginate(t *testing.T) {
	h := newHarness(t, 2)
	token := h.signup("hank")
	portfolio := h.createPortfolio(token, "main")
	asset := h.createAsset(token, portfolio.ID, "bitcoin")

	for _, path := range []string{fmt.Sprintf("/portfolios/%d/transactions", portfolio.ID), txPath(portfolio.ID, asset.ID)} {
		status, env := h.do(http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"results":[]}`, string(env.Data))
	}

	for range 3 {
		status, _ := h.do(http.MethodPost, txPath(portfolio.ID, asset.ID), token, map[string]string{"transaction_type": "BUY", "quantity": "1"})
		require.Equal(t, http.StatusCreated, status)
	}

	var ids []int64
	cursor := ""
	for pages := 0; ; pages++ {
		require.Less(t, pages, 3)
		status, env := h.do(http.MethodGet, "/transactions?cursor="+cursor, token, nil)
		require.Equal(t, http.StatusOK, status)
		var page dto.Page[models.Transaction]
		decode(t, env, &page)
		for _, tx := range page.Results {
			ids = append(ids, tx.ID)
		}
		if page.NextCursor == "" {
			break
		}
		assert.Len(t, page.Results, 2)
		cursor = page.NextCursor
	}
	require.Len(t, ids, 3)
	assert.Greater(t, ids[0], ids[1])
	assert.Greater(t, ids[1], ids[2])

	status, env = h.do(http.MethodGet, "/transactions?cursor=%25%25", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_argument", env.Error)

	status, env = h.do(http.MethodGet, fmt.Sprintf("/transactions/%d", ids[0]), token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = h.do(http.MethodGet, fmt.Sprintf("%s/%d", txPath(portfolio.ID, asset.ID), ids[0]), token, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAssetListAndDelete(t *testing.T) {
	h := newHarness(t, 10)
	token := h.signup("ivy")
	portfolio := h.createPortfolio(token, "main")
	h.oracle.set("ethereum", "2500")
	h.createAsset(token, portfolio.ID, "bitcoin")
	eth := h.createAsset(token, portfolio.ID, "ethereum")

	status, env := h.do(http.MethodGet, fmt.Sprintf("/portfolios/%d/assets", portfolio.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	var page dto.Page[dto.AssetResponse]
	decode(t, env, &page)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "bitcoin", page.Results[0].CoinID)
	assert.Equal(t, "2500", page.Results[1].CurrentPrice.String())

	status, env = h.do(http.MethodDelete, fmt.Sprintf("/portfolios/%d/assets/%d", portfolio.ID, eth.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Asset ETHEREUM deleted successfully.", env.Message)

	status, _ = h.do(http.MethodGet, fmt.Sprintf("/portfolios/%d/assets/%d", portfolio.ID, eth.ID), token, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestPortfolioRenameAndDelete(t *testing.T) {
	h := newHarness(t, 10)
	token := h.signup("jack")
	portfolio := h.createPortfolio(token, "main")

	status, env := h.do(http.MethodPatch, fmt.Sprintf("/portfolios/%d", portfolio.ID), token, map[string]string{"name": "long term"})
	require.Equal(t, http.StatusOK, status)
	var renamed models.Portfolio
	decode(t, env, &renamed)
	assert.Equal(t, "long term", renamed.Name)

	status, env = h.do(http.MethodPost, "/portfolios", token, map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_argument", env.Error)

	status, _ = h.do(http.MethodDelete, fmt.Sprintf("/portfolios/%d", portfolio.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = h.do(http.MethodGet, fmt.Sprintf("/portfolios/%d", portfolio.ID), token, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestPriceQuote(t *testing.T) {
	h := newHarness(t, 10)
	token := h.signup("kim")

	status, env := h.do(http.MethodGet, "/prices/Bitcoin?currency=USD", token, nil)
	require.Equal(t, http.StatusOK, status)
	var quote pricing.Quote
	decode(t, env, &quote)
	assert.True(t, quote.Success)
	require.NotNil(t, quote.Price)
	assert.Equal(t, "30000", quote.Price.String())
	assert.Equal(t, "$30,000.00", quote.Display)

	status, _ = h.do(http.MethodGet, "/prices/dogecoin", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, _ = h.do(http.MethodGet, "/prices/bitcoin", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}
