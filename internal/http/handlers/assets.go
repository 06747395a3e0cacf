package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/hongminglow/coinfolio-be/internal/auth"
	"github.com/hongminglow/coinfolio-be/internal/http/respond"
	"github.com/hongminglow/coinfolio-be/internal/ledger"
	"github.com/hongminglow/coinfolio-be/internal/models"
	"github.com/hongminglow/coinfolio-be/internal/models/dto"
	"github.com/hongminglow/coinfolio-be/internal/storage"
)

// coinIDPattern matches price oracle ids such as "bitcoin" or "usd-coin".
var coinIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,63}$`)

// AssetStore is the slice of storage the asset routes need.
type AssetStore interface {
	storage.PortfolioStore
	storage.AssetStore
}

// AssetHandler serves assets nested under a portfolio, each enriched with a live valuation.
type AssetHandler struct {
	store    AssetStore
	ledger   *ledger.Service
	pageSize int
}

func NewAssetHandler(store AssetStore, ledger *ledger.Service, pageSize int) *AssetHandler {
	return &AssetHandler{store: store, ledger: ledger, pageSize: pageSize}
}

func (h *AssetHandler) Register(mux *http.ServeMux, protect Protect) {
	mux.Handle("POST /portfolios/{portfolioID}/assets", protect(http.HandlerFunc(h.handleCreate)))
	mux.Handle("GET /portfolios/{portfolioID}/assets", protect(http.HandlerFunc(h.handleList)))
	mux.Handle("GET /portfolios/{portfolioID}/assets/{assetID}", protect(http.HandlerFunc(h.handleGet)))
	mux.Handle("DELETE /portfolios/{portfolioID}/assets/{assetID}", protect(http.HandlerFunc(h.handleDelete)))
}

func (h *AssetHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	portfolio, err := ownedPortfolio(r, h.store)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.AssetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	coinID := strings.ToLower(strings.TrimSpace(req.CoinID))
	if !coinIDPattern.MatchString(coinID) {
		writeError(w, r, invalid("coin_id must be a price oracle id such as \"bitcoin\""))
		return
	}

	created, err := h.store.CreateAsset(r.Context(), models.Asset{PortfolioID: portfolio.ID, CoinID: coinID})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "Asset created successfully", h.withValuation(r, created))
}

func (h *AssetHandler) handleList(w http.ResponseWriter, r *http.Request) {
	portfolio, err := ownedPortfolio(r, h.store)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := pageRequest(r, h.pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	assets, err := h.store.ListAssets(r.Context(), portfolio.ID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	assets, next := storage.Paginate(assets, h.pageSize, func(a models.Asset) storage.Cursor {
		return storage.Cursor{ID: a.ID}
	})
	valuations := h.ledger.ValuateAll(r.Context(), assets)
	results := make([]dto.AssetResponse, 0, len(assets))
	for i, a := range assets {
		results = append(results, assetResponse(a, valuations[i]))
	}
	respond.JSON(w, http.StatusOK, "assets", dto.Page[dto.AssetResponse]{Results: results, NextCursor: next})
}

func (h *AssetHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	asset, err := ownedAsset(r, h.store)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "asset", h.withValuation(r, asset))
}

func (h *AssetHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	asset, err := ownedAsset(r, h.store)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.store.DeleteAsset(r.Context(), asset.ID); err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, fmt.Sprintf("Asset %s deleted successfully.", strings.ToUpper(asset.CoinID)), nil)
}

func (h *AssetHandler) withValuation(r *http.Request, asset models.Asset) dto.AssetResponse {
	return assetResponse(asset, h.ledger.Valuate(r.Context(), asset))
}

func assetResponse(asset models.Asset, v ledger.Valuation) dto.AssetResponse {
	return dto.AssetResponse{
		Asset:                asset,
		CurrentPrice:         v.CurrentPrice,
		CurrentValue:         v.CurrentValue,
		UnrealizedProfitLoss: v.UnrealizedProfitLoss,
		PriceAvailable:       v.PriceAvailable,
	}
}

// ownedAsset loads {assetID}, checks the caller owns it, and that it sits under {portfolioID}.
func ownedAsset(r *http.Request, assets storage.AssetStore) (models.Asset, error) {
	portfolioID, err := pathID(r, "portfolioID")
	if err != nil {
		return models.Asset{}, err
	}
	assetID, err := pathID(r, "assetID")
	if err != nil {
		return models.Asset{}, err
	}
	asset, err := assets.GetAsset(r.Context(), assetID)
	if err != nil {
		return models.Asset{}, err
	}
	if err := auth.Authorize(principal(r).AccountID, asset); err != nil {
		return models.Asset{}, err
	}
	if asset.PortfolioID != portfolioID {
		return models.Asset{}, auth.ErrNotAuthorized
	}
	return asset, nil
}
