package handlers

import (
	"net/http"

	"github.com/hongminglow/coinfolio-be/internal/auth"
	"github.com/hongminglow/coinfolio-be/internal/http/respond"
	"github.com/hongminglow/coinfolio-be/internal/ledger"
	"github.com/hongminglow/coinfolio-be/internal/models"
	"github.com/hongminglow/coinfolio-be/internal/models/dto"
	"github.com/hongminglow/coinfolio-be/internal/storage"
)

// TransactionStore is the slice of storage the transaction routes need.
type TransactionStore interface {
	storage.PortfolioStore
	storage.AssetStore
	storage.TransactionStore
}

// TransactionHandler posts and lists transactions. There are no update or delete routes.
type TransactionHandler struct {
	store    TransactionStore
	ledger   *ledger.Service
	pageSize int
}

func NewTransactionHandler(store TransactionStore, ledger *ledger.Service, pageSize int) *TransactionHandler {
	return &TransactionHandler{store: store, ledger: ledger, pageSize: pageSize}
}

func (h *TransactionHandler) Register(mux *http.ServeMux, protect Protect) {
	const nested = "/portfolios/{portfolioID}/assets/{assetID}/transactions"
	mux.Handle("POST "+nested, protect(http.HandlerFunc(h.handlePost)))
	mux.Handle("GET "+nested, protect(http.HandlerFunc(h.handleListAsset)))
	mux.Handle("GET "+nested+"/{transactionID}", protect(http.HandlerFunc(h.handleGetNested)))
	mux.Handle("GET /portfolios/{portfolioID}/transactions", protect(http.HandlerFunc(h.handleListPortfolio)))
	mux.Handle("GET /transactions", protect(http.HandlerFunc(h.handleListAll)))
	mux.Handle("GET /transactions/{transactionID}", protect(http.HandlerFunc(h.handleGet)))
}

func (h *TransactionHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	asset, err := ownedAsset(r, h.store)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.TransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.PricePerUnit) > 0 || len(req.TotalValue) > 0 {
		writeError(w, r, invalid("price_per_unit and total_value are computed by the server"))
		return
	}
	if req.Quantity == nil {
		writeError(w, r, invalid("quantity is required"))
		return
	}

	tx, err := h.ledger.Post(r.Context(), principal(r).AccountID, asset.ID, models.TransactionType(req.Type), *req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "Transaction recorded successfully", tx)
}

func (h *TransactionHandler) handleListAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := ownedAsset(r, h.store)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.list(w, r, storage.TransactionFilter{OwnerID: principal(r).AccountID, AssetID: asset.ID})
}

func (h *TransactionHandler) handleListPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, err := ownedPortfolio(r, h.store)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.list(w, r, storage.TransactionFilter{OwnerID: principal(r).AccountID, PortfolioID: portfolio.ID})
}

func (h *TransactionHandler) handleListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, storage.TransactionFilter{OwnerID: principal(r).AccountID})
}

func (h *TransactionHandler) list(w http.ResponseWriter, r *http.Request, filter storage.TransactionFilter) {
	page, err := pageRequest(r, h.pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := h.store.ListTransactions(r.Context(), filter, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, next := storage.Paginate(txs, h.pageSize, func(t models.Transaction) storage.Cursor {
		return storage.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	respond.JSON(w, http.StatusOK, "transactions", dto.Page[models.Transaction]{Results: txs, NextCursor: next})
}

func (h *TransactionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	tx, err := h.ownedTransaction(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "transaction", tx)
}

func (h *TransactionHandler) handleGetNested(w http.ResponseWriter, r *http.Request) {
	asset, err := ownedAsset(r, h.store)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.ownedTransaction(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tx.AssetID != asset.ID {
		writeError(w, r, auth.ErrNotAuthorized)
		return
	}
	respond.JSON(w, http.StatusOK, "transaction", tx)
}

func (h *TransactionHandler) ownedTransaction(r *http.Request) (models.Transaction, error) {
	id, err := pathID(r, "transactionID")
	if err != nil {
		return models.Transaction{}, err
	}
	tx, err := h.store.GetTransaction(r.Context(), id)
	if err != nil {
		return models.Transaction{}, err
	}
	if err := auth.Authorize(principal(r).AccountID, tx); err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}
