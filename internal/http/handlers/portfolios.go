package handlers

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/hongminglow/coinfolio-be/internal/auth"
	"github.com/hongminglow/coinfolio-be/internal/http/respond"
	"github.com/hongminglow/coinfolio-be/internal/models"
	"github.com/hongminglow/coinfolio-be/internal/models/dto"
	"github.com/hongminglow/coinfolio-be/internal/storage"
)

const maxPortfolioName = 100

// PortfolioHandler serves CRUD for the caller's portfolios. Portfolios are not paginated.
type PortfolioHandler struct {
	portfolios storage.PortfolioStore
}

func NewPortfolioHandler(portfolios storage.PortfolioStore) *PortfolioHandler {
	return &PortfolioHandler{portfolios: portfolios}
}

func (h *PortfolioHandler) Register(mux *http.ServeMux, protect Protect) {
	mux.Handle("POST /portfolios", protect(http.HandlerFunc(h.handleCreate)))
	mux.Handle("GET /portfolios", protect(http.HandlerFunc(h.handleList)))
	mux.Handle("GET /portfolios/{portfolioID}", protect(http.HandlerFunc(h.handleGet)))
	mux.Handle("PATCH /portfolios/{portfolioID}", protect(http.HandlerFunc(h.handleRename)))
	mux.Handle("DELETE /portfolios/{portfolioID}", protect(http.HandlerFunc(h.handleDelete)))
}

func (h *PortfolioHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	name, err := decodePortfolioName(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.portfolios.CreatePortfolio(r.Context(), models.Portfolio{OwnerID: principal(r).AccountID, Name: name})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "Portfolio created successfully", created)
}

func (h *PortfolioHandler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.portfolios.ListPortfolios(r.Context(), principal(r).AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "portfolios", list)
}

func (h *PortfolioHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	portfolio, err := ownedPortfolio(r, h.portfolios)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "portfolio", portfolio)
}

func (h *PortfolioHandler) handleRename(w http.ResponseWriter, r *http.Request) {
	portfolio, err := ownedPortfolio(r, h.portfolios)
	if err != nil {
		writeError(w, r, err)
		return
	}
	name, err := decodePortfolioName(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := h.portfolios.RenamePortfolio(r.Context(), portfolio.ID, name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Portfolio updated successfully", updated)
}

func (h *PortfolioHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	portfolio, err := ownedPortfolio(r, h.portfolios)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.portfolios.DeletePortfolio(r.Context(), portfolio.ID); err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Portfolio deleted successfully.", nil)
}

func decodePortfolioName(w http.ResponseWriter, r *http.Request) (string, error) {
	var req dto.PortfolioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return "", err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || utf8.RuneCountInString(name) > maxPortfolioName {
		return "", invalid("name must be between 1 and %d characters", maxPortfolioName)
	}
	return name, nil
}

// ownedPortfolio loads {portfolioID} and checks it belongs to the caller.
func ownedPortfolio(r *http.Request, portfolios storage.PortfolioStore) (models.Portfolio, error) {
	id, err := pathID(r, "portfolioID")
	if err != nil {
		return models.Portfolio{}, err
	}
	return loadPortfolio(r.Context(), portfolios, principal(r).AccountID, id)
}

func loadPortfolio(ctx context.Context, portfolios storage.PortfolioStore, accountID, id int64) (models.Portfolio, error) {
	portfolio, err := portfolios.GetPortfolio(ctx, id)
	if err != nil {
		return models.Portfolio{}, err
	}
	if err := auth.Authorize(accountID, portfolio); err != nil {
		return models.Portfolio{}, err
	}
	return portfolio, nil
}
