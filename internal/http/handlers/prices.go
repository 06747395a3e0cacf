package handlers

import (
	"net/http"
	"strings"

	"github.com/hongminglow/coinfolio-be/internal/http/respond"
	"github.com/hongminglow/coinfolio-be/internal/pricing"
)

// PriceHandler exposes raw oracle lookups.
type PriceHandler struct {
	oracle   pricing.Oracle
	currency string
}

// NewPriceHandler quotes in currency unless the request overrides it with ?currency=.
func NewPriceHandler(oracle pricing.Oracle, currency string) *PriceHandler {
	return &PriceHandler{oracle: oracle, currency: currency}
}

func (h *PriceHandler) Register(mux *http.ServeMux, protect Protect) {
	mux.Handle("GET /prices/{coinID}", protect(http.HandlerFunc(h.handleQuote)))
}

func (h *PriceHandler) handleQuote(w http.ResponseWriter, r *http.Request) {
	currency := strings.TrimSpace(r.URL.Query().Get("currency"))
	if currency == "" {
		currency = h.currency
	}
	quote := pricing.Lookup(r.Context(), h.oracle, r.PathValue("coinID"), currency)
	if !quote.Success {
		respond.Error(w, http.StatusServiceUnavailable, respond.CodePriceUnavailable, quote.Message)
		return
	}
	respond.JSON(w, http.StatusOK, "price", quote)
}
