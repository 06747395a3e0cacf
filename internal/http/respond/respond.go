package respond

import (
	"encoding/json"
	"net/http"

	"github.com/hongminglow/coinfolio-be/internal/log"
)

// Stable machine-readable error codes carried in Envelope.Error.
const (
	CodeInvalidArgument     = "invalid_argument"
	CodeUnauthenticated     = "unauthenticated"
	CodeNotAuthorized       = "not_authorized"
	CodeInsufficientBalance = "insufficient_balance"
	CodeAlreadyExists       = "already_exists"
	CodePriceUnavailable    = "price_unavailable"
	CodeInternal            = "internal"
)

// Envelope is the standard API response wrapper used across handlers.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes a success or informational response using the common envelope.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Code: status, Message: message, Data: data})
}

// Error writes an error response with the shared envelope structure.
func Error(w http.ResponseWriter, status int, code, message string) {
	write(w, status, Envelope{Code: status, Message: message, Error: code})
}

func write(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("respond: encode payload failed: %v", err)
	}
}
