package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hongminglow/coinfolio-be/internal/auth"
	"github.com/hongminglow/coinfolio-be/internal/http/respond"
	"github.com/hongminglow/coinfolio-be/internal/ledger"
	"github.com/hongminglow/coinfolio-be/internal/log"
	"github.com/hongminglow/coinfolio-be/internal/pricing"
	"github.com/hongminglow/coinfolio-be/internal/storage"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

const notAuthorizedMessage = "You do not have permission to perform this action."

// Protect wraps routes that require an authenticated principal.
type Protect func(http.Handler) http.Handler

// writeError maps domain errors to status codes. Unknown and foreign resources
// produce the same response so existence is not revealed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrNotAuthorized), errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusForbidden, respond.CodeNotAuthorized, notAuthorizedMessage)
	case errors.Is(err, ledger.ErrInvalidArgument), errors.Is(err, storage.ErrInvalidCursor):
		respond.Error(w, http.StatusBadRequest, respond.CodeInvalidArgument, err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance):
		respond.Error(w, http.StatusConflict, respond.CodeInsufficientBalance, "Insufficient balance.")
	case errors.Is(err, ledger.ErrPriceUnavailable), errors.Is(err, pricing.ErrPriceUnavailable):
		respond.Error(w, http.StatusServiceUnavailable, respond.CodePriceUnavailable, "Could not fetch live price for the asset.")
	case errors.Is(err, storage.ErrAlreadyExists):
		respond.Error(w, http.StatusConflict, respond.CodeAlreadyExists, "resource already exists")
	default:
		log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternal, "internal error")
	}
}

// invalid builds an ErrInvalidArgument with a client-facing message.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ledger.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return invalid("invalid JSON payload")
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("%s must be a positive integer", name)
	}
	return id, nil
}

// principal returns the caller resolved by the auth middleware.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

// pageRequest reads ?cursor= and asks storage for one row more than size,
// so storage.Paginate can tell whether another page exists.
func pageRequest(r *http.Request, size int) (storage.PageRequest, error) {
	after, err := storage.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		return storage.PageRequest{}, err
	}
	return storage.PageRequest{Limit: size + 1, After: after}, nil
}
