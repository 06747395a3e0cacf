package middleware

import (
	"net/http"
	"strings"

	"github.com/hongminglow/coinfolio-be/internal/auth"
	"github.com/hongminglow/coinfolio-be/internal/http/respond"
	"github.com/hongminglow/coinfolio-be/internal/log"
	"github.com/hongminglow/coinfolio-be/internal/storage"
)

// RequireAuth rejects requests without a valid, unrevoked bearer token and stores
// the resolved principal in the request context.
func RequireAuth(tokens *auth.TokenManager, revoked storage.TokenStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthenticated, "authentication credentials were not provided")
			return
		}
		principal, err := tokens.Parse(raw)
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthenticated, "invalid or expired token")
			return
		}
		isRevoked, err := revoked.IsTokenRevoked(r.Context(), principal.TokenID)
		if err != nil {
			log.Errorf("auth: revocation lookup failed: %v", err)
			respond.Error(w, http.StatusInternalServerError, respond.CodeInternal, "internal error")
			return
		}
		if isRevoked {
			respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthenticated, "token has been revoked")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
