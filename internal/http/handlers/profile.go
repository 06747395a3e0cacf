package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/Rhymond/go-money"

	"github.com/hongminglow/coinfolio-be/internal/auth"
	"github.com/hongminglow/coinfolio-be/internal/http/respond"
	"github.com/hongminglow/coinfolio-be/internal/models/dto"
	"github.com/hongminglow/coinfolio-be/internal/storage"
)

const maxBioLength = 500

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	accounts storage.AccountStore
}

func NewProfileHandler(accounts storage.AccountStore) *ProfileHandler {
	return &ProfileHandler{accounts: accounts}
}

func (h *ProfileHandler) Register(mux *http.ServeMux, protect Protect) {
	mux.Handle("GET /profile", protect(http.HandlerFunc(h.handleGet)))
	mux.Handle("PATCH /profile", protect(http.HandlerFunc(h.handleUpdate)))
}

func (h *ProfileHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	accountID := principal(r).AccountID
	profile, err := h.accounts.GetProfile(r.Context(), accountID)
	if err == nil {
		err = auth.Authorize(accountID, profile)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "profile", profile)
}

func (h *ProfileHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req dto.ProfileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := profilePatch(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	profile, err := h.accounts.UpdateProfile(r.Context(), principal(r).AccountID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Profile updated successfully", profile)
}

func profilePatch(req dto.ProfileUpdateRequest) (storage.ProfilePatch, error) {
	patch := storage.ProfilePatch{
		PhoneNumber: trimmed(req.PhoneNumber),
		Bio:         req.Bio,
		AvatarURL:   trimmed(req.AvatarURL),
	}
	if patch.Bio != nil && utf8.RuneCountInString(*patch.Bio) > maxBioLength {
		return patch, invalid("bio must be at most %d characters", maxBioLength)
	}
	if patch.AvatarURL != nil && *patch.AvatarURL != "" {
		u, err := url.Parse(*patch.AvatarURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return patch, invalid("avatar_url must be an absolute http(s) URL")
		}
	}
	if req.PreferredCurrency != nil {
		code := strings.ToUpper(strings.TrimSpace(*req.PreferredCurrency))
		if money.GetCurrency(code) == nil {
			return patch, invalid("unknown currency %q", *req.PreferredCurrency)
		}
		patch.PreferredCurrency = &code
	}
	return patch, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
