package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/hongminglow/coinfolio-be/internal/auth"
	"github.com/hongminglow/coinfolio-be/internal/http/respond"
	"github.com/hongminglow/coinfolio-be/internal/log"
	"github.com/hongminglow/coinfolio-be/internal/models"
	"github.com/hongminglow/coinfolio-be/internal/models/dto"
	"github.com/hongminglow/coinfolio-be/internal/storage"
)

// AuthHandler owns register/login/logout endpoints.
type AuthHandler struct {
	accounts storage.AccountStore
	revoked  storage.TokenStore
	tokens   *auth.TokenManager
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(accounts storage.AccountStore, revoked storage.TokenStore, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{accounts: accounts, revoked: revoked, tokens: tokens}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux, protect Protect) {
	mux.HandleFunc("POST /register", h.handleRegister)
	mux.HandleFunc("POST /login", h.handleLogin)
	mux.Handle("POST /logout", protect(http.HandlerFunc(h.handleLogout)))
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateCredentials(req.Username, req.Email, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Errorf("register: hash password: %v", err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternal, "failed to hash password")
		return
	}

	account := models.Account{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: passwordHash,
	}
	profile := models.Profile{PhoneNumber: normalizePhone(req), PreferredCurrency: models.DefaultCurrency}
	created, err := h.accounts.CreateAccount(r.Context(), account, profile)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			respond.Error(w, http.StatusConflict, respond.CodeAlreadyExists, "username or email is already in use")
			return
		}
		writeError(w, r, err)
		return
	}

	log.Infof("registered account %d (%s)", created.ID, created.Username)
	respond.JSON(w, http.StatusCreated, "User created successfully", created)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || strings.TrimSpace(req.Password) == "" {
		writeError(w, r, invalid("identifier and password are required"))
		return
	}
	account, err := h.accounts.FindByUsernameOrEmail(r.Context(), identifier)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthenticated, "invalid credentials")
			return
		}
		writeError(w, r, err)
		return
	}
	if !auth.CheckPassword(account.PasswordHash, req.Password) {
		respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthenticated, "invalid credentials")
		return
	}
	token, err := h.tokens.Generate(account)
	if err != nil {
		log.Errorf("login: generate token for %d: %v", account.ID, err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternal, "failed to generate token")
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", dto.LoginResponse{Token: token, User: account})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if err := h.revoked.RevokeToken(r.Context(), p.TokenID, p.ExpiresAt); err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Successfully logged out.", nil)
}

func normalizePhone(req dto.RegisterRequest) string {
	if trimmed := strings.TrimSpace(req.Phone); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(req.PhoneNumber)
}

func validateCredentials(username, email, password string) error {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if username == "" || email == "" {
		return invalid("username and email are required")
	}
	if utf8.RuneCountInString(username) > 150 {
		return invalid("username must be at most 150 characters")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return invalid("email address is not valid")
	}
	if len(strings.TrimSpace(password)) < 8 || !utf8.ValidString(password) {
		return invalid("password must be at least 8 characters")
	}
	return nil
}
