package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/coinfolio-be/internal/auth"
	"github.com/hongminglow/coinfolio-be/internal/middleware"
	"github.com/hongminglow/coinfolio-be/internal/models"
	"github.com/hongminglow/coinfolio-be/internal/models/dto"
	"github.com/hongminglow/coinfolio-be/internal/storage/postgres"
)

// TestAuthIntegration exercises register/login/logout against a live Postgres database.
func TestAuthIntegration(t *testing.T) {
	if os.Getenv("RUN_AUTH_INTEGRATION") != "true" {
		t.Skip("set RUN_AUTH_INTEGRATION=true to run this integration test")
	}

	loadDotEnv()
	dbURL := mustGetEnv(t, "DATABASE_URL")

	store, err := postgres.New(t.Context(), dbURL)
	require.NoError(t, err, "init store")
	defer store.Close()

	tokens := auth.NewTokenManager(mustGetEnv(t, "JWT_SECRET"), mustGetEnv(t, "JWT_ISSUER"), mustGetTTL(t))
	protect := func(next http.Handler) http.Handler { return middleware.RequireAuth(tokens, store, next) }

	mux := http.NewServeMux()
	NewAuthHandler(store, store, tokens).Register(mux, protect)
	NewProfileHandler(store).Register(mux, protect)

	ts := httptest.NewServer(mux)
	defer ts.Close()
	h := &harness{t: t, url: ts.URL}

	username := fmt.Sprintf("apitest_%d", time.Now().UnixNano())
	email := fmt.Sprintf("%s@example.com", username)
	phone := fmt.Sprintf("+1555%07d", time.Now().UnixNano()%1_000_0000)
	password := fmt.Sprintf("Pass!%d", time.Now().UnixNano())

	status, env := h.do(http.MethodPost, "/register", "", map[string]string{
		"username": username,
		"email":    email,
		"phone":    phone,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var account models.Account
	decode(t, env, &account)
	assert.Equal(t, username, account.Username)
	assert.Equal(t, email, account.Email)

	status, env = h.do(http.MethodPost, "/login", "", map[string]string{"identifier": email, "password": password})
	require.Equal(t, http.StatusOK, status)
	var login dto.LoginResponse
	decode(t, env, &login)
	assert.Equal(t, account.ID, login.User.ID)
	require.NotEmpty(t, strings.TrimSpace(login.Token))

	status, env = h.do(http.MethodGet, "/profile", login.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var profile models.Profile
	decode(t, env, &profile)
	assert.Equal(t, phone, profile.PhoneNumber)

	status, _ = h.do(http.MethodPost, "/logout", login.Token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = h.do(http.MethodGet, "/profile", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	t.Logf("created account %s (id=%d), logged in and out", username, account.ID)
}

func mustGetEnv(t *testing.T, key string) string {
	t.Helper()
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		t.Fatalf("%s is required", key)
	}
	return val
}

func mustGetTTL(t *testing.T) time.Duration {
	t.Helper()
	minutesStr := mustGetEnv(t, "JWT_TTL_MINUTES")
	minutes, err := strconv.Atoi(minutesStr)
	if err != nil || minutes <= 0 {
		t.Fatalf("invalid JWT_TTL_MINUTES value: %q", minutesStr)
	}
	return time.Duration(minutes) * time.Minute
}

func loadDotEnv() {
	paths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
		"../../../../.env",
	}
	for _, path := range paths {
		_ = godotenv.Overload(path)
	}
}
