package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/taskify/internal/config"
	"github.com/iliyamo/taskify/internal/repository"
	"github.com/iliyamo/taskify/internal/utils"
)

const authTestSecret = "auth-test-secret"

type stubTokens struct {
	revoked map[string]bool
	err     error
}

func (s stubTokens) IsRevoked(_ context.Context, jti string) (bool, error) {
	return s.revoked[jti], s.err
}

type stubUsers struct {
	users map[uint64]repository.User
	err   error
}

func (s stubUsers) GetByID(_ context.Context, id uint64) (repository.User, error) {
	if s.err != nil {
		return repository.User{}, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func authConfig() config.Config {
	return config.Config{
		JWTSecret:      authTestSecret,
		PublicPrefixes: []string{"/api/v1/auth/login", "/healthz"},
	}
}

// run sends one request through the Auth middleware into a handler that
// records whether it was reached.
func run(t *testing.T, cfg config.Config, tokens TokenStore, users UserStore, method, path, bearer string) (*httptest.ResponseRecorder, bool, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	h := Auth(cfg, tokens, users)(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, reached, c
}

func TestAuthMissingHeader(t *testing.T) {
	rec, reached, _ := run(t, authConfig(), stubTokens{}, stubUsers{}, http.MethodGet, "/api/v1/board/all", "")
	require.False(t, reached)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Missing or invalid token")
}

func TestAuthBadToken(t *testing.T) {
	rec, reached, _ := run(t, authConfig(), stubTokens{}, stubUsers{}, http.MethodGet, "/api/v1/board/all", "garbage")
	require.False(t, reached)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthPublicPrefixSkipsCheck(t *testing.T) {
	_, reached, _ := run(t, authConfig(), stubTokens{}, stubUsers{}, http.MethodPost, "/api/v1/auth/login", "")
	require.True(t, reached)
}

func TestAuthPreflightSkipsCheck(t *testing.T) {
	_, reached, _ := run(t, authConfig(), stubTokens{}, stubUsers{}, http.MethodOptions, "/api/v1/board/all", "")
	require.True(t, reached)
}

func TestAuthRevokedToken(t *testing.T) {
	tok, err := utils.NewToken(authTestSecret, 1, "a@b.c", 60, false)
	require.NoError(t, err)

	tokens := stubTokens{revoked: map[string]bool{tok.JTI: true}}
	rec, reached, _ := run(t, authConfig(), tokens, stubUsers{}, http.MethodGet, "/api/v1/board/all", tok.Token)
	require.False(t, reached)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Token has been revoked")
}

// A token stays formally valid after its user is deactivated; the per
// request lookup still rejects it immediately.
func TestAuthInactiveUser(t *testing.T) {
	tok, err := utils.NewToken(authTestSecret, 1, "a@b.c", 60, false)
	require.NoError(t, err)

	users := stubUsers{users: map[uint64]repository.User{
		1: {ID: 1, Email: "a@b.c", IsActive: false},
	}}
	rec, reached, _ := run(t, authConfig(), stubTokens{}, users, http.MethodGet, "/api/v1/board/all", tok.Token)
	require.False(t, reached)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "User not found or inactive")
}

func TestAuthUnknownUser(t *testing.T) {
	tok, err := utils.NewToken(authTestSecret, 9, "ghost@b.c", 60, false)
	require.NoError(t, err)

	rec, reached, _ := run(t, authConfig(), stubTokens{}, stubUsers{}, http.MethodGet, "/api/v1/board/all", tok.Token)
	require.False(t, reached)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

// Store failures during authorization fail closed with a 500, never open.
func TestAuthStoreFailure(t *testing.T) {
	tok, err := utils.NewToken(authTestSecret, 1, "a@b.c", 60, false)
	require.NoError(t, err)

	tokens := stubTokens{err: errors.New("connection refused")}
	rec, reached, _ := run(t, authConfig(), tokens, stubUsers{}, http.MethodGet, "/api/v1/board/all", tok.Token)
	require.False(t, reached)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "connection refused")
}

func TestAuthHappyPathContext(t *testing.T) {
	tok, err := utils.NewToken(authTestSecret, 1, "a@b.c", 60, false)
	require.NoError(t, err)

	users := stubUsers{users: map[uint64]repository.User{
		1: {ID: 1, Email: "a@b.c", IsActive: true},
	}}
	_, reached, c := run(t, authConfig(), stubTokens{}, users, http.MethodGet, "/api/v1/board/all", tok.Token)
	require.True(t, reached)
	require.Equal(t, uint64(1), c.Get("user_id"))
	require.Equal(t, "a@b.c", c.Get("email"))

	claims, ok := c.Get("claims").(utils.TokenClaims)
	require.True(t, ok)
	require.Equal(t, tok.JTI, claims.JTI)
}
