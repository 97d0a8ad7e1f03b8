package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/taskify/internal/config"
	"github.com/iliyamo/taskify/internal/repository"
	"github.com/iliyamo/taskify/internal/utils"
)

const (
	handlerTestSecret = "handler-test-secret"
	userByEmailQuery  = "SELECT id,full_name,first_name,last_name,dob,age,email,phone_number,password_hash,is_active,profile_image,created_at,updated_at FROM auth_users WHERE email=? LIMIT 1"
	revokeInsertStmt  = "INSERT INTO revoked_tokens (jti, revoked_at, expires_at) VALUES (?,?,?)"
	revokedLookupStmt = "SELECT 1 FROM revoked_tokens WHERE jti=? LIMIT 1"
)

func testAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{JWTSecret: handlerTestSecret, AccessTTLMin: 60, BcryptCost: bcrypt.MinCost}
	return NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)), mock
}

func userRow(t *testing.T, id uint64, email, password string, active bool) *sqlmock.Rows {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now().UTC()
	return sqlmock.NewRows(strings.Split(
		"id,full_name,first_name,last_name,dob,age,email,phone_number,password_hash,is_active,profile_image,created_at,updated_at", ",")).
		AddRow(id, "Test User", "Test", "User", nil, nil, email, nil, hash, active, nil, now, now)
}

func postJSON(t *testing.T, handler echo.HandlerFunc, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestLoginIssuesTokenPair(t *testing.T) {
	h, mock := testAuthHandler(t)
	mock.ExpectQuery(userByEmailQuery).
		WithArgs("a@b.c").
		WillReturnRows(userRow(t, 1, "a@b.c", "Sup3r$ecret", true))

	rec := postJSON(t, h.Login, "/api/v1/auth/login", `{"email":"A@b.c","password":"Sup3r$ecret"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeEnvelope(t, rec)
	require.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	require.Equal(t, "bearer", data["token_type"])
	require.NotEmpty(t, data["access_token"])
	require.NotEmpty(t, data["refresh_token"])
	require.NotEqual(t, data["access_token"], data["refresh_token"])

	// The refresh token carries the refresh flag; the access token does not.
	access, err := utils.ParseToken(handlerTestSecret, data["access_token"].(string))
	require.NoError(t, err)
	require.False(t, access.Refresh)
	refresh, err := utils.ParseToken(handlerTestSecret, data["refresh_token"].(string))
	require.NoError(t, err)
	require.True(t, refresh.Refresh)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	h, mock := testAuthHandler(t)
	mock.ExpectQuery(userByEmailQuery).
		WithArgs("a@b.c").
		WillReturnRows(userRow(t, 1, "a@b.c", "Sup3r$ecret", true))

	rec := postJSON(t, h.Login, "/api/v1/auth/login", `{"email":"a@b.c","password":"wrong"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid password")
}

func TestLoginUnknownEmail(t *testing.T) {
	h, mock := testAuthHandler(t)
	mock.ExpectQuery(userByEmailQuery).
		WithArgs("ghost@b.c").
		WillReturnError(sql.ErrNoRows)

	rec := postJSON(t, h.Login, "/api/v1/auth/login", `{"email":"ghost@b.c","password":"x"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Email Not Found")
}

func TestLoginInactiveUser(t *testing.T) {
	h, mock := testAuthHandler(t)
	mock.ExpectQuery(userByEmailQuery).
		WithArgs("a@b.c").
		WillReturnRows(userRow(t, 1, "a@b.c", "Sup3r$ecret", false))

	rec := postJSON(t, h.Login, "/api/v1/auth/login", `{"email":"a@b.c","password":"Sup3r$ecret"}`, "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "inactive")
}

func TestLogoutRevokesJTI(t *testing.T) {
	h, mock := testAuthHandler(t)
	tok, err := utils.NewToken(handlerTestSecret, 1, "a@b.c", 60, false)
	require.NoError(t, err)

	mock.ExpectExec(revokeInsertStmt).
		WithArgs(tok.JTI, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := postJSON(t, h.Logout, "/api/v1/auth/logout", "", tok.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogoutTwiceConflicts(t *testing.T) {
	h, mock := testAuthHandler(t)
	tok, err := utils.NewToken(handlerTestSecret, 1, "a@b.c", 60, false)
	require.NoError(t, err)

	mock.ExpectExec(revokeInsertStmt).
		WithArgs(tok.JTI, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(revokeInsertStmt).
		WithArgs(tok.JTI, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errDuplicateJTI{})

	rec := postJSON(t, h.Logout, "/api/v1/auth/logout", "", tok.Token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, h.Logout, "/api/v1/auth/logout", "", tok.Token)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "already revoked")
	require.NoError(t, mock.ExpectationsWereMet())
}

type errDuplicateJTI struct{}

func (errDuplicateJTI) Error() string {
	return "Error 1062 (23000): Duplicate entry for key 'revoked_tokens.PRIMARY'"
}

// A refresh token can be redeemed repeatedly; each call mints a fresh
// access token and leaves the refresh token untouched.
func TestRefreshDoesNotRotate(t *testing.T) {
	h, mock := testAuthHandler(t)
	tok, err := utils.NewToken(handlerTestSecret, 1, "a@b.c", 0, true)
	require.NoError(t, err)

	mock.ExpectQuery(revokedLookupStmt).WithArgs(tok.JTI).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(revokedLookupStmt).WithArgs(tok.JTI).WillReturnError(sql.ErrNoRows)

	body := `{"refresh_token":"` + tok.Token + `"}`

	rec := postJSON(t, h.Refresh, "/api/v1/auth/refresh", body, "")
	require.Equal(t, http.StatusOK, rec.Code)
	first := decodeEnvelope(t, rec)["data"].(map[string]any)["access_token"].(string)

	rec = postJSON(t, h.Refresh, "/api/v1/auth/refresh", body, "")
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeEnvelope(t, rec)["data"].(map[string]any)["access_token"].(string)

	// Each mint carries its own jti, so revoking one access token can
	// never revoke the other.
	firstClaims, err := utils.ParseToken(handlerTestSecret, first)
	require.NoError(t, err)
	secondClaims, err := utils.ParseToken(handlerTestSecret, second)
	require.NoError(t, err)
	require.NotEqual(t, firstClaims.JTI, secondClaims.JTI)
	require.NotEqual(t, tok.JTI, firstClaims.JTI)
	require.False(t, firstClaims.Refresh)
	require.False(t, secondClaims.Refresh)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	h, _ := testAuthHandler(t)
	tok, err := utils.NewToken(handlerTestSecret, 1, "a@b.c", 60, false)
	require.NoError(t, err)

	rec := postJSON(t, h.Refresh, "/api/v1/auth/refresh", `{"refresh_token":"`+tok.Token+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Not a refresh token")
}

func TestRefreshRevokedToken(t *testing.T) {
	h, mock := testAuthHandler(t)
	tok, err := utils.NewToken(handlerTestSecret, 1, "a@b.c", 0, true)
	require.NoError(t, err)

	mock.ExpectQuery(revokedLookupStmt).
		WithArgs(tok.JTI).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	rec := postJSON(t, h.Refresh, "/api/v1/auth/refresh", `{"refresh_token":"`+tok.Token+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "revoked")
}
