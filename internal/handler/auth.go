package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taskify/internal/config"
	"github.com/iliyamo/taskify/internal/repository"
	"github.com/iliyamo/taskify/internal/utils"
)

// AuthHandler bundles dependencies for session endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

// Login verifies credentials and returns an access/refresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusUnprocessableEntity, "body: invalid request body", "VALIDATION_ERROR")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusUnprocessableEntity, "email/password: required", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusUnauthorized, "Email Not Found", "Unauthorized")
		}
		return fail(c, http.StatusInternalServerError, "Unexpected error occurred", err.Error())
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "Invalid password", "Unauthorized")
	}
	if !u.IsActive {
		return fail(c, http.StatusForbidden, "Your account is inactive", "InactiveUser")
	}

	access, err := utils.NewToken(h.Cfg.JWTSecret, u.ID, u.Email, h.Cfg.AccessTTLMin, false)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to issue access token", err.Error())
	}
	refresh, err := utils.NewToken(h.Cfg.JWTSecret, u.ID, u.Email, 0, true)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to issue refresh token", err.Error())
	}

	return ok(c, http.StatusOK, "Login successful", echo.Map{
		"access_token":  access.Token,
		"refresh_token": refresh.Token,
		"token_type":    "bearer",
		"user_id":       u.ID,
		"email":         u.Email,
	})
}

// Logout revokes the presented access token by jti. Revoking a token twice
// is a conflict, not a no-op: the second call reports AlreadyRevoked.
func (h *AuthHandler) Logout(c echo.Context) error {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return fail(c, http.StatusUnauthorized, "Missing token", "Unauthorized")
	}
	claims, err := utils.ParseToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		return fail(c, http.StatusUnauthorized, "Invalid or expired token", "Unauthorized")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tokens.Revoke(ctx, claims.JTI, claims.ExpiresAt); err != nil {
		if errors.Is(err, repository.ErrAlreadyRevoked) {
			return fail(c, http.StatusConflict, "Token is already revoked", "AlreadyRevoked")
		}
		return fail(c, http.StatusInternalServerError, "Unexpected error occurred", err.Error())
	}
	return ok(c, http.StatusOK, "Token revoked successfully", nil)
}

// Refresh validates a refresh token and mints a new access token for the
// same subject. The refresh token itself is not rotated or revoked; calling
// this twice with the same refresh token yields two distinct access tokens.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return fail(c, http.StatusUnauthorized, "Missing refresh token", "Unauthorized")
	}

	claims, err := utils.ParseToken(h.Cfg.JWTSecret, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return fail(c, http.StatusUnauthorized, "Invalid or expired refresh token", "Unauthorized")
	}
	if !claims.Refresh {
		return fail(c, http.StatusUnauthorized, "Not a refresh token", "Unauthorized")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	revoked, err := h.Tokens.IsRevoked(ctx, claims.JTI)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Unexpected error occurred", err.Error())
	}
	if revoked {
		return fail(c, http.StatusUnauthorized, "Refresh token is revoked", "Unauthorized")
	}

	access, err := utils.NewToken(h.Cfg.JWTSecret, claims.UserID, claims.Email, h.Cfg.AccessTTLMin, false)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to issue access token", err.Error())
	}
	return ok(c, http.StatusOK, "Access token refreshed", echo.Map{
		"access_token": access.Token,
		"token_type":   "bearer",
	})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	u, okc := c.Get("user").(repository.User)
	if !okc {
		return fail(c, http.StatusUnauthorized, "Unauthorized", "Unauthorized")
	}
	return ok(c, http.StatusOK, "User fetched successfully", userJSON(u))
}
