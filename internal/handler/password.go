package handler

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taskify/internal/config"
	"github.com/iliyamo/taskify/internal/queue"
	"github.com/iliyamo/taskify/internal/repository"
	"github.com/iliyamo/taskify/internal/utils"
)

// PasswordHandler drives the three-step OTP password reset flow:
// request a code, verify it, then set the new password.
type PasswordHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
	OTPs  *repository.OTPRepo
}

func NewPasswordHandler(cfg config.Config, u *repository.UserRepo, o *repository.OTPRepo) *PasswordHandler {
	return &PasswordHandler{Cfg: cfg, Users: u, OTPs: o}
}

type emailReq struct {
	Email string `json:"email"`
}
type verifyOTPReq struct {
	Email string `json:"email"`
	OTP   int    `json:"otp"`
}
type resetPasswordReq struct {
	Email           string `json:"email"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// randomOTP returns a 6 digit code in [100000, 999999].
func randomOTP() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()) + 100000, nil
}

func remainingMinutes(expiresAt time.Time) int {
	m := int(math.Ceil(time.Until(expiresAt).Seconds() / 60))
	if m < 0 {
		m = 0
	}
	return m
}

// SendOTP issues a reset code for a registered email. While a previously
// issued code is still valid, re-requesting is a conflict that reports the
// minutes left.
func (h *PasswordHandler) SendOTP(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusUnprocessableEntity, "body: invalid request body", "VALIDATION_ERROR")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return fail(c, http.StatusUnprocessableEntity, "email: required", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusBadRequest, "Email Not Found", "Invalid Email")
		}
		return fail(c, http.StatusInternalServerError, "Unexpected error occurred", err.Error())
	}

	now := time.Now().UTC()
	existing, err := h.OTPs.GetByEmail(ctx, email)
	if err == nil && existing.ExpiresAt.After(now) {
		remaining := remainingMinutes(existing.ExpiresAt)
		return fail(c, http.StatusConflict,
			fmt.Sprintf("OTP already sent. Try again after %d minute(s).", remaining),
			"OTP already valid")
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusInternalServerError, "Unexpected error occurred", err.Error())
	}

	otp, err := randomOTP()
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to generate OTP", err.Error())
	}
	expiresAt := now.Add(time.Duration(h.Cfg.OTPExpiryMin) * time.Minute)
	if err := h.OTPs.Upsert(ctx, email, otp, expiresAt); err != nil {
		return fail(c, http.StatusInternalServerError, "Unexpected error occurred", err.Error())
	}

	// Delivery is off the request path; the code is already persisted, so
	// a broker outage only delays the mail.
	if h.Cfg.AMQPURL != "" {
		evt := queue.PasswordOTPEvent{
			Email: email, OTP: otp, ExpiryMinutes: h.Cfg.OTPExpiryMin,
			RequestedAt: now.Format(time.RFC3339),
		}
		go func() {
			pctx, pcancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer pcancel()
			_ = queue.Publish(pctx, h.Cfg.AMQPURL, queue.PasswordOTPQueue, evt)
		}()
	}

	return ok(c, http.StatusOK, "OTP Sent To Email successfully", nil)
}

// VerifyOTP checks a submitted code against the stored one and marks the
// row verified on a match.
func (h *PasswordHandler) VerifyOTP(c echo.Context) error {
	var req verifyOTPReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusUnprocessableEntity, "body: invalid request body", "VALIDATION_ERROR")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.OTP == 0 {
		return fail(c, http.StatusUnprocessableEntity, "email and otp are required", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rec, err := h.OTPs.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusBadRequest, "Invalid Email", "Email Not Found")
		}
		return fail(c, http.StatusInternalServerError, "Unexpected error occurred", err.Error())
	}
	if rec.IsVerified {
		return fail(c, http.StatusBadRequest, "OTP verified Recently. Try again after few minute(s).", "OTP_ALREADY_VERIFIED")
	}
	if rec.ExpiresAt.Before(time.Now().UTC()) {
		return fail(c, http.StatusBadRequest, "OTP expired", "Invalid OTP")
	}
	if rec.OTP != req.OTP {
		return fail(c, http.StatusBadRequest, "Expired or Wrong OTP", "Invalid OTP")
	}
	if err := h.OTPs.MarkVerified(ctx, rec.ID); err != nil {
		return fail(c, http.StatusInternalServerError, "Unexpected error occurred", err.Error())
	}
	return ok(c, http.StatusOK, "OTP verified successfully", nil)
}

// ResetPassword sets a new password after the code for the email has been
// verified. The OTP row is consumed on success.
func (h *PasswordHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusUnprocessableEntity, "body: invalid request body", "VALIDATION_ERROR")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.NewPassword == "" {
		return fail(c, http.StatusUnprocessableEntity, "email and new_password are required", "VALIDATION_ERROR")
	}
	if req.NewPassword != req.ConfirmPassword {
		return fail(c, http.StatusBadRequest, "Passwords do not match", "INVALID_PASSWORD")
	}
	if msg, err := utils.ValidatePassword(req.NewPassword); err != nil {
		return fail(c, http.StatusUnprocessableEntity, msg, "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rec, err := h.OTPs.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusBadRequest, "Invalid or expired OTP", "INVALID_OTP")
		}
		return fail(c, http.StatusInternalServerError, "Unexpected error occurred", err.Error())
	}
	if !rec.IsVerified {
		return fail(c, http.StatusBadRequest, "OTP not verified", "OTP_NOT_VERIFIED")
	}
	if rec.ExpiresAt.Before(time.Now().UTC()) {
		return fail(c, http.StatusBadRequest, "OTP expired", "OTP_EXPIRED")
	}

	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to hash password", err.Error())
	}
	if err := h.Users.UpdatePassword(ctx, email, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusBadRequest, "User not found", "INVALID_USER")
		}
		return fail(c, http.StatusInternalServerError, "Unexpected error occurred", err.Error())
	}
	if err := h.OTPs.Delete(ctx, rec.ID); err != nil {
		return fail(c, http.StatusInternalServerError, "Unexpected error occurred", err.Error())
	}
	return ok(c, http.StatusOK, "Password updated successfully", nil)
}
