package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taskify/internal/repository"
)

// Envelope is the uniform response body every endpoint returns, success or
// failure. Data is null on errors; Error is null on success.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Error   *string     `json:"error"`
}

// ok writes a success envelope.
func ok(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// fail writes a failure envelope with an error code string.
func fail(c echo.Context, status int, message, errCode string) error {
	return c.JSON(status, Envelope{Success: false, Message: message, Error: &errCode})
}

// repoError translates repository sentinel errors into envelope responses;
// anything unexpected becomes a 500 with the error text in the error field.
func repoError(c echo.Context, err error, notFoundMsg, conflictMsg string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, http.StatusNotFound, notFoundMsg, "NotFound")
	case errors.Is(err, repository.ErrConflict):
		return fail(c, http.StatusConflict, conflictMsg, "Conflict")
	case errors.Is(err, repository.ErrForbidden):
		return fail(c, http.StatusForbidden, "Forbidden", "Forbidden")
	default:
		return fail(c, http.StatusInternalServerError, "Unexpected error occurred", err.Error())
	}
}

// getUserID extracts the authenticated user id stored by the auth
// middleware. Handlers run behind that middleware, so a zero here only
// happens on public routes, which never call this.
func getUserID(c echo.Context) uint64 {
	v, _ := c.Get("user_id").(uint64)
	return v
}

// reqCtx derives a bounded context for persistence calls.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// clientIP is the audit attribution address for the request.
func clientIP(c echo.Context) string { return c.RealIP() }
