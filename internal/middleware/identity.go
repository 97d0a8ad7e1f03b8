package middleware

// identity.go provides helpers shared across middleware files for reading
// the authenticated identity out of the Echo context, where the Auth
// middleware stores it.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated user's id as a string, or "anon"
// for unauthenticated (public-prefix) requests. Used for rate-limit and
// cache key construction.
func currentUserID(c echo.Context) string {
	if v, ok := c.Get("user_id").(uint64); ok && v != 0 {
		return strconv.FormatUint(v, 10)
	}
	return "anon"
}
