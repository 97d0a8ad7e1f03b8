package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "context"  // context carries the per-request deadline into store lookups
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming
    "time"     // bounded timeout for authorization lookups

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/taskify/internal/config"     // public prefix allow-list
    "github.com/iliyamo/taskify/internal/repository" // user record and sentinel errors
    "github.com/iliyamo/taskify/internal/utils"      // token parsing
)

// TokenStore is the slice of the token repository the middleware needs:
// membership checks against the revocation set.
type TokenStore interface {
    IsRevoked(ctx context.Context, jti string) (bool, error)
}

// UserStore loads the subject of a token.  The lookup goes to the primary
// store on every request so a deactivation takes effect on the very next
// call, even while the token itself is still formally valid.
type UserStore interface {
    GetByID(ctx context.Context, id uint64) (repository.User, error)
}

// Auth returns the global authorization middleware.  Paths matching one of
// the configured public prefixes pass through untouched, as do CORS
// preflight requests.  Every other request must carry a Bearer token that
// (1) verifies against the signing secret, (2) has a jti outside the
// revocation set and (3) belongs to an existing, active user.  On success
// the authenticated user's id, email and full record are stored in the
// Echo context under "user_id", "email" and "user".
func Auth(cfg config.Config, tokens TokenStore, users UserStore) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            // CORS preflight carries no credentials.
            if req.Method == http.MethodOptions {
                return next(c)
            }
            for _, p := range cfg.PublicPrefixes {
                if strings.HasPrefix(req.URL.Path, p) {
                    return next(c)
                }
            }

            auth := req.Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return unauthorized(c, "Missing or invalid token")
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            claims, err := utils.ParseToken(cfg.JWTSecret, raw)
            if err != nil {
                return unauthorized(c, "Invalid or expired token")
            }

            ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
            defer cancel()

            revoked, err := tokens.IsRevoked(ctx, claims.JTI)
            if err != nil {
                // Fail closed: a store failure during authorization must not
                // grant access, and must not escape as a bare error either.
                return storeFailure(c, err)
            }
            if revoked {
                return unauthorized(c, "Token has been revoked")
            }

            u, err := users.GetByID(ctx, claims.UserID)
            if err != nil && err != repository.ErrNotFound {
                return storeFailure(c, err)
            }
            if err == repository.ErrNotFound || !u.IsActive {
                return unauthorized(c, "User not found or inactive")
            }

            c.Set("user_id", u.ID)
            c.Set("email", u.Email)
            c.Set("user", u)
            c.Set("claims", claims)
            return next(c)
        }
    }
}

// unauthorized writes the uniform 401 envelope.
func unauthorized(c echo.Context, message string) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{
        "success": false,
        "message": message,
        "data":    nil,
        "error":   "Unauthorized",
    })
}

// storeFailure converts an unexpected persistence error during
// authorization into a structured 500 response.
func storeFailure(c echo.Context, err error) error {
    return c.JSON(http.StatusInternalServerError, echo.Map{
        "success": false,
        "message": "Unexpected error in middleware",
        "data":    nil,
        "error":   err.Error(),
    })
}
