package utils // package utils provides helper functions for token creation and hashing

import (
    "errors"  // sentinel errors for token validation failures
    "strconv" // user IDs travel as decimal strings in the sub claim
    "time"    // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
    "github.com/google/uuid"       // uuid generates the unique jti per token
)

// RefreshTTLDays is the fixed lifetime of refresh tokens.  Access token
// lifetime is configurable; refresh tokens always live seven days.
const RefreshTTLDays = 7

// ErrInvalidToken is returned whenever a token cannot be trusted: bad
// signature, wrong signing algorithm, malformed payload or past expiry.
// Callers must not distinguish between those cases.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenClaims is the decoded payload of a session token.  Every issued
// token carries the subject (user id), the user's email, issue and expiry
// times, a globally unique jti and a flag marking refresh tokens.
type TokenClaims struct {
    UserID    uint64 // parsed from the "sub" claim
    Email     string // the "email" claim
    JTI       string // unique token identifier, the revocation key
    Refresh   bool   // true for refresh tokens, false for access tokens
    IssuedAt  time.Time
    ExpiresAt time.Time
}

// IssuedToken pairs a signed token string with the jti and expiry it was
// minted with, so callers can store or revoke it without re-parsing.
type IssuedToken struct {
    Token string    // the serialized JWT string
    JTI   string    // the uuid assigned to this token
    Exp   time.Time // the UTC expiration time
}

// NewToken builds and signs an HS256 JWT for a user.  Access tokens expire
// after ttlMin minutes; when refresh is true the ttlMin argument is ignored
// and the fixed RefreshTTLDays window applies.  Each call generates a fresh
// random jti, so two tokens minted for the same user are always distinct.
func NewToken(secret string, userID uint64, email string, ttlMin int, refresh bool) (IssuedToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    if refresh {
        exp = now.Add(RefreshTTLDays * 24 * time.Hour)
    }
    jti := uuid.NewString()
    // MapClaims keeps the wire shape identical to what clients already
    // consume: sub, email, iat, exp, jti, refresh.
    claims := jwt.MapClaims{
        "sub":     strconv.FormatUint(userID, 10),
        "email":   email,
        "iat":     now.Unix(),
        "exp":     exp.Unix(),
        "jti":     jti,
        "refresh": refresh,
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return IssuedToken{}, err
    }
    return IssuedToken{Token: signed, JTI: jti, Exp: exp}, nil
}

// ParseToken verifies the signature and expiry of a serialized token and
// returns its claims.  Any failure collapses into ErrInvalidToken: the
// caller only needs to know the token cannot be used.
func ParseToken(secret, raw string) (TokenClaims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // Reject tokens signed with anything but the HMAC family.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidToken
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return TokenClaims{}, ErrInvalidToken
    }
    mc, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return TokenClaims{}, ErrInvalidToken
    }

    var c TokenClaims
    sub, _ := mc["sub"].(string)
    c.UserID, err = strconv.ParseUint(sub, 10, 64)
    if err != nil {
        return TokenClaims{}, ErrInvalidToken
    }
    c.Email, _ = mc["email"].(string)
    c.JTI, _ = mc["jti"].(string)
    if c.JTI == "" {
        return TokenClaims{}, ErrInvalidToken
    }
    c.Refresh, _ = mc["refresh"].(bool)
    if iat, ok := mc["iat"].(float64); ok {
        c.IssuedAt = time.Unix(int64(iat), 0).UTC()
    }
    if exp, ok := mc["exp"].(float64); ok {
        c.ExpiresAt = time.Unix(int64(exp), 0).UTC()
    }
    return c, nil
}
