package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestNewTokenRoundTrip(t *testing.T) {
	tok, err := NewToken(testSecret, 42, "a@b.c", 60, false)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)
	require.NotEmpty(t, tok.JTI)

	claims, err := ParseToken(testSecret, tok.Token)
	require.NoError(t, err)
	require.Equal(t, uint64(42), claims.UserID)
	require.Equal(t, "a@b.c", claims.Email)
	require.Equal(t, tok.JTI, claims.JTI)
	require.False(t, claims.Refresh)
	require.WithinDuration(t, tok.Exp, claims.ExpiresAt, time.Second)
}

func TestNewTokenDistinctJTIs(t *testing.T) {
	a, err := NewToken(testSecret, 1, "a@b.c", 60, false)
	require.NoError(t, err)
	b, err := NewToken(testSecret, 1, "a@b.c", 60, false)
	require.NoError(t, err)
	require.NotEqual(t, a.JTI, b.JTI)
	require.NotEqual(t, a.Token, b.Token)
}

func TestRefreshTokenFlagAndLifetime(t *testing.T) {
	tok, err := NewToken(testSecret, 7, "r@b.c", 5, true)
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, tok.Token)
	require.NoError(t, err)
	require.True(t, claims.Refresh)

	// ttlMin is ignored for refresh tokens; the seven-day window applies.
	want := time.Now().UTC().Add(RefreshTTLDays * 24 * time.Hour)
	require.WithinDuration(t, want, claims.ExpiresAt, time.Minute)
}

func TestParseTokenWrongSecret(t *testing.T) {
	tok, err := NewToken(testSecret, 1, "a@b.c", 60, false)
	require.NoError(t, err)

	_, err = ParseToken("other-secret", tok.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenExpired(t *testing.T) {
	tok, err := NewToken(testSecret, 1, "a@b.c", -1, false)
	require.NoError(t, err)

	_, err = ParseToken(testSecret, tok.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken(testSecret, "not.a.jwt")
	require.ErrorIs(t, err, ErrInvalidToken)
}
