package utils

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Sup3r$ecret", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, "Sup3r$ecret", hash)

	require.True(t, VerifyPassword(hash, "Sup3r$ecret"))
	require.False(t, VerifyPassword(hash, "sup3r$ecret"))
	require.False(t, VerifyPassword("not-a-hash", "Sup3r$ecret"))
}

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Sup3r$ecret", false},
		{"too short", "Ab1$", true},
		{"too long", "A1$" + strings.Repeat("a", 70), true},
		{"no uppercase", "sup3r$ecret", true},
		{"no lowercase", "SUP3R$ECRET", true},
		{"no digit", "Super$ecret", true},
		{"no special", "Sup3rSecret", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := ValidatePassword(tc.password)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrWeakPassword)
				require.NotEmpty(t, msg)
			} else {
				require.NoError(t, err)
				require.Empty(t, msg)
			}
		})
	}
}
