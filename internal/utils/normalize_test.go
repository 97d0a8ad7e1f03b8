package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Design Review", "designreview"},
		{"design review", "designreview"},
		{"  In-Progress ", "inprogress"},
		{"to_do", "todo"},
		{"To Do", "todo"},
		{"Done", "done"},
		{"a\tb\nc", "abc"},
		{"", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, NormalizeName(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeNameCollisions(t *testing.T) {
	// Names that differ only in case, spacing or separators collide.
	require.Equal(t, NormalizeName("Design Review"), NormalizeName("design-review"))
	require.Equal(t, NormalizeName("To Do"), NormalizeName("TO_DO"))
	require.NotEqual(t, NormalizeName("Backlog"), NormalizeName("Back log x"))
}

func TestNormalizeSQL(t *testing.T) {
	require.Equal(t,
		"REPLACE(REPLACE(REPLACE(LOWER(name), ' ', ''), '-', ''), '_', '')",
		NormalizeSQL("name"))
}
