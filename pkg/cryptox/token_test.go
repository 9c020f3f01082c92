package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		length int
	}{
		{"128-bit token", TokenSize128, 22},
		{"256-bit token", TokenSize256, 43},
		{"512-bit token", TokenSize512, 86},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.Len(t, token, tt.length)

			other, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.NotEqual(t, token, other, "tokens should be unique")
		})
	}
}

func TestGenerateToken_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
	require.Panics(t, func() { MustGenerateToken(0) })
}

func TestFingerprintToken(t *testing.T) {
	fp := FingerprintToken("test-token-1")

	require.Equal(t, fp, FingerprintToken("test-token-1"), "fingerprint should be deterministic")
	require.NotEqual(t, fp, FingerprintToken("test-token-2"))
	require.Len(t, fp, 43, "SHA-256 base64url should be 43 chars")
}

func TestS256Challenge(t *testing.T) {
	// RFC 7636 appendix B
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	require.Equal(t, challenge, S256Challenge(verifier))
	require.True(t, VerifyS256(verifier, challenge))
	require.False(t, VerifyS256(verifier+"x", challenge))
	require.False(t, VerifyS256(verifier, ""))
}

func TestValidCodeVerifier(t *testing.T) {
	tests := []struct {
		name     string
		verifier string
		want     bool
	}{
		{"rfc example", "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk", true},
		{"max length", strings.Repeat("a", 128), true},
		{"unreserved punctuation", strings.Repeat("a", 40) + "-._~", true},
		{"too short", strings.Repeat("a", 42), false},
		{"too long", strings.Repeat("a", 129), false},
		{"illegal char", strings.Repeat("a", 42) + "+", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ValidCodeVerifier(tt.verifier))
		})
	}
}
