package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_Hash(t *testing.T) {
	h := PasswordHasher{Pepper: "test-pepper"}

	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"empty password", ""},
		{"unicode password", "пароль🔒密码"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"))
			require.Len(t, strings.Split(hash, "$"), 6)

			require.NoError(t, h.Verify(tt.password, hash))
			require.ErrorIs(t, h.Verify(tt.password+"x", hash), ErrPasswordMismatch)
		})
	}
}

func TestPasswordHasher_UniqueSalts(t *testing.T) {
	h := PasswordHasher{}
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestPasswordHasher_PepperMatters(t *testing.T) {
	hash, err := PasswordHasher{Pepper: "one"}.Hash("hunter2")
	require.NoError(t, err)

	require.NoError(t, PasswordHasher{Pepper: "one"}.Verify("hunter2", hash))
	require.ErrorIs(t, PasswordHasher{Pepper: "two"}.Verify("hunter2", hash), ErrPasswordMismatch)
}

func TestPasswordHasher_Bcrypt(t *testing.T) {
	raw, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	// bcrypt hashes come from outside tooling and never include the pepper.
	h := PasswordHasher{Pepper: "ignored"}
	require.NoError(t, h.Verify("hunter2", string(raw)))
	require.ErrorIs(t, h.Verify("hunter3", string(raw)), ErrPasswordMismatch)
}

func TestPasswordHasher_InvalidHashFormat(t *testing.T) {
	h := PasswordHasher{}
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"plaintext", "password"},
		{"md5 crypt", "$1$salt$hash"},
		{"too few parts", "$argon2id$v=19$m=1,t=1,p=1$salt"},
		{"wrong version", "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"bad params", "$argon2id$v=19$garbage$c2FsdA$aGFzaA"},
		{"bad salt", "$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Verify("password", tt.hash)
			require.ErrorIs(t, err, ErrUnsupportedHash)
		})
	}
}
