package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/kbauth/internal/auth/secrets"
	"github.com/aussiebroadwan/kbauth/pkg/authsdk"
	"github.com/aussiebroadwan/kbauth/pkg/cryptox"
	"github.com/aussiebroadwan/kbauth/pkg/jwtx"
	"github.com/aussiebroadwan/kbauth/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type mapSecrets map[string]string

func (m mapSecrets) Get(_ context.Context, name string) ([]byte, error) {
	v, ok := m[name]
	if !ok {
		return nil, secrets.ErrNotFound
	}
	return []byte(v), nil
}

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(name, []byte(content), 0o600))
}

func TestInitAuthKeysSecretMode(t *testing.T) {
	pemKey, err := cryptox.GenerateES256Key()
	require.NoError(t, err)

	cfg := validConfig()
	cfg.Algorithm = "ES256"

	km, err := InitAuthKeys(context.Background(), cfg, mapSecrets{secrets.SigningKey: string(pemKey)}, slogx.Discard())
	require.NoError(t, err)
	require.Equal(t, "ES256", km.Algorithm())
	require.True(t, km.IsReady())

	again, err := InitAuthKeys(context.Background(), cfg, mapSecrets{secrets.SigningKey: string(pemKey)}, slogx.Discard())
	require.NoError(t, err)
	require.Equal(t, km.Signer.KID(), again.Signer.KID(), "kid is derived from the key")
}

func TestInitAuthKeysMissingSecret(t *testing.T) {
	_, err := InitAuthKeys(context.Background(), validConfig(), mapSecrets{}, slogx.Discard())
	require.ErrorContains(t, err, "kbauth gen-key")
}

func TestInitAuthKeysEphemeral(t *testing.T) {
	cfg := validConfig()
	cfg.KeyMode = KeyModeEphemeral

	km, err := InitAuthKeys(context.Background(), cfg, mapSecrets{}, slogx.Discard())
	require.NoError(t, err)
	require.Equal(t, "EdDSA", km.Algorithm())
}

func TestInitAuthKeysAudiences(t *testing.T) {
	cfg := validConfig()
	cfg.KeyMode = KeyModeEphemeral
	cfg.Audiences = []string{"client-a"}

	km, err := InitAuthKeys(context.Background(), cfg, mapSecrets{}, slogx.Discard())
	require.NoError(t, err)

	token, err := km.Signer.Sign(jwtx.NewAccessClaims(cfg.Issuer, "owner", "client-a", "kb:read", time.Minute, time.Now()))
	require.NoError(t, err)
	_, err = km.Verifier.Verify(token)
	require.NoError(t, err)

	token, err = km.Signer.Sign(jwtx.NewAccessClaims(cfg.Issuer, "owner", "client-b", "kb:read", time.Minute, time.Now()))
	require.NoError(t, err)
	_, err = km.Verifier.Verify(token)
	require.Error(t, err)
}

func TestNewServesDiscovery(t *testing.T) {
	hash, err := cryptox.PasswordHasher{}.Hash("hunter22")
	require.NoError(t, err)

	t.Setenv(secrets.EnvName(secrets.OwnerPasswordHash), hash)

	cfg := validConfig()
	cfg.KeyMode = KeyModeEphemeral
	cfg.DatabaseFile = filepath.Join(t.TempDir(), "kbauth.db")
	cfg.LogFormat = "text"

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.db.Close() })

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/.well-known/oauth-authorization-server")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ready, err := authsdk.NewSDKClient(srv.URL).GetReadiness(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
}

func TestNewRequiresOwnerHash(t *testing.T) {
	t.Setenv(secrets.EnvName(secrets.OwnerPasswordHash), "")

	cfg := validConfig()
	cfg.KeyMode = KeyModeEphemeral
	cfg.DatabaseFile = filepath.Join(t.TempDir(), "kbauth.db")

	_, err := New(context.Background(), cfg)
	require.ErrorContains(t, err, "kbauth hash-password")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Issuer = ""

	_, err := New(context.Background(), cfg)
	require.ErrorContains(t, err, "invalid configuration")
}
