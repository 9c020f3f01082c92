package httpx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/kbauth/pkg/httpx"
	"github.com/aussiebroadwan/kbauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://auth.example"
	testMetadata = "https://kb.example/.well-known/oauth-protected-resource"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler, mark("a"), mark("b"), mark("c"))
	serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer   abc  ", "abc", true},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		got, ok := httpx.BearerToken(req)
		require.Equal(t, tt.ok, ok, tt.header)
		require.Equal(t, tt.want, got, tt.header)
	}
}

func TestAuthnMiddleware(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer})
	require.NoError(t, err)

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := httpx.PrincipalFromContext(r.Context())
		require.True(t, ok)
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"sub":       p.Subject,
			"client_id": p.ClientID,
			"scopes":    p.Scopes,
		})
	})
	guarded := httpx.Chain(echo, httpx.AuthnMiddleware(km.Verifier, testMetadata))

	call := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/principal", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return serve(guarded, req)
	}

	sign := func(c jwtx.Claims) string {
		tok, err := km.Signer.Sign(c)
		require.NoError(t, err)
		return tok
	}

	t.Run("valid token sets principal", func(t *testing.T) {
		rec := call(sign(jwtx.NewAccessClaims(testIssuer, "owner", "client-1", "kb:read kb:write", time.Hour, time.Now())))
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Sub      string   `json:"sub"`
			ClientID string   `json:"client_id"`
			Scopes   []string `json:"scopes"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.Equal(t, "owner", body.Sub)
		require.Equal(t, "client-1", body.ClientID)
		require.Equal(t, []string{"kb:read", "kb:write"}, body.Scopes)
	})

	rejected := map[string]string{
		"missing":        "",
		"garbage":        "abc.def.ghi",
		"expired":        sign(jwtx.NewAccessClaims(testIssuer, "owner", "client-1", "kb:read", time.Second, time.Now().Add(-time.Minute))),
		"wrong issuer":   sign(jwtx.NewAccessClaims("https://other.example", "owner", "client-1", "kb:read", time.Hour, time.Now())),
		"blank audience": sign(jwtx.NewAccessClaims(testIssuer, "owner", "", "kb:read", time.Hour, time.Now())),
	}
	for name, token := range rejected {
		t.Run("rejects "+name, func(t *testing.T) {
			rec := call(token)
			require.Equal(t, http.StatusUnauthorized, rec.Code)

			challenge := rec.Header().Get("WWW-Authenticate")
			require.True(t, strings.HasPrefix(challenge, `Bearer error="invalid_token"`), challenge)
			require.Contains(t, challenge, `resource_metadata="`+testMetadata+`"`)
			require.NotContains(t, challenge, "error_description")
			require.Empty(t, rec.Body.String())
		})
	}
}

func TestRequireAnyScope(t *testing.T) {
	withScopes := func(scopes ...string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(httpx.WithPrincipal(req.Context(), httpx.Principal{Subject: "owner", Scopes: scopes}))
	}

	anyOf := httpx.RequireAnyScope("kb:read", "kb:write")(okHandler)
	require.Equal(t, http.StatusOK, serve(anyOf, withScopes("kb:write")).Code)
	require.Equal(t, http.StatusForbidden, serve(anyOf, withScopes("other")).Code)
	require.Equal(t, http.StatusForbidden, serve(anyOf, httptest.NewRequest(http.MethodGet, "/", nil)).Code)

	rec := serve(anyOf, withScopes("kb:admin"))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="insufficient_scope"`)
	require.Contains(t, rec.Body.String(), "insufficient_scope")
}
