package service_test

import (
	"encoding/json"
	"testing"

	"github.com/aussiebroadwan/kbauth/internal/auth/service"
	"github.com/aussiebroadwan/kbauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestNewMetadata(t *testing.T) {
	md, err := service.NewMetadata(testIssuer+"/", "", testScopes)
	require.NoError(t, err)

	var as authsdk.AuthorizationServerMetadata
	require.NoError(t, json.Unmarshal(md.AuthorizationServer, &as))
	require.Equal(t, testIssuer, as.Issuer)
	require.Equal(t, testIssuer+"/authorize", as.AuthorizationEndpoint)
	require.Equal(t, testIssuer+"/token", as.TokenEndpoint)
	require.Equal(t, testIssuer+"/register", as.RegistrationEndpoint)
	require.Equal(t, testIssuer+"/.well-known/jwks.json", as.JWKSURI)
	require.Equal(t, []string{"code"}, as.ResponseTypesSupported)
	require.Equal(t, []string{"authorization_code", "refresh_token"}, as.GrantTypesSupported)
	require.Equal(t, []string{"S256"}, as.CodeChallengeMethodsSupported)
	require.Equal(t, []string{"none", "client_secret_post", "client_secret_basic"}, as.TokenEndpointAuthMethodsSupported)
	require.Equal(t, []string{"kb:read", "kb:write"}, as.ScopesSupported)

	var pr authsdk.ProtectedResourceMetadata
	require.NoError(t, json.Unmarshal(md.ProtectedResource, &pr))
	require.Equal(t, testIssuer, pr.Resource)
	require.Equal(t, []string{testIssuer}, pr.AuthorizationServers)
	require.Equal(t, []string{"header"}, pr.BearerMethodsSupported)
	require.Equal(t, testIssuer+"/.well-known/oauth-protected-resource", md.ResourceMetadataURL)

	_, err = service.NewMetadata("", "", testScopes)
	require.Error(t, err)
}

func TestNewMetadataIsDeterministic(t *testing.T) {
	a, err := service.NewMetadata(testIssuer, "https://kb.example.com/mcp", testScopes)
	require.NoError(t, err)
	b, err := service.NewMetadata(testIssuer, "https://kb.example.com/mcp", testScopes)
	require.NoError(t, err)
	require.Equal(t, a.AuthorizationServer, b.AuthorizationServer)
	require.Equal(t, a.ProtectedResource, b.ProtectedResource)
	require.Contains(t, string(a.ProtectedResource), `"resource":"https://kb.example.com/mcp"`)
}
