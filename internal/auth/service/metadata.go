package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/kbauth/internal/auth/domain"
	"github.com/aussiebroadwan/kbauth/pkg/authsdk"
)

// Endpoint paths, relative to the issuer.
const (
	PathAuthorize                   = "/authorize"
	PathToken                       = "/token"
	PathRegister                    = "/register"
	PathJWKS                        = "/.well-known/jwks.json"
	PathAuthorizationServerMetadata = "/.well-known/oauth-authorization-server"
	PathProtectedResourceMetadata   = "/.well-known/oauth-protected-resource"
)

// Metadata holds the discovery documents rendered once at startup. Serving
// the same bytes on every call keeps them identical across requests.
type Metadata struct {
	AuthorizationServer []byte
	ProtectedResource   []byte

	// ResourceMetadataURL is the absolute URL of the protected resource
	// document, advertised in WWW-Authenticate challenges.
	ResourceMetadataURL string

	// Scopes is the configured scope set. A bearer token must carry one of
	// them to reach a protected route.
	Scopes []string
}

// NewMetadata renders both documents. resource defaults to issuer.
func NewMetadata(issuer, resource string, scopes domain.Scope) (*Metadata, error) {
	issuer = strings.TrimRight(issuer, "/")
	if issuer == "" {
		return nil, fmt.Errorf("metadata: issuer is required")
	}
	if resource == "" {
		resource = issuer
	}
	supported := append([]string{}, scopes...)

	as, err := json.Marshal(authsdk.AuthorizationServerMetadata{
		Issuer:                            issuer,
		AuthorizationEndpoint:             issuer + PathAuthorize,
		TokenEndpoint:                     issuer + PathToken,
		RegistrationEndpoint:              issuer + PathRegister,
		JWKSURI:                           issuer + PathJWKS,
		ScopesSupported:                   supported,
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{GrantTypeAuthorizationCode, GrantTypeRefreshToken},
		CodeChallengeMethodsSupported:     []string{CodeChallengeMethodS256},
		TokenEndpointAuthMethodsSupported: []string{domain.AuthMethodNone, domain.AuthMethodClientSecretPost, domain.AuthMethodClientSecretBasic},
	})
	if err != nil {
		return nil, err
	}

	pr, err := json.Marshal(authsdk.ProtectedResourceMetadata{
		Resource:               resource,
		AuthorizationServers:   []string{issuer},
		ScopesSupported:        supported,
		BearerMethodsSupported: []string{"header"},
	})
	if err != nil {
		return nil, err
	}

	return &Metadata{
		AuthorizationServer: as,
		ProtectedResource:   pr,
		ResourceMetadataURL: issuer + PathProtectedResourceMetadata,
		Scopes:              supported,
	}, nil
}
