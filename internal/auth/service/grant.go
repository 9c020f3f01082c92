package service

import (
	"net/url"
	"strings"
)

// Grant types accepted at the token endpoint.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
)

// Grant is the closed set of token requests. The unexported method keeps
// other packages from adding variants, so a type switch over Grant is
// exhaustive.
type Grant interface {
	GrantType() string
	sealed()
}

// AuthorizationCodeGrant redeems an authorization code.
type AuthorizationCodeGrant struct {
	Code         string
	RedirectURI  string
	CodeVerifier string
}

// RefreshTokenGrant rotates a refresh token, optionally narrowing scope.
type RefreshTokenGrant struct {
	RefreshToken string
	Scope        string
}

func (AuthorizationCodeGrant) GrantType() string { return GrantTypeAuthorizationCode }
func (RefreshTokenGrant) GrantType() string      { return GrantTypeRefreshToken }

func (AuthorizationCodeGrant) sealed() {}
func (RefreshTokenGrant) sealed()      {}

// ParseGrant reads the grant from a token request form. A missing
// grant_type or missing grant parameters are ErrInvalidRequest; any other
// grant_type is ErrUnsupportedGrantType.
func ParseGrant(form url.Values) (Grant, error) {
	get := func(k string) string { return strings.TrimSpace(form.Get(k)) }

	switch gt := get("grant_type"); gt {
	case "":
		return nil, ErrInvalidRequest
	case GrantTypeAuthorizationCode:
		g := AuthorizationCodeGrant{
			Code:         get("code"),
			RedirectURI:  form.Get("redirect_uri"),
			CodeVerifier: get("code_verifier"),
		}
		if g.Code == "" || g.RedirectURI == "" || g.CodeVerifier == "" {
			return nil, ErrInvalidRequest
		}
		return g, nil
	case GrantTypeRefreshToken:
		g := RefreshTokenGrant{
			RefreshToken: get("refresh_token"),
			Scope:        get("scope"),
		}
		if g.RefreshToken == "" {
			return nil, ErrInvalidRequest
		}
		return g, nil
	default:
		return nil, ErrUnsupportedGrantType
	}
}
