package service_test

import (
	"net/url"
	"testing"

	"github.com/aussiebroadwan/kbauth/internal/auth/service"
	"github.com/stretchr/testify/require"
)

func TestParseGrant(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		form   url.Values
		expect service.Grant
		err    error
	}{
		{
			name:   "authorization code",
			form:   url.Values{"grant_type": {"authorization_code"}, "code": {"c"}, "redirect_uri": {redirectURI}, "code_verifier": {"v"}},
			expect: service.AuthorizationCodeGrant{Code: "c", RedirectURI: redirectURI, CodeVerifier: "v"},
		},
		{
			name:   "refresh token with scope",
			form:   url.Values{"grant_type": {"refresh_token"}, "refresh_token": {"r"}, "scope": {"kb:read"}},
			expect: service.RefreshTokenGrant{RefreshToken: "r", Scope: "kb:read"},
		},
		{
			name:   "redirect uri kept verbatim",
			form:   url.Values{"grant_type": {"authorization_code"}, "code": {" c "}, "redirect_uri": {redirectURI + " "}, "code_verifier": {"v"}},
			expect: service.AuthorizationCodeGrant{Code: "c", RedirectURI: redirectURI + " ", CodeVerifier: "v"},
		},
		{name: "missing grant type", form: url.Values{}, err: service.ErrInvalidRequest},
		{name: "unknown grant type", form: url.Values{"grant_type": {"password"}}, err: service.ErrUnsupportedGrantType},
		{name: "client credentials unsupported", form: url.Values{"grant_type": {"client_credentials"}}, err: service.ErrUnsupportedGrantType},
		{name: "code without verifier", form: url.Values{"grant_type": {"authorization_code"}, "code": {"c"}, "redirect_uri": {redirectURI}}, err: service.ErrInvalidRequest},
		{name: "code without redirect", form: url.Values{"grant_type": {"authorization_code"}, "code": {"c"}, "code_verifier": {"v"}}, err: service.ErrInvalidRequest},
		{name: "refresh without token", form: url.Values{"grant_type": {"refresh_token"}}, err: service.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g, err := service.ParseGrant(tt.form)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				require.Nil(t, g)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expect, g)
			require.Equal(t, tt.form.Get("grant_type"), g.GrantType())
		})
	}
}
