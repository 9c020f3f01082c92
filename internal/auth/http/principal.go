package http

import (
	"net/http"

	"github.com/aussiebroadwan/kbauth/pkg/authsdk"
	"github.com/aussiebroadwan/kbauth/pkg/httpx"
)

// PrincipalHandler echoes the caller resolved by the bearer guard. It is the
// reference for how a resource server consumes access tokens.
//
//	@Summary		Current principal
//	@Description	Returns the subject, client and scopes of the presented access token.
//	@Tags			Resource
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.PrincipalResponse
//	@Failure		401	{string}	string	"WWW-Authenticate: Bearer error=\"invalid_token\""
//	@Failure		403	{string}	string	"WWW-Authenticate: Bearer error=\"insufficient_scope\""
//	@Router			/v1/principal [get]
func PrincipalHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := httpx.PrincipalFromContext(r.Context())
		if !ok {
			authsdk.ErrInvalidToken.WriteError(w)
			return
		}

		var exp int64
		if p.Claims.ExpiresAt != nil {
			exp = p.Claims.ExpiresAt.Unix()
		}
		httpx.NoCache(w)
		httpx.WriteJSON(w, http.StatusOK, authsdk.PrincipalResponse{
			Subject:   p.Subject,
			ClientID:  p.ClientID,
			Scopes:    p.Scopes,
			ExpiresAt: exp,
		})
	}
}
