package http

import (
	"net/http"

	"github.com/aussiebroadwan/kbauth/pkg/authsdk"
	"github.com/aussiebroadwan/kbauth/pkg/httpx"
	"github.com/aussiebroadwan/kbauth/pkg/jwtx"
)

// JWKSHandler exposes the public half of the signing key so resource
// servers can verify access tokens offline.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify access tokens.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get]
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=300")
		httpx.WriteJSON(w, http.StatusOK, authsdk.JWKSResponse(keys.PublicJWKS()))
	}
}
