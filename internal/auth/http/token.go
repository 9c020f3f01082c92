package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/kbauth/internal/auth/service"
	"github.com/aussiebroadwan/kbauth/pkg/authsdk"
	"github.com/aussiebroadwan/kbauth/pkg/httpx"
	"github.com/aussiebroadwan/kbauth/pkg/slogx"
)

// TokenHandler serves POST /token.
// Accepts application/x-www-form-urlencoded per RFC 6749.
type TokenHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth 2.1 Token Endpoint
//	@Description	Exchanges an authorization code (with PKCE verifier) or rotates a refresh token.
//	@Description	Clients authenticate with client_id alone (public), client_secret_post or client_secret_basic.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(authorization_code, refresh_token)
//	@Param			code			formData	string					false	"Authorization code (authorization_code grant)"
//	@Param			redirect_uri	formData	string					false	"Redirect URI the code was issued for (authorization_code grant)"
//	@Param			code_verifier	formData	string					false	"PKCE code_verifier (authorization_code grant)"
//	@Param			refresh_token	formData	string					false	"Refresh token (refresh_token grant)"
//	@Param			scope			formData	string					false	"Narrower scope for the new access token (refresh_token grant)"
//	@Param			client_id		formData	string					false	"Client identifier, unless sent with HTTP Basic"
//	@Param			client_secret	formData	string					false	"Client secret for client_secret_post clients"
//	@Success		200				{object}	authsdk.TokenResponse	"access_token, refresh_token, token_type, expires_in, scope"
//	@Failure		400				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		429				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		500				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/token [post]
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Ensure the right content-type
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}

	// 2. Parse the form body
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	// 3. Client credentials, from Basic or the body
	clientID, clientSecret, usedBasic, ok := clientCredentials(r)
	if !ok {
		authsdk.ErrInvalidRequest.WithDescription("client_id is required").WriteError(w)
		return
	}

	// 4. Grant
	grant, err := service.ParseGrant(r.PostForm)
	if err != nil {
		writeTokenError(w, err, usedBasic)
		return
	}

	pair, err := h.TokenService.Token(ctx, clientID, clientSecret, grant)
	if err != nil {
		if !writeTokenError(w, err, usedBasic) {
			log.Error("token grant failed", "grant_type", grant.GrantType(), "err", err)
		}
		return
	}

	response := authsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
		Scope:        pair.Scope,
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, response)
}

// clientCredentials reads client_id and client_secret from HTTP Basic or
// the form. Basic values are form-encoded per RFC 6749 section 2.3.1.
func clientCredentials(r *http.Request) (id, secret string, basic, ok bool) {
	if user, pass, found := r.BasicAuth(); found {
		var err error
		if id, err = url.QueryUnescape(user); err != nil {
			return "", "", true, false
		}
		if secret, err = url.QueryUnescape(pass); err != nil {
			return "", "", true, false
		}
		id = strings.TrimSpace(id)
		return id, secret, true, id != ""
	}

	id = strings.TrimSpace(r.PostForm.Get("client_id"))
	secret = r.PostForm.Get("client_secret")
	return id, secret, false, id != ""
}

// writeTokenError maps a service error onto its OAuth response. It reports
// false for errors that are not part of the OAuth vocabulary, which are
// written as server_error.
func writeTokenError(w http.ResponseWriter, err error, usedBasic bool) bool {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		authsdk.ErrInvalidRequest.WriteError(w)
	case errors.Is(err, service.ErrInvalidClient):
		if usedBasic {
			w.Header().Set("WWW-Authenticate", `Basic realm="kbauth"`)
		}
		authsdk.ErrInvalidClient.WriteError(w)
	case errors.Is(err, service.ErrInvalidGrant):
		authsdk.ErrInvalidGrant.WriteError(w)
	case errors.Is(err, service.ErrInvalidScope):
		authsdk.ErrInvalidScope.WriteError(w)
	case errors.Is(err, service.ErrUnsupportedGrantType):
		authsdk.ErrUnsupportedGrantType.WriteError(w)
	default:
		authsdk.ErrServerError.WriteError(w)
		return false
	}
	return true
}
