package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/aussiebroadwan/kbauth/internal/auth/service"
	"github.com/aussiebroadwan/kbauth/pkg/authsdk"
	"github.com/aussiebroadwan/kbauth/pkg/httpx"
	"github.com/aussiebroadwan/kbauth/pkg/slogx"
)

const maxRegisterBody = 64 << 10

var (
	supportedGrantTypes    = []string{service.GrantTypeAuthorizationCode, service.GrantTypeRefreshToken}
	supportedResponseTypes = []string{"code"}
)

// RegisterHandler serves POST /register (RFC 7591 dynamic client registration).
type RegisterHandler struct {
	ClientService *service.ClientService
}

// ServeHTTP godoc
//
//	@Summary		Dynamic Client Registration
//	@Description	Registers a new OAuth client. Identical requests create independent clients.
//	@Description	Public clients (token_endpoint_auth_method=none) get no secret; confidential ones get a secret shown only once.
//	@Tags			OAuth2
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest		true	"Client metadata"
//	@Success		201		{object}	authsdk.RegisterResponse	"Registered client"
//	@Failure		400		{object}	authsdk.ErrorResponse		"invalid_redirect_uri or invalid_client_metadata"
//	@Failure		429		{object}	authsdk.ErrorResponse		"rate_limit_exceeded"
//	@Router			/register [post]
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}

	var req authsdk.RegisterRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRegisterBody)).Decode(&req); err != nil {
		authsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}

	if !subsetOf(req.GrantTypes, supportedGrantTypes) || !subsetOf(req.ResponseTypes, supportedResponseTypes) {
		authsdk.ErrInvalidClientMetadata.WriteError(w)
		return
	}

	reg, err := h.ClientService.Register(ctx, service.RegisterRequest{
		RedirectURIs:            req.RedirectURIs,
		ClientName:              req.ClientName,
		TokenEndpointAuthMethod: req.TokenEndpointAuthMethod,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRedirectURI):
			authsdk.ErrInvalidRedirectURI.WriteError(w)
		case errors.Is(err, service.ErrInvalidClientMetadata):
			authsdk.ErrInvalidClientMetadata.WriteError(w)
		default:
			log.Error("client registration failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	c := reg.Client
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, authsdk.RegisterResponse{
		ClientID:                c.ID,
		ClientSecret:            reg.Secret,
		ClientIDIssuedAt:        c.CreatedAt.Unix(),
		ClientSecretExpiresAt:   0,
		ClientName:              c.Name,
		RedirectURIs:            c.RedirectURIs,
		GrantTypes:              supportedGrantTypes,
		ResponseTypes:           supportedResponseTypes,
		TokenEndpointAuthMethod: c.TokenEndpointAuthMethod,
	})
}

func subsetOf(values, allowed []string) bool {
	for _, v := range values {
		if !slices.Contains(allowed, v) {
			return false
		}
	}
	return true
}
