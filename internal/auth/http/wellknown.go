package http

import (
	"net/http"

	"github.com/aussiebroadwan/kbauth/internal/auth/service"
	"github.com/aussiebroadwan/kbauth/pkg/httpx"
)

// AuthorizationServerMetadataHandler godoc
//
//	@Summary		Authorization server metadata
//	@Description	RFC 8414 authorization server metadata. The document is rendered at startup and served byte for byte.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.AuthorizationServerMetadata
//	@Router			/.well-known/oauth-authorization-server [get]
func AuthorizationServerMetadataHandler(md *service.Metadata) http.HandlerFunc {
	return rawDocument(md.AuthorizationServer)
}

// ProtectedResourceMetadataHandler godoc
//
//	@Summary		Protected resource metadata
//	@Description	RFC 9728 protected resource metadata, referenced from WWW-Authenticate challenges.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.ProtectedResourceMetadata
//	@Router			/.well-known/oauth-protected-resource [get]
func ProtectedResourceMetadataHandler(md *service.Metadata) http.HandlerFunc {
	return rawDocument(md.ProtectedResource)
}

func rawDocument(doc []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteRawJSON(w, http.StatusOK, doc)
	}
}
