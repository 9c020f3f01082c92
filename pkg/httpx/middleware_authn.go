package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/kbauth/pkg/jwtx"
	"github.com/aussiebroadwan/kbauth/pkg/slogx"
)

// AuthnMiddleware guards a resource with bearer access tokens. Verification
// is done entirely against v (signature, issuer, audience, expiry) so the
// guard never needs the token store.
//
// resourceMetadata is the URL of the protected resource metadata document;
// it is advertised on every 401 so clients can discover the server.
func AuthnMiddleware(v jwtx.Verifier, resourceMetadata string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, resourceMetadata)
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				log.Debug("bearer token rejected", "err", err)
				writeBearerError(w, resourceMetadata)
				return
			}

			ctx = WithPrincipal(ctx, PrincipalFromClaims(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
// The scheme is case-insensitive.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RFC 6750 challenge. The reason a token failed is deliberately not echoed.
func writeBearerError(w http.ResponseWriter, resourceMetadata string) {
	challenge := `Bearer error="invalid_token"`
	if resourceMetadata != "" {
		challenge += `, resource_metadata="` + resourceMetadata + `"`
	}
	NoCache(w)
	w.Header().Set("WWW-Authenticate", challenge)
	w.WriteHeader(http.StatusUnauthorized)
}
