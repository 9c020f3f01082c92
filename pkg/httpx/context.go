package httpx

import (
	"context"

	"github.com/aussiebroadwan/kbauth/pkg/jwtx"
)

type ctxKey string

const ctxKeyPrincipal ctxKey = "principal"

// Principal is the authenticated caller of a guarded endpoint.
type Principal struct {
	Subject  string
	ClientID string
	Scopes   []string
	Claims   jwtx.Claims
}

// PrincipalFromClaims flattens verified claims into a Principal.
func PrincipalFromClaims(c jwtx.Claims) Principal {
	clientID := c.ClientID
	if clientID == "" && len(c.Audience) > 0 {
		clientID = c.Audience[0]
	}
	return Principal{
		Subject:  c.Subject,
		ClientID: clientID,
		Scopes:   c.Scopes(),
		Claims:   c,
	}
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// PrincipalFromContext returns the principal set by AuthnMiddleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(Principal)
	return p, ok
}

func scopesFromCtx(ctx context.Context) []string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.Scopes
	}
	return nil
}
