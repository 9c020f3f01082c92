package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/kbauth/internal/auth/service"
	"github.com/aussiebroadwan/kbauth/internal/auth/store"
	"github.com/aussiebroadwan/kbauth/pkg/httpx"
	"github.com/aussiebroadwan/kbauth/pkg/jwtx"
	"github.com/aussiebroadwan/kbauth/pkg/slogx"

	_ "github.com/aussiebroadwan/kbauth/api/kbauth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	metadata     *service.Metadata
	limits       httpx.Backend
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store            store.Store
	ClientService    *service.ClientService
	AuthorizeService *service.AuthorizeService
	TokenService     *service.TokenService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	metadata *service.Metadata,
	limits httpx.Backend,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	if limits == nil {
		limits = httpx.NewMemoryBackend()
	}
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		metadata:     metadata,
		limits:       limits,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerDiscovery()
	r.registerOAuth2()
	r.registerResource()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			kbauth Authorization Server API
//	@version		0.1.0
//	@description	OAuth 2.1 authorization server for a single-owner knowledge base.
//	@description
//	@description				Clients register dynamically, authorize with PKCE (S256) and receive JWT access tokens
//	@description				verifiable against the JWKS endpoint, plus rotating refresh tokens.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/kbauth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerDiscovery() {
	r.Mux.Handle("GET "+service.PathAuthorizationServerMetadata,
		httpx.Chain(AuthorizationServerMetadataHandler(r.metadata),
			httpx.RateLimitByIP(r.limits, "discovery", httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET "+service.PathProtectedResourceMetadata,
		httpx.Chain(ProtectedResourceMetadataHandler(r.metadata),
			httpx.RateLimitByIP(r.limits, "discovery", httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET "+service.PathJWKS,
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(r.limits, "jwks", httpx.PublicLimit),
		),
	)
}

func (r *Router) registerOAuth2() {
	// POST /register - strict, anyone can call it
	registerHandler := &RegisterHandler{ClientService: r.ClientService}
	r.Mux.Handle("POST "+service.PathRegister,
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(r.limits, "register", httpx.StrictLimit),
		),
	)

	authorizeHandler := &AuthorizeHandler{AuthorizeService: r.AuthorizeService}

	// GET /authorize only renders pages
	r.Mux.Handle("GET "+service.PathAuthorize,
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandleGet),
			httpx.RateLimitByIP(r.limits, "authorize_page", httpx.LenientLimit),
		),
	)

	// POST /authorize carries password attempts, keyed on IP + email
	r.Mux.Handle("POST "+service.PathAuthorize,
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandlePost),
			httpx.RateLimitByIPAndFormField(r.limits, "authorize_login", httpx.StrictLimit, "email"),
		),
	)

	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST "+service.PathToken,
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(r.limits, "token", httpx.StrictLimit),
		),
	)
}

func (r *Router) registerResource() {
	secured := httpx.Chain(PrincipalHandler(),
		httpx.AuthnMiddleware(r.verifier, r.metadata.ResourceMetadataURL),
		httpx.RequireAnyScope(r.metadata.Scopes...),
		httpx.RateLimitBySubject(r.limits, "principal", httpx.ModerateLimit),
	)

	r.Mux.Handle("GET /v1/principal", secured)
}

func (r *Router) registerSystem() {
	// Monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limits, "health", httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys, r.limits),
			httpx.RateLimitByIP(r.limits, "health", httpx.LenientLimit),
		),
	)
}
