package service_test

import (
	"context"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/kbauth/internal/auth/domain"
	"github.com/aussiebroadwan/kbauth/internal/auth/service"
	"github.com/aussiebroadwan/kbauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/kbauth/internal/auth/store/drivers/sqlstore"
	"github.com/aussiebroadwan/kbauth/pkg/cryptox"
	"github.com/aussiebroadwan/kbauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://auth.example.com"
	ownerEmail   = "owner@example.com"
	ownerPass    = "correct horse battery staple"
	ownerSubject = "owner"
	redirectURI  = "https://client.example/cb"
	// RFC 7636 appendix B.
	testVerifier  = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	testChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
)

var testScopes = domain.Scope{"kb:read", "kb:write"}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	clock     *clock
	store     *sqlstore.Store
	keys      *jwtx.KeyManager
	clients   *service.ClientService
	owner     *service.OwnerVerifier
	tickets   *service.TicketIssuer
	authorize *service.AuthorizeService
	tokens    *service.TokenService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clk := &clock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}

	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	keys, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer: testIssuer,
		Now:    clk.Now,
	})
	require.NoError(t, err)

	hasher := cryptox.PasswordHasher{Pepper: "pepper"}
	hash, err := hasher.Hash(ownerPass)
	require.NoError(t, err)

	clients := &service.ClientService{Store: s, Hasher: hasher, Now: clk.Now}
	owner := &service.OwnerVerifier{
		Owner:  domain.Owner{Email: ownerEmail, Subject: ownerSubject, PasswordHash: hash},
		Hasher: hasher,
		Now:    clk.Now,
	}
	tickets := &service.TicketIssuer{Key: []byte("0123456789abcdef0123456789abcdef"), Issuer: testIssuer, Now: clk.Now}

	return &harness{
		clock:   clk,
		store:   s,
		keys:    keys,
		clients: clients,
		owner:   owner,
		tickets: tickets,
		authorize: &service.AuthorizeService{
			Store:   s,
			Clients: clients,
			Owner:   owner,
			Tickets: tickets,
			Scopes:  testScopes,
			Now:     clk.Now,
		},
		tokens: &service.TokenService{
			Store:   s,
			Clients: clients,
			Signer:  keys.Signer,
			Issuer:  testIssuer,
			Now:     clk.Now,
		},
	}
}

func (h *harness) register(t *testing.T, method string) *service.Registration {
	t.Helper()
	reg, err := h.clients.Register(context.Background(), service.RegisterRequest{
		RedirectURIs:            []string{redirectURI},
		ClientName:              "chat assistant",
		TokenEndpointAuthMethod: method,
	})
	require.NoError(t, err)
	return reg
}

func params(clientID string) service.AuthorizeParams {
	return service.AuthorizeParams{
		ResponseType:        "code",
		ClientID:            clientID,
		RedirectURI:         redirectURI,
		CodeChallenge:       testChallenge,
		CodeChallengeMethod: "S256",
		Scope:               "kb:read kb:write",
		State:               "xyz",
	}
}

// issueCode runs login and consent and returns the code from the redirect.
func (h *harness) issueCode(t *testing.T, clientID string) string {
	t.Helper()
	ctx := context.Background()
	p := params(clientID)

	prompt, err := h.authorize.SubmitLogin(ctx, p, ownerEmail, ownerPass, "")
	require.NoError(t, err)

	location, err := h.authorize.SubmitConsent(ctx, p, prompt.Ticket, true)
	require.NoError(t, err)

	u, err := url.Parse(location)
	require.NoError(t, err)
	require.Equal(t, "xyz", u.Query().Get("state"))
	code := u.Query().Get("code")
	require.NotEmpty(t, code)
	return code
}

func codeGrant(code string) service.AuthorizationCodeGrant {
	return service.AuthorizationCodeGrant{Code: code, RedirectURI: redirectURI, CodeVerifier: testVerifier}
}
