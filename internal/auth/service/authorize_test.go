package service_test

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/kbauth/internal/auth/service"
	"github.com/aussiebroadwan/kbauth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestBeginRejectsBeforeRedirect(t *testing.T) {
	h := newHarness(t)
	reg := h.register(t, "")
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*service.AuthorizeParams)
		expect error
	}{
		{"missing client", func(p *service.AuthorizeParams) { p.ClientID = "" }, service.ErrInvalidRequest},
		{"missing redirect", func(p *service.AuthorizeParams) { p.RedirectURI = "" }, service.ErrInvalidRequest},
		{"unknown client", func(p *service.AuthorizeParams) { p.ClientID = "01JUNKNOWN0000000000000000" }, service.ErrUnknownClient},
		{"redirect mismatch", func(p *service.AuthorizeParams) { p.RedirectURI = "https://client.example/cb/" }, service.ErrRedirectURIMismatch},
		{"redirect prefix only", func(p *service.AuthorizeParams) { p.RedirectURI = "https://client.example/cb?x=1" }, service.ErrRedirectURIMismatch},
		{"redirect trailing space", func(p *service.AuthorizeParams) { p.RedirectURI += " " }, service.ErrRedirectURIMismatch},
		{"redirect leading space", func(p *service.AuthorizeParams) { p.RedirectURI = " " + p.RedirectURI }, service.ErrRedirectURIMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := params(reg.Client.ID)
			tt.mutate(&p)
			_, err := h.authorize.Begin(ctx, p)
			require.ErrorIs(t, err, tt.expect)
			_, isRedirect := service.IsRedirectError(err)
			require.False(t, isRedirect)
		})
	}
}

func TestBeginRedirectsAfterVerification(t *testing.T) {
	h := newHarness(t)
	reg := h.register(t, "")
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*service.AuthorizeParams)
		expect error
	}{
		{"token response type", func(p *service.AuthorizeParams) { p.ResponseType = "token" }, service.ErrUnsupportedResponseType},
		{"missing challenge", func(p *service.AuthorizeParams) { p.CodeChallenge = "" }, service.ErrInvalidRequest},
		{"plain method", func(p *service.AuthorizeParams) { p.CodeChallengeMethod = "plain" }, service.ErrInvalidRequest},
		{"missing method", func(p *service.AuthorizeParams) { p.CodeChallengeMethod = "" }, service.ErrInvalidRequest},
		{"unknown scope", func(p *service.AuthorizeParams) { p.Scope = "kb:read kb:admin" }, service.ErrInvalidScope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := params(reg.Client.ID)
			tt.mutate(&p)
			_, err := h.authorize.Begin(ctx, p)
			require.ErrorIs(t, err, tt.expect)

			re, ok := service.IsRedirectError(err)
			require.True(t, ok)
			u, perr := url.Parse(re.Location())
			require.NoError(t, perr)
			require.Equal(t, "client.example", u.Host)
			require.Equal(t, tt.expect.Error(), u.Query().Get("error"))
			require.Equal(t, "xyz", u.Query().Get("state"))
		})
	}
}

func TestBeginScopes(t *testing.T) {
	h := newHarness(t)
	reg := h.register(t, "")
	ctx := context.Background()

	p := params(reg.Client.ID)
	p.Scope = ""
	req, err := h.authorize.Begin(ctx, p)
	require.NoError(t, err)
	require.Equal(t, "kb:read kb:write", req.Scope.String())

	p.Scope = "kb:write kb:read kb:write"
	req, err = h.authorize.Begin(ctx, p)
	require.NoError(t, err)
	require.Equal(t, "kb:read kb:write", req.Scope.String())

	p.Scope = "kb:read"
	req, err = h.authorize.Begin(ctx, p)
	require.NoError(t, err)
	require.Equal(t, "kb:read", req.Scope.String())
}

func TestSubmitLogin(t *testing.T) {
	h := newHarness(t)
	reg := h.register(t, "")
	ctx := context.Background()
	p := params(reg.Client.ID)

	_, err := h.authorize.SubmitLogin(ctx, p, ownerEmail, "wrong", "")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	bad := p
	bad.RedirectURI = "https://evil.example/cb"
	_, err = h.authorize.SubmitLogin(ctx, bad, ownerEmail, ownerPass, "")
	require.ErrorIs(t, err, service.ErrRedirectURIMismatch)

	prompt, err := h.authorize.SubmitLogin(ctx, p, ownerEmail, ownerPass, "")
	require.NoError(t, err)
	require.Equal(t, ownerSubject, prompt.Subject)
	require.NotEmpty(t, prompt.Ticket)
	require.Equal(t, reg.Client.ID, prompt.Request.Client.ID)
}

func TestSubmitConsent(t *testing.T) {
	h := newHarness(t)
	reg := h.register(t, "")
	ctx := context.Background()
	p := params(reg.Client.ID)

	prompt, err := h.authorize.SubmitLogin(ctx, p, ownerEmail, ownerPass, "")
	require.NoError(t, err)

	t.Run("invalid ticket", func(t *testing.T) {
		_, err := h.authorize.SubmitConsent(ctx, p, "forged", true)
		require.ErrorIs(t, err, service.ErrInvalidTicket)
	})

	t.Run("ticket for other parameters", func(t *testing.T) {
		other := p
		other.State = "different"
		_, err := h.authorize.SubmitConsent(ctx, other, prompt.Ticket, true)
		require.ErrorIs(t, err, service.ErrInvalidTicket)
	})

	t.Run("denied", func(t *testing.T) {
		_, err := h.authorize.SubmitConsent(ctx, p, prompt.Ticket, false)
		re, ok := service.IsRedirectError(err)
		require.True(t, ok)
		require.ErrorIs(t, err, service.ErrAccessDenied)
		require.Equal(t, "https://client.example/cb?error=access_denied&state=xyz", re.Location())
	})

	t.Run("approved", func(t *testing.T) {
		location, err := h.authorize.SubmitConsent(ctx, p, prompt.Ticket, true)
		require.NoError(t, err)

		u, err := url.Parse(location)
		require.NoError(t, err)
		code := u.Query().Get("code")
		require.NotEmpty(t, code)

		stored, err := h.store.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, cryptox.FingerprintToken(code))
		require.NoError(t, err)
		require.Equal(t, reg.Client.ID, stored.ClientID)
		require.Equal(t, redirectURI, stored.RedirectURI)
		require.Equal(t, testChallenge, stored.CodeChallenge)
		require.Equal(t, "S256", stored.CodeChallengeMethod)
		require.Equal(t, "kb:read kb:write", stored.Scope)
		require.Equal(t, ownerSubject, stored.Subject)
		require.False(t, stored.Consumed)
		require.Equal(t, stored.IssuedAt.Add(10*time.Minute), stored.ExpiresAt)
		require.NotEmpty(t, stored.TicketID)
	})

	t.Run("ticket used twice", func(t *testing.T) {
		_, err := h.authorize.SubmitConsent(ctx, p, prompt.Ticket, true)
		require.ErrorIs(t, err, service.ErrInvalidTicket)
	})

	t.Run("fresh login issues another code", func(t *testing.T) {
		again, err := h.authorize.SubmitLogin(ctx, p, ownerEmail, ownerPass, "")
		require.NoError(t, err)
		_, err = h.authorize.SubmitConsent(ctx, p, again.Ticket, true)
		require.NoError(t, err)
	})
}

func TestRedirectKeepsRegisteredQuery(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	registered := "https://client.example/cb?tenant=a&b=2&a=1&x=%7e"
	reg, err := h.clients.Register(ctx, service.RegisterRequest{RedirectURIs: []string{registered}})
	require.NoError(t, err)

	p := params(reg.Client.ID)
	p.RedirectURI = registered
	p.ResponseType = "token"
	_, err = h.authorize.Begin(ctx, p)
	re, ok := service.IsRedirectError(err)
	require.True(t, ok)
	require.Equal(t, registered+"&error=unsupported_response_type&state=xyz", re.Location())

	p.ResponseType = "code"
	prompt, err := h.authorize.SubmitLogin(ctx, p, ownerEmail, ownerPass, "")
	require.NoError(t, err)
	location, err := h.authorize.SubmitConsent(ctx, p, prompt.Ticket, true)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(location, registered+"&code="), location)
}
