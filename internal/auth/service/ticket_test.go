package service_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/kbauth/internal/auth/service"
	"github.com/stretchr/testify/require"
)

func TestTicketRoundTrip(t *testing.T) {
	h := newHarness(t)
	p := params("client-1")

	ticket, err := h.tickets.Issue(ownerSubject, p)
	require.NoError(t, err)

	got, err := h.tickets.Verify(ticket, p)
	require.NoError(t, err)
	require.Equal(t, ownerSubject, got.Subject)
	require.NotEmpty(t, got.ID)

	other, err := h.tickets.Issue(ownerSubject, p)
	require.NoError(t, err)
	again, err := h.tickets.Verify(other, p)
	require.NoError(t, err)
	require.NotEqual(t, got.ID, again.ID, "every ticket has its own id")
}

func TestTicketRejections(t *testing.T) {
	h := newHarness(t)
	p := params("client-1")
	ticket, err := h.tickets.Issue(ownerSubject, p)
	require.NoError(t, err)

	t.Run("changed parameters", func(t *testing.T) {
		for _, mutate := range []func(*service.AuthorizeParams){
			func(p *service.AuthorizeParams) { p.ClientID = "client-2" },
			func(p *service.AuthorizeParams) { p.RedirectURI = "https://evil.example/cb" },
			func(p *service.AuthorizeParams) { p.CodeChallenge = "other" },
			func(p *service.AuthorizeParams) { p.Scope = "kb:read" },
			func(p *service.AuthorizeParams) { p.State = "other" },
		} {
			changed := p
			mutate(&changed)
			_, err := h.tickets.Verify(ticket, changed)
			require.ErrorIs(t, err, service.ErrInvalidTicket)
		}
	})

	t.Run("other key", func(t *testing.T) {
		other := &service.TicketIssuer{Key: []byte("another key entirely, 32 bytes!!"), Issuer: testIssuer, Now: h.clock.Now}
		_, err := other.Verify(ticket, p)
		require.ErrorIs(t, err, service.ErrInvalidTicket)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := h.tickets.Verify("not.a.jwt", p)
		require.ErrorIs(t, err, service.ErrInvalidTicket)
		_, err = h.tickets.Verify("", p)
		require.ErrorIs(t, err, service.ErrInvalidTicket)
	})

	t.Run("expired", func(t *testing.T) {
		h.clock.Advance(service.LoginTicketTTL + time.Second)
		_, err := h.tickets.Verify(ticket, p)
		require.ErrorIs(t, err, service.ErrInvalidTicket)
	})
}

func TestTicketEmptyKey(t *testing.T) {
	_, err := (&service.TicketIssuer{}).Issue("s", params("c"))
	require.Error(t, err)
}

func TestParamsDigestIsStable(t *testing.T) {
	p := params("client-1")
	require.Equal(t, p.Digest(), p.Digest())

	shifted := p
	shifted.ClientID, shifted.RedirectURI = p.ClientID+p.RedirectURI[:1], p.RedirectURI[1:]
	require.NotEqual(t, p.Digest(), shifted.Digest())
}
