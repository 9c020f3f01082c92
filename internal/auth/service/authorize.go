package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/kbauth/internal/auth/domain"
	"github.com/aussiebroadwan/kbauth/internal/auth/store"
	"github.com/aussiebroadwan/kbauth/pkg/cryptox"
	"github.com/aussiebroadwan/kbauth/pkg/idx"
	"github.com/aussiebroadwan/kbauth/pkg/slogx"
)

// CodeChallengeMethodS256 is the only PKCE method accepted.
const CodeChallengeMethodS256 = "S256"

// AuthorizeParams are the authorization request parameters. They travel
// with every step of the interactive flow, as query string on GET and as
// hidden form fields on POST, and are re-validated each time.
type AuthorizeParams struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
	Scope               string
	State               string
}

// AuthorizeRequest is a validated authorization request.
type AuthorizeRequest struct {
	Params AuthorizeParams
	Client domain.Client
	Scope  domain.Scope
}

// ConsentPrompt is what the consent page needs after a successful login.
type ConsentPrompt struct {
	Request *AuthorizeRequest
	Subject string
	Ticket  string
}

// RedirectError is a failure reported back to the client on its verified
// redirect_uri rather than shown to the user.
type RedirectError struct {
	Err         error
	RedirectURI string
	State       string
}

func (e *RedirectError) Error() string { return "authorize: " + e.Err.Error() }
func (e *RedirectError) Unwrap() error { return e.Err }

// Location is the redirect target carrying error and state.
func (e *RedirectError) Location() string {
	params := url.Values{"error": {e.Err.Error()}}
	if e.State != "" {
		params.Set("state", e.State)
	}
	return appendQuery(e.RedirectURI, params)
}

// AuthorizeService drives Begin, SubmitLogin and SubmitConsent.
type AuthorizeService struct {
	Store   store.Store
	Clients *ClientService
	Owner   *OwnerVerifier
	Tickets *TicketIssuer
	Scopes  domain.Scope
	CodeTTL time.Duration
	Now     func() time.Time
}

// Begin validates an authorization request.
//
// Missing client_id or redirect_uri, an unknown client and a redirect_uri
// that is not registered are returned as plain errors: the redirect target
// is not trusted, so the caller must render them. Every later failure comes
// back as a *RedirectError.
func (s *AuthorizeService) Begin(ctx context.Context, p AuthorizeParams) (*AuthorizeRequest, error) {
	p = p.trimmed()
	if p.ClientID == "" || p.RedirectURI == "" {
		return nil, ErrInvalidRequest
	}

	client, err := s.Clients.GetClient(ctx, p.ClientID)
	if err != nil {
		return nil, err
	}
	if !client.HasRedirectURI(p.RedirectURI) {
		return nil, ErrRedirectURIMismatch
	}

	redirect := func(err error) error {
		return &RedirectError{Err: err, RedirectURI: p.RedirectURI, State: p.State}
	}

	if p.ResponseType != "code" {
		return nil, redirect(ErrUnsupportedResponseType)
	}
	if p.CodeChallenge == "" || p.CodeChallengeMethod != CodeChallengeMethodS256 {
		return nil, redirect(ErrInvalidRequest)
	}

	scope := domain.ParseScope(p.Scope)
	if len(scope) == 0 {
		scope = s.Scopes
	}
	if !scope.SubsetOf(s.Scopes) {
		return nil, redirect(ErrInvalidScope)
	}

	return &AuthorizeRequest{Params: p, Client: client, Scope: scope.Ordered(s.Scopes)}, nil
}

// SubmitLogin re-validates p, checks the owner's credentials and, on
// success, returns a consent prompt carrying a login ticket.
func (s *AuthorizeService) SubmitLogin(ctx context.Context, p AuthorizeParams, email, password, otp string) (*ConsentPrompt, error) {
	req, err := s.Begin(ctx, p)
	if err != nil {
		return nil, err
	}

	subject, err := s.Owner.Verify(ctx, email, password, otp)
	if err != nil {
		slogx.FromContext(ctx).Info("owner login failed", slog.String("client_id", req.Client.ID))
		return nil, err
	}

	ticket, err := s.Tickets.Issue(subject, req.Params)
	if err != nil {
		return nil, err
	}
	return &ConsentPrompt{Request: req, Subject: subject, Ticket: ticket}, nil
}

// SubmitConsent re-validates p and the login ticket. A denial comes back as
// a *RedirectError carrying access_denied; approval issues an authorization
// code and returns the redirect location. A ticket that already yielded a
// code is ErrInvalidTicket.
func (s *AuthorizeService) SubmitConsent(ctx context.Context, p AuthorizeParams, ticket string, approve bool) (string, error) {
	l := slogx.FromContext(ctx)

	req, err := s.Begin(ctx, p)
	if err != nil {
		return "", err
	}

	tk, err := s.Tickets.Verify(ticket, req.Params)
	if err != nil {
		return "", err
	}

	if !approve {
		l.Info("authorization denied by owner", slog.String("client_id", req.Client.ID))
		return "", &RedirectError{Err: ErrAccessDenied, RedirectURI: req.Params.RedirectURI, State: req.Params.State}
	}

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}
	now := s.now()
	code := domain.AuthorizationCode{
		ID:                  idx.NewAt(now).String(),
		CodeHash:            cryptox.FingerprintToken(raw),
		ClientID:            req.Client.ID,
		RedirectURI:         req.Params.RedirectURI,
		CodeChallenge:       req.Params.CodeChallenge,
		CodeChallengeMethod: req.Params.CodeChallengeMethod,
		Scope:               req.Scope.String(),
		Subject:             tk.Subject,
		TicketID:            tk.ID,
		IssuedAt:            now,
		ExpiresAt:           now.Add(s.codeTTL()),
	}
	err = s.Store.AuthorizationCodes().CreateAuthorizationCode(ctx, code)
	if errors.Is(err, store.ErrAlreadyExists) {
		l.Warn("login ticket reused", slog.String("client_id", req.Client.ID))
		return "", ErrInvalidTicket
	}
	if err != nil {
		l.Error("failed to store authorization code", "error", err)
		return "", fmt.Errorf("store authorization code: %w", err)
	}

	l.Info("authorization code issued",
		slog.String("client_id", req.Client.ID),
		slog.String("scope", code.Scope))

	params := url.Values{"code": {raw}}
	if req.Params.State != "" {
		params.Set("state", req.Params.State)
	}
	return appendQuery(req.Params.RedirectURI, params), nil
}

// IsRedirectError reports whether err should be sent to the client's
// redirect_uri, and returns it.
func IsRedirectError(err error) (*RedirectError, bool) {
	var re *RedirectError
	ok := errors.As(err, &re)
	return re, ok
}

func (s *AuthorizeService) codeTTL() time.Duration {
	if s.CodeTTL > 0 {
		return s.CodeTTL
	}
	return domain.AuthorizationCodeTTL
}

func (s *AuthorizeService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (p AuthorizeParams) trimmed() AuthorizeParams {
	return AuthorizeParams{
		ResponseType:        strings.TrimSpace(p.ResponseType),
		ClientID:            strings.TrimSpace(p.ClientID),
		RedirectURI:         p.RedirectURI,
		CodeChallenge:       strings.TrimSpace(p.CodeChallenge),
		CodeChallengeMethod: strings.TrimSpace(p.CodeChallengeMethod),
		Scope:               strings.TrimSpace(p.Scope),
		State:               p.State,
	}
}

// appendQuery adds params to uri. A query the client registered is kept
// byte for byte ahead of them.
func appendQuery(uri string, params url.Values) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	if u.RawQuery == "" {
		u.RawQuery = params.Encode()
	} else {
		u.RawQuery += "&" + params.Encode()
	}
	return u.String()
}
