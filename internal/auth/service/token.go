package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/kbauth/internal/auth/domain"
	"github.com/aussiebroadwan/kbauth/internal/auth/store"
	"github.com/aussiebroadwan/kbauth/pkg/cryptox"
	"github.com/aussiebroadwan/kbauth/pkg/idx"
	"github.com/aussiebroadwan/kbauth/pkg/jwtx"
	"github.com/aussiebroadwan/kbauth/pkg/slogx"
)

// TokenService exchanges grants for token pairs.
type TokenService struct {
	Store      store.Store
	Clients    *ClientService
	Signer     jwtx.Signer
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// Token authenticates the client and dispatches on the grant.
func (s *TokenService) Token(ctx context.Context, clientID, clientSecret string, g Grant) (*domain.TokenPair, error) {
	client, err := s.Clients.Authenticate(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	switch g := g.(type) {
	case AuthorizationCodeGrant:
		return s.Exchange(ctx, client, g)
	case RefreshTokenGrant:
		return s.Refresh(ctx, client, g)
	default:
		return nil, ErrUnsupportedGrantType
	}
}

// Exchange redeems an authorization code for an authenticated client.
//
// Lookup, binding checks, PKCE and the conditional consume run in one
// transaction. A failed check rolls back before the consume, so a wrong
// verifier or redirect_uri leaves the code redeemable by its rightful
// holder until it expires.
func (s *TokenService) Exchange(ctx context.Context, client domain.Client, g AuthorizationCodeGrant) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	now := s.now()

	var pair *domain.TokenPair
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		code, err := tx.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, cryptox.FingerprintToken(g.Code))
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidGrant
		}
		if err != nil {
			return err
		}
		if code.Consumed || code.Expired(now) {
			return ErrInvalidGrant
		}

		if code.ClientID != client.ID || code.RedirectURI != g.RedirectURI {
			return ErrInvalidGrant
		}

		if code.CodeChallengeMethod != CodeChallengeMethodS256 ||
			!cryptox.ValidCodeVerifier(g.CodeVerifier) ||
			!cryptox.VerifyS256(g.CodeVerifier, code.CodeChallenge) {
			return ErrInvalidGrant
		}

		if err := tx.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.ID, now); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrInvalidGrant
			}
			return err
		}

		pair, err = s.mint(ctx, tx, client.ID, code.Subject, code.Scope, code.Scope, nil, now)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidGrant) {
			l.Info("authorization code rejected", slog.String("client_id", client.ID))
		}
		return nil, err
	}

	l.Info("authorization code exchanged", slog.String("client_id", client.ID), slog.String("scope", pair.Scope))
	return pair, nil
}

// Refresh rotates a refresh token.
//
// The presented token is revoked with a conditional update. When that
// misses and the token turns out to be revoked already with a successor,
// it is being replayed: every descendant is revoked and that revocation is
// committed before the caller sees invalid_grant.
func (s *TokenService) Refresh(ctx context.Context, client domain.Client, g RefreshTokenGrant) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	now := s.now()
	hash := cryptox.FingerprintToken(g.RefreshToken)

	var (
		pair    *domain.TokenPair
		reused  bool
		revoked int64
	)
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		repo := tx.RefreshTokens()

		old, err := repo.RevokeActiveRefreshToken(ctx, hash, now)
		if errors.Is(err, store.ErrConflict) {
			existing, err := repo.GetRefreshTokenByHash(ctx, hash)
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			if err != nil {
				return err
			}
			if !existing.Revoked {
				return ErrInvalidGrant // expired
			}
			hasSuccessor, err := repo.HasSuccessor(ctx, existing.ID)
			if err != nil {
				return err
			}
			if !hasSuccessor {
				return ErrInvalidGrant
			}
			revoked, err = repo.RevokeDescendants(ctx, existing.ID, now)
			if err != nil {
				return err
			}
			reused = true
			return nil
		}
		if err != nil {
			return err
		}

		if old.ClientID != client.ID {
			return ErrInvalidGrant
		}

		granted := domain.ParseScope(old.Scope)
		accessScope := granted
		if requested := domain.ParseScope(g.Scope); len(requested) > 0 {
			if !requested.SubsetOf(granted) {
				return ErrInvalidScope
			}
			accessScope = requested.Ordered(granted)
		}

		pair, err = s.mint(ctx, tx, client.ID, old.Subject, old.Scope, accessScope.String(), &old.ID, now)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidGrant) {
			l.Info("refresh token rejected", slog.String("client_id", client.ID))
		}
		return nil, err
	}
	if reused {
		l.Warn("refresh token reuse detected, chain revoked",
			slog.String("client_id", client.ID),
			slog.Int64("revoked", revoked))
		return nil, ErrInvalidGrant
	}

	l.Info("refresh token rotated", slog.String("client_id", client.ID))
	return pair, nil
}

// mint signs an access token and stores a refresh token carrying
// refreshScope. predecessor links a rotated token to the one it replaces.
func (s *TokenService) mint(
	ctx context.Context,
	tx store.Tx,
	clientID, subject, refreshScope, accessScope string,
	predecessor *string,
	now time.Time,
) (*domain.TokenPair, error) {
	access, err := s.Signer.Sign(jwtx.NewAccessClaims(s.Issuer, subject, clientID, accessScope, s.accessTTL(), now))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	rt := domain.RefreshToken{
		ID:            idx.NewAt(now).String(),
		TokenHash:     cryptox.FingerprintToken(raw),
		ClientID:      clientID,
		Subject:       subject,
		Scope:         refreshScope,
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.refreshTTL()),
		PredecessorID: predecessor,
	}
	if err := tx.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "bearer",
		ExpiresIn:    s.accessTTL(),
		Scope:        accessScope,
	}, nil
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return domain.RefreshTokenTTL
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
