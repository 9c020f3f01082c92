package service

import (
	"context"
	"errors"
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

// ClientService is the dynamic client registry.
type ClientService struct {
	Store  store.Store
	Hasher cryptox.PasswordHasher
	Now    func() time.Time
}

// RegisterRequest carries the RFC 7591 metadata we honour.
type RegisterRequest struct {
	RedirectURIs            []string
	ClientName              string
	TokenEndpointAuthMethod string
}

// Registration is a freshly registered client. Secret is the plaintext
// client secret for confidential clients; it is never stored or shown again.
type Registration struct {
	Client domain.Client
	Secret string
}

// Register validates req and creates a new client. Identical requests
// always produce independent clients.
func (s *ClientService) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	l := slogx.FromContext(ctx)

	if len(req.RedirectURIs) == 0 {
		return nil, ErrInvalidRedirectURI
	}
	for _, u := range req.RedirectURIs {
		if !validRedirectURI(u) {
			return nil, ErrInvalidRedirectURI
		}
	}

	method := strings.TrimSpace(req.TokenEndpointAuthMethod)
	if method == "" {
		method = domain.AuthMethodNone
	}
	switch method {
	case domain.AuthMethodNone, domain.AuthMethodClientSecretPost, domain.AuthMethodClientSecretBasic:
	default:
		return nil, ErrInvalidClientMetadata
	}

	client := domain.Client{
		ID:                      idx.New().String(),
		Name:                    strings.TrimSpace(req.ClientName),
		RedirectURIs:            append([]string(nil), req.RedirectURIs...),
		TokenEndpointAuthMethod: method,
		CreatedAt:               s.now().Truncate(time.Millisecond),
	}

	var secret string
	if method != domain.AuthMethodNone {
		var err error
		secret, err = cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return nil, err
		}
		client.SecretHash, err = s.Hasher.Hash(secret)
		if err != nil {
			l.Error("failed to hash client secret", "error", err)
			return nil, err
		}
	}

	if err := s.Store.Clients().CreateClient(ctx, client); err != nil {
		l.Error("failed to create client", "error", err)
		return nil, err
	}

	l.Info("client registered",
		slog.String("client_id", client.ID),
		slog.String("auth_method", method),
		slog.Int("redirect_uris", len(client.RedirectURIs)))
	return &Registration{Client: client, Secret: secret}, nil
}

// GetClient reads a registered client. ErrUnknownClient when absent or
// when clientID is not an id this server could have issued.
func (s *ClientService) GetClient(ctx context.Context, clientID string) (domain.Client, error) {
	if _, err := idx.Parse(clientID); err != nil {
		return domain.Client{}, ErrUnknownClient
	}
	c, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Client{}, ErrUnknownClient
	}
	return c, err
}

// Authenticate checks client credentials presented at the token endpoint.
// Confidential clients must present a matching secret; public clients
// authenticate by client_id alone and rely on PKCE.
func (s *ClientService) Authenticate(ctx context.Context, clientID, secret string) (domain.Client, error) {
	c, err := s.GetClient(ctx, clientID)
	if errors.Is(err, ErrUnknownClient) {
		return domain.Client{}, ErrInvalidClient
	}
	if err != nil {
		return domain.Client{}, err
	}
	if c.IsPublic() {
		return c, nil
	}
	if secret == "" {
		return domain.Client{}, ErrInvalidClient
	}
	if err := s.Hasher.Verify(secret, c.SecretHash); err != nil {
		slogx.FromContext(ctx).Info("client authentication failed", slog.String("client_id", clientID))
		return domain.Client{}, ErrInvalidClient
	}
	return c, nil
}

func (s *ClientService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// validRedirectURI accepts absolute URIs with a host and no fragment.
func validRedirectURI(raw string) bool {
	if raw == "" || strings.Contains(raw, "#") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}
