// Package storetest is a behavioural suite every store driver must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/kbauth/internal/auth/domain"
	"github.com/aussiebroadwan/kbauth/internal/auth/store"
	"github.com/aussiebroadwan/kbauth/pkg/cryptox"
	"github.com/aussiebroadwan/kbauth/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Factory returns a freshly migrated, empty store.
type Factory func(t *testing.T) store.Store

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Clients", func(t *testing.T) { testClients(t, newStore(t)) })
	t.Run("AuthorizationCodeConsumedOnce", func(t *testing.T) { testConsumeOnce(t, newStore(t)) })
	t.Run("AuthorizationCodeExpired", func(t *testing.T) { testConsumeExpired(t, newStore(t)) })
	t.Run("AuthorizationCodeTicketOnce", func(t *testing.T) { testTicketOnce(t, newStore(t)) })
	t.Run("AuthorizationCodeConcurrentConsume", func(t *testing.T) { testConcurrentConsume(t, newStore(t)) })
	t.Run("RefreshRotationChain", func(t *testing.T) { testRotationChain(t, newStore(t)) })
	t.Run("RefreshConcurrentRotate", func(t *testing.T) { testConcurrentRotate(t, newStore(t)) })
	t.Run("RefreshRevokeExpired", func(t *testing.T) { testRevokeExpired(t, newStore(t)) })
	t.Run("RollbackDiscardsWrites", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("DeleteExpired", func(t *testing.T) { testDeleteExpired(t, newStore(t)) })
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// SeedClient registers a public client and returns it.
func SeedClient(t *testing.T, s store.Store) domain.Client {
	t.Helper()
	c := domain.Client{
		ID:                      idx.New().String(),
		Name:                    "test client",
		RedirectURIs:            []string{"https://app.example.com/cb", "http://127.0.0.1:8765/cb"},
		TokenEndpointAuthMethod: domain.AuthMethodNone,
		CreatedAt:               epoch,
	}
	require.NoError(t, s.Clients().CreateClient(context.Background(), c))
	return c
}

func newCode(clientID string, issued time.Time) (string, domain.AuthorizationCode) {
	raw := cryptox.MustGenerateToken(cryptox.TokenSize256)
	return raw, domain.AuthorizationCode{
		ID:                  idx.New().String(),
		CodeHash:            cryptox.FingerprintToken(raw),
		ClientID:            clientID,
		RedirectURI:         "https://app.example.com/cb",
		CodeChallenge:       cryptox.S256Challenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"),
		CodeChallengeMethod: "S256",
		Scope:               "kb:read",
		Subject:             "owner",
		IssuedAt:            issued,
		ExpiresAt:           issued.Add(domain.AuthorizationCodeTTL),
	}
}

func newRefresh(clientID string, issued time.Time, predecessor *string) (string, domain.RefreshToken) {
	raw := cryptox.MustGenerateToken(cryptox.TokenSize256)
	return raw, domain.RefreshToken{
		ID:            idx.New().String(),
		TokenHash:     cryptox.FingerprintToken(raw),
		ClientID:      clientID,
		Subject:       "owner",
		Scope:         "kb:read kb:write",
		IssuedAt:      issued,
		ExpiresAt:     issued.Add(domain.RefreshTokenTTL),
		PredecessorID: predecessor,
	}
}

func testClients(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := SeedClient(t, s)

	got, err := s.Clients().GetClientByID(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, c, got)

	require.ErrorIs(t, s.Clients().CreateClient(ctx, c), store.ErrAlreadyExists)

	_, err = s.Clients().GetClientByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	confidential := domain.Client{
		ID:                      idx.New().String(),
		SecretHash:              "$argon2id$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		RedirectURIs:            []string{"https://c.example.com/cb"},
		TokenEndpointAuthMethod: domain.AuthMethodClientSecretBasic,
		CreatedAt:               epoch,
	}
	require.NoError(t, s.Clients().CreateClient(ctx, confidential))
	got, err = s.Clients().GetClientByID(ctx, confidential.ID)
	require.NoError(t, err)
	require.Equal(t, confidential.SecretHash, got.SecretHash)
	require.False(t, got.IsPublic())
}

func testConsumeOnce(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := SeedClient(t, s)
	raw, code := newCode(c.ID, epoch)
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

	got, err := s.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, cryptox.FingerprintToken(raw))
	require.NoError(t, err)
	require.Equal(t, code, got)

	now := epoch.Add(time.Minute)
	require.NoError(t, s.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.ID, now))
	require.ErrorIs(t, s.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.ID, now), store.ErrConflict)

	got, err = s.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, code.CodeHash)
	require.NoError(t, err)
	require.True(t, got.Consumed)

	_, err = s.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testConsumeExpired(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := SeedClient(t, s)
	_, code := newCode(c.ID, epoch)
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

	err := s.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.ID, code.ExpiresAt)
	require.ErrorIs(t, err, store.ErrConflict)
}

func testTicketOnce(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := SeedClient(t, s)
	repo := s.AuthorizationCodes()

	_, first := newCode(c.ID, epoch)
	first.TicketID = idx.New().String()
	require.NoError(t, repo.CreateAuthorizationCode(ctx, first))

	got, err := repo.GetAuthorizationCodeByHash(ctx, first.CodeHash)
	require.NoError(t, err)
	require.Equal(t, first.TicketID, got.TicketID)

	_, second := newCode(c.ID, epoch)
	second.TicketID = first.TicketID
	require.ErrorIs(t, repo.CreateAuthorizationCode(ctx, second), store.ErrAlreadyExists)

	// Codes without a ticket never collide.
	_, a := newCode(c.ID, epoch)
	_, b := newCode(c.ID, epoch)
	require.NoError(t, repo.CreateAuthorizationCode(ctx, a))
	require.NoError(t, repo.CreateAuthorizationCode(ctx, b))
}

func testConcurrentConsume(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := SeedClient(t, s)
	_, code := newCode(c.ID, epoch)
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithTx(ctx, func(tx store.Tx) error {
				return tx.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.ID, epoch.Add(time.Second))
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, store.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, successes)
	require.Equal(t, workers-1, conflicts)
}

func testRotationChain(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := SeedClient(t, s)
	repo := s.RefreshTokens()

	raw1, t1 := newRefresh(c.ID, epoch, nil)
	require.NoError(t, repo.CreateRefreshToken(ctx, t1))

	now := epoch.Add(time.Hour)
	revoked, err := repo.RevokeActiveRefreshToken(ctx, cryptox.FingerprintToken(raw1), now)
	require.NoError(t, err)
	require.Equal(t, t1.ID, revoked.ID)
	require.True(t, revoked.Revoked)
	require.Nil(t, revoked.PredecessorID)

	_, t2 := newRefresh(c.ID, now, &t1.ID)
	require.NoError(t, repo.CreateRefreshToken(ctx, t2))
	_, err = repo.RevokeActiveRefreshToken(ctx, t2.TokenHash, now)
	require.NoError(t, err)
	_, t3 := newRefresh(c.ID, now, &t2.ID)
	require.NoError(t, repo.CreateRefreshToken(ctx, t3))

	// Second revoke of t1 misses.
	_, err = repo.RevokeActiveRefreshToken(ctx, t1.TokenHash, now)
	require.ErrorIs(t, err, store.ErrConflict)

	has, err := repo.HasSuccessor(ctx, t1.ID)
	require.NoError(t, err)
	require.True(t, has)
	has, err = repo.HasSuccessor(ctx, t3.ID)
	require.NoError(t, err)
	require.False(t, has)

	n, err := repo.RevokeDescendants(ctx, t1.ID, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n, "only t3 was still active")

	got, err := repo.GetRefreshTokenByHash(ctx, t3.TokenHash)
	require.NoError(t, err)
	require.True(t, got.Revoked)
	require.NotNil(t, got.PredecessorID)
	require.Equal(t, t2.ID, *got.PredecessorID)

	_, err = repo.GetRefreshTokenByHash(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testRevokeExpired(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := SeedClient(t, s)
	_, tok := newRefresh(c.ID, epoch, nil)
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, tok))

	_, err := s.RefreshTokens().RevokeActiveRefreshToken(ctx, tok.TokenHash, tok.ExpiresAt.Add(time.Second))
	require.ErrorIs(t, err, store.ErrConflict)

	got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, tok.TokenHash)
	require.NoError(t, err)
	require.False(t, got.Revoked)
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := SeedClient(t, s)
	_, code := newCode(c.ID, epoch)
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.ID, epoch))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, code.CodeHash)
	require.NoError(t, err)
	require.False(t, got.Consumed)
}

func testDeleteExpired(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := SeedClient(t, s)

	_, oldCode := newCode(c.ID, epoch)
	_, freshCode := newCode(c.ID, epoch.Add(time.Hour))
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, oldCode))
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, freshCode))

	n, err := s.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx, epoch.Add(30*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	repo := s.RefreshTokens()
	_, parent := newRefresh(c.ID, epoch, nil)
	require.NoError(t, repo.CreateRefreshToken(ctx, parent))
	_, child := newRefresh(c.ID, epoch.Add(48*time.Hour), &parent.ID)
	require.NoError(t, repo.CreateRefreshToken(ctx, child))
	_, lone := newRefresh(c.ID, epoch, nil)
	require.NoError(t, repo.CreateRefreshToken(ctx, lone))

	// The expired parent stays while its child is valid.
	n, err = repo.DeleteExpiredRefreshTokens(ctx, parent.ExpiresAt)
	require.NoError(t, err)
	require.EqualValues(t, 1, n, "only the lone token goes")

	_, err = repo.GetRefreshTokenByHash(ctx, lone.TokenHash)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = repo.GetRefreshTokenByHash(ctx, parent.TokenHash)
	require.NoError(t, err)
	got, err := repo.GetRefreshTokenByHash(ctx, child.TokenHash)
	require.NoError(t, err)
	require.NotNil(t, got.PredecessorID)
	require.Equal(t, parent.ID, *got.PredecessorID)

	n, err = repo.DeleteExpiredRefreshTokens(ctx, child.ExpiresAt)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
	_, err = repo.GetRefreshTokenByHash(ctx, parent.TokenHash)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testConcurrentRotate(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := SeedClient(t, s)
	_, root := newRefresh(c.ID, epoch, nil)
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, root))

	now := epoch.Add(time.Hour)
	const workers = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successors []domain.RefreshToken
		conflicts  int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, next := newRefresh(c.ID, now, &root.ID)
			err := s.WithTx(ctx, func(tx store.Tx) error {
				if _, err := tx.RefreshTokens().RevokeActiveRefreshToken(ctx, root.TokenHash, now); err != nil {
					return err
				}
				return tx.RefreshTokens().CreateRefreshToken(ctx, next)
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successors = append(successors, next)
			case errors.Is(err, store.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	require.Len(t, successors, 1)
	require.Equal(t, workers-1, conflicts)

	repo := s.RefreshTokens()
	has, err := repo.HasSuccessor(ctx, root.ID)
	require.NoError(t, err)
	require.True(t, has)

	// Presenting the rotated token again revokes the one live successor.
	_, err = repo.RevokeActiveRefreshToken(ctx, root.TokenHash, now)
	require.ErrorIs(t, err, store.ErrConflict)
	n, err := repo.RevokeDescendants(ctx, root.ID, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	got, err := repo.GetRefreshTokenByHash(ctx, successors[0].TokenHash)
	require.NoError(t, err)
	require.True(t, got.Revoked)
}
