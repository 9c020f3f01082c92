package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/kbauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict means a conditional update matched no row: the code was
	// already consumed, the token already revoked, or either has expired.
	ErrConflict = errors.New("store: conditional update missed")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement it. Sub-repositories are reached through methods so a
// Tx can hand out the same repositories bound to the transaction.
type Store interface {
	Clients() Clients
	AuthorizationCodes() AuthorizationCodes
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Clients interface {
	// CreateClient inserts a registered client.
	CreateClient(ctx context.Context, c domain.Client) error

	// GetClientByID fetches a client by its client_id.
	GetClientByID(ctx context.Context, id string) (domain.Client, error)
}

type AuthorizationCodes interface {
	// CreateAuthorizationCode stores a freshly minted authorization code.
	// A second code for the same non-empty TicketID is ErrAlreadyExists.
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error

	// GetAuthorizationCodeByHash fetches a code by its fingerprint.
	GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error)

	// ConsumeAuthorizationCode flips consumed only if the code is still
	// unconsumed and unexpired at now. ErrConflict otherwise.
	ConsumeAuthorizationCode(ctx context.Context, id string, now time.Time) error

	// DeleteExpiredAuthorizationCodes removes codes past expiry and returns
	// how many were deleted.
	DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error)
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeActiveRefreshToken revokes the token only if it is active
	// (unrevoked, unexpired at now) and returns the record. ErrConflict
	// when no active token matched.
	RevokeActiveRefreshToken(ctx context.Context, hash string, now time.Time) (domain.RefreshToken, error)

	// HasSuccessor reports whether some token names id as its predecessor.
	HasSuccessor(ctx context.Context, id string) (bool, error)

	// RevokeDescendants revokes every token descending from id, following
	// predecessor links, and returns how many were revoked.
	RevokeDescendants(ctx context.Context, id string, now time.Time) (int64, error)

	// DeleteExpiredRefreshTokens removes tokens past expiry whose
	// descendants have all expired too. A revoked token with a live
	// successor is kept for replay detection.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}
