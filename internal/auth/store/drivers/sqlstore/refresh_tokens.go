package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/kbauth/internal/auth/domain"
	"github.com/aussiebroadwan/kbauth/internal/auth/store"
)

type refreshTokensRepo struct{ q *Queries }

const refreshTokenColumns = `id, token_hash, client_id, subject, scope, issued_at, expires_at, revoked, predecessor_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRefreshToken(row rowScanner) (domain.RefreshToken, error) {
	var (
		t                   domain.RefreshToken
		issuedAt, expiresAt int64
		predecessor         sql.NullString
	)
	err := row.Scan(&t.ID, &t.TokenHash, &t.ClientID, &t.Subject, &t.Scope,
		&issuedAt, &expiresAt, &t.Revoked, &predecessor)
	if err != nil {
		return domain.RefreshToken{}, err
	}
	t.IssuedAt = fromMillis(issuedAt)
	t.ExpiresAt = fromMillis(expiresAt)
	t.PredecessorID = stringPtr(predecessor)
	return t, nil
}

const createRefreshToken = `
INSERT INTO refresh_tokens (` + refreshTokenColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, FALSE, ?)`

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.q.exec(ctx, createRefreshToken,
		t.ID, t.TokenHash, t.ClientID, t.Subject, t.Scope,
		toMillis(t.IssuedAt), toMillis(t.ExpiresAt), nullString(t.PredecessorID))
	if r.q.isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

const getRefreshTokenByHash = `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token_hash = ?`

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	t, err := scanRefreshToken(r.q.queryRow(ctx, getRefreshTokenByHash, hash))
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	return t, nil
}

const revokeActiveRefreshToken = `
UPDATE refresh_tokens
SET revoked = TRUE, revoked_at = ?
WHERE token_hash = ? AND revoked = FALSE AND expires_at > ?
RETURNING ` + refreshTokenColumns

func (r *refreshTokensRepo) RevokeActiveRefreshToken(ctx context.Context, hash string, now time.Time) (domain.RefreshToken, error) {
	t, err := scanRefreshToken(r.q.queryRow(ctx, revokeActiveRefreshToken, toMillis(now), hash, toMillis(now)))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RefreshToken{}, store.ErrConflict
	}
	if err != nil {
		return domain.RefreshToken{}, err
	}
	// RETURNING reports the row after the update.
	t.Revoked = true
	return t, nil
}

const hasSuccessor = `SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE predecessor_id = ?)`

func (r *refreshTokensRepo) HasSuccessor(ctx context.Context, id string) (bool, error) {
	var ok bool
	if err := r.q.queryRow(ctx, hasSuccessor, id).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

const revokeDescendants = `
WITH RECURSIVE chain(id) AS (
	SELECT id FROM refresh_tokens WHERE predecessor_id = ?
	UNION
	SELECT rt.id FROM refresh_tokens rt JOIN chain c ON rt.predecessor_id = c.id
)
UPDATE refresh_tokens
SET revoked = TRUE, revoked_at = ?
WHERE revoked = FALSE AND id IN (SELECT id FROM chain)`

func (r *refreshTokensRepo) RevokeDescendants(ctx context.Context, id string, now time.Time) (int64, error) {
	res, err := r.q.exec(ctx, revokeDescendants, id, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// deleteExpiredRefreshTokens removes expired tokens unless a descendant is
// still valid. Ancestors of a live token stay so a replay of any of them
// is still recognised and revokes the chain.
const deleteExpiredRefreshTokens = `
WITH RECURSIVE live(id, predecessor_id) AS (
	SELECT id, predecessor_id FROM refresh_tokens WHERE expires_at > ?
	UNION
	SELECT rt.id, rt.predecessor_id FROM refresh_tokens rt JOIN live l ON rt.id = l.predecessor_id
)
DELETE FROM refresh_tokens
WHERE expires_at <= ? AND id NOT IN (SELECT id FROM live)`

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.exec(ctx, deleteExpiredRefreshTokens, toMillis(now), toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
