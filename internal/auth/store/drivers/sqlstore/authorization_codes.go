package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/kbauth/internal/auth/domain"
	"github.com/aussiebroadwan/kbauth/internal/auth/store"
)

type authorizationCodesRepo struct{ q *Queries }

const createAuthorizationCode = `
INSERT INTO authorization_codes (
	id, code_hash, client_id, redirect_uri, code_challenge, code_challenge_method,
	scope, subject, ticket_id, issued_at, expires_at, consumed
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, FALSE)`

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error {
	_, err := r.q.exec(ctx, createAuthorizationCode,
		c.ID, c.CodeHash, c.ClientID, c.RedirectURI, c.CodeChallenge, c.CodeChallengeMethod,
		c.Scope, c.Subject, emptyAsNull(c.TicketID), toMillis(c.IssuedAt), toMillis(c.ExpiresAt))
	if r.q.isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

const getAuthorizationCodeByHash = `
SELECT id, code_hash, client_id, redirect_uri, code_challenge, code_challenge_method,
	scope, subject, ticket_id, issued_at, expires_at, consumed
FROM authorization_codes WHERE code_hash = ?`

func (r *authorizationCodesRepo) GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error) {
	var (
		c                   domain.AuthorizationCode
		ticketID            sql.NullString
		issuedAt, expiresAt int64
	)
	err := r.q.queryRow(ctx, getAuthorizationCodeByHash, hash).Scan(
		&c.ID, &c.CodeHash, &c.ClientID, &c.RedirectURI, &c.CodeChallenge, &c.CodeChallengeMethod,
		&c.Scope, &c.Subject, &ticketID, &issuedAt, &expiresAt, &c.Consumed)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}
	c.TicketID = ticketID.String
	c.IssuedAt = fromMillis(issuedAt)
	c.ExpiresAt = fromMillis(expiresAt)
	return c, nil
}

const consumeAuthorizationCode = `
UPDATE authorization_codes
SET consumed = TRUE, consumed_at = ?
WHERE id = ? AND consumed = FALSE AND expires_at > ?`

func (r *authorizationCodesRepo) ConsumeAuthorizationCode(ctx context.Context, id string, now time.Time) error {
	res, err := r.q.exec(ctx, consumeAuthorizationCode, toMillis(now), id, toMillis(now))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

const deleteExpiredAuthorizationCodes = `DELETE FROM authorization_codes WHERE expires_at <= ?`

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.exec(ctx, deleteExpiredAuthorizationCodes, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
