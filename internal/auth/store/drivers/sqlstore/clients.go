package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aussiebroadwan/kbauth/internal/auth/domain"
	"github.com/aussiebroadwan/kbauth/internal/auth/store"
)

type clientsRepo struct{ q *Queries }

const createClient = `
INSERT INTO clients (id, name, secret_hash, redirect_uris, token_endpoint_auth_method, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	uris, err := json.Marshal(c.RedirectURIs)
	if err != nil {
		return fmt.Errorf("encode redirect uris: %w", err)
	}
	_, err = r.q.exec(ctx, createClient,
		c.ID, c.Name, emptyAsNull(c.SecretHash), string(uris), c.TokenEndpointAuthMethod, toMillis(c.CreatedAt))
	if r.q.isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

const getClientByID = `
SELECT id, name, secret_hash, redirect_uris, token_endpoint_auth_method, created_at
FROM clients WHERE id = ?`

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	var (
		c         domain.Client
		secret    sql.NullString
		uris      string
		createdAt int64
	)
	err := r.q.queryRow(ctx, getClientByID, id).
		Scan(&c.ID, &c.Name, &secret, &uris, &c.TokenEndpointAuthMethod, &createdAt)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	if err := json.Unmarshal([]byte(uris), &c.RedirectURIs); err != nil {
		return domain.Client{}, fmt.Errorf("decode redirect uris: %w", err)
	}
	c.SecretHash = secret.String
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}
