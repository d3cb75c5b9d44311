package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/avolkov/wabridge/internal/models"
)

type apiKeyRepository struct {
	db *sqlx.DB
}

func NewAPIKeyRepository(db *sqlx.DB) APIKeyRepository {
	return &apiKeyRepository{db: db}
}

const apiKeyColumns = `id, account_id, name, key_hash, key_prefix, scopes, expires_at, last_used_at, created_at`

func (r *apiKeyRepository) Create(ctx context.Context, key *models.APIKey) (int64, error) {
	query := `
		INSERT INTO api_keys (account_id, name, key_hash, key_prefix, scopes, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id
	`

	var id int64
	err := r.db.GetContext(ctx, &id, query,
		key.AccountID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.ExpiresAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create api key: %w", err)
	}

	return id, nil
}

func (r *apiKeyRepository) GetByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	query := fmt.Sprintf(`SELECT %s FROM api_keys WHERE key_hash = $1`, apiKeyColumns)

	var key models.APIKey
	if err := r.db.GetContext(ctx, &key, query, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get api key by hash: %w", err)
	}

	return &key, nil
}

func (r *apiKeyRepository) ListByAccount(ctx context.Context, accountID int64) ([]*models.APIKey, error) {
	query := fmt.Sprintf(`SELECT %s FROM api_keys WHERE account_id = $1 ORDER BY created_at DESC`, apiKeyColumns)

	var keys []*models.APIKey
	if err := r.db.SelectContext(ctx, &keys, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}

	return keys, nil
}

// Delete is a hard delete; revocation leaves no row behind.
func (r *apiKeyRepository) Delete(ctx context.Context, id, accountID int64) error {
	query := `DELETE FROM api_keys WHERE id = $1 AND account_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *apiKeyRepository) TouchLastUsed(ctx context.Context, id int64) error {
	query := `UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to touch api key last used: %w", err)
	}

	return nil
}
