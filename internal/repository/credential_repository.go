package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/avolkov/wabridge/internal/models"
)

type credentialRepository struct {
	db *sqlx.DB
}

func NewCredentialRepository(db *sqlx.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) ListExpiring(ctx context.Context, now time.Time) ([]*models.ExpiringCredential, error) {
	query := `
		SELECT id, account_id, kind, expires_at, last_notified_tier, notify_email, created_at, updated_at
		FROM expiring_credentials
		WHERE expires_at <= $1 + INTERVAL '14 days'
		ORDER BY expires_at ASC
	`

	var creds []*models.ExpiringCredential
	if err := r.db.SelectContext(ctx, &creds, query, now); err != nil {
		return nil, fmt.Errorf("failed to list expiring credentials: %w", err)
	}

	return creds, nil
}

// AdvanceTier is a compare-and-swap: it only writes when the stored
// tier is still the one the caller observed, so concurrent notifier
// runs cannot blindly overwrite a tier that has advanced further.
func (r *credentialRepository) AdvanceTier(ctx context.Context, id int64, prevTier *string, newTier string) (bool, error) {
	query := `
		UPDATE expiring_credentials
		SET last_notified_tier = $3, updated_at = NOW()
		WHERE id = $1 AND last_notified_tier IS NOT DISTINCT FROM $2
	`

	var prev sql.NullString
	if prevTier != nil {
		prev = sql.NullString{String: *prevTier, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query, id, prev, newTier)
	if err != nil {
		return false, fmt.Errorf("failed to advance notification tier: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

// UpdateExpiry is the refresh path: every refresh clears
// last_notified_tier so the credential re-enters the escalation ladder
// from the least urgent position, whatever the new expiry is.
func (r *credentialRepository) UpdateExpiry(ctx context.Context, id int64, expiresAt time.Time) error {
	query := `
		UPDATE expiring_credentials
		SET expires_at = $2, last_notified_tier = NULL, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, expiresAt); err != nil {
		return fmt.Errorf("failed to update credential expiry: %w", err)
	}

	return nil
}
