package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/avolkov/wabridge/internal/models"
)

type webhookLogRepository struct {
	db *sqlx.DB
}

func NewWebhookLogRepository(db *sqlx.DB) WebhookLogRepository {
	return &webhookLogRepository{db: db}
}

const webhookLogColumns = `id, account_id, payload, processed, attempts, error, created_at, updated_at`

func (r *webhookLogRepository) Create(ctx context.Context, accountID int64, payload []byte) (int64, error) {
	query := `
		INSERT INTO webhook_logs (account_id, payload, processed, attempts, created_at, updated_at)
		VALUES ($1, $2, FALSE, 0, NOW(), NOW())
		RETURNING id
	`

	var id int64
	if err := r.db.GetContext(ctx, &id, query, accountID, payload); err != nil {
		return 0, fmt.Errorf("failed to create webhook log: %w", err)
	}

	return id, nil
}

func (r *webhookLogRepository) GetByID(ctx context.Context, id int64) (*models.WebhookLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM webhook_logs WHERE id = $1`, webhookLogColumns)

	var log models.WebhookLog
	if err := r.db.GetContext(ctx, &log, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get webhook log: %w", err)
	}

	return &log, nil
}

func (r *webhookLogRepository) ListUnprocessed(ctx context.Context, maxAttempts, limit int) ([]*models.WebhookLog, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM webhook_logs
		WHERE processed = FALSE AND attempts < $1
		ORDER BY created_at ASC
		LIMIT $2
	`, webhookLogColumns)

	var logs []*models.WebhookLog
	if err := r.db.SelectContext(ctx, &logs, query, maxAttempts, limit); err != nil {
		return nil, fmt.Errorf("failed to list unprocessed webhook logs: %w", err)
	}

	return logs, nil
}

func (r *webhookLogRepository) MarkProcessed(ctx context.Context, id int64) error {
	query := `UPDATE webhook_logs SET processed = TRUE, error = NULL, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark webhook log processed: %w", err)
	}

	return nil
}

// RecordFailure keeps the log retryable (processed stays FALSE) unless
// terminal; logs are never deleted either way so the audit trail
// survives.
func (r *webhookLogRepository) RecordFailure(ctx context.Context, id int64, errMsg string, terminal bool) error {
	query := `
		UPDATE webhook_logs
		SET attempts = attempts + 1,
		    error = $2,
		    processed = $3,
		    updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, errMsg, terminal); err != nil {
		return fmt.Errorf("failed to record webhook log failure: %w", err)
	}

	return nil
}
