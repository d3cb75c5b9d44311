package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/avolkov/wabridge/internal/models"
)

type messageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepository{db: db}
}

const messageColumns = `id, conversation_id, external_id, direction, type, status, status_at, body, media_id, media_ref, reply_to_id, error_code, error_message, timestamp, created_at`

// InsertInbound stores one provider-pushed message. The UNIQUE
// constraint on external_id absorbs webhook re-deliveries: a duplicate
// insert affects zero rows and reports inserted=false.
func (r *messageRepository) InsertInbound(ctx context.Context, msg *models.Message) (bool, error) {
	query := `
		INSERT INTO messages (conversation_id, external_id, direction, type, status, status_at, body, media_id, reply_to_id, timestamp, created_at)
		VALUES ($1, $2, 'inbound', $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (external_id) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query,
		msg.ConversationID, msg.ExternalID, msg.Type, msg.Status,
		msg.StatusAt, msg.Body, msg.MediaID, msg.ReplyToID, msg.Timestamp)
	if err != nil {
		return false, fmt.Errorf("failed to insert inbound message: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *messageRepository) InsertOutbound(ctx context.Context, msg *models.Message) (int64, error) {
	query := `
		INSERT INTO messages (conversation_id, external_id, direction, type, status, status_at, body, media_id, reply_to_id, timestamp, created_at)
		VALUES ($1, $2, 'outbound', $3, 'pending', $4, $5, $6, $7, $8, NOW())
		RETURNING id
	`

	var id int64
	err := r.db.GetContext(ctx, &id, query,
		msg.ConversationID, msg.ExternalID, msg.Type,
		msg.StatusAt, msg.Body, msg.MediaID, msg.ReplyToID, msg.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to insert outbound message: %w", err)
	}

	return id, nil
}

// MarkSent records the provider's message id and advances the status.
// Guarded by the lattice so a racing failure receipt is not clobbered.
func (r *messageRepository) MarkSent(ctx context.Context, id int64, externalID string, ts time.Time) error {
	query := `
		UPDATE messages
		SET external_id = $2, status = 'sent', status_at = $3
		WHERE id = $1 AND status = 'pending'
	`

	if _, err := r.db.ExecContext(ctx, query, id, externalID, ts); err != nil {
		return fmt.Errorf("failed to mark message sent: %w", err)
	}

	return nil
}

func (r *messageRepository) MarkFailed(ctx context.Context, id int64, errCode, errMsg string) error {
	query := `
		UPDATE messages
		SET status = 'failed', status_at = NOW(), error_code = $2, error_message = $3
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, errCode, errMsg); err != nil {
		return fmt.Errorf("failed to mark message failed: %w", err)
	}

	return nil
}

// ApplyStatusUpdate moves a message forward through the status order
// pending < sent < delivered < read; failed is absorbing and reachable
// from any state. Out-of-order receipts affect zero rows. The rank
// comparison runs inside the UPDATE so concurrent receipts serialize
// on the row.
func (r *messageRepository) ApplyStatusUpdate(ctx context.Context, externalID string, status models.MessageStatus, ts time.Time, errCode, errMsg *string) (bool, error) {
	if models.StatusRank(status) < 0 {
		return false, nil
	}

	query := `
		UPDATE messages
		SET status = $2,
		    status_at = $3,
		    error_code = COALESCE($4, error_code),
		    error_message = COALESCE($5, error_message)
		WHERE external_id = $1
		  AND ($2 = 'failed' OR
			CASE $2::text
				WHEN 'pending' THEN 0
				WHEN 'sent' THEN 1
				WHEN 'delivered' THEN 2
				WHEN 'read' THEN 3
			END >
			CASE status
				WHEN 'pending' THEN 0
				WHEN 'sent' THEN 1
				WHEN 'delivered' THEN 2
				WHEN 'read' THEN 3
				WHEN 'failed' THEN 4
			END)
	`

	var code, msg sql.NullString
	if errCode != nil {
		code = sql.NullString{String: *errCode, Valid: true}
	}
	if errMsg != nil {
		msg = sql.NullString{String: *errMsg, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query, externalID, status, ts, code, msg)
	if err != nil {
		return false, fmt.Errorf("failed to apply status update: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *messageRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM messages WHERE external_id = $1`, messageColumns)

	var msg models.Message
	if err := r.db.GetContext(ctx, &msg, query, externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message by external id: %w", err)
	}

	return &msg, nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID int64, offset, limit int) ([]*models.Message, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM messages
		WHERE conversation_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2 OFFSET $3
	`, messageColumns)

	var messages []*models.Message
	if err := r.db.SelectContext(ctx, &messages, query, conversationID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}

func (r *messageRepository) CountByConversation(ctx context.Context, conversationID int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`

	if err := r.db.GetContext(ctx, &count, query, conversationID); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}

	return count, nil
}

// Search runs account-scoped full-text search over message bodies.
func (r *messageRepository) Search(ctx context.Context, accountID int64, query string, limit int) ([]*models.MessageSearchResult, error) {
	sqlQuery := `
		SELECT m.id, m.conversation_id, m.external_id, m.direction, m.type, m.status, m.status_at,
		       m.body, m.media_id, m.media_ref, m.reply_to_id, m.error_code, m.error_message,
		       m.timestamp, m.created_at,
		       c.phone_number AS contact_phone, c.display_name AS contact_name
		FROM messages m
		JOIN conversations conv ON conv.id = m.conversation_id
		JOIN contacts c ON c.id = conv.contact_id
		WHERE conv.account_id = $1
		  AND to_tsvector('simple', COALESCE(m.body, '')) @@ plainto_tsquery('simple', $2)
		ORDER BY m.timestamp DESC
		LIMIT $3
	`

	var results []*models.MessageSearchResult
	if err := r.db.SelectContext(ctx, &results, sqlQuery, accountID, query, limit); err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	return results, nil
}

func (r *messageRepository) SetMediaRef(ctx context.Context, id int64, ref string) error {
	query := `UPDATE messages SET media_ref = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, ref); err != nil {
		return fmt.Errorf("failed to set media ref: %w", err)
	}

	return nil
}
