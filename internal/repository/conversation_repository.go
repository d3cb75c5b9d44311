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

type conversationRepository struct {
	db *sqlx.DB
}

func NewConversationRepository(db *sqlx.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

const conversationColumns = `id, account_id, contact_id, last_message_at, last_message_preview, unread_count, window_expires_at, archived, created_at, updated_at`

// FindOrCreate returns the 1:1 thread for (account, contact), creating
// it on first contact in either direction. The unique constraint plus
// DO UPDATE no-op makes the row visible to concurrent creators.
func (r *conversationRepository) FindOrCreate(ctx context.Context, accountID, contactID int64) (*models.Conversation, error) {
	query := fmt.Sprintf(`
		INSERT INTO conversations (account_id, contact_id, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (account_id, contact_id) DO UPDATE SET updated_at = conversations.updated_at
		RETURNING %s
	`, conversationColumns)

	var conv models.Conversation
	if err := r.db.GetContext(ctx, &conv, query, accountID, contactID); err != nil {
		return nil, fmt.Errorf("failed to find or create conversation: %w", err)
	}

	return &conv, nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id int64) (*models.Conversation, error) {
	query := fmt.Sprintf(`SELECT %s FROM conversations WHERE id = $1`, conversationColumns)

	var conv models.Conversation
	if err := r.db.GetContext(ctx, &conv, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return &conv, nil
}

func (r *conversationRepository) GetByContact(ctx context.Context, accountID, contactID int64) (*models.Conversation, error) {
	query := fmt.Sprintf(`SELECT %s FROM conversations WHERE account_id = $1 AND contact_id = $2`, conversationColumns)

	var conv models.Conversation
	if err := r.db.GetContext(ctx, &conv, query, accountID, contactID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation by contact: %w", err)
	}

	return &conv, nil
}

const conversationDetailColumns = `
	conv.id, conv.account_id, conv.contact_id, conv.last_message_at, conv.last_message_preview,
	conv.unread_count, conv.window_expires_at, conv.archived, conv.created_at, conv.updated_at,
	c.phone_number AS contact_phone, c.display_name AS contact_name, c.wa_id AS contact_wa_id`

func (r *conversationRepository) List(ctx context.Context, accountID int64, includeArchived bool, offset, limit int) ([]*models.ConversationDetail, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM conversations conv
		JOIN contacts c ON c.id = conv.contact_id
		WHERE conv.account_id = $1 AND (conv.archived = FALSE OR $2)
		ORDER BY conv.last_message_at DESC NULLS LAST
		LIMIT $3 OFFSET $4
	`, conversationDetailColumns)

	var conversations []*models.ConversationDetail
	if err := r.db.SelectContext(ctx, &conversations, query, accountID, includeArchived, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	return conversations, nil
}

func (r *conversationRepository) Count(ctx context.Context, accountID int64, includeArchived bool) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM conversations WHERE account_id = $1 AND (archived = FALSE OR $2)`

	if err := r.db.GetContext(ctx, &count, query, accountID, includeArchived); err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}

	return count, nil
}

// ListUnanswered returns non-archived conversations with unread
// inbound messages, most recent first.
func (r *conversationRepository) ListUnanswered(ctx context.Context, accountID int64, limit int) ([]*models.ConversationDetail, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM conversations conv
		JOIN contacts c ON c.id = conv.contact_id
		WHERE conv.account_id = $1 AND conv.archived = FALSE AND conv.unread_count > 0
		ORDER BY conv.last_message_at DESC NULLS LAST
		LIMIT $2
	`, conversationDetailColumns)

	var conversations []*models.ConversationDetail
	if err := r.db.SelectContext(ctx, &conversations, query, accountID, limit); err != nil {
		return nil, fmt.Errorf("failed to list unanswered conversations: %w", err)
	}

	return conversations, nil
}

// ApplyInbound advances the activity columns and the messaging window.
// The window only ever moves via this path.
func (r *conversationRepository) ApplyInbound(ctx context.Context, id int64, ts time.Time, preview string) error {
	query := `
		UPDATE conversations
		SET last_message_at = $2,
		    last_message_preview = $3,
		    unread_count = unread_count + 1,
		    window_expires_at = $4,
		    updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, ts, models.TruncatePreview(preview), ts.Add(models.MessagingWindow))
	if err != nil {
		return fmt.Errorf("failed to apply inbound to conversation: %w", err)
	}

	return nil
}

// ApplyOutbound advances activity columns only; window_expires_at is
// deliberately untouched.
func (r *conversationRepository) ApplyOutbound(ctx context.Context, id int64, ts time.Time, preview string) error {
	query := `
		UPDATE conversations
		SET last_message_at = $2,
		    last_message_preview = $3,
		    updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, ts, models.TruncatePreview(preview))
	if err != nil {
		return fmt.Errorf("failed to apply outbound to conversation: %w", err)
	}

	return nil
}

func (r *conversationRepository) ResetUnread(ctx context.Context, id int64) error {
	query := `UPDATE conversations SET unread_count = 0, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to reset unread count: %w", err)
	}

	return nil
}

func (r *conversationRepository) SetArchived(ctx context.Context, id int64, archived bool) error {
	query := `UPDATE conversations SET archived = $2, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, archived); err != nil {
		return fmt.Errorf("failed to set archived flag: %w", err)
	}

	return nil
}
