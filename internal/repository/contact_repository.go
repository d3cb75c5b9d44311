package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/avolkov/wabridge/internal/models"
)

type contactRepository struct {
	db *sqlx.DB
}

func NewContactRepository(db *sqlx.DB) ContactRepository {
	return &contactRepository{db: db}
}

// Upsert creates or refreshes a contact. The (account_id, wa_id)
// unique constraint makes this safe when two webhook deliveries for
// the same contact overlap; the display name is only patched when the
// provider actually supplied one.
func (r *contactRepository) Upsert(ctx context.Context, accountID int64, waID, phoneNumber string, displayName *string) (*models.Contact, error) {
	query := `
		INSERT INTO contacts (account_id, wa_id, phone_number, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (account_id, wa_id) DO UPDATE
		SET display_name = COALESCE($4, contacts.display_name),
		    updated_at = NOW()
		RETURNING id, account_id, wa_id, phone_number, display_name, created_at, updated_at
	`

	var name sql.NullString
	if displayName != nil && *displayName != "" {
		name = sql.NullString{String: *displayName, Valid: true}
	}

	var contact models.Contact
	if err := r.db.GetContext(ctx, &contact, query, accountID, waID, phoneNumber, name); err != nil {
		return nil, fmt.Errorf("failed to upsert contact: %w", err)
	}

	return &contact, nil
}

func (r *contactRepository) GetByID(ctx context.Context, id int64) (*models.Contact, error) {
	query := `
		SELECT id, account_id, wa_id, phone_number, display_name, created_at, updated_at
		FROM contacts
		WHERE id = $1
	`

	var contact models.Contact
	if err := r.db.GetContext(ctx, &contact, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	return &contact, nil
}

func (r *contactRepository) GetByPhoneNumber(ctx context.Context, accountID int64, phoneNumber string) (*models.Contact, error) {
	query := `
		SELECT id, account_id, wa_id, phone_number, display_name, created_at, updated_at
		FROM contacts
		WHERE account_id = $1 AND phone_number = $2
	`

	var contact models.Contact
	if err := r.db.GetContext(ctx, &contact, query, accountID, phoneNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get contact by phone number: %w", err)
	}

	return &contact, nil
}

// ListRecent returns contacts ordered by most recent conversation
// activity; contacts without a conversation sort last.
func (r *contactRepository) ListRecent(ctx context.Context, accountID int64, limit int) ([]*models.Contact, error) {
	query := `
		SELECT c.id, c.account_id, c.wa_id, c.phone_number, c.display_name, c.created_at, c.updated_at
		FROM contacts c
		LEFT JOIN conversations conv ON conv.contact_id = c.id
		WHERE c.account_id = $1
		ORDER BY conv.last_message_at DESC NULLS LAST, c.created_at DESC
		LIMIT $2
	`

	var contacts []*models.Contact
	if err := r.db.SelectContext(ctx, &contacts, query, accountID, limit); err != nil {
		return nil, fmt.Errorf("failed to list recent contacts: %w", err)
	}

	return contacts, nil
}
