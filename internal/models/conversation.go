package models

import (
	"database/sql"
	"time"
)

// MessagingWindow is the rolling period after a contact's last inbound
// message during which free-form replies are allowed. Outside it only
// pre-approved templates may be sent.
const MessagingWindow = 24 * time.Hour

// PreviewMaxLen caps the stored last-message preview.
const PreviewMaxLen = 100

// Conversation is the 1:1 thread between an account and a contact,
// one per (account_id, contact_id).
//
// WindowExpiresAt is advanced only by inbound messages, to the inbound
// timestamp plus MessagingWindow; outbound sends never extend it.
type Conversation struct {
	ID                 int64          `db:"id" json:"id"`
	AccountID          int64          `db:"account_id" json:"account_id"`
	ContactID          int64          `db:"contact_id" json:"contact_id"`
	LastMessageAt      sql.NullTime   `db:"last_message_at" json:"last_message_at,omitempty"`
	LastMessagePreview sql.NullString `db:"last_message_preview" json:"last_message_preview,omitempty"`
	UnreadCount        int            `db:"unread_count" json:"unread_count"`
	WindowExpiresAt    sql.NullTime   `db:"window_expires_at" json:"window_expires_at,omitempty"`
	Archived           bool           `db:"archived" json:"archived"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// WindowOpen reports whether a free-form message may be sent at the
// given instant.
func (c *Conversation) WindowOpen(now time.Time) bool {
	return c.WindowExpiresAt.Valid && now.Before(c.WindowExpiresAt.Time)
}

// ConversationDetail is a conversation row joined with its contact,
// as listed by the dashboard and the tool gateway.
type ConversationDetail struct {
	Conversation
	ContactPhone string         `db:"contact_phone" json:"contact_phone"`
	ContactName  sql.NullString `db:"contact_name" json:"contact_name,omitempty"`
	ContactWaID  string         `db:"contact_wa_id" json:"contact_wa_id"`
}

// TruncatePreview shortens s to PreviewMaxLen runes.
func TruncatePreview(s string) string {
	r := []rune(s)
	if len(r) <= PreviewMaxLen {
		return s
	}
	return string(r[:PreviewMaxLen])
}
