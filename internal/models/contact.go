package models

import (
	"database/sql"
	"time"
)

// Contact is a phone number known to one account. Contacts are created
// lazily on the first inbound message or the first explicit send to a
// new number; unique per (account_id, wa_id).
type Contact struct {
	ID          int64          `db:"id" json:"id"`
	AccountID   int64          `db:"account_id" json:"account_id"`
	WaID        string         `db:"wa_id" json:"wa_id"`
	PhoneNumber string         `db:"phone_number" json:"phone_number"`
	DisplayName sql.NullString `db:"display_name" json:"display_name,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
