package models

import (
	"database/sql"
	"time"
)

// ExpiringCredential is any record with an expiry the escalating tier
// notifier watches, e.g. a provider OAuth token. LastNotifiedTier holds
// the name of the most urgent tier already notified for the current
// expiry, or NULL when none has fired.
type ExpiringCredential struct {
	ID               int64          `db:"id" json:"id"`
	AccountID        int64          `db:"account_id" json:"account_id"`
	Kind             string         `db:"kind" json:"kind"`
	ExpiresAt        time.Time      `db:"expires_at" json:"expires_at"`
	LastNotifiedTier sql.NullString `db:"last_notified_tier" json:"last_notified_tier,omitempty"`
	NotifyEmail      string         `db:"notify_email" json:"notify_email"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}
