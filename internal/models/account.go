// Package models defines data structures used throughout the application.
package models

import (
	"database/sql"
	"time"
)

type AccountStatus string

const (
	AccountStatusProvisioning      AccountStatus = "provisioning"
	AccountStatusPendingVerify     AccountStatus = "pending_verification"
	AccountStatusPendingNameReview AccountStatus = "pending_name_review"
	AccountStatusActive            AccountStatus = "active"
	AccountStatusNameDeclined      AccountStatus = "name_declined"
	AccountStatusFailed            AccountStatus = "failed"
)

// Account is one externally-registered messaging identity.
// Accounts are created by the provisioning flow and never deleted,
// only status-transitioned.
type Account struct {
	ID            int64          `db:"id" json:"id"`
	UserID        int64          `db:"user_id" json:"user_id"`
	BusinessID    string         `db:"business_id" json:"business_id"`
	PhoneNumberID sql.NullString `db:"phone_number_id" json:"phone_number_id,omitempty"`
	PhoneNumber   string         `db:"phone_number" json:"phone_number"`
	DisplayName   string         `db:"display_name" json:"display_name"`
	AccessToken   string         `db:"access_token" json:"-"`
	VerifyToken   string         `db:"verify_token" json:"-"`
	Status        AccountStatus  `db:"status" json:"status"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// CanReceive reports whether the account may ingest inbound webhooks
// and send outbound messages. Only active and pending_name_review
// accounts are eligible.
func (a *Account) CanReceive() bool {
	return a.Status == AccountStatusActive || a.Status == AccountStatusPendingNameReview
}
