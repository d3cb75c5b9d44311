package models

import (
	"database/sql"
	"strings"
	"time"
)

type Scope string

const (
	ScopeRead  Scope = "read"
	ScopeWrite Scope = "write"
	ScopeSend  Scope = "send"
)

// APIKey is a credential for tool-gateway access. Only the SHA-256 hash
// of the key is stored; the plaintext is returned exactly once at
// creation and is never recoverable afterward. Revocation is a hard
// delete.
type APIKey struct {
	ID         int64        `db:"id" json:"id"`
	AccountID  int64        `db:"account_id" json:"account_id"`
	Name       string       `db:"name" json:"name"`
	KeyHash    string       `db:"key_hash" json:"-"`
	KeyPrefix  string       `db:"key_prefix" json:"key_prefix"`
	Scopes     string       `db:"scopes" json:"scopes"`
	ExpiresAt  sql.NullTime `db:"expires_at" json:"expires_at,omitempty"`
	LastUsedAt sql.NullTime `db:"last_used_at" json:"last_used_at,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

// ScopeList splits the comma-separated scopes column.
func (k *APIKey) ScopeList() []Scope {
	if k.Scopes == "" {
		return nil
	}
	parts := strings.Split(k.Scopes, ",")
	scopes := make([]Scope, 0, len(parts))
	for _, p := range parts {
		scopes = append(scopes, Scope(strings.TrimSpace(p)))
	}
	return scopes
}

// HasScope reports whether the key grants the given scope.
func (k *APIKey) HasScope(s Scope) bool {
	for _, have := range k.ScopeList() {
		if have == s {
			return true
		}
	}
	return false
}

// Expired reports whether the key has an expiry in the past.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt.Valid && now.After(k.ExpiresAt.Time)
}
