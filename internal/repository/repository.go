// Package repository implements the Postgres-backed message and
// conversation store.
package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// repositoryImpl is the concrete implementation of Repository interface.
type repositoryImpl struct {
	db           *sqlx.DB
	account      AccountRepository
	contact      ContactRepository
	conversation ConversationRepository
	message      MessageRepository
	webhookLog   WebhookLogRepository
	apiKey       APIKeyRepository
	credential   CredentialRepository
}

// NewRepository creates a new repository instance.
func NewRepository(db *sqlx.DB) Repository {
	return &repositoryImpl{
		db:           db,
		account:      NewAccountRepository(db),
		contact:      NewContactRepository(db),
		conversation: NewConversationRepository(db),
		message:      NewMessageRepository(db),
		webhookLog:   NewWebhookLogRepository(db),
		apiKey:       NewAPIKeyRepository(db),
		credential:   NewCredentialRepository(db),
	}
}

func (r *repositoryImpl) Account() AccountRepository           { return r.account }
func (r *repositoryImpl) Contact() ContactRepository           { return r.contact }
func (r *repositoryImpl) Conversation() ConversationRepository { return r.conversation }
func (r *repositoryImpl) Message() MessageRepository           { return r.message }
func (r *repositoryImpl) WebhookLog() WebhookLogRepository     { return r.webhookLog }
func (r *repositoryImpl) APIKey() APIKeyRepository             { return r.apiKey }
func (r *repositoryImpl) Credential() CredentialRepository     { return r.credential }

// Ping checks if the database connection is healthy.
func (r *repositoryImpl) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return r.db.PingContext(ctx)
}
