package repository

import (
	"context"
	"time"

	"github.com/avolkov/wabridge/internal/models"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_repository.go -package=mocks

// Repository interface defines all repository operations.
type Repository interface {
	// Ping checks database connectivity
	Ping() error

	Account() AccountRepository
	Contact() ContactRepository
	Conversation() ConversationRepository
	Message() MessageRepository
	WebhookLog() WebhookLogRepository
	APIKey() APIKeyRepository
	Credential() CredentialRepository
}

type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByPhoneNumberID(ctx context.Context, phoneNumberID string) (*models.Account, error)
	GetByPhoneNumber(ctx context.Context, phoneNumber string) (*models.Account, error)
	ExistsByVerifyToken(ctx context.Context, token string) (bool, error)
}

type ContactRepository interface {
	// Upsert creates the contact or patches its display name when the
	// provider supplied a newer one. Safe under concurrent webhook
	// deliveries via the (account_id, wa_id) unique constraint.
	Upsert(ctx context.Context, accountID int64, waID, phoneNumber string, displayName *string) (*models.Contact, error)
	GetByID(ctx context.Context, id int64) (*models.Contact, error)
	GetByPhoneNumber(ctx context.Context, accountID int64, phoneNumber string) (*models.Contact, error)
	ListRecent(ctx context.Context, accountID int64, limit int) ([]*models.Contact, error)
}

type ConversationRepository interface {
	FindOrCreate(ctx context.Context, accountID, contactID int64) (*models.Conversation, error)
	GetByID(ctx context.Context, id int64) (*models.Conversation, error)
	GetByContact(ctx context.Context, accountID, contactID int64) (*models.Conversation, error)
	List(ctx context.Context, accountID int64, includeArchived bool, offset, limit int) ([]*models.ConversationDetail, error)
	Count(ctx context.Context, accountID int64, includeArchived bool) (int64, error)
	ListUnanswered(ctx context.Context, accountID int64, limit int) ([]*models.ConversationDetail, error)
	// ApplyInbound advances last_message_at, preview, unread count and
	// the messaging window (ts + 24h). Only inbound messages move the
	// window.
	ApplyInbound(ctx context.Context, id int64, ts time.Time, preview string) error
	// ApplyOutbound advances last_message_at and preview only; the
	// window is never extended by sends.
	ApplyOutbound(ctx context.Context, id int64, ts time.Time, preview string) error
	ResetUnread(ctx context.Context, id int64) error
	SetArchived(ctx context.Context, id int64, archived bool) error
}

type MessageRepository interface {
	// InsertInbound is idempotent on external_id: re-delivery of an
	// already-ingested message reports inserted=false and changes
	// nothing.
	InsertInbound(ctx context.Context, msg *models.Message) (inserted bool, err error)
	InsertOutbound(ctx context.Context, msg *models.Message) (int64, error)
	MarkSent(ctx context.Context, id int64, externalID string, ts time.Time) error
	MarkFailed(ctx context.Context, id int64, errCode, errMsg string) error
	// ApplyStatusUpdate applies a receipt through the status lattice:
	// the update is discarded unless it ranks strictly above the
	// current status or is the absorbing failed state.
	ApplyStatusUpdate(ctx context.Context, externalID string, status models.MessageStatus, ts time.Time, errCode, errMsg *string) (bool, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Message, error)
	ListByConversation(ctx context.Context, conversationID int64, offset, limit int) ([]*models.Message, error)
	CountByConversation(ctx context.Context, conversationID int64) (int64, error)
	Search(ctx context.Context, accountID int64, query string, limit int) ([]*models.MessageSearchResult, error)
	SetMediaRef(ctx context.Context, id int64, ref string) error
}

type WebhookLogRepository interface {
	Create(ctx context.Context, accountID int64, payload []byte) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.WebhookLog, error)
	// ListUnprocessed returns staged logs still within their attempt
	// budget, oldest first.
	ListUnprocessed(ctx context.Context, maxAttempts, limit int) ([]*models.WebhookLog, error)
	MarkProcessed(ctx context.Context, id int64) error
	// RecordFailure stores the error and bumps attempts; terminal
	// failures are additionally marked processed so the sweep stops
	// retrying them.
	RecordFailure(ctx context.Context, id int64, errMsg string, terminal bool) error
}

type APIKeyRepository interface {
	Create(ctx context.Context, key *models.APIKey) (int64, error)
	GetByHash(ctx context.Context, hash string) (*models.APIKey, error)
	ListByAccount(ctx context.Context, accountID int64) ([]*models.APIKey, error)
	Delete(ctx context.Context, id, accountID int64) error
	TouchLastUsed(ctx context.Context, id int64) error
}

type CredentialRepository interface {
	// ListExpiring returns credentials already inside the widest
	// notification tier, including ones past their expiry.
	ListExpiring(ctx context.Context, now time.Time) ([]*models.ExpiringCredential, error)
	// AdvanceTier is a compare-and-swap on last_notified_tier so two
	// overlapping notifier runs cannot both fire for the same tier.
	AdvanceTier(ctx context.Context, id int64, prevTier *string, newTier string) (bool, error)
	// UpdateExpiry is the credential-refresh path; it clears
	// last_notified_tier so a refreshed credential re-enters the
	// escalation ladder from the top.
	UpdateExpiry(ctx context.Context, id int64, expiresAt time.Time) error
}
