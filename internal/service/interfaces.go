package service

import (
	"context"
	"time"

	"github.com/avolkov/wabridge/internal/api"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_service.go -package=mocks

// WebhookService is the ingestion pipeline: signature verification,
// durable staging and idempotent normalization of provider callbacks.
type WebhookService interface {
	// VerifyChallenge reports whether the presented verify token
	// matches any configured account.
	VerifyChallenge(ctx context.Context, verifyToken string) (bool, error)
	// Ingest authenticates and stages one raw webhook delivery. It
	// returns ErrInvalidSignature for authenticity failures; ineligible
	// or unknown accounts are dropped silently (nil).
	Ingest(ctx context.Context, rawBody []byte, signature string) error
	// ProcessLog normalizes one staged log. Retryable: failures keep
	// the log unprocessed until the attempt budget is spent.
	ProcessLog(ctx context.Context, logID int64) error
	// SweepUnprocessed retries staged logs still within budget.
	SweepUnprocessed(ctx context.Context) error
}

// GatewayService dispatches agent tool invocations. Invoke never
// returns an error: every failure surfaces as a structured value.
type GatewayService interface {
	Invoke(ctx context.Context, apiKey, tool string, args map[string]interface{}) interface{}
}

// APIKeyService manages gateway credentials.
type APIKeyService interface {
	Create(ctx context.Context, accountID int64, req *api.CreateKeyRequest) (*api.CreateKeyResponse, error)
	List(ctx context.Context, accountID int64) (*api.KeyListResponse, error)
	Revoke(ctx context.Context, accountID, keyID int64) error
}

// ConversationService backs the dashboard surface.
type ConversationService interface {
	List(ctx context.Context, accountID int64, includeArchived bool, page, limit int) (*api.ConversationListResponse, error)
	Messages(ctx context.Context, conversationID int64, page, limit int) (*api.MessageListResponse, error)
	Update(ctx context.Context, conversationID int64, req *api.UpdateConversationRequest) error
}

// MediaService downloads inbound media (fire-and-forget, never
// retried) and resolves stored references to short-lived URLs.
type MediaService interface {
	// ScheduleDownload detaches a best-effort download task for one
	// message's media. Failures are logged and swallowed; a failed
	// download permanently leaves the message without a media ref.
	ScheduleDownload(accountID, messageID int64, mediaID string)
	// ResolveURL exchanges a stored media reference for a short-lived
	// redirect URL.
	ResolveURL(ctx context.Context, ref string) (string, error)
}

// NotifierService scans expiring credentials and fires at most one
// notification per urgency tier transition.
type NotifierService interface {
	RunOnce(ctx context.Context) error
}

type HealthService interface {
	GetHealth() *HealthStatus
}

// Mailer is the external email-sending capability consumed by the
// notifier. Delivery is out of scope; implementations only need to
// hand the message off.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// BlobStore is the external object-storage capability for media.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// SignedURL mints a URL that expires after ttl; media links must
	// never outlive it.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
