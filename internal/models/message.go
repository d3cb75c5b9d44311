package models

import (
	"database/sql"
	"time"
)

type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypeImage       MessageType = "image"
	MessageTypeVideo       MessageType = "video"
	MessageTypeAudio       MessageType = "audio"
	MessageTypeDocument    MessageType = "document"
	MessageTypeSticker     MessageType = "sticker"
	MessageTypeLocation    MessageType = "location"
	MessageTypeContacts    MessageType = "contacts"
	MessageTypeInteractive MessageType = "interactive"
	MessageTypeReaction    MessageType = "reaction"
	MessageTypeTemplate    MessageType = "template"
	MessageTypeUnknown     MessageType = "unknown"
)

type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

// StatusRank orders delivery statuses. A status update may only move a
// message forward through pending < sent < delivered < read; failed is
// reachable from any state and absorbing. Unknown statuses rank below
// pending so they can never overwrite anything.
func StatusRank(s MessageStatus) int {
	switch s {
	case MessageStatusPending:
		return 0
	case MessageStatusSent:
		return 1
	case MessageStatusDelivered:
		return 2
	case MessageStatusRead:
		return 3
	case MessageStatusFailed:
		return 4
	default:
		return -1
	}
}

// Message is an immutable record of one exchanged message. ExternalID
// is the provider's globally unique message id and the idempotency key
// for ingestion.
type Message struct {
	ID             int64            `db:"id" json:"id"`
	ConversationID int64            `db:"conversation_id" json:"conversation_id"`
	ExternalID     string           `db:"external_id" json:"external_id"`
	Direction      MessageDirection `db:"direction" json:"direction"`
	Type           MessageType      `db:"type" json:"type"`
	Status         MessageStatus    `db:"status" json:"status"`
	StatusAt       sql.NullTime     `db:"status_at" json:"status_at,omitempty"`
	Body           sql.NullString   `db:"body" json:"body,omitempty"`
	MediaID        sql.NullString   `db:"media_id" json:"media_id,omitempty"`
	MediaRef       sql.NullString   `db:"media_ref" json:"media_ref,omitempty"`
	ReplyToID      sql.NullString   `db:"reply_to_id" json:"reply_to_id,omitempty"`
	ErrorCode      sql.NullString   `db:"error_code" json:"error_code,omitempty"`
	ErrorMessage   sql.NullString   `db:"error_message" json:"error_message,omitempty"`
	Timestamp      time.Time        `db:"timestamp" json:"timestamp"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}

// MessageSearchResult is a message row joined with its conversation's
// contact, returned by the account-scoped full-text search.
type MessageSearchResult struct {
	Message
	ContactPhone string         `db:"contact_phone" json:"contact_phone"`
	ContactName  sql.NullString `db:"contact_name" json:"contact_name,omitempty"`
}

// PreviewText derives the conversation preview for a message: body or
// caption when present, otherwise a type label ("[Image]" and friends);
// reactions preview as the emoji itself.
func PreviewText(msgType MessageType, body string) string {
	if msgType == MessageTypeReaction && body != "" {
		return TruncatePreview(body)
	}
	if body != "" {
		return TruncatePreview(body)
	}
	switch msgType {
	case MessageTypeImage:
		return "[Image]"
	case MessageTypeVideo:
		return "[Video]"
	case MessageTypeAudio:
		return "[Audio]"
	case MessageTypeDocument:
		return "[Document]"
	case MessageTypeSticker:
		return "[Sticker]"
	case MessageTypeLocation:
		return "[Location]"
	case MessageTypeContacts:
		return "[Contact card]"
	case MessageTypeInteractive:
		return "[Interactive]"
	case MessageTypeTemplate:
		return "[Template]"
	default:
		return "[Unsupported message]"
	}
}

// MapProviderType maps the provider's type tag to the internal enum.
// Unknown tags map to MessageTypeUnknown rather than being dropped.
func MapProviderType(tag string) MessageType {
	switch tag {
	case "text":
		return MessageTypeText
	case "image":
		return MessageTypeImage
	case "video":
		return MessageTypeVideo
	case "audio", "voice":
		return MessageTypeAudio
	case "document":
		return MessageTypeDocument
	case "sticker":
		return MessageTypeSticker
	case "location":
		return MessageTypeLocation
	case "contacts":
		return MessageTypeContacts
	case "interactive", "button":
		return MessageTypeInteractive
	case "reaction":
		return MessageTypeReaction
	case "template":
		return MessageTypeTemplate
	default:
		return MessageTypeUnknown
	}
}
