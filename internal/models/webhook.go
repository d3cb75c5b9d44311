package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// WebhookLog stages one raw inbound payload. Logs are created by the
// ingestion gateway before acknowledging the provider, mutated by the
// normalizer and never deleted; they are the audit/replay trail.
type WebhookLog struct {
	ID        int64          `db:"id" json:"id"`
	AccountID sql.NullInt64  `db:"account_id" json:"account_id,omitempty"`
	Payload   []byte         `db:"payload" json:"payload"`
	Processed bool           `db:"processed" json:"processed"`
	Attempts  int            `db:"attempts" json:"attempts"`
	Error     sql.NullString `db:"error" json:"error,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// WebhookEnvelope is the provider-defined JSON body of one webhook
// delivery: zero or more messages and/or status updates scoped to one
// external phone-number id.
type WebhookEnvelope struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         WebhookMetadata  `json:"metadata"`
	Contacts         []WebhookContact `json:"contacts,omitempty"`
	Messages         []InboundMessage `json:"messages,omitempty"`
	Statuses         []InboundStatus  `json:"statuses,omitempty"`
}

type WebhookMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type WebhookContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// InboundMessage is one provider-pushed message inside a webhook
// envelope. Only the fields the normalizer consumes are modeled; the
// raw payload survives in the WebhookLog.
type InboundMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Image    *InboundMedia `json:"image,omitempty"`
	Video    *InboundMedia `json:"video,omitempty"`
	Audio    *InboundMedia `json:"audio,omitempty"`
	Document *InboundMedia `json:"document,omitempty"`
	Sticker  *InboundMedia `json:"sticker,omitempty"`
	Reaction *struct {
		MessageID string `json:"message_id"`
		Emoji     string `json:"emoji"`
	} `json:"reaction,omitempty"`
	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Name      string  `json:"name,omitempty"`
	} `json:"location,omitempty"`
	Interactive json.RawMessage `json:"interactive,omitempty"`
	Context     *struct {
		ID string `json:"id"`
	} `json:"context,omitempty"`
}

type InboundMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// InboundStatus is one delivery/read/failure receipt keyed by the
// external message id.
type InboundStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Errors    []struct {
		Code    int    `json:"code"`
		Title   string `json:"title"`
		Message string `json:"message,omitempty"`
	} `json:"errors,omitempty"`
}

// Media returns the media attachment of the message, if any.
func (m *InboundMessage) Media() *InboundMedia {
	switch {
	case m.Image != nil:
		return m.Image
	case m.Video != nil:
		return m.Video
	case m.Audio != nil:
		return m.Audio
	case m.Document != nil:
		return m.Document
	case m.Sticker != nil:
		return m.Sticker
	default:
		return nil
	}
}

// BodyText extracts the text or caption of the message; for reactions
// it is the emoji.
func (m *InboundMessage) BodyText() string {
	if m.Text != nil {
		return m.Text.Body
	}
	if m.Reaction != nil {
		return m.Reaction.Emoji
	}
	if media := m.Media(); media != nil {
		return media.Caption
	}
	if m.Location != nil {
		return m.Location.Name
	}
	return ""
}
