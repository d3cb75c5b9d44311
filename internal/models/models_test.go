package models_test

import (
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/avolkov/wabridge/internal/models"
)

func TestConversation_WindowOpen(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt sql.NullTime
		want      bool
	}{
		{
			name:      "no inbound message yet",
			expiresAt: sql.NullTime{},
			want:      false,
		},
		{
			name:      "window open",
			expiresAt: sql.NullTime{Time: now.Add(time.Hour), Valid: true},
			want:      true,
		},
		{
			name:      "window expired",
			expiresAt: sql.NullTime{Time: now.Add(-time.Minute), Valid: true},
			want:      false,
		},
		{
			name:      "boundary instant is closed",
			expiresAt: sql.NullTime{Time: now, Valid: true},
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := &models.Conversation{WindowExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, conv.WindowOpen(now))
		})
	}
}

func TestStatusRank_Ordering(t *testing.T) {
	assert.Less(t, models.StatusRank(models.MessageStatusPending), models.StatusRank(models.MessageStatusSent))
	assert.Less(t, models.StatusRank(models.MessageStatusSent), models.StatusRank(models.MessageStatusDelivered))
	assert.Less(t, models.StatusRank(models.MessageStatusDelivered), models.StatusRank(models.MessageStatusRead))
	assert.Less(t, models.StatusRank(models.MessageStatusRead), models.StatusRank(models.MessageStatusFailed))

	// Unknown statuses rank below everything so they can never win.
	assert.Equal(t, -1, models.StatusRank(models.MessageStatus("bogus")))
}

func TestPreviewText(t *testing.T) {
	tests := []struct {
		name    string
		msgType models.MessageType
		body    string
		want    string
	}{
		{"text body", models.MessageTypeText, "hello", "hello"},
		{"reaction emoji", models.MessageTypeReaction, "👍", "👍"},
		{"image caption", models.MessageTypeImage, "look at this", "look at this"},
		{"image without caption", models.MessageTypeImage, "", "[Image]"},
		{"video without caption", models.MessageTypeVideo, "", "[Video]"},
		{"document without caption", models.MessageTypeDocument, "", "[Document]"},
		{"sticker", models.MessageTypeSticker, "", "[Sticker]"},
		{"unknown type", models.MessageTypeUnknown, "", "[Unsupported message]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, models.PreviewText(tt.msgType, tt.body))
		})
	}
}

func TestTruncatePreview(t *testing.T) {
	long := strings.Repeat("a", models.PreviewMaxLen+50)
	assert.Len(t, models.TruncatePreview(long), models.PreviewMaxLen)

	short := "short"
	assert.Equal(t, short, models.TruncatePreview(short))

	// Truncation counts runes, not bytes.
	multibyte := strings.Repeat("é", models.PreviewMaxLen+1)
	assert.Equal(t, models.PreviewMaxLen, len([]rune(models.TruncatePreview(multibyte))))
}

func TestMapProviderType(t *testing.T) {
	assert.Equal(t, models.MessageTypeText, models.MapProviderType("text"))
	assert.Equal(t, models.MessageTypeAudio, models.MapProviderType("voice"))
	assert.Equal(t, models.MessageTypeInteractive, models.MapProviderType("button"))
	assert.Equal(t, models.MessageTypeUnknown, models.MapProviderType("something_new"))
}

func TestAPIKey_Scopes(t *testing.T) {
	key := &models.APIKey{Scopes: "read, send"}

	assert.True(t, key.HasScope(models.ScopeRead))
	assert.True(t, key.HasScope(models.ScopeSend))
	assert.False(t, key.HasScope(models.ScopeWrite))

	empty := &models.APIKey{}
	assert.False(t, empty.HasScope(models.ScopeRead))
}

func TestAPIKey_Expired(t *testing.T) {
	now := time.Now()

	noExpiry := &models.APIKey{}
	assert.False(t, noExpiry.Expired(now))

	live := &models.APIKey{ExpiresAt: sql.NullTime{Time: now.Add(time.Hour), Valid: true}}
	assert.False(t, live.Expired(now))

	expired := &models.APIKey{ExpiresAt: sql.NullTime{Time: now.Add(-time.Hour), Valid: true}}
	assert.True(t, expired.Expired(now))
}

func TestAccount_CanReceive(t *testing.T) {
	tests := []struct {
		status models.AccountStatus
		want   bool
	}{
		{models.AccountStatusActive, true},
		{models.AccountStatusPendingNameReview, true},
		{models.AccountStatusProvisioning, false},
		{models.AccountStatusPendingVerify, false},
		{models.AccountStatusNameDeclined, false},
		{models.AccountStatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			account := &models.Account{Status: tt.status}
			assert.Equal(t, tt.want, account.CanReceive())
		})
	}
}

func TestInboundMessage_BodyText(t *testing.T) {
	var msg models.InboundMessage
	assert.Empty(t, msg.BodyText())

	raw := []byte(`{"id":"wamid.1","type":"image","image":{"id":"media-1","caption":"sunset"}}`)
	var withMedia models.InboundMessage
	assert.NoError(t, json.Unmarshal(raw, &withMedia))
	assert.Equal(t, "sunset", withMedia.BodyText())
	assert.Equal(t, "media-1", withMedia.Media().ID)
}
