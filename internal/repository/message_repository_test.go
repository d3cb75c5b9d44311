package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/wabridge/internal/models"
	"github.com/avolkov/wabridge/internal/repository"
)

func inboundMessage(conversationID int64, externalID, body string, ts time.Time) *models.Message {
	return &models.Message{
		ConversationID: conversationID,
		ExternalID:     externalID,
		Type:           models.MessageTypeText,
		Status:         models.MessageStatusDelivered,
		StatusAt:       sql.NullTime{Time: ts, Valid: true},
		Body:           sql.NullString{String: body, Valid: true},
		Timestamp:      ts,
	}
}

func TestMessageRepository_InsertInbound_Idempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := repository.NewMessageRepository(db)
	ctx := context.Background()

	convID := newThread(t, db, "15550001111")
	msg := inboundMessage(convID, "wamid.IN1", "hello", time.Now().UTC())

	inserted, err := repo.InsertInbound(ctx, msg)
	require.NoError(t, err)
	assert.True(t, inserted)

	// A redelivered webhook carries the same external id; the second
	// insert must land on the unique constraint and report false.
	inserted, err = repo.InsertInbound(ctx, msg)
	require.NoError(t, err)
	assert.False(t, inserted)

	count, err := repo.CountByConversation(ctx, convID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMessageRepository_ApplyStatusUpdate(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := repository.NewMessageRepository(db)
	ctx := context.Background()

	convID := newThread(t, db, "15550002222")

	tests := []struct {
		name            string
		initialStatus   models.MessageStatus
		update          models.MessageStatus
		expectedApplied bool
		expectedStatus  models.MessageStatus
	}{
		{
			name:            "Forward transition sent to delivered applies",
			initialStatus:   models.MessageStatusSent,
			update:          models.MessageStatusDelivered,
			expectedApplied: true,
			expectedStatus:  models.MessageStatusDelivered,
		},
		{
			name:            "Skipping a rank sent to read applies",
			initialStatus:   models.MessageStatusSent,
			update:          models.MessageStatusRead,
			expectedApplied: true,
			expectedStatus:  models.MessageStatusRead,
		},
		{
			name:            "Stale receipt read back to delivered is discarded",
			initialStatus:   models.MessageStatusRead,
			update:          models.MessageStatusDelivered,
			expectedApplied: false,
			expectedStatus:  models.MessageStatusRead,
		},
		{
			name:            "Same status receipt is discarded",
			initialStatus:   models.MessageStatusDelivered,
			update:          models.MessageStatusDelivered,
			expectedApplied: false,
			expectedStatus:  models.MessageStatusDelivered,
		},
		{
			name:            "Failed is reachable from delivered",
			initialStatus:   models.MessageStatusDelivered,
			update:          models.MessageStatusFailed,
			expectedApplied: true,
			expectedStatus:  models.MessageStatusFailed,
		},
		{
			name:            "Failed is absorbing",
			initialStatus:   models.MessageStatusFailed,
			update:          models.MessageStatusRead,
			expectedApplied: false,
			expectedStatus:  models.MessageStatusFailed,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			externalID := fmt.Sprintf("wamid.STATUS%d", i)
			_, err := db.Exec(`
				INSERT INTO messages (conversation_id, external_id, direction, type, status, timestamp, created_at)
				VALUES ($1, $2, 'outbound', 'text', $3, NOW(), NOW())
			`, convID, externalID, tt.initialStatus)
			require.NoError(t, err)

			applied, err := repo.ApplyStatusUpdate(ctx, externalID, tt.update, time.Now().UTC(), nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedApplied, applied)

			status, _, _ := messageStatus(t, db, externalID)
			assert.Equal(t, string(tt.expectedStatus), status)
		})
	}

	t.Run("Unknown external id affects nothing", func(t *testing.T) {
		applied, err := repo.ApplyStatusUpdate(ctx, "wamid.MISSING", models.MessageStatusDelivered, time.Now().UTC(), nil, nil)
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("Failure receipt records error details", func(t *testing.T) {
		_, err := db.Exec(`
			INSERT INTO messages (conversation_id, external_id, direction, type, status, timestamp, created_at)
			VALUES ($1, 'wamid.FAILDETAIL', 'outbound', 'text', 'sent', NOW(), NOW())
		`, convID)
		require.NoError(t, err)

		errCode := "131026"
		errMsg := "Message undeliverable"
		applied, err := repo.ApplyStatusUpdate(ctx, "wamid.FAILDETAIL", models.MessageStatusFailed, time.Now().UTC(), &errCode, &errMsg)
		require.NoError(t, err)
		assert.True(t, applied)

		status, code, msg := messageStatus(t, db, "wamid.FAILDETAIL")
		assert.Equal(t, "failed", status)
		assert.Equal(t, "131026", code.String)
		assert.Equal(t, "Message undeliverable", msg.String)
	})
}

func TestMessageRepository_OutboundLifecycle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := repository.NewMessageRepository(db)
	ctx := context.Background()

	convID := newThread(t, db, "15550003333")
	now := time.Now().UTC()

	t.Run("MarkSent advances a pending message and swaps in the provider id", func(t *testing.T) {
		id, err := repo.InsertOutbound(ctx, &models.Message{
			ConversationID: convID,
			ExternalID:     "pending-1-100",
			Type:           models.MessageTypeText,
			StatusAt:       sql.NullTime{Time: now, Valid: true},
			Body:           sql.NullString{String: "reply", Valid: true},
			Timestamp:      now,
		})
		require.NoError(t, err)
		require.NotZero(t, id)

		err = repo.MarkSent(ctx, id, "wamid.OUT100", now)
		require.NoError(t, err)

		msg, err := repo.GetByExternalID(ctx, "wamid.OUT100")
		require.NoError(t, err)
		assert.Equal(t, models.MessageStatusSent, msg.Status)
		assert.Equal(t, models.DirectionOutbound, msg.Direction)
	})

	t.Run("MarkSent does not clobber a message past pending", func(t *testing.T) {
		id, err := repo.InsertOutbound(ctx, &models.Message{
			ConversationID: convID,
			ExternalID:     "pending-1-101",
			Type:           models.MessageTypeText,
			StatusAt:       sql.NullTime{Time: now, Valid: true},
			Timestamp:      now,
		})
		require.NoError(t, err)

		err = repo.MarkFailed(ctx, id, "131047", "window closed")
		require.NoError(t, err)

		err = repo.MarkSent(ctx, id, "wamid.OUT101", now)
		require.NoError(t, err)

		status, code, _ := messageStatus(t, db, "pending-1-101")
		assert.Equal(t, "failed", status)
		assert.Equal(t, "131047", code.String)
	})
}

func TestMessageRepository_ListByConversation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := repository.NewMessageRepository(db)
	ctx := context.Background()

	convID := newThread(t, db, "15550004444")
	otherConvID := newThread(t, db, "15550005555")

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		_, err := repo.InsertInbound(ctx, inboundMessage(convID, fmt.Sprintf("wamid.LIST%d", i), fmt.Sprintf("message %d", i), base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	_, err := repo.InsertInbound(ctx, inboundMessage(otherConvID, "wamid.OTHER", "elsewhere", base))
	require.NoError(t, err)

	messages, err := repo.ListByConversation(ctx, convID, 0, 3)
	require.NoError(t, err)
	require.Len(t, messages, 3)

	// Newest first.
	assert.Equal(t, "wamid.LIST4", messages[0].ExternalID)
	assert.Equal(t, "wamid.LIST3", messages[1].ExternalID)
	assert.Equal(t, "wamid.LIST2", messages[2].ExternalID)

	messages, err = repo.ListByConversation(ctx, convID, 3, 3)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "wamid.LIST1", messages[0].ExternalID)

	count, err := repo.CountByConversation(ctx, convID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestMessageRepository_Search(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := repository.NewMessageRepository(db)
	ctx := context.Background()

	accountID := insertTestAccount(t, db, "15550006666", "verify-search")
	contactID := insertTestContact(t, db, accountID, "wa-search", "+15550006677")
	convID := insertTestConversation(t, db, accountID, contactID)

	otherConvID := newThread(t, db, "15550007777")

	now := time.Now().UTC()
	_, err := repo.InsertInbound(ctx, inboundMessage(convID, "wamid.S1", "where is my refund for order 42", now))
	require.NoError(t, err)
	_, err = repo.InsertInbound(ctx, inboundMessage(convID, "wamid.S2", "thanks, all good", now.Add(time.Minute)))
	require.NoError(t, err)
	_, err = repo.InsertInbound(ctx, inboundMessage(otherConvID, "wamid.S3", "refund please", now))
	require.NoError(t, err)

	results, err := repo.Search(ctx, accountID, "refund", 10)
	require.NoError(t, err)
	require.Len(t, results, 1, "search must be scoped to the account")
	assert.Equal(t, "wamid.S1", results[0].ExternalID)
	assert.Equal(t, "+15550006677", results[0].ContactPhone)

	results, err = repo.Search(ctx, accountID, "unicorn", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMessageRepository_SetMediaRef(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := repository.NewMessageRepository(db)
	ctx := context.Background()

	convID := newThread(t, db, "15550008888")
	now := time.Now().UTC()

	msg := inboundMessage(convID, "wamid.MEDIA1", "", now)
	msg.Type = models.MessageTypeImage
	msg.Body = sql.NullString{}
	msg.MediaID = sql.NullString{String: "media-55", Valid: true}

	_, err := repo.InsertInbound(ctx, msg)
	require.NoError(t, err)

	stored, err := repo.GetByExternalID(ctx, "wamid.MEDIA1")
	require.NoError(t, err)
	require.False(t, stored.MediaRef.Valid)

	err = repo.SetMediaRef(ctx, stored.ID, "1/media-55")
	require.NoError(t, err)

	stored, err = repo.GetByExternalID(ctx, "wamid.MEDIA1")
	require.NoError(t, err)
	assert.Equal(t, "1/media-55", stored.MediaRef.String)
}

func TestMessageRepository_GetByExternalID_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := repository.NewMessageRepository(db)

	_, err := repo.GetByExternalID(context.Background(), "wamid.NOPE")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
