package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/avolkov/wabridge/internal/models"
	"github.com/avolkov/wabridge/internal/repository"
)

// ProcessLog normalizes one staged webhook log into the store. The
// unit is idempotent end to end: a processed log is a no-op, and every
// message insert is keyed on the provider's external id. Messages
// within one payload are handled strictly sequentially to preserve
// arrival order.
func (s *webhookService) ProcessLog(ctx context.Context, logID int64) error {
	log, err := s.repo.WebhookLog().GetByID(ctx, logID)
	if err != nil {
		return fmt.Errorf("failed to load webhook log: %w", err)
	}

	if log.Processed {
		return nil
	}

	if err := s.normalize(ctx, log); err != nil {
		terminal := log.Attempts+1 >= s.cfg.Webhook.MaxAttempts
		if recErr := s.repo.WebhookLog().RecordFailure(ctx, log.ID, err.Error(), terminal); recErr != nil {
			s.logger.Error("Failed to record webhook log failure",
				zap.Int64("log_id", log.ID),
				zap.Error(recErr))
		}
		return fmt.Errorf("failed to normalize webhook log %d: %w", log.ID, err)
	}

	if err := s.repo.WebhookLog().MarkProcessed(ctx, log.ID); err != nil {
		return fmt.Errorf("failed to mark webhook log processed: %w", err)
	}

	return nil
}

func (s *webhookService) normalize(ctx context.Context, log *models.WebhookLog) error {
	if !log.AccountID.Valid {
		return fmt.Errorf("webhook log %d has no resolved account", log.ID)
	}
	accountID := log.AccountID.Int64

	var value models.WebhookValue
	if err := json.Unmarshal(log.Payload, &value); err != nil {
		return fmt.Errorf("failed to parse staged payload: %w", err)
	}

	// Profile names keyed by wa_id, supplied alongside the messages.
	names := make(map[string]string, len(value.Contacts))
	for _, c := range value.Contacts {
		if c.Profile.Name != "" {
			names[c.WaID] = c.Profile.Name
		}
	}

	for i := range value.Messages {
		if err := s.normalizeMessage(ctx, accountID, &value.Messages[i], names); err != nil {
			return err
		}
	}

	for i := range value.Statuses {
		if err := s.applyStatus(ctx, &value.Statuses[i]); err != nil {
			return err
		}
	}

	return nil
}

func (s *webhookService) normalizeMessage(ctx context.Context, accountID int64, in *models.InboundMessage, names map[string]string) error {
	existing, err := s.repo.Message().GetByExternalID(ctx, in.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if existing != nil {
		// Re-delivered message, already ingested.
		return nil
	}

	waID := in.From
	var displayName *string
	if name, ok := names[waID]; ok {
		displayName = &name
	}

	contact, err := s.repo.Contact().Upsert(ctx, accountID, waID, "+"+waID, displayName)
	if err != nil {
		return err
	}

	conv, err := s.repo.Conversation().FindOrCreate(ctx, accountID, contact.ID)
	if err != nil {
		return err
	}

	ts := parseProviderTimestamp(in.Timestamp)
	msgType := models.MapProviderType(in.Type)
	body := in.BodyText()

	msg := &models.Message{
		ConversationID: conv.ID,
		ExternalID:     in.ID,
		Direction:      models.DirectionInbound,
		Type:           msgType,
		Status:         models.MessageStatusDelivered,
		StatusAt:       sql.NullTime{Time: ts, Valid: true},
		Timestamp:      ts,
	}
	if body != "" {
		msg.Body = sql.NullString{String: body, Valid: true}
	}
	if media := in.Media(); media != nil {
		msg.MediaID = sql.NullString{String: media.ID, Valid: true}
	}
	if in.Context != nil && in.Context.ID != "" {
		msg.ReplyToID = sql.NullString{String: in.Context.ID, Valid: true}
	}
	if in.Reaction != nil && in.Reaction.MessageID != "" {
		msg.ReplyToID = sql.NullString{String: in.Reaction.MessageID, Valid: true}
	}

	inserted, err := s.repo.Message().InsertInbound(ctx, msg)
	if err != nil {
		return err
	}
	if !inserted {
		// Lost the race against a concurrent delivery of the same
		// message; the winner already advanced the conversation.
		return nil
	}

	preview := models.PreviewText(msgType, body)
	if err := s.repo.Conversation().ApplyInbound(ctx, conv.ID, ts, preview); err != nil {
		return err
	}

	if msg.MediaID.Valid {
		stored, err := s.repo.Message().GetByExternalID(ctx, in.ID)
		if err != nil {
			return err
		}
		s.media.ScheduleDownload(accountID, stored.ID, msg.MediaID.String)
	}

	return nil
}

// applyStatus runs one receipt through the status lattice. A receipt
// for a message this instance never saw is not an error; receipts can
// outrun the message when deliveries interleave.
func (s *webhookService) applyStatus(ctx context.Context, in *models.InboundStatus) error {
	status := models.MessageStatus(in.Status)
	if models.StatusRank(status) < 0 {
		s.logger.Warn("Ignoring unknown status receipt",
			zap.String("external_id", in.ID),
			zap.String("status", in.Status))
		return nil
	}

	var errCode, errMsg *string
	if len(in.Errors) > 0 {
		code := strconv.Itoa(in.Errors[0].Code)
		errCode = &code
		detail := in.Errors[0].Title
		if in.Errors[0].Message != "" {
			detail = in.Errors[0].Message
		}
		errMsg = &detail
	}

	applied, err := s.repo.Message().ApplyStatusUpdate(ctx, in.ID, status, parseProviderTimestamp(in.Timestamp), errCode, errMsg)
	if err != nil {
		return err
	}
	if !applied {
		s.logger.Debug("Status receipt discarded by lattice",
			zap.String("external_id", in.ID),
			zap.String("status", in.Status))
	}

	return nil
}

// parseProviderTimestamp converts the provider's unix-seconds string;
// a malformed value falls back to now rather than failing the whole
// payload.
func parseProviderTimestamp(raw string) time.Time {
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || secs <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(secs, 0).UTC()
}
